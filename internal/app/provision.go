package app

import (
	"context"
	"errors"
	"fmt"

	"sneaker_hub/internal/domain"
)

// OwnerProvisioner creates owner records for identities that do not have one yet.
type OwnerProvisioner struct {
	owners domain.OwnerStore
}

func NewOwnerProvisioner(o domain.OwnerStore) *OwnerProvisioner {
	return &OwnerProvisioner{owners: o}
}

// Ensure reports whether a new, empty owner was created for id.
func (p *OwnerProvisioner) Ensure(ctx context.Context, id string) (bool, error) {
	_, err := p.owners.FindByID(ctx, id)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return false, fmt.Errorf("looking up owner %s: %w", id, err)
	}
	if err := p.owners.Create(ctx, &domain.Owner{ID: id}); err != nil {
		return false, fmt.Errorf("creating owner %s: %w", id, err)
	}
	return true, nil
}
