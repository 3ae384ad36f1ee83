package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"sneaker_hub/internal/domain"
)

type ownerRow struct {
	ID      string `db:"id"`
	Version int64  `db:"version"`
}

type OwnerStore struct{ db *sqlx.DB }

func NewOwnerStore(db *sqlx.DB) *OwnerStore { return &OwnerStore{db: db} }

func (s *OwnerStore) FindByID(ctx context.Context, id string) (*domain.Owner, error) {
	var row ownerRow
	if err := s.db.GetContext(ctx, &row, getOwnerSQL, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("owner %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("getting owner: %w", err)
	}
	var refs []string
	if err := s.db.SelectContext(ctx, &refs, listOwnerRefsSQL, id); err != nil {
		return nil, fmt.Errorf("getting owner listings: %w", err)
	}
	return &domain.Owner{ID: row.ID, Listings: refs, Version: row.Version}, nil
}

func (s *OwnerStore) Create(ctx context.Context, o *domain.Owner) error {
	if _, err := s.db.ExecContext(ctx, insertOwnerSQL, o.ID); err != nil {
		return fmt.Errorf("creating owner: %w", err)
	}
	o.Version = 0
	return nil
}

func (s *OwnerStore) AddListingRef(ctx context.Context, tx domain.Tx, o *domain.Owner, listingID string) error {
	if _, err := tx.ExecContext(ctx, insertOwnerRefSQL, o.ID, listingID); err != nil {
		return fmt.Errorf("adding listing ref: %w", err)
	}
	o.Listings = append(o.Listings, listingID)
	return nil
}

func (s *OwnerStore) RemoveListingRef(ctx context.Context, tx domain.Tx, o *domain.Owner, listingID string) error {
	res, err := tx.ExecContext(ctx, deleteOwnerRefSQL, o.ID, listingID)
	if err != nil {
		return fmt.Errorf("removing listing ref: %w", err)
	}
	ok, err := rowsAffected(res)
	if err != nil {
		return fmt.Errorf("removing listing ref: %w", err)
	}
	if !ok {
		return fmt.Errorf("owner %s does not reference listing %s", o.ID, listingID)
	}
	kept := o.Listings[:0]
	for _, id := range o.Listings {
		if id != listingID {
			kept = append(kept, id)
		}
	}
	o.Listings = kept
	return nil
}

func (s *OwnerStore) Save(ctx context.Context, tx domain.Tx, o *domain.Owner) error {
	res, err := tx.ExecContext(ctx, saveOwnerSQL, o.ID)
	if err != nil {
		return fmt.Errorf("saving owner: %w", err)
	}
	ok, err := rowsAffected(res)
	if err != nil {
		return fmt.Errorf("saving owner: %w", err)
	}
	if !ok {
		return fmt.Errorf("saving owner %s: %w", o.ID, domain.ErrNotFound)
	}
	o.Version++
	return nil
}
