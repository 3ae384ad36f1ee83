package mysql

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"sneaker_hub/internal/domain"
)

type UnitOfWork struct{ db *sqlx.DB }

func NewUnitOfWork(db *sqlx.DB) *UnitOfWork { return &UnitOfWork{db: db} }

func (u *UnitOfWork) WithinTx(ctx context.Context, fn func(tx domain.Tx) error) error {
	tx, err := u.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	// no-op after a successful commit
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w: %w", domain.ErrCommitUnknown, err)
	}
	return nil
}
