package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"sneaker_hub/internal/domain"
)

type listingRow struct {
	ID          string  `db:"id"`
	OwnerID     string  `db:"owner_id"`
	Title       string  `db:"title"`
	Description string  `db:"description"`
	Address     string  `db:"address"`
	Lat         float64 `db:"lat"`
	Lng         float64 `db:"lng"`
	URL         string  `db:"url"`
	Image       string  `db:"image"`
}

func (r listingRow) toDomain() domain.Listing {
	return domain.Listing{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Address:     r.Address,
		Location:    domain.Location{Lat: r.Lat, Lng: r.Lng},
		URL:         r.URL,
		Image:       r.Image,
		OwnerID:     r.OwnerID,
	}
}

type ListingStore struct{ db *sqlx.DB }

func NewListingStore(db *sqlx.DB) *ListingStore { return &ListingStore{db: db} }

func (s *ListingStore) FindByID(ctx context.Context, id string) (domain.Listing, error) {
	var row listingRow
	if err := s.db.GetContext(ctx, &row, getListingSQL, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Listing{}, fmt.Errorf("listing %s: %w", id, domain.ErrNotFound)
		}
		return domain.Listing{}, fmt.Errorf("getting listing: %w", err)
	}
	return row.toDomain(), nil
}

func (s *ListingStore) FindAllByOwner(ctx context.Context, ownerID string) ([]domain.Listing, error) {
	var rows []listingRow
	if err := s.db.SelectContext(ctx, &rows, listListingsByOwnerSQL, ownerID); err != nil {
		return nil, fmt.Errorf("listing owner listings: %w", err)
	}
	out := make([]domain.Listing, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// Create assigns a new id when l.ID is empty.
func (s *ListingStore) Create(ctx context.Context, tx domain.Tx, l domain.Listing) (domain.Listing, error) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	_, err := tx.ExecContext(ctx, insertListingSQL,
		l.ID,
		l.OwnerID,
		l.Title,
		l.Description,
		l.Address,
		l.Location.Lat,
		l.Location.Lng,
		l.URL,
		l.Image,
	)
	if err != nil {
		return domain.Listing{}, fmt.Errorf("inserting listing: %w", err)
	}
	return l, nil
}

// Update writes title and description only; it is a single row write and needs
// no transaction scope.
func (s *ListingStore) Update(ctx context.Context, id string, p domain.ListingPatch) (domain.Listing, error) {
	if _, err := s.db.ExecContext(ctx, updateListingSQL, p.Title, p.Description, id); err != nil {
		return domain.Listing{}, fmt.Errorf("updating listing: %w", err)
	}
	// MySQL reports 0 affected rows when the values are unchanged, so existence is
	// checked by reading the row back.
	return s.FindByID(ctx, id)
}

func (s *ListingStore) Delete(ctx context.Context, tx domain.Tx, id string) error {
	res, err := tx.ExecContext(ctx, deleteListingSQL, id)
	if err != nil {
		return fmt.Errorf("deleting listing: %w", err)
	}
	ok, err := rowsAffected(res)
	if err != nil {
		return fmt.Errorf("deleting listing: %w", err)
	}
	if !ok {
		return fmt.Errorf("listing %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
