package domain

import (
	"context"
	"database/sql"
	"io"
)

// Tx is the transaction scope handed to store writes by a UnitOfWork.
type Tx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// UnitOfWork runs fn inside one transaction: every write made through tx is
// committed when fn returns nil and rolled back otherwise.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

type ListingStore interface {
	FindByID(ctx context.Context, id string) (Listing, error)
	FindAllByOwner(ctx context.Context, ownerID string) ([]Listing, error)
	Create(ctx context.Context, tx Tx, l Listing) (Listing, error)
	Update(ctx context.Context, id string, p ListingPatch) (Listing, error)
	Delete(ctx context.Context, tx Tx, id string) error
}

type OwnerStore interface {
	FindByID(ctx context.Context, id string) (*Owner, error)
	Create(ctx context.Context, o *Owner) error
	AddListingRef(ctx context.Context, tx Tx, o *Owner, listingID string) error
	RemoveListingRef(ctx context.Context, tx Tx, o *Owner, listingID string) error
	Save(ctx context.Context, tx Tx, o *Owner) error
}

type Geocoder interface {
	Resolve(ctx context.Context, address string) (Location, error)
}

// ArtifactStore keeps image files outside the database.
type ArtifactStore interface {
	Save(ctx context.Context, name, contentType string, r io.Reader, size int64) (string, error)
	Delete(ctx context.Context, path string) error
}

// Cache is a read-through cache with generation-guarded fills. Readers take the
// key's generation before reading the store and fill with SetIfGeneration.
// Invalidate bumps the generation and drops the entry, so a fill that read the
// store before the invalidation is discarded.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Generation(ctx context.Context, key string) (string, error)
	SetIfGeneration(ctx context.Context, key, gen string, v any, ttlSec int) (bool, error)
	Invalidate(ctx context.Context, key string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, subject string, v any) error
}
