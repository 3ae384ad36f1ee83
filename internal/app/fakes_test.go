package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"sneaker_hub/internal/app"
	"sneaker_hub/internal/domain"
	mysqlrepo "sneaker_hub/internal/storage/mysql"
	"sneaker_hub/internal/storage/sqltest"
)

// ---- fakes ----

type fakeGeocoder struct {
	loc domain.Location
	err error
}

func (g *fakeGeocoder) Resolve(ctx context.Context, address string) (domain.Location, error) {
	return g.loc, g.err
}

type fakeArtifacts struct {
	mu      sync.Mutex
	deleted []string
	err     error
}

func (f *fakeArtifacts) Save(ctx context.Context, name, contentType string, r io.Reader, size int64) (string, error) {
	return "uploads/images/" + name, nil
}

func (f *fakeArtifacts) Delete(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, path)
	return f.err
}

func (f *fakeArtifacts) Deleted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

type fakeCache struct {
	mu    sync.Mutex
	store map[string][]byte
	gens  map[string]int
	dels  []string
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Generation(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strconv.Itoa(c.gens[key]), nil
}

func (c *fakeCache) SetIfGeneration(ctx context.Context, key, gen string, v any, ttlSec int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if strconv.Itoa(c.gens[key]) != gen {
		return false, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return false, err
	}
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	c.store[key] = b
	return true, nil
}

func (c *fakeCache) Invalidate(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens == nil {
		c.gens = map[string]int{}
	}
	c.gens[key]++
	delete(c.store, key)
	c.dels = append(c.dels, key)
	return nil
}

func (c *fakeCache) cached(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.store[key]
	return ok
}

type fakeEvents struct {
	subjects []string
	payloads []domain.ListingEvent
}

func (e *fakeEvents) Publish(ctx context.Context, subject string, v any) error {
	e.subjects = append(e.subjects, subject)
	if ev, ok := v.(domain.ListingEvent); ok {
		e.payloads = append(e.payloads, ev)
	}
	return nil
}

// flakyOwners fails selected writes so rollback paths can be exercised against a
// real database.
type flakyOwners struct {
	*mysqlrepo.OwnerStore
	failFind   bool
	failSave   bool
	failAdd    bool
	failRemove bool
}

var errInjected = errors.New("injected failure")

func (o *flakyOwners) FindByID(ctx context.Context, id string) (*domain.Owner, error) {
	if o.failFind {
		return nil, errInjected
	}
	return o.OwnerStore.FindByID(ctx, id)
}

func (o *flakyOwners) Save(ctx context.Context, tx domain.Tx, owner *domain.Owner) error {
	if o.failSave {
		return errInjected
	}
	return o.OwnerStore.Save(ctx, tx, owner)
}

func (o *flakyOwners) AddListingRef(ctx context.Context, tx domain.Tx, owner *domain.Owner, listingID string) error {
	if o.failAdd {
		return errInjected
	}
	return o.OwnerStore.AddListingRef(ctx, tx, owner, listingID)
}

func (o *flakyOwners) RemoveListingRef(ctx context.Context, tx domain.Tx, owner *domain.Owner, listingID string) error {
	if o.failRemove {
		return errInjected
	}
	return o.OwnerStore.RemoveListingRef(ctx, tx, owner, listingID)
}

// gatedListings holds its first read after it has hit the
// database, until release is closed, so a write can commit in between.
type gatedListings struct {
	*mysqlrepo.ListingStore
	read    chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedListings(inner *mysqlrepo.ListingStore) *gatedListings {
	return &gatedListings{ListingStore: inner, read: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedListings) hold() {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.read)
		<-g.release
	}
}

func (g *gatedListings) FindByID(ctx context.Context, id string) (domain.Listing, error) {
	l, err := g.ListingStore.FindByID(ctx, id)
	g.hold()
	return l, err
}

func (g *gatedListings) FindAllByOwner(ctx context.Context, ownerID string) ([]domain.Listing, error) {
	ls, err := g.ListingStore.FindAllByOwner(ctx, ownerID)
	g.hold()
	return ls, err
}

// commitLost applies the transaction but reports the commit as failed, the way
// a connection dropped after COMMIT was sent looks to the caller.
type commitLost struct{ inner domain.UnitOfWork }

func (u commitLost) WithinTx(ctx context.Context, fn func(tx domain.Tx) error) error {
	if err := u.inner.WithinTx(ctx, fn); err != nil {
		return err
	}
	return fmt.Errorf("committing transaction: %w: %w", domain.ErrCommitUnknown, errInjected)
}

// ---- harness ----

type harness struct {
	db       *sqlx.DB
	listings *mysqlrepo.ListingStore
	owners   *flakyOwners
	geo      *fakeGeocoder
	art      *fakeArtifacts
	cache    *fakeCache
	events   *fakeEvents
	cmd      *app.CommandService
	q        *app.QueryService
}

func newHarness(t *testing.T, owners ...string) *harness {
	t.Helper()
	db := sqltest.NewDB(t)
	sqltest.SeedOwners(t, db, owners...)

	h := &harness{
		db:       db,
		listings: mysqlrepo.NewListingStore(db),
		owners:   &flakyOwners{OwnerStore: mysqlrepo.NewOwnerStore(db)},
		geo:      &fakeGeocoder{loc: domain.Location{Lat: 40.7484405, Lng: -73.9878584}},
		art:      &fakeArtifacts{},
		cache:    &fakeCache{},
		events:   &fakeEvents{},
	}
	h.cmd = app.NewCommandService(
		h.listings, h.owners, mysqlrepo.NewUnitOfWork(db), h.geo,
		app.NewImageLifecycle(h.art, time.Second), h.cache, h.events,
	)
	h.q = app.NewQueryService(h.listings, h.owners, h.cache, time.Minute)
	return h
}

func newListing(owner, image string) domain.NewListing {
	return domain.NewListing{
		OwnerID:     owner,
		Title:       "Jordan 1 Chicago",
		Description: "Deadstock, original box",
		Address:     "20 W 34th St, New York, NY 10001",
		URL:         "https://example.com/j1",
		ImagePath:   image,
	}
}

func (h *harness) mustCreate(t *testing.T, owner, image string) domain.Listing {
	t.Helper()
	l, err := h.cmd.Create(context.Background(), newListing(owner, image))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return l
}

func assertKind(t *testing.T, err error, want domain.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := domain.KindOf(err); got != want {
		t.Fatalf("kind = %s, want %s (err: %v)", got, want, err)
	}
}
