//go:build integration

package mysql_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"sneaker_hub/internal/domain"
	mysqlrepo "sneaker_hub/internal/storage/mysql"
	"sneaker_hub/internal/storage/sqltest"
)

// Concurrent creates for one owner must all land in the membership set. Save
// runs first so the owner row lock serializes them.
func TestStores_MySQL_ConcurrentCreatesSameOwner(t *testing.T) {
	db := sqltest.NewMySQL(t)
	sqltest.SeedOwners(t, db, "u1")
	ctx := context.Background()

	listings := mysqlrepo.NewListingStore(db)
	owners := mysqlrepo.NewOwnerStore(db)
	uow := mysqlrepo.NewUnitOfWork(db)

	const n = 16
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			owner, err := owners.FindByID(ctx, "u1")
			if err != nil {
				errs <- err
				return
			}
			errs <- uow.WithinTx(ctx, func(tx domain.Tx) error {
				if err := owners.Save(ctx, tx, owner); err != nil {
					return err
				}
				l, err := listings.Create(ctx, tx, sampleListing(fmt.Sprintf("p%02d", i), "u1"))
				if err != nil {
					return err
				}
				return owners.AddListingRef(ctx, tx, owner, l.ID)
			})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	owner, err := owners.FindByID(ctx, "u1")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	all, err := listings.FindAllByOwner(ctx, "u1")
	if err != nil {
		t.Fatalf("FindAllByOwner: %v", err)
	}
	if len(owner.Listings) != n || len(all) != n {
		t.Fatalf("membership=%d listings=%d, want %d", len(owner.Listings), len(all), n)
	}
	for _, l := range all {
		if !owner.HasListing(l.ID) {
			t.Fatalf("listing %s missing from membership", l.ID)
		}
	}
	if owner.Version != n {
		t.Fatalf("version = %d, want %d", owner.Version, n)
	}
}

func TestStores_MySQL_DeleteRollback(t *testing.T) {
	db := sqltest.NewMySQL(t)
	sqltest.SeedOwners(t, db, "u1")
	ctx := context.Background()

	listings := mysqlrepo.NewListingStore(db)
	owners := mysqlrepo.NewOwnerStore(db)
	uow := mysqlrepo.NewUnitOfWork(db)

	owner, _ := owners.FindByID(ctx, "u1")
	if err := uow.WithinTx(ctx, func(tx domain.Tx) error {
		if _, err := listings.Create(ctx, tx, sampleListing("p1", "u1")); err != nil {
			return err
		}
		if err := owners.AddListingRef(ctx, tx, owner, "p1"); err != nil {
			return err
		}
		return owners.Save(ctx, tx, owner)
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	err := uow.WithinTx(ctx, func(tx domain.Tx) error {
		if err := listings.Delete(ctx, tx, "p1"); err != nil {
			return err
		}
		return fmt.Errorf("unlink failed")
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if _, err := listings.FindByID(ctx, "p1"); err != nil {
		t.Fatalf("listing should survive rollback: %v", err)
	}
}
