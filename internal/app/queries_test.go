package app_test

import (
	"context"
	"testing"
	"time"

	"sneaker_hub/internal/app"
	"sneaker_hub/internal/domain"
)

func TestGetByID_CacheMissThenHit(t *testing.T) {
	h := newHarness(t, "u1")
	ctx := context.Background()
	l := h.mustCreate(t, "u1", "uploads/images/a.png")

	got, err := h.q.GetByID(ctx, l.ID)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if got.ID != l.ID || got.Title != l.Title {
		t.Fatalf("unexpected listing: %+v", got)
	}
	if !h.cache.cached("listing:" + l.ID) {
		t.Fatalf("expected listing to be cached")
	}

	// served from cache even though the row changed underneath
	if _, err := h.listings.Update(ctx, l.ID, domain.ListingPatch{Title: "changed", Description: "changed"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err = h.q.GetByID(ctx, l.ID)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if got.Title != l.Title {
		t.Fatalf("expected cached title %q, got %q", l.Title, got.Title)
	}
}

func TestGetByID_UpdateInvalidatesCache(t *testing.T) {
	h := newHarness(t, "u1")
	ctx := context.Background()
	l := h.mustCreate(t, "u1", "uploads/images/a.png")

	if _, err := h.q.GetByID(ctx, l.ID); err != nil {
		t.Fatalf("err: %v", err)
	}
	if _, err := h.cmd.Update(ctx, "u1", l.ID, domain.ListingPatch{Title: "Fresh", Description: "Fresh description"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err := h.q.GetByID(ctx, l.ID)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if got.Title != "Fresh" {
		t.Fatalf("stale read after update: %+v", got)
	}
}

func TestGetByID_Missing(t *testing.T) {
	h := newHarness(t)
	_, err := h.q.GetByID(context.Background(), "nope")
	assertKind(t, err, domain.ErrNotFound)
	if msg := domain.MessageOf(err); msg != "Could not find sneaker for the provided id." {
		t.Fatalf("message = %q", msg)
	}
}

func TestGetByOwner(t *testing.T) {
	h := newHarness(t, "u1", "u2")
	ctx := context.Background()
	a := h.mustCreate(t, "u1", "uploads/images/a.png")
	b := h.mustCreate(t, "u1", "uploads/images/b.png")
	h.mustCreate(t, "u2", "uploads/images/c.png")

	got, err := h.q.GetByOwner(ctx, "u1")
	if err != nil {
		t.Fatalf("GetByOwner: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	seen := map[string]bool{}
	for _, l := range got {
		if l.OwnerID != "u1" {
			t.Fatalf("listing of another owner returned: %+v", l)
		}
		seen[l.ID] = true
	}
	if !seen[a.ID] || !seen[b.ID] {
		t.Fatalf("missing listings: %v", seen)
	}
}

func TestGetByOwner_DeleteInvalidatesCache(t *testing.T) {
	h := newHarness(t, "u1")
	ctx := context.Background()
	a := h.mustCreate(t, "u1", "uploads/images/a.png")
	b := h.mustCreate(t, "u1", "uploads/images/b.png")

	if got, err := h.q.GetByOwner(ctx, "u1"); err != nil || len(got) != 2 {
		t.Fatalf("GetByOwner: %v %v", got, err)
	}
	if err := h.cmd.Delete(ctx, "u1", a.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, err := h.q.GetByOwner(ctx, "u1")
	if err != nil {
		t.Fatalf("GetByOwner: %v", err)
	}
	if len(got) != 1 || got[0].ID != b.ID {
		t.Fatalf("got %+v, want only %s", got, b.ID)
	}
}

func TestGetByOwner_NotFound(t *testing.T) {
	h := newHarness(t, "empty")
	ctx := context.Background()

	_, err := h.q.GetByOwner(ctx, "ghost")
	assertKind(t, err, domain.ErrNotFound)
	if msg := domain.MessageOf(err); msg != "Could not find user for provided id." {
		t.Fatalf("missing owner message = %q", msg)
	}

	_, err = h.q.GetByOwner(ctx, "empty")
	assertKind(t, err, domain.ErrNotFound)
	if msg := domain.MessageOf(err); msg != "Could not find sneakers for the provided user id." {
		t.Fatalf("empty owner message = %q", msg)
	}
}

type readResult struct {
	listings []domain.Listing
	err      error
}

func TestGetByID_ReadRacingDeleteIsNotCached(t *testing.T) {
	h := newHarness(t, "u1")
	ctx := context.Background()
	l := h.mustCreate(t, "u1", "uploads/images/a.png")

	gated := newGatedListings(h.listings)
	q := app.NewQueryService(gated, h.owners, h.cache, time.Minute)

	done := make(chan readResult, 1)
	go func() {
		got, err := q.GetByID(ctx, l.ID)
		done <- readResult{listings: []domain.Listing{got}, err: err}
	}()

	<-gated.read
	if err := h.cmd.Delete(ctx, "u1", l.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	close(gated.release)
	if r := <-done; r.err != nil {
		t.Fatalf("racing read: %v", r.err)
	}

	if h.cache.cached("listing:" + l.ID) {
		t.Fatalf("listing read before the delete was cached after it")
	}
	_, err := h.q.GetByID(ctx, l.ID)
	assertKind(t, err, domain.ErrNotFound)
}

func TestGetByID_ReadRacingUpdateIsNotCached(t *testing.T) {
	h := newHarness(t, "u1")
	ctx := context.Background()
	l := h.mustCreate(t, "u1", "uploads/images/a.png")

	gated := newGatedListings(h.listings)
	q := app.NewQueryService(gated, h.owners, h.cache, time.Minute)

	done := make(chan readResult, 1)
	go func() {
		got, err := q.GetByID(ctx, l.ID)
		done <- readResult{listings: []domain.Listing{got}, err: err}
	}()

	<-gated.read
	if _, err := h.cmd.Update(ctx, "u1", l.ID, domain.ListingPatch{Title: "Fresh", Description: "Fresh description"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	close(gated.release)
	<-done

	got, err := h.q.GetByID(ctx, l.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Title != "Fresh" {
		t.Fatalf("stale title %q survived the update", got.Title)
	}
}

func TestGetByOwner_ReadRacingDeleteIsNotCached(t *testing.T) {
	h := newHarness(t, "u1")
	ctx := context.Background()
	a := h.mustCreate(t, "u1", "uploads/images/a.png")
	b := h.mustCreate(t, "u1", "uploads/images/b.png")

	gated := newGatedListings(h.listings)
	q := app.NewQueryService(gated, h.owners, h.cache, time.Minute)

	done := make(chan readResult, 1)
	go func() {
		got, err := q.GetByOwner(ctx, "u1")
		done <- readResult{listings: got, err: err}
	}()

	<-gated.read
	if err := h.cmd.Delete(ctx, "u1", a.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	close(gated.release)
	if r := <-done; r.err != nil || len(r.listings) != 2 {
		t.Fatalf("racing read: %+v %v", r.listings, r.err)
	}

	got, err := h.q.GetByOwner(ctx, "u1")
	if err != nil {
		t.Fatalf("GetByOwner: %v", err)
	}
	if len(got) != 1 || got[0].ID != b.ID {
		t.Fatalf("got %+v, want only %s", got, b.ID)
	}
}
