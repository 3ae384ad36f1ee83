package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"sneaker_hub/internal/adapters/observability"
	"sneaker_hub/internal/domain"
)

// CommandService runs the listing mutations. Every mutation that touches both a
// listing and its owner's membership set goes through one unit of work, so the
// two are never observed out of step.
type CommandService struct {
	listings domain.ListingStore
	owners   domain.OwnerStore
	uow      domain.UnitOfWork
	geo      domain.Geocoder
	images   *ImageLifecycle
	cache    domain.Cache
	events   domain.EventPublisher
}

// NewCommandService wires the write side. cache and events may be nil.
func NewCommandService(
	l domain.ListingStore,
	o domain.OwnerStore,
	uow domain.UnitOfWork,
	geo domain.Geocoder,
	images *ImageLifecycle,
	cache domain.Cache,
	events domain.EventPublisher,
) *CommandService {
	return &CommandService{listings: l, owners: o, uow: uow, geo: geo, images: images, cache: cache, events: events}
}

func observeOp(op string, start time.Time, err *error) {
	observability.ObserveOp(op, *err, time.Since(start))
}

// Create geocodes the address, then inserts the listing and links it to its
// owner atomically. in.OwnerID must be the authenticated caller.
// On failure the uploaded image is removed, unless the commit outcome is
// unknown and the listing may still reference it.
func (s *CommandService) Create(ctx context.Context, in domain.NewListing) (out domain.Listing, err error) {
	defer observeOp("create", time.Now(), &err)
	keepImage := false
	defer func() {
		if err != nil && !keepImage {
			s.images.DeleteArtifact(ctx, in.ImagePath)
		}
	}()

	loc, err := s.geo.Resolve(ctx, in.Address)
	if err != nil {
		log.Warn().Err(err).Str("address", in.Address).Msg("geocoding failed")
		return domain.Listing{}, domain.GeocodingFailure("Could not find location for the specified address.", err)
	}

	owner, err := s.owners.FindByID(ctx, in.OwnerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Listing{}, domain.NotFound("Could not find user for provided id.")
		}
		log.Error().Err(err).Str("owner_id", in.OwnerID).Msg("owner lookup failed")
		return domain.Listing{}, domain.Transient("Creating sneaker failed, please try again.", err)
	}

	draft := domain.Listing{
		Title:       in.Title,
		Description: in.Description,
		Address:     in.Address,
		Location:    loc,
		URL:         in.URL,
		Image:       in.ImagePath,
		OwnerID:     owner.ID,
	}
	err = s.uow.WithinTx(ctx, func(tx domain.Tx) error {
		// Save first: it takes the owner row lock that the FK checks below
		// would otherwise only share, which deadlocks concurrent creates.
		if err := s.owners.Save(ctx, tx, owner); err != nil {
			return err
		}
		created, err := s.listings.Create(ctx, tx, draft)
		if err != nil {
			return err
		}
		if err := s.owners.AddListingRef(ctx, tx, owner, created.ID); err != nil {
			return err
		}
		out = created
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrCommitUnknown) {
			keepImage = true
			log.Warn().Str("image", in.ImagePath).Msg("keeping image: create commit outcome unknown")
		}
		log.Error().Err(err).Str("owner_id", owner.ID).Msg("create listing transaction failed")
		return domain.Listing{}, domain.Transient("Creating sneaker failed, please try again.", err)
	}

	log.Info().Str("listing_id", out.ID).Str("owner_id", out.OwnerID).Msg("listing created")
	s.afterCommit(ctx, domain.SubjectListingCreated, out, ownerListingsKey(out.OwnerID))
	return out, nil
}

// Update changes title and description. Only the owner may update; other
// fields are immutable through this path.
func (s *CommandService) Update(ctx context.Context, callerID, id string, patch domain.ListingPatch) (out domain.Listing, err error) {
	defer observeOp("update", time.Now(), &err)

	current, err := s.listings.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Listing{}, domain.NotFound("Could not find sneaker for this id.")
		}
		log.Error().Err(err).Str("listing_id", id).Msg("listing lookup failed")
		return domain.Listing{}, domain.Transient("Something went wrong, could not update sneaker.", err)
	}
	if !IsOwner(callerID, current) {
		log.Warn().Str("listing_id", id).Str("caller_id", callerID).Msg("update rejected: caller is not the owner")
		return domain.Listing{}, domain.Unauthorized("You are not allowed to edit this sneaker.")
	}

	out, err = s.listings.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Listing{}, domain.NotFound("Could not find sneaker for this id.")
		}
		log.Error().Err(err).Str("listing_id", id).Msg("update listing failed")
		return domain.Listing{}, domain.Transient("Something went wrong, could not update sneaker.", err)
	}

	s.afterCommit(ctx, domain.SubjectListingUpdated, out, listingKey(id), ownerListingsKey(out.OwnerID))
	return out, nil
}

// Delete removes the listing and unlinks it from its owner atomically, then
// deletes the image. Image removal never fails the call.
func (s *CommandService) Delete(ctx context.Context, callerID, id string) (err error) {
	defer observeOp("delete", time.Now(), &err)

	current, err := s.listings.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NotFound("Could not find sneaker for this id.")
		}
		log.Error().Err(err).Str("listing_id", id).Msg("listing lookup failed")
		return domain.Transient("Something went wrong, could not delete sneaker.", err)
	}
	if !IsOwner(callerID, current) {
		log.Warn().Str("listing_id", id).Str("caller_id", callerID).Msg("delete rejected: caller is not the owner")
		return domain.Unauthorized("You are not allowed to delete this sneaker.")
	}

	owner, err := s.owners.FindByID(ctx, current.OwnerID)
	if err != nil {
		log.Error().Err(err).Str("owner_id", current.OwnerID).Msg("owner lookup failed")
		return domain.Transient("Something went wrong, could not delete sneaker.", err)
	}

	imagePath := current.Image
	err = s.uow.WithinTx(ctx, func(tx domain.Tx) error {
		if err := s.owners.Save(ctx, tx, owner); err != nil {
			return err
		}
		if err := s.listings.Delete(ctx, tx, id); err != nil {
			return err
		}
		return s.owners.RemoveListingRef(ctx, tx, owner, id)
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NotFound("Could not find sneaker for this id.")
		}
		log.Error().Err(err).Str("listing_id", id).Msg("delete listing transaction failed")
		return domain.Transient("Something went wrong, could not delete sneaker.", err)
	}

	log.Info().Str("listing_id", id).Str("owner_id", owner.ID).Msg("listing deleted")
	s.images.DeleteArtifact(ctx, imagePath)
	s.afterCommit(ctx, domain.SubjectListingDeleted, current, listingKey(id), ownerListingsKey(owner.ID))
	return nil
}

// afterCommit drops stale cache entries and announces the change. Both are best
// effort and run on a context detached from the request.
func (s *CommandService) afterCommit(ctx context.Context, subject string, l domain.Listing, keys ...string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if s.cache != nil {
		for _, k := range keys {
			if err := s.cache.Invalidate(ctx, k); err != nil {
				log.Warn().Err(err).Str("key", k).Msg("cache invalidation failed")
			}
		}
	}
	if s.events != nil {
		ev := domain.ListingEvent{ListingID: l.ID, OwnerID: l.OwnerID, Title: l.Title, Image: l.Image}
		if err := s.events.Publish(ctx, subject, ev); err != nil {
			log.Warn().Err(err).Str("subject", subject).Msg("event publish failed")
		}
	}
}
