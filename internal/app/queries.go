package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"sneaker_hub/internal/domain"
)

func listingKey(id string) string       { return "listing:" + id }
func ownerListingsKey(id string) string { return "owner-listings:" + id }

// QueryService serves listing reads, through the cache when one is configured.
type QueryService struct {
	listings domain.ListingStore
	owners   domain.OwnerStore
	cache    domain.Cache
	cacheTTL time.Duration
}

// NewQueryService builds the read side. c may be nil to disable caching.
func NewQueryService(l domain.ListingStore, o domain.OwnerStore, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{listings: l, owners: o, cache: c, cacheTTL: ttl}
}

// lookup checks the cache for key. On a miss it returns the generation to fill
// with; ok is false for the fill when the cache is off or unreadable.
func (s *QueryService) lookup(ctx context.Context, key string, dst any) (hit bool, gen string, ok bool) {
	if s.cache == nil {
		return false, "", false
	}
	gen, err := s.cache.Generation(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache generation read failed")
		return false, "", false
	}
	if hit, _ := s.cache.Get(ctx, key, dst); hit {
		return true, "", false
	}
	return false, gen, true
}

func (s *QueryService) fill(ctx context.Context, key, gen string, v any) {
	if _, err := s.cache.SetIfGeneration(ctx, key, gen, v, int(s.cacheTTL.Seconds())); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache fill failed")
	}
}

// GetByID returns one listing, or NotFound when no listing has that id.
func (s *QueryService) GetByID(ctx context.Context, id string) (l domain.Listing, err error) {
	defer observeOp("get_by_id", time.Now(), &err)

	key := listingKey(id)
	hit, gen, canFill := s.lookup(ctx, key, &l)
	if hit {
		return l, nil
	}

	l, err = s.listings.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Listing{}, domain.NotFound("Could not find sneaker for the provided id.")
		}
		log.Error().Err(err).Str("listing_id", id).Msg("listing lookup failed")
		return domain.Listing{}, domain.Transient("Something went wrong, could not find a sneaker.", err)
	}

	if canFill {
		s.fill(ctx, key, gen, l)
	}
	return l, nil
}

// GetByOwner returns the listings in the owner's membership set. An owner with no
// listings is reported as NotFound, like a missing owner, with a different message.
func (s *QueryService) GetByOwner(ctx context.Context, ownerID string) (out []domain.Listing, err error) {
	defer observeOp("get_by_owner", time.Now(), &err)

	key := ownerListingsKey(ownerID)
	hit, gen, canFill := s.lookup(ctx, key, &out)
	if hit && len(out) > 0 {
		return out, nil
	}

	owner, err := s.owners.FindByID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFound("Could not find user for provided id.")
		}
		log.Error().Err(err).Str("owner_id", ownerID).Msg("owner lookup failed")
		return nil, domain.Transient("Fetching sneakers failed, please try again later.", err)
	}
	if len(owner.Listings) == 0 {
		return nil, domain.NotFound("Could not find sneakers for the provided user id.")
	}

	all, err := s.listings.FindAllByOwner(ctx, ownerID)
	if err != nil {
		log.Error().Err(err).Str("owner_id", ownerID).Msg("owner listings lookup failed")
		return nil, domain.Transient("Fetching sneakers failed, please try again later.", err)
	}
	out = make([]domain.Listing, 0, len(all))
	for _, l := range all {
		if owner.HasListing(l.ID) {
			out = append(out, l)
		}
	}
	if len(out) == 0 {
		return nil, domain.NotFound("Could not find sneakers for the provided user id.")
	}

	if canFill {
		s.fill(ctx, key, gen, out)
	}
	return out, nil
}
