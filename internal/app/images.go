package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"sneaker_hub/internal/adapters/observability"
	"sneaker_hub/internal/domain"
)

// ImageLifecycle removes the stored image of a listing once the listing is gone.
type ImageLifecycle struct {
	store   domain.ArtifactStore
	timeout time.Duration
}

func NewImageLifecycle(store domain.ArtifactStore, timeout time.Duration) *ImageLifecycle {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ImageLifecycle{store: store, timeout: timeout}
}

// DeleteArtifact is fire-and-forget: it runs on a context detached from the
// caller's cancellation, and failures are logged and counted but never returned.
func (m *ImageLifecycle) DeleteArtifact(ctx context.Context, path string) {
	if m == nil || m.store == nil || path == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
	defer cancel()

	if err := m.store.Delete(ctx, path); err != nil {
		observability.ObserveArtifactCleanup("failed")
		log.Warn().
			Err(err).
			Str("path", path).
			Str("kind", string(domain.ErrArtifactCleanup)).
			Msg("image cleanup failed")
		return
	}
	observability.ObserveArtifactCleanup("ok")
}
