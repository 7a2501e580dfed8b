package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"go.pilab.hu/sessiond/cache"
	"go.pilab.hu/sessiond/domain"
	"go.pilab.hu/sessiond/internal/metrics"
)

// ActivityTracker maintains the per-user activity record. It runs inline in
// the request path, after token verification, so it must stay cheap: one
// atomic storage statement plus a cache write-through.
type ActivityTracker struct {
	repo  domain.ActivityRepository
	store cache.ActivityStore
}

// NewActivityTracker creates a new ActivityTracker. The store may be nil, in
// which case every read goes to the repository.
func NewActivityTracker(repo domain.ActivityRepository, store cache.ActivityStore) *ActivityTracker {
	return &ActivityTracker{
		repo:  repo,
		store: store,
	}
}

// RecordActivity records an authenticated request for the user at the given
// time and returns the updated record. Storage failures are logged and
// returned, but callers on the authentication path must treat them as
// "activity unknown", never as an authentication failure: identity
// verification does not fail because a bookkeeping write failed.
func (t *ActivityTracker) RecordActivity(ctx context.Context, userID string, now time.Time) (*domain.ActivityRecord, error) {
	record, err := t.repo.Touch(ctx, userID, now)
	if err != nil {
		metrics.ActivityUpdateFailuresTotal.Inc()
		log.Warn().Err(err).Str("userID", userID).Msg("activity update failed; proceeding without activity state")
		return nil, err
	}
	metrics.ActivityUpdatesTotal.Inc()

	if t.store != nil {
		if cacheErr := t.store.Set(ctx, record); cacheErr != nil {
			log.Warn().Err(cacheErr).Str("userID", userID).Msg("failed to cache activity record")
		}
	}

	return record, nil
}

// ActivityState returns the user's current activity record, preferring the
// cache. A user with no record yet yields (nil, nil): the caller's defaulting
// rule (no prior activity means active) applies.
func (t *ActivityTracker) ActivityState(ctx context.Context, userID string) (*domain.ActivityRecord, error) {
	if t.store != nil {
		if record, ok := t.store.Get(ctx, userID); ok {
			return record, nil
		}
	}

	record, err := t.repo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrActivityNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if t.store != nil {
		if cacheErr := t.store.Set(ctx, record); cacheErr != nil {
			log.Warn().Err(cacheErr).Str("userID", userID).Msg("failed to cache activity record")
		}
	}

	return record, nil
}

// Forget drops the user's cached activity entry. The persisted record is
// untouched; this subsystem never deletes it.
func (t *ActivityTracker) Forget(ctx context.Context, userID string) {
	if t.store == nil {
		return
	}
	if err := t.store.Delete(ctx, userID); err != nil {
		log.Warn().Err(err).Str("userID", userID).Msg("failed to drop cached activity record")
	}
}
