package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"go.pilab.hu/sessiond/domain"
)

// MemoryActivityStore implements ActivityStore using ttlcache.
type MemoryActivityStore struct {
	cache *ttlcache.Cache[string, *domain.ActivityRecord]
}

// NewMemoryActivityStore creates a new in-memory activity store with automatic
// expiry of stale entries.
//
//nolint:ireturn
func NewMemoryActivityStore(entryTTL time.Duration) ActivityStore {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, *domain.ActivityRecord](entryTTL),
		ttlcache.WithDisableTouchOnHit[string, *domain.ActivityRecord](),
	)

	// Start the expiry loop
	go cache.Start()

	return &MemoryActivityStore{
		cache: cache,
	}
}

// Get implements ActivityStore.Get.
func (s *MemoryActivityStore) Get(_ context.Context, userID string) (*domain.ActivityRecord, bool) {
	item := s.cache.Get(userID)
	if item == nil {
		return nil, false
	}
	return item.Value(), true
}

// Set implements ActivityStore.Set.
func (s *MemoryActivityStore) Set(_ context.Context, record *domain.ActivityRecord) error {
	s.cache.Set(record.UserID, record, ttlcache.DefaultTTL)
	return nil
}

// Delete implements ActivityStore.Delete.
func (s *MemoryActivityStore) Delete(_ context.Context, userID string) error {
	s.cache.Delete(userID)
	return nil
}

// Close stops the expiry loop.
func (s *MemoryActivityStore) Close() {
	s.cache.Stop()
}

var _ ActivityStore = (*MemoryActivityStore)(nil)
