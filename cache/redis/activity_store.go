package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.pilab.hu/sessiond/cache"
	"go.pilab.hu/sessiond/domain"
)

// ActivityStore implements the cache.ActivityStore interface using Redis.
// Suitable for deployments with more than one server process, where each
// process's in-memory cache would otherwise go stale independently.
type ActivityStore struct {
	client   *redis.Client
	prefix   string
	entryTTL time.Duration
}

// NewActivityStore creates a new [ActivityStore] instance.
func NewActivityStore(client *redis.Client, prefix string, entryTTL time.Duration) *ActivityStore {
	return &ActivityStore{
		client:   client,
		prefix:   prefix,
		entryTTL: entryTTL,
	}
}

// redisKey returns the Redis key for a given user's activity record.
func (r *ActivityStore) redisKey(userID string) string {
	return fmt.Sprintf("%s:activity:%s", r.prefix, userID)
}

// Get retrieves an activity record from Redis.
func (r *ActivityStore) Get(ctx context.Context, userID string) (*domain.ActivityRecord, bool) {
	payload, err := r.client.Get(ctx, r.redisKey(userID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Str("userID", userID).Msg("failed to read activity record from Redis")
		}
		return nil, false
	}

	var record domain.ActivityRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		log.Warn().Err(err).Str("userID", userID).Msg("failed to unmarshal cached activity record")
		return nil, false
	}
	return &record, true
}

// Set stores an activity record in Redis, bounded by the entry TTL.
func (r *ActivityStore) Set(ctx context.Context, record *domain.ActivityRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal activity record: %w", err)
	}

	if err := r.client.Set(ctx, r.redisKey(record.UserID), payload, r.entryTTL).Err(); err != nil {
		return fmt.Errorf("failed to set activity record in Redis: %w", err)
	}
	return nil
}

// Delete removes a user's activity record from Redis.
func (r *ActivityStore) Delete(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, r.redisKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete activity record from Redis: %w", err)
	}
	return nil
}

// Close closes the underlying Redis client.
func (r *ActivityStore) Close() {
	if err := r.client.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close Redis client")
	}
}

var _ cache.ActivityStore = (*ActivityStore)(nil)
