package cache

import (
	"context"

	"go.pilab.hu/sessiond/domain"
)

// ActivityStore is a read-through cache over activity records so token
// issuance does not hit primary storage on every login/refresh. It is an
// optimization layer only: a miss or a store failure always falls back to the
// repository, never to an authentication failure.
type ActivityStore interface {
	// Get returns the cached record for a user, or false on a miss.
	Get(ctx context.Context, userID string) (*domain.ActivityRecord, bool)
	// Set stores the record, bounded by the store's entry TTL.
	Set(ctx context.Context, record *domain.ActivityRecord) error
	// Delete drops a user's entry, e.g. on logout.
	Delete(ctx context.Context, userID string) error
	// Close releases any background resources held by the store.
	Close()
}
