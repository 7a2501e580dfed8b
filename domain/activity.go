package domain

import (
	"context"
	"errors"
	"time"
)

// InactivityThreshold is the dormancy window. A user whose most recent
// authenticated request is older than this is considered inactive, and their
// tokens stop being renewed on the fixed TTLs. The tracker, the lifetime
// policy and the reconciler all derive state from this single constant.
const InactivityThreshold = 15 * 24 * time.Hour

var ErrActivityNotFound = errors.New("activity record not found")

// ActivityRecord is the persisted per-user activity state. One record per
// user, created on the first authenticated request and never deleted here.
//
// Invariant: IsActive implies TokenExpiresAt == nil; !IsActive implies
// TokenExpiresAt == LastActivity + InactivityThreshold.
type ActivityRecord struct {
	UserID         string     `bson:"_id"                        json:"user_id"`
	LastActivity   time.Time  `bson:"last_activity"              json:"last_activity"`
	IsActive       bool       `bson:"is_active"                  json:"is_active"`
	TokenExpiresAt *time.Time `bson:"token_expires_at,omitempty" json:"token_expires_at,omitempty"`
}

// Fresh reports whether the record's last activity is still within the
// inactivity threshold at the given time. This is the single activity
// predicate; callers must not re-derive the threshold arithmetic.
func (r *ActivityRecord) Fresh(now time.Time) bool {
	return now.Sub(r.LastActivity) < InactivityThreshold
}

// Deadline returns the natural end of the session window, the instant the
// record crosses from active to inactive absent further requests.
func (r *ActivityRecord) Deadline() time.Time {
	return r.LastActivity.Add(InactivityThreshold)
}

// ReconcileResult reports what an invariant-repair pass changed.
type ReconcileResult struct {
	// ExpirySet counts inactive records that were missing their expiry stamp.
	ExpirySet int64
	// ExpiryCleared counts active records that still carried an expiry stamp.
	ExpiryCleared int64
}

// Changed reports whether the pass modified anything.
func (r ReconcileResult) Changed() bool {
	return r.ExpirySet > 0 || r.ExpiryCleared > 0
}

// ActivityRepository is the storage contract for activity records.
type ActivityRepository interface {
	// GetByUserID returns the record for a user, or ErrActivityNotFound.
	GetByUserID(ctx context.Context, userID string) (*ActivityRecord, error)

	// Touch records an authenticated request for a user at the given time and
	// returns the resulting record. The record is created on first sight.
	// The update must be a single atomic statement: the derived
	// IsActive/TokenExpiresAt pair is recomputed from the final LastActivity,
	// never written independently of it.
	Touch(ctx context.Context, userID string, now time.Time) (*ActivityRecord, error)

	// MarkInactiveBefore flips every still-active record whose LastActivity is
	// older than cutoff to inactive, stamping TokenExpiresAt from the record's
	// own LastActivity. One set-based conditional update, not a per-record
	// loop. Returns the number of records flipped.
	MarkInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// ReconcileExpiry repairs the IsActive/TokenExpiresAt invariant in both
	// directions across all records.
	ReconcileExpiry(ctx context.Context) (ReconcileResult, error)

	// CountActive returns the number of records currently marked active.
	CountActive(ctx context.Context) (int64, error)
}
