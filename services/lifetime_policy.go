package services

import (
	"time"

	"go.pilab.hu/sessiond/domain"
)

// Default TTLs for active sessions and the floor applied to sessions that
// have already coasted past their window.
const (
	DefaultActiveAccessTTL  = 30 * time.Minute
	DefaultActiveRefreshTTL = 7 * 24 * time.Hour
	DefaultMinTTL           = 60 * time.Second
)

// LifetimePolicy computes token lifetimes from activity state. It is pure
// clock arithmetic: active users get the fixed TTLs, dormant users get
// whatever remains of their session window, floored so the signing library is
// never handed a zero or negative lifetime.
type LifetimePolicy struct {
	ActiveAccessTTL  time.Duration
	ActiveRefreshTTL time.Duration
	MinTTL           time.Duration
}

// NewLifetimePolicy returns a policy with the default TTLs.
func NewLifetimePolicy() *LifetimePolicy {
	return &LifetimePolicy{
		ActiveAccessTTL:  DefaultActiveAccessTTL,
		ActiveRefreshTTL: DefaultActiveRefreshTTL,
		MinTTL:           DefaultMinTTL,
	}
}

// AccessTTL computes the access-token lifetime for the given activity state.
func (p *LifetimePolicy) AccessTTL(isActive bool, lastActivity, now time.Time) time.Duration {
	if isActive {
		return p.ActiveAccessTTL
	}
	return p.remaining(lastActivity, now)
}

// RefreshTTL computes the refresh-token lifetime for the given activity state.
func (p *LifetimePolicy) RefreshTTL(isActive bool, lastActivity, now time.Time) time.Duration {
	if isActive {
		return p.ActiveRefreshTTL
	}
	return p.remaining(lastActivity, now)
}

// remaining returns the time left until the session window closes. A window
// already past (including clock skew pushing it negative) yields the floor
// rather than an error: the session dies almost immediately, on its own.
func (p *LifetimePolicy) remaining(lastActivity, now time.Time) time.Duration {
	rem := lastActivity.Add(domain.InactivityThreshold).Sub(now)
	if rem < p.MinTTL {
		return p.MinTTL
	}
	return rem
}
