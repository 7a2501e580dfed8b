package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.pilab.hu/sessiond/domain"
)

func TestLifetimePolicy_ActiveTTLsAreFixed(t *testing.T) {
	policy := NewLifetimePolicy()
	now := time.Now()

	// The fixed TTLs apply regardless of how old the last activity is.
	lastActivities := []time.Time{
		now,
		now.Add(-10 * 24 * time.Hour),
		now.Add(-100 * 24 * time.Hour),
		{},
	}
	for _, last := range lastActivities {
		assert.Equal(t, DefaultActiveAccessTTL, policy.AccessTTL(true, last, now))
		assert.Equal(t, DefaultActiveRefreshTTL, policy.RefreshTTL(true, last, now))
	}
}

func TestLifetimePolicy_InactiveTTLIsRemainingWindow(t *testing.T) {
	policy := NewLifetimePolicy()
	now := time.Now()

	last := now.Add(-10 * 24 * time.Hour)
	want := 5 * 24 * time.Hour // 15d threshold - 10d elapsed

	assert.Equal(t, want, policy.AccessTTL(false, last, now))
	assert.Equal(t, want, policy.RefreshTTL(false, last, now))
}

func TestLifetimePolicy_FloorNeverReturnsNonPositive(t *testing.T) {
	policy := NewLifetimePolicy()
	now := time.Now()

	testCases := []struct {
		name string
		last time.Time
	}{
		{name: "one hour past threshold", last: now.Add(-domain.InactivityThreshold - time.Hour)},
		{name: "exactly at threshold", last: now.Add(-domain.InactivityThreshold)},
		{name: "years past threshold", last: now.Add(-1000 * 24 * time.Hour)},
		{name: "inside the floor", last: now.Add(-domain.InactivityThreshold + 30*time.Second)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := policy.AccessTTL(false, tc.last, now)
			assert.Equal(t, DefaultMinTTL, got)
			assert.Positive(t, got)
		})
	}
}

func TestLifetimePolicy_RemainingAboveFloorIsExact(t *testing.T) {
	policy := NewLifetimePolicy()
	now := time.Now()

	last := now.Add(-domain.InactivityThreshold + 2*time.Minute)
	assert.Equal(t, 2*time.Minute, policy.RefreshTTL(false, last, now))
}
