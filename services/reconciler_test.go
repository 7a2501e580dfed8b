package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.pilab.hu/sessiond/domain"
)

func newTestReconciler(repo domain.ActivityRepository, now time.Time) *Reconciler {
	r := NewReconciler(repo, time.Hour, 0)
	r.now = func() time.Time { return now }
	return r
}

func TestRunOnce_FlipsStaleActiveRecords(t *testing.T) {
	repo := newMemActivityRepo()
	now := time.Now()

	// 16 days dormant, no requests since: past the 15 day threshold.
	stale := now.Add(-16 * 24 * time.Hour)
	repo.seed(&domain.ActivityRecord{
		UserID:       "dormant",
		LastActivity: stale,
		IsActive:     true,
	})
	// 10 days old: inside the window, must be untouched.
	repo.seed(&domain.ActivityRecord{
		UserID:       "recent",
		LastActivity: now.Add(-10 * 24 * time.Hour),
		IsActive:     true,
	})

	require.NoError(t, newTestReconciler(repo, now).RunOnce(context.Background()))

	dormant, err := repo.GetByUserID(context.Background(), "dormant")
	require.NoError(t, err)
	assert.False(t, dormant.IsActive)
	require.NotNil(t, dormant.TokenExpiresAt)
	assert.Equal(t, stale.Add(domain.InactivityThreshold), *dormant.TokenExpiresAt)
	// The sweep derives the stamp from the record's own last activity.
	assert.Equal(t, stale, dormant.LastActivity)

	recent, err := repo.GetByUserID(context.Background(), "recent")
	require.NoError(t, err)
	assert.True(t, recent.IsActive)
	assert.Nil(t, recent.TokenExpiresAt)
}

func TestRunOnce_Idempotent(t *testing.T) {
	repo := newMemActivityRepo()
	now := time.Now()

	repo.seed(&domain.ActivityRecord{
		UserID:       "dormant",
		LastActivity: now.Add(-16 * 24 * time.Hour),
		IsActive:     true,
	})
	repo.seed(&domain.ActivityRecord{
		UserID:       "recent",
		LastActivity: now.Add(-time.Hour),
		IsActive:     true,
	})

	reconciler := newTestReconciler(repo, now)
	require.NoError(t, reconciler.RunOnce(context.Background()))

	first := snapshot(t, repo)

	// Same clock, no new activity: the second run must change nothing.
	require.NoError(t, reconciler.RunOnce(context.Background()))
	assert.Equal(t, first, snapshot(t, repo))
}

func TestRunOnce_RepairsInvariantBothDirections(t *testing.T) {
	repo := newMemActivityRepo()
	now := time.Now()

	// Inactive but missing its expiry stamp.
	repo.seed(&domain.ActivityRecord{
		UserID:       "unstamped",
		LastActivity: now.Add(-20 * 24 * time.Hour),
		IsActive:     false,
	})
	// Re-activated by the tracker but with a stale stamp left behind.
	staleDeadline := now.Add(-time.Hour)
	repo.seed(&domain.ActivityRecord{
		UserID:         "stale-stamp",
		LastActivity:   now.Add(-time.Minute),
		IsActive:       true,
		TokenExpiresAt: &staleDeadline,
	})

	require.NoError(t, newTestReconciler(repo, now).RunOnce(context.Background()))

	unstamped, err := repo.GetByUserID(context.Background(), "unstamped")
	require.NoError(t, err)
	require.NotNil(t, unstamped.TokenExpiresAt)
	assert.Equal(t, unstamped.Deadline(), *unstamped.TokenExpiresAt)

	repaired, err := repo.GetByUserID(context.Background(), "stale-stamp")
	require.NoError(t, err)
	assert.True(t, repaired.IsActive)
	assert.Nil(t, repaired.TokenExpiresAt)
}

func TestRunOnce_TrackerWinsOverSweep(t *testing.T) {
	repo := newMemActivityRepo()
	tracker := NewActivityTracker(repo, nil)
	now := time.Now()

	repo.seed(&domain.ActivityRecord{
		UserID:       "user-1",
		LastActivity: now.Add(-16 * 24 * time.Hour),
		IsActive:     true,
	})

	// The user comes back just before the sweep runs.
	_, err := tracker.RecordActivity(context.Background(), "user-1", now)
	require.NoError(t, err)

	require.NoError(t, newTestReconciler(repo, now).RunOnce(context.Background()))

	record, err := repo.GetByUserID(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, record.IsActive)
	assert.Nil(t, record.TokenExpiresAt)
}

func TestSchedulerStop(t *testing.T) {
	repo := newMemActivityRepo()
	reconciler := NewReconciler(repo, time.Hour, time.Hour)

	scheduler := reconciler.Start(context.Background())

	done := make(chan struct{})
	go func() {
		scheduler.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func snapshot(t *testing.T, repo *memActivityRepo) map[string]domain.ActivityRecord {
	t.Helper()
	repo.mu.Lock()
	defer repo.mu.Unlock()

	out := make(map[string]domain.ActivityRecord, len(repo.records))
	for id, record := range repo.records {
		cp := *record
		if record.TokenExpiresAt != nil {
			deadline := *record.TokenExpiresAt
			cp.TokenExpiresAt = &deadline
		}
		out[id] = cp
	}
	return out
}
