package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.pilab.hu/sessiond/domain"
)

// memActivityRepo is an in-memory ActivityRepository with the same update
// semantics as the MongoDB implementation.
type memActivityRepo struct {
	mu      sync.Mutex
	records map[string]*domain.ActivityRecord

	failTouch error // when set, Touch fails with this error
}

func newMemActivityRepo() *memActivityRepo {
	return &memActivityRepo{records: make(map[string]*domain.ActivityRecord)}
}

func (m *memActivityRepo) GetByUserID(_ context.Context, userID string) (*domain.ActivityRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[userID]
	if !ok {
		return nil, domain.ErrActivityNotFound
	}
	cp := *record
	return &cp, nil
}

func (m *memActivityRepo) Touch(_ context.Context, userID string, now time.Time) (*domain.ActivityRecord, error) {
	if m.failTouch != nil {
		return nil, m.failTouch
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.records[userID]
	if !ok {
		record = &domain.ActivityRecord{UserID: userID}
		m.records[userID] = record
		record.LastActivity = now
		record.IsActive = true
		record.TokenExpiresAt = nil
		cp := *record
		return &cp, nil
	}

	// A verified request re-activates a dormant record; an active record
	// stays active only while the gap is inside the threshold.
	active := !record.IsActive || now.Sub(record.LastActivity) < domain.InactivityThreshold
	record.LastActivity = now
	record.IsActive = active
	if active {
		record.TokenExpiresAt = nil
	} else {
		deadline := now.Add(domain.InactivityThreshold)
		record.TokenExpiresAt = &deadline
	}
	cp := *record
	return &cp, nil
}

func (m *memActivityRepo) MarkInactiveBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var flipped int64
	for _, record := range m.records {
		if record.IsActive && record.LastActivity.Before(cutoff) {
			record.IsActive = false
			deadline := record.LastActivity.Add(domain.InactivityThreshold)
			record.TokenExpiresAt = &deadline
			flipped++
		}
	}
	return flipped, nil
}

func (m *memActivityRepo) ReconcileExpiry(_ context.Context) (domain.ReconcileResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result domain.ReconcileResult
	for _, record := range m.records {
		switch {
		case !record.IsActive && record.TokenExpiresAt == nil:
			deadline := record.LastActivity.Add(domain.InactivityThreshold)
			record.TokenExpiresAt = &deadline
			result.ExpirySet++
		case record.IsActive && record.TokenExpiresAt != nil:
			record.TokenExpiresAt = nil
			result.ExpiryCleared++
		}
	}
	return result, nil
}

func (m *memActivityRepo) CountActive(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	for _, record := range m.records {
		if record.IsActive {
			count++
		}
	}
	return count, nil
}

var _ domain.ActivityRepository = (*memActivityRepo)(nil)

// seed installs a record directly, bypassing Touch semantics.
func (m *memActivityRepo) seed(record *domain.ActivityRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *record
	m.records[record.UserID] = &cp
}

func assertInvariant(t *testing.T, record *domain.ActivityRecord) {
	t.Helper()
	if record.IsActive {
		assert.Nil(t, record.TokenExpiresAt, "active record must carry no expiry stamp")
	} else {
		require.NotNil(t, record.TokenExpiresAt, "inactive record must carry an expiry stamp")
		assert.Equal(t, record.Deadline(), *record.TokenExpiresAt)
	}
}

func TestRecordActivity_FirstSightCreatesActiveRecord(t *testing.T) {
	repo := newMemActivityRepo()
	tracker := NewActivityTracker(repo, nil)
	now := time.Now()

	record, err := tracker.RecordActivity(context.Background(), "user-1", now)
	require.NoError(t, err)

	assert.Equal(t, "user-1", record.UserID)
	assert.Equal(t, now, record.LastActivity)
	assert.True(t, record.IsActive)
	assertInvariant(t, record)
}

func TestRecordActivity_LastWriteWins(t *testing.T) {
	repo := newMemActivityRepo()
	tracker := NewActivityTracker(repo, nil)

	now1 := time.Now()
	now2 := now1.Add(time.Minute)

	_, err := tracker.RecordActivity(context.Background(), "user-1", now1)
	require.NoError(t, err)
	record, err := tracker.RecordActivity(context.Background(), "user-1", now2)
	require.NoError(t, err)

	assert.Equal(t, now2, record.LastActivity)
	assertInvariant(t, record)
}

func TestRecordActivity_RecentUserStaysActive(t *testing.T) {
	repo := newMemActivityRepo()
	tracker := NewActivityTracker(repo, nil)
	now := time.Now()

	repo.seed(&domain.ActivityRecord{
		UserID:       "user-1",
		LastActivity: now.Add(-10 * 24 * time.Hour),
		IsActive:     true,
	})

	record, err := tracker.RecordActivity(context.Background(), "user-1", now)
	require.NoError(t, err)

	assert.True(t, record.IsActive)
	assert.Nil(t, record.TokenExpiresAt)
	assert.Equal(t, now, record.LastActivity)
}

func TestRecordActivity_StaleActiveUserIsDemoted(t *testing.T) {
	repo := newMemActivityRepo()
	tracker := NewActivityTracker(repo, nil)
	now := time.Now()

	// Still marked active because no sweep has run since day 15.
	repo.seed(&domain.ActivityRecord{
		UserID:       "user-1",
		LastActivity: now.Add(-16 * 24 * time.Hour),
		IsActive:     true,
	})

	record, err := tracker.RecordActivity(context.Background(), "user-1", now)
	require.NoError(t, err)

	assert.False(t, record.IsActive)
	assertInvariant(t, record)
}

func TestRecordActivity_DormantUserReactivates(t *testing.T) {
	repo := newMemActivityRepo()
	tracker := NewActivityTracker(repo, nil)
	now := time.Now()

	stale := now.Add(-20 * 24 * time.Hour)
	deadline := stale.Add(domain.InactivityThreshold)
	repo.seed(&domain.ActivityRecord{
		UserID:         "user-1",
		LastActivity:   stale,
		IsActive:       false,
		TokenExpiresAt: &deadline,
	})

	record, err := tracker.RecordActivity(context.Background(), "user-1", now)
	require.NoError(t, err)

	assert.True(t, record.IsActive)
	assert.Nil(t, record.TokenExpiresAt)
	assert.Equal(t, now, record.LastActivity)
}

func TestRecordActivity_StorageFailureIsReportedNotFatal(t *testing.T) {
	repo := newMemActivityRepo()
	repo.failTouch = errors.New("storage unavailable")
	tracker := NewActivityTracker(repo, nil)

	record, err := tracker.RecordActivity(context.Background(), "user-1", time.Now())
	assert.Error(t, err)
	assert.Nil(t, record)
}

func TestActivityState_CacheWriteThrough(t *testing.T) {
	repo := newMemActivityRepo()
	store := newMemStore()
	tracker := NewActivityTracker(repo, store)
	now := time.Now()

	_, err := tracker.RecordActivity(context.Background(), "user-1", now)
	require.NoError(t, err)

	// The record must now be served from the cache.
	cached, ok := store.Get(context.Background(), "user-1")
	require.True(t, ok)
	assert.Equal(t, now, cached.LastActivity)

	state, err := tracker.ActivityState(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, now, state.LastActivity)
}

func TestActivityState_UnknownUserIsNilNotError(t *testing.T) {
	tracker := NewActivityTracker(newMemActivityRepo(), nil)

	state, err := tracker.ActivityState(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestForget_DropsCacheEntryOnly(t *testing.T) {
	repo := newMemActivityRepo()
	store := newMemStore()
	tracker := NewActivityTracker(repo, store)

	_, err := tracker.RecordActivity(context.Background(), "user-1", time.Now())
	require.NoError(t, err)

	tracker.Forget(context.Background(), "user-1")

	_, ok := store.Get(context.Background(), "user-1")
	assert.False(t, ok)

	// The persisted record survives.
	_, err = repo.GetByUserID(context.Background(), "user-1")
	assert.NoError(t, err)
}

// memStore is a minimal ActivityStore for tests.
type memStore struct {
	mu      sync.Mutex
	entries map[string]*domain.ActivityRecord
}

func newMemStore() *memStore {
	return &memStore{entries: make(map[string]*domain.ActivityRecord)}
}

func (s *memStore) Get(_ context.Context, userID string) (*domain.ActivityRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.entries[userID]
	return record, ok
}

func (s *memStore) Set(_ context.Context, record *domain.ActivityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[record.UserID] = record
	return nil
}

func (s *memStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, userID)
	return nil
}

func (s *memStore) Close() {}
