package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.pilab.hu/sessiond/domain"
)

// memUserRepo is an in-memory UserRepository for tests.
type memUserRepo struct {
	users map[string]*domain.User // by ID
}

func newMemUserRepo(users ...*domain.User) *memUserRepo {
	repo := &memUserRepo{users: make(map[string]*domain.User)}
	for _, user := range users {
		repo.users[user.ID] = user
	}
	return repo
}

func (m *memUserRepo) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	if user, ok := m.users[id]; ok {
		return user, nil
	}
	return nil, domain.ErrUserNotFound
}

func (m *memUserRepo) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *memUserRepo) CreateUser(_ context.Context, user *domain.User) error {
	m.users[user.ID] = user
	return nil
}

// plainHasher treats the stored hash as the plaintext password. Only for tests.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return password, nil }

func (plainHasher) Verify(hashedPassword, password string) error {
	if hashedPassword != password {
		return errors.New("password mismatch")
	}
	return nil
}

func newTestAuthService(now time.Time, users ...*domain.User) (*AuthService, *memActivityRepo) {
	activityRepo := newMemActivityRepo()
	tracker := NewActivityTracker(activityRepo, nil)
	tokenService := newTestTokenService(now)
	return NewAuthService(newMemUserRepo(users...), tracker, tokenService, plainHasher{}), activityRepo
}

func TestLogin_Success(t *testing.T) {
	now := time.Now()
	user := testUser()
	user.PasswordHash = "hunter2"
	svc, activityRepo := newTestAuthService(now, user)

	pair, err := svc.Login(context.Background(), user.Email, "hunter2")
	require.NoError(t, err)

	assert.True(t, pair.IsActive)
	assert.Equal(t, int(DefaultActiveAccessTTL.Seconds()), pair.ExpiresIn)

	// The login itself must have created the activity record.
	record, err := activityRepo.GetByUserID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.True(t, record.IsActive)
}

func TestLogin_WrongPassword(t *testing.T) {
	user := testUser()
	user.PasswordHash = "hunter2"
	svc, _ := newTestAuthService(time.Now(), user)

	_, err := svc.Login(context.Background(), user.Email, "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_UnknownUser(t *testing.T) {
	svc, _ := newTestAuthService(time.Now())

	_, err := svc.Login(context.Background(), "nobody@example.com", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_LockedAccount(t *testing.T) {
	user := testUser()
	user.PasswordHash = "hunter2"
	user.Status = domain.UserStatusLocked
	svc, _ := newTestAuthService(time.Now(), user)

	_, err := svc.Login(context.Background(), user.Email, "hunter2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_SurvivesActivityStorageFailure(t *testing.T) {
	now := time.Now()
	user := testUser()
	user.PasswordHash = "hunter2"
	svc, activityRepo := newTestAuthService(now, user)
	activityRepo.failTouch = errors.New("storage unavailable")

	pair, err := svc.Login(context.Background(), user.Email, "hunter2")
	require.NoError(t, err)

	// Activity unknown: the fresh-session default applies.
	assert.True(t, pair.IsActive)
}

func TestRefresh_Success(t *testing.T) {
	now := time.Now()
	user := testUser()
	user.PasswordHash = "hunter2"
	svc, _ := newTestAuthService(now, user)

	pair, err := svc.Login(context.Background(), user.Email, "hunter2")
	require.NoError(t, err)

	refreshed, err := svc.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.True(t, refreshed.IsActive)
	assert.NotEmpty(t, refreshed.AccessToken)
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	now := time.Now()
	user := testUser()
	user.PasswordHash = "hunter2"
	svc, _ := newTestAuthService(now, user)

	pair, err := svc.Login(context.Background(), user.Email, "hunter2")
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenInvalidOrExpired)
}

func TestRefresh_UnknownSubject(t *testing.T) {
	now := time.Now()
	svc, _ := newTestAuthService(now)

	// Mint a refresh token for a user the repository does not know.
	ghost := testUser()
	ghostPair, err := newTestTokenService(now).GenerateTokens(ghost, nil)
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), ghostPair.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenInvalidOrExpired)
}
