package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"go.pilab.hu/sessiond/domain"
	"go.pilab.hu/sessiond/internal/metrics"
)

// ErrInvalidCredentials is returned for any credential failure. The cause is
// deliberately not distinguished for the caller.
var ErrInvalidCredentials = errors.New("invalid email or password")

// PasswordHasher abstracts password hashing/verification.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hashedPassword, password string) error
}

// AuthService implements login and refresh on top of the tracker and the
// token service.
type AuthService struct {
	userRepo       domain.UserRepository
	tracker        *ActivityTracker
	tokenService   *TokenService
	passwordHasher PasswordHasher
}

// NewAuthService creates a new AuthService.
func NewAuthService(
	userRepo domain.UserRepository,
	tracker *ActivityTracker,
	tokenService *TokenService,
	passwordHasher PasswordHasher,
) *AuthService {
	return &AuthService{
		userRepo:       userRepo,
		tracker:        tracker,
		tokenService:   tokenService,
		passwordHasher: passwordHasher,
	}
}

// Login checks the credentials and mints a token pair sized by the user's
// activity state. The activity write is tolerated-on-failure: a login with a
// broken activity store still succeeds, with the fresh-session default.
func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		log.Warn().Err(err).Str("email", email).Msg("login: user lookup failed")
		metrics.LoginFailureTotal.Inc()
		return nil, ErrInvalidCredentials
	}

	if user.Status == domain.UserStatusLocked {
		log.Warn().Str("userID", user.ID).Msg("login: account locked")
		metrics.LoginFailureTotal.Inc()
		return nil, ErrInvalidCredentials
	}

	if err := s.passwordHasher.Verify(user.PasswordHash, password); err != nil {
		log.Warn().Str("userID", user.ID).Msg("login: password mismatch")
		metrics.LoginFailureTotal.Inc()
		return nil, ErrInvalidCredentials
	}

	// A login is itself an authenticated request; record it. On failure the
	// record stays nil and GenerateTokens falls back to the active default.
	record, _ := s.tracker.RecordActivity(ctx, user.ID, s.tokenService.now())

	pair, err := s.tokenService.GenerateTokens(user, record)
	if err != nil {
		log.Error().Err(err).Str("userID", user.ID).Msg("login: token generation failed")
		metrics.LoginFailureTotal.Inc()
		return nil, err
	}

	metrics.LoginSuccessTotal.Inc()
	return pair, nil
}

// Refresh verifies a refresh token and issues a new pair. Presenting a valid
// refresh token counts as activity, so a dormant session refreshed inside its
// window comes back as active.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokenService.ParseRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetUserByID(ctx, claims.Subject)
	if err != nil {
		log.Warn().Err(err).Str("userID", claims.Subject).Msg("refresh: user lookup failed")
		return nil, ErrTokenInvalidOrExpired
	}
	if user.Status == domain.UserStatusLocked {
		return nil, ErrTokenInvalidOrExpired
	}

	record, _ := s.tracker.RecordActivity(ctx, user.ID, s.tokenService.now())

	pair, err := s.tokenService.GenerateTokens(user, record)
	if err != nil {
		log.Error().Err(err).Str("userID", user.ID).Msg("refresh: token generation failed")
		return nil, err
	}
	return pair, nil
}
