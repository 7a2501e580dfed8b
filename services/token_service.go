package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.pilab.hu/sessiond/domain"
	"go.pilab.hu/sessiond/internal/metrics"
)

// ErrTokenInvalidOrExpired is returned for any token that fails verification,
// whether malformed, tampered with, or past its expiry.
var ErrTokenInvalidOrExpired = errors.New("token invalid or expired")

// TokenClaims is the signed payload carried by both token types. The shape is
// fixed and exhaustively typed; optional activity state lives in TokenPair,
// never in the signed claims.
type TokenClaims struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	GroupID  string `json:"group_id,omitempty"`
	jwt.RegisteredClaims
}

// TokenPair is what login and refresh hand back to the client.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int       `json:"expires_in"` // Access-token lifetime, whole seconds
	IsActive     bool      `json:"is_active"`
	LastActivity time.Time `json:"last_activity"`
}

// TokenService mints and verifies access/refresh token pairs. Lifetimes come
// from the LifetimePolicy; signing failures are hard errors since an unsigned
// token must never be issued.
type TokenService struct {
	signer        *TokenSigner
	policy        *LifetimePolicy
	issuer        string
	accessSecret  []byte
	refreshSecret []byte

	now func() time.Time
}

// NewTokenService creates a new TokenService instance.
func NewTokenService(issuer, accessSecret, refreshSecret string, policy *LifetimePolicy) *TokenService {
	signer := NewTokenSigner()
	signer.AddKeySigner(AccessKeyID, accessSecret)
	signer.AddKeySigner(RefreshKeyID, refreshSecret)

	return &TokenService{
		signer:        signer,
		policy:        policy,
		issuer:        issuer,
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		now:           time.Now,
	}
}

func (s *TokenService) buildClaims(user *domain.User, now time.Time, ttl time.Duration) *TokenClaims {
	return &TokenClaims{
		Username: user.Username,
		Email:    user.Email,
		GroupID:  user.GroupID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
}

// GenerateTokens builds a signed access/refresh pair for the user, with
// lifetimes derived from the activity state. A nil activity state means a
// fresh session with no prior record and is treated as active.
func (s *TokenService) GenerateTokens(user *domain.User, activity *domain.ActivityRecord) (*TokenPair, error) {
	now := s.now()

	isActive, lastActivity := true, now
	if activity != nil {
		isActive = activity.IsActive
		lastActivity = activity.LastActivity
	}

	accessTTL := s.policy.AccessTTL(isActive, lastActivity, now)
	refreshTTL := s.policy.RefreshTTL(isActive, lastActivity, now)

	accessToken, err := s.signer.Sign(s.buildClaims(user, now, accessTTL), AccessKeyID)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refreshToken, err := s.signer.Sign(s.buildClaims(user, now, refreshTTL), RefreshKeyID)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	metrics.TokensIssuedTotal.Inc()

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(accessTTL.Seconds()),
		IsActive:     isActive,
		LastActivity: lastActivity,
	}, nil
}

// ParseAccessToken verifies an access token and returns its claims.
func (s *TokenService) ParseAccessToken(tokenValue string) (*TokenClaims, error) {
	return s.parse(tokenValue, s.accessSecret)
}

// ParseRefreshToken verifies a refresh token and returns its claims.
func (s *TokenService) ParseRefreshToken(tokenValue string) (*TokenClaims, error) {
	return s.parse(tokenValue, s.refreshSecret)
}

func (s *TokenService) parse(tokenValue string, secret []byte) (*TokenClaims, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenValue, claims,
		func(_ *jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalidOrExpired, err)
	}
	if !token.Valid {
		return nil, ErrTokenInvalidOrExpired
	}
	return claims, nil
}
