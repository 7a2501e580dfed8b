package services

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidKeyID = errors.New("invalid key id")

// Key ids for the two signing secrets. Access and refresh tokens are always
// signed and verified with separate keys.
const (
	AccessKeyID  = "access"
	RefreshKeyID = "refresh"
)

type TokenSignerFunc func(claims jwt.Claims) (string, error)

// TokenSigner holds the symmetric signing keys, addressed by key id.
type TokenSigner struct {
	keys map[string]TokenSignerFunc
}

// NewTokenSigner creates a new TokenSigner instance
func NewTokenSigner() *TokenSigner {
	return &TokenSigner{
		keys: make(map[string]TokenSignerFunc),
	}
}

// AddKeySigner registers an HS256 signer for the given key id.
func (s *TokenSigner) AddKeySigner(keyID, secretKey string) {
	s.keys[keyID] = func(claims jwt.Claims) (string, error) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

		tokenString, err := token.SignedString([]byte(secretKey))
		if err != nil {
			return "", fmt.Errorf("failed to sign token: %w", err)
		}

		return tokenString, nil
	}
}

// Sign signs the claims with the key registered under keyID.
func (s *TokenSigner) Sign(claims jwt.Claims, keyID string) (string, error) {
	if signer, ok := s.keys[keyID]; ok {
		return signer(claims)
	}

	return "", ErrInvalidKeyID
}
