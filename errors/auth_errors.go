package errors

import "fmt"

// AuthError represents a standardized authentication error payload.
type AuthError struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Standard error codes returned by the auth endpoints.
const (
	InvalidRequest = "invalid_request"
	InvalidGrant   = "invalid_grant"
	InvalidToken   = "invalid_token"
	ServerError    = "server_error"
)

// Common error constructors
func NewInvalidRequest(description string) *AuthError {
	return &AuthError{
		Code:        InvalidRequest,
		Description: description,
	}
}

func NewInvalidGrant(description string) *AuthError {
	return &AuthError{
		Code:        InvalidGrant,
		Description: description,
	}
}

func NewInvalidToken(description string) *AuthError {
	return &AuthError{
		Code:        InvalidToken,
		Description: description,
	}
}

func NewServerError(description string) *AuthError {
	return &AuthError{
		Code:        ServerError,
		Description: description,
	}
}
