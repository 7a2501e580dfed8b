package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"go.pilab.hu/sessiond/domain"
	"go.pilab.hu/sessiond/services"
)

// Context keys under which the middleware stores the verified claims and the
// updated activity record.
const (
	claimsContextKey   = "_auth_claims"
	activityContextKey = "_auth_activity"
)

// Authenticator is the Bearer-token gate for authenticated routes. After the
// signature and expiry checks succeed it records the request in the activity
// tracker, before the request proceeds.
type Authenticator struct {
	tokenService *services.TokenService
	tracker      *services.ActivityTracker
}

// NewAuthenticator creates a new Authenticator.
func NewAuthenticator(tokenService *services.TokenService, tracker *services.ActivityTracker) *Authenticator {
	return &Authenticator{
		tokenService: tokenService,
		tracker:      tracker,
	}
}

// Middleware returns the echo middleware enforcing Bearer authentication.
func (a *Authenticator) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header format: expected Bearer token")
			}

			claims, err := a.tokenService.ParseAccessToken(parts[1])
			if err != nil {
				if errors.Is(err, services.ErrTokenInvalidOrExpired) {
					return echo.NewHTTPError(http.StatusUnauthorized, "token expired or invalid")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			// The token is verified; the request counts as activity. A failed
			// write is tolerated: the request proceeds with activity unknown.
			record, trackErr := a.tracker.RecordActivity(c.Request().Context(), claims.Subject, time.Now())
			if trackErr != nil {
				log.Warn().Err(trackErr).Str("userID", claims.Subject).Msg("request proceeds without updated activity state")
			} else {
				c.Set(activityContextKey, record)
			}

			c.Set(claimsContextKey, claims)
			return next(c)
		}
	}
}

// ClaimsFromContext retrieves the verified token claims stored by the middleware.
func ClaimsFromContext(c echo.Context) (*services.TokenClaims, bool) {
	claims, ok := c.Get(claimsContextKey).(*services.TokenClaims)
	return claims, ok
}

// ActivityFromContext retrieves the activity record stored by the middleware.
// Absent when the activity update failed for this request.
func ActivityFromContext(c echo.Context) (*domain.ActivityRecord, bool) {
	record, ok := c.Get(activityContextKey).(*domain.ActivityRecord)
	return record, ok
}
