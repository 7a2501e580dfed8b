//nolint:varnamelen
package echo

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	autherrors "go.pilab.hu/sessiond/errors"
	"go.pilab.hu/sessiond/middleware"
	"go.pilab.hu/sessiond/services"
)

// AuthAPI struct to hold dependencies.
type AuthAPI struct {
	authService *services.AuthService
	tracker     *services.ActivityTracker
	authn       *middleware.Authenticator
}

// NewAuthAPI initializes the auth API.
func NewAuthAPI(
	authService *services.AuthService,
	tracker *services.ActivityTracker,
	authn *middleware.Authenticator,
) *AuthAPI {
	return &AuthAPI{
		authService: authService,
		tracker:     tracker,
		authn:       authn,
	}
}

// RegisterRoutes registers the auth routes.
func (a *AuthAPI) RegisterRoutes(e *echo.Echo) {
	e.POST("/auth/login", a.LoginHandler)
	e.POST("/auth/refresh", a.RefreshHandler)

	protected := e.Group("/auth", a.authn.Middleware())
	protected.GET("/session", a.SessionHandler)
	protected.POST("/logout", a.LogoutHandler)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// LoginHandler authenticates email+password and returns a token pair whose
// lifetimes reflect the caller's activity state.
func (a *AuthAPI) LoginHandler(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, autherrors.NewInvalidRequest("Malformed request body"))
	}
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, autherrors.NewInvalidRequest("Missing email or password"))
	}

	pair, err := a.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			return c.JSON(http.StatusUnauthorized, autherrors.NewInvalidGrant("Invalid email or password"))
		}
		// Signing failure: never issue a token with a wrong lifetime, the
		// caller sees a generic authentication error and must retry.
		log.Error().Err(err).Msg("login failed")
		return c.JSON(http.StatusUnauthorized, autherrors.NewServerError("Could not complete authentication"))
	}

	return c.JSON(http.StatusOK, pair)
}

// RefreshHandler exchanges a valid refresh token for a new pair.
func (a *AuthAPI) RefreshHandler(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, autherrors.NewInvalidRequest("Malformed request body"))
	}
	if req.RefreshToken == "" {
		return c.JSON(http.StatusBadRequest, autherrors.NewInvalidRequest("Missing refresh_token"))
	}

	pair, err := a.authService.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, services.ErrTokenInvalidOrExpired) {
			return c.JSON(http.StatusUnauthorized, autherrors.NewInvalidToken("Refresh token invalid or expired"))
		}
		log.Error().Err(err).Msg("refresh failed")
		return c.JSON(http.StatusUnauthorized, autherrors.NewServerError("Could not complete authentication"))
	}

	return c.JSON(http.StatusOK, pair)
}

// SessionHandler returns the caller's current activity record.
func (a *AuthAPI) SessionHandler(c echo.Context) error {
	if record, ok := middleware.ActivityFromContext(c); ok {
		return c.JSON(http.StatusOK, record)
	}

	// The middleware's activity write failed for this request; fall back to a
	// read so the endpoint still answers.
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, autherrors.NewInvalidToken("No authenticated session"))
	}
	record, err := a.tracker.ActivityState(c.Request().Context(), claims.Subject)
	if err != nil || record == nil {
		return c.JSON(http.StatusServiceUnavailable, autherrors.NewServerError("Activity state unavailable"))
	}
	return c.JSON(http.StatusOK, record)
}

// LogoutHandler drops the caller's cached activity entry. Issued tokens are
// not revoked; they expire on their own schedule.
func (a *AuthAPI) LogoutHandler(c echo.Context) error {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, autherrors.NewInvalidToken("No authenticated session"))
	}
	a.tracker.Forget(c.Request().Context(), claims.Subject)
	return c.NoContent(http.StatusNoContent)
}
