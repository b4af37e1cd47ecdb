package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/passagelab/classroom-api/internal/api/metrics"
	"github.com/passagelab/classroom-api/internal/api/middleware"
	"github.com/passagelab/classroom-api/internal/core/domain"
	"github.com/passagelab/classroom-api/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Login authenticates a user and returns an access/refresh token pair.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  ports.LoginResult
// @Failure      400   {object}  api.ErrorResponse
// @Failure      401   {object}  api.ErrorResponse
// @Failure      403   {object}  api.ErrorResponse
// @Failure      404   {object}  api.ErrorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := h.authService.Login(c.Request().Context(), req.toInput())
	metrics.LoginAttemptsTotal.WithLabelValues(loginResult(err)).Inc()
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, res)
}

// Register creates a new user account.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      201   {object}  ports.RegisterResult
// @Failure      400   {object}  api.ErrorResponse
// @Failure      409   {object}  api.ErrorResponse
// @Failure      500   {object}  api.ErrorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := h.authService.Register(c.Request().Context(), req.toInput())
	if err != nil {
		return err
	}
	metrics.RegistrationsTotal.WithLabelValues(res.Role).Inc()

	return c.JSON(http.StatusCreated, res)
}

// Me returns the identity carried by the bearer access token.
//
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  ports.GetCurrentUserResponse
// @Failure      401  {object}  api.ErrorResponse
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	token, err := middleware.BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
	if err != nil {
		metrics.TokenDecodeFailuresTotal.WithLabelValues("missing").Inc()
		return err
	}

	user, err := h.authService.GetCurrentUser(c.Request().Context(), ports.NewGetCurrentUserQuery(token))
	if err != nil {
		if errors.Is(err, domain.ErrTokenExpired) {
			metrics.TokenDecodeFailuresTotal.WithLabelValues("expired").Inc()
		} else {
			metrics.TokenDecodeFailuresTotal.WithLabelValues("invalid").Inc()
		}
		return err
	}

	return c.JSON(http.StatusOK, user)
}

// RefreshTokens exchanges a refresh token for a new token pair.
//
// @Summary      Regenerate tokens
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      refreshTokensRequest  true  "Refresh token"
// @Success      200   {object}  ports.RegenerateTokensResult
// @Failure      400   {object}  api.ErrorResponse
// @Failure      401   {object}  api.ErrorResponse
// @Failure      404   {object}  api.ErrorResponse
// @Router       /auth/refresh-tokens [post]
func (h *AuthHandler) RefreshTokens(c echo.Context) error {
	var req refreshTokensRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := h.authService.RegenerateTokens(c.Request().Context(), ports.RegenerateTokensInput{RefreshToken: req.RefreshToken})
	metrics.TokenRefreshTotal.WithLabelValues(refreshResult(err)).Inc()
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, res)
}

// Sessions lists the caller's active refresh tokens.
//
// @Summary      Active sessions
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  sessionsResponse
// @Failure      401  {object}  api.ErrorResponse
// @Router       /auth/sessions [get]
func (h *AuthHandler) Sessions(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	sessions, err := h.authService.ListSessions(c.Request().Context(), userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, sessionsResponse{Sessions: sessions})
}

// RevokeSessions revokes every refresh token of a user. Admin only.
//
// @Summary      Revoke a user's sessions
// @Tags         auth
// @Security     BearerAuth
// @Param        id   path  string  true  "User ID"
// @Success      204
// @Failure      401  {object}  api.ErrorResponse
// @Failure      403  {object}  api.ErrorResponse
// @Failure      404  {object}  api.ErrorResponse
// @Router       /auth/users/{id}/revoke-sessions [post]
func (h *AuthHandler) RevokeSessions(c echo.Context) error {
	if err := h.authService.RevokeSessions(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func loginResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, domain.ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	default:
		return "error"
	}
}

func refreshResult(err error) string {
	switch {
	case err == nil:
		return "rotated"
	case errors.Is(err, domain.ErrRefreshTokenRevoked):
		return "revoked"
	case errors.Is(err, domain.ErrTokenExpired):
		return "expired"
	case errors.Is(err, domain.ErrRefreshTokenNotFound), errors.Is(err, domain.ErrUserNotFound):
		return "not_found"
	default:
		return "error"
	}
}
