package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/passagelab/classroom-api/internal/core/domain"
)

// ErrorResponse is the canonical error envelope for all API errors.
type ErrorResponse struct {
	ErrorCode int            `json:"error_code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Reports every failing field of a validation error.
//   - Logs unexpected errors internally and only exposes them when debug is set.
func NewHTTPErrorHandler(log zerolog.Logger, debug bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		resp := resolveError(err, log, debug, c)
		if resp.ErrorCode == http.StatusUnauthorized {
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
		}
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(resp.ErrorCode)
			return
		}
		_ = c.JSON(resp.ErrorCode, resp)
	}
}

func resolveError(err error, log zerolog.Logger, debug bool, c echo.Context) ErrorResponse {
	// Echo's own errors (bind failures, 404 from router, middleware rejections).
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return ErrorResponse{ErrorCode: he.Code, Message: fmt.Sprintf("%v", he.Message)}
	}

	// Token errors first: a token whose claims fail the schema wraps a
	// ValidationError but is still an authentication failure.
	switch {
	case errors.Is(err, domain.ErrTokenExpired):
		return ErrorResponse{ErrorCode: http.StatusUnauthorized, Message: "Token has expired"}
	case errors.Is(err, domain.ErrInvalidToken):
		return ErrorResponse{ErrorCode: http.StatusUnauthorized, Message: "Could not validate credentials"}
	case errors.Is(err, domain.ErrRefreshTokenRevoked):
		return ErrorResponse{ErrorCode: http.StatusUnauthorized, Message: "Refresh token has been revoked"}
	}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return ErrorResponse{
			ErrorCode: http.StatusBadRequest,
			Message:   "Validation error",
			Details:   map[string]any{"validation_errors": verr.Fields},
		}
	}

	// Known domain errors → deterministic HTTP codes.
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		return ErrorResponse{ErrorCode: http.StatusNotFound, Message: "User not found"}
	case errors.Is(err, domain.ErrRefreshTokenNotFound):
		return ErrorResponse{ErrorCode: http.StatusNotFound, Message: "Refresh token not found"}
	case errors.Is(err, domain.ErrInvalidCredentials):
		return ErrorResponse{ErrorCode: http.StatusUnauthorized, Message: "Invalid credentials"}
	case errors.Is(err, domain.ErrForbidden):
		return ErrorResponse{ErrorCode: http.StatusForbidden, Message: "Access forbidden"}
	case errors.Is(err, domain.ErrUsernameExists):
		return ErrorResponse{ErrorCode: http.StatusConflict, Message: "Username already exists"}
	case errors.Is(err, domain.ErrEmailExists):
		return ErrorResponse{ErrorCode: http.StatusConflict, Message: "Email already in use"}
	case errors.Is(err, domain.ErrUserExists):
		return ErrorResponse{ErrorCode: http.StatusConflict, Message: "User already exists"}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	resp := ErrorResponse{ErrorCode: http.StatusInternalServerError, Message: "An unexpected error occurred"}
	if debug {
		resp.Details = map[string]any{"error": err.Error()}
	}
	return resp
}
