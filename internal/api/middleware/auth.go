package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/passagelab/classroom-api/internal/api/metrics"
	"github.com/passagelab/classroom-api/internal/core/domain"
	"github.com/passagelab/classroom-api/internal/core/ports"
)

// Context keys set by Auth.
const (
	ContextKeyClaims   = "claims"
	ContextKeyUserID   = "user_id"
	ContextKeyUsername = "username"
	ContextKeyRole     = "role"
)

var (
	errMissingAuthorization = echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	errInvalidAuthorization = echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
)

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", errMissingAuthorization
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", errInvalidAuthorization
	}
	return strings.TrimSpace(parts[1]), nil
}

// Auth validates the access token and injects its claims into context.
func Auth(tokens ports.TokenService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				metrics.TokenDecodeFailuresTotal.WithLabelValues("missing").Inc()
				return err
			}

			claims, err := tokens.Decode(raw)
			if err != nil {
				if errors.Is(err, domain.ErrTokenExpired) {
					metrics.TokenDecodeFailuresTotal.WithLabelValues("expired").Inc()
					return echo.NewHTTPError(http.StatusUnauthorized, "token has expired").SetInternal(err)
				}
				metrics.TokenDecodeFailuresTotal.WithLabelValues("invalid").Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, "could not validate credentials").SetInternal(err)
			}

			c.Set(ContextKeyClaims, claims)
			c.Set(ContextKeyUserID, claims.UserID)
			c.Set(ContextKeyUsername, claims.Username)
			c.Set(ContextKeyRole, claims.Role)

			return next(c)
		}
	}
}
