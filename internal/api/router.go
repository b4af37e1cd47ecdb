package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/passagelab/classroom-api/docs"
	"github.com/passagelab/classroom-api/internal/api/handler"
	"github.com/passagelab/classroom-api/internal/api/middleware"
	"github.com/passagelab/classroom-api/internal/core/domain"
	"github.com/passagelab/classroom-api/internal/core/ports"
	"github.com/passagelab/classroom-api/internal/infrastructure/http/handlers"
)

const serviceName = "classroom-api"

// Dependencies are the collaborators the router wires into handlers.
type Dependencies struct {
	AuthService    ports.AuthService
	Tokens         ports.TokenService
	HealthChecks   []handlers.Dependency
	Log            zerolog.Logger
	Debug          bool
	AllowedOrigins []string

	// Registerer and Gatherer default to the global Prometheus registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log, deps.Debug)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: deps.AllowedOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "http",
		Registerer: deps.Registerer,
	}))

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(deps.AuthService)
	authMiddleware := middleware.Auth(deps.Tokens)
	healthHandler := handlers.NewHealthHandler(serviceName)
	healthDepsHandler := handlers.NewHealthDependenciesHandler(deps.HealthChecks...)

	// --- Auth routes ---
	v1 := e.Group("/api/v1")
	v1.GET("/health", healthHandler.Liveness)

	auth := v1.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/register", authHandler.Register)
	auth.GET("/me", authHandler.Me)
	auth.POST("/refresh-tokens", authHandler.RefreshTokens)
	auth.GET("/sessions", authHandler.Sessions, authMiddleware)
	auth.POST("/users/:id/revoke-sessions", authHandler.RevokeSessions, authMiddleware, middleware.RBAC(domain.RoleAdmin))

	// --- Health probes (no auth required) ---
	e.GET("/health", healthHandler.Liveness)            // liveness: is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness: are dependencies up?

	// --- Observability ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: deps.Gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// requestLogger writes one zerolog line per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
