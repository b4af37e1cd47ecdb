// Command api runs the classroom authentication HTTP service.
//
//	@title						Classroom API
//	@version					1.0
//	@description				Authentication service: login, registration, token refresh and current-user lookup.
//	@BasePath					/api/v1
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/passagelab/classroom-api/internal/api"
	"github.com/passagelab/classroom-api/internal/core/ports"
	"github.com/passagelab/classroom-api/internal/core/service"
	"github.com/passagelab/classroom-api/internal/infrastructure/config"
	mongodb "github.com/passagelab/classroom-api/internal/infrastructure/db/mongo"
	"github.com/passagelab/classroom-api/internal/infrastructure/db/postgres"
	redisdb "github.com/passagelab/classroom-api/internal/infrastructure/db/redis"
	"github.com/passagelab/classroom-api/internal/infrastructure/http/handlers"
	"github.com/passagelab/classroom-api/internal/infrastructure/queue"
	"github.com/passagelab/classroom-api/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "classroom-api",
		Env:     cfg.Env,
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

// storage bundles the repositories of the configured driver.
type storage struct {
	users  ports.UserRepository
	tokens ports.RefreshTokenRepository
	health handlers.Dependency
	close  func()
}

func openStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		if err := postgres.Migrate(ctx, cfg.Postgres.DSN); err != nil {
			return nil, err
		}
		pool, err := postgres.Connect(ctx, postgres.Config{DSN: cfg.Postgres.DSN})
		if err != nil {
			return nil, err
		}
		return &storage{
			users:  postgres.NewUserRepository(pool),
			tokens: postgres.NewRefreshTokenRepository(pool),
			health: handlers.Dependency{Name: "postgres", Ping: pool.Ping},
			close:  pool.Close,
		}, nil

	default:
		client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		users := mongodb.NewUserRepository(db)
		tokens := mongodb.NewRefreshTokenRepository(db, users, cfg.JWT.RefreshTTL())
		if err := mongodb.EnsureIndexes(ctx, users, tokens); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		return &storage{
			users:  users,
			tokens: tokens,
			health: handlers.Dependency{Name: "mongodb", Ping: func(ctx context.Context) error { return client.Ping(ctx, nil) }},
			close:  func() { _ = client.Disconnect(context.Background()) },
		}, nil
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	store, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.close()
	log.Info().Str("driver", cfg.DBDriver).Msg("storage connected")

	healthChecks := []handlers.Dependency{store.health}

	// The replay guard is optional: without Redis, refresh tokens still rotate.
	var guard ports.RefreshReplayGuard
	rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, refresh replay detection disabled")
	} else {
		defer rdb.Close()
		guard = redisdb.NewReplayGuard(rdb)
		healthChecks = append(healthChecks, handlers.Dependency{
			Name: "redis",
			Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	}

	tokens, err := service.NewTokenService(store.tokens, service.TokenConfig{
		Secret:     cfg.JWT.Secret,
		Algorithm:  cfg.JWT.Algorithm,
		AccessTTL:  cfg.JWT.AccessTTL(),
		RefreshTTL: cfg.JWT.RefreshTTL(),
	})
	if err != nil {
		return err
	}

	queueLog := logger.Component("login-queue")
	dispatcher := queue.NewDispatcher(cfg.LoginWorkers, service.NewLoginEventService(store.users, queueLog), queueLog)
	dispatcher.Start(ctx)
	// Runs after the HTTP server has shut down, so buffered logins are flushed
	// before storage closes.
	defer dispatcher.Stop()

	authService := service.NewAuthService(
		store.users,
		store.tokens,
		tokens,
		service.NewBcryptHasher(bcrypt.DefaultCost),
		guard,
		dispatcher,
		logger.Component("auth"),
	)

	e := api.NewRouter(api.Dependencies{
		AuthService:    authService,
		Tokens:         tokens,
		HealthChecks:   healthChecks,
		Log:            logger.Component("http"),
		Debug:          cfg.Debug,
		AllowedOrigins: cfg.AllowedOrigins(),
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("http server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
