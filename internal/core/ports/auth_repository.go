package ports

import (
	"context"
	"time"

	"github.com/passagelab/classroom-api/internal/core/domain"
)

// UserRepository defines persistence operations for user accounts.
type UserRepository interface {
	// Create stores user and returns it with its generated ID.
	// Returns domain.ErrUsernameExists or domain.ErrEmailExists on a collision.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	// FindByUsernameOrEmail matches either field; used to reject duplicates early.
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*domain.User, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
}

// RefreshTokenRepository defines persistence operations for refresh tokens.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *domain.RefreshToken) error
	// Find returns domain.ErrRefreshTokenNotFound when token is unknown.
	Find(ctx context.Context, token string) (*domain.RefreshToken, error)
	FindUserByToken(ctx context.Context, token string) (*domain.User, error)
	Revoke(ctx context.Context, token string) error
	RevokeAllForUser(ctx context.Context, userID string) error
	ListActive(ctx context.Context, userID string) ([]*domain.RefreshToken, error)
}

// RefreshReplayGuard remembers refresh tokens that have already been rotated.
type RefreshReplayGuard interface {
	// Claim atomically marks token as used for ttl. It returns false when the
	// token had already been claimed.
	Claim(ctx context.Context, token string, ttl time.Duration) (bool, error)
}
