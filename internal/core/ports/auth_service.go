package ports

import (
	"context"
	"time"

	"github.com/passagelab/classroom-api/internal/core/domain"
)

// LoginInput carries the credentials submitted to the login endpoint.
type LoginInput struct {
	Username string
	Password string
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"user_id"`
	Username     string `json:"username"`
}

// RegisterInput carries the data needed to create an account. An empty Role
// registers a student.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	FullName string
	Role     string
}

// RegisterResult describes the account that was created and the token pair
// issued for it, so a new user is signed in straight away.
type RegisterResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"user_id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	FullName     string `json:"full_name"`
	Role         string `json:"role"`
}

type RegenerateTokensInput struct {
	RefreshToken string
}

// RegenerateTokensResult is a freshly minted token pair plus the owner's identity.
type RegenerateTokensResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"user_id"`
	Username     string `json:"username"`
	FullName     string `json:"full_name"`
	Role         string `json:"role"`
}

// Session describes one active refresh token without exposing its value.
type Session struct {
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type AuthService interface {
	Login(ctx context.Context, in LoginInput) (*LoginResult, error)
	Register(ctx context.Context, in RegisterInput) (*RegisterResult, error)
	GetCurrentUser(ctx context.Context, q GetCurrentUserQuery) (*GetCurrentUserResponse, error)
	RegenerateTokens(ctx context.Context, in RegenerateTokensInput) (*RegenerateTokensResult, error)
	// ListSessions returns the unrevoked, unexpired refresh tokens of userID.
	ListSessions(ctx context.Context, userID string) ([]Session, error)
	// RevokeSessions revokes every refresh token of userID.
	RevokeSessions(ctx context.Context, userID string) error
}

// TokenService issues and decodes the credentials used by AuthService.
type TokenService interface {
	// CreateTokenPair signs an access token for user and persists a new refresh token.
	CreateTokenPair(ctx context.Context, user *domain.User) (string, *domain.RefreshToken, error)
	// Decode verifies an access token and returns the identity it carries.
	Decode(token string) (*GetCurrentUserResponse, error)
	// ValidateRefreshToken returns the stored token when it exists, is unrevoked
	// and unexpired.
	ValidateRefreshToken(ctx context.Context, token string) (*domain.RefreshToken, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// LoginRecorder accepts login events for asynchronous processing.
type LoginRecorder interface {
	Enqueue(event domain.LoginEvent)
}

// LoginEventService applies a login event to persistent state.
type LoginEventService interface {
	Process(ctx context.Context, event domain.LoginEvent) error
}
