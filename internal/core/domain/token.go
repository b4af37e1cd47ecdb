package domain

import (
	"errors"
	"time"
)

var (
	ErrInvalidToken         = errors.New("invalid token")
	ErrTokenExpired         = errors.New("token expired")
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenRevoked  = errors.New("refresh token revoked")
)

// RefreshToken is an opaque, server-side credential used to mint new token pairs.
type RefreshToken struct {
	Token     string
	UserID    string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Revoked   bool
}

// Active reports whether the token can still be exchanged at now.
func (t RefreshToken) Active(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}

// LoginEvent records a successful authentication for asynchronous bookkeeping.
type LoginEvent struct {
	UserID string
	At     time.Time
}
