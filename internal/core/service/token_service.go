package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/passagelab/classroom-api/internal/core/domain"
	"github.com/passagelab/classroom-api/internal/core/ports"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
	refreshTokenBytes = 32
	accessTokenType   = "access"
)

// TokenConfig holds the signing settings for access and refresh tokens.
type TokenConfig struct {
	Secret     string
	Algorithm  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenService signs JWT access tokens and manages opaque refresh tokens.
type TokenService struct {
	tokens     ports.RefreshTokenRepository
	secret     []byte
	method     jwt.SigningMethod
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenService(tokens ports.RefreshTokenRepository, cfg TokenConfig) (*TokenService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("token service: missing jwt secret")
	}
	alg := cfg.Algorithm
	if alg == "" {
		alg = jwt.SigningMethodHS256.Alg()
	}
	method, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("token service: unsupported jwt algorithm %q", alg)
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = defaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = defaultRefreshTTL
	}
	return &TokenService{
		tokens:     tokens,
		secret:     []byte(cfg.Secret),
		method:     method,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *TokenService) CreateTokenPair(ctx context.Context, user *domain.User) (string, *domain.RefreshToken, error) {
	now := s.now()

	access, err := s.signAccessToken(user, now)
	if err != nil {
		return "", nil, fmt.Errorf("sign access token: %w", err)
	}

	raw, err := newRefreshToken()
	if err != nil {
		return "", nil, fmt.Errorf("generate refresh token: %w", err)
	}
	refresh := &domain.RefreshToken{
		Token:     raw,
		UserID:    user.ID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.refreshTTL),
	}
	if err := s.tokens.Create(ctx, refresh); err != nil {
		return "", nil, fmt.Errorf("store refresh token: %w", err)
	}

	return access, refresh, nil
}

func (s *TokenService) signAccessToken(user *domain.User, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub":       user.ID,
		"user_id":   user.ID,
		"username":  user.Username,
		"role":      user.Role,
		"email":     user.Email,
		"full_name": user.FullName,
		"type":      accessTokenType,
		"jti":       uuid.NewString(),
		"iat":       now.Unix(),
		"exp":       now.Add(s.accessTTL).Unix(),
	}

	t := jwt.NewWithClaims(s.method, claims)
	return t.SignedString(s.secret)
}

// Decode verifies signature, algorithm and expiry, then checks the payload
// against the current-user schema.
func (s *TokenService) Decode(token string) (*ports.GetCurrentUserResponse, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}

	if typ, _ := claims["type"].(string); typ != accessTokenType {
		return nil, fmt.Errorf("%w: not an access token", domain.ErrInvalidToken)
	}

	payload, err := json.Marshal(claims)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	resp, err := ports.ParseGetCurrentUserResponse(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidToken, err)
	}
	return &resp, nil
}

func (s *TokenService) ValidateRefreshToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	rt, err := s.tokens.Find(ctx, token)
	if err != nil {
		return nil, err
	}
	if rt.Revoked {
		return nil, domain.ErrRefreshTokenRevoked
	}
	if !s.now().Before(rt.ExpiresAt) {
		return nil, domain.ErrTokenExpired
	}
	return rt, nil
}

func newRefreshToken() (string, error) {
	b := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
