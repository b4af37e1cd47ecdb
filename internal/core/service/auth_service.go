package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/passagelab/classroom-api/internal/core/domain"
	"github.com/passagelab/classroom-api/internal/core/ports"
)

// AuthService implements login, registration, current-user lookup and token rotation.
type AuthService struct {
	users  ports.UserRepository
	tokens ports.RefreshTokenRepository
	issuer ports.TokenService
	hasher ports.PasswordHasher
	guard  ports.RefreshReplayGuard
	logins ports.LoginRecorder
	log    zerolog.Logger
	now    func() time.Time
}

// NewAuthService wires the use cases. guard and logins may be nil.
func NewAuthService(
	users ports.UserRepository,
	tokens ports.RefreshTokenRepository,
	issuer ports.TokenService,
	hasher ports.PasswordHasher,
	guard ports.RefreshReplayGuard,
	logins ports.LoginRecorder,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		issuer: issuer,
		hasher: hasher,
		guard:  guard,
		logins: logins,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *AuthService) Login(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error) {
	if in.Username == "" || in.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByUsername(ctx, in.Username)
	if err != nil {
		return nil, err
	}

	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, domain.ErrForbidden
	}

	access, refresh, err := s.issuer.CreateTokenPair(ctx, user)
	if err != nil {
		return nil, err
	}

	if s.logins != nil {
		s.logins.Enqueue(domain.LoginEvent{UserID: user.ID, At: s.now()})
	}

	s.log.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("user logged in")

	return &ports.LoginResult{
		AccessToken:  access,
		RefreshToken: refresh.Token,
		UserID:       user.ID,
		Username:     user.Username,
	}, nil
}

func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.RegisterResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)
	in.Role = strings.TrimSpace(in.Role)
	if in.Role == "" {
		in.Role = domain.DefaultRole
	}

	verr := &domain.ValidationError{}
	if in.Username == "" {
		verr.Add("username", domain.ReasonRequired)
	}
	if in.Email == "" {
		verr.Add("email", domain.ReasonRequired)
	}
	if in.Password == "" {
		verr.Add("password", domain.ReasonRequired)
	}
	if in.FullName == "" {
		verr.Add("full_name", domain.ReasonRequired)
	}
	if !domain.IsValidRole(in.Role) {
		verr.Add("role", "must be one of: ADMIN TEACHER STUDENT")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	existing, err := s.users.FindByUsernameOrEmail(ctx, in.Username, in.Email)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}
	if existing != nil {
		if existing.Username == in.Username {
			return nil, domain.ErrUsernameExists
		}
		return nil, domain.ErrEmailExists
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	created, err := s.users.Create(ctx, &domain.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
		FullName:     in.FullName,
		IsActive:     true,
		CreatedAt:    s.now(),
	})
	if err != nil {
		return nil, err
	}

	access, refresh, err := s.issuer.CreateTokenPair(ctx, created)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", created.ID).Str("role", created.Role).Msg("user registered")

	return &ports.RegisterResult{
		AccessToken:  access,
		RefreshToken: refresh.Token,
		UserID:       created.ID,
		Username:     created.Username,
		Email:        created.Email,
		FullName:     created.FullName,
		Role:         created.Role,
	}, nil
}

func (s *AuthService) GetCurrentUser(_ context.Context, q ports.GetCurrentUserQuery) (*ports.GetCurrentUserResponse, error) {
	return s.issuer.Decode(q.AccessToken)
}

// RegenerateTokens exchanges a refresh token for a new pair. The presented
// token is revoked, so each refresh token can be used once.
func (s *AuthService) RegenerateTokens(ctx context.Context, in ports.RegenerateTokensInput) (*ports.RegenerateTokensResult, error) {
	if in.RefreshToken == "" {
		return nil, domain.ErrRefreshTokenNotFound
	}

	current, err := s.issuer.ValidateRefreshToken(ctx, in.RefreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.tokens.FindUserByToken(ctx, in.RefreshToken)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrForbidden
	}

	if s.guard != nil {
		first, gerr := s.guard.Claim(ctx, in.RefreshToken, current.ExpiresAt.Sub(s.now()))
		switch {
		case gerr != nil:
			s.log.Warn().Err(gerr).Str("user_id", user.ID).Msg("replay guard unavailable, rotating anyway")
		case !first:
			// A second exchange of the same token: treat the family as compromised.
			if rerr := s.tokens.RevokeAllForUser(ctx, user.ID); rerr != nil {
				s.log.Error().Err(rerr).Str("user_id", user.ID).Msg("failed to revoke refresh tokens")
			}
			s.log.Warn().Str("user_id", user.ID).Msg("refresh token replay detected")
			return nil, domain.ErrRefreshTokenRevoked
		}
	}

	if err := s.tokens.Revoke(ctx, in.RefreshToken); err != nil {
		return nil, err
	}

	access, refresh, err := s.issuer.CreateTokenPair(ctx, user)
	if err != nil {
		return nil, err
	}

	return &ports.RegenerateTokensResult{
		AccessToken:  access,
		RefreshToken: refresh.Token,
		UserID:       user.ID,
		Username:     user.Username,
		FullName:     user.FullName,
		Role:         user.Role,
	}, nil
}

func (s *AuthService) ListSessions(ctx context.Context, userID string) ([]ports.Session, error) {
	tokens, err := s.tokens.ListActive(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	sessions := make([]ports.Session, 0, len(tokens))
	for _, t := range tokens {
		if !t.Active(now) {
			continue
		}
		sessions = append(sessions, ports.Session{IssuedAt: t.IssuedAt, ExpiresAt: t.ExpiresAt})
	}
	return sessions, nil
}

func (s *AuthService) RevokeSessions(ctx context.Context, userID string) error {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return err
	}
	if err := s.tokens.RevokeAllForUser(ctx, userID); err != nil {
		return err
	}
	s.log.Info().Str("user_id", userID).Msg("refresh tokens revoked")
	return nil
}
