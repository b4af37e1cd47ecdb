package service

import (
	"context"
	"strconv"
	"time"

	"github.com/passagelab/classroom-api/internal/core/domain"
)

// ---------------------------------------------------------------------------
// In-memory stub repositories
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	users     map[string]*domain.User // keyed by ID
	lastLogin map[string]time.Time
	createErr error
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{
		users:     make(map[string]*domain.User),
		lastLogin: make(map[string]time.Time),
	}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	for _, u := range r.users {
		if u.Username == user.Username {
			return nil, domain.ErrUsernameExists
		}
		if u.Email == user.Email {
			return nil, domain.ErrEmailExists
		}
	}
	c := cloneUser(user)
	c.ID = "u" + strconv.Itoa(len(r.users)+1)
	r.users[c.ID] = c
	return cloneUser(c), nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByUsernameOrEmail(_ context.Context, username, email string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Username == username || u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.LastLogin = &at
	r.lastLogin[id] = at
	return nil
}

type stubTokenRepo struct {
	users  *stubUserRepo
	tokens map[string]*domain.RefreshToken
}

func newStubTokenRepo(users *stubUserRepo) *stubTokenRepo {
	return &stubTokenRepo{users: users, tokens: make(map[string]*domain.RefreshToken)}
}

func (r *stubTokenRepo) Create(_ context.Context, t *domain.RefreshToken) error {
	clone := *t
	r.tokens[t.Token] = &clone
	return nil
}

func (r *stubTokenRepo) Find(_ context.Context, token string) (*domain.RefreshToken, error) {
	t, ok := r.tokens[token]
	if !ok {
		return nil, domain.ErrRefreshTokenNotFound
	}
	clone := *t
	return &clone, nil
}

func (r *stubTokenRepo) FindUserByToken(ctx context.Context, token string) (*domain.User, error) {
	t, ok := r.tokens[token]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return r.users.FindByID(ctx, t.UserID)
}

func (r *stubTokenRepo) Revoke(_ context.Context, token string) error {
	t, ok := r.tokens[token]
	if !ok {
		return domain.ErrRefreshTokenNotFound
	}
	t.Revoked = true
	return nil
}

func (r *stubTokenRepo) RevokeAllForUser(_ context.Context, userID string) error {
	for _, t := range r.tokens {
		if t.UserID == userID {
			t.Revoked = true
		}
	}
	return nil
}

func (r *stubTokenRepo) ListActive(_ context.Context, userID string) ([]*domain.RefreshToken, error) {
	var out []*domain.RefreshToken
	for _, t := range r.tokens {
		if t.UserID == userID && !t.Revoked {
			clone := *t
			out = append(out, &clone)
		}
	}
	return out, nil
}

type stubGuard struct {
	claimed map[string]bool
	err     error
}

func newStubGuard() *stubGuard {
	return &stubGuard{claimed: make(map[string]bool)}
}

func (g *stubGuard) Claim(_ context.Context, token string, _ time.Duration) (bool, error) {
	if g.err != nil {
		return false, g.err
	}
	if g.claimed[token] {
		return false, nil
	}
	g.claimed[token] = true
	return true, nil
}

type recordingLogins struct {
	events []domain.LoginEvent
}

func (r *recordingLogins) Enqueue(e domain.LoginEvent) {
	r.events = append(r.events, e)
}
