package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/passagelab/classroom-api/internal/api/middleware"
	"github.com/passagelab/classroom-api/internal/core/domain"
	"github.com/passagelab/classroom-api/internal/core/ports"
)

type stubAuthService struct {
	loginFn          func(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error)
	registerFn       func(ctx context.Context, in ports.RegisterInput) (*ports.RegisterResult, error)
	currentUserFn    func(ctx context.Context, q ports.GetCurrentUserQuery) (*ports.GetCurrentUserResponse, error)
	regenerateFn     func(ctx context.Context, in ports.RegenerateTokensInput) (*ports.RegenerateTokensResult, error)
	listSessionsFn   func(ctx context.Context, userID string) ([]ports.Session, error)
	revokeSessionsFn func(ctx context.Context, userID string) error
}

func (s *stubAuthService) Login(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error) {
	return s.loginFn(ctx, in)
}

func (s *stubAuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.RegisterResult, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAuthService) GetCurrentUser(ctx context.Context, q ports.GetCurrentUserQuery) (*ports.GetCurrentUserResponse, error) {
	return s.currentUserFn(ctx, q)
}

func (s *stubAuthService) RegenerateTokens(ctx context.Context, in ports.RegenerateTokensInput) (*ports.RegenerateTokensResult, error) {
	return s.regenerateFn(ctx, in)
}

func (s *stubAuthService) ListSessions(ctx context.Context, userID string) ([]ports.Session, error) {
	return s.listSessionsFn(ctx, userID)
}

func (s *stubAuthService) RevokeSessions(ctx context.Context, userID string) error {
	return s.revokeSessionsFn(ctx, userID)
}

func newContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got %v", err)
	}
	return he.Code
}

func TestAuthHandler_Login_Success(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error) {
			if in.Username != "alice" || in.Password != "secret" {
				t.Fatalf("unexpected args: %+v", in)
			}
			return &ports.LoginResult{AccessToken: "a", RefreshToken: "r", UserID: "u1", Username: "alice"}, nil
		},
	}
	c, rec := newContext(http.MethodPost, "/api/v1/auth/login", `{"username":"alice","password":"secret"}`)

	if err := NewAuthHandler(stub).Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["access_token"] != "a" || resp["refresh_token"] != "r" || resp["user_id"] != "u1" || resp["username"] != "alice" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error) {
			return nil, domain.ErrInvalidCredentials
		},
	}
	c, _ := newContext(http.MethodPost, "/api/v1/auth/login", `{"username":"alice","password":"bad"}`)

	if err := NewAuthHandler(stub).Login(c); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthHandler_Login_InvalidPayload(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	c, _ := newContext(http.MethodPost, "/api/v1/auth/login", "{")

	if code := statusOf(t, NewAuthHandler(stub).Login(c)); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestAuthHandler_Login_MissingFields(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	c, _ := newContext(http.MethodPost, "/api/v1/auth/login", `{"username":"alice"}`)

	err := NewAuthHandler(stub).Login(c)
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || !verr.Has("password") || verr.Has("username") {
		t.Fatalf("expected password validation error, got %v", err)
	}
}

func TestAuthHandler_Register_Success(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*ports.RegisterResult, error) {
			if in.Username != "alice" || in.Role != domain.RoleTeacher || in.FullName != "Alice A" {
				t.Fatalf("unexpected args: %+v", in)
			}
			return &ports.RegisterResult{
				AccessToken: "a1", RefreshToken: "r1",
				UserID: "u1", Username: in.Username, Email: in.Email, FullName: in.FullName, Role: in.Role,
			}, nil
		},
	}
	body := `{"username":"alice","password":"secret1","email":"a@example.com","full_name":"Alice A","role":"TEACHER"}`
	c, rec := newContext(http.MethodPost, "/api/v1/auth/register", body)

	if err := NewAuthHandler(stub).Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["user_id"] != "u1" || resp["role"] != "TEACHER" || resp["full_name"] != "Alice A" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
	if resp["access_token"] != "a1" || resp["refresh_token"] != "r1" {
		t.Fatalf("expected token pair in payload, got %+v", resp)
	}
}

func TestAuthHandler_Register_RoleOptional(t *testing.T) {
	cases := map[string]string{
		"omitted":   `{"username":"alice","password":"secret1","email":"a@example.com","full_name":"Alice A"}`,
		"empty":     `{"username":"alice","password":"secret1","email":"a@example.com","full_name":"Alice A","role":""}`,
		"uppercase": `{"username":"alice","password":"secret1","email":"a@example.com","full_name":"Alice A","role":"STUDENT"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			called := false
			stub := &stubAuthService{
				registerFn: func(ctx context.Context, in ports.RegisterInput) (*ports.RegisterResult, error) {
					called = true
					return &ports.RegisterResult{UserID: "u1", Role: domain.RoleStudent}, nil
				},
			}
			c, rec := newContext(http.MethodPost, "/api/v1/auth/register", body)

			if err := NewAuthHandler(stub).Register(c); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if !called || rec.Code != http.StatusCreated {
				t.Fatalf("expected 201 from the service, got %d", rec.Code)
			}
		})
	}
}

func TestAuthHandler_Register_LowercaseRoleRejected(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*ports.RegisterResult, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	body := `{"username":"alice","password":"secret1","email":"a@example.com","full_name":"Alice A","role":"admin"}`
	c, _ := newContext(http.MethodPost, "/api/v1/auth/register", body)

	err := NewAuthHandler(stub).Register(c)
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || !verr.Has("role") {
		t.Fatalf("expected role validation error, got %v", err)
	}
}

func TestAuthHandler_Register_Validation(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*ports.RegisterResult, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	c, _ := newContext(http.MethodPost, "/api/v1/auth/register", `{"username":"al","email":"nope","password":"secret1","full_name":"A","role":"guest"}`)

	err := NewAuthHandler(stub).Register(c)
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, field := range []string{"username", "email", "role"} {
		if !verr.Has(field) {
			t.Fatalf("expected %s to be reported, got %v", field, verr)
		}
	}
}

func TestAuthHandler_Register_Conflicts(t *testing.T) {
	for _, want := range []error{domain.ErrUsernameExists, domain.ErrEmailExists} {
		t.Run(want.Error(), func(t *testing.T) {
			stub := &stubAuthService{
				registerFn: func(ctx context.Context, in ports.RegisterInput) (*ports.RegisterResult, error) {
					return nil, want
				},
			}
			body := `{"username":"bob","password":"secret1","email":"b@example.com","full_name":"Bob","role":"STUDENT"}`
			c, _ := newContext(http.MethodPost, "/api/v1/auth/register", body)

			if err := NewAuthHandler(stub).Register(c); !errors.Is(err, want) {
				t.Fatalf("expected %v, got %v", want, err)
			}
		})
	}
}

func TestAuthHandler_Me_Success(t *testing.T) {
	stub := &stubAuthService{
		currentUserFn: func(ctx context.Context, q ports.GetCurrentUserQuery) (*ports.GetCurrentUserResponse, error) {
			if q.AccessToken != "tok" {
				t.Fatalf("unexpected token %q", q.AccessToken)
			}
			return &ports.GetCurrentUserResponse{Username: "alice", Role: "ADMIN", UserID: "u1", Email: "a@example.com", FullName: "Alice A", Exp: 1893456000}, nil
		},
	}
	c, rec := newContext(http.MethodGet, "/api/v1/auth/me", "")
	c.Request().Header.Set(echo.HeaderAuthorization, "Bearer tok")

	if err := NewAuthHandler(stub).Me(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	want := `{"username":"alice","role":"ADMIN","user_id":"u1","email":"a@example.com","full_name":"Alice A","exp":1893456000}`
	if got := strings.TrimSpace(rec.Body.String()); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestAuthHandler_Me_MissingHeader(t *testing.T) {
	stub := &stubAuthService{
		currentUserFn: func(ctx context.Context, q ports.GetCurrentUserQuery) (*ports.GetCurrentUserResponse, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	c, _ := newContext(http.MethodGet, "/api/v1/auth/me", "")

	if code := statusOf(t, NewAuthHandler(stub).Me(c)); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
}

func TestAuthHandler_Me_ExpiredToken(t *testing.T) {
	stub := &stubAuthService{
		currentUserFn: func(ctx context.Context, q ports.GetCurrentUserQuery) (*ports.GetCurrentUserResponse, error) {
			return nil, domain.ErrTokenExpired
		},
	}
	c, _ := newContext(http.MethodGet, "/api/v1/auth/me", "")
	c.Request().Header.Set(echo.HeaderAuthorization, "Bearer old")

	if err := NewAuthHandler(stub).Me(c); !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestAuthHandler_RefreshTokens(t *testing.T) {
	stub := &stubAuthService{
		regenerateFn: func(ctx context.Context, in ports.RegenerateTokensInput) (*ports.RegenerateTokensResult, error) {
			if in.RefreshToken != "r1" {
				t.Fatalf("unexpected token %q", in.RefreshToken)
			}
			return &ports.RegenerateTokensResult{AccessToken: "a2", RefreshToken: "r2", UserID: "u1", Username: "alice", FullName: "Alice A", Role: "ADMIN"}, nil
		},
	}
	c, rec := newContext(http.MethodPost, "/api/v1/auth/refresh-tokens", `{"refresh_token":"r1"}`)

	if err := NewAuthHandler(stub).RefreshTokens(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["refresh_token"] != "r2" || resp["full_name"] != "Alice A" || resp["role"] != "ADMIN" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
}

func TestAuthHandler_RefreshTokens_Revoked(t *testing.T) {
	stub := &stubAuthService{
		regenerateFn: func(ctx context.Context, in ports.RegenerateTokensInput) (*ports.RegenerateTokensResult, error) {
			return nil, domain.ErrRefreshTokenRevoked
		},
	}
	c, _ := newContext(http.MethodPost, "/api/v1/auth/refresh-tokens", `{"refresh_token":"r1"}`)

	if err := NewAuthHandler(stub).RefreshTokens(c); !errors.Is(err, domain.ErrRefreshTokenRevoked) {
		t.Fatalf("expected ErrRefreshTokenRevoked, got %v", err)
	}
}

func TestAuthHandler_Sessions(t *testing.T) {
	stub := &stubAuthService{
		listSessionsFn: func(ctx context.Context, userID string) ([]ports.Session, error) {
			if userID != "u1" {
				t.Fatalf("unexpected user %q", userID)
			}
			return []ports.Session{{}}, nil
		},
	}
	c, rec := newContext(http.MethodGet, "/api/v1/auth/sessions", "")
	c.Set(middleware.ContextKeyUserID, "u1")

	if err := NewAuthHandler(stub).Sessions(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp sessionsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || len(resp.Sessions) != 1 {
		t.Fatalf("unexpected payload %s: %v", rec.Body.String(), err)
	}
}

func TestAuthHandler_Sessions_WithoutAuth(t *testing.T) {
	c, _ := newContext(http.MethodGet, "/api/v1/auth/sessions", "")

	if code := statusOf(t, NewAuthHandler(&stubAuthService{}).Sessions(c)); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
}

func TestAuthHandler_RevokeSessions(t *testing.T) {
	var revoked string
	stub := &stubAuthService{
		revokeSessionsFn: func(ctx context.Context, userID string) error {
			revoked = userID
			return nil
		},
	}
	c, rec := newContext(http.MethodPost, "/", "")
	c.SetParamNames("id")
	c.SetParamValues("u9")

	if err := NewAuthHandler(stub).RevokeSessions(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNoContent || revoked != "u9" {
		t.Fatalf("expected 204 for u9, got %d %q", rec.Code, revoked)
	}
}
