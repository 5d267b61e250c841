package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/boilerplate/user-service/internal/api/middleware"
	"github.com/boilerplate/user-service/internal/core/domain"
	"github.com/boilerplate/user-service/internal/core/ports"
)

type stubSessionService struct {
	loginFn        func(ctx context.Context, email, password string) (*domain.TokenPair, error)
	logoutFn       func(ctx context.Context, refreshToken string) error
	refreshFn      func(ctx context.Context, refreshToken string) (string, error)
	registrationFn func(ctx context.Context, in ports.RegistrationInput) (*domain.User, error)
	profileFn      func(ctx context.Context, email string) (*domain.User, error)
	activeFn       func(ctx context.Context, userID string, isActive bool) (*domain.User, error)
	deletedFn      func(ctx context.Context, userID string, isDeleted bool) (*domain.User, error)
}

func (s *stubSessionService) Login(ctx context.Context, email, password string) (*domain.TokenPair, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubSessionService) Logout(ctx context.Context, refreshToken string) error {
	return s.logoutFn(ctx, refreshToken)
}

func (s *stubSessionService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	return s.refreshFn(ctx, refreshToken)
}

func (s *stubSessionService) Registration(ctx context.Context, in ports.RegistrationInput) (*domain.User, error) {
	return s.registrationFn(ctx, in)
}

func (s *stubSessionService) Profile(ctx context.Context, email string) (*domain.User, error) {
	return s.profileFn(ctx, email)
}

func (s *stubSessionService) ActiveStatusUpdate(ctx context.Context, userID string, isActive bool) (*domain.User, error) {
	return s.activeFn(ctx, userID, isActive)
}

func (s *stubSessionService) SoftDeleted(ctx context.Context, userID string, isDeleted bool) (*domain.User, error) {
	return s.deletedFn(ctx, userID, isDeleted)
}

type stubRecoveryService struct {
	resetFn  func(ctx context.Context, caller *domain.Identity, in ports.ResetPasswordInput) error
	forgetFn func(ctx context.Context, email string) error
	setNewFn func(ctx context.Context, in ports.SetNewPasswordInput) error
}

func (s *stubRecoveryService) ResetPassword(ctx context.Context, caller *domain.Identity, in ports.ResetPasswordInput) error {
	return s.resetFn(ctx, caller, in)
}

func (s *stubRecoveryService) ForgetPassword(ctx context.Context, email string) error {
	return s.forgetFn(ctx, email)
}

func (s *stubRecoveryService) SetNewPassword(ctx context.Context, in ports.SetNewPasswordInput) error {
	return s.setNewFn(ctx, in)
}

func newTestContext(method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return resp
}

func refreshCookieOf(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == RefreshCookieName {
			return ck
		}
	}
	return nil
}

func TestUserHandler_Login_Success(t *testing.T) {
	session := &stubSessionService{
		loginFn: func(ctx context.Context, email, password string) (*domain.TokenPair, error) {
			if email != "alice@x.com" || password != "secret" {
				t.Fatalf("unexpected args: %s %s", email, password)
			}
			return &domain.TokenPair{AccessToken: "access-1", RefreshToken: "refresh-1"}, nil
		},
	}
	h := NewUserHandler(session, &stubRecoveryService{}, CookieConfig{MaxAge: time.Hour}, 5*time.Minute)

	c, rec := newTestContext(http.MethodPost, "/api/v1/user/login", `{"email":"alice@x.com","password":"secret"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	resp := decode(t, rec)
	data, ok := resp["data"].(map[string]any)
	if !ok || data["accessToken"] != "access-1" {
		t.Fatalf("unexpected body: %+v", resp)
	}
	if strings.Contains(rec.Body.String(), "refresh-1") {
		t.Fatalf("refresh token must not appear in the body")
	}

	cookie := refreshCookieOf(rec)
	if cookie == nil || cookie.Value != "refresh-1" {
		t.Fatalf("expected refresh cookie, got %+v", cookie)
	}
	if !cookie.HttpOnly || cookie.MaxAge != 3600 || cookie.SameSite != http.SameSiteStrictMode {
		t.Fatalf("unexpected cookie attributes: %+v", cookie)
	}
}

func TestUserHandler_Login_InvalidCredentials(t *testing.T) {
	session := &stubSessionService{
		loginFn: func(ctx context.Context, email, password string) (*domain.TokenPair, error) {
			return nil, domain.ErrInvalidCredentials
		},
	}
	h := NewUserHandler(session, &stubRecoveryService{}, CookieConfig{}, 5*time.Minute)

	c, rec := newTestContext(http.MethodPost, "/api/v1/user/login", `{"email":"alice@x.com","password":"nope"}`)
	if err := h.Login(c); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if refreshCookieOf(rec) != nil {
		t.Fatalf("no cookie expected on failure")
	}
}

func TestUserHandler_Login_ValidationFailed(t *testing.T) {
	session := &stubSessionService{
		loginFn: func(ctx context.Context, email, password string) (*domain.TokenPair, error) {
			t.Fatalf("service must not be called")
			return nil, nil
		},
	}
	h := NewUserHandler(session, &stubRecoveryService{}, CookieConfig{}, 5*time.Minute)

	for _, body := range []string{`{"email":"not-an-email","password":"x"}`, `{"email":"a@x.com"}`, `{`} {
		c, _ := newTestContext(http.MethodPost, "/api/v1/user/login", body)
		if err := h.Login(c); !errors.Is(err, domain.ErrValidationFailed) {
			t.Fatalf("%s: expected ErrValidationFailed, got %v", body, err)
		}
	}
}

func TestUserHandler_Logout_ClearsCookie(t *testing.T) {
	var revoked string
	session := &stubSessionService{
		logoutFn: func(ctx context.Context, refreshToken string) error {
			revoked = refreshToken
			return nil
		},
	}
	h := NewUserHandler(session, &stubRecoveryService{}, CookieConfig{}, 5*time.Minute)

	c, rec := newTestContext(http.MethodPost, "/api/v1/user/logout", "")
	c.Request().AddCookie(&http.Cookie{Name: RefreshCookieName, Value: "refresh-1"})
	if err := h.Logout(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if revoked != "refresh-1" {
		t.Fatalf("expected cookie token to be revoked, got %q", revoked)
	}

	cookie := refreshCookieOf(rec)
	if cookie == nil || cookie.Value != "" || cookie.MaxAge >= 0 {
		t.Fatalf("expected cleared cookie, got %+v", cookie)
	}
}

func TestUserHandler_RefreshToken(t *testing.T) {
	session := &stubSessionService{
		refreshFn: func(ctx context.Context, refreshToken string) (string, error) {
			if refreshToken == "" {
				return "", domain.ErrUnauthenticated
			}
			return "access-2", nil
		},
	}
	h := NewUserHandler(session, &stubRecoveryService{}, CookieConfig{}, 5*time.Minute)

	c, _ := newTestContext(http.MethodPost, "/api/v1/user/refresh-token", "")
	if err := h.RefreshToken(c); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated without cookie, got %v", err)
	}

	c, rec := newTestContext(http.MethodPost, "/api/v1/user/refresh-token", "")
	c.Request().AddCookie(&http.Cookie{Name: RefreshCookieName, Value: "refresh-1"})
	if err := h.RefreshToken(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	data, _ := decode(t, rec)["data"].(map[string]any)
	if data["accessToken"] != "access-2" {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestUserHandler_Registration(t *testing.T) {
	session := &stubSessionService{
		registrationFn: func(ctx context.Context, in ports.RegistrationInput) (*domain.User, error) {
			if in.Email != "alice@x.com" || in.Role != "CLIENT" || in.FirstName != "Alice" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &domain.User{ID: "u1", Email: in.Email, Role: domain.RoleClient, PasswordHash: "hash", IsActive: true}, nil
		},
	}
	h := NewUserHandler(session, &stubRecoveryService{}, CookieConfig{}, 5*time.Minute)

	c, rec := newTestContext(http.MethodPost, "/api/v1/user/registration",
		`{"firstName":"Alice","lastName":"Liddell","email":"alice@x.com","role":"CLIENT"}`)
	if err := h.Registration(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "hash") {
		t.Fatalf("password hash leaked: %s", rec.Body.String())
	}
}

func TestUserHandler_Registration_UnknownRole(t *testing.T) {
	h := NewUserHandler(&stubSessionService{}, &stubRecoveryService{}, CookieConfig{}, 5*time.Minute)

	c, _ := newTestContext(http.MethodPost, "/api/v1/user/registration",
		`{"firstName":"Alice","lastName":"Liddell","email":"alice@x.com","role":"OWNER"}`)
	err := h.Registration(c)
	if !errors.Is(err, domain.ErrValidationFailed) || !strings.Contains(err.Error(), "role must be one of") {
		t.Fatalf("expected role validation error, got %v", err)
	}
}

func TestUserHandler_ResetPassword_UsesCallerIdentity(t *testing.T) {
	caller := &domain.Identity{UserID: "u1", Email: "alice@x.com", Role: domain.RoleClient}
	recovery := &stubRecoveryService{
		resetFn: func(ctx context.Context, got *domain.Identity, in ports.ResetPasswordInput) error {
			if got != caller || in.OldPassword != "old" || in.NewPassword != "NewP@ss1" {
				t.Fatalf("unexpected args: %+v %+v", got, in)
			}
			return nil
		},
	}
	h := NewUserHandler(&stubSessionService{}, recovery, CookieConfig{}, 5*time.Minute)

	c, rec := newTestContext(http.MethodPost, "/api/v1/user/password/reset", `{"oldPassword":"old","newPassword":"NewP@ss1"}`)
	c.Set(middleware.IdentityKey, caller)
	if err := h.ResetPassword(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	c, _ = newTestContext(http.MethodPost, "/api/v1/user/password/reset", `{"oldPassword":"old","newPassword":"NewP@ss1"}`)
	if err := h.ResetPassword(c); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated without identity, got %v", err)
	}
}

func TestUserHandler_ForgetPassword(t *testing.T) {
	recovery := &stubRecoveryService{
		forgetFn: func(ctx context.Context, email string) error { return nil },
	}
	h := NewUserHandler(&stubSessionService{}, recovery, CookieConfig{}, 5*time.Minute)

	c, rec := newTestContext(http.MethodPost, "/api/v1/user/password/forget", `{"email":"ghost@x.com"}`)
	if err := h.ForgetPassword(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if decode(t, rec)["message"] != "Check your email. You have only 5 minutes for reset your password." {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestUserHandler_ForgetPasswordQuotesConfiguredLifetime(t *testing.T) {
	recovery := &stubRecoveryService{
		forgetFn: func(ctx context.Context, email string) error { return nil },
	}
	cases := map[time.Duration]string{
		15 * time.Minute: "Check your email. You have only 15 minutes for reset your password.",
		time.Hour:        "Check your email. You have only 1 hour for reset your password.",
		0:                "Check your email to reset your password.",
	}
	for ttl, want := range cases {
		h := NewUserHandler(&stubSessionService{}, recovery, CookieConfig{}, ttl)
		c, rec := newTestContext(http.MethodPost, "/api/v1/user/password/forget", `{"email":"ghost@x.com"}`)
		if err := h.ForgetPassword(c); err != nil {
			t.Fatalf("handler error: %v", err)
		}
		if got := decode(t, rec)["message"]; got != want {
			t.Fatalf("ttl %v: got %q, want %q", ttl, got, want)
		}
	}
}

func TestUserHandler_SetNewPassword(t *testing.T) {
	recovery := &stubRecoveryService{
		setNewFn: func(ctx context.Context, in ports.SetNewPasswordInput) error {
			if in.Token != "tok" {
				return domain.ErrInvalidOrExpiredToken
			}
			return nil
		},
	}
	h := NewUserHandler(&stubSessionService{}, recovery, CookieConfig{}, 5*time.Minute)

	c, _ := newTestContext(http.MethodPost, "/api/v1/user/password/set-new", `{"token":"tok","newPassword":"NewP@ss1"}`)
	if err := h.SetNewPassword(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	c, _ = newTestContext(http.MethodPost, "/api/v1/user/password/set-new", `{"token":"bad","newPassword":"NewP@ss1"}`)
	if err := h.SetNewPassword(c); !errors.Is(err, domain.ErrInvalidOrExpiredToken) {
		t.Fatalf("expected ErrInvalidOrExpiredToken, got %v", err)
	}
}

func TestUserHandler_Profile(t *testing.T) {
	session := &stubSessionService{
		profileFn: func(ctx context.Context, email string) (*domain.User, error) {
			return &domain.User{ID: "u1", Email: email, PasswordHash: "hash"}, nil
		},
	}
	h := NewUserHandler(session, &stubRecoveryService{}, CookieConfig{}, 5*time.Minute)

	c, rec := newTestContext(http.MethodGet, "/api/v1/user/profile/me", "")
	c.Set(middleware.IdentityKey, &domain.Identity{UserID: "u1", Email: "alice@x.com"})
	if err := h.Profile(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	data, _ := decode(t, rec)["data"].(map[string]any)
	if data["email"] != "alice@x.com" {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
	if _, leaked := data["passwordHash"]; leaked {
		t.Fatalf("password hash leaked")
	}
}

func TestUserHandler_ActiveStatusUpdate(t *testing.T) {
	session := &stubSessionService{
		activeFn: func(ctx context.Context, userID string, isActive bool) (*domain.User, error) {
			if userID != "u1" || isActive {
				t.Fatalf("unexpected args: %s %v", userID, isActive)
			}
			return &domain.User{ID: userID, IsActive: isActive}, nil
		},
	}
	h := NewUserHandler(session, &stubRecoveryService{}, CookieConfig{}, 5*time.Minute)

	c, rec := newTestContext(http.MethodPatch, "/", `{"isActive":false}`)
	c.SetParamNames("userId")
	c.SetParamValues("u1")
	if err := h.ActiveStatusUpdate(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	c, _ = newTestContext(http.MethodPatch, "/", `{}`)
	c.SetParamNames("userId")
	c.SetParamValues("u1")
	if err := h.ActiveStatusUpdate(c); !errors.Is(err, domain.ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed for missing flag, got %v", err)
	}
}

func TestUserHandler_SoftDeleted_NotFound(t *testing.T) {
	session := &stubSessionService{
		deletedFn: func(ctx context.Context, userID string, isDeleted bool) (*domain.User, error) {
			return nil, domain.ErrUserNotFound
		},
	}
	h := NewUserHandler(session, &stubRecoveryService{}, CookieConfig{}, 5*time.Minute)

	c, _ := newTestContext(http.MethodDelete, "/", `{"isDeleted":true}`)
	c.SetParamNames("userId")
	c.SetParamValues("missing")
	if err := h.SoftDeleted(c); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
