package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ake144/e-tutor/internal/middleware"
	"github.com/ake144/e-tutor/internal/models"
	"github.com/ake144/e-tutor/internal/services"
	"github.com/ake144/e-tutor/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type stubAuthService struct {
	registerResult *services.AuthResult
	registerErr    error
	loginResult    *services.AuthResult
	loginErr       error
	forgotErr      error
	resetErr       error
	lastRegister   services.RegisterInput
	forgotCalls    int
	loggedOut      *utils.Claims
}

func (s *stubAuthService) Register(_ context.Context, input services.RegisterInput) (*services.AuthResult, error) {
	s.lastRegister = input
	return s.registerResult, s.registerErr
}

func (s *stubAuthService) Login(_ context.Context, _ string, _ string) (*services.AuthResult, error) {
	return s.loginResult, s.loginErr
}

func (s *stubAuthService) Me(_ context.Context, userID int64) (*services.AccountView, error) {
	return &services.AccountView{User: &models.User{ID: userID}}, nil
}

func (s *stubAuthService) Logout(claims *utils.Claims) {
	s.loggedOut = claims
}

func (s *stubAuthService) ForgotPassword(_ context.Context, _ string) error {
	s.forgotCalls++
	return s.forgotErr
}

func (s *stubAuthService) ResetPassword(_ context.Context, _ string, _ string) error {
	return s.resetErr
}

func newAuthTestApp(handler *AuthHandler) *fiber.App {
	app := fiber.New()
	auth := app.Group("/api/auth")
	auth.Post("/register", handler.Register)
	auth.Post("/login", handler.Login)
	auth.Post("/forgot-password", handler.ForgotPassword)
	auth.Post("/reset-password", handler.ResetPassword)
	auth.Post("/logout", func(c *fiber.Ctx) error {
		c.Locals(middleware.ClaimsLocal, &utils.Claims{UserID: "42"})
		return c.Next()
	}, handler.Logout)
	return app
}

func postJSON(t *testing.T, app *fiber.App, path, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	return resp
}

func tokenCookie(resp *http.Response) *http.Cookie {
	for _, cookie := range resp.Cookies() {
		if cookie.Name == middleware.TokenCookieName {
			return cookie
		}
	}
	return nil
}

func TestRegisterSetsTokenCookie(t *testing.T) {
	service := &stubAuthService{registerResult: &services.AuthResult{
		User:  &models.User{ID: 1, Name: "Ada", Role: models.RoleTutor},
		Token: "signed-token",
	}}
	app := newAuthTestApp(NewAuthHandler(service, time.Hour, false))

	resp := postJSON(t, app, "/api/auth/register", `{"name":"Ada","email":"ada@example.com","password":"secret123","role":"tutor"}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if service.lastRegister.Role != models.RoleTutor {
		t.Fatalf("expected role to be forwarded, got %q", service.lastRegister.Role)
	}
	cookie := tokenCookie(resp)
	if cookie == nil || cookie.Value != "signed-token" || !cookie.HttpOnly {
		t.Fatalf("expected http-only token cookie, got %+v", cookie)
	}
	if body := decodeBody(t, resp); body["token"] != "signed-token" {
		t.Fatalf("expected token in body, got %v", body["token"])
	}
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	service := &stubAuthService{}
	app := newAuthTestApp(NewAuthHandler(service, time.Hour, false))

	resp := postJSON(t, app, "/api/auth/register", `{"name":"Ada","email":"ada@example.com","password":"secret123","role":"admin"}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if body := decodeBody(t, resp); body["error"] != "Invalid input" {
		t.Fatalf("expected validation error, got %v", body["error"])
	}
}

func TestAuthErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   string
		setup  func(*stubAuthService)
		status int
	}{
		{
			name:   "duplicate email",
			path:   "/api/auth/register",
			body:   `{"name":"Ada","email":"ada@example.com","password":"secret123"}`,
			setup:  func(s *stubAuthService) { s.registerErr = services.ErrEmailTaken },
			status: http.StatusConflict,
		},
		{
			name:   "bad credentials",
			path:   "/api/auth/login",
			body:   `{"email":"ada@example.com","password":"wrong"}`,
			setup:  func(s *stubAuthService) { s.loginErr = services.ErrInvalidCredentials },
			status: http.StatusUnauthorized,
		},
		{
			name:   "expired reset token",
			path:   "/api/auth/reset-password",
			body:   `{"token":"abc","password":"newsecret1"}`,
			setup:  func(s *stubAuthService) { s.resetErr = services.ErrInvalidResetToken },
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := &stubAuthService{}
			tt.setup(service)
			app := newAuthTestApp(NewAuthHandler(service, time.Hour, false))

			resp := postJSON(t, app, tt.path, tt.body)
			defer resp.Body.Close()

			if resp.StatusCode != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, resp.StatusCode)
			}
		})
	}
}

func TestForgotPasswordAlwaysSucceeds(t *testing.T) {
	service := &stubAuthService{}
	app := newAuthTestApp(NewAuthHandler(service, time.Hour, false))

	resp := postJSON(t, app, "/api/auth/forgot-password", `{"email":"nobody@example.com"}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.forgotCalls != 1 {
		t.Fatalf("expected one forgot-password call, got %d", service.forgotCalls)
	}
}

func TestLogoutRevokesClaimsAndClearsCookie(t *testing.T) {
	service := &stubAuthService{}
	app := newAuthTestApp(NewAuthHandler(service, time.Hour, false))

	resp := postJSON(t, app, "/api/auth/logout", `{}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.loggedOut == nil || service.loggedOut.UserID != "42" {
		t.Fatalf("expected claims to be revoked, got %+v", service.loggedOut)
	}
	if cookie := tokenCookie(resp); cookie == nil || cookie.Value != "" {
		t.Fatalf("expected cleared token cookie, got %+v", cookie)
	}
}
