package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func doRequest(t *testing.T, mw echo.MiddlewareFunc, authHeader string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := mw(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	return rec, handler(c)
}

func TestMiddleware_ValidToken(t *testing.T) {
	ti := testIssuer(time.Hour)
	accountID := uuid.New()
	token, _, err := ti.Issue(accountID, RoleLab)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var gotID uuid.UUID
	var gotRole string
	handler := Middleware(ti)(func(c echo.Context) error {
		gotID = AccountIDFromContext(c.Request().Context())
		gotRole = RoleFromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotID != accountID {
		t.Errorf("expected account id %s, got %s", accountID, gotID)
	}
	if gotRole != RoleLab {
		t.Errorf("expected role lab, got %s", gotRole)
	}
}

func TestMiddleware_MissingHeader(t *testing.T) {
	ti := testIssuer(time.Hour)
	_, err := doRequest(t, Middleware(ti), "")
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}

func TestMiddleware_BadScheme(t *testing.T) {
	ti := testIssuer(time.Hour)
	_, err := doRequest(t, Middleware(ti), "Basic abc123")
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}

func TestMiddleware_InvalidToken(t *testing.T) {
	ti := testIssuer(time.Hour)
	_, err := doRequest(t, Middleware(ti), "Bearer garbage")
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	handler := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	run := func(role string, mw echo.MiddlewareFunc) error {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetRequest(req.WithContext(WithIdentity(req.Context(), uuid.New(), role)))
		return mw(handler)(c)
	}

	if err := run(RoleDoctor, RequireRole(RoleDoctor)); err != nil {
		t.Errorf("doctor should pass doctor check: %v", err)
	}
	if err := run(RoleAdmin, RequireRole(RoleDoctor)); err != nil {
		t.Errorf("admin should pass every check: %v", err)
	}
	if err := run(RolePatient, RequireRole(RoleDoctor, RoleLab)); err == nil {
		t.Error("patient should not pass doctor/lab check")
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !CheckPassword(hash, "correct horse battery") {
		t.Error("expected password to match")
	}
	if CheckPassword(hash, "wrong password") {
		t.Error("expected mismatch for wrong password")
	}
}

func TestHashPassword_TooShort(t *testing.T) {
	if _, err := HashPassword("short"); err == nil {
		t.Error("expected error for short password")
	}
}
