package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	pkgauth "github.com/mediadesk/mediadesk-backend/pkg/auth"
	"github.com/mediadesk/mediadesk-backend/pkg/config"
	"github.com/mediadesk/mediadesk-backend/pkg/enums"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "mediadesk-test",
		ExpirationMinutes: 30,
	}
}

func mintTestToken(t *testing.T, cfg config.JWTConfig, role enums.StaffRole) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg, time.Now().UTC(), pkgauth.AccessTokenPayload{
		StaffID: uuid.New(),
		Name:    "Dana Cole",
		Email:   "dana@library.example.edu",
		Role:    role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestAuthRejectsMissingToken(t *testing.T) {
	handler := Auth(testJWTConfig(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/reservations", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthRejectsGarbageToken(t *testing.T) {
	handler := Auth(testJWTConfig(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reservations", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthSeedsStaffContext(t *testing.T) {
	cfg := testJWTConfig()
	var gotRole, gotEmail string
	handler := Auth(cfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRole = RoleFromContext(r.Context())
		gotEmail = StaffEmailFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reservations", nil)
	req.Header.Set("Authorization", "Bearer "+mintTestToken(t, cfg, enums.StaffRoleAdmin))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotRole != "admin" {
		t.Fatalf("expected admin role in context, got %q", gotRole)
	}
	if gotEmail != "dana@library.example.edu" {
		t.Fatalf("unexpected email in context: %q", gotEmail)
	}
}

func TestRequireRoleBlocksMismatch(t *testing.T) {
	handler := RequireRole("admin", nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/reservations/abc", nil)
	req = req.WithContext(WithStaff(req.Context(), uuid.NewString(), "Sam", "sam@library.example.edu", "staff"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}
