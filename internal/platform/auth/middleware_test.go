package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type stubVerifier struct {
	identity Identity
	err      error
}

func (s stubVerifier) Verify(string) (Identity, error) {
	return s.identity, s.err
}

func okHandler(captured *Identity) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if captured != nil {
			identity, _ := IdentityFromContext(r.Context())
			*captured = identity
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuthMissingToken(t *testing.T) {
	authn, err := NewAuthenticator(stubVerifier{})
	if err != nil {
		t.Fatalf("NewAuthenticator returned error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/orders/jo@example.com", nil)
	rec := httptest.NewRecorder()
	authn.RequireAuth()(okHandler(nil)).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"success":false`) {
		t.Fatalf("expected failure envelope, got %s", rec.Body.String())
	}
}

func TestRequireAuthReadsCookie(t *testing.T) {
	var captured Identity
	authn, err := NewAuthenticator(stubVerifier{identity: Identity{UserID: "user-1", Role: RoleUser}})
	if err != nil {
		t.Fatalf("NewAuthenticator returned error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/orders/jo@example.com", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "session-token"})
	rec := httptest.NewRecorder()
	authn.RequireAuth()(okHandler(&captured)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if captured.UserID != "user-1" {
		t.Fatalf("expected identity on context, got %+v", captured)
	}
}

func TestRequireAuthReadsBearerHeader(t *testing.T) {
	authn, err := NewAuthenticator(stubVerifier{identity: Identity{UserID: "user-1", Role: RoleUser}})
	if err != nil {
		t.Fatalf("NewAuthenticator returned error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/orders/jo@example.com", nil)
	req.Header.Set("Authorization", "Bearer session-token")
	rec := httptest.NewRecorder()
	authn.RequireAuth()(okHandler(nil)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRequireAuthInvalidToken(t *testing.T) {
	authn, err := NewAuthenticator(stubVerifier{err: ErrTokenInvalid})
	if err != nil {
		t.Fatalf("NewAuthenticator returned error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/orders/jo@example.com", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "broken"})
	rec := httptest.NewRecorder()
	authn.RequireAuth()(okHandler(nil)).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireAdminRejectsUserRole(t *testing.T) {
	authn, err := NewAuthenticator(stubVerifier{identity: Identity{UserID: "user-1", Role: RoleUser}})
	if err != nil {
		t.Fatalf("NewAuthenticator returned error: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/orders/delete-order/o1", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "session-token"})
	rec := httptest.NewRecorder()
	authn.RequireAdmin()(okHandler(nil)).ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestRequireAdminAllowsAdminRole(t *testing.T) {
	authn, err := NewAuthenticator(stubVerifier{identity: Identity{UserID: "admin-1", Role: RoleAdmin}})
	if err != nil {
		t.Fatalf("NewAuthenticator returned error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "session-token"})
	rec := httptest.NewRecorder()
	authn.RequireAdmin()(okHandler(nil)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
