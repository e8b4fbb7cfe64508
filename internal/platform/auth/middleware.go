package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/velora-shop/api/internal/platform/httpx"
)

const defaultCookieName = "token"

// Verifier validates session tokens and resolves the embedded identity.
type Verifier interface {
	Verify(token string) (Identity, error)
}

// Authenticator wires session token verification into HTTP middleware.
// Tokens are read from the session cookie first, then the Authorization header.
type Authenticator struct {
	verifier   Verifier
	cookieName string
}

// AuthenticatorOption customises Authenticator behaviour.
type AuthenticatorOption func(*Authenticator)

// WithCookieName overrides the session cookie consulted for tokens.
func WithCookieName(name string) AuthenticatorOption {
	return func(a *Authenticator) {
		if strings.TrimSpace(name) != "" {
			a.cookieName = strings.TrimSpace(name)
		}
	}
}

// NewAuthenticator constructs an Authenticator for middleware composition.
func NewAuthenticator(verifier Verifier, opts ...AuthenticatorOption) (*Authenticator, error) {
	if verifier == nil {
		return nil, errors.New("auth: verifier is required")
	}
	a := &Authenticator{
		verifier:   verifier,
		cookieName: defaultCookieName,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a, nil
}

// RequireAuth verifies the session token and stores the identity on the context.
func (a *Authenticator) RequireAuth() func(http.Handler) http.Handler {
	return a.require()
}

// RequireAdmin verifies the session token and rejects non-admin identities.
func (a *Authenticator) RequireAdmin() func(http.Handler) http.Handler {
	return a.require(RoleAdmin)
}

func (a *Authenticator) require(allowedRoles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, role := range allowedRoles {
		role = normaliseRole(role)
		if role != "" {
			allowed[role] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			tokenStr, ok := a.extractToken(r)
			if !ok {
				httpx.WriteError(ctx, w, httpx.NewError("authentication required", http.StatusUnauthorized))
				return
			}

			identity, err := a.verifier.Verify(tokenStr)
			if err != nil {
				message := "invalid token"
				if errors.Is(err, ErrTokenExpired) {
					message = "token expired"
				}
				httpx.WriteError(ctx, w, httpx.NewError(message, http.StatusUnauthorized))
				return
			}

			if len(allowed) > 0 {
				if _, ok := allowed[normaliseRole(identity.Role)]; !ok {
					httpx.WriteError(ctx, w, httpx.NewError("you are not authorized to perform this action", http.StatusForbidden))
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, identity)))
		})
	}
}

func (a *Authenticator) extractToken(r *http.Request) (string, bool) {
	if cookie, err := r.Cookie(a.cookieName); err == nil {
		if token := strings.TrimSpace(cookie.Value); token != "" {
			return token, true
		}
	}
	return extractBearerToken(r.Header.Get("Authorization"))
}

func extractBearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}

// SessionCookie builds the HTTP cookie carrying the session token.
func SessionCookie(name, token string, maxAge int, secure bool) *http.Cookie {
	if strings.TrimSpace(name) == "" {
		name = defaultCookieName
	}
	return &http.Cookie{
		Name:     name,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteNoneMode,
	}
}

// ClearSessionCookie builds an expired cookie that removes the session token.
func ClearSessionCookie(name string, secure bool) *http.Cookie {
	cookie := SessionCookie(name, "", -1, secure)
	return cookie
}
