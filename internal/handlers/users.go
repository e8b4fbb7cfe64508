package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/velora-shop/api/internal/platform/auth"
	"github.com/velora-shop/api/internal/platform/httpx"
	"github.com/velora-shop/api/internal/services"
)

// TokenIssuer signs session tokens for authenticated identities.
type TokenIssuer interface {
	Issue(identity auth.Identity) (string, error)
	TTL() time.Duration
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

type editProfileRequest struct {
	Username     string `json:"username"`
	ProfileImage string `json:"profileImage"`
	Bio          string `json:"bio"`
	Profession   string `json:"profession"`
}

// AuthHandlers exposes registration, login, and account administration.
type AuthHandlers struct {
	authn        *auth.Authenticator
	users        services.UserService
	tokens       TokenIssuer
	cookieName   string
	cookieSecure bool
}

// AuthHandlersDeps wires the dependencies required by the auth handlers.
type AuthHandlersDeps struct {
	Authenticator *auth.Authenticator
	Users         services.UserService
	Tokens        TokenIssuer
	CookieName    string
	CookieSecure  bool
}

// NewAuthHandlers constructs a new AuthHandlers instance.
func NewAuthHandlers(deps AuthHandlersDeps) *AuthHandlers {
	return &AuthHandlers{
		authn:        deps.Authenticator,
		users:        deps.Users,
		tokens:       deps.Tokens,
		cookieName:   deps.CookieName,
		cookieSecure: deps.CookieSecure,
	}
}

// Routes registers the /auth endpoints.
func (h *AuthHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/register", h.register)
	r.Post("/login", h.login)
	r.Post("/logout", h.logout)

	r.Group(func(user chi.Router) {
		if h.authn != nil {
			user.Use(h.authn.RequireAuth())
		}
		user.Patch("/edit-profile/{userID}", h.editProfile)
	})

	r.Group(func(admin chi.Router) {
		if h.authn != nil {
			admin.Use(h.authn.RequireAdmin())
		}
		admin.Get("/users", h.listUsers)
		admin.Put("/users/{userID}", h.updateRole)
		admin.Delete("/users/{userID}", h.deleteUser)
	})
}

func (h *AuthHandlers) register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.users == nil {
		httpx.WriteError(ctx, w, httpx.NewError("users unavailable", http.StatusServiceUnavailable))
		return
	}

	var req registerRequest
	if !decodeBody(ctx, w, r, &req) {
		return
	}

	user, err := h.users.Register(ctx, services.RegisterCommand{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeUserError(ctx, w, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusCreated, "account created", buildUserPayload(user))
}

// login verifies the credentials, issues a session token, and sets it as the
// session cookie so the browser client stays logged in.
func (h *AuthHandlers) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.users == nil || h.tokens == nil {
		httpx.WriteError(ctx, w, httpx.NewError("users unavailable", http.StatusServiceUnavailable))
		return
	}

	var req loginRequest
	if !decodeBody(ctx, w, r, &req) {
		return
	}

	user, err := h.users.Login(ctx, services.LoginCommand{Email: req.Email, Password: req.Password})
	if err != nil {
		writeUserError(ctx, w, err)
		return
	}

	token, err := h.tokens.Issue(auth.Identity{
		UserID: user.ID,
		Email:  user.Email,
		Role:   string(user.Role),
	})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("internal server error", http.StatusInternalServerError))
		return
	}

	maxAge := int(h.tokens.TTL() / time.Second)
	http.SetCookie(w, auth.SessionCookie(h.cookieName, token, maxAge, h.cookieSecure))
	httpx.WriteSuccess(w, http.StatusOK, "logged in", buildUserPayload(user))
}

func (h *AuthHandlers) logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, auth.ClearSessionCookie(h.cookieName, h.cookieSecure))
	httpx.WriteSuccess(w, http.StatusOK, "logged out", nil)
}

func (h *AuthHandlers) listUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.users == nil {
		httpx.WriteError(ctx, w, httpx.NewError("users unavailable", http.StatusServiceUnavailable))
		return
	}

	users, err := h.users.ListUsers(ctx)
	if err != nil {
		writeUserError(ctx, w, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, "users found", buildUserPayloads(users))
}

func (h *AuthHandlers) updateRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.users == nil {
		httpx.WriteError(ctx, w, httpx.NewError("users unavailable", http.StatusServiceUnavailable))
		return
	}

	var req updateRoleRequest
	if !decodeBody(ctx, w, r, &req) {
		return
	}

	userID := strings.TrimSpace(chi.URLParam(r, "userID"))
	user, err := h.users.UpdateRole(ctx, userID, req.Role)
	if err != nil {
		writeUserError(ctx, w, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, "role updated", buildUserPayload(user))
}

func (h *AuthHandlers) deleteUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.users == nil {
		httpx.WriteError(ctx, w, httpx.NewError("users unavailable", http.StatusServiceUnavailable))
		return
	}

	userID := strings.TrimSpace(chi.URLParam(r, "userID"))
	if err := h.users.DeleteUser(ctx, userID); err != nil {
		writeUserError(ctx, w, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, "user deleted", nil)
}

// editProfile updates the caller's own account; only admins may target
// another user through the path parameter.
func (h *AuthHandlers) editProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.users == nil {
		httpx.WriteError(ctx, w, httpx.NewError("users unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("authentication required", http.StatusUnauthorized))
		return
	}

	userID := strings.TrimSpace(chi.URLParam(r, "userID"))
	if userID != "" && userID != identity.UserID && !identity.IsAdmin() {
		httpx.WriteError(ctx, w, httpx.NewError("you are not authorized to perform this action", http.StatusForbidden))
		return
	}
	if userID == "" || !identity.IsAdmin() {
		userID = identity.UserID
	}

	var req editProfileRequest
	if !decodeBody(ctx, w, r, &req) {
		return
	}

	user, err := h.users.UpdateProfile(ctx, services.UpdateProfileCommand{
		UserID:       userID,
		Username:     req.Username,
		ProfileImage: req.ProfileImage,
		Bio:          req.Bio,
		Profession:   req.Profession,
	})
	if err != nil {
		writeUserError(ctx, w, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, "profile updated", buildUserPayload(user))
}

func writeUserError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrUserInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid user request", http.StatusBadRequest))
	case errors.Is(err, services.ErrUserInvalidCredentials):
		httpx.WriteError(ctx, w, httpx.NewError("invalid email or password", http.StatusUnauthorized))
	case errors.Is(err, services.ErrUserEmailTaken):
		httpx.WriteError(ctx, w, httpx.NewError("email already registered", http.StatusConflict))
	case errors.Is(err, services.ErrUserNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("user not found", http.StatusNotFound))
	case errors.Is(err, services.ErrUserUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("users unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal server error", http.StatusInternalServerError))
	}
}
