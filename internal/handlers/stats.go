package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/velora-shop/api/internal/platform/auth"
	"github.com/velora-shop/api/internal/platform/httpx"
	"github.com/velora-shop/api/internal/services"
)

// StatsHandlers exposes the aggregate metrics endpoints.
type StatsHandlers struct {
	authn *auth.Authenticator
	stats services.StatsService
}

// NewStatsHandlers constructs a new StatsHandlers instance.
func NewStatsHandlers(authn *auth.Authenticator, stats services.StatsService) *StatsHandlers {
	return &StatsHandlers{
		authn: authn,
		stats: stats,
	}
}

// Routes registers the /stats endpoints.
func (h *StatsHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Group(func(user chi.Router) {
		if h.authn != nil {
			user.Use(h.authn.RequireAuth())
		}
		user.Get("/user-stats/{email}", h.userStats)
	})

	r.Group(func(admin chi.Router) {
		if h.authn != nil {
			admin.Use(h.authn.RequireAdmin())
		}
		admin.Get("/admin-stats", h.adminStats)
	})
}

func (h *StatsHandlers) userStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.stats == nil {
		httpx.WriteError(ctx, w, httpx.NewError("stats unavailable", http.StatusServiceUnavailable))
		return
	}

	email := strings.TrimSpace(chi.URLParam(r, "email"))
	stats, err := h.stats.UserStats(ctx, email)
	if err != nil {
		writeStatsError(ctx, w, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, "user stats", userStatsPayload{
		TotalPayments:  stats.TotalPayments,
		TotalReviews:   stats.TotalReviews,
		TotalPurchases: stats.TotalPurchases,
	})
}

func (h *StatsHandlers) adminStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.stats == nil {
		httpx.WriteError(ctx, w, httpx.NewError("stats unavailable", http.StatusServiceUnavailable))
		return
	}

	stats, err := h.stats.AdminStats(ctx)
	if err != nil {
		writeStatsError(ctx, w, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, "admin stats", buildAdminStatsPayload(stats))
}

func writeStatsError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrStatsInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid stats request", http.StatusBadRequest))
	case errors.Is(err, services.ErrStatsUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("stats unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal server error", http.StatusInternalServerError))
	}
}
