package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/velora-shop/api/internal/platform/auth"
	"github.com/velora-shop/api/internal/platform/httpx"
)

const (
	defaultAPIPrefix = "/api"
	defaultTimeout   = 60 * time.Second
)

type routerConfig struct {
	basePath    string
	middlewares []func(http.Handler) http.Handler

	health   *HealthHandlers
	orders   *OrderHandlers
	authSet  *AuthHandlers
	products *ProductHandlers
	reviews  *ReviewHandlers
	stats    *StatsHandlers
	uploads  *UploadHandlers
	authn    *auth.Authenticator
}

// Option customises the router configuration before construction.
type Option func(*routerConfig)

// NewRouter constructs the chi router with shared middleware and all route groups.
func NewRouter(opts ...Option) chi.Router {
	cfg := routerConfig{
		basePath: defaultAPIPrefix,
		middlewares: []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Timeout(defaultTimeout),
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.health == nil {
		cfg.health = NewHealthHandlers()
	}

	r := chi.NewRouter()
	for _, mw := range cfg.middlewares {
		if mw != nil {
			r.Use(mw)
		}
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError(fmt.Sprintf("no route for %s", req.URL.Path), http.StatusNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError(fmt.Sprintf("method %s not allowed on %s", req.Method, req.URL.Path), http.StatusMethodNotAllowed))
	})

	r.Get("/healthz", cfg.health.Healthz)
	r.Get("/readyz", cfg.health.Readyz)

	r.Route(cfg.basePath, func(api chi.Router) {
		if cfg.orders != nil {
			api.Route("/orders", cfg.orders.Routes)
		}
		if cfg.authSet != nil {
			api.Route("/auth", cfg.authSet.Routes)
		}
		if cfg.products != nil {
			api.Route("/products", cfg.products.Routes)
		}
		if cfg.reviews != nil {
			api.Route("/reviews", cfg.reviews.Routes)
		}
		if cfg.stats != nil {
			api.Route("/stats", cfg.stats.Routes)
		}
		if cfg.uploads != nil {
			api.Group(func(admin chi.Router) {
				if cfg.authn != nil {
					admin.Use(cfg.authn.RequireAdmin())
				}
				admin.Post("/uploadImage", cfg.uploads.UploadImage)
			})
		}
	})

	return r
}

// WithMiddlewares appends additional global middleware to the router.
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithHealthHandlers overrides the handlers behind /healthz and /readyz.
func WithHealthHandlers(h *HealthHandlers) Option {
	return func(cfg *routerConfig) {
		cfg.health = h
	}
}

// WithOrderHandlers mounts the /api/orders group.
func WithOrderHandlers(h *OrderHandlers) Option {
	return func(cfg *routerConfig) {
		cfg.orders = h
	}
}

// WithAuthHandlers mounts the /api/auth group.
func WithAuthHandlers(h *AuthHandlers) Option {
	return func(cfg *routerConfig) {
		cfg.authSet = h
	}
}

// WithProductHandlers mounts the /api/products group.
func WithProductHandlers(h *ProductHandlers) Option {
	return func(cfg *routerConfig) {
		cfg.products = h
	}
}

// WithReviewHandlers mounts the /api/reviews group.
func WithReviewHandlers(h *ReviewHandlers) Option {
	return func(cfg *routerConfig) {
		cfg.reviews = h
	}
}

// WithStatsHandlers mounts the /api/stats group.
func WithStatsHandlers(h *StatsHandlers) Option {
	return func(cfg *routerConfig) {
		cfg.stats = h
	}
}

// WithUploadHandlers mounts POST /api/uploadImage, admin gated when an
// authenticator is supplied via WithAuthenticator.
func WithUploadHandlers(h *UploadHandlers) Option {
	return func(cfg *routerConfig) {
		cfg.uploads = h
	}
}

// WithAuthenticator supplies the authenticator guarding router-level routes.
func WithAuthenticator(authn *auth.Authenticator) Option {
	return func(cfg *routerConfig) {
		cfg.authn = authn
	}
}
