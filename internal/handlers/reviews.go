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

type createReviewRequest struct {
	Comment   string  `json:"comment"`
	Rating    float64 `json:"rating"`
	ProductID string  `json:"productId"`
}

type reviewResultPayload struct {
	Review  reviewPayload  `json:"review"`
	Product productPayload `json:"product"`
}

// ReviewHandlers exposes the review endpoints.
type ReviewHandlers struct {
	authn   *auth.Authenticator
	reviews services.ReviewService
}

// NewReviewHandlers constructs a new ReviewHandlers instance.
func NewReviewHandlers(authn *auth.Authenticator, reviews services.ReviewService) *ReviewHandlers {
	return &ReviewHandlers{
		authn:   authn,
		reviews: reviews,
	}
}

// Routes registers the /reviews endpoints.
func (h *ReviewHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/total-reviews", h.totalReviews)

	r.Group(func(user chi.Router) {
		if h.authn != nil {
			user.Use(h.authn.RequireAuth())
		}
		user.Post("/create-review", h.createReview)
		user.Get("/{userID}", h.listUserReviews)
	})
}

// createReview takes the reviewer from the verified identity, never from the
// request body.
func (h *ReviewHandlers) createReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.reviews == nil {
		httpx.WriteError(ctx, w, httpx.NewError("reviews unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("authentication required", http.StatusUnauthorized))
		return
	}

	var req createReviewRequest
	if !decodeBody(ctx, w, r, &req) {
		return
	}

	result, err := h.reviews.SubmitReview(ctx, services.SubmitReviewCommand{
		Comment:   req.Comment,
		Rating:    req.Rating,
		UserID:    identity.UserID,
		ProductID: req.ProductID,
	})
	if err != nil {
		writeReviewError(ctx, w, err)
		return
	}

	payload := reviewResultPayload{
		Review:  buildReviewPayload(result.Review),
		Product: buildProductPayload(result.Product),
	}
	httpx.WriteSuccess(w, http.StatusCreated, "review saved", payload)
}

func (h *ReviewHandlers) listUserReviews(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.reviews == nil {
		httpx.WriteError(ctx, w, httpx.NewError("reviews unavailable", http.StatusServiceUnavailable))
		return
	}

	userID := strings.TrimSpace(chi.URLParam(r, "userID"))
	reviews, err := h.reviews.ListUserReviews(ctx, userID)
	if err != nil {
		writeReviewError(ctx, w, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, "reviews found", buildReviewPayloads(reviews))
}

func (h *ReviewHandlers) totalReviews(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.reviews == nil {
		httpx.WriteError(ctx, w, httpx.NewError("reviews unavailable", http.StatusServiceUnavailable))
		return
	}

	count, err := h.reviews.CountReviews(ctx)
	if err != nil {
		writeReviewError(ctx, w, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, "total reviews", map[string]int64{"total": count})
}

func writeReviewError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrReviewInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid review request", http.StatusBadRequest))
	case errors.Is(err, services.ErrReviewProductNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product not found", http.StatusNotFound))
	case errors.Is(err, services.ErrReviewUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("reviews unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal server error", http.StatusInternalServerError))
	}
}
