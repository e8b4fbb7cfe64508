package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/velora-shop/api/internal/platform/auth"
	"github.com/velora-shop/api/internal/platform/httpx"
	"github.com/velora-shop/api/internal/repositories"
	"github.com/velora-shop/api/internal/services"
)

type productRequest struct {
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	OldPrice    float64 `json:"oldPrice"`
	Image       string  `json:"image"`
	Color       string  `json:"color"`
}

type productDetailsPayload struct {
	productPayload
	Reviews []reviewPayload `json:"reviews"`
}

// ProductHandlers exposes the catalog endpoints.
type ProductHandlers struct {
	authn    *auth.Authenticator
	products services.ProductService
}

// NewProductHandlers constructs a new ProductHandlers instance.
func NewProductHandlers(authn *auth.Authenticator, products services.ProductService) *ProductHandlers {
	return &ProductHandlers{
		authn:    authn,
		products: products,
	}
}

// Routes registers the /products endpoints.
func (h *ProductHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listProducts)
	r.Get("/{productID}", h.getProduct)

	r.Group(func(admin chi.Router) {
		if h.authn != nil {
			admin.Use(h.authn.RequireAdmin())
		}
		admin.Post("/create-product", h.createProduct)
		admin.Patch("/update-product/{productID}", h.updateProduct)
		admin.Delete("/{productID}", h.deleteProduct)
	})
}

func (h *ProductHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.products == nil {
		httpx.WriteError(ctx, w, httpx.NewError("products unavailable", http.StatusServiceUnavailable))
		return
	}

	products, err := h.products.ListProducts(ctx, repositories.ProductListFilter{})
	if err != nil {
		writeProductError(ctx, w, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, "products found", buildProductPayloads(products))
}

func (h *ProductHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.products == nil {
		httpx.WriteError(ctx, w, httpx.NewError("products unavailable", http.StatusServiceUnavailable))
		return
	}

	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	details, err := h.products.GetProduct(ctx, productID)
	if err != nil {
		writeProductError(ctx, w, err)
		return
	}

	payload := productDetailsPayload{
		productPayload: buildProductPayload(details.Product),
		Reviews:        buildReviewPayloads(details.Reviews),
	}
	httpx.WriteSuccess(w, http.StatusOK, "product found", payload)
}

func (h *ProductHandlers) createProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.products == nil {
		httpx.WriteError(ctx, w, httpx.NewError("products unavailable", http.StatusServiceUnavailable))
		return
	}

	var req productRequest
	if !decodeBody(ctx, w, r, &req) {
		return
	}

	identity, _ := auth.IdentityFromContext(ctx)
	product, err := h.products.CreateProduct(ctx, services.ProductCommand{
		Name:        req.Name,
		Category:    req.Category,
		Description: req.Description,
		Price:       req.Price,
		OldPrice:    req.OldPrice,
		Image:       req.Image,
		Color:       req.Color,
		AuthorRef:   identity.UserID,
	})
	if err != nil {
		writeProductError(ctx, w, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusCreated, "product created", buildProductPayload(product))
}

func (h *ProductHandlers) updateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.products == nil {
		httpx.WriteError(ctx, w, httpx.NewError("products unavailable", http.StatusServiceUnavailable))
		return
	}

	var req productRequest
	if !decodeBody(ctx, w, r, &req) {
		return
	}

	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	product, err := h.products.UpdateProduct(ctx, productID, services.ProductCommand{
		Name:        req.Name,
		Category:    req.Category,
		Description: req.Description,
		Price:       req.Price,
		OldPrice:    req.OldPrice,
		Image:       req.Image,
		Color:       req.Color,
	})
	if err != nil {
		writeProductError(ctx, w, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, "product updated", buildProductPayload(product))
}

func (h *ProductHandlers) deleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.products == nil {
		httpx.WriteError(ctx, w, httpx.NewError("products unavailable", http.StatusServiceUnavailable))
		return
	}

	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	if err := h.products.DeleteProduct(ctx, productID); err != nil {
		writeProductError(ctx, w, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, "product deleted", nil)
}

func writeProductError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrProductInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid product request", http.StatusBadRequest))
	case errors.Is(err, services.ErrProductNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product not found", http.StatusNotFound))
	case errors.Is(err, services.ErrProductUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("products unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal server error", http.StatusInternalServerError))
	}
}
