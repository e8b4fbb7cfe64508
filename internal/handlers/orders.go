package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/velora-shop/api/internal/platform/auth"
	"github.com/velora-shop/api/internal/platform/httpx"
	"github.com/velora-shop/api/internal/services"
)

const maxOrderBodySize = 64 * 1024

type checkoutItemRequest struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Image     string  `json:"image"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

type createCheckoutSessionRequest struct {
	Products []checkoutItemRequest `json:"products"`
	UserID   string                `json:"userId"`
	Email    string                `json:"email"`
}

type confirmPaymentRequest struct {
	SessionID string `json:"session_id"`
}

type updateOrderStatusRequest struct {
	Status string `json:"status"`
}

// OrderHandlers exposes checkout and order endpoints.
type OrderHandlers struct {
	authn    *auth.Authenticator
	checkout services.CheckoutService
	orders   services.OrderService
}

// NewOrderHandlers constructs a new OrderHandlers instance.
func NewOrderHandlers(authn *auth.Authenticator, checkout services.CheckoutService, orders services.OrderService) *OrderHandlers {
	return &OrderHandlers{
		authn:    authn,
		checkout: checkout,
		orders:   orders,
	}
}

// Routes registers the /orders endpoints.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/create-checkout-session", h.createCheckoutSession)
	r.Post("/confirm-payment", h.confirmPayment)

	r.Group(func(user chi.Router) {
		if h.authn != nil {
			user.Use(h.authn.RequireAuth())
		}
		user.Get("/order/{orderID}", h.getOrder)
		user.Get("/{email}", h.listOrdersByEmail)
	})

	r.Group(func(admin chi.Router) {
		if h.authn != nil {
			admin.Use(h.authn.RequireAdmin())
		}
		admin.Get("/", h.listAllOrders)
		admin.Patch("/update-order-status/{orderID}", h.updateOrderStatus)
		admin.Delete("/delete-order/{orderID}", h.deleteOrder)
	})
}

// createCheckoutSession answers with the bare {id,url} pair because the
// browser client hands the id straight to the hosted checkout redirect.
func (h *OrderHandlers) createCheckoutSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout unavailable", http.StatusServiceUnavailable))
		return
	}

	var req createCheckoutSessionRequest
	if !decodeBody(ctx, w, r, &req) {
		return
	}
	if len(req.Products) == 0 {
		httpx.WriteError(ctx, w, httpx.NewError("products are required", http.StatusBadRequest))
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("userId is required", http.StatusBadRequest))
		return
	}

	items := make([]services.CheckoutItemInput, 0, len(req.Products))
	for _, product := range req.Products {
		items = append(items, services.CheckoutItemInput{
			ProductID: product.ProductID,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  product.Quantity,
		})
	}

	session, err := h.checkout.StartCheckout(ctx, services.StartCheckoutCommand{
		Email:  req.Email,
		UserID: req.UserID,
		Items:  items,
	})
	if err != nil {
		writeCheckoutError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"id":  session.ID,
		"url": session.URL,
	})
}

func (h *OrderHandlers) confirmPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout unavailable", http.StatusServiceUnavailable))
		return
	}

	var req confirmPaymentRequest
	if !decodeBody(ctx, w, r, &req) {
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("session_id is required", http.StatusBadRequest))
		return
	}

	order, err := h.checkout.ConfirmCheckout(ctx, services.ConfirmCheckoutCommand{SessionID: req.SessionID})
	if err != nil {
		writeCheckoutError(ctx, w, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, "payment confirmed", buildOrderPayload(order))
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("orders unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	order, err := h.orders.GetOrder(ctx, orderID)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, "order found", buildOrderPayload(order))
}

func (h *OrderHandlers) listOrdersByEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("orders unavailable", http.StatusServiceUnavailable))
		return
	}

	email := strings.TrimSpace(chi.URLParam(r, "email"))
	orders, err := h.orders.ListOrdersByEmail(ctx, email)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	if len(orders) == 0 {
		httpx.WriteError(ctx, w, httpx.NewError("no orders found", http.StatusNotFound))
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, "orders found", buildOrderPayloads(orders))
}

func (h *OrderHandlers) listAllOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("orders unavailable", http.StatusServiceUnavailable))
		return
	}

	orders, err := h.orders.ListAllOrders(ctx)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	if len(orders) == 0 {
		httpx.WriteError(ctx, w, httpx.NewError("no orders found", http.StatusNotFound))
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, "orders found", buildOrderPayloads(orders))
}

func (h *OrderHandlers) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("orders unavailable", http.StatusServiceUnavailable))
		return
	}

	var req updateOrderStatusRequest
	if !decodeBody(ctx, w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Status) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("status is required", http.StatusBadRequest))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	order, err := h.orders.SetOrderStatus(ctx, orderID, req.Status)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, "order status updated", buildOrderPayload(order))
}

func (h *OrderHandlers) deleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("orders unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if err := h.orders.DeleteOrder(ctx, orderID); err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, "order deleted", nil)
}

func writeCheckoutError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCheckoutInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid checkout request", http.StatusBadRequest))
	case errors.Is(err, services.ErrCheckoutSessionNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("checkout session not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCheckoutNotSettled):
		httpx.WriteError(ctx, w, httpx.NewError("payment has not settled yet", http.StatusConflict))
	case errors.Is(err, services.ErrCheckoutPaymentFailed):
		httpx.WriteError(ctx, w, httpx.NewError("could not create checkout session", http.StatusBadGateway))
	case errors.Is(err, services.ErrCheckoutUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("checkout unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal server error", http.StatusInternalServerError))
	}
}

func writeOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrOrderInvalidInput), errors.Is(err, services.ErrOrderInvalidStatus):
		httpx.WriteError(ctx, w, httpx.NewError("invalid order request", http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("orders unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal server error", http.StatusInternalServerError))
	}
}

// decodeBody reads a size-capped JSON body, writing the 400 envelope itself
// when decoding fails.
func decodeBody(ctx context.Context, w http.ResponseWriter, r *http.Request, dst any) bool {
	return decodeBodyLimit(ctx, w, r, dst, maxOrderBodySize)
}

func decodeBodyLimit(ctx context.Context, w http.ResponseWriter, r *http.Request, dst any, limit int64) bool {
	body := http.MaxBytesReader(w, r.Body, limit)
	defer func() {
		_ = body.Close()
	}()

	decoder := json.NewDecoder(body)
	if err := decoder.Decode(dst); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid request body", http.StatusBadRequest))
		return false
	}
	return true
}
