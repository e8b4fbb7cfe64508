package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/velora-shop/api/internal/domain"
	"github.com/velora-shop/api/internal/platform/auth"
	"github.com/velora-shop/api/internal/services"
)

type stubVerifier struct {
	identities map[string]auth.Identity
}

func (v *stubVerifier) Verify(token string) (auth.Identity, error) {
	identity, ok := v.identities[token]
	if !ok {
		return auth.Identity{}, auth.ErrTokenInvalid
	}
	return identity, nil
}

func testAuthenticator(t *testing.T) *auth.Authenticator {
	t.Helper()
	verifier := &stubVerifier{identities: map[string]auth.Identity{
		"user-token":  {UserID: "user-1", Email: "jo@example.com", Role: auth.RoleUser},
		"admin-token": {UserID: "admin-1", Email: "boss@example.com", Role: auth.RoleAdmin},
	}}
	authn, err := auth.NewAuthenticator(verifier)
	if err != nil {
		t.Fatalf("NewAuthenticator returned error: %v", err)
	}
	return authn
}

type stubCheckoutService struct {
	session    services.CheckoutSession
	order      domain.Order
	startErr   error
	confirmErr error
	startCmd   services.StartCheckoutCommand
}

func (s *stubCheckoutService) StartCheckout(_ context.Context, cmd services.StartCheckoutCommand) (services.CheckoutSession, error) {
	s.startCmd = cmd
	if s.startErr != nil {
		return services.CheckoutSession{}, s.startErr
	}
	return s.session, nil
}

func (s *stubCheckoutService) ConfirmCheckout(context.Context, services.ConfirmCheckoutCommand) (domain.Order, error) {
	if s.confirmErr != nil {
		return domain.Order{}, s.confirmErr
	}
	return s.order, nil
}

type stubOrderService struct {
	order     domain.Order
	orders    []domain.Order
	getErr    error
	listErr   error
	setErr    error
	deleteErr error
	setStatus string
}

func (s *stubOrderService) GetOrder(context.Context, string) (domain.Order, error) {
	if s.getErr != nil {
		return domain.Order{}, s.getErr
	}
	return s.order, nil
}

func (s *stubOrderService) ListOrdersByEmail(context.Context, string) ([]domain.Order, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.orders, nil
}

func (s *stubOrderService) ListAllOrders(context.Context) ([]domain.Order, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.orders, nil
}

func (s *stubOrderService) SetOrderStatus(_ context.Context, _ string, status string) (domain.Order, error) {
	s.setStatus = status
	if s.setErr != nil {
		return domain.Order{}, s.setErr
	}
	return s.order, nil
}

func (s *stubOrderService) DeleteOrder(context.Context, string) error {
	return s.deleteErr
}

func orderRouter(t *testing.T, checkout services.CheckoutService, orders services.OrderService) chi.Router {
	t.Helper()
	r := chi.NewRouter()
	r.Route("/orders", NewOrderHandlers(testAuthenticator(t), checkout, orders).Routes)
	return r
}

func bearer(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestCreateCheckoutSessionReturnsRawPair(t *testing.T) {
	checkout := &stubCheckoutService{
		session: services.CheckoutSession{ID: "cs_1", URL: "https://checkout.example.com/cs_1"},
	}
	router := orderRouter(t, checkout, &stubOrderService{})

	body := `{"products":[{"productId":"p1","name":"Mug","price":12.5,"quantity":2}],"userId":"user-1","email":"jo@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/orders/create-checkout-session", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var payload map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if payload["id"] != "cs_1" || payload["url"] == "" {
		t.Fatalf("unexpected payload %v", payload)
	}
	if _, ok := payload["success"]; ok {
		t.Fatal("checkout session response must not be enveloped")
	}
	if checkout.startCmd.UserID != "user-1" || len(checkout.startCmd.Items) != 1 {
		t.Fatalf("unexpected command %+v", checkout.startCmd)
	}
}

func TestCreateCheckoutSessionRequiresProductsAndUser(t *testing.T) {
	router := orderRouter(t, &stubCheckoutService{}, &stubOrderService{})

	for name, body := range map[string]string{
		"no products": `{"products":[],"userId":"user-1"}`,
		"no user":     `{"products":[{"name":"Mug","price":10,"quantity":1}]}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/orders/create-checkout-session", bytes.NewBufferString(body))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected status 400, got %d", name, rr.Code)
		}
		var payload map[string]any
		if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
			t.Fatalf("%s: failed to parse response: %v", name, err)
		}
		if payload["success"] != false {
			t.Fatalf("%s: expected failure envelope, got %v", name, payload)
		}
	}
}

func TestConfirmPaymentReturnsEnvelopedOrder(t *testing.T) {
	checkout := &stubCheckoutService{
		order: domain.Order{
			ID:         "order-1",
			PaymentRef: "pi_1",
			Email:      "jo@example.com",
			Amount:     25.99,
			Status:     domain.OrderStatusPending,
			Lines:      []domain.OrderLine{{ProductRef: "p1", Quantity: 2}},
			CreatedAt:  time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		},
	}
	router := orderRouter(t, checkout, &stubOrderService{})

	req := httptest.NewRequest(http.MethodPost, "/orders/confirm-payment", bytes.NewBufferString(`{"session_id":"cs_1"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var payload struct {
		Success bool `json:"success"`
		Data    struct {
			ID     string  `json:"id"`
			Status string  `json:"status"`
			Amount float64 `json:"amount"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if !payload.Success || payload.Data.ID != "order-1" || payload.Data.Status != "pending" || payload.Data.Amount != 25.99 {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestConfirmPaymentSessionNotFound(t *testing.T) {
	checkout := &stubCheckoutService{confirmErr: services.ErrCheckoutSessionNotFound}
	router := orderRouter(t, checkout, &stubOrderService{})

	req := httptest.NewRequest(http.MethodPost, "/orders/confirm-payment", bytes.NewBufferString(`{"session_id":"cs_missing"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestGetOrderRequiresAuthentication(t *testing.T) {
	router := orderRouter(t, &stubCheckoutService{}, &stubOrderService{})

	req := httptest.NewRequest(http.MethodGet, "/orders/order/order-1", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
}

func TestListOrdersByEmail(t *testing.T) {
	orders := &stubOrderService{orders: []domain.Order{
		{ID: "order-1", Email: "jo@example.com", Status: domain.OrderStatusPending},
	}}
	router := orderRouter(t, &stubCheckoutService{}, orders)

	req := bearer(httptest.NewRequest(http.MethodGet, "/orders/jo@example.com", nil), "user-token")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestListOrdersByEmailEmptyIsNotFound(t *testing.T) {
	router := orderRouter(t, &stubCheckoutService{}, &stubOrderService{})

	req := bearer(httptest.NewRequest(http.MethodGet, "/orders/jo@example.com", nil), "user-token")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestListAllOrdersRejectsNonAdmin(t *testing.T) {
	orders := &stubOrderService{orders: []domain.Order{{ID: "order-1"}}}
	router := orderRouter(t, &stubCheckoutService{}, orders)

	req := bearer(httptest.NewRequest(http.MethodGet, "/orders/", nil), "user-token")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", rr.Code)
	}
}

func TestUpdateOrderStatus(t *testing.T) {
	orders := &stubOrderService{order: domain.Order{ID: "order-1", Status: domain.OrderStatusShipped}}
	router := orderRouter(t, &stubCheckoutService{}, orders)

	req := bearer(httptest.NewRequest(http.MethodPatch, "/orders/update-order-status/order-1", bytes.NewBufferString(`{"status":"shipped"}`)), "admin-token")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if orders.setStatus != "shipped" {
		t.Fatalf("expected status forwarded, got %q", orders.setStatus)
	}
}

func TestUpdateOrderStatusInvalid(t *testing.T) {
	orders := &stubOrderService{setErr: services.ErrOrderInvalidStatus}
	router := orderRouter(t, &stubCheckoutService{}, orders)

	req := bearer(httptest.NewRequest(http.MethodPatch, "/orders/update-order-status/order-1", bytes.NewBufferString(`{"status":"cancelled"}`)), "admin-token")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestDeleteOrderNotFound(t *testing.T) {
	orders := &stubOrderService{deleteErr: services.ErrOrderNotFound}
	router := orderRouter(t, &stubCheckoutService{}, orders)

	req := bearer(httptest.NewRequest(http.MethodDelete, "/orders/delete-order/order-missing", nil), "admin-token")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}
