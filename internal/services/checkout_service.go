package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/velora-shop/api/internal/domain"
	"github.com/velora-shop/api/internal/payments"
	"github.com/velora-shop/api/internal/repositories"
)

var (
	// ErrCheckoutInvalidInput indicates the caller supplied invalid input parameters.
	ErrCheckoutInvalidInput = errors.New("checkout: invalid input")
	// ErrCheckoutUnavailable indicates checkout dependencies are currently unavailable.
	ErrCheckoutUnavailable = errors.New("checkout: unavailable")
	// ErrCheckoutSessionNotFound indicates the PSP does not recognise the session.
	ErrCheckoutSessionNotFound = errors.New("checkout: session not found")
	// ErrCheckoutPaymentFailed indicates the PSP session could not be created.
	ErrCheckoutPaymentFailed = errors.New("checkout: payment failed")
	// ErrCheckoutNotSettled indicates the session has no payment reference to reconcile yet.
	ErrCheckoutNotSettled = errors.New("checkout: session not settled")
)

// CheckoutServiceDeps wires the dependencies required by the checkout service.
type CheckoutServiceDeps struct {
	Orders     repositories.OrderRepository
	Gateway    payments.Gateway
	SuccessURL string
	CancelURL  string
	Currency   string
	Clock      func() time.Time
	Logger     func(ctx context.Context, event string, fields map[string]any)
}

type checkoutService struct {
	orders     repositories.OrderRepository
	gateway    payments.Gateway
	successURL string
	cancelURL  string
	currency   string
	now        func() time.Time
	logger     func(ctx context.Context, event string, fields map[string]any)
}

// NewCheckoutService constructs a CheckoutService validating required dependencies.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	if deps.Orders == nil {
		return nil, errors.New("checkout service: order repository is required")
	}
	if deps.Gateway == nil {
		return nil, errors.New("checkout service: payment gateway is required")
	}
	if strings.TrimSpace(deps.SuccessURL) == "" || strings.TrimSpace(deps.CancelURL) == "" {
		return nil, errors.New("checkout service: success and cancel urls are required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	currency := strings.TrimSpace(deps.Currency)
	if currency == "" {
		currency = "USD"
	}

	return &checkoutService{
		orders:     deps.Orders,
		gateway:    deps.Gateway,
		successURL: strings.TrimSpace(deps.SuccessURL),
		cancelURL:  strings.TrimSpace(deps.CancelURL),
		currency:   currency,
		now: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// StartCheckout validates the cart and opens a hosted checkout session.
func (s *checkoutService) StartCheckout(ctx context.Context, cmd StartCheckoutCommand) (CheckoutSession, error) {
	if s == nil || s.gateway == nil {
		return CheckoutSession{}, ErrCheckoutUnavailable
	}

	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return CheckoutSession{}, ErrCheckoutInvalidInput
	}
	items, err := validateCheckoutItems(cmd.Items)
	if err != nil {
		return CheckoutSession{}, err
	}

	req := payments.CheckoutSessionRequest{
		Email:      strings.TrimSpace(cmd.Email),
		UserID:     userID,
		Currency:   s.currency,
		SuccessURL: s.successURL,
		CancelURL:  s.cancelURL,
		Items:      items,
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, req)
	if err != nil {
		s.logger(ctx, "checkout.session_failed", map[string]any{
			"email": req.Email,
			"error": err.Error(),
		})
		return CheckoutSession{}, ErrCheckoutPaymentFailed
	}

	s.logger(ctx, "checkout.session_created", map[string]any{
		"sessionId": session.ID,
		"email":     req.Email,
		"items":     len(items),
	})

	return CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

// ConfirmCheckout reconciles a completed session into an order. Confirming the
// same session repeatedly returns the order created by the first confirmation.
func (s *checkoutService) ConfirmCheckout(ctx context.Context, cmd ConfirmCheckoutCommand) (domain.Order, error) {
	if s == nil || s.gateway == nil || s.orders == nil {
		return domain.Order{}, ErrCheckoutUnavailable
	}

	sessionID := strings.TrimSpace(cmd.SessionID)
	if sessionID == "" {
		return domain.Order{}, ErrCheckoutInvalidInput
	}

	details, err := s.gateway.RetrieveSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, payments.ErrSessionNotFound) {
			return domain.Order{}, ErrCheckoutSessionNotFound
		}
		s.logger(ctx, "checkout.retrieve_failed", map[string]any{
			"sessionId": sessionID,
			"error":     err.Error(),
		})
		return domain.Order{}, ErrCheckoutUnavailable
	}

	paymentRef := strings.TrimSpace(details.PaymentRef)
	if paymentRef == "" {
		return domain.Order{}, ErrCheckoutNotSettled
	}

	if existing, err := s.orders.FindByPaymentRef(ctx, paymentRef); err == nil {
		s.logger(ctx, "checkout.confirm_replayed", map[string]any{
			"sessionId":  sessionID,
			"paymentRef": paymentRef,
			"orderId":    existing.ID,
		})
		return existing, nil
	} else if !repositories.IsNotFound(err) {
		return domain.Order{}, fmt.Errorf("checkout: lookup order: %w", err)
	}

	draft := s.orderFromSession(details)
	created, err := s.orders.Create(ctx, draft)
	if err != nil {
		// A concurrent confirmation may have claimed the payment reference
		// between the lookup and the insert; return that winner's order.
		if repositories.IsConflict(err) {
			winner, findErr := s.orders.FindByPaymentRef(ctx, paymentRef)
			if findErr == nil {
				return winner, nil
			}
			return domain.Order{}, fmt.Errorf("checkout: resolve conflicting order: %w", findErr)
		}
		return domain.Order{}, fmt.Errorf("checkout: create order: %w", err)
	}

	s.logger(ctx, "checkout.order_created", map[string]any{
		"sessionId":  sessionID,
		"paymentRef": paymentRef,
		"orderId":    created.ID,
		"status":     string(created.Status),
		"amount":     created.Amount,
	})
	return created, nil
}

func (s *checkoutService) orderFromSession(details payments.SessionDetails) domain.Order {
	status := domain.OrderStatusFailed
	if details.Outcome == payments.OutcomeSucceeded {
		status = domain.OrderStatusPending
	}

	now := s.now()
	order := domain.Order{
		PaymentRef: details.PaymentRef,
		UserRef:    strings.TrimSpace(details.UserID),
		Email:      strings.ToLower(strings.TrimSpace(details.Email)),
		Amount:     details.Amount,
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for _, item := range details.LineItems {
		ref := item.ProductRef
		if ref == "" {
			ref = item.Description
		}
		order.Lines = append(order.Lines, domain.OrderLine{
			ProductRef: ref,
			Quantity:   int(item.Quantity),
		})
	}
	return order
}

func validateCheckoutItems(inputs []CheckoutItemInput) ([]payments.CheckoutItem, error) {
	if len(inputs) == 0 {
		return nil, ErrCheckoutInvalidInput
	}

	items := make([]payments.CheckoutItem, 0, len(inputs))
	for _, input := range inputs {
		name := strings.TrimSpace(input.Name)
		if name == "" || input.Price <= 0 || input.Quantity <= 0 {
			return nil, ErrCheckoutInvalidInput
		}
		items = append(items, payments.CheckoutItem{
			ProductID: strings.TrimSpace(input.ProductID),
			Name:      name,
			UnitPrice: input.Price,
			Quantity:  int64(input.Quantity),
		})
	}
	return items, nil
}
