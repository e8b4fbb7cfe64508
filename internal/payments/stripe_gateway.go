package payments

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
)

const minorUnitsPerMajor = 100

// StripeLogger defines the logging contract for Stripe gateway operations.
type StripeLogger func(ctx context.Context, event string, fields map[string]any)

type stripeSessionAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// StripeGatewayConfig configures the StripeGateway.
type StripeGatewayConfig struct {
	APIKey   string
	Backends *stripe.Backends
	Logger   StripeLogger

	// Sessions overrides the Stripe session API, primarily for tests.
	Sessions stripeSessionAPI
}

// StripeGateway implements the Gateway interface on Stripe hosted checkout.
type StripeGateway struct {
	sessions stripeSessionAPI
	logger   StripeLogger
}

// NewStripeGateway constructs a Stripe Gateway using the given configuration.
func NewStripeGateway(cfg StripeGatewayConfig) (*StripeGateway, error) {
	sessions := cfg.Sessions
	if sessions == nil {
		apiKey := strings.TrimSpace(cfg.APIKey)
		if apiKey == "" {
			return nil, errors.New("stripe: api key is required")
		}
		sc := client.New(apiKey, cfg.Backends)
		sessions = sc.CheckoutSessions
	}

	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &StripeGateway{
		sessions: sessions,
		logger:   logger,
	}, nil
}

// CreateCheckoutSession creates a Stripe hosted checkout session in payment mode.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (CheckoutSession, error) {
	if g == nil {
		return CheckoutSession{}, errors.New("stripe: gateway is nil")
	}

	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "usd"
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	params.Context = ctx
	if key := strings.TrimSpace(req.IdempotencyKey); key != "" {
		params.SetIdempotencyKey(key)
	}
	if email := strings.TrimSpace(req.Email); email != "" {
		params.CustomerEmail = stripe.String(email)
	}

	metadata := map[string]string{}
	if req.UserID != "" {
		metadata["userId"] = req.UserID
	}
	if len(metadata) > 0 {
		params.Metadata = metadata
		params.PaymentIntentData = &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: metadata,
		}
	}

	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Items))
	for _, item := range req.Items {
		line := &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(max64(item.Quantity, 1)),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(toMinorUnits(item.UnitPrice)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
			},
		}
		if item.ProductID != "" {
			line.PriceData.ProductData.Metadata = map[string]string{
				"productId": item.ProductID,
			}
		}
		lineItems = append(lineItems, line)
	}
	params.LineItems = lineItems

	session, err := g.sessions.New(params)
	if err != nil {
		return CheckoutSession{}, &GatewayError{Op: "create checkout session", Err: err}
	}

	g.logger(ctx, "payments.stripe.session.created", map[string]any{
		"sessionId": session.ID,
		"currency":  session.Currency,
		"lineItems": len(lineItems),
	})

	return CheckoutSession{
		ID:  session.ID,
		URL: session.URL,
	}, nil
}

// RetrieveSession fetches a checkout session with its line items and payment
// intent expanded, normalising it for order reconciliation.
func (g *StripeGateway) RetrieveSession(ctx context.Context, sessionID string) (SessionDetails, error) {
	if g == nil {
		return SessionDetails{}, errors.New("stripe: gateway is nil")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return SessionDetails{}, &GatewayError{Op: "retrieve session", Err: ErrSessionNotFound}
	}

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("line_items")
	params.AddExpand("payment_intent")

	session, err := g.sessions.Get(sessionID, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeResourceMissing {
			return SessionDetails{}, &GatewayError{Op: "retrieve session", Err: ErrSessionNotFound}
		}
		return SessionDetails{}, &GatewayError{Op: "retrieve session", Err: err}
	}

	details := stripeSessionDetails(session)
	g.logger(ctx, "payments.stripe.session.retrieved", map[string]any{
		"sessionId":  details.SessionID,
		"paymentRef": details.PaymentRef,
		"outcome":    string(details.Outcome),
	})
	return details, nil
}

func stripeSessionDetails(session *stripe.CheckoutSession) SessionDetails {
	if session == nil {
		return SessionDetails{}
	}

	details := SessionDetails{
		SessionID: session.ID,
		Currency:  strings.ToUpper(string(session.Currency)),
		Amount:    fromMinorUnits(session.AmountTotal),
		Outcome:   OutcomeFailed,
	}

	if session.CustomerDetails != nil && session.CustomerDetails.Email != "" {
		details.Email = session.CustomerDetails.Email
	} else {
		details.Email = session.CustomerEmail
	}
	if session.Metadata != nil {
		details.UserID = session.Metadata["userId"]
	}

	if intent := session.PaymentIntent; intent != nil {
		details.PaymentRef = intent.ID
		switch intent.Status {
		case stripe.PaymentIntentStatusSucceeded:
			details.Outcome = OutcomeSucceeded
		case stripe.PaymentIntentStatusCanceled:
			details.Outcome = OutcomeFailed
		default:
			details.Outcome = OutcomePending
		}
		if details.UserID == "" && intent.Metadata != nil {
			details.UserID = intent.Metadata["userId"]
		}
	}

	if session.LineItems != nil {
		details.LineItems = make([]SessionLineItem, 0, len(session.LineItems.Data))
		for _, item := range session.LineItems.Data {
			if item == nil {
				continue
			}
			details.LineItems = append(details.LineItems, SessionLineItem{
				ProductRef:  lineItemProductRef(item),
				Description: item.Description,
				Quantity:    item.Quantity,
				Amount:      fromMinorUnits(item.AmountTotal),
			})
		}
	}

	return details
}

func lineItemProductRef(item *stripe.LineItem) string {
	if item.Price == nil || item.Price.Product == nil {
		return ""
	}
	product := item.Price.Product
	if product.Metadata != nil {
		if ref := product.Metadata["productId"]; ref != "" {
			return ref
		}
	}
	return product.ID
}

func toMinorUnits(major float64) int64 {
	return int64(math.Round(major * minorUnitsPerMajor))
}

func fromMinorUnits(minor int64) float64 {
	return float64(minor) / minorUnitsPerMajor
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

var _ Gateway = (*StripeGateway)(nil)
