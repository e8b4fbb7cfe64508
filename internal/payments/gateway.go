package payments

import (
	"context"
	"errors"
	"fmt"
)

// Outcome enumerates the normalised payment states shared across gateways.
type Outcome string

const (
	// OutcomePending indicates the payment is awaiting customer action or PSP confirmation.
	OutcomePending Outcome = "pending"
	// OutcomeSucceeded indicates the PSP reports the payment as successfully captured.
	OutcomeSucceeded Outcome = "succeeded"
	// OutcomeFailed indicates the PSP reports a failure and no further action is possible.
	OutcomeFailed Outcome = "failed"
)

// ErrSessionNotFound is returned when the PSP does not recognise the session id.
var ErrSessionNotFound = errors.New("payments: checkout session not found")

// CheckoutItem describes a single product line submitted to a checkout session.
// UnitPrice is expressed in major currency units.
type CheckoutItem struct {
	ProductID string
	Name      string
	UnitPrice float64
	Quantity  int64
}

// CheckoutSessionRequest captures the payload required to create a hosted checkout session.
type CheckoutSessionRequest struct {
	Email          string
	UserID         string
	Currency       string
	SuccessURL     string
	CancelURL      string
	IdempotencyKey string
	Items          []CheckoutItem
}

// CheckoutSession is the hosted session handed back to the browser client.
type CheckoutSession struct {
	ID  string
	URL string
}

// SessionLineItem is a settled line item read back from the PSP. ProductRef
// carries the storefront product identifier when the session was created with
// one, falling back to the PSP's product id.
type SessionLineItem struct {
	ProductRef  string
	Description string
	Quantity    int64
	Amount      float64
}

// SessionDetails normalises the settled session used for order reconciliation.
// Amount is the session total in major currency units. PaymentRef identifies
// the underlying payment and is unique per completed checkout.
type SessionDetails struct {
	SessionID  string
	PaymentRef string
	Email      string
	UserID     string
	Currency   string
	Amount     float64
	Outcome    Outcome
	LineItems  []SessionLineItem
}

// Gateway is the PSP contract the checkout flow depends on.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (CheckoutSession, error)
	RetrieveSession(ctx context.Context, sessionID string) (SessionDetails, error)
}

// GatewayError wraps PSP failures with the operation that produced them.
type GatewayError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *GatewayError) Error() string {
	if e == nil {
		return ""
	}
	if e.Op != "" {
		return fmt.Sprintf("payments: %s: %v", e.Op, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *GatewayError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
