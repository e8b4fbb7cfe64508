package domain

import "time"

// OrderStatus enumerates the lifecycle states an order moves through after payment.
type OrderStatus string

const (
	// OrderStatusPending indicates the payment succeeded and the order awaits fulfilment.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusProcessing indicates the order is being prepared.
	OrderStatusProcessing OrderStatus = "processing"
	// OrderStatusShipped indicates the order left the warehouse.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusDelivered indicates the order reached the customer.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusFailed indicates the payment did not succeed.
	OrderStatusFailed OrderStatus = "failed"
)

// ValidOrderStatuses lists every status an administrative update may write.
// Transitions are deliberately unconstrained; the storefront UI presents the
// forward progression.
var ValidOrderStatuses = map[OrderStatus]struct{}{
	OrderStatusPending:    {},
	OrderStatusProcessing: {},
	OrderStatusShipped:    {},
	OrderStatusDelivered:  {},
	OrderStatusFailed:     {},
}

// OrderLine is one purchased product position on an order.
type OrderLine struct {
	ProductRef string
	Quantity   int
}

// Order is one checkout attempt reconciled against the payment gateway.
// PaymentRef carries the gateway's payment-intent identifier and is unique
// across all orders; it is the idempotency key for reconciliation.
type Order struct {
	ID         string
	PaymentRef string
	UserRef    string
	Email      string
	Lines      []OrderLine
	Amount     float64
	Status     OrderStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Product is a catalog entry managed by administrators.
type Product struct {
	ID          string
	Name        string
	Category    string
	Description string
	Price       float64
	OldPrice    float64
	Image       string
	Color       string
	Rating      float64
	AuthorRef   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Review is a customer review attached to a product. One review per
// user+product pair; resubmission overwrites the previous text and rating.
type Review struct {
	ID         string
	Comment    string
	Rating     float64
	UserRef    string
	ProductRef string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// UserRole separates customers from administrators.
type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

// UserProfile is a registered account. PasswordHash is a bcrypt digest and
// never leaves the repository layer in API payloads.
type UserProfile struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         UserRole
	ProfileImage string
	Bio          string
	Profession   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
