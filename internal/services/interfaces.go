package services

import (
	"context"
	"time"

	"github.com/velora-shop/api/internal/domain"
	"github.com/velora-shop/api/internal/repositories"
)

// CheckoutService creates hosted checkout sessions and reconciles completed
// ones into orders.
type CheckoutService interface {
	StartCheckout(ctx context.Context, cmd StartCheckoutCommand) (CheckoutSession, error)
	ConfirmCheckout(ctx context.Context, cmd ConfirmCheckoutCommand) (domain.Order, error)
}

// StartCheckoutCommand carries the cart contents submitted by the storefront.
type StartCheckoutCommand struct {
	Email  string
	UserID string
	Items  []CheckoutItemInput
}

// CheckoutItemInput is one cart position. Price is in major currency units.
type CheckoutItemInput struct {
	ProductID string
	Name      string
	Price     float64
	Quantity  int
}

// CheckoutSession is the hosted session handed back to the browser client.
type CheckoutSession struct {
	ID  string
	URL string
}

// ConfirmCheckoutCommand identifies the completed session to reconcile.
type ConfirmCheckoutCommand struct {
	SessionID string
}

// OrderService exposes order lookup and administration.
type OrderService interface {
	GetOrder(ctx context.Context, orderID string) (domain.Order, error)
	ListOrdersByEmail(ctx context.Context, email string) ([]domain.Order, error)
	ListAllOrders(ctx context.Context) ([]domain.Order, error)
	SetOrderStatus(ctx context.Context, orderID string, status string) (domain.Order, error)
	DeleteOrder(ctx context.Context, orderID string) error
}

// ProductService manages the catalog.
type ProductService interface {
	CreateProduct(ctx context.Context, cmd ProductCommand) (domain.Product, error)
	GetProduct(ctx context.Context, productID string) (ProductDetails, error)
	ListProducts(ctx context.Context, filter repositories.ProductListFilter) ([]domain.Product, error)
	UpdateProduct(ctx context.Context, productID string, cmd ProductCommand) (domain.Product, error)
	DeleteProduct(ctx context.Context, productID string) error
}

// ProductCommand carries the writable catalog fields.
type ProductCommand struct {
	Name        string
	Category    string
	Description string
	Price       float64
	OldPrice    float64
	Image       string
	Color       string
	AuthorRef   string
}

// ProductDetails pairs a catalog entry with its reviews.
type ProductDetails struct {
	Product domain.Product
	Reviews []domain.Review
}

// ReviewService manages product reviews.
type ReviewService interface {
	SubmitReview(ctx context.Context, cmd SubmitReviewCommand) (ReviewResult, error)
	ListUserReviews(ctx context.Context, userID string) ([]domain.Review, error)
	CountReviews(ctx context.Context) (int64, error)
}

// SubmitReviewCommand carries one review submission.
type SubmitReviewCommand struct {
	Comment   string
	Rating    float64
	UserID    string
	ProductID string
}

// ReviewResult returns the stored review plus the reviewed product.
type ReviewResult struct {
	Review  domain.Review
	Product domain.Product
}

// UserService manages account registration, login, and administration.
type UserService interface {
	Register(ctx context.Context, cmd RegisterCommand) (domain.UserProfile, error)
	Login(ctx context.Context, cmd LoginCommand) (domain.UserProfile, error)
	GetUser(ctx context.Context, userID string) (domain.UserProfile, error)
	ListUsers(ctx context.Context) ([]domain.UserProfile, error)
	UpdateProfile(ctx context.Context, cmd UpdateProfileCommand) (domain.UserProfile, error)
	UpdateRole(ctx context.Context, userID string, role string) (domain.UserProfile, error)
	DeleteUser(ctx context.Context, userID string) error
}

// RegisterCommand carries a new account registration.
type RegisterCommand struct {
	Username string
	Email    string
	Password string
}

// LoginCommand carries a login attempt.
type LoginCommand struct {
	Email    string
	Password string
}

// UpdateProfileCommand carries the editable profile fields.
type UpdateProfileCommand struct {
	UserID       string
	Username     string
	ProfileImage string
	Bio          string
	Profession   string
}

// StatsService aggregates storefront metrics.
type StatsService interface {
	UserStats(ctx context.Context, email string) (UserStats, error)
	AdminStats(ctx context.Context) (AdminStats, error)
}

// UserStats summarises one customer's activity.
type UserStats struct {
	TotalPayments  float64
	TotalReviews   int64
	TotalPurchases int64
}

// AdminStats summarises the whole storefront.
type AdminStats struct {
	TotalOrders     int64
	TotalProducts   int64
	TotalReviews    int64
	TotalUsers      int64
	TotalEarnings   float64
	MonthlyEarnings []MonthlyEarning
}

// MonthlyEarning is the earnings total for one calendar month.
type MonthlyEarning struct {
	Year     int
	Month    time.Month
	Earnings float64
}

// OrderStatusChangedEvent is emitted after an administrative status update.
type OrderStatusChangedEvent struct {
	OrderID    string    `json:"orderId"`
	PaymentRef string    `json:"paymentRef"`
	Email      string    `json:"email"`
	Status     string    `json:"status"`
	ChangedAt  time.Time `json:"changedAt"`
}

// ReviewCreatedEvent is emitted after a review submission. The catalog
// rating projector consumes it to refresh the product's average rating.
type ReviewCreatedEvent struct {
	ReviewID  string    `json:"reviewId"`
	ProductID string    `json:"productId"`
	UserID    string    `json:"userId"`
	Rating    float64   `json:"rating"`
	CreatedAt time.Time `json:"createdAt"`
}

// EventPublisher fans storefront events out to interested consumers.
type EventPublisher interface {
	PublishOrderStatusChanged(ctx context.Context, event OrderStatusChangedEvent) (string, error)
	PublishReviewCreated(ctx context.Context, event ReviewCreatedEvent) (string, error)
}
