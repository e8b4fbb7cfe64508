package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/oklog/ulid/v2"

	"github.com/velora-shop/api/internal/domain"
	pfirestore "github.com/velora-shop/api/internal/platform/firestore"
)

const (
	orderCollection      = "orders"
	paymentRefCollection = "order_payment_refs"
)

// OrderRepository persists orders in Firestore. A companion index collection
// keyed by the gateway payment reference enforces at-most-one order per
// payment; both documents are written in one transaction.
type OrderRepository struct {
	base     *pfirestore.BaseRepository[orderDocument]
	provider *pfirestore.Provider
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[orderDocument](provider, orderCollection, nil)
	return &OrderRepository{base: base, provider: provider}, nil
}

// Create inserts the order and claims its payment reference. A previously
// claimed reference surfaces as a conflict RepositoryError.
func (r *OrderRepository) Create(ctx context.Context, order domain.Order) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	paymentRef := strings.TrimSpace(order.PaymentRef)
	if paymentRef == "" {
		return domain.Order{}, errors.New("order payment reference is required")
	}

	orderID := strings.TrimSpace(order.ID)
	if orderID == "" {
		orderID = ulid.Make().String()
	}

	now := time.Now().UTC()
	doc := fromDomainOrder(order, now)

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.Order{}, err
	}
	orderRef := client.Collection(orderCollection).Doc(orderID)
	indexRef := client.Collection(paymentRefCollection).Doc(paymentRef)

	if err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Create(indexRef, paymentRefDocument{
			OrderRef:  orderID,
			CreatedAt: now,
		}); err != nil {
			return err
		}
		return tx.Create(orderRef, doc)
	}); err != nil {
		return domain.Order{}, err
	}

	created := toDomainOrder(doc)
	created.ID = orderID
	return created, nil
}

// FindByID loads an order by its identifier.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	if strings.TrimSpace(orderID) == "" {
		return domain.Order{}, errors.New("order id is required")
	}

	doc, err := r.base.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	order := toDomainOrder(doc.Data)
	order.ID = doc.ID
	return order, nil
}

// FindByPaymentRef resolves the payment reference through the index collection.
func (r *OrderRepository) FindByPaymentRef(ctx context.Context, paymentRef string) (domain.Order, error) {
	if r == nil || r.provider == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	paymentRef = strings.TrimSpace(paymentRef)
	if paymentRef == "" {
		return domain.Order{}, errors.New("order payment reference is required")
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.Order{}, err
	}
	snap, err := client.Collection(paymentRefCollection).Doc(paymentRef).Get(ctx)
	if err != nil {
		return domain.Order{}, pfirestore.WrapError("order_payment_refs.get", err)
	}

	var index paymentRefDocument
	if err := snap.DataTo(&index); err != nil {
		return domain.Order{}, pfirestore.WrapError("order_payment_refs.decode", err)
	}
	return r.FindByID(ctx, index.OrderRef)
}

// ListByEmail returns the customer's orders, newest first.
func (r *OrderRepository) ListByEmail(ctx context.Context, email string) ([]domain.Order, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("order repository not initialised")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, errors.New("email is required")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("email", "==", email).OrderBy("createdAt", firestore.Desc)
	})
	if err != nil {
		return nil, err
	}
	return toDomainOrders(docs), nil
}

// ListAll returns every order, newest first.
func (r *OrderRepository) ListAll(ctx context.Context) ([]domain.Order, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("order repository not initialised")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.OrderBy("createdAt", firestore.Desc)
	})
	if err != nil {
		return nil, err
	}
	return toDomainOrders(docs), nil
}

// UpdateStatus overwrites the order status and bumps the update timestamp.
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	if strings.TrimSpace(orderID) == "" {
		return domain.Order{}, errors.New("order id is required")
	}

	updates := []firestore.Update{
		{Path: "status", Value: string(status)},
		{Path: "updatedAt", Value: time.Now().UTC()},
	}
	if _, err := r.base.Update(ctx, orderID, updates, firestore.Exists); err != nil {
		return domain.Order{}, err
	}
	return r.FindByID(ctx, orderID)
}

// Delete removes the order together with its payment reference claim.
func (r *OrderRepository) Delete(ctx context.Context, orderID string) error {
	if r == nil || r.provider == nil {
		return errors.New("order repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return errors.New("order id is required")
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return err
	}
	orderRef := client.Collection(orderCollection).Doc(orderID)

	return r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(orderRef)
		if err != nil {
			return err
		}
		var doc orderDocument
		if err := snap.DataTo(&doc); err != nil {
			return err
		}
		if ref := strings.TrimSpace(doc.PaymentRef); ref != "" {
			if err := tx.Delete(client.Collection(paymentRefCollection).Doc(ref)); err != nil {
				return err
			}
		}
		return tx.Delete(orderRef)
	})
}

type orderDocument struct {
	PaymentRef string              `firestore:"paymentRef"`
	UserRef    string              `firestore:"userRef,omitempty"`
	Email      string              `firestore:"email"`
	Lines      []orderLineDocument `firestore:"lines"`
	Amount     float64             `firestore:"amount"`
	Status     string              `firestore:"status"`
	CreatedAt  time.Time           `firestore:"createdAt"`
	UpdatedAt  time.Time           `firestore:"updatedAt"`
}

type orderLineDocument struct {
	ProductRef string `firestore:"productRef"`
	Quantity   int    `firestore:"quantity"`
}

type paymentRefDocument struct {
	OrderRef  string    `firestore:"orderRef"`
	CreatedAt time.Time `firestore:"createdAt"`
}

func fromDomainOrder(order domain.Order, now time.Time) orderDocument {
	doc := orderDocument{
		PaymentRef: strings.TrimSpace(order.PaymentRef),
		UserRef:    strings.TrimSpace(order.UserRef),
		Email:      strings.ToLower(strings.TrimSpace(order.Email)),
		Amount:     order.Amount,
		Status:     string(order.Status),
		CreatedAt:  order.CreatedAt,
		UpdatedAt:  now,
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.Lines = make([]orderLineDocument, 0, len(order.Lines))
	for _, line := range order.Lines {
		doc.Lines = append(doc.Lines, orderLineDocument{
			ProductRef: line.ProductRef,
			Quantity:   line.Quantity,
		})
	}
	return doc
}

func toDomainOrder(doc orderDocument) domain.Order {
	order := domain.Order{
		PaymentRef: doc.PaymentRef,
		UserRef:    doc.UserRef,
		Email:      doc.Email,
		Amount:     doc.Amount,
		Status:     domain.OrderStatus(doc.Status),
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	}
	order.Lines = make([]domain.OrderLine, 0, len(doc.Lines))
	for _, line := range doc.Lines {
		order.Lines = append(order.Lines, domain.OrderLine{
			ProductRef: line.ProductRef,
			Quantity:   line.Quantity,
		})
	}
	return order
}

func toDomainOrders(docs []pfirestore.Document[orderDocument]) []domain.Order {
	orders := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		order := toDomainOrder(doc.Data)
		order.ID = doc.ID
		orders = append(orders, order)
	}
	return orders
}
