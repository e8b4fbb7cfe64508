package handlers

import (
	"time"

	"github.com/velora-shop/api/internal/domain"
	"github.com/velora-shop/api/internal/services"
)

type orderLinePayload struct {
	ProductRef string `json:"productRef"`
	Quantity   int    `json:"quantity"`
}

type orderPayload struct {
	ID         string             `json:"id"`
	PaymentRef string             `json:"paymentRef"`
	UserRef    string             `json:"userRef,omitempty"`
	Email      string             `json:"email"`
	Lines      []orderLinePayload `json:"products"`
	Amount     float64            `json:"amount"`
	Status     string             `json:"status"`
	CreatedAt  time.Time          `json:"createdAt"`
	UpdatedAt  time.Time          `json:"updatedAt"`
}

func buildOrderPayload(order domain.Order) orderPayload {
	lines := make([]orderLinePayload, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, orderLinePayload{
			ProductRef: line.ProductRef,
			Quantity:   line.Quantity,
		})
	}
	return orderPayload{
		ID:         order.ID,
		PaymentRef: order.PaymentRef,
		UserRef:    order.UserRef,
		Email:      order.Email,
		Lines:      lines,
		Amount:     order.Amount,
		Status:     string(order.Status),
		CreatedAt:  order.CreatedAt,
		UpdatedAt:  order.UpdatedAt,
	}
}

func buildOrderPayloads(orders []domain.Order) []orderPayload {
	out := make([]orderPayload, 0, len(orders))
	for _, order := range orders {
		out = append(out, buildOrderPayload(order))
	}
	return out
}

type productPayload struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price"`
	OldPrice    float64   `json:"oldPrice,omitempty"`
	Image       string    `json:"image,omitempty"`
	Color       string    `json:"color,omitempty"`
	Rating      float64   `json:"rating"`
	AuthorRef   string    `json:"authorRef,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func buildProductPayload(product domain.Product) productPayload {
	return productPayload{
		ID:          product.ID,
		Name:        product.Name,
		Category:    product.Category,
		Description: product.Description,
		Price:       product.Price,
		OldPrice:    product.OldPrice,
		Image:       product.Image,
		Color:       product.Color,
		Rating:      product.Rating,
		AuthorRef:   product.AuthorRef,
		CreatedAt:   product.CreatedAt,
		UpdatedAt:   product.UpdatedAt,
	}
}

func buildProductPayloads(products []domain.Product) []productPayload {
	out := make([]productPayload, 0, len(products))
	for _, product := range products {
		out = append(out, buildProductPayload(product))
	}
	return out
}

type reviewPayload struct {
	ID         string    `json:"id"`
	Comment    string    `json:"comment"`
	Rating     float64   `json:"rating"`
	UserRef    string    `json:"userRef"`
	ProductRef string    `json:"productRef"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func buildReviewPayload(review domain.Review) reviewPayload {
	return reviewPayload{
		ID:         review.ID,
		Comment:    review.Comment,
		Rating:     review.Rating,
		UserRef:    review.UserRef,
		ProductRef: review.ProductRef,
		CreatedAt:  review.CreatedAt,
		UpdatedAt:  review.UpdatedAt,
	}
}

func buildReviewPayloads(reviews []domain.Review) []reviewPayload {
	out := make([]reviewPayload, 0, len(reviews))
	for _, review := range reviews {
		out = append(out, buildReviewPayload(review))
	}
	return out
}

type userPayload struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	ProfileImage string    `json:"profileImage,omitempty"`
	Bio          string    `json:"bio,omitempty"`
	Profession   string    `json:"profession,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func buildUserPayload(user domain.UserProfile) userPayload {
	return userPayload{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		Role:         string(user.Role),
		ProfileImage: user.ProfileImage,
		Bio:          user.Bio,
		Profession:   user.Profession,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}

func buildUserPayloads(users []domain.UserProfile) []userPayload {
	out := make([]userPayload, 0, len(users))
	for _, user := range users {
		out = append(out, buildUserPayload(user))
	}
	return out
}

type userStatsPayload struct {
	TotalPayments  float64 `json:"totalPayments"`
	TotalReviews   int64   `json:"totalReviews"`
	TotalPurchases int64   `json:"totalPurchases"`
}

type monthlyEarningPayload struct {
	Year     int     `json:"year"`
	Month    int     `json:"month"`
	Earnings float64 `json:"earnings"`
}

type adminStatsPayload struct {
	TotalOrders     int64                   `json:"totalOrders"`
	TotalProducts   int64                   `json:"totalProducts"`
	TotalReviews    int64                   `json:"totalReviews"`
	TotalUsers      int64                   `json:"totalUsers"`
	TotalEarnings   float64                 `json:"totalEarnings"`
	MonthlyEarnings []monthlyEarningPayload `json:"monthlyEarnings"`
}

func buildAdminStatsPayload(stats services.AdminStats) adminStatsPayload {
	monthly := make([]monthlyEarningPayload, 0, len(stats.MonthlyEarnings))
	for _, bucket := range stats.MonthlyEarnings {
		monthly = append(monthly, monthlyEarningPayload{
			Year:     bucket.Year,
			Month:    int(bucket.Month),
			Earnings: bucket.Earnings,
		})
	}
	return adminStatsPayload{
		TotalOrders:     stats.TotalOrders,
		TotalProducts:   stats.TotalProducts,
		TotalReviews:    stats.TotalReviews,
		TotalUsers:      stats.TotalUsers,
		TotalEarnings:   stats.TotalEarnings,
		MonthlyEarnings: monthly,
	}
}
