package shop

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/storefront/pkg/storefront"
	"github.com/shopspring/decimal"
)

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// ParseOrderStatus validates a status value.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	status := OrderStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch status {
	case OrderStatusPending, OrderStatusPaid, OrderStatusCompleted, OrderStatusCancelled:
		return status, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidOrderStatus, raw)
	}
}

// String returns the status name.
func (status OrderStatus) String() string {
	return string(status)
}

// UserProfile is what the API knows about a caller before it is stored.
type UserProfile struct {
	TelegramID storefront.UserID
	Username   string
	FirstName  string
	LastName   string
}

// User is a stored customer.
type User struct {
	ID         int64             `json:"id"`
	TelegramID storefront.UserID `json:"telegram_id"`
	Username   string            `json:"username,omitempty"`
	FirstName  string            `json:"first_name,omitempty"`
	LastName   string            `json:"last_name,omitempty"`
	IsAdmin    bool              `json:"is_admin"`
	CreatedAt  time.Time         `json:"created_at"`
}

// Identity converts the user into the client-side identity shape.
func (user User) Identity() storefront.UserIdentity {
	return storefront.UserIdentity{
		ID:        user.TelegramID,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}
}

// Product is a catalog product together with its availability flag.
type Product struct {
	storefront.Product
	IsAvailable bool `json:"is_available"`
}

// CategoryFilter narrows category listings; a nil IsGame lists everything.
type CategoryFilter struct {
	IsGame *bool
}

// ProductFilter narrows product listings; zero CategoryID lists everything.
type ProductFilter struct {
	CategoryID int64
}

// NewCategory is the input for category creation.
type NewCategory struct {
	Name    string `json:"name"`
	Emoji   string `json:"emoji,omitempty"`
	IsGame  bool   `json:"is_game"`
	IconURL string `json:"icon_url,omitempty"`
}

// Validate checks the required fields.
func (category NewCategory) Validate() error {
	if strings.TrimSpace(category.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidCategory)
	}
	return nil
}

// NewProduct is the input for product creation. DeliveryData is never listed.
type NewProduct struct {
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	Price        decimal.Decimal `json:"price"`
	ImageURL     string          `json:"image_url,omitempty"`
	CategoryID   int64           `json:"category_id"`
	DeliveryData string          `json:"delivery_data"`
}

// Validate checks the required fields and the price sign.
func (product NewProduct) Validate() error {
	if strings.TrimSpace(product.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if !product.Price.IsPositive() {
		return fmt.Errorf("%w: price must be positive", ErrInvalidProduct)
	}
	if product.CategoryID <= 0 {
		return fmt.Errorf("%w: category id is required", ErrInvalidProduct)
	}
	if strings.TrimSpace(product.DeliveryData) == "" {
		return fmt.Errorf("%w: delivery data is required", ErrInvalidProduct)
	}
	return nil
}

// NewOrder is the input for order creation.
type NewOrder struct {
	UserID         int64
	ProductID      int64
	PaymentMethod  storefront.PaymentMethod
	PaymentDetails json.RawMessage
	TotalAmount    decimal.Decimal
	CreatedAt      time.Time
}

// Order is a stored order.
type Order struct {
	ID             int64                    `json:"id"`
	Reference      string                   `json:"reference"`
	UserID         int64                    `json:"user_id"`
	ProductID      int64                    `json:"product_id"`
	ProductName    string                   `json:"product_name,omitempty"`
	Status         OrderStatus              `json:"status"`
	PaymentMethod  storefront.PaymentMethod `json:"payment_method"`
	PaymentDetails json.RawMessage          `json:"payment_details,omitempty"`
	TotalAmount    decimal.Decimal          `json:"total_amount"`
	CreatedAt      time.Time                `json:"created_at"`
	CompletedAt    *time.Time               `json:"completed_at,omitempty"`
}

// Store persists users, catalog and orders.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error
	GetOrCreateUser(ctx context.Context, profile UserProfile) (User, error)
	ListCategories(ctx context.Context, filter CategoryFilter) ([]storefront.Category, error)
	CreateCategory(ctx context.Context, category NewCategory) (storefront.Category, error)
	CountCategories(ctx context.Context) (int64, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error)
	GetProduct(ctx context.Context, productID int64) (Product, error)
	CreateProduct(ctx context.Context, product NewProduct) (Product, error)
	CreateOrder(ctx context.Context, order NewOrder) (Order, error)
	GetOrder(ctx context.Context, orderID int64) (Order, error)
	ListOrders(ctx context.Context, userID int64) ([]Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status OrderStatus, completedAt *time.Time) error
}

// OrderNotification is the payload sent to the order chat.
type OrderNotification struct {
	OrderID       int64
	Reference     string
	Customer      string
	ProductName   string
	Amount        decimal.Decimal
	PaymentMethod storefront.PaymentMethod
	CreatedAt     time.Time
}

// OrderNotifier announces newly placed orders.
type OrderNotifier interface {
	NotifyOrder(ctx context.Context, notification OrderNotification) error
}
