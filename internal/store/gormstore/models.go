package gormstore

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User represents the users table.
type User struct {
	ID         int64     `gorm:"primaryKey"`
	TelegramID int64     `gorm:"not null;uniqueIndex:idx_users_telegram_id"`
	Username   string    `gorm:""`
	FirstName  string    `gorm:""`
	LastName   string    `gorm:""`
	IsAdmin    bool      `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
}

func (User) TableName() string { return "users" }

// Category mirrors the categories table.
type Category struct {
	ID        int64     `gorm:"primaryKey"`
	Name      string    `gorm:"not null"`
	Emoji     string    `gorm:""`
	IsGame    bool      `gorm:"not null;index:idx_categories_is_game"`
	IconURL   string    `gorm:""`
	CreatedAt time.Time `gorm:"not null"`
}

func (Category) TableName() string { return "categories" }

// Product mirrors the products table.
type Product struct {
	ID           int64           `gorm:"primaryKey"`
	Name         string          `gorm:"not null"`
	Description  string          `gorm:"type:text"`
	Price        decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	ImageURL     string          `gorm:""`
	CategoryID   int64           `gorm:"not null;index:idx_products_category_available,priority:1"`
	DeliveryData string          `gorm:"type:text;not null"`
	IsAvailable  bool            `gorm:"not null;index:idx_products_category_available,priority:2"`
	CreatedAt    time.Time       `gorm:"not null"`
}

func (Product) TableName() string { return "products" }

// Order mirrors the orders table.
type Order struct {
	ID             int64           `gorm:"primaryKey"`
	Reference      string          `gorm:"type:uuid;not null;uniqueIndex:idx_orders_reference"`
	UserID         int64           `gorm:"not null;index:idx_orders_user_created,priority:1"`
	ProductID      int64           `gorm:"not null"`
	Product        *Product        `gorm:"foreignKey:ProductID"`
	Status         string          `gorm:"not null"`
	PaymentMethod  string          `gorm:"not null"`
	PaymentDetails datatypes.JSON  `gorm:"type:jsonb;not null"`
	TotalAmount    decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	CreatedAt      time.Time       `gorm:"not null;index:idx_orders_user_created,priority:2"`
	CompletedAt    *time.Time      `gorm:""`
}

func (Order) TableName() string { return "orders" }

func (order *Order) BeforeCreate(tx *gorm.DB) error {
	if order.Reference == "" {
		order.Reference = uuid.NewString()
	}
	return nil
}
