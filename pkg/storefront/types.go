package storefront

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// UserID is the host-platform user identifier.
type UserID int64

// Int64 returns the raw identifier.
func (id UserID) Int64() int64 {
	return int64(id)
}

// UserIdentity is the host user resolved from the init payload.
type UserIdentity struct {
	ID        UserID
	Username  string
	FirstName string
	LastName  string
}

// DisplayName prefers the @username and falls back to the full name.
func (identity UserIdentity) DisplayName() string {
	if identity.Username != "" {
		return "@" + identity.Username
	}
	fullName := strings.TrimSpace(identity.FirstName + " " + identity.LastName)
	if fullName != "" {
		return fullName
	}
	return fmt.Sprintf("user %d", identity.ID.Int64())
}

// Category groups products; IsGame decides the game/app partition.
type Category struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Emoji   string `json:"emoji,omitempty"`
	IsGame  bool   `json:"is_game"`
	IconURL string `json:"icon_url,omitempty"`
}

// Product is a purchasable catalog item.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url,omitempty"`
	CategoryID  int64           `json:"category_id,omitempty"`
}

// Catalog is the snapshot of categories and products loaded for a session.
type Catalog struct {
	Categories []Category
	Products   []Product
}

// IsEmpty reports whether nothing has been loaded.
func (catalog Catalog) IsEmpty() bool {
	return len(catalog.Categories) == 0 && len(catalog.Products) == 0
}

// FindProduct returns the product with the given id.
func (catalog Catalog) FindProduct(productID int64) (Product, bool) {
	for _, product := range catalog.Products {
		if product.ID == productID {
			return product, true
		}
	}
	return Product{}, false
}

func (catalog Catalog) clone() Catalog {
	return Catalog{
		Categories: append([]Category(nil), catalog.Categories...),
		Products:   append([]Product(nil), catalog.Products...),
	}
}

// PaymentMethod is the settlement rail chosen for an order.
type PaymentMethod string

const (
	PaymentMethodUSDT PaymentMethod = "usdt"
	PaymentMethodTON  PaymentMethod = "ton"
	PaymentMethodFiat PaymentMethod = "rub"
)

// PaymentMethods lists the rails in popup order.
func PaymentMethods() []PaymentMethod {
	return []PaymentMethod{PaymentMethodUSDT, PaymentMethodTON, PaymentMethodFiat}
}

// ParsePaymentMethod validates a wire payment method.
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	normalized := PaymentMethod(strings.ToLower(strings.TrimSpace(raw)))
	switch normalized {
	case PaymentMethodUSDT, PaymentMethodTON, PaymentMethodFiat:
		return normalized, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, raw)
	}
}

// String returns the wire value.
func (method PaymentMethod) String() string {
	return string(method)
}

// Label returns the button text shown to the user.
func (method PaymentMethod) Label() string {
	switch method {
	case PaymentMethodUSDT:
		return popupButtonTextUSDT
	case PaymentMethodTON:
		return popupButtonTextTON
	case PaymentMethodFiat:
		return popupButtonTextFiat
	default:
		return string(method)
	}
}

// PurchaseIntent is the transient product + method pair of a purchase in flight.
type PurchaseIntent struct {
	Product Product
	Method  PaymentMethod
}

// OrderRequest is the body of the order-creation call.
type OrderRequest struct {
	ProductID     int64         `json:"product_id"`
	PaymentMethod PaymentMethod `json:"payment_method"`
}

// PurchaseState enumerates the orchestrator lifecycle.
type PurchaseState string

const (
	PurchaseStateIdle           PurchaseState = "idle"
	PurchaseStateAwaitingChoice PurchaseState = "awaiting_choice"
	PurchaseStateSubmitting     PurchaseState = "submitting"
)

// String returns the state name.
func (state PurchaseState) String() string {
	return string(state)
}

// PurchaseStatus is the terminal result of a purchase interaction.
type PurchaseStatus string

const (
	PurchaseStatusSubmitted PurchaseStatus = "submitted"
	PurchaseStatusCancelled PurchaseStatus = "cancelled"
)

// PurchaseOutcome reports how a purchase interaction ended.
type PurchaseOutcome struct {
	Status PurchaseStatus
	Intent PurchaseIntent
}
