package shop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MarkoPoloResearchLab/storefront/pkg/storefront"
)

// Service contains the catalog and order rules over a Store.
type Service struct {
	store         Store
	nowFn         func() time.Time
	adminIDs      map[storefront.UserID]struct{}
	notifier      OrderNotifier
	notifyTimeout time.Duration
	logger        OperationLogger
}

const defaultNotifyTimeout = 5 * time.Second

// NewService wires a Service.
func NewService(store Store, now func() time.Time, options ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	service := &Service{store: store, nowFn: now, adminIDs: make(map[storefront.UserID]struct{}), notifyTimeout: defaultNotifyTimeout}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	return service, nil
}

// Authenticate resolves the caller, creating the user on first contact.
func (service *Service) Authenticate(ctx context.Context, profile UserProfile) (User, error) {
	if profile.TelegramID == 0 {
		return User{}, fmt.Errorf("%w: telegram id is required", ErrInvalidProfile)
	}
	user, err := service.store.GetOrCreateUser(ctx, profile)
	if err != nil {
		service.logOperation(ctx, OperationLog{Operation: operationAuthenticate, TelegramID: profile.TelegramID, Error: err})
		return User{}, err
	}
	if _, configured := service.adminIDs[user.TelegramID]; configured {
		user.IsAdmin = true
	}
	return user, nil
}

// Categories lists categories, optionally by the game flag.
func (service *Service) Categories(ctx context.Context, filter CategoryFilter) ([]storefront.Category, error) {
	return service.store.ListCategories(ctx, filter)
}

// Products lists available products, optionally by category.
func (service *Service) Products(ctx context.Context, filter ProductFilter) ([]Product, error) {
	return service.store.ListProducts(ctx, filter)
}

// Product returns one product regardless of availability.
func (service *Service) Product(ctx context.Context, productID int64) (Product, error) {
	return service.store.GetProduct(ctx, productID)
}

// CreateCategory adds a category. Only administrators may call it.
func (service *Service) CreateCategory(ctx context.Context, actor User, category NewCategory) (storefront.Category, error) {
	if !actor.IsAdmin {
		service.logOperation(ctx, OperationLog{Operation: operationCreateCategory, TelegramID: actor.TelegramID, Status: operationStatusForbidden, Error: ErrForbidden})
		return storefront.Category{}, ErrForbidden
	}
	if err := category.Validate(); err != nil {
		return storefront.Category{}, err
	}
	created, err := service.store.CreateCategory(ctx, category)
	service.logOperation(ctx, OperationLog{Operation: operationCreateCategory, TelegramID: actor.TelegramID, Error: err})
	return created, err
}

// CreateProduct adds an available product. Only administrators may call it.
func (service *Service) CreateProduct(ctx context.Context, actor User, product NewProduct) (Product, error) {
	if !actor.IsAdmin {
		service.logOperation(ctx, OperationLog{Operation: operationCreateProduct, TelegramID: actor.TelegramID, Status: operationStatusForbidden, Error: ErrForbidden})
		return Product{}, ErrForbidden
	}
	if err := product.Validate(); err != nil {
		return Product{}, err
	}
	var created Product
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		categories, err := transactionStore.ListCategories(ctx, CategoryFilter{})
		if err != nil {
			return err
		}
		if !containsCategory(categories, product.CategoryID) {
			return fmt.Errorf("%w: %d", ErrUnknownCategory, product.CategoryID)
		}
		created, err = transactionStore.CreateProduct(ctx, product)
		return err
	})
	service.logOperation(ctx, OperationLog{Operation: operationCreateProduct, TelegramID: actor.TelegramID, ProductID: created.ID, Error: operationError})
	if operationError != nil {
		return Product{}, operationError
	}
	return created, nil
}

// PlaceOrder records a pending order priced at the current product price and
// announces it. A failed announcement never fails the order.
func (service *Service) PlaceOrder(ctx context.Context, actor User, request storefront.OrderRequest, paymentDetails json.RawMessage) (Order, error) {
	method, err := storefront.ParsePaymentMethod(request.PaymentMethod.String())
	if err != nil {
		service.logOperation(ctx, OperationLog{Operation: operationPlaceOrder, TelegramID: actor.TelegramID, ProductID: request.ProductID, Error: err})
		return Order{}, err
	}
	var (
		order   Order
		product Product
	)
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		var err error
		product, err = transactionStore.GetProduct(ctx, request.ProductID)
		if err != nil {
			return err
		}
		if !product.IsAvailable {
			return fmt.Errorf("%w: %d", ErrProductUnavailable, product.ID)
		}
		order, err = transactionStore.CreateOrder(ctx, NewOrder{
			UserID:         actor.ID,
			ProductID:      product.ID,
			PaymentMethod:  method,
			PaymentDetails: paymentDetails,
			TotalAmount:    product.Price,
			CreatedAt:      service.nowFn().UTC(),
		})
		return err
	})
	service.logOperation(ctx, OperationLog{Operation: operationPlaceOrder, TelegramID: actor.TelegramID, ProductID: request.ProductID, OrderID: order.ID, Error: operationError})
	if operationError != nil {
		return Order{}, operationError
	}
	order.ProductName = product.Name
	service.announce(ctx, actor, order)
	return order, nil
}

// Orders lists the caller's orders.
func (service *Service) Orders(ctx context.Context, actor User) ([]Order, error) {
	return service.store.ListOrders(ctx, actor.ID)
}

// UpdateOrderStatus moves an order to status. Completing an order stamps its
// completion time. Only administrators may call it.
func (service *Service) UpdateOrderStatus(ctx context.Context, actor User, orderID int64, status OrderStatus) (Order, error) {
	if !actor.IsAdmin {
		service.logOperation(ctx, OperationLog{Operation: operationUpdateOrder, TelegramID: actor.TelegramID, OrderID: orderID, Status: operationStatusForbidden, Error: ErrForbidden})
		return Order{}, ErrForbidden
	}
	if _, err := ParseOrderStatus(status.String()); err != nil {
		return Order{}, err
	}
	var updated Order
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		var completedAt *time.Time
		if status == OrderStatusCompleted {
			now := service.nowFn().UTC()
			completedAt = &now
		}
		if err := transactionStore.UpdateOrderStatus(ctx, orderID, status, completedAt); err != nil {
			return err
		}
		var err error
		updated, err = transactionStore.GetOrder(ctx, orderID)
		return err
	})
	service.logOperation(ctx, OperationLog{Operation: operationUpdateOrder, TelegramID: actor.TelegramID, OrderID: orderID, Error: operationError})
	if operationError != nil {
		return Order{}, operationError
	}
	return updated, nil
}

func (service *Service) announce(ctx context.Context, actor User, order Order) {
	if service.notifier == nil {
		return
	}
	// The order is already committed; the announcement outlives a dropped
	// request but never holds the response longer than notifyTimeout.
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), service.notifyTimeout)
	defer cancel()
	err := service.notifier.NotifyOrder(notifyCtx, OrderNotification{
		OrderID:       order.ID,
		Reference:     order.Reference,
		Customer:      actor.Identity().DisplayName(),
		ProductName:   order.ProductName,
		Amount:        order.TotalAmount,
		PaymentMethod: order.PaymentMethod,
		CreatedAt:     order.CreatedAt,
	})
	if err != nil {
		service.logOperation(ctx, OperationLog{Operation: operationNotifyOrder, TelegramID: actor.TelegramID, OrderID: order.ID, Error: err})
	}
}

func containsCategory(categories []storefront.Category, categoryID int64) bool {
	for _, category := range categories {
		if category.ID == categoryID {
			return true
		}
	}
	return false
}

// IsClientError reports whether err is caused by the caller's input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidProduct) ||
		errors.Is(err, ErrInvalidCategory) ||
		errors.Is(err, ErrInvalidOrderStatus) ||
		errors.Is(err, ErrInvalidProfile) ||
		errors.Is(err, storefront.ErrInvalidPaymentMethod)
}
