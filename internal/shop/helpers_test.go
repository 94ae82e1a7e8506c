package shop

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/MarkoPoloResearchLab/storefront/pkg/storefront"
	"github.com/shopspring/decimal"
)

var fixedNow = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

type stubStore struct {
	mutex        sync.Mutex
	users        map[storefront.UserID]User
	categories   []storefront.Category
	products     map[int64]Product
	orders       map[int64]Order
	nextID       int64
	failure      error
	transactions int
}

func newStubStore() *stubStore {
	return &stubStore{
		users:    make(map[storefront.UserID]User),
		products: make(map[int64]Product),
		orders:   make(map[int64]Order),
	}
}

func (store *stubStore) id() int64 {
	store.nextID++
	return store.nextID
}

func (store *stubStore) WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error {
	store.mutex.Lock()
	store.transactions++
	store.mutex.Unlock()
	return fn(ctx, store)
}

func (store *stubStore) GetOrCreateUser(_ context.Context, profile UserProfile) (User, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	if store.failure != nil {
		return User{}, store.failure
	}
	if user, ok := store.users[profile.TelegramID]; ok {
		return user, nil
	}
	user := User{ID: store.id(), TelegramID: profile.TelegramID, Username: profile.Username, FirstName: profile.FirstName, LastName: profile.LastName, CreatedAt: fixedNow}
	store.users[profile.TelegramID] = user
	return user, nil
}

func (store *stubStore) ListCategories(_ context.Context, filter CategoryFilter) ([]storefront.Category, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	categories := make([]storefront.Category, 0, len(store.categories))
	for _, category := range store.categories {
		if filter.IsGame == nil || category.IsGame == *filter.IsGame {
			categories = append(categories, category)
		}
	}
	return categories, nil
}

func (store *stubStore) CreateCategory(_ context.Context, category NewCategory) (storefront.Category, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	created := storefront.Category{ID: store.id(), Name: category.Name, Emoji: category.Emoji, IsGame: category.IsGame, IconURL: category.IconURL}
	store.categories = append(store.categories, created)
	return created, nil
}

func (store *stubStore) CountCategories(context.Context) (int64, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	return int64(len(store.categories)), nil
}

func (store *stubStore) ListProducts(_ context.Context, filter ProductFilter) ([]Product, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	products := make([]Product, 0, len(store.products))
	for _, product := range store.products {
		if !product.IsAvailable {
			continue
		}
		if filter.CategoryID != 0 && product.CategoryID != filter.CategoryID {
			continue
		}
		products = append(products, product)
	}
	sort.Slice(products, func(left, right int) bool { return products[left].ID < products[right].ID })
	return products, nil
}

func (store *stubStore) GetProduct(_ context.Context, productID int64) (Product, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	product, ok := store.products[productID]
	if !ok {
		return Product{}, ErrUnknownProduct
	}
	return product, nil
}

func (store *stubStore) CreateProduct(_ context.Context, product NewProduct) (Product, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	created := Product{
		Product: storefront.Product{
			ID:          store.id(),
			Name:        product.Name,
			Description: product.Description,
			Price:       product.Price,
			ImageURL:    product.ImageURL,
			CategoryID:  product.CategoryID,
		},
		IsAvailable: true,
	}
	store.products[created.ID] = created
	return created, nil
}

func (store *stubStore) CreateOrder(_ context.Context, order NewOrder) (Order, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	if store.failure != nil {
		return Order{}, store.failure
	}
	created := Order{
		ID:             store.id(),
		Reference:      "ref",
		UserID:         order.UserID,
		ProductID:      order.ProductID,
		Status:         OrderStatusPending,
		PaymentMethod:  order.PaymentMethod,
		PaymentDetails: order.PaymentDetails,
		TotalAmount:    order.TotalAmount,
		CreatedAt:      order.CreatedAt,
	}
	store.orders[created.ID] = created
	return created, nil
}

func (store *stubStore) GetOrder(_ context.Context, orderID int64) (Order, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	order, ok := store.orders[orderID]
	if !ok {
		return Order{}, ErrUnknownOrder
	}
	return order, nil
}

func (store *stubStore) ListOrders(_ context.Context, userID int64) ([]Order, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	orders := make([]Order, 0)
	for _, order := range store.orders {
		if order.UserID == userID {
			orders = append(orders, order)
		}
	}
	return orders, nil
}

func (store *stubStore) UpdateOrderStatus(_ context.Context, orderID int64, status OrderStatus, completedAt *time.Time) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	order, ok := store.orders[orderID]
	if !ok {
		return ErrUnknownOrder
	}
	order.Status = status
	if completedAt != nil {
		order.CompletedAt = completedAt
	}
	store.orders[orderID] = order
	return nil
}

type recorderLogger struct {
	mutex   sync.Mutex
	entries []OperationLog
}

func (logger *recorderLogger) LogOperation(_ context.Context, entry OperationLog) {
	logger.mutex.Lock()
	defer logger.mutex.Unlock()
	logger.entries = append(logger.entries, entry)
}

type stubNotifier struct {
	mutex         sync.Mutex
	notifications []OrderNotification
	err           error
}

func (notifier *stubNotifier) NotifyOrder(_ context.Context, notification OrderNotification) error {
	notifier.mutex.Lock()
	defer notifier.mutex.Unlock()
	notifier.notifications = append(notifier.notifications, notification)
	return notifier.err
}

func mustNewService(test *testing.T, store Store, options ...ServiceOption) *Service {
	test.Helper()
	service, err := NewService(store, func() time.Time { return fixedNow }, options...)
	if err != nil {
		test.Fatalf("service init failed: %v", err)
	}
	return service
}

func mustSeededStore(test *testing.T) *stubStore {
	test.Helper()
	store := newStubStore()
	service := mustNewService(test, store)
	seeded, err := service.Seed(context.Background(), DemoCatalog())
	if err != nil || !seeded {
		test.Fatalf("seed failed: %v", err)
	}
	return store
}

func mustUser(test *testing.T, service *Service, telegramID storefront.UserID) User {
	test.Helper()
	user, err := service.Authenticate(context.Background(), UserProfile{TelegramID: telegramID, Username: "player"})
	if err != nil {
		test.Fatalf("authenticate failed: %v", err)
	}
	return user
}

func mustDecimal(test *testing.T, raw string) decimal.Decimal {
	test.Helper()
	value, err := decimal.NewFromString(raw)
	if err != nil {
		test.Fatalf("decimal %q: %v", raw, err)
	}
	return value
}
