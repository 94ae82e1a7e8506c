package storefront

import (
	"context"
	"net/url"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
)

const (
	chessCategoryName = "Chess"
	chessProductName  = "Chess Pro"
	chessProductID    = int64(10)
	testUserID        = UserID(42)
)

type stubBridge struct {
	mutex       sync.Mutex
	initData    string
	readyCalls  int
	expandCalls int
	popups      []PopupOptions
	showPopup   func(ctx context.Context, options PopupOptions) (string, error)
}

func newStubBridge(initData string, answer string) *stubBridge {
	return &stubBridge{
		initData: initData,
		showPopup: func(context.Context, PopupOptions) (string, error) {
			return answer, nil
		},
	}
}

func (bridge *stubBridge) Ready() {
	bridge.mutex.Lock()
	defer bridge.mutex.Unlock()
	bridge.readyCalls++
}

func (bridge *stubBridge) Expand() {
	bridge.mutex.Lock()
	defer bridge.mutex.Unlock()
	bridge.expandCalls++
}

func (bridge *stubBridge) InitData() string {
	return bridge.initData
}

func (bridge *stubBridge) ShowPopup(ctx context.Context, options PopupOptions) (string, error) {
	bridge.mutex.Lock()
	bridge.popups = append(bridge.popups, options)
	showPopup := bridge.showPopup
	bridge.mutex.Unlock()
	return showPopup(ctx, options)
}

func (bridge *stubBridge) popupCount() int {
	bridge.mutex.Lock()
	defer bridge.mutex.Unlock()
	return len(bridge.popups)
}

type stubCatalogAPI struct {
	mutex           sync.Mutex
	categories      []Category
	products        []Product
	categoriesError error
	productsError   error
	categoryCalls   int
	productCalls    int
	credentials     []Credential
	beforeReturn    func()
}

func (api *stubCatalogAPI) ListCategories(_ context.Context, credential Credential) ([]Category, error) {
	api.mutex.Lock()
	api.categoryCalls++
	api.credentials = append(api.credentials, credential)
	categories, err, hook := api.categories, api.categoriesError, api.beforeReturn
	api.mutex.Unlock()
	if hook != nil {
		hook()
	}
	if err != nil {
		return nil, err
	}
	return categories, nil
}

func (api *stubCatalogAPI) ListProducts(_ context.Context, credential Credential) ([]Product, error) {
	api.mutex.Lock()
	api.productCalls++
	api.credentials = append(api.credentials, credential)
	products, err, hook := api.products, api.productsError, api.beforeReturn
	api.mutex.Unlock()
	if hook != nil {
		hook()
	}
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (api *stubCatalogAPI) calls() int {
	api.mutex.Lock()
	defer api.mutex.Unlock()
	return api.categoryCalls + api.productCalls
}

type stubOrderAPI struct {
	mutex       sync.Mutex
	requests    []OrderRequest
	credentials []Credential
	err         error
	createOrder func(ctx context.Context) error
}

func (api *stubOrderAPI) CreateOrder(ctx context.Context, credential Credential, request OrderRequest) error {
	api.mutex.Lock()
	api.requests = append(api.requests, request)
	api.credentials = append(api.credentials, credential)
	err, hook := api.err, api.createOrder
	api.mutex.Unlock()
	if hook != nil {
		return hook(ctx)
	}
	return err
}

func (api *stubOrderAPI) requestCount() int {
	api.mutex.Lock()
	defer api.mutex.Unlock()
	return len(api.requests)
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

func (logger *recorderLogger) snapshot() []OperationLog {
	logger.mutex.Lock()
	defer logger.mutex.Unlock()
	return append([]OperationLog(nil), logger.entries...)
}

func initDataFor(userJSON string) string {
	values := url.Values{}
	values.Set("user", userJSON)
	values.Set("auth_date", "1700000000")
	values.Set("hash", "abc")
	return values.Encode()
}

func chessCatalogAPI() *stubCatalogAPI {
	return &stubCatalogAPI{
		categories: []Category{{ID: 1, Name: chessCategoryName, IsGame: true}},
		products: []Product{{
			ID:          chessProductID,
			Name:        chessProductName,
			Description: "Premium account",
			Price:       decimal.RequireFromString("9.99"),
		}},
	}
}

func chessProduct(test *testing.T) Product {
	test.Helper()
	return Product{
		ID:          chessProductID,
		Name:        chessProductName,
		Description: "Premium account",
		Price:       mustPrice(test, "9.99"),
	}
}

func mustPrice(test *testing.T, raw string) decimal.Decimal {
	test.Helper()
	price, err := decimal.NewFromString(raw)
	if err != nil {
		test.Fatalf("price %q: %v", raw, err)
	}
	return price
}

func mustOrchestrator(test *testing.T, bridge HostBridge, orders OrderAPI, logger OperationLogger) *PurchaseOrchestrator {
	test.Helper()
	orchestrator, err := NewPurchaseOrchestrator(UserIdentity{ID: testUserID, Username: "player"}, bridge, orders, logger)
	if err != nil {
		test.Fatalf("orchestrator init failed: %v", err)
	}
	return orchestrator
}

func mustSession(test *testing.T, bridge HostBridge, catalogAPI CatalogAPI, orderAPI OrderAPI, options ...SessionOption) *Session {
	test.Helper()
	session, err := NewSession(bridge, catalogAPI, orderAPI, options...)
	if err != nil {
		test.Fatalf("session init failed: %v", err)
	}
	return session
}
