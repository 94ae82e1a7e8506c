package catalogapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MarkoPoloResearchLab/storefront/internal/apiclient"
	"github.com/MarkoPoloResearchLab/storefront/internal/shop"
	"github.com/MarkoPoloResearchLab/storefront/internal/store/gormstore"
	"github.com/MarkoPoloResearchLab/storefront/pkg/storefront"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const (
	customerID storefront.UserID = 42
	adminID    storefront.UserID = 7
)

type recordingNotifier struct {
	mutex         sync.Mutex
	notifications []shop.OrderNotification
}

func (notifier *recordingNotifier) NotifyOrder(_ context.Context, notification shop.OrderNotification) error {
	notifier.mutex.Lock()
	defer notifier.mutex.Unlock()
	notifier.notifications = append(notifier.notifications, notification)
	return nil
}

func (notifier *recordingNotifier) recorded() []shop.OrderNotification {
	notifier.mutex.Lock()
	defer notifier.mutex.Unlock()
	return append([]shop.OrderNotification(nil), notifier.notifications...)
}

type apiFixture struct {
	router   http.Handler
	notifier *recordingNotifier
	logs     *observer.ObservedLogs
}

func newAPIFixture(test *testing.T) apiFixture {
	test.Helper()
	db, cleanup, _, err := gormstore.Open(context.Background(), filepath.Join(test.TempDir(), "catalog.db"))
	if err != nil {
		test.Fatalf("open database: %v", err)
	}
	test.Cleanup(func() { _ = cleanup() })
	if err := gormstore.AutoMigrate(db); err != nil {
		test.Fatalf("auto migrate: %v", err)
	}

	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)
	notifier := &recordingNotifier{}
	service, err := shop.NewService(
		gormstore.New(db),
		func() time.Time { return time.Now().UTC() },
		shop.WithAdminIDs(adminID),
		shop.WithOrderNotifier(notifier),
		shop.WithOperationLogger(newServiceLogger(logger)),
	)
	if err != nil {
		test.Fatalf("service init: %v", err)
	}
	if _, err := service.Seed(context.Background(), shop.DemoCatalog()); err != nil {
		test.Fatalf("seed: %v", err)
	}

	cfg := Config{}
	if err := cfg.Validate(); err != nil {
		test.Fatalf("config validate: %v", err)
	}
	handler := &httpHandler{logger: logger, service: service, metrics: newMetrics()}
	return apiFixture{router: setupRouter(cfg, handler), notifier: notifier, logs: logs}
}

func performRequest(test *testing.T, router http.Handler, method string, path string, userID storefront.UserID, body string) *httptest.ResponseRecorder {
	test.Helper()
	var request *http.Request
	if body == "" {
		request = httptest.NewRequest(method, path, nil)
	} else {
		request = httptest.NewRequest(method, path, strings.NewReader(body))
		request.Header.Set("Content-Type", "application/json")
	}
	if userID != 0 {
		request.Header.Set("Authorization", storefront.EncodeCredential(userID).AuthorizationHeader())
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	return recorder
}

func mustDecodeBody(test *testing.T, recorder *httptest.ResponseRecorder, target any) {
	test.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		test.Fatalf("decode body %q: %v", recorder.Body.String(), err)
	}
}

func errorCode(test *testing.T, recorder *httptest.ResponseRecorder) string {
	test.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	mustDecodeBody(test, recorder, &envelope)
	return envelope.Error.Code
}

func TestPublicEndpoints(test *testing.T) {
	fixture := newAPIFixture(test)

	banner := performRequest(test, fixture.router, http.MethodGet, "/", 0, "")
	if banner.Code != http.StatusOK || !strings.Contains(banner.Body.String(), "Storefront API") {
		test.Fatalf("unexpected banner %d %s", banner.Code, banner.Body.String())
	}
	health := performRequest(test, fixture.router, http.MethodGet, "/healthz", 0, "")
	if health.Code != http.StatusOK || !strings.Contains(health.Body.String(), `"ok"`) {
		test.Fatalf("unexpected health %d %s", health.Code, health.Body.String())
	}

	exposition := performRequest(test, fixture.router, http.MethodGet, metricsPath, 0, "")
	if exposition.Code != http.StatusOK {
		test.Fatalf("expected metrics 200, got %d", exposition.Code)
	}
	expected := `storefront_http_requests_total{method="GET",route="/healthz",status="200"} 1`
	if !strings.Contains(exposition.Body.String(), expected) {
		test.Fatalf("expected %q in metrics output", expected)
	}
	if strings.Contains(exposition.Body.String(), `route="/metrics"`) {
		test.Fatalf("metrics endpoint must not count itself")
	}
}

func TestCatalogRequiresCredential(test *testing.T) {
	fixture := newAPIFixture(test)
	testCases := []struct {
		name   string
		header string
	}{
		{name: "missing", header: ""},
		{name: "wrong scheme", header: "Basic NDI="},
		{name: "not base64", header: "Bearer !!!"},
		{name: "not a number", header: "Bearer YWJj"},
		{name: "zero id", header: "Bearer MA=="},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/products/", nil)
			if testCase.header != "" {
				request.Header.Set("Authorization", testCase.header)
			}
			recorder := httptest.NewRecorder()
			fixture.router.ServeHTTP(recorder, request)
			if recorder.Code != http.StatusUnauthorized {
				test.Fatalf("expected 401, got %d", recorder.Code)
			}
			if code := errorCode(test, recorder); code != "unauthorized" {
				test.Fatalf("expected unauthorized code, got %q", code)
			}
		})
	}
}

func TestClientSessionAgainstAPI(test *testing.T) {
	fixture := newAPIFixture(test)
	server := httptest.NewServer(fixture.router)
	defer server.Close()

	client, err := apiclient.New(apiclient.Config{BaseURL: server.URL})
	if err != nil {
		test.Fatalf("client init: %v", err)
	}
	credential := storefront.EncodeCredential(customerID)
	catalog, err := storefront.LoadCatalog(context.Background(), client, credential)
	if err != nil {
		test.Fatalf("load catalog: %v", err)
	}
	if len(catalog.Categories) != 3 || len(catalog.Products) != 5 {
		test.Fatalf("unexpected catalog size %d/%d", len(catalog.Categories), len(catalog.Products))
	}
	games, apps := storefront.PartitionCategories(catalog.Categories)
	if len(games) != 2 || len(apps) != 1 {
		test.Fatalf("unexpected partition %d/%d", len(games), len(apps))
	}
	chess, found := catalog.FindProduct(1)
	if !found || chess.Name != "Chess Pro" || !chess.Price.Equal(decimal.RequireFromString("9.99")) {
		test.Fatalf("unexpected first product %+v", chess)
	}

	request := storefront.OrderRequest{ProductID: chess.ID, PaymentMethod: storefront.PaymentMethodTON}
	if err := client.CreateOrder(context.Background(), credential, request); err != nil {
		test.Fatalf("create order: %v", err)
	}

	listing := performRequest(test, fixture.router, http.MethodGet, "/orders/", customerID, "")
	if listing.Code != http.StatusOK {
		test.Fatalf("expected 200, got %d", listing.Code)
	}
	var orders []shop.Order
	mustDecodeBody(test, listing, &orders)
	if len(orders) != 1 {
		test.Fatalf("expected one order, got %d", len(orders))
	}
	if orders[0].Status != shop.OrderStatusPending || orders[0].PaymentMethod != storefront.PaymentMethodTON {
		test.Fatalf("unexpected order %+v", orders[0])
	}
	if !orders[0].TotalAmount.Equal(chess.Price) || orders[0].Reference == "" {
		test.Fatalf("unexpected order pricing %+v", orders[0])
	}

	notifications := fixture.notifier.recorded()
	if len(notifications) != 1 || notifications[0].ProductName != "Chess Pro" {
		test.Fatalf("unexpected notifications %+v", notifications)
	}

	otherListing := performRequest(test, fixture.router, http.MethodGet, "/orders/", customerID+1, "")
	var otherOrders []shop.Order
	mustDecodeBody(test, otherListing, &otherOrders)
	if len(otherOrders) != 0 {
		test.Fatalf("orders leaked to another user: %+v", otherOrders)
	}

	placed := fixture.logs.FilterField(zap.String("operation", "place_order")).All()
	if len(placed) != 1 || placed[0].Level != zapcore.InfoLevel {
		test.Fatalf("expected one place_order log entry, got %+v", placed)
	}
}

func TestCurrentUser(test *testing.T) {
	fixture := newAPIFixture(test)
	recorder := performRequest(test, fixture.router, http.MethodGet, "/users/me", adminID, "")
	if recorder.Code != http.StatusOK {
		test.Fatalf("expected 200, got %d", recorder.Code)
	}
	var user shop.User
	mustDecodeBody(test, recorder, &user)
	if user.TelegramID != adminID || !user.IsAdmin {
		test.Fatalf("unexpected user %+v", user)
	}
}

func TestCategoryListingFilters(test *testing.T) {
	fixture := newAPIFixture(test)
	testCases := []struct {
		name          string
		path          string
		expectedCode  int
		expectedCount int
	}{
		{name: "all", path: "/categories/", expectedCode: http.StatusOK, expectedCount: 3},
		{name: "games", path: "/categories/?is_game=true", expectedCode: http.StatusOK, expectedCount: 2},
		{name: "apps", path: "/categories/?is_game=false", expectedCode: http.StatusOK, expectedCount: 1},
		{name: "invalid flag", path: "/categories/?is_game=maybe", expectedCode: http.StatusBadRequest},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			recorder := performRequest(test, fixture.router, http.MethodGet, testCase.path, customerID, "")
			if recorder.Code != testCase.expectedCode {
				test.Fatalf("expected %d, got %d", testCase.expectedCode, recorder.Code)
			}
			if testCase.expectedCode != http.StatusOK {
				return
			}
			var categories []storefront.Category
			mustDecodeBody(test, recorder, &categories)
			if len(categories) != testCase.expectedCount {
				test.Fatalf("expected %d categories, got %d", testCase.expectedCount, len(categories))
			}
		})
	}
}

func TestProductListingAndLookup(test *testing.T) {
	fixture := newAPIFixture(test)

	byCategory := performRequest(test, fixture.router, http.MethodGet, "/products/?category_id=2", customerID, "")
	var products []shop.Product
	mustDecodeBody(test, byCategory, &products)
	if len(products) != 2 {
		test.Fatalf("expected 2 products in category 2, got %d", len(products))
	}
	if strings.Contains(byCategory.Body.String(), "delivery") || strings.Contains(byCategory.Body.String(), "code:") {
		test.Fatalf("listing exposes delivery data: %s", byCategory.Body.String())
	}

	testCases := []struct {
		name         string
		path         string
		expectedCode int
	}{
		{name: "existing", path: "/products/1", expectedCode: http.StatusOK},
		{name: "missing", path: "/products/999", expectedCode: http.StatusNotFound},
		{name: "bad id", path: "/products/abc", expectedCode: http.StatusBadRequest},
		{name: "bad category", path: "/products/?category_id=x", expectedCode: http.StatusBadRequest},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			recorder := performRequest(test, fixture.router, http.MethodGet, testCase.path, customerID, "")
			if recorder.Code != testCase.expectedCode {
				test.Fatalf("expected %d, got %d: %s", testCase.expectedCode, recorder.Code, recorder.Body.String())
			}
		})
	}
}

func TestCreateOrderRejections(test *testing.T) {
	fixture := newAPIFixture(test)
	testCases := []struct {
		name         string
		body         string
		expectedCode int
		expectedErr  string
	}{
		{name: "unknown product", body: `{"product_id":999,"payment_method":"usdt"}`, expectedCode: http.StatusNotFound, expectedErr: "not_found"},
		{name: "unknown method", body: `{"product_id":1,"payment_method":"btc"}`, expectedCode: http.StatusBadRequest, expectedErr: "invalid_request"},
		{name: "missing product", body: `{"payment_method":"usdt"}`, expectedCode: http.StatusBadRequest, expectedErr: "invalid_payload"},
		{name: "malformed", body: `{"product_id":`, expectedCode: http.StatusBadRequest, expectedErr: "invalid_payload"},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			recorder := performRequest(test, fixture.router, http.MethodPost, "/orders/", customerID, testCase.body)
			if recorder.Code != testCase.expectedCode {
				test.Fatalf("expected %d, got %d: %s", testCase.expectedCode, recorder.Code, recorder.Body.String())
			}
			if code := errorCode(test, recorder); code != testCase.expectedErr {
				test.Fatalf("expected %q, got %q", testCase.expectedErr, code)
			}
		})
	}
	if notifications := fixture.notifier.recorded(); len(notifications) != 0 {
		test.Fatalf("rejected orders must not notify: %+v", notifications)
	}
}

func TestAdministrationRoutes(test *testing.T) {
	fixture := newAPIFixture(test)
	productBody := `{"name":"Chess Gold","description":"Year","price":"49.90","category_id":1,"delivery_data":"code:GOLD"}`

	forbidden := performRequest(test, fixture.router, http.MethodPost, "/products/", customerID, productBody)
	if forbidden.Code != http.StatusForbidden {
		test.Fatalf("expected 403 for customer, got %d", forbidden.Code)
	}
	created := performRequest(test, fixture.router, http.MethodPost, "/products/", adminID, productBody)
	if created.Code != http.StatusCreated {
		test.Fatalf("expected 201 for admin, got %d: %s", created.Code, created.Body.String())
	}
	var product shop.Product
	mustDecodeBody(test, created, &product)
	if product.Name != "Chess Gold" || !product.IsAvailable {
		test.Fatalf("unexpected product %+v", product)
	}
	invalid := performRequest(test, fixture.router, http.MethodPost, "/products/", adminID, `{"name":"Free","price":"0","category_id":1,"delivery_data":"x"}`)
	if invalid.Code != http.StatusBadRequest {
		test.Fatalf("expected 400 for invalid product, got %d", invalid.Code)
	}

	categoryBody := `{"name":"Steam","emoji":"🎮","is_game":true}`
	if recorder := performRequest(test, fixture.router, http.MethodPost, "/categories/", customerID, categoryBody); recorder.Code != http.StatusForbidden {
		test.Fatalf("expected 403 for customer category, got %d", recorder.Code)
	}
	categoryCreated := performRequest(test, fixture.router, http.MethodPost, "/categories/", adminID, categoryBody)
	if categoryCreated.Code != http.StatusCreated {
		test.Fatalf("expected 201 for admin category, got %d: %s", categoryCreated.Code, categoryCreated.Body.String())
	}
	var category storefront.Category
	mustDecodeBody(test, categoryCreated, &category)
	if category.Name != "Steam" || !category.IsGame || category.ID == 0 {
		test.Fatalf("unexpected category %+v", category)
	}

	order := performRequest(test, fixture.router, http.MethodPost, "/orders/", customerID, `{"product_id":1,"payment_method":"rub"}`)
	if order.Code != http.StatusCreated {
		test.Fatalf("expected 201, got %d: %s", order.Code, order.Body.String())
	}
	var placed shop.Order
	mustDecodeBody(test, order, &placed)

	statusPath := "/orders/" + strconv.FormatInt(placed.ID, 10) + "/status"
	if recorder := performRequest(test, fixture.router, http.MethodPut, statusPath, customerID, `{"status":"paid"}`); recorder.Code != http.StatusForbidden {
		test.Fatalf("expected 403 for customer status update, got %d", recorder.Code)
	}
	if recorder := performRequest(test, fixture.router, http.MethodPut, statusPath, adminID, `{"status":"shipped"}`); recorder.Code != http.StatusBadRequest {
		test.Fatalf("expected 400 for unknown status, got %d", recorder.Code)
	}
	if recorder := performRequest(test, fixture.router, http.MethodPut, "/orders/999/status", adminID, `{"status":"paid"}`); recorder.Code != http.StatusNotFound {
		test.Fatalf("expected 404 for unknown order, got %d", recorder.Code)
	}
	completed := performRequest(test, fixture.router, http.MethodPut, statusPath, adminID, `{"status":"completed"}`)
	if completed.Code != http.StatusOK {
		test.Fatalf("expected 200, got %d: %s", completed.Code, completed.Body.String())
	}
	var updated shop.Order
	mustDecodeBody(test, completed, &updated)
	if updated.Status != shop.OrderStatusCompleted || updated.CompletedAt == nil {
		test.Fatalf("unexpected completed order %+v", updated)
	}
}

func TestServiceLoggerFields(test *testing.T) {
	test.Parallel()
	core, logs := observer.New(zapcore.InfoLevel)
	adapter := newServiceLogger(zap.New(core))

	adapter.LogOperation(context.Background(), shop.OperationLog{Operation: "place_order", TelegramID: customerID, ProductID: 3, OrderID: 9, Status: "ok"})
	adapter.LogOperation(context.Background(), shop.OperationLog{Operation: "notify_order", TelegramID: customerID, Status: "error", Error: errors.New("chat unreachable")})

	entries := logs.All()
	if len(entries) != 2 {
		test.Fatalf("expected 2 entries, got %d", len(entries))
	}
	first := entries[0].ContextMap()
	if first["product_id"] != int64(3) || first["order_id"] != int64(9) || first["telegram_id"] != int64(42) {
		test.Fatalf("unexpected fields %+v", first)
	}
	if entries[1].Level != zapcore.WarnLevel {
		test.Fatalf("expected warn level for failures, got %s", entries[1].Level)
	}
	if _, hasProduct := entries[1].ContextMap()["product_id"]; hasProduct {
		test.Fatalf("zero product id should be omitted")
	}
}
