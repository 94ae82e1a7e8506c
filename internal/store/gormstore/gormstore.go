package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/MarkoPoloResearchLab/storefront/internal/shop"
	"github.com/MarkoPoloResearchLab/storefront/pkg/storefront"
	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	constraintUsersTelegramID = "idx_users_telegram_id"
	defaultPaymentDetailsJSON = "{}"
	pgUniqueViolationCode     = "23505"
	sqliteConstraintCode      = 19
	errorOperationStore       = "store"
	errorSubjectUser          = "user"
	errorSubjectCategory      = "category"
	errorSubjectProduct       = "product"
	errorSubjectOrder         = "order"
	errorCodeCount            = "count"
	errorCodeCreate           = "create"
	errorCodeGet              = "get"
	errorCodeInvalid          = "invalid"
	errorCodeList             = "list"
	errorCodeLookup           = "lookup"
	errorCodeUpdateStatus     = "update_status"
)

// Store implements shop.Store using GORM.
type Store struct {
	db *gorm.DB
}

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AutoMigrate creates or updates the schema.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&User{}, &Category{}, &Product{}, &Order{})
}

// WithTx executes fn within a transaction.
func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore shop.Store) error) error {
	return store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		return fn(ctx, &Store{db: transaction})
	})
}

func (store *Store) GetOrCreateUser(ctx context.Context, profile shop.UserProfile) (shop.User, error) {
	var model User
	err := store.db.WithContext(ctx).Where("telegram_id = ?", profile.TelegramID.Int64()).Take(&model).Error
	if err == nil {
		return mapUser(model), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return shop.User{}, wrapStoreError(errorSubjectUser, errorCodeLookup, err)
	}
	model = User{
		TelegramID: profile.TelegramID.Int64(),
		Username:   profile.Username,
		FirstName:  profile.FirstName,
		LastName:   profile.LastName,
		CreatedAt:  time.Now().UTC(),
	}
	err = store.db.WithContext(ctx).Create(&model).Error
	if isUserConflict(err) {
		var existing User
		if lookupErr := store.db.WithContext(ctx).Where("telegram_id = ?", profile.TelegramID.Int64()).Take(&existing).Error; lookupErr != nil {
			return shop.User{}, wrapStoreError(errorSubjectUser, errorCodeLookup, lookupErr)
		}
		return mapUser(existing), nil
	}
	if err != nil {
		return shop.User{}, wrapStoreError(errorSubjectUser, errorCodeCreate, err)
	}
	return mapUser(model), nil
}

func (store *Store) ListCategories(ctx context.Context, filter shop.CategoryFilter) ([]storefront.Category, error) {
	query := store.db.WithContext(ctx).Model(&Category{})
	if filter.IsGame != nil {
		query = query.Where("is_game = ?", *filter.IsGame)
	}
	var rows []Category
	if err := query.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, wrapStoreError(errorSubjectCategory, errorCodeList, err)
	}
	categories := make([]storefront.Category, 0, len(rows))
	for _, row := range rows {
		categories = append(categories, mapCategory(row))
	}
	return categories, nil
}

func (store *Store) CreateCategory(ctx context.Context, category shop.NewCategory) (storefront.Category, error) {
	model := Category{
		Name:      category.Name,
		Emoji:     category.Emoji,
		IsGame:    category.IsGame,
		IconURL:   category.IconURL,
		CreatedAt: time.Now().UTC(),
	}
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		return storefront.Category{}, wrapStoreError(errorSubjectCategory, errorCodeCreate, err)
	}
	return mapCategory(model), nil
}

func (store *Store) CountCategories(ctx context.Context) (int64, error) {
	var count int64
	if err := store.db.WithContext(ctx).Model(&Category{}).Count(&count).Error; err != nil {
		return 0, wrapStoreError(errorSubjectCategory, errorCodeCount, err)
	}
	return count, nil
}

func (store *Store) ListProducts(ctx context.Context, filter shop.ProductFilter) ([]shop.Product, error) {
	query := store.db.WithContext(ctx).Model(&Product{}).Where("is_available = ?", true)
	if filter.CategoryID != 0 {
		query = query.Where("category_id = ?", filter.CategoryID)
	}
	var rows []Product
	if err := query.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, wrapStoreError(errorSubjectProduct, errorCodeList, err)
	}
	products := make([]shop.Product, 0, len(rows))
	for _, row := range rows {
		products = append(products, mapProduct(row))
	}
	return products, nil
}

func (store *Store) GetProduct(ctx context.Context, productID int64) (shop.Product, error) {
	var model Product
	err := store.db.WithContext(ctx).Where("id = ?", productID).Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return shop.Product{}, wrapStoreError(errorSubjectProduct, errorCodeGet, shop.ErrUnknownProduct)
		}
		return shop.Product{}, wrapStoreError(errorSubjectProduct, errorCodeGet, err)
	}
	return mapProduct(model), nil
}

func (store *Store) CreateProduct(ctx context.Context, product shop.NewProduct) (shop.Product, error) {
	model := Product{
		Name:         product.Name,
		Description:  product.Description,
		Price:        product.Price,
		ImageURL:     product.ImageURL,
		CategoryID:   product.CategoryID,
		DeliveryData: product.DeliveryData,
		IsAvailable:  true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		return shop.Product{}, wrapStoreError(errorSubjectProduct, errorCodeCreate, err)
	}
	return mapProduct(model), nil
}

func (store *Store) CreateOrder(ctx context.Context, order shop.NewOrder) (shop.Order, error) {
	model := Order{
		UserID:         order.UserID,
		ProductID:      order.ProductID,
		Status:         shop.OrderStatusPending.String(),
		PaymentMethod:  order.PaymentMethod.String(),
		PaymentDetails: datatypesJSON(order.PaymentDetails),
		TotalAmount:    order.TotalAmount,
		CreatedAt:      order.CreatedAt,
	}
	if model.CreatedAt.IsZero() {
		model.CreatedAt = time.Now().UTC()
	}
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		return shop.Order{}, wrapStoreError(errorSubjectOrder, errorCodeCreate, err)
	}
	mapped, err := mapOrder(model)
	if err != nil {
		return shop.Order{}, wrapStoreError(errorSubjectOrder, errorCodeInvalid, err)
	}
	return mapped, nil
}

func (store *Store) GetOrder(ctx context.Context, orderID int64) (shop.Order, error) {
	var model Order
	err := store.db.WithContext(ctx).Preload("Product").Where("id = ?", orderID).Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return shop.Order{}, wrapStoreError(errorSubjectOrder, errorCodeGet, shop.ErrUnknownOrder)
		}
		return shop.Order{}, wrapStoreError(errorSubjectOrder, errorCodeGet, err)
	}
	order, err := mapOrder(model)
	if err != nil {
		return shop.Order{}, wrapStoreError(errorSubjectOrder, errorCodeInvalid, err)
	}
	return order, nil
}

func (store *Store) ListOrders(ctx context.Context, userID int64) ([]shop.Order, error) {
	var rows []Order
	err := store.db.WithContext(ctx).
		Preload("Product").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectOrder, errorCodeList, err)
	}
	orders := make([]shop.Order, 0, len(rows))
	for _, row := range rows {
		order, err := mapOrder(row)
		if err != nil {
			return nil, wrapStoreError(errorSubjectOrder, errorCodeInvalid, err)
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func (store *Store) UpdateOrderStatus(ctx context.Context, orderID int64, status shop.OrderStatus, completedAt *time.Time) error {
	updates := map[string]interface{}{"status": status.String()}
	if completedAt != nil {
		updates["completed_at"] = completedAt.UTC()
	}
	result := store.db.WithContext(ctx).
		Model(&Order{}).
		Where("id = ?", orderID).
		Updates(updates)
	if result.Error != nil {
		return wrapStoreError(errorSubjectOrder, errorCodeUpdateStatus, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectOrder, errorCodeUpdateStatus, shop.ErrUnknownOrder)
	}
	return nil
}

func wrapStoreError(subject string, code string, err error) error {
	return storefront.WrapError(errorOperationStore, subject, code, err)
}

func mapUser(row User) shop.User {
	return shop.User{
		ID:         row.ID,
		TelegramID: storefront.UserID(row.TelegramID),
		Username:   row.Username,
		FirstName:  row.FirstName,
		LastName:   row.LastName,
		IsAdmin:    row.IsAdmin,
		CreatedAt:  row.CreatedAt,
	}
}

func mapCategory(row Category) storefront.Category {
	return storefront.Category{
		ID:      row.ID,
		Name:    row.Name,
		Emoji:   row.Emoji,
		IsGame:  row.IsGame,
		IconURL: row.IconURL,
	}
}

func mapProduct(row Product) shop.Product {
	return shop.Product{
		Product: storefront.Product{
			ID:          row.ID,
			Name:        row.Name,
			Description: row.Description,
			Price:       row.Price,
			ImageURL:    row.ImageURL,
			CategoryID:  row.CategoryID,
		},
		IsAvailable: row.IsAvailable,
	}
}

func mapOrder(row Order) (shop.Order, error) {
	status, err := shop.ParseOrderStatus(row.Status)
	if err != nil {
		return shop.Order{}, err
	}
	method, err := storefront.ParsePaymentMethod(row.PaymentMethod)
	if err != nil {
		return shop.Order{}, err
	}
	order := shop.Order{
		ID:            row.ID,
		Reference:     row.Reference,
		UserID:        row.UserID,
		ProductID:     row.ProductID,
		Status:        status,
		PaymentMethod: method,
		TotalAmount:   row.TotalAmount,
		CreatedAt:     row.CreatedAt,
		CompletedAt:   row.CompletedAt,
	}
	if row.Product != nil {
		order.ProductName = row.Product.Name
	}
	if len(row.PaymentDetails) > 0 && string(row.PaymentDetails) != defaultPaymentDetailsJSON {
		order.PaymentDetails = json.RawMessage(row.PaymentDetails)
	}
	return order, nil
}

func datatypesJSON(raw json.RawMessage) datatypes.JSON {
	if len(raw) == 0 {
		return datatypes.JSON([]byte(defaultPaymentDetailsJSON))
	}
	return datatypes.JSON(raw)
}

func isUserConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode && pgErr.ConstraintName == constraintUsersTelegramID
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xFF == sqliteConstraintCode
	}
	return false
}
