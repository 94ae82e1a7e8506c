package shop

import (
	"context"

	"github.com/shopspring/decimal"
)

// SeedCategory is a category with the products created alongside it.
type SeedCategory struct {
	Category NewCategory
	Products []NewProduct
}

// DemoCatalog is the catalog installed by Seed on an empty database.
func DemoCatalog() []SeedCategory {
	return []SeedCategory{
		{
			Category: NewCategory{Name: "Chess", Emoji: "♟️", IsGame: true},
			Products: []NewProduct{
				{Name: "Chess Pro", Description: "Premium account for one month", Price: decimal.RequireFromString("9.99"), DeliveryData: "code:CHESS-PRO"},
			},
		},
		{
			Category: NewCategory{Name: "Brawl Stars", Emoji: "⭐", IsGame: true},
			Products: []NewProduct{
				{Name: "Brawl Pass", Description: "Season pass with bonus gems", Price: decimal.RequireFromString("6.49"), DeliveryData: "code:BRAWL-PASS"},
				{Name: "170 Gems", Description: "Gems top-up", Price: decimal.RequireFromString("4.50"), DeliveryData: "code:GEMS-170"},
			},
		},
		{
			Category: NewCategory{Name: "Telegram", Emoji: "✈️", IsGame: false},
			Products: []NewProduct{
				{Name: "Telegram Premium", Description: "Подписка на 3 месяца", Price: decimal.RequireFromString("12.00"), DeliveryData: "gift:premium-3m"},
				{Name: "100 Stars", Description: "Звёзды для оплаты в ботах", Price: decimal.RequireFromString("1.99"), DeliveryData: "gift:stars-100"},
			},
		},
	}
}

// Seed installs catalog when no category exists yet and reports whether it did.
func (service *Service) Seed(ctx context.Context, catalog []SeedCategory) (bool, error) {
	seeded := false
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		count, err := transactionStore.CountCategories(ctx)
		if err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		for _, entry := range catalog {
			if err := entry.Category.Validate(); err != nil {
				return err
			}
			category, err := transactionStore.CreateCategory(ctx, entry.Category)
			if err != nil {
				return err
			}
			for _, product := range entry.Products {
				product.CategoryID = category.ID
				if err := product.Validate(); err != nil {
					return err
				}
				if _, err := transactionStore.CreateProduct(ctx, product); err != nil {
					return err
				}
			}
		}
		seeded = true
		return nil
	})
	service.logOperation(ctx, OperationLog{Operation: operationSeed, Error: operationError})
	if operationError != nil {
		return false, operationError
	}
	return seeded, nil
}
