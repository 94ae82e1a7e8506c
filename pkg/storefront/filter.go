package storefront

import (
	"strings"

	"golang.org/x/text/cases"
)

// PartitionCategories splits categories into game and app groups, keeping the
// input order inside each group.
func PartitionCategories(categories []Category) (gameCategories []Category, appCategories []Category) {
	gameCategories = make([]Category, 0, len(categories))
	appCategories = make([]Category, 0, len(categories))
	for _, category := range categories {
		if category.IsGame {
			gameCategories = append(gameCategories, category)
			continue
		}
		appCategories = append(appCategories, category)
	}
	return gameCategories, appCategories
}

// FilterProducts returns the products whose name or description contains query,
// compared case-insensitively. An empty query returns products unchanged.
func FilterProducts(products []Product, query string) []Product {
	if query == "" {
		return products
	}
	folder := cases.Fold()
	needle := folder.String(query)
	matches := make([]Product, 0, len(products))
	for _, product := range products {
		if strings.Contains(folder.String(product.Name), needle) || strings.Contains(folder.String(product.Description), needle) {
			matches = append(matches, product)
		}
	}
	return matches
}

// ProductsInCategory keeps the products assigned to categoryID.
func ProductsInCategory(products []Product, categoryID int64) []Product {
	matches := make([]Product, 0, len(products))
	for _, product := range products {
		if product.CategoryID == categoryID {
			matches = append(matches, product)
		}
	}
	return matches
}
