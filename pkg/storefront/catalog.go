package storefront

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

const (
	errorSubjectCategories = "categories"
	errorSubjectProducts   = "products"
	errorCodeFetch         = "fetch"
)

// CatalogAPI fetches the catalog collections on behalf of a credential.
type CatalogAPI interface {
	ListCategories(ctx context.Context, credential Credential) ([]Category, error)
	ListProducts(ctx context.Context, credential Credential) ([]Product, error)
}

// OrderAPI submits orders on behalf of a credential.
type OrderAPI interface {
	CreateOrder(ctx context.Context, credential Credential, request OrderRequest) error
}

// LoadCatalog fetches categories and products concurrently. Both requests must
// succeed; otherwise no partial catalog is returned.
func LoadCatalog(ctx context.Context, api CatalogAPI, credential Credential) (Catalog, error) {
	if api == nil {
		return Catalog{}, fmt.Errorf("%w: catalog api is nil", ErrInvalidSessionConfig)
	}
	var (
		categories []Category
		products   []Product
	)
	group, groupContext := errgroup.WithContext(ctx)
	group.Go(func() error {
		fetched, err := api.ListCategories(groupContext, credential)
		if err != nil {
			return WrapError(operationLoad, errorSubjectCategories, errorCodeFetch, err)
		}
		categories = fetched
		return nil
	})
	group.Go(func() error {
		fetched, err := api.ListProducts(groupContext, credential)
		if err != nil {
			return WrapError(operationLoad, errorSubjectProducts, errorCodeFetch, err)
		}
		products = fetched
		return nil
	})
	if err := group.Wait(); err != nil {
		return Catalog{}, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}
	if categories == nil {
		categories = []Category{}
	}
	if products == nil {
		products = []Product{}
	}
	return Catalog{Categories: categories, Products: products}, nil
}
