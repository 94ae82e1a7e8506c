package storefront

import (
	"context"
	"fmt"
	"sync"
)

// Session owns the identity, credential, catalog snapshot and purchase flow of
// one mounted client.
type Session struct {
	bridge     HostBridge
	catalogAPI CatalogAPI
	orderAPI   OrderAPI
	logger     OperationLogger

	mutex         sync.Mutex
	mounted       bool
	authenticated bool
	identity      UserIdentity
	credential    Credential
	catalog       Catalog
	loading       bool
	closed        bool
	purchases     *PurchaseOrchestrator
}

// NewSession wires a Session.
func NewSession(bridge HostBridge, catalogAPI CatalogAPI, orderAPI OrderAPI, options ...SessionOption) (*Session, error) {
	if bridge == nil {
		return nil, fmt.Errorf("%w: host bridge dependency is nil", ErrInvalidSessionConfig)
	}
	if catalogAPI == nil {
		return nil, fmt.Errorf("%w: catalog api dependency is nil", ErrInvalidSessionConfig)
	}
	if orderAPI == nil {
		return nil, fmt.Errorf("%w: order api dependency is nil", ErrInvalidSessionConfig)
	}
	session := &Session{
		bridge:     bridge,
		catalogAPI: catalogAPI,
		orderAPI:   orderAPI,
		catalog:    Catalog{Categories: []Category{}, Products: []Product{}},
	}
	for _, option := range options {
		if option != nil {
			option(session)
		}
	}
	return session, nil
}

// Mount signals the host, resolves the identity and loads the catalog.
// Without an identity the session stays unauthenticated and nothing is fetched.
func (session *Session) Mount(ctx context.Context) error {
	if err := session.acquireLoadSlot(); err != nil {
		return err
	}
	defer session.releaseLoadSlot()

	session.mutex.Lock()
	firstMount := !session.mounted
	session.mounted = true
	authenticated := session.authenticated
	session.mutex.Unlock()

	if firstMount {
		session.bridge.Ready()
		session.bridge.Expand()
	}
	if !authenticated {
		identity, err := ExtractIdentity(session.bridge.InitData())
		if err != nil {
			logOperation(ctx, session.logger, OperationLog{Operation: operationMount, Error: err})
			return err
		}
		if err := session.authenticate(identity); err != nil {
			logOperation(ctx, session.logger, OperationLog{Operation: operationMount, UserID: identity.ID, Error: err})
			return err
		}
		logOperation(ctx, session.logger, OperationLog{Operation: operationMount, UserID: identity.ID})
	}
	return session.loadCatalog(ctx)
}

// ReloadCatalog fetches the catalog again for an authenticated session.
func (session *Session) ReloadCatalog(ctx context.Context) error {
	session.mutex.Lock()
	authenticated := session.authenticated
	session.mutex.Unlock()
	if !authenticated {
		return fmt.Errorf("%w: session is not authenticated", ErrNoIdentity)
	}
	if err := session.acquireLoadSlot(); err != nil {
		return err
	}
	defer session.releaseLoadSlot()
	return session.loadCatalog(ctx)
}

// Identity returns the resolved identity; ok is false while unauthenticated.
func (session *Session) Identity() (UserIdentity, bool) {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	return session.identity, session.authenticated
}

// Catalog returns a copy of the current snapshot.
func (session *Session) Catalog() Catalog {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	return session.catalog.clone()
}

// Search filters the current products by query.
func (session *Session) Search(query string) []Product {
	return FilterProducts(session.Catalog().Products, query)
}

// Partition splits the current categories into game and app groups.
func (session *Session) Partition() ([]Category, []Category) {
	return PartitionCategories(session.Catalog().Categories)
}

// Buy starts the purchase flow for a product of the current snapshot.
func (session *Session) Buy(ctx context.Context, productID int64) (PurchaseOutcome, error) {
	session.mutex.Lock()
	closed := session.closed
	purchases := session.purchases
	product, found := session.catalog.FindProduct(productID)
	session.mutex.Unlock()

	if closed {
		return PurchaseOutcome{}, ErrSessionClosed
	}
	if purchases == nil {
		return PurchaseOutcome{}, fmt.Errorf("%w: session is not authenticated", ErrNoIdentity)
	}
	if !found {
		return PurchaseOutcome{}, newPurchaseError(PurchasePhaseStart, Product{ID: productID}, "", ErrUnknownProduct)
	}
	return purchases.Purchase(ctx, product)
}

// PurchaseState reports the purchase lifecycle state.
func (session *Session) PurchaseState() PurchaseState {
	session.mutex.Lock()
	purchases := session.purchases
	session.mutex.Unlock()
	if purchases == nil {
		return PurchaseStateIdle
	}
	return purchases.State()
}

// Close marks the session as gone; late catalog results are discarded.
func (session *Session) Close() {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	session.closed = true
}

func (session *Session) authenticate(identity UserIdentity) error {
	purchases, err := NewPurchaseOrchestrator(identity, session.bridge, session.orderAPI, session.logger)
	if err != nil {
		return err
	}
	session.mutex.Lock()
	defer session.mutex.Unlock()
	session.identity = identity
	session.credential = EncodeCredential(identity.ID)
	session.purchases = purchases
	session.authenticated = true
	return nil
}

func (session *Session) loadCatalog(ctx context.Context) error {
	session.mutex.Lock()
	credential := session.credential
	userID := session.identity.ID
	session.mutex.Unlock()

	catalog, err := LoadCatalog(ctx, session.catalogAPI, credential)
	if err != nil {
		logOperation(ctx, session.logger, OperationLog{Operation: operationLoad, UserID: userID, Error: err})
		return err
	}

	session.mutex.Lock()
	closed := session.closed
	if !closed {
		session.catalog = catalog
	}
	session.mutex.Unlock()
	if closed {
		return ErrSessionClosed
	}
	logOperation(ctx, session.logger, OperationLog{
		Operation:  operationLoad,
		UserID:     userID,
		Categories: len(catalog.Categories),
		Products:   len(catalog.Products),
	})
	return nil
}

func (session *Session) acquireLoadSlot() error {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	if session.closed {
		return ErrSessionClosed
	}
	if session.loading {
		return ErrCatalogLoadInProgress
	}
	session.loading = true
	return nil
}

func (session *Session) releaseLoadSlot() {
	session.mutex.Lock()
	defer session.mutex.Unlock()
	session.loading = false
}
