package storefront

import (
	"context"
	"fmt"
	"sync"
)

// PurchaseOrchestrator drives the confirm-then-submit flow for one product at a
// time. The credential is derived once from the identity it was built with.
type PurchaseOrchestrator struct {
	identity   UserIdentity
	credential Credential
	bridge     HostBridge
	orders     OrderAPI
	logger     OperationLogger

	mutex  sync.Mutex
	state  PurchaseState
	intent PurchaseIntent
}

// NewPurchaseOrchestrator wires an orchestrator for the given identity.
func NewPurchaseOrchestrator(identity UserIdentity, bridge HostBridge, orders OrderAPI, logger OperationLogger) (*PurchaseOrchestrator, error) {
	if bridge == nil {
		return nil, fmt.Errorf("%w: host bridge dependency is nil", ErrInvalidSessionConfig)
	}
	if orders == nil {
		return nil, fmt.Errorf("%w: order api dependency is nil", ErrInvalidSessionConfig)
	}
	return &PurchaseOrchestrator{
		identity:   identity,
		credential: EncodeCredential(identity.ID),
		bridge:     bridge,
		orders:     orders,
		logger:     logger,
		state:      PurchaseStateIdle,
	}, nil
}

// State returns the current lifecycle state.
func (orchestrator *PurchaseOrchestrator) State() PurchaseState {
	orchestrator.mutex.Lock()
	defer orchestrator.mutex.Unlock()
	return orchestrator.state
}

// InFlight returns the pending intent, if any.
func (orchestrator *PurchaseOrchestrator) InFlight() (PurchaseIntent, bool) {
	orchestrator.mutex.Lock()
	defer orchestrator.mutex.Unlock()
	if orchestrator.state == PurchaseStateIdle {
		return PurchaseIntent{}, false
	}
	return orchestrator.intent, true
}

// Purchase asks the user for a payment method and submits exactly one order for
// the confirmed choice. The orchestrator is back to idle when it returns.
func (orchestrator *PurchaseOrchestrator) Purchase(ctx context.Context, product Product) (PurchaseOutcome, error) {
	if err := orchestrator.begin(product); err != nil {
		orchestrator.logPurchase(ctx, product, "", err)
		return PurchaseOutcome{}, err
	}
	defer orchestrator.finish()

	buttonID, err := orchestrator.bridge.ShowPopup(ctx, paymentPopup(product))
	if err != nil {
		purchaseError := newPurchaseError(PurchasePhaseChoice, product, "", err)
		orchestrator.logPurchase(ctx, product, "", purchaseError)
		return PurchaseOutcome{}, purchaseError
	}
	method, confirmed, err := resolveChoice(buttonID)
	if err != nil {
		purchaseError := newPurchaseError(PurchasePhaseChoice, product, "", err)
		orchestrator.logPurchase(ctx, product, "", purchaseError)
		return PurchaseOutcome{}, purchaseError
	}
	if !confirmed {
		logOperation(ctx, orchestrator.logger, OperationLog{
			Operation: operationPurchase,
			UserID:    orchestrator.identity.ID,
			ProductID: product.ID,
			Status:    operationStatusCancelled,
		})
		return PurchaseOutcome{Status: PurchaseStatusCancelled, Intent: PurchaseIntent{Product: product}}, nil
	}

	intent := orchestrator.submitting(method)
	request := OrderRequest{ProductID: product.ID, PaymentMethod: method}
	if err := orchestrator.orders.CreateOrder(ctx, orchestrator.credential, request); err != nil {
		purchaseError := newPurchaseError(PurchasePhaseSubmission, product, method, fmt.Errorf("%w: %w", ErrOrderSubmissionFailed, err))
		orchestrator.logPurchase(ctx, product, method, purchaseError)
		return PurchaseOutcome{}, purchaseError
	}
	orchestrator.logPurchase(ctx, product, method, nil)
	return PurchaseOutcome{Status: PurchaseStatusSubmitted, Intent: intent}, nil
}

func (orchestrator *PurchaseOrchestrator) begin(product Product) error {
	orchestrator.mutex.Lock()
	defer orchestrator.mutex.Unlock()
	if orchestrator.state != PurchaseStateIdle {
		pending := orchestrator.intent.Product
		return newPurchaseError(PurchasePhaseStart, product, "", fmt.Errorf("%w: product %d is %s", ErrPurchaseAlreadyInProgress, pending.ID, orchestrator.state))
	}
	orchestrator.state = PurchaseStateAwaitingChoice
	orchestrator.intent = PurchaseIntent{Product: product}
	return nil
}

func (orchestrator *PurchaseOrchestrator) submitting(method PaymentMethod) PurchaseIntent {
	orchestrator.mutex.Lock()
	defer orchestrator.mutex.Unlock()
	orchestrator.state = PurchaseStateSubmitting
	orchestrator.intent.Method = method
	return orchestrator.intent
}

func (orchestrator *PurchaseOrchestrator) finish() {
	orchestrator.mutex.Lock()
	defer orchestrator.mutex.Unlock()
	orchestrator.state = PurchaseStateIdle
	orchestrator.intent = PurchaseIntent{}
}

func (orchestrator *PurchaseOrchestrator) logPurchase(ctx context.Context, product Product, method PaymentMethod, err error) {
	logOperation(ctx, orchestrator.logger, OperationLog{
		Operation:     operationPurchase,
		UserID:        orchestrator.identity.ID,
		ProductID:     product.ID,
		PaymentMethod: method,
		Error:         err,
	})
}
