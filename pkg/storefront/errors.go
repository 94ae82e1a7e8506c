package storefront

import (
	"errors"
	"fmt"
)

// Domain-level error values returned by the storefront session.
var (
	ErrNoIdentity                = errors.New("no identity")
	ErrCatalogUnavailable        = errors.New("catalog unavailable")
	ErrCatalogLoadInProgress     = errors.New("catalog load already in progress")
	ErrPurchaseAlreadyInProgress = errors.New("purchase already in progress")
	ErrOrderSubmissionFailed     = errors.New("order submission failed")
	ErrInvalidPaymentMethod      = errors.New("invalid payment method")
	ErrInvalidCredential         = errors.New("invalid credential")
	ErrUnknownProduct            = errors.New("unknown product")
	ErrInvalidSessionConfig      = errors.New("invalid session config")
	ErrSessionClosed             = errors.New("session closed")
)

// OperationError wraps a failure with a stable operation code.
type OperationError struct {
	operation string
	subject   string
	code      string
	err       error
}

// Error returns the formatted error message.
func (operationError OperationError) Error() string {
	return fmt.Sprintf("%s.%s.%s: %v", operationError.operation, operationError.subject, operationError.code, operationError.err)
}

// Unwrap returns the underlying error.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// Operation returns the operation segment.
func (operationError OperationError) Operation() string {
	return operationError.operation
}

// Subject returns the subject segment.
func (operationError OperationError) Subject() string {
	return operationError.subject
}

// Code returns the stable error code segment.
func (operationError OperationError) Code() string {
	return operationError.code
}

// WrapError wraps an error with operation, subject, and code metadata.
func WrapError(operation string, subject string, code string, err error) error {
	if err == nil {
		return nil
	}
	return OperationError{
		operation: operation,
		subject:   subject,
		code:      code,
		err:       err,
	}
}

// PurchasePhase names the step of the purchase flow in which an error surfaced.
type PurchasePhase string

const (
	PurchasePhaseStart      PurchasePhase = "start"
	PurchasePhaseChoice     PurchasePhase = "choice"
	PurchasePhaseSubmission PurchasePhase = "submission"
)

// PurchaseError carries the product and payment method context of a failed purchase.
type PurchaseError struct {
	Phase       PurchasePhase
	ProductID   int64
	ProductName string
	Method      PaymentMethod
	err         error
}

// Error returns the formatted error message.
func (purchaseError *PurchaseError) Error() string {
	method := purchaseError.Method.String()
	if method == "" {
		method = "none"
	}
	return fmt.Sprintf("purchase.%s: product %d (%s) via %s: %v", purchaseError.Phase, purchaseError.ProductID, purchaseError.ProductName, method, purchaseError.err)
}

// Unwrap returns the underlying error.
func (purchaseError *PurchaseError) Unwrap() error {
	return purchaseError.err
}

func newPurchaseError(phase PurchasePhase, product Product, method PaymentMethod, err error) error {
	return &PurchaseError{
		Phase:       phase,
		ProductID:   product.ID,
		ProductName: product.Name,
		Method:      method,
		err:         err,
	}
}
