package shop

import "errors"

// Domain-level error values returned by the shop service.
var (
	ErrInvalidServiceConfig = errors.New("invalid service config")
	ErrForbidden            = errors.New("forbidden")
	ErrUnknownProduct       = errors.New("unknown product")
	ErrUnknownCategory      = errors.New("unknown category")
	ErrProductUnavailable   = errors.New("product unavailable")
	ErrUnknownOrder         = errors.New("unknown order")
	ErrInvalidOrderStatus   = errors.New("invalid order status")
	ErrInvalidProduct       = errors.New("invalid product")
	ErrInvalidCategory      = errors.New("invalid category")
	ErrInvalidProfile       = errors.New("invalid user profile")
)
