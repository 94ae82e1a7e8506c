package shop

import (
	"context"
	"time"

	"github.com/MarkoPoloResearchLab/storefront/pkg/storefront"
)

const (
	operationAuthenticate    = "authenticate"
	operationCreateCategory  = "create_category"
	operationCreateProduct   = "create_product"
	operationPlaceOrder      = "place_order"
	operationNotifyOrder     = "notify_order"
	operationUpdateOrder     = "update_order_status"
	operationSeed            = "seed"
	operationStatusOK        = "ok"
	operationStatusError     = "error"
	operationStatusForbidden = "forbidden"
)

// ServiceOption configures a Service instance.
type ServiceOption func(*Service)

// OperationLogger records domain-level events emitted by Service operations.
type OperationLogger interface {
	LogOperation(ctx context.Context, entry OperationLog)
}

// OperationLog describes a write operation of the shop service.
type OperationLog struct {
	Operation  string
	TelegramID storefront.UserID
	ProductID  int64
	OrderID    int64
	Status     string
	Error      error
}

// WithOperationLogger wires a logger that receives callbacks for every write.
func WithOperationLogger(logger OperationLogger) ServiceOption {
	return func(service *Service) {
		service.logger = logger
	}
}

// WithOrderNotifier wires the order announcement channel.
func WithOrderNotifier(notifier OrderNotifier) ServiceOption {
	return func(service *Service) {
		service.notifier = notifier
	}
}

// WithNotifyTimeout bounds how long an order announcement may take.
func WithNotifyTimeout(timeout time.Duration) ServiceOption {
	return func(service *Service) {
		if timeout > 0 {
			service.notifyTimeout = timeout
		}
	}
}

// WithAdminIDs marks host users that are administrators regardless of storage.
func WithAdminIDs(adminIDs ...storefront.UserID) ServiceOption {
	return func(service *Service) {
		for _, adminID := range adminIDs {
			service.adminIDs[adminID] = struct{}{}
		}
	}
}

func (service *Service) logOperation(ctx context.Context, entry OperationLog) {
	if service.logger == nil {
		return
	}
	if entry.Status == "" {
		if entry.Error != nil {
			entry.Status = operationStatusError
		} else {
			entry.Status = operationStatusOK
		}
	}
	service.logger.LogOperation(ctx, entry)
}
