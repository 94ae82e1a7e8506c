package storefront

import "context"

// SessionOption configures a Session instance.
type SessionOption func(*Session)

// OperationLogger records domain-level events emitted by Session operations.
type OperationLogger interface {
	LogOperation(ctx context.Context, entry OperationLog)
}

// OperationLog describes a session operation. It never carries the credential.
type OperationLog struct {
	Operation     string
	UserID        UserID
	ProductID     int64
	PaymentMethod PaymentMethod
	Categories    int
	Products      int
	Status        string
	Error         error
}

// WithOperationLogger wires a logger that receives callbacks for every operation.
func WithOperationLogger(logger OperationLogger) SessionOption {
	return func(session *Session) {
		session.logger = logger
	}
}

func logOperation(ctx context.Context, logger OperationLogger, entry OperationLog) {
	if logger == nil {
		return
	}
	if entry.Status == "" {
		if entry.Error != nil {
			entry.Status = operationStatusError
		} else {
			entry.Status = operationStatusOK
		}
	}
	logger.LogOperation(ctx, entry)
}
