// Package oplog forwards storefront operation events to zap.
package oplog

import (
	"context"

	"github.com/MarkoPoloResearchLab/storefront/pkg/storefront"
	"go.uber.org/zap"
)

const operationMessage = "storefront operation"

// ZapLogger implements storefront.OperationLogger.
type ZapLogger struct {
	logger *zap.Logger
}

// New wraps logger; a nil logger becomes a no-op logger.
func New(logger *zap.Logger) *ZapLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapLogger{logger: logger}
}

// LogOperation writes one structured entry per operation.
func (zapLogger *ZapLogger) LogOperation(_ context.Context, entry storefront.OperationLog) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("status", entry.Status),
	}
	if entry.UserID != 0 {
		fields = append(fields, zap.Int64("user_id", entry.UserID.Int64()))
	}
	if entry.ProductID != 0 {
		fields = append(fields, zap.Int64("product_id", entry.ProductID))
	}
	if entry.PaymentMethod != "" {
		fields = append(fields, zap.String("payment_method", entry.PaymentMethod.String()))
	}
	if entry.Categories != 0 || entry.Products != 0 {
		fields = append(fields, zap.Int("categories", entry.Categories), zap.Int("products", entry.Products))
	}
	if entry.Error != nil {
		zapLogger.logger.Warn(operationMessage, append(fields, zap.Error(entry.Error))...)
		return
	}
	zapLogger.logger.Info(operationMessage, fields...)
}
