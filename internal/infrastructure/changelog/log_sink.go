package changelog

import (
	"context"

	"github.com/Shrijana18/StockPilot-v1-sub005/internal/domain/inventory"
	"github.com/Shrijana18/StockPilot-v1-sub005/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// LogSink writes each change record as a structured log line
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a log sink
func NewLogSink(l *zap.Logger) *LogSink {
	if l == nil {
		l = zap.NewNop()
	}
	return &LogSink{logger: l.Named("changelog")}
}

// Append never fails
func (s *LogSink) Append(ctx context.Context, records ...inventory.ChangeRecord) error {
	log := logger.ForContext(ctx, s.logger)
	for _, r := range records {
		log.Info("stock change",
			zap.String("change_id", r.ID.String()),
			zap.String("scope_id", r.ScopeID.String()),
			zap.String("sku", r.SKU),
			zap.String("order_id", r.OrderID),
			zap.String("action", r.Action),
			zap.String("source", r.Source),
			zap.String("previous_quantity", r.PreviousQuantity.String()),
			zap.String("new_quantity", r.NewQuantity.String()),
			zap.String("previous_reserved", r.PreviousReserved.String()),
			zap.String("new_reserved", r.NewReserved.String()),
			zap.Time("recorded_at", r.RecordedAt),
		)
	}
	return nil
}

var _ inventory.ChangeLogger = (*LogSink)(nil)
