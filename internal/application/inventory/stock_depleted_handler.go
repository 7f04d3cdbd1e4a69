package inventory

import (
	"context"
	"fmt"

	"github.com/Shrijana18/StockPilot-v1-sub005/internal/domain/inventory"
	"github.com/Shrijana18/StockPilot-v1-sub005/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DepletionRecorder counts skus that ran out of available stock
type DepletionRecorder interface {
	RecordDepletion(ctx context.Context, tenantID uuid.UUID, sku string)
}

// StockAlertNotifier is the interface for sending stock alerts.
// Implementations can support different channels (in-app, email, SMS, etc.)
type StockAlertNotifier interface {
	SendAlert(ctx context.Context, alert StockAlert) error
}

// StockAlert represents a depletion alert
type StockAlert struct {
	TenantID  string `json:"tenant_id"`
	RecordID  string `json:"record_id"`
	SKU       string `json:"sku"`
	OrderID   string `json:"order_id"`
	Quantity  string `json:"quantity"`
	AlertType string `json:"alert_type"` // "sold_out", "out_of_stock"
}

// StockDepletedHandler handles StockDepleted events: it logs the depletion,
// counts it and forwards an alert when a notifier is configured
type StockDepletedHandler struct {
	logger   *zap.Logger
	recorder DepletionRecorder
	notifier StockAlertNotifier
}

// NewStockDepletedHandler creates a new handler for stock depleted events
func NewStockDepletedHandler(logger *zap.Logger) *StockDepletedHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StockDepletedHandler{logger: logger}
}

// WithRecorder sets the depletion counter
func (h *StockDepletedHandler) WithRecorder(recorder DepletionRecorder) *StockDepletedHandler {
	h.recorder = recorder
	return h
}

// WithNotifier sets the notifier for sending alerts
func (h *StockDepletedHandler) WithNotifier(notifier StockAlertNotifier) *StockDepletedHandler {
	h.notifier = notifier
	return h
}

// EventTypes returns the event types this handler is interested in
func (h *StockDepletedHandler) EventTypes() []string {
	return []string{inventory.EventTypeStockDepleted}
}

// Handle processes a StockDepletedEvent
func (h *StockDepletedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	depleted, ok := event.(*inventory.StockDepletedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", inventory.EventTypeStockDepleted),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			inventory.EventTypeStockDepleted, event.EventType())
	}

	h.logger.Warn("stock depleted",
		zap.String("tenant_id", event.TenantID().String()),
		zap.String("record_id", event.AggregateID().String()),
		zap.String("sku", depleted.SKU),
		zap.String("order_id", depleted.OrderID),
		zap.String("quantity", depleted.Quantity.String()),
	)

	if h.recorder != nil {
		h.recorder.RecordDepletion(ctx, event.TenantID(), depleted.SKU)
	}

	if h.notifier == nil {
		return nil
	}

	// quantity left but all of it held means sold out pending fulfilment
	alertType := "sold_out"
	if depleted.Quantity.IsZero() {
		alertType = "out_of_stock"
	}
	alert := StockAlert{
		TenantID:  event.TenantID().String(),
		RecordID:  event.AggregateID().String(),
		SKU:       depleted.SKU,
		OrderID:   depleted.OrderID,
		Quantity:  depleted.Quantity.String(),
		AlertType: alertType,
	}
	if err := h.notifier.SendAlert(ctx, alert); err != nil {
		// notification failure doesn't fail the event handling
		h.logger.Error("failed to send stock alert notification",
			zap.String("sku", alert.SKU),
			zap.Error(err),
		)
	}
	return nil
}

var _ shared.EventHandler = (*StockDepletedHandler)(nil)

// LoggingStockAlertNotifier is a notifier that logs alerts.
// It is useful for development and testing.
type LoggingStockAlertNotifier struct {
	logger *zap.Logger
}

// NewLoggingStockAlertNotifier creates a new logging notifier
func NewLoggingStockAlertNotifier(logger *zap.Logger) *LoggingStockAlertNotifier {
	return &LoggingStockAlertNotifier{logger: logger}
}

// SendAlert logs the stock alert
func (n *LoggingStockAlertNotifier) SendAlert(_ context.Context, alert StockAlert) error {
	n.logger.Warn("STOCK ALERT",
		zap.String("type", alert.AlertType),
		zap.String("sku", alert.SKU),
		zap.String("order_id", alert.OrderID),
		zap.String("quantity", alert.Quantity),
	)
	return nil
}

var _ StockAlertNotifier = (*LoggingStockAlertNotifier)(nil)
