package inventory

import (
	"time"

	"github.com/Shrijana18/StockPilot-v1-sub005/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Event type constants
const (
	EventTypeStockReserved = "StockReserved"
	EventTypeStockReleased = "StockReleased"
	EventTypeStockDeducted = "StockDeducted"
	EventTypeStockAdjusted = "StockAdjusted"
	EventTypeStockDepleted = "StockDepleted"
)

// StockReservedEvent is raised when an order holds stock
type StockReservedEvent struct {
	shared.RecordEvent
	SKU              string          `json:"sku"`
	OrderID          string          `json:"order_id"`
	Quantity         decimal.Decimal `json:"quantity"`
	ReservedQuantity decimal.Decimal `json:"reserved_quantity"`
}

func NewStockReservedEvent(r *InventoryRecord, orderID string, quantity decimal.Decimal, at time.Time) *StockReservedEvent {
	return &StockReservedEvent{
		RecordEvent:      shared.NewRecordEvent(EventTypeStockReserved, r.ID, r.TenantID, at),
		SKU:              r.SKU,
		OrderID:          orderID,
		Quantity:         quantity,
		ReservedQuantity: r.reservedQuantity,
	}
}

// StockReleasedEvent is raised when held stock returns to the pool.
// Released may be less than Requested when the reserved count was clamped.
type StockReleasedEvent struct {
	shared.RecordEvent
	SKU       string          `json:"sku"`
	Requested decimal.Decimal `json:"requested"`
	Released  decimal.Decimal `json:"released"`
}

func NewStockReleasedEvent(r *InventoryRecord, requested, released decimal.Decimal, at time.Time) *StockReleasedEvent {
	return &StockReleasedEvent{
		RecordEvent: shared.NewRecordEvent(EventTypeStockReleased, r.ID, r.TenantID, at),
		SKU:         r.SKU,
		Requested:   requested,
		Released:    released,
	}
}

// StockDeductedEvent is raised when an accepted order consumes stock
type StockDeductedEvent struct {
	shared.RecordEvent
	SKU              string          `json:"sku"`
	OrderID          string          `json:"order_id"`
	PreviousQuantity decimal.Decimal `json:"previous_quantity"`
	NewQuantity      decimal.Decimal `json:"new_quantity"`
	PreviousReserved decimal.Decimal `json:"previous_reserved"`
	NewReserved      decimal.Decimal `json:"new_reserved"`
}

func NewStockDeductedEvent(r *InventoryRecord, orderID string, d Deduction, at time.Time) *StockDeductedEvent {
	return &StockDeductedEvent{
		RecordEvent:      shared.NewRecordEvent(EventTypeStockDeducted, r.ID, r.TenantID, at),
		SKU:              r.SKU,
		OrderID:          orderID,
		PreviousQuantity: d.PreviousQuantity,
		NewQuantity:      d.NewQuantity,
		PreviousReserved: d.PreviousReserved,
		NewReserved:      d.NewReserved,
	}
}

// StockAdjustedEvent is raised by catalog quantity edits
type StockAdjustedEvent struct {
	shared.RecordEvent
	SKU              string          `json:"sku"`
	PreviousQuantity decimal.Decimal `json:"previous_quantity"`
	NewQuantity      decimal.Decimal `json:"new_quantity"`
}

func NewStockAdjustedEvent(r *InventoryRecord, previous decimal.Decimal, at time.Time) *StockAdjustedEvent {
	return &StockAdjustedEvent{
		RecordEvent:      shared.NewRecordEvent(EventTypeStockAdjusted, r.ID, r.TenantID, at),
		SKU:              r.SKU,
		PreviousQuantity: previous,
		NewQuantity:      r.quantity,
	}
}

// StockDepletedEvent is raised when a sku has nothing left to offer
type StockDepletedEvent struct {
	shared.RecordEvent
	SKU      string          `json:"sku"`
	OrderID  string          `json:"order_id"`
	Quantity decimal.Decimal `json:"quantity"`
}

func NewStockDepletedEvent(r *InventoryRecord, orderID string, at time.Time) *StockDepletedEvent {
	return &StockDepletedEvent{
		RecordEvent: shared.NewRecordEvent(EventTypeStockDepleted, r.ID, r.TenantID, at),
		SKU:         r.SKU,
		OrderID:     orderID,
		Quantity:    r.quantity,
	}
}
