package inventory

import (
	"time"

	"github.com/Shrijana18/StockPilot-v1-sub005/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReservationState is the lifecycle state of an order's ledger entries
type ReservationState string

const (
	ReservationReserved  ReservationState = "reserved"
	ReservationReleased  ReservationState = "released"
	ReservationCommitted ReservationState = "committed"
)

// OrderReservation is one ledger line: how much of a sku an order holds or
// consumed. Entries are written in the same transaction as the counter change
// they describe, which makes reserve and commit replayable per order.
type OrderReservation struct {
	shared.BaseEntity
	TenantID uuid.UUID
	OrderID  string
	SKU      string
	Quantity decimal.Decimal
	State    ReservationState
}

// NewOrderReservation creates a ledger line in the given state
func NewOrderReservation(tenantID uuid.UUID, orderID, sku string, quantity decimal.Decimal, state ReservationState, now time.Time) *OrderReservation {
	e := &OrderReservation{
		BaseEntity: shared.NewBaseEntity(),
		TenantID:   tenantID,
		OrderID:    orderID,
		SKU:        sku,
		Quantity:   quantity,
		State:      state,
	}
	e.CreatedAt = now
	e.UpdatedAt = now
	return e
}

// MarkReleased moves a held line back to the pool
func (e *OrderReservation) MarkReleased(now time.Time) error {
	if e.State != ReservationReserved {
		return ErrOrderStateConflict(e.OrderID, e.State, "released")
	}
	e.State = ReservationReleased
	e.Touch(now)
	return nil
}

// MarkCommitted records the line as deducted
func (e *OrderReservation) MarkCommitted(now time.Time) error {
	if e.State != ReservationReserved {
		return ErrOrderStateConflict(e.OrderID, e.State, "committed")
	}
	e.State = ReservationCommitted
	e.Touch(now)
	return nil
}

// OrderLedger is every ledger line of one order
type OrderLedger []OrderReservation

// State returns the aggregate state of the order: reserved while any line still
// holds stock, otherwise committed when any line was deducted, otherwise released.
func (l OrderLedger) State() (ReservationState, bool) {
	if len(l) == 0 {
		return "", false
	}
	switch {
	case l.Count(ReservationReserved) > 0:
		return ReservationReserved, true
	case l.Count(ReservationCommitted) > 0:
		return ReservationCommitted, true
	default:
		return ReservationReleased, true
	}
}

// Count returns the number of lines in the given state
func (l OrderLedger) Count(state ReservationState) int {
	n := 0
	for _, e := range l {
		if e.State == state {
			n++
		}
	}
	return n
}

// Held returns the quantity held per sku by lines still in the reserved state
func (l OrderLedger) Held() map[string]decimal.Decimal {
	held := make(map[string]decimal.Decimal, len(l))
	for _, e := range l {
		if e.State != ReservationReserved {
			continue
		}
		held[e.SKU] = held[e.SKU].Add(e.Quantity)
	}
	return held
}

// Items returns the ledger as order items
func (l OrderLedger) Items() []OrderItem {
	items := make([]OrderItem, 0, len(l))
	for _, e := range l {
		items = append(items, OrderItem{SKU: e.SKU, Quantity: e.Quantity})
	}
	return items
}
