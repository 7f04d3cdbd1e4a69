package inventory

import (
	"strings"
	"time"

	"github.com/Shrijana18/StockPilot-v1-sub005/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InventoryRecord is the authoritative per-sku stock count within a tenant.
//
// The quantity pair is unexported: Reserve, Release, Deduct and SetQuantity are the
// only ways to change it, so 0 <= reservedQuantity <= quantity holds after every
// call made through this type.
type InventoryRecord struct {
	shared.TenantAggregateRoot
	SKU string

	quantity         decimal.Decimal
	reservedQuantity decimal.Decimal

	lastReservedAt *time.Time
	lastReleasedAt *time.Time
	lastDeductedAt *time.Time
	lastReservedBy string
	lastDeductedBy string
}

// RecordSnapshot is the full persisted state of a record. It is used by storage
// adapters only.
type RecordSnapshot struct {
	ID               uuid.UUID
	TenantID         uuid.UUID
	SKU              string
	Quantity         decimal.Decimal
	ReservedQuantity decimal.Decimal
	LastReservedAt   *time.Time
	LastReleasedAt   *time.Time
	LastDeductedAt   *time.Time
	LastReservedBy   string
	LastDeductedBy   string
	Version          int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewInventoryRecord creates a record when a product enters the catalog
func NewInventoryRecord(tenantID uuid.UUID, sku string, quantity decimal.Decimal) (*InventoryRecord, error) {
	sku = strings.TrimSpace(sku)
	if tenantID == uuid.Nil {
		return nil, NewValidationError("scope_id", "scope is required")
	}
	if sku == "" {
		return nil, NewValidationError("sku", "sku is required")
	}
	if len(sku) > MaxSKULength {
		return nil, NewValidationError("sku", "sku exceeds maximum length")
	}
	if quantity.IsNegative() {
		return nil, NewValidationError("quantity", "quantity cannot be negative")
	}

	return &InventoryRecord{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		SKU:                 sku,
		quantity:            quantity,
		reservedQuantity:    decimal.Zero,
	}, nil
}

// RestoreInventoryRecord rebuilds a record from storage without validation
func RestoreInventoryRecord(s RecordSnapshot) *InventoryRecord {
	r := &InventoryRecord{
		SKU:              s.SKU,
		quantity:         s.Quantity,
		reservedQuantity: s.ReservedQuantity,
		lastReservedAt:   s.LastReservedAt,
		lastReleasedAt:   s.LastReleasedAt,
		lastDeductedAt:   s.LastDeductedAt,
		lastReservedBy:   s.LastReservedBy,
		lastDeductedBy:   s.LastDeductedBy,
	}
	r.ID = s.ID
	r.TenantID = s.TenantID
	r.Version = s.Version
	r.CreatedAt = s.CreatedAt
	r.UpdatedAt = s.UpdatedAt
	return r
}

// Snapshot returns the persisted state of the record
func (r *InventoryRecord) Snapshot() RecordSnapshot {
	return RecordSnapshot{
		ID:               r.ID,
		TenantID:         r.TenantID,
		SKU:              r.SKU,
		Quantity:         r.quantity,
		ReservedQuantity: r.reservedQuantity,
		LastReservedAt:   r.lastReservedAt,
		LastReleasedAt:   r.lastReleasedAt,
		LastDeductedAt:   r.lastDeductedAt,
		LastReservedBy:   r.lastReservedBy,
		LastDeductedBy:   r.lastDeductedBy,
		Version:          r.Version,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

// Quantity returns total on-hand units
func (r *InventoryRecord) Quantity() decimal.Decimal { return r.quantity }

// ReservedQuantity returns units held by pending orders
func (r *InventoryRecord) ReservedQuantity() decimal.Decimal { return r.reservedQuantity }

// Available returns quantity - reservedQuantity, never below zero
func (r *InventoryRecord) Available() decimal.Decimal {
	available := r.quantity.Sub(r.reservedQuantity)
	if available.IsNegative() {
		return decimal.Zero
	}
	return available
}

func (r *InventoryRecord) LastReservedAt() *time.Time { return r.lastReservedAt }
func (r *InventoryRecord) LastReleasedAt() *time.Time { return r.lastReleasedAt }
func (r *InventoryRecord) LastDeductedAt() *time.Time { return r.lastDeductedAt }
func (r *InventoryRecord) LastReservedBy() string     { return r.lastReservedBy }
func (r *InventoryRecord) LastDeductedBy() string     { return r.lastDeductedBy }

// CanReserve reports whether quantity fits in the available stock
func (r *InventoryRecord) CanReserve(quantity decimal.Decimal) bool {
	return quantity.IsPositive() && quantity.LessThanOrEqual(r.Available())
}

// Reserve holds quantity for an order
func (r *InventoryRecord) Reserve(orderID string, quantity decimal.Decimal, now time.Time) error {
	if !quantity.IsPositive() {
		return NewValidationError("quantity", "reserve quantity must be positive")
	}
	if orderID == "" {
		return NewValidationError("order_id", "order id is required")
	}
	if quantity.GreaterThan(r.Available()) {
		return NewInsufficientStockError([]Shortfall{Classify(r.SKU, r, quantity).Shortfall()})
	}

	r.reservedQuantity = r.reservedQuantity.Add(quantity)
	r.lastReservedAt = &now
	r.lastReservedBy = orderID
	r.Touch(now)
	r.IncrementVersion()

	r.AddDomainEvent(NewStockReservedEvent(r, orderID, quantity, now))
	if r.Available().IsZero() {
		r.AddDomainEvent(NewStockDepletedEvent(r, orderID, now))
	}
	return nil
}

// Release returns quantity to the available pool and reports how much was
// actually released. The reserved count is clamped at zero when bookkeeping has
// drifted.
func (r *InventoryRecord) Release(quantity decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	if !quantity.IsPositive() {
		return decimal.Zero, NewValidationError("quantity", "release quantity must be positive")
	}

	released := decimal.Min(quantity, r.reservedQuantity)
	r.reservedQuantity = r.reservedQuantity.Sub(released)
	r.lastReleasedAt = &now
	r.Touch(now)
	r.IncrementVersion()

	r.AddDomainEvent(NewStockReleasedEvent(r, quantity, released, now))
	return released, nil
}

// CanDeduct reports whether requested is covered by what the order holds plus
// the unreserved stock.
func (r *InventoryRecord) CanDeduct(requested, held decimal.Decimal) bool {
	fromHold := decimal.Min(requested, held, r.reservedQuantity)
	return requested.Sub(fromHold).LessThanOrEqual(r.Available())
}

// Deduction is the before/after view of one deducted line
type Deduction struct {
	SKU              string
	PreviousQuantity decimal.Decimal
	NewQuantity      decimal.Decimal
	PreviousReserved decimal.Decimal
	NewReserved      decimal.Decimal
	// ReturnedHold is the part of the order's hold that was not consumed and
	// went back to the available pool.
	ReturnedHold decimal.Decimal
}

// Deduct permanently removes requested units for an accepted order. held is the
// amount this order has reserved on the record; zero when it never reserved.
// quantity drops by requested and the order's whole hold leaves
// reservedQuantity, so an under-commit hands the remainder back to the pool.
// Both counters are floored at zero.
func (r *InventoryRecord) Deduct(orderID string, requested, held decimal.Decimal, now time.Time) (Deduction, error) {
	if !requested.IsPositive() {
		return Deduction{}, NewValidationError("quantity", "deduct quantity must be positive")
	}
	if orderID == "" {
		return Deduction{}, NewValidationError("order_id", "order id is required")
	}
	if held.IsNegative() {
		held = decimal.Zero
	}
	if !r.CanDeduct(requested, held) {
		fromHold := decimal.Min(requested, held, r.reservedQuantity)
		return Deduction{}, NewInsufficientStockError([]Shortfall{{
			SKU:       r.SKU,
			Requested: requested,
			Available: r.Available().Add(fromHold),
			Status:    StatusInsufficient,
		}})
	}

	d := Deduction{
		SKU:              r.SKU,
		PreviousQuantity: r.quantity,
		PreviousReserved: r.reservedQuantity,
	}

	releasedHold := decimal.Min(held, r.reservedQuantity)
	r.quantity = decimal.Max(r.quantity.Sub(requested), decimal.Zero)
	r.reservedQuantity = decimal.Max(r.reservedQuantity.Sub(releasedHold), decimal.Zero)
	r.lastDeductedAt = &now
	r.lastDeductedBy = orderID
	d.ReturnedHold = decimal.Max(releasedHold.Sub(requested), decimal.Zero)
	if d.ReturnedHold.IsPositive() {
		r.lastReleasedAt = &now
	}
	r.Touch(now)
	r.IncrementVersion()

	d.NewQuantity = r.quantity
	d.NewReserved = r.reservedQuantity

	r.AddDomainEvent(NewStockDeductedEvent(r, orderID, d, now))
	if d.ReturnedHold.IsPositive() {
		r.AddDomainEvent(NewStockReleasedEvent(r, d.ReturnedHold, d.ReturnedHold, now))
	}
	if r.quantity.IsZero() {
		r.AddDomainEvent(NewStockDepletedEvent(r, orderID, now))
	}
	return d, nil
}

// SetQuantity is the catalog edit path. It refuses to drop on-hand stock below
// the units currently held by pending orders.
func (r *InventoryRecord) SetQuantity(quantity decimal.Decimal, now time.Time) error {
	if quantity.IsNegative() {
		return NewValidationError("quantity", "quantity cannot be negative")
	}
	if quantity.LessThan(r.reservedQuantity) {
		return NewValidationError("quantity",
			"quantity "+quantity.String()+" is below reserved quantity "+r.reservedQuantity.String())
	}
	if quantity.Equal(r.quantity) {
		return nil
	}

	previous := r.quantity
	r.quantity = quantity
	r.Touch(now)
	r.IncrementVersion()

	r.AddDomainEvent(NewStockAdjustedEvent(r, previous, now))
	return nil
}
