package models

import (
	"time"

	"github.com/Shrijana18/StockPilot-v1-sub005/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InventoryRecordModel is the persistence model for the InventoryRecord aggregate root.
type InventoryRecordModel struct {
	BaseModel
	TenantID         uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_record_tenant_sku,priority:1"`
	SKU              string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_inventory_record_tenant_sku,priority:2"`
	Version          int             `gorm:"not null;default:1"`
	Quantity         decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ReservedQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	LastReservedAt   *time.Time
	LastReleasedAt   *time.Time
	LastDeductedAt   *time.Time
	LastReservedBy   string `gorm:"type:varchar(128)"`
	LastDeductedBy   string `gorm:"type:varchar(128)"`
}

// TableName returns the table name for GORM
func (InventoryRecordModel) TableName() string {
	return "inventory_records"
}

// ToDomain converts the persistence model to a domain InventoryRecord.
func (m *InventoryRecordModel) ToDomain() *inventory.InventoryRecord {
	return inventory.RestoreInventoryRecord(inventory.RecordSnapshot{
		ID:               m.ID,
		TenantID:         m.TenantID,
		SKU:              m.SKU,
		Quantity:         m.Quantity,
		ReservedQuantity: m.ReservedQuantity,
		LastReservedAt:   m.LastReservedAt,
		LastReleasedAt:   m.LastReleasedAt,
		LastDeductedAt:   m.LastDeductedAt,
		LastReservedBy:   m.LastReservedBy,
		LastDeductedBy:   m.LastDeductedBy,
		Version:          m.Version,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	})
}

// FromDomain populates the persistence model from a domain InventoryRecord.
func (m *InventoryRecordModel) FromDomain(r *inventory.InventoryRecord) {
	s := r.Snapshot()
	m.BaseModel = baseModelOf(r.BaseEntity)
	m.TenantID = s.TenantID
	m.Version = s.Version
	m.SKU = s.SKU
	m.Quantity = s.Quantity
	m.ReservedQuantity = s.ReservedQuantity
	m.LastReservedAt = s.LastReservedAt
	m.LastReleasedAt = s.LastReleasedAt
	m.LastDeductedAt = s.LastDeductedAt
	m.LastReservedBy = s.LastReservedBy
	m.LastDeductedBy = s.LastDeductedBy
}

// InventoryRecordModelFromDomain creates a new persistence model from a domain InventoryRecord.
func InventoryRecordModelFromDomain(r *inventory.InventoryRecord) *InventoryRecordModel {
	m := &InventoryRecordModel{}
	m.FromDomain(r)
	return m
}

// OrderReservationModel is one line of the per-order reservation ledger.
// LineNo keeps the caller's item order within a batch.
type OrderReservationModel struct {
	BaseModel
	TenantID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_order_reservation_line,priority:1"`
	OrderID  string          `gorm:"type:varchar(128);not null;uniqueIndex:idx_order_reservation_line,priority:2"`
	SKU      string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_order_reservation_line,priority:3"`
	LineNo   int             `gorm:"not null;default:0"`
	Quantity decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	State    string          `gorm:"type:varchar(16);not null;index"`
}

// TableName returns the table name for GORM
func (OrderReservationModel) TableName() string {
	return "order_reservations"
}

// ToDomain converts the persistence model to a ledger line.
func (m *OrderReservationModel) ToDomain() inventory.OrderReservation {
	return inventory.OrderReservation{
		BaseEntity: m.entity(),
		TenantID:   m.TenantID,
		OrderID:    m.OrderID,
		SKU:        m.SKU,
		Quantity:   m.Quantity,
		State:      inventory.ReservationState(m.State),
	}
}

// OrderReservationModelFromDomain creates a persistence model from a ledger line.
func OrderReservationModelFromDomain(e *inventory.OrderReservation, lineNo int) *OrderReservationModel {
	m := &OrderReservationModel{
		TenantID: e.TenantID,
		OrderID:  e.OrderID,
		SKU:      e.SKU,
		LineNo:   lineNo,
		Quantity: e.Quantity,
		State:    string(e.State),
	}
	m.BaseModel = baseModelOf(e.BaseEntity)
	return m
}

// StockChangeLogModel is the append-only audit table for committed stock changes.
type StockChangeLogModel struct {
	ID               uuid.UUID       `gorm:"type:uuid;primary_key"`
	TenantID         uuid.UUID       `gorm:"type:uuid;not null;index:idx_stock_change_log_tenant_sku,priority:1"`
	SKU              string          `gorm:"type:varchar(64);not null;index:idx_stock_change_log_tenant_sku,priority:2"`
	OrderID          string          `gorm:"type:varchar(128);not null;index"`
	PreviousQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	NewQuantity      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	PreviousReserved decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	NewReserved      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Action           string          `gorm:"type:varchar(32);not null"`
	Source           string          `gorm:"type:varchar(64);not null"`
	RecordedAt       time.Time       `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (StockChangeLogModel) TableName() string {
	return "stock_change_logs"
}

// ToDomain converts the persistence model to a change record.
func (m *StockChangeLogModel) ToDomain() inventory.ChangeRecord {
	return inventory.ChangeRecord{
		ID:               m.ID,
		ScopeID:          m.TenantID,
		SKU:              m.SKU,
		OrderID:          m.OrderID,
		PreviousQuantity: m.PreviousQuantity,
		NewQuantity:      m.NewQuantity,
		PreviousReserved: m.PreviousReserved,
		NewReserved:      m.NewReserved,
		Action:           m.Action,
		Source:           m.Source,
		RecordedAt:       m.RecordedAt,
	}
}

// StockChangeLogModelFromDomain creates a persistence model from a change record.
func StockChangeLogModelFromDomain(r inventory.ChangeRecord) *StockChangeLogModel {
	return &StockChangeLogModel{
		ID:               r.ID,
		TenantID:         r.ScopeID,
		SKU:              r.SKU,
		OrderID:          r.OrderID,
		PreviousQuantity: r.PreviousQuantity,
		NewQuantity:      r.NewQuantity,
		PreviousReserved: r.PreviousReserved,
		NewReserved:      r.NewReserved,
		Action:           r.Action,
		Source:           r.Source,
		RecordedAt:       r.RecordedAt,
	}
}

// AllModels lists every table owned by the inventory subsystem, in creation order.
func AllModels() []any {
	return []any{
		&InventoryRecordModel{},
		&OrderReservationModel{},
		&StockChangeLogModel{},
	}
}
