package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Audit action and source values
const (
	ActionDeducted        = "deducted"
	SourceOrderAcceptance = "order-acceptance"
)

// ChangeRecord is one append-only audit entry describing a committed stock change
type ChangeRecord struct {
	ID               uuid.UUID       `json:"id"`
	ScopeID          uuid.UUID       `json:"scope_id"`
	SKU              string          `json:"sku"`
	OrderID          string          `json:"order_id"`
	PreviousQuantity decimal.Decimal `json:"previous_quantity"`
	NewQuantity      decimal.Decimal `json:"new_quantity"`
	PreviousReserved decimal.Decimal `json:"previous_reserved"`
	NewReserved      decimal.Decimal `json:"new_reserved"`
	Action           string          `json:"action"`
	Source           string          `json:"source"`
	RecordedAt       time.Time       `json:"recorded_at"`
}

// NewDeductionChangeRecord builds the audit entry for a deducted line
func NewDeductionChangeRecord(scopeID uuid.UUID, orderID string, d Deduction, at time.Time) ChangeRecord {
	return ChangeRecord{
		ID:               uuid.New(),
		ScopeID:          scopeID,
		SKU:              d.SKU,
		OrderID:          orderID,
		PreviousQuantity: d.PreviousQuantity,
		NewQuantity:      d.NewQuantity,
		PreviousReserved: d.PreviousReserved,
		NewReserved:      d.NewReserved,
		Action:           ActionDeducted,
		Source:           SourceOrderAcceptance,
		RecordedAt:       at,
	}
}
