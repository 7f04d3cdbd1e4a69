package inventory

import "github.com/shopspring/decimal"

// StockStatusCode classifies a requested line against current stock
type StockStatusCode string

const (
	StatusNotFound     StockStatusCode = "not_found"
	StatusInsufficient StockStatusCode = "insufficient"
	StatusExact        StockStatusCode = "exact"
	StatusAvailable    StockStatusCode = "available"
)

// StockStatus is a computed snapshot of one sku. It is never persisted.
type StockStatus struct {
	SKU              string          `json:"sku"`
	Quantity         decimal.Decimal `json:"quantity"`
	ReservedQuantity decimal.Decimal `json:"reserved_quantity"`
	Available        decimal.Decimal `json:"available"`
	Requested        decimal.Decimal `json:"requested"`
	Status           StockStatusCode `json:"status"`
}

// Satisfiable reports whether the line can be fulfilled.
// An exact match is satisfiable but depletes the sku.
func (s StockStatus) Satisfiable() bool {
	return s.Status == StatusAvailable || s.Status == StatusExact
}

// DepletionWarning reports whether fulfilling the line leaves nothing available
func (s StockStatus) DepletionWarning() bool {
	return s.Status == StatusExact
}

// Classify computes the status of a requested quantity against a record.
// A nil record classifies as not_found.
func Classify(sku string, record *InventoryRecord, requested decimal.Decimal) StockStatus {
	if record == nil {
		return StockStatus{
			SKU:              sku,
			Quantity:         decimal.Zero,
			ReservedQuantity: decimal.Zero,
			Available:        decimal.Zero,
			Requested:        requested,
			Status:           StatusNotFound,
		}
	}

	available := record.Available()
	status := StatusAvailable
	switch available.Cmp(requested) {
	case -1:
		status = StatusInsufficient
	case 0:
		status = StatusExact
	}

	return StockStatus{
		SKU:              sku,
		Quantity:         record.Quantity(),
		ReservedQuantity: record.ReservedQuantity(),
		Available:        available,
		Requested:        requested,
		Status:           status,
	}
}

// Shortfall converts an unsatisfiable status into a shortfall line
func (s StockStatus) Shortfall() Shortfall {
	return Shortfall{
		SKU:       s.SKU,
		Requested: s.Requested,
		Available: s.Available,
		Status:    s.Status,
	}
}
