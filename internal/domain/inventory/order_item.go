package inventory

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MaxSKULength bounds the sku key accepted by the core
const MaxSKULength = 64

// OrderItem is one requested line: a sku and a positive quantity
type OrderItem struct {
	SKU      string          `json:"sku"`
	Quantity decimal.Decimal `json:"quantity"`
}

// NewOrderItem builds an item from an integer quantity
func NewOrderItem(sku string, quantity int64) OrderItem {
	return OrderItem{SKU: sku, Quantity: decimal.NewFromInt(quantity)}
}

// NormalizeItems validates the request and merges duplicate skus, keeping the
// order in which each sku first appeared.
func NormalizeItems(items []OrderItem) ([]OrderItem, error) {
	if len(items) == 0 {
		return nil, NewValidationError("items", "at least one item is required")
	}

	merged := make([]OrderItem, 0, len(items))
	index := make(map[string]int, len(items))
	for _, item := range items {
		sku := strings.TrimSpace(item.SKU)
		if sku == "" {
			return nil, NewValidationError("sku", "sku is required")
		}
		if len(sku) > MaxSKULength {
			return nil, NewValidationError("sku", "sku exceeds maximum length")
		}
		if !item.Quantity.IsPositive() {
			return nil, NewValidationError("quantity", "quantity for "+sku+" must be positive")
		}
		if i, ok := index[sku]; ok {
			merged[i].Quantity = merged[i].Quantity.Add(item.Quantity)
			continue
		}
		index[sku] = len(merged)
		merged = append(merged, OrderItem{SKU: sku, Quantity: item.Quantity})
	}
	return merged, nil
}

// SKUs returns the sku keys of the items
func SKUs(items []OrderItem) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.SKU
	}
	return out
}
