package dto

import (
	"github.com/Shrijana18/StockPilot-v1-sub005/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// ItemRequest is one requested line
type ItemRequest struct {
	SKU      string          `json:"sku" binding:"required,max=64"`
	Quantity decimal.Decimal `json:"quantity"`
}

// ItemsRequest is the body of availability checks and item releases
type ItemsRequest struct {
	Items []ItemRequest `json:"items" binding:"required,min=1,max=500,dive"`
}

// OrderItemsRequest is the body of reservations and deductions
type OrderItemsRequest struct {
	OrderID string        `json:"order_id" binding:"required,max=128"`
	Items   []ItemRequest `json:"items" binding:"required,min=1,max=500,dive"`
}

// UpsertRecordRequest is the body of a catalog upsert
type UpsertRecordRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
}

// ToOrderItems converts request lines to domain items. Quantities are
// validated by the domain.
func ToOrderItems(items []ItemRequest) []inventory.OrderItem {
	out := make([]inventory.OrderItem, len(items))
	for i, item := range items {
		out[i] = inventory.OrderItem{SKU: item.SKU, Quantity: item.Quantity}
	}
	return out
}

// AvailabilityResponse is the body of an availability check
type AvailabilityResponse struct {
	Items             []inventory.StockStatus `json:"items"`
	OverallAvailable  bool                    `json:"overall_available"`
	DepletionWarnings []string                `json:"depletion_warnings,omitempty"`
}
