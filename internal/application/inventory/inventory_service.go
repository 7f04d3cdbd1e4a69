package inventory

import (
	"context"

	"github.com/Shrijana18/StockPilot-v1-sub005/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InventoryService is the entry point of the order workflow into the stock
// core. It composes the checker, reservation manager, releaser, committer and
// catalog writer over one set of dependencies.
type InventoryService struct {
	checker   *AvailabilityChecker
	manager   *ReservationManager
	releaser  *ReservationReleaser
	committer *DeductionCommitter
	catalog   *CatalogWriter
}

// NewInventoryService creates a new InventoryService
func NewInventoryService(deps Dependencies, cfg Config) (*InventoryService, error) {
	c, err := newCore(deps, cfg)
	if err != nil {
		return nil, err
	}
	return &InventoryService{
		checker:   &AvailabilityChecker{core: c},
		manager:   &ReservationManager{core: c},
		releaser:  &ReservationReleaser{core: c},
		committer: &DeductionCommitter{core: c},
		catalog:   &CatalogWriter{core: c},
	}, nil
}

// Check classifies requested items against current stock
func (s *InventoryService) Check(ctx context.Context, tenantID uuid.UUID, items []inventory.OrderItem) (AvailabilityResult, error) {
	return s.checker.Check(ctx, tenantID, items)
}

// GetStockStatus returns the badge status of one sku
func (s *InventoryService) GetStockStatus(ctx context.Context, tenantID uuid.UUID, sku string) (inventory.StockStatus, error) {
	return s.checker.GetStockStatus(ctx, tenantID, sku)
}

// Reserve holds stock for every item of an order, all or nothing
func (s *InventoryService) Reserve(ctx context.Context, tenantID uuid.UUID, orderID string, items []inventory.OrderItem) (*ReservationResult, error) {
	return s.manager.Reserve(ctx, tenantID, orderID, items)
}

// GetOrderReservation returns the reservation ledger of an order
func (s *InventoryService) GetOrderReservation(ctx context.Context, tenantID uuid.UUID, orderID string) (*OrderReservationView, error) {
	return s.manager.GetOrderReservation(ctx, tenantID, orderID)
}

// Release returns held stock per item, reporting each item's outcome
func (s *InventoryService) Release(ctx context.Context, tenantID uuid.UUID, items []inventory.OrderItem) (*ReleaseResult, error) {
	return s.releaser.Release(ctx, tenantID, items)
}

// ReleaseOrder releases what an order's ledger still holds
func (s *InventoryService) ReleaseOrder(ctx context.Context, tenantID uuid.UUID, orderID string) (*ReleaseResult, error) {
	return s.releaser.ReleaseOrder(ctx, tenantID, orderID)
}

// Commit deducts an accepted order's items
func (s *InventoryService) Commit(ctx context.Context, tenantID uuid.UUID, orderID string, items []inventory.OrderItem) (*DeductionResult, error) {
	return s.committer.Commit(ctx, tenantID, orderID, items)
}

// UpsertRecord creates or sets the on-hand quantity of a sku
func (s *InventoryService) UpsertRecord(ctx context.Context, tenantID uuid.UUID, sku string, quantity decimal.Decimal) (inventory.StockStatus, error) {
	return s.catalog.UpsertRecord(ctx, tenantID, sku, quantity)
}
