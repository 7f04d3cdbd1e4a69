package persistence

import (
	"context"
	"fmt"

	"github.com/Shrijana18/StockPilot-v1-sub005/internal/domain/inventory"
	"github.com/Shrijana18/StockPilot-v1-sub005/internal/domain/shared"
	"github.com/Shrijana18/StockPilot-v1-sub005/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormOrderReservationRepository implements OrderReservationRepository using GORM
type GormOrderReservationRepository struct {
	db *gorm.DB
}

// NewGormOrderReservationRepository creates a new GormOrderReservationRepository
func NewGormOrderReservationRepository(db *gorm.DB) *GormOrderReservationRepository {
	return &GormOrderReservationRepository{db: db}
}

// FindByOrder returns every ledger line of an order in the order it was written
func (r *GormOrderReservationRepository) FindByOrder(ctx context.Context, tenantID uuid.UUID, orderID string) (inventory.OrderLedger, error) {
	var rows []models.OrderReservationModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND order_id = ?", tenantID, orderID).
		Order("created_at ASC, line_no ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	ledger := make(inventory.OrderLedger, len(rows))
	for i := range rows {
		ledger[i] = rows[i].ToDomain()
	}
	return ledger, nil
}

// CreateBatch inserts ledger lines. The (tenant, order, sku) unique index turns
// a racing duplicate reservation into a concurrency conflict.
func (r *GormOrderReservationRepository) CreateBatch(ctx context.Context, entries []*inventory.OrderReservation) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([]*models.OrderReservationModel, len(entries))
	for i, e := range entries {
		rows[i] = models.OrderReservationModelFromDomain(e, i)
	}
	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return translateError(err)
	}
	return nil
}

// UpdateStates persists transitions of lines out of the reserved state along
// with the quantity each line settled at. A line that another transaction
// already moved is reported as a concurrency conflict, which serializes release
// and commit of the same order.
func (r *GormOrderReservationRepository) UpdateStates(ctx context.Context, entries []*inventory.OrderReservation) error {
	for _, e := range entries {
		result := r.db.WithContext(ctx).
			Model(&models.OrderReservationModel{}).
			Where("id = ? AND tenant_id = ? AND state = ?", e.ID, e.TenantID, string(inventory.ReservationReserved)).
			Updates(map[string]any{
				"state":      string(e.State),
				"quantity":   e.Quantity,
				"updated_at": e.UpdatedAt,
			})
		if result.Error != nil {
			return translateError(result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: ledger line %s for order %s already left the reserved state",
				shared.ErrConcurrencyConflict, e.SKU, e.OrderID)
		}
	}
	return nil
}

// Ensure GormOrderReservationRepository implements OrderReservationRepository
var _ inventory.OrderReservationRepository = (*GormOrderReservationRepository)(nil)
