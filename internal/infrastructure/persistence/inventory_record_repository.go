package persistence

import (
	"context"
	"errors"

	"github.com/Shrijana18/StockPilot-v1-sub005/internal/domain/inventory"
	"github.com/Shrijana18/StockPilot-v1-sub005/internal/domain/shared"
	"github.com/Shrijana18/StockPilot-v1-sub005/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormInventoryRecordRepository implements InventoryRecordRepository using GORM
type GormInventoryRecordRepository struct {
	db *gorm.DB
}

// NewGormInventoryRecordRepository creates a new GormInventoryRecordRepository
func NewGormInventoryRecordRepository(db *gorm.DB) *GormInventoryRecordRepository {
	return &GormInventoryRecordRepository{db: db}
}

// FindBySKU finds the record of one sku within a tenant
func (r *GormInventoryRecordRepository) FindBySKU(ctx context.Context, tenantID uuid.UUID, sku string) (*inventory.InventoryRecord, error) {
	var model models.InventoryRecordModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND sku = ?", tenantID, sku).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindBySKUs finds the records of a set of skus. Missing skus are simply absent
// from the result.
func (r *GormInventoryRecordRepository) FindBySKUs(ctx context.Context, tenantID uuid.UUID, skus []string) ([]*inventory.InventoryRecord, error) {
	if len(skus) == 0 {
		return []*inventory.InventoryRecord{}, nil
	}

	var rows []models.InventoryRecordModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND sku IN ?", tenantID, skus).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainRecords(rows), nil
}

// FindByIDs finds records by id within a tenant
func (r *GormInventoryRecordRepository) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*inventory.InventoryRecord, error) {
	if len(ids) == 0 {
		return []*inventory.InventoryRecord{}, nil
	}

	var rows []models.InventoryRecordModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainRecords(rows), nil
}

// Create inserts a new record. A concurrent insert of the same sku surfaces as
// a concurrency conflict.
func (r *GormInventoryRecordRepository) Create(ctx context.Context, record *inventory.InventoryRecord) error {
	model := models.InventoryRecordModelFromDomain(record)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return translateError(err)
	}
	return nil
}

// SaveWithLock saves with optimistic locking (checks version)
func (r *GormInventoryRecordRepository) SaveWithLock(ctx context.Context, record *inventory.InventoryRecord) error {
	s := record.Snapshot()
	result := r.db.WithContext(ctx).
		Model(&models.InventoryRecordModel{}).
		Where("id = ? AND tenant_id = ? AND version = ?", s.ID, s.TenantID, s.Version-1).
		Updates(map[string]any{
			"quantity":          s.Quantity,
			"reserved_quantity": s.ReservedQuantity,
			"last_reserved_at":  s.LastReservedAt,
			"last_released_at":  s.LastReleasedAt,
			"last_deducted_at":  s.LastDeductedAt,
			"last_reserved_by":  s.LastReservedBy,
			"last_deducted_by":  s.LastDeductedBy,
			"version":           s.Version,
			"updated_at":        s.UpdatedAt,
		})

	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrOptimisticLock
	}
	return nil
}

func toDomainRecords(rows []models.InventoryRecordModel) []*inventory.InventoryRecord {
	records := make([]*inventory.InventoryRecord, len(rows))
	for i := range rows {
		records[i] = rows[i].ToDomain()
	}
	return records
}

// Ensure GormInventoryRecordRepository implements InventoryRecordRepository
var _ inventory.InventoryRecordRepository = (*GormInventoryRecordRepository)(nil)
