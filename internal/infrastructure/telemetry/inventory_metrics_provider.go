package telemetry

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormStockMetricsProvider implements StockMetricsProvider over the
// inventory_records table.
type GormStockMetricsProvider struct {
	db *gorm.DB
}

// NewGormStockMetricsProvider creates a new GormStockMetricsProvider.
func NewGormStockMetricsProvider(db *gorm.DB) *GormStockMetricsProvider {
	return &GormStockMetricsProvider{db: db}
}

// GetReservedUnits returns the sum of reserved_quantity for a tenant.
func (p *GormStockMetricsProvider) GetReservedUnits(ctx context.Context, tenantID uuid.UUID) (float64, error) {
	var total float64
	err := p.db.WithContext(ctx).
		Table("inventory_records").
		Select("COALESCE(SUM(reserved_quantity), 0)").
		Where("tenant_id = ?", tenantID).
		Scan(&total).Error
	return total, err
}

// GetDepletedCount returns how many skus have reserved >= quantity.
func (p *GormStockMetricsProvider) GetDepletedCount(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("inventory_records").
		Where("tenant_id = ? AND reserved_quantity >= quantity", tenantID).
		Count(&count).Error
	return count, err
}

// GormTenantProvider lists tenants that own at least one inventory record.
type GormTenantProvider struct {
	db *gorm.DB
}

// NewGormTenantProvider creates a new GormTenantProvider.
func NewGormTenantProvider(db *gorm.DB) *GormTenantProvider {
	return &GormTenantProvider{db: db}
}

// GetActiveTenantIDs returns the distinct tenant ids of inventory records.
func (p *GormTenantProvider) GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := p.db.WithContext(ctx).
		Table("inventory_records").
		Distinct("tenant_id").
		Pluck("tenant_id", &ids).Error
	return ids, err
}
