package persistence

import (
	"context"
	"fmt"

	"github.com/Shrijana18/StockPilot-v1-sub005/internal/domain/inventory"
	"github.com/Shrijana18/StockPilot-v1-sub005/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const changeLogBatchSize = 100

// GormChangeLogger appends change records to the stock_change_logs table
type GormChangeLogger struct {
	db *gorm.DB
}

// NewGormChangeLogger creates a new GormChangeLogger
func NewGormChangeLogger(db *gorm.DB) *GormChangeLogger {
	return &GormChangeLogger{db: db}
}

// Append writes all records in one statement batch
func (l *GormChangeLogger) Append(ctx context.Context, records ...inventory.ChangeRecord) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([]*models.StockChangeLogModel, len(records))
	for i, rec := range records {
		rows[i] = models.StockChangeLogModelFromDomain(rec)
	}
	if err := l.db.WithContext(ctx).CreateInBatches(rows, changeLogBatchSize).Error; err != nil {
		return fmt.Errorf("append stock change log: %w", err)
	}
	return nil
}

// FindByOrder returns the change records written for an order
func (l *GormChangeLogger) FindByOrder(ctx context.Context, tenantID uuid.UUID, orderID string) ([]inventory.ChangeRecord, error) {
	var rows []models.StockChangeLogModel
	if err := l.db.WithContext(ctx).
		Where("tenant_id = ? AND order_id = ?", tenantID, orderID).
		Order("recorded_at ASC, sku ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]inventory.ChangeRecord, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// Ensure GormChangeLogger implements ChangeLogger
var _ inventory.ChangeLogger = (*GormChangeLogger)(nil)
