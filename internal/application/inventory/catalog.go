package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/Shrijana18/StockPilot-v1-sub005/internal/domain/inventory"
	"github.com/Shrijana18/StockPilot-v1-sub005/internal/domain/shared"
	"github.com/Shrijana18/StockPilot-v1-sub005/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CatalogWriter is the catalog edit path into the record store
type CatalogWriter struct {
	*core
}

// NewCatalogWriter creates a new CatalogWriter
func NewCatalogWriter(deps Dependencies, cfg Config) (*CatalogWriter, error) {
	c, err := newCore(deps, cfg)
	if err != nil {
		return nil, err
	}
	return &CatalogWriter{core: c}, nil
}

// UpsertRecord creates the record of a sku or sets its on-hand quantity.
// A quantity below what pending orders hold is rejected. Two writers creating
// the same sku collide on the unique key; the loser retries and updates.
func (w *CatalogWriter) UpsertRecord(ctx context.Context, tenantID uuid.UUID, sku string, quantity decimal.Decimal) (status inventory.StockStatus, err error) {
	start := time.Now()
	ctx, span := w.startOperation(ctx, OpUpsert, tenantID, 1)
	telemetry.SetAttributes(span, telemetry.SpanAttrSKU, sku)
	defer func() {
		w.finishOperation(ctx, span, OpUpsert, tenantID, start, "", err,
			zap.String("sku", sku), zap.String("quantity", quantity.String()))
	}()

	if err = validateScope(tenantID); err != nil {
		return inventory.StockStatus{}, err
	}
	if sku, err = normalizeSKU(sku); err != nil {
		return inventory.StockStatus{}, err
	}
	if quantity.IsNegative() {
		return inventory.StockStatus{}, inventory.NewValidationError("quantity", "quantity cannot be negative")
	}

	var touched *inventory.InventoryRecord
	err = w.runInTransaction(ctx, OpUpsert, func(repos TransactionalRepositories) error {
		touched = nil
		now := w.now()

		record, err := repos.RecordRepo().FindBySKU(ctx, tenantID, sku)
		switch {
		case errors.Is(err, shared.ErrNotFound):
			record, err = inventory.NewInventoryRecord(tenantID, sku, quantity)
			if err != nil {
				return err
			}
			record.CreatedAt = now
			record.UpdatedAt = now
			if err := repos.RecordRepo().Create(ctx, record); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			version := record.Version
			if err := record.SetQuantity(quantity, now); err != nil {
				return err
			}
			if record.Version != version {
				if err := repos.RecordRepo().SaveWithLock(ctx, record); err != nil {
					return err
				}
			}
		}
		touched = record
		return nil
	})
	if err != nil {
		return inventory.StockStatus{}, err
	}

	w.afterCommit(ctx, tenantID, touched)
	return inventory.Classify(sku, touched, badgeQuantity), nil
}
