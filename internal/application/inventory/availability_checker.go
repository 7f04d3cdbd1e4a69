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

// badgeQuantity is the requested amount used to classify a single sku for UI
// badges: exact means one unit left, insufficient means sold out.
var badgeQuantity = decimal.NewFromInt(1)

// AvailabilityChecker computes available stock for requested items. It never writes.
type AvailabilityChecker struct {
	*core
}

// NewAvailabilityChecker creates a new AvailabilityChecker
func NewAvailabilityChecker(deps Dependencies, cfg Config) (*AvailabilityChecker, error) {
	c, err := newCore(deps, cfg)
	if err != nil {
		return nil, err
	}
	return &AvailabilityChecker{core: c}, nil
}

// Check classifies every requested item against current stock. Invalid input
// yields OverallAvailable=false and a ValidationError, never a partial result.
func (a *AvailabilityChecker) Check(ctx context.Context, tenantID uuid.UUID, items []inventory.OrderItem) (result AvailabilityResult, err error) {
	start := time.Now()
	ctx, span := a.startOperation(ctx, OpCheck, tenantID, len(items))
	defer func() {
		a.finishOperation(ctx, span, OpCheck, tenantID, start, "", err,
			zap.Bool("overall_available", result.OverallAvailable))
	}()

	if err = validateScope(tenantID); err != nil {
		return AvailabilityResult{}, err
	}
	normalized, err := inventory.NormalizeItems(items)
	if err != nil {
		return AvailabilityResult{}, err
	}

	records, err := a.resolve(ctx, tenantID, inventory.SKUs(normalized))
	if err != nil {
		return AvailabilityResult{}, err
	}

	result = AvailabilityResult{
		Items:            make([]inventory.StockStatus, len(normalized)),
		OverallAvailable: true,
	}
	for i, item := range normalized {
		status := inventory.Classify(item.SKU, records[item.SKU], item.Quantity)
		result.Items[i] = status
		if !status.Satisfiable() {
			result.OverallAvailable = false
		}
	}
	return result, nil
}

// GetStockStatus returns the badge status of one sku. An unknown sku is a
// not_found status, not an error. Statuses are served from the cache when one
// is configured.
func (a *AvailabilityChecker) GetStockStatus(ctx context.Context, tenantID uuid.UUID, sku string) (status inventory.StockStatus, err error) {
	start := time.Now()
	ctx, span := a.startOperation(ctx, OpStatus, tenantID, 1)
	outcome := ""
	defer func() {
		a.finishOperation(ctx, span, OpStatus, tenantID, start, outcome, err,
			zap.String("sku", sku), zap.String("status", string(status.Status)))
	}()

	if err = validateScope(tenantID); err != nil {
		return inventory.StockStatus{}, err
	}
	if sku, err = normalizeSKU(sku); err != nil {
		return inventory.StockStatus{}, err
	}

	if a.cache != nil {
		cached, ok, cacheErr := a.cache.Get(ctx, tenantID, sku)
		if cacheErr != nil {
			a.logger.Warn("Stock status cache read failed", zap.String("sku", sku), zap.Error(cacheErr))
		} else if ok {
			return *cached, nil
		}
	}

	record, err := a.records.FindBySKU(ctx, tenantID, sku)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			outcome = telemetry.OutcomeNotFound
			return inventory.Classify(sku, nil, badgeQuantity), nil
		}
		return inventory.StockStatus{}, err
	}

	status = inventory.Classify(sku, record, badgeQuantity)
	if a.cache != nil {
		a.cacheStatus(ctx, tenantID, record, status)
	}
	return status, nil
}

// cacheStatus stores a status read from record, then reads the record's
// version again. A write that committed after the read has already dropped the
// key, so when the version moved the entry just written is dropped too.
func (a *AvailabilityChecker) cacheStatus(ctx context.Context, tenantID uuid.UUID, record *inventory.InventoryRecord, status inventory.StockStatus) {
	if err := a.cache.Set(ctx, tenantID, status); err != nil {
		a.logger.Warn("Stock status cache write failed", zap.String("sku", status.SKU), zap.Error(err))
		return
	}
	current, err := a.records.FindBySKU(ctx, tenantID, status.SKU)
	if err == nil && current.Version == record.Version {
		return
	}
	if err := a.cache.Invalidate(ctx, tenantID, status.SKU); err != nil {
		a.logger.Warn("Stock status cache invalidation failed", zap.String("sku", status.SKU), zap.Error(err))
	}
}
