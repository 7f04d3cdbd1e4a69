package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Operation outcomes used as metric labels
const (
	OutcomeSuccess      = "success"
	OutcomeReplayed     = "replayed"
	OutcomeInsufficient = "insufficient"
	OutcomeNotFound     = "not_found"
	OutcomeInvalid      = "invalid"
	OutcomeConflict     = "conflict"
	OutcomePartial      = "partial"
	OutcomeError        = "error"
)

// Metric attribute keys
var (
	AttrTenantID  = attribute.Key("tenant_id")
	AttrOperation = attribute.Key("operation")
	AttrOutcome   = attribute.Key("outcome")
	AttrSKU       = attribute.Key("sku")
)

// OperationDurationBuckets are histogram boundaries in seconds.
var OperationDurationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

// ErrMeterNil is returned by NewInventoryMetrics without a meter.
var ErrMeterNil = errors.New("telemetry: inventory metrics need a meter")

// InventoryMetrics tracks stock operation outcomes, contention and stock health.
type InventoryMetrics struct {
	logger *zap.Logger

	operations        metric.Int64Counter
	conflictRetries   metric.Int64Counter
	depletions        metric.Int64Counter
	changeLogFailures metric.Int64Counter
	duration          metric.Float64Histogram
	reservedUnits     metric.Float64Gauge
	depletedSKUs      metric.Float64Gauge

	stockProvider StockMetricsProvider

	stop        chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once
}

// StockMetricsProvider supplies aggregated stock figures for periodic gauges.
type StockMetricsProvider interface {
	// GetReservedUnits returns the sum of reserved quantity across a tenant's skus
	GetReservedUnits(ctx context.Context, tenantID uuid.UUID) (float64, error)
	// GetDepletedCount returns how many skus have nothing available
	GetDepletedCount(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

// TenantProvider lists the tenants to collect gauges for.
type TenantProvider interface {
	GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// InventoryMetricsConfig holds configuration for inventory metrics.
type InventoryMetricsConfig struct {
	Meter         metric.Meter
	Logger        *zap.Logger
	StockProvider StockMetricsProvider
}

// NewInventoryMetrics creates the inventory instruments.
func NewInventoryMetrics(cfg InventoryMetricsConfig) (*InventoryMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &InventoryMetrics{
		logger:        logger,
		stockProvider: cfg.StockProvider,
		stop:          make(chan struct{}),
	}

	meter := cfg.Meter
	counters := []struct {
		dst        *metric.Int64Counter
		name, help string
		unit       string
	}{
		{&m.operations, "stockpilot_inventory_operations_total", "Stock operations by operation and outcome", "{operations}"},
		{&m.conflictRetries, "stockpilot_inventory_conflict_retries_total", "Transactions retried after a concurrent write conflict", "{retries}"},
		{&m.depletions, "stockpilot_inventory_depletions_total", "Skus that reached zero available stock", "{skus}"},
		{&m.changeLogFailures, "stockpilot_inventory_change_log_failures_total", "Audit records that could not be written after a committed change", "{records}"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.help), metric.WithUnit(c.unit))
		if err != nil {
			return nil, fmt.Errorf("counter %s: %w", c.name, err)
		}
		*c.dst = counter
	}

	var err error
	if m.duration, err = meter.Float64Histogram("stockpilot_inventory_operation_duration_seconds",
		metric.WithDescription("Duration of stock operations including retries"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(OperationDurationBuckets...),
	); err != nil {
		return nil, fmt.Errorf("operation duration histogram: %w", err)
	}
	if m.reservedUnits, err = meter.Float64Gauge("stockpilot_inventory_reserved_units",
		metric.WithDescription("Units currently held by pending orders"),
		metric.WithUnit("{units}"),
	); err != nil {
		return nil, fmt.Errorf("reserved units gauge: %w", err)
	}
	if m.depletedSKUs, err = meter.Float64Gauge("stockpilot_inventory_depleted_skus",
		metric.WithDescription("Skus with no available stock"),
		metric.WithUnit("{skus}"),
	); err != nil {
		return nil, fmt.Errorf("depleted skus gauge: %w", err)
	}

	return m, nil
}

// RecordOperation records one finished stock operation.
func (m *InventoryMetrics) RecordOperation(ctx context.Context, tenantID uuid.UUID, operation, outcome string, d time.Duration) {
	m.operations.Add(ctx, 1, metric.WithAttributes(
		AttrTenantID.String(tenantID.String()),
		AttrOperation.String(operation),
		AttrOutcome.String(outcome),
	))
	m.duration.Record(ctx, d.Seconds(), metric.WithAttributes(
		AttrOperation.String(operation),
		AttrOutcome.String(outcome),
	))
}

// RecordConflictRetry counts a transaction restarted after a conflict.
func (m *InventoryMetrics) RecordConflictRetry(ctx context.Context, operation string) {
	m.conflictRetries.Add(ctx, 1, metric.WithAttributes(AttrOperation.String(operation)))
}

// RecordDepletion counts a sku reaching zero available stock.
func (m *InventoryMetrics) RecordDepletion(ctx context.Context, tenantID uuid.UUID, sku string) {
	m.depletions.Add(ctx, 1, metric.WithAttributes(
		AttrTenantID.String(tenantID.String()),
		AttrSKU.String(sku),
	))
}

// RecordChangeLogFailure counts audit records lost after commit.
func (m *InventoryMetrics) RecordChangeLogFailure(ctx context.Context, records int) {
	m.changeLogFailures.Add(ctx, int64(records))
}

// StartPeriodicCollection starts collecting stock gauges every interval.
// It is non-blocking; call Stop to end collection.
func (m *InventoryMetrics) StartPeriodicCollection(ctx context.Context, tenants TenantProvider, interval time.Duration) {
	m.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}
		go m.runPeriodicCollection(ctx, tenants, interval)
	})
}

func (m *InventoryMetrics) runPeriodicCollection(ctx context.Context, tenants TenantProvider, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.collectStockMetrics(ctx, tenants)

	for {
		select {
		case <-m.stop:
			m.logger.Info("Stopping periodic inventory metrics collection")
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.collectStockMetrics(ctx, tenants)
		}
	}
}

func (m *InventoryMetrics) collectStockMetrics(ctx context.Context, tenants TenantProvider) {
	if m.stockProvider == nil {
		return
	}

	tenantIDs, err := tenants.GetActiveTenantIDs(ctx)
	if err != nil {
		m.logger.Error("Failed to get tenant IDs for metrics collection", zap.Error(err))
		return
	}

	for _, tenantID := range tenantIDs {
		attr := AttrTenantID.String(tenantID.String())

		reserved, err := m.stockProvider.GetReservedUnits(ctx, tenantID)
		if err != nil {
			m.logger.Warn("Failed to get reserved units",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
		} else {
			m.reservedUnits.Record(ctx, reserved, metric.WithAttributes(attr))
		}

		depleted, err := m.stockProvider.GetDepletedCount(ctx, tenantID)
		if err != nil {
			m.logger.Warn("Failed to get depleted sku count",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
		} else {
			m.depletedSKUs.Record(ctx, float64(depleted), metric.WithAttributes(attr))
		}
	}
}

// Stop stops the periodic collection.
func (m *InventoryMetrics) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
}
