package inventory

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Shrijana18/StockPilot-v1-sub005/internal/domain/inventory"
	"github.com/Shrijana18/StockPilot-v1-sub005/internal/domain/shared"
	"github.com/Shrijana18/StockPilot-v1-sub005/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Operation names used in logs, spans, metrics and conflict errors
const (
	OpCheck        = "check"
	OpStatus       = "status"
	OpReserve      = "reserve"
	OpRelease      = "release"
	OpReleaseOrder = "release_order"
	OpCommit       = "commit"
	OpUpsert       = "upsert"
	OpLedger       = "ledger"
)

// MaxOrderIDLength bounds the order identifier stored in the ledger
const MaxOrderIDLength = 128

// Config tunes lookup sharding and conflict retries
type Config struct {
	// MaxLookupBatch is the store's cap on skus per multi-get predicate
	MaxLookupBatch int
	// MaxAttempts is how many times a conflicting transaction is run before
	// the operation fails with a TransientConflictError
	MaxAttempts int
	// RetryBackoff is multiplied by the attempt number between attempts
	RetryBackoff time.Duration
}

// DefaultConfig returns the default tuning
func DefaultConfig() Config {
	return Config{
		MaxLookupBatch: 30,
		MaxAttempts:    5,
		RetryBackoff:   20 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxLookupBatch < 1 {
		c.MaxLookupBatch = def.MaxLookupBatch
	}
	if c.MaxAttempts < 1 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.RetryBackoff < 0 {
		c.RetryBackoff = 0
	}
	return c
}

// StatusCache caches single-sku stock statuses for UI badges
type StatusCache interface {
	Get(ctx context.Context, tenantID uuid.UUID, sku string) (*inventory.StockStatus, bool, error)
	Set(ctx context.Context, tenantID uuid.UUID, status inventory.StockStatus) error
	Invalidate(ctx context.Context, tenantID uuid.UUID, skus ...string) error
}

// Dependencies wires the stock components to their collaborators.
// Scope, Records and Reservations are required; everything else is optional.
type Dependencies struct {
	Scope        TransactionScope
	Records      inventory.InventoryRecordRepository
	Reservations inventory.OrderReservationRepository
	ChangeLogger inventory.ChangeLogger
	Publisher    shared.EventPublisher
	StatusCache  StatusCache
	Metrics      *telemetry.InventoryMetrics
	Logger       *zap.Logger
	// Clock stamps lastReservedAt and friends. Defaults to UTC wall time.
	Clock func() time.Time
}

// core holds what every component shares
type core struct {
	scope        TransactionScope
	records      inventory.InventoryRecordRepository
	reservations inventory.OrderReservationRepository
	changeLogger inventory.ChangeLogger
	publisher    shared.EventPublisher
	cache        StatusCache
	metrics      *telemetry.InventoryMetrics
	logger       *zap.Logger
	clock        func() time.Time
	cfg          Config
}

func newCore(deps Dependencies, cfg Config) (*core, error) {
	if deps.Scope == nil {
		return nil, errors.New("inventory: transaction scope is required")
	}
	if deps.Records == nil {
		return nil, errors.New("inventory: record repository is required")
	}
	if deps.Reservations == nil {
		return nil, errors.New("inventory: reservation repository is required")
	}
	c := &core{
		scope:        deps.Scope,
		records:      deps.Records,
		reservations: deps.Reservations,
		changeLogger: deps.ChangeLogger,
		publisher:    deps.Publisher,
		cache:        deps.StatusCache,
		metrics:      deps.Metrics,
		logger:       deps.Logger,
		clock:        deps.Clock,
		cfg:          cfg.withDefaults(),
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.clock == nil {
		c.clock = func() time.Time { return time.Now().UTC() }
	}
	return c, nil
}

func (c *core) now() time.Time {
	return c.clock()
}

// afterCommit publishes the records' events and drops their cached statuses.
// Both are best effort: the stock change is already durable.
func (c *core) afterCommit(ctx context.Context, tenantID uuid.UUID, records ...*inventory.InventoryRecord) {
	if len(records) == 0 {
		return
	}

	skus := make([]string, 0, len(records))
	var events []shared.DomainEvent
	for _, r := range records {
		skus = append(skus, r.SKU)
		events = append(events, r.GetDomainEvents()...)
		r.ClearDomainEvents()
	}

	if c.cache != nil {
		if err := c.cache.Invalidate(ctx, tenantID, skus...); err != nil {
			c.logger.Warn("Failed to invalidate stock status cache",
				zap.String("tenant_id", tenantID.String()),
				zap.Strings("skus", skus),
				zap.Error(err),
			)
		}
	}

	if c.publisher != nil && len(events) > 0 {
		if err := c.publisher.Publish(ctx, events...); err != nil {
			c.logger.Warn("Failed to publish inventory events",
				zap.Int("event_count", len(events)),
				zap.Error(err),
			)
		}
	}
}

// startOperation opens the span of a stock operation
func (c *core) startOperation(ctx context.Context, op string, tenantID uuid.UUID, itemCount int) (context.Context, trace.Span) {
	return telemetry.StartSpan(ctx, "inventory."+op,
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, tenantID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrItemCount, itemCount),
	)
}

// finishOperation records outcome, duration and log line of a stock operation.
// outcome overrides the outcome derived from err when err is nil.
func (c *core) finishOperation(ctx context.Context, span trace.Span, op string, tenantID uuid.UUID, start time.Time, outcome string, err error, fields ...zap.Field) {
	if err != nil {
		outcome = outcomeOf(err)
	} else if outcome == "" {
		outcome = telemetry.OutcomeSuccess
	}
	elapsed := time.Since(start)

	telemetry.SetAttributes(span, telemetry.SpanAttrOutcome, outcome)
	if err != nil && outcome == telemetry.OutcomeError {
		telemetry.RecordError(span, err)
	}
	span.End()

	if c.metrics != nil {
		c.metrics.RecordOperation(ctx, tenantID, op, outcome, elapsed)
	}

	fields = append(fields,
		zap.String("operation", op),
		zap.String("tenant_id", tenantID.String()),
		zap.String("outcome", outcome),
		zap.Duration("duration", elapsed),
	)
	switch outcome {
	case telemetry.OutcomeError:
		c.logger.Error("Inventory operation failed", append(fields, zap.Error(err))...)
	case telemetry.OutcomeConflict, telemetry.OutcomePartial:
		c.logger.Warn("Inventory operation incomplete", append(fields, zap.Error(err))...)
	case telemetry.OutcomeSuccess, telemetry.OutcomeReplayed:
		c.logger.Info("Inventory operation completed", fields...)
	default:
		c.logger.Info("Inventory operation rejected", append(fields, zap.Error(err))...)
	}
}

// outcomeOf maps an operation error to its metric outcome
func outcomeOf(err error) string {
	var (
		validation   *inventory.ValidationError
		notFound     *inventory.NotFoundError
		insufficient *inventory.InsufficientStockError
		transient    *inventory.TransientConflictError
		domainErr    *shared.DomainError
	)
	switch {
	case err == nil:
		return telemetry.OutcomeSuccess
	case errors.As(err, &validation):
		return telemetry.OutcomeInvalid
	case errors.As(err, &notFound), errors.Is(err, shared.ErrNotFound):
		return telemetry.OutcomeNotFound
	case errors.As(err, &insufficient):
		return telemetry.OutcomeInsufficient
	case errors.As(err, &transient):
		return telemetry.OutcomeConflict
	case errors.As(err, &domainErr) && domainErr.Code == inventory.CodeInvalidOrderState:
		return telemetry.OutcomeInvalid
	default:
		return telemetry.OutcomeError
	}
}

func validateScope(tenantID uuid.UUID) error {
	if tenantID == uuid.Nil {
		return inventory.NewValidationError("scope_id", "scope is required")
	}
	return nil
}

func normalizeOrderID(orderID string) (string, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return "", inventory.NewValidationError("order_id", "order id is required")
	}
	if len(orderID) > MaxOrderIDLength {
		return "", inventory.NewValidationError("order_id", "order id exceeds maximum length")
	}
	return orderID, nil
}

func normalizeSKU(sku string) (string, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return "", inventory.NewValidationError("sku", "sku is required")
	}
	if len(sku) > inventory.MaxSKULength {
		return "", inventory.NewValidationError("sku", "sku exceeds maximum length")
	}
	return sku, nil
}

// orderNotFound is returned for ledger lookups of unknown orders
func orderNotFound(orderID string) error {
	return shared.NewDomainError(inventory.CodeNotFound, "no reservation recorded for order "+orderID)
}
