package inventory

import (
	"context"
	"time"

	"github.com/Shrijana18/StockPilot-v1-sub005/internal/domain/inventory"
	"github.com/Shrijana18/StockPilot-v1-sub005/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DeductionCommitter turns reservations into permanent decrements when an
// order is accepted and hands the audit trail to the change log
type DeductionCommitter struct {
	*core
}

// NewDeductionCommitter creates a new DeductionCommitter
func NewDeductionCommitter(deps Dependencies, cfg Config) (*DeductionCommitter, error) {
	c, err := newCore(deps, cfg)
	if err != nil {
		return nil, err
	}
	return &DeductionCommitter{core: c}, nil
}

// Commit deducts every item of an accepted order in one transaction.
//
// Each line must be covered by what the order still holds on the sku plus the
// unreserved stock. An order that never reserved is covered by availability
// alone and never consumes other orders' holds. The order's held ledger lines
// move to committed in the same transaction, so a commit racing a ReleaseOrder
// of the same order loses one way or the other. Committing less than the order
// holds on a sku returns the remainder to the pool. An order may be committed
// in several calls with disjoint skus. A call whose skus are all committed
// already is replayed, and one mixing committed with pending skus is refused.
//
// Audit records are appended after the transaction. A change log failure is
// reported in DeductionResult.LogError and never undoes the deduction.
func (d *DeductionCommitter) Commit(ctx context.Context, tenantID uuid.UUID, orderID string, items []inventory.OrderItem) (result *DeductionResult, err error) {
	start := time.Now()
	ctx, span := d.startOperation(ctx, OpCommit, tenantID, len(items))
	telemetry.SetAttributes(span, telemetry.SpanAttrOrderID, orderID)
	outcome := ""
	defer func() {
		d.finishOperation(ctx, span, OpCommit, tenantID, start, outcome, err, zap.String("order_id", orderID))
	}()

	if err = validateScope(tenantID); err != nil {
		return nil, err
	}
	if orderID, err = normalizeOrderID(orderID); err != nil {
		return nil, err
	}
	normalized, err := inventory.NormalizeItems(items)
	if err != nil {
		return nil, err
	}

	ledger, err := d.reservations.FindByOrder(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	if replay, err := replayDeduction(orderID, ledger, normalized); replay != nil || err != nil {
		if err == nil {
			outcome = telemetry.OutcomeReplayed
		}
		return replay, err
	}

	// resolve phase
	resolved, err := d.resolve(ctx, tenantID, inventory.SKUs(normalized))
	if err != nil {
		return nil, err
	}
	ids, missing := recordIDs(normalized, resolved)
	if len(missing) > 0 {
		return nil, inventory.NewNotFoundError(missing...)
	}

	// commit phase
	var (
		touched    []*inventory.InventoryRecord
		deductions []inventory.Deduction
	)
	err = d.runInTransaction(ctx, OpCommit, func(repos TransactionalRepositories) error {
		touched = nil
		deductions = nil
		result = nil

		ledger, err := repos.ReservationRepo().FindByOrder(ctx, tenantID, orderID)
		if err != nil {
			return err
		}
		if replay, err := replayDeduction(orderID, ledger, normalized); replay != nil || err != nil {
			result = replay
			return err
		}
		held := ledger.Held()

		loaded, err := d.loadByIDs(ctx, repos.RecordRepo(), tenantID, ids)
		if err != nil {
			return err
		}

		var (
			shortfalls []inventory.Shortfall
			gone       []string
		)
		for i, item := range normalized {
			record := loaded[ids[i]]
			if record == nil {
				gone = append(gone, item.SKU)
				continue
			}
			if !record.CanDeduct(item.Quantity, held[item.SKU]) {
				fromHold := decimal.Min(item.Quantity, held[item.SKU], record.ReservedQuantity())
				shortfalls = append(shortfalls, inventory.Shortfall{
					SKU:       item.SKU,
					Requested: item.Quantity,
					Available: record.Available().Add(fromHold),
					Status:    inventory.StatusInsufficient,
				})
			}
		}
		if len(gone) > 0 {
			return inventory.NewNotFoundError(gone...)
		}
		if len(shortfalls) > 0 {
			return inventory.NewInsufficientStockError(shortfalls)
		}

		now := d.now()
		committed := make(map[string]decimal.Decimal, len(normalized))
		for i, item := range normalized {
			record := loaded[ids[i]]
			deduction, err := record.Deduct(orderID, item.Quantity, held[item.SKU], now)
			if err != nil {
				return err
			}
			if err := repos.RecordRepo().SaveWithLock(ctx, record); err != nil {
				return err
			}
			touched = append(touched, record)
			deductions = append(deductions, deduction)
			committed[item.SKU] = item.Quantity
		}

		if err := commitLedger(ctx, repos.ReservationRepo(), tenantID, orderID, ledger, normalized, committed, now); err != nil {
			return err
		}

		result = &DeductionResult{
			OrderID:     orderID,
			Items:       make([]DeductedLine, len(deductions)),
			CommittedAt: now,
		}
		for i, dd := range deductions {
			result.Items[i] = DeductedLine{
				SKU:              dd.SKU,
				Quantity:         normalized[i].Quantity,
				PreviousQuantity: dd.PreviousQuantity,
				NewQuantity:      dd.NewQuantity,
				PreviousReserved: dd.PreviousReserved,
				NewReserved:      dd.NewReserved,
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Replayed {
		outcome = telemetry.OutcomeReplayed
		return result, nil
	}

	d.afterCommit(ctx, tenantID, touched...)
	result.LogError = d.appendChangeLog(ctx, tenantID, orderID, deductions, result.CommittedAt)
	return result, nil
}

// commitLedger moves the order's held lines of committed skus to committed,
// rewriting their quantity to what was deducted, and records committed lines
// for skus the order never reserved. Held lines of skus outside this commit
// stay reserved for ReleaseOrder.
func commitLedger(ctx context.Context, repo inventory.OrderReservationRepository, tenantID uuid.UUID, orderID string, ledger inventory.OrderLedger, items []inventory.OrderItem, committed map[string]decimal.Decimal, now time.Time) error {
	known := make(map[string]bool, len(ledger))
	var transitions []*inventory.OrderReservation
	for i := range ledger {
		e := &ledger[i]
		known[e.SKU] = true
		quantity, ok := committed[e.SKU]
		if e.State != inventory.ReservationReserved || !ok {
			continue
		}
		if err := e.MarkCommitted(now); err != nil {
			return err
		}
		e.Quantity = quantity
		transitions = append(transitions, e)
	}
	if len(transitions) > 0 {
		if err := repo.UpdateStates(ctx, transitions); err != nil {
			return err
		}
	}

	var created []*inventory.OrderReservation
	for _, item := range items {
		if known[item.SKU] {
			continue
		}
		created = append(created, inventory.NewOrderReservation(tenantID, orderID, item.SKU, item.Quantity, inventory.ReservationCommitted, now))
	}
	if len(created) > 0 {
		return repo.CreateBatch(ctx, created)
	}
	return nil
}

// appendChangeLog hands the audit trail of a committed deduction to the change
// log. The deduction is durable at this point, so a caller that went away must
// not cancel the append.
func (d *DeductionCommitter) appendChangeLog(ctx context.Context, tenantID uuid.UUID, orderID string, deductions []inventory.Deduction, at time.Time) *inventory.LoggingError {
	if d.changeLogger == nil || len(deductions) == 0 {
		return nil
	}

	records := make([]inventory.ChangeRecord, len(deductions))
	for i, dd := range deductions {
		records[i] = inventory.NewDeductionChangeRecord(tenantID, orderID, dd, at)
	}

	if err := d.changeLogger.Append(context.WithoutCancel(ctx), records...); err != nil {
		if d.metrics != nil {
			d.metrics.RecordChangeLogFailure(ctx, len(records))
		}
		d.logger.Warn("Stock deducted but change log append failed",
			zap.String("tenant_id", tenantID.String()),
			zap.String("order_id", orderID),
			zap.Int("record_count", len(records)),
			zap.Error(err),
		)
		return inventory.NewLoggingError(orderID, err)
	}
	return nil
}

// replayDeduction decides how a commit relates to the order's ledger. It
// returns nil, nil when the commit should proceed: every requested sku is still
// held or was never reserved. A call whose skus were all committed before is
// answered from the ledger. Released lines and calls mixing committed with
// pending skus are state conflicts.
func replayDeduction(orderID string, ledger inventory.OrderLedger, items []inventory.OrderItem) (*DeductionResult, error) {
	if len(ledger) == 0 {
		return nil, nil
	}
	if state, _ := ledger.State(); state == inventory.ReservationReleased {
		return nil, inventory.ErrOrderStateConflict(orderID, inventory.ReservationReleased, "committed")
	}

	lines := make(map[string]inventory.OrderReservation, len(ledger))
	for _, e := range ledger {
		lines[e.SKU] = e
	}

	result := &DeductionResult{OrderID: orderID, Replayed: true}
	var done []string
	pending := 0
	for _, item := range items {
		e, ok := lines[item.SKU]
		if !ok || e.State == inventory.ReservationReserved {
			pending++
			continue
		}
		if e.State == inventory.ReservationReleased {
			return nil, inventory.ErrOrderStateConflict(orderID, inventory.ReservationReleased, "committed")
		}
		done = append(done, e.SKU)
		if result.CommittedAt.IsZero() || e.UpdatedAt.After(result.CommittedAt) {
			result.CommittedAt = e.UpdatedAt
		}
		result.Items = append(result.Items, DeductedLine{SKU: e.SKU, Quantity: e.Quantity})
	}

	switch {
	case len(done) == 0:
		return nil, nil
	case pending > 0:
		return nil, inventory.ErrMixedCommit(orderID, done)
	}
	return result, nil
}
