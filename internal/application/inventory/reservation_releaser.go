package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/Shrijana18/StockPilot-v1-sub005/internal/domain/inventory"
	"github.com/Shrijana18/StockPilot-v1-sub005/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// errRecordGone marks an item whose record disappeared between resolve and update
var errRecordGone = errors.New("inventory record no longer exists")

// ReservationReleaser returns held stock to the available pool
type ReservationReleaser struct {
	*core
}

// NewReservationReleaser creates a new ReservationReleaser
func NewReservationReleaser(deps Dependencies, cfg Config) (*ReservationReleaser, error) {
	c, err := newCore(deps, cfg)
	if err != nil {
		return nil, err
	}
	return &ReservationReleaser{core: c}, nil
}

// Release decrements reservedQuantity per item, clamped at zero. Each item is
// its own transaction so a failing sku never blocks the others; the result
// reports every item's outcome. An error is returned only for invalid input.
//
// Release does not consult the order ledger and is not coordinated with a
// concurrent Commit of the same order. Use ReleaseOrder for that.
func (r *ReservationReleaser) Release(ctx context.Context, tenantID uuid.UUID, items []inventory.OrderItem) (result *ReleaseResult, err error) {
	start := time.Now()
	ctx, span := r.startOperation(ctx, OpRelease, tenantID, len(items))
	outcome := ""
	defer func() {
		r.finishOperation(ctx, span, OpRelease, tenantID, start, outcome, err)
	}()

	if err = validateScope(tenantID); err != nil {
		return nil, err
	}
	normalized, err := inventory.NormalizeItems(items)
	if err != nil {
		return nil, err
	}

	resolved, failed := r.resolveTolerant(ctx, tenantID, inventory.SKUs(normalized))

	result = &ReleaseResult{
		Items:       make([]ReleaseLine, len(normalized)),
		AllReleased: true,
	}
	var touched []*inventory.InventoryRecord
	for i, item := range normalized {
		line := ReleaseLine{SKU: item.SKU, Requested: item.Quantity, Released: decimal.Zero}

		switch record, found := resolved[item.SKU]; {
		case failed[item.SKU] != nil:
			line.Outcome = ReleaseOutcomeFailed
			line.Error = failed[item.SKU].Error()
		case !found:
			line.Outcome = ReleaseOutcomeNotFound
			line.Error = inventory.NewNotFoundError(item.SKU).Error()
		default:
			updated, released, releaseErr := r.releaseOne(ctx, tenantID, record.ID, item.Quantity)
			switch {
			case errors.Is(releaseErr, errRecordGone):
				line.Outcome = ReleaseOutcomeNotFound
				line.Error = inventory.NewNotFoundError(item.SKU).Error()
			case releaseErr != nil:
				line.Outcome = ReleaseOutcomeFailed
				line.Error = releaseErr.Error()
			default:
				line.Outcome = ReleaseOutcomeReleased
				line.Released = released
				line.ReservedQuantity = updated.ReservedQuantity()
				touched = append(touched, updated)
			}
		}

		if line.Outcome != ReleaseOutcomeReleased {
			result.AllReleased = false
			r.logger.Warn("Release skipped item",
				zap.String("sku", item.SKU),
				zap.String("outcome", string(line.Outcome)),
				zap.String("error", line.Error),
			)
		}
		result.Items[i] = line
	}

	r.afterCommit(ctx, tenantID, touched...)
	if !result.AllReleased {
		outcome = telemetry.OutcomePartial
	}
	return result, nil
}

// releaseOne releases one item in its own retried transaction
func (r *ReservationReleaser) releaseOne(ctx context.Context, tenantID, recordID uuid.UUID, quantity decimal.Decimal) (*inventory.InventoryRecord, decimal.Decimal, error) {
	var (
		updated  *inventory.InventoryRecord
		released decimal.Decimal
	)
	err := r.runInTransaction(ctx, OpRelease, func(repos TransactionalRepositories) error {
		records, err := repos.RecordRepo().FindByIDs(ctx, tenantID, []uuid.UUID{recordID})
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return errRecordGone
		}
		record := records[0]
		if released, err = record.Release(quantity, r.now()); err != nil {
			return err
		}
		if err := repos.RecordRepo().SaveWithLock(ctx, record); err != nil {
			return err
		}
		updated = record
		return nil
	})
	return updated, released, err
}

// ReleaseOrder releases exactly what an order's ledger still holds, in one
// transaction that also moves those lines to released. A fully committed order
// cannot be released; an order released before is replayed.
func (r *ReservationReleaser) ReleaseOrder(ctx context.Context, tenantID uuid.UUID, orderID string) (result *ReleaseResult, err error) {
	start := time.Now()
	ctx, span := r.startOperation(ctx, OpReleaseOrder, tenantID, 0)
	telemetry.SetAttributes(span, telemetry.SpanAttrOrderID, orderID)
	outcome := ""
	defer func() {
		r.finishOperation(ctx, span, OpReleaseOrder, tenantID, start, outcome, err, zap.String("order_id", orderID))
	}()

	if err = validateScope(tenantID); err != nil {
		return nil, err
	}
	if orderID, err = normalizeOrderID(orderID); err != nil {
		return nil, err
	}

	var touched []*inventory.InventoryRecord
	err = r.runInTransaction(ctx, OpReleaseOrder, func(repos TransactionalRepositories) error {
		touched = nil
		result = nil

		ledger, err := repos.ReservationRepo().FindByOrder(ctx, tenantID, orderID)
		if err != nil {
			return err
		}
		if len(ledger) == 0 {
			return orderNotFound(orderID)
		}

		held := make([]*inventory.OrderReservation, 0, len(ledger))
		for i := range ledger {
			if ledger[i].State == inventory.ReservationReserved {
				held = append(held, &ledger[i])
			}
		}
		if len(held) == 0 {
			state, _ := ledger.State()
			if state == inventory.ReservationCommitted {
				return inventory.ErrOrderStateConflict(orderID, state, "released")
			}
			result = releasedLedgerResult(orderID, ledger)
			return nil
		}

		skus := make([]string, len(held))
		for i, e := range held {
			skus[i] = e.SKU
		}
		loaded, err := r.loadBySKUs(ctx, repos.RecordRepo(), tenantID, skus)
		if err != nil {
			return err
		}

		now := r.now()
		result = &ReleaseResult{OrderID: orderID, AllReleased: true}
		for _, e := range held {
			line := ReleaseLine{SKU: e.SKU, Requested: e.Quantity, Released: decimal.Zero}
			record := loaded[e.SKU]
			if record == nil {
				// the record left the catalog; the hold went with it
				line.Outcome = ReleaseOutcomeNotFound
				line.Error = inventory.NewNotFoundError(e.SKU).Error()
			} else {
				released, err := record.Release(e.Quantity, now)
				if err != nil {
					return err
				}
				if err := repos.RecordRepo().SaveWithLock(ctx, record); err != nil {
					return err
				}
				touched = append(touched, record)
				line.Outcome = ReleaseOutcomeReleased
				line.Released = released
				line.ReservedQuantity = record.ReservedQuantity()
			}
			if err := e.MarkReleased(now); err != nil {
				return err
			}
			result.Items = append(result.Items, line)
		}
		return repos.ReservationRepo().UpdateStates(ctx, held)
	})
	if err != nil {
		return nil, err
	}

	if result.Replayed {
		outcome = telemetry.OutcomeReplayed
		return result, nil
	}
	r.afterCommit(ctx, tenantID, touched...)
	return result, nil
}

func releasedLedgerResult(orderID string, ledger inventory.OrderLedger) *ReleaseResult {
	result := &ReleaseResult{OrderID: orderID, AllReleased: true, Replayed: true}
	for _, e := range ledger {
		if e.State != inventory.ReservationReleased {
			continue
		}
		result.Items = append(result.Items, ReleaseLine{
			SKU:       e.SKU,
			Requested: e.Quantity,
			Released:  e.Quantity,
			Outcome:   ReleaseOutcomeReleased,
		})
	}
	return result
}
