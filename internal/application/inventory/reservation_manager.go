package inventory

import (
	"context"
	"time"

	"github.com/Shrijana18/StockPilot-v1-sub005/internal/domain/inventory"
	"github.com/Shrijana18/StockPilot-v1-sub005/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReservationManager holds stock for orders, all items or none
type ReservationManager struct {
	*core
}

// NewReservationManager creates a new ReservationManager
func NewReservationManager(deps Dependencies, cfg Config) (*ReservationManager, error) {
	c, err := newCore(deps, cfg)
	if err != nil {
		return nil, err
	}
	return &ReservationManager{core: c}, nil
}

// Reserve holds stock for every item of an order in one transaction.
//
// The resolve phase maps skus to records with plain sharded reads. The commit
// phase re-reads every record inside a single transaction, re-verifies all
// items and applies every delta or none. A lost write race restarts the
// transaction; the loser then sees the winner's state. An order that already
// holds a reservation is replayed from its ledger instead of being applied twice.
func (m *ReservationManager) Reserve(ctx context.Context, tenantID uuid.UUID, orderID string, items []inventory.OrderItem) (result *ReservationResult, err error) {
	start := time.Now()
	ctx, span := m.startOperation(ctx, OpReserve, tenantID, len(items))
	telemetry.SetAttributes(span, telemetry.SpanAttrOrderID, orderID)
	outcome := ""
	defer func() {
		m.finishOperation(ctx, span, OpReserve, tenantID, start, outcome, err, zap.String("order_id", orderID))
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

	// cheap replay check before any resolve work
	ledger, err := m.reservations.FindByOrder(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	if len(ledger) > 0 {
		result, err = replayReservation(orderID, ledger)
		if err == nil {
			outcome = telemetry.OutcomeReplayed
		}
		return result, err
	}

	// resolve phase
	skus := inventory.SKUs(normalized)
	resolved, err := m.resolve(ctx, tenantID, skus)
	if err != nil {
		return nil, err
	}
	ids, missing := recordIDs(normalized, resolved)
	if len(missing) > 0 {
		return nil, inventory.NewNotFoundError(missing...)
	}

	// commit phase
	var touched []*inventory.InventoryRecord
	err = m.runInTransaction(ctx, OpReserve, func(repos TransactionalRepositories) error {
		touched = nil
		result = nil

		ledger, err := repos.ReservationRepo().FindByOrder(ctx, tenantID, orderID)
		if err != nil {
			return err
		}
		if len(ledger) > 0 {
			result, err = replayReservation(orderID, ledger)
			return err
		}

		loaded, err := m.loadByIDs(ctx, repos.RecordRepo(), tenantID, ids)
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
			if status := inventory.Classify(item.SKU, record, item.Quantity); !status.Satisfiable() {
				shortfalls = append(shortfalls, status.Shortfall())
			}
		}
		if len(gone) > 0 {
			return inventory.NewNotFoundError(gone...)
		}
		if len(shortfalls) > 0 {
			return inventory.NewInsufficientStockError(shortfalls)
		}

		now := m.now()
		entries := make([]*inventory.OrderReservation, 0, len(normalized))
		for i, item := range normalized {
			record := loaded[ids[i]]
			if err := record.Reserve(orderID, item.Quantity, now); err != nil {
				return err
			}
			if err := repos.RecordRepo().SaveWithLock(ctx, record); err != nil {
				return err
			}
			touched = append(touched, record)
			entries = append(entries, inventory.NewOrderReservation(tenantID, orderID, item.SKU, item.Quantity, inventory.ReservationReserved, now))
		}
		if err := repos.ReservationRepo().CreateBatch(ctx, entries); err != nil {
			return err
		}

		result = &ReservationResult{
			OrderID:    orderID,
			Items:      normalized,
			State:      inventory.ReservationReserved,
			ReservedAt: now,
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
	m.afterCommit(ctx, tenantID, touched...)
	return result, nil
}

// GetOrderReservation returns the ledger of an order
func (m *ReservationManager) GetOrderReservation(ctx context.Context, tenantID uuid.UUID, orderID string) (view *OrderReservationView, err error) {
	start := time.Now()
	ctx, span := m.startOperation(ctx, OpLedger, tenantID, 0)
	defer func() {
		m.finishOperation(ctx, span, OpLedger, tenantID, start, "", err, zap.String("order_id", orderID))
	}()

	if err = validateScope(tenantID); err != nil {
		return nil, err
	}
	if orderID, err = normalizeOrderID(orderID); err != nil {
		return nil, err
	}

	ledger, err := m.reservations.FindByOrder(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	if len(ledger) == 0 {
		return nil, orderNotFound(orderID)
	}
	return toOrderReservationView(orderID, ledger), nil
}

// replayReservation answers a repeated reserve from the stored ledger.
// A released order cannot be reserved again under the same id.
func replayReservation(orderID string, ledger inventory.OrderLedger) (*ReservationResult, error) {
	state, _ := ledger.State()
	if state == inventory.ReservationReleased {
		return nil, inventory.ErrOrderStateConflict(orderID, state, "reserved")
	}
	return &ReservationResult{
		OrderID:    orderID,
		Items:      ledger.Items(),
		State:      state,
		Replayed:   true,
		ReservedAt: ledger[0].CreatedAt,
	}, nil
}

// recordIDs lines up record ids with items and lists skus that did not resolve
func recordIDs(items []inventory.OrderItem, resolved map[string]*inventory.InventoryRecord) ([]uuid.UUID, []string) {
	ids := make([]uuid.UUID, len(items))
	var missing []string
	for i, item := range items {
		record, ok := resolved[item.SKU]
		if !ok {
			missing = append(missing, item.SKU)
			continue
		}
		ids[i] = record.ID
	}
	return ids, missing
}
