package memory

import (
	"context"
	"fmt"

	"github.com/Shrijana18/StockPilot-v1-sub005/internal/domain/inventory"
	"github.com/Shrijana18/StockPilot-v1-sub005/internal/domain/shared"
	"github.com/google/uuid"
)

type stagedRecord struct {
	snap        inventory.RecordSnapshot
	baseVersion int
	created     bool
}

// txn stages the writes of one transaction. Reads see committed state
// overlaid with the transaction's own writes.
type txn struct {
	s       *Store
	records map[uuid.UUID]*stagedRecord
	creates []inventory.OrderReservation
	updates map[uuid.UUID]inventory.OrderReservation
}

func newTxn(s *Store) *txn {
	return &txn{
		s:       s,
		records: make(map[uuid.UUID]*stagedRecord),
		updates: make(map[uuid.UUID]inventory.OrderReservation),
	}
}

func (t *txn) RecordRepo() inventory.InventoryRecordRepository {
	return &txRecordRepo{t: t}
}

func (t *txn) ReservationRepo() inventory.OrderReservationRepository {
	return &txReservationRepo{t: t}
}

// record returns the transaction's view of a record
func (t *txn) record(id uuid.UUID) (inventory.RecordSnapshot, bool) {
	if staged, ok := t.records[id]; ok {
		return staged.snap, true
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	return t.s.recordLocked(id)
}

func (t *txn) recordBySKU(tenantID uuid.UUID, sku string) (inventory.RecordSnapshot, bool) {
	for _, staged := range t.records {
		if staged.snap.TenantID == tenantID && staged.snap.SKU == sku {
			return staged.snap, true
		}
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	return t.s.recordBySKULocked(tenantID, sku)
}

// line returns the transaction's view of a ledger line
func (t *txn) line(id uuid.UUID) (inventory.OrderReservation, bool) {
	if line, ok := t.updates[id]; ok {
		return line, true
	}
	for _, line := range t.creates {
		if line.ID == id {
			return line, true
		}
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	line, ok := t.s.lines[id]
	return line, ok
}

type txRecordRepo struct {
	t *txn
}

func (r *txRecordRepo) FindBySKU(ctx context.Context, tenantID uuid.UUID, sku string) (*inventory.InventoryRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap, ok := r.t.recordBySKU(tenantID, sku)
	if !ok {
		return nil, shared.ErrNotFound
	}
	return inventory.RestoreInventoryRecord(snap), nil
}

func (r *txRecordRepo) FindBySKUs(ctx context.Context, tenantID uuid.UUID, skus []string) ([]*inventory.InventoryRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	records := make([]*inventory.InventoryRecord, 0, len(skus))
	for _, sku := range skus {
		if snap, ok := r.t.recordBySKU(tenantID, sku); ok {
			records = append(records, inventory.RestoreInventoryRecord(snap))
		}
	}
	return records, nil
}

func (r *txRecordRepo) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*inventory.InventoryRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	records := make([]*inventory.InventoryRecord, 0, len(ids))
	for _, id := range ids {
		if snap, ok := r.t.record(id); ok && snap.TenantID == tenantID {
			records = append(records, inventory.RestoreInventoryRecord(snap))
		}
	}
	return records, nil
}

func (r *txRecordRepo) Create(_ context.Context, record *inventory.InventoryRecord) error {
	snap := record.Snapshot()
	if _, exists := r.t.recordBySKU(snap.TenantID, snap.SKU); exists {
		return fmt.Errorf("%w: sku %s already exists", shared.ErrConcurrencyConflict, snap.SKU)
	}
	r.t.records[snap.ID] = &stagedRecord{snap: snap, created: true}
	return nil
}

// SaveWithLock stages a mutated record if the version it was read at is still
// the one this transaction sees
func (r *txRecordRepo) SaveWithLock(_ context.Context, record *inventory.InventoryRecord) error {
	snap := record.Snapshot()
	base := snap.Version - 1

	if staged, ok := r.t.records[snap.ID]; ok {
		if staged.snap.Version != base {
			return shared.ErrOptimisticLock
		}
		staged.snap = snap
		return nil
	}

	current, ok := r.t.record(snap.ID)
	if !ok || current.TenantID != snap.TenantID || current.Version != base {
		return shared.ErrOptimisticLock
	}
	r.t.records[snap.ID] = &stagedRecord{snap: snap, baseVersion: base}
	return nil
}

type txReservationRepo struct {
	t *txn
}

func (r *txReservationRepo) FindByOrder(ctx context.Context, tenantID uuid.UUID, orderID string) (inventory.OrderLedger, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.t.s.mu.RLock()
	ids := append([]uuid.UUID(nil), r.t.s.byOrder[orderKey{tenantID, orderID}]...)
	r.t.s.mu.RUnlock()

	ledger := make(inventory.OrderLedger, 0, len(ids))
	for _, id := range ids {
		if line, ok := r.t.line(id); ok {
			ledger = append(ledger, line)
		}
	}
	for _, line := range r.t.creates {
		if line.TenantID == tenantID && line.OrderID == orderID {
			if updated, ok := r.t.updates[line.ID]; ok {
				line = updated
			}
			ledger = append(ledger, line)
		}
	}
	return ledger, nil
}

func (r *txReservationRepo) CreateBatch(ctx context.Context, entries []*inventory.OrderReservation) error {
	if len(entries) == 0 {
		return nil
	}
	for _, e := range entries {
		existing, err := r.FindByOrder(ctx, e.TenantID, e.OrderID)
		if err != nil {
			return err
		}
		for _, line := range existing {
			if line.SKU == e.SKU {
				return fmt.Errorf("%w: ledger line %s for order %s already exists",
					shared.ErrConcurrencyConflict, e.SKU, e.OrderID)
			}
		}
		r.t.creates = append(r.t.creates, *e)
	}
	return nil
}

func (r *txReservationRepo) UpdateStates(_ context.Context, entries []*inventory.OrderReservation) error {
	for _, e := range entries {
		current, ok := r.t.line(e.ID)
		if !ok || current.State != inventory.ReservationReserved {
			return fmt.Errorf("%w: ledger line %s for order %s already left the reserved state",
				shared.ErrConcurrencyConflict, e.SKU, e.OrderID)
		}
		if r.stageCreatedUpdate(*e) {
			continue
		}
		r.t.updates[e.ID] = *e
	}
	return nil
}

// stageCreatedUpdate rewrites a line created in this same transaction
func (r *txReservationRepo) stageCreatedUpdate(e inventory.OrderReservation) bool {
	for i := range r.t.creates {
		if r.t.creates[i].ID == e.ID {
			r.t.creates[i] = e
			return true
		}
	}
	return false
}
