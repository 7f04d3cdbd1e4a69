// Package memory provides an in-process inventory store with the same
// transaction contract as the relational one: writes are staged per
// transaction and applied at commit only if no other transaction changed what
// they were based on.
package memory

import (
	"context"
	"sort"
	"sync"

	appinv "github.com/Shrijana18/StockPilot-v1-sub005/internal/application/inventory"
	"github.com/Shrijana18/StockPilot-v1-sub005/internal/domain/inventory"
	"github.com/Shrijana18/StockPilot-v1-sub005/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type skuKey struct {
	tenantID uuid.UUID
	sku      string
}

type orderKey struct {
	tenantID uuid.UUID
	orderID  string
}

type lineKey struct {
	tenantID uuid.UUID
	orderID  string
	sku      string
}

// Store keeps committed inventory state in memory
type Store struct {
	mu       sync.RWMutex
	records  map[uuid.UUID]inventory.RecordSnapshot
	bySKU    map[skuKey]uuid.UUID
	lines    map[uuid.UUID]inventory.OrderReservation
	byOrder  map[orderKey][]uuid.UUID
	lineKeys map[lineKey]uuid.UUID
}

// NewStore creates an empty Store
func NewStore() *Store {
	return &Store{
		records:  make(map[uuid.UUID]inventory.RecordSnapshot),
		bySKU:    make(map[skuKey]uuid.UUID),
		lines:    make(map[uuid.UUID]inventory.OrderReservation),
		byOrder:  make(map[orderKey][]uuid.UUID),
		lineKeys: make(map[lineKey]uuid.UUID),
	}
}

// Execute runs fn against a fresh transaction and commits its staged writes.
// A write based on state that changed since it was read fails the commit with
// shared.ErrOptimisticLock or shared.ErrConcurrencyConflict.
func (s *Store) Execute(ctx context.Context, fn func(repos appinv.TransactionalRepositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := newTxn(s)
	if err := fn(tx); err != nil {
		return err
	}
	return s.commit(tx)
}

// Records returns a record repository outside any transaction. Each write is
// its own transaction.
func (s *Store) Records() inventory.InventoryRecordRepository {
	return &autoRecordRepo{s: s}
}

// Reservations returns a ledger repository outside any transaction
func (s *Store) Reservations() inventory.OrderReservationRepository {
	return &autoReservationRepo{s: s}
}

func (s *Store) commit(tx *txn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, staged := range tx.records {
		current, exists := s.records[id]
		if staged.created {
			if _, taken := s.bySKU[skuKey{staged.snap.TenantID, staged.snap.SKU}]; taken {
				return shared.ErrConcurrencyConflict
			}
			continue
		}
		if !exists || current.Version != staged.baseVersion {
			return shared.ErrOptimisticLock
		}
	}
	for _, line := range tx.creates {
		if _, taken := s.lineKeys[lineKey{line.TenantID, line.OrderID, line.SKU}]; taken {
			return shared.ErrConcurrencyConflict
		}
	}
	for id := range tx.updates {
		if current, ok := s.lines[id]; !ok || current.State != inventory.ReservationReserved {
			return shared.ErrConcurrencyConflict
		}
	}

	for id, staged := range tx.records {
		s.records[id] = staged.snap
		s.bySKU[skuKey{staged.snap.TenantID, staged.snap.SKU}] = id
	}
	for _, line := range tx.creates {
		s.lines[line.ID] = line
		s.lineKeys[lineKey{line.TenantID, line.OrderID, line.SKU}] = line.ID
		key := orderKey{line.TenantID, line.OrderID}
		s.byOrder[key] = append(s.byOrder[key], line.ID)
	}
	for id, line := range tx.updates {
		s.lines[id] = line
	}
	return nil
}

func (s *Store) recordLocked(id uuid.UUID) (inventory.RecordSnapshot, bool) {
	snap, ok := s.records[id]
	return snap, ok
}

func (s *Store) recordBySKULocked(tenantID uuid.UUID, sku string) (inventory.RecordSnapshot, bool) {
	id, ok := s.bySKU[skuKey{tenantID, sku}]
	if !ok {
		return inventory.RecordSnapshot{}, false
	}
	return s.recordLocked(id)
}

// GetReservedUnits returns the sum of reserved quantity across a tenant's skus
func (s *Store) GetReservedUnits(_ context.Context, tenantID uuid.UUID) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := decimal.Zero
	for _, snap := range s.records {
		if snap.TenantID == tenantID {
			total = total.Add(snap.ReservedQuantity)
		}
	}
	return total.InexactFloat64(), nil
}

// GetDepletedCount returns how many of a tenant's skus have nothing available
func (s *Store) GetDepletedCount(_ context.Context, tenantID uuid.UUID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, snap := range s.records {
		if snap.TenantID == tenantID && !snap.Quantity.GreaterThan(snap.ReservedQuantity) {
			n++
		}
	}
	return n, nil
}

// GetActiveTenantIDs lists every tenant holding at least one record
func (s *Store) GetActiveTenantIDs(_ context.Context) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[uuid.UUID]struct{})
	for _, snap := range s.records {
		seen[snap.TenantID] = struct{}{}
	}
	ids := make([]uuid.UUID, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}

var _ appinv.TransactionScope = (*Store)(nil)
