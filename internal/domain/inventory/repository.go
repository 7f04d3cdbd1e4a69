package inventory

import (
	"context"

	"github.com/google/uuid"
)

// InventoryRecordRepository reads and writes inventory records.
// FindBySKUs issues a single predicate lookup; callers shard sku sets that
// exceed the store's predicate cap.
type InventoryRecordRepository interface {
	FindBySKU(ctx context.Context, tenantID uuid.UUID, sku string) (*InventoryRecord, error)
	FindBySKUs(ctx context.Context, tenantID uuid.UUID, skus []string) ([]*InventoryRecord, error)
	FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*InventoryRecord, error)
	Create(ctx context.Context, record *InventoryRecord) error
	// SaveWithLock persists a mutated record only if nobody else wrote it since it
	// was read. It returns shared.ErrOptimisticLock otherwise.
	SaveWithLock(ctx context.Context, record *InventoryRecord) error
}

// OrderReservationRepository persists the per-order reservation ledger
type OrderReservationRepository interface {
	FindByOrder(ctx context.Context, tenantID uuid.UUID, orderID string) (OrderLedger, error)
	CreateBatch(ctx context.Context, entries []*OrderReservation) error
	UpdateStates(ctx context.Context, entries []*OrderReservation) error
}

// ChangeLogger is the append-only audit sink for committed stock changes
type ChangeLogger interface {
	Append(ctx context.Context, records ...ChangeRecord) error
}
