package memory

import (
	"context"

	appinv "github.com/Shrijana18/StockPilot-v1-sub005/internal/application/inventory"
	"github.com/Shrijana18/StockPilot-v1-sub005/internal/domain/inventory"
	"github.com/google/uuid"
)

// autoRecordRepo reads committed state and runs each write in its own transaction
type autoRecordRepo struct {
	s *Store
}

func (r *autoRecordRepo) FindBySKU(ctx context.Context, tenantID uuid.UUID, sku string) (*inventory.InventoryRecord, error) {
	return newTxn(r.s).RecordRepo().FindBySKU(ctx, tenantID, sku)
}

func (r *autoRecordRepo) FindBySKUs(ctx context.Context, tenantID uuid.UUID, skus []string) ([]*inventory.InventoryRecord, error) {
	return newTxn(r.s).RecordRepo().FindBySKUs(ctx, tenantID, skus)
}

func (r *autoRecordRepo) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*inventory.InventoryRecord, error) {
	return newTxn(r.s).RecordRepo().FindByIDs(ctx, tenantID, ids)
}

func (r *autoRecordRepo) Create(ctx context.Context, record *inventory.InventoryRecord) error {
	return r.s.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		return repos.RecordRepo().Create(ctx, record)
	})
}

func (r *autoRecordRepo) SaveWithLock(ctx context.Context, record *inventory.InventoryRecord) error {
	return r.s.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		return repos.RecordRepo().SaveWithLock(ctx, record)
	})
}

// autoReservationRepo is the ledger counterpart of autoRecordRepo
type autoReservationRepo struct {
	s *Store
}

func (r *autoReservationRepo) FindByOrder(ctx context.Context, tenantID uuid.UUID, orderID string) (inventory.OrderLedger, error) {
	return newTxn(r.s).ReservationRepo().FindByOrder(ctx, tenantID, orderID)
}

func (r *autoReservationRepo) CreateBatch(ctx context.Context, entries []*inventory.OrderReservation) error {
	return r.s.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		return repos.ReservationRepo().CreateBatch(ctx, entries)
	})
}

func (r *autoReservationRepo) UpdateStates(ctx context.Context, entries []*inventory.OrderReservation) error {
	return r.s.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		return repos.ReservationRepo().UpdateStates(ctx, entries)
	})
}

var (
	_ inventory.InventoryRecordRepository  = (*autoRecordRepo)(nil)
	_ inventory.InventoryRecordRepository  = (*txRecordRepo)(nil)
	_ inventory.OrderReservationRepository = (*autoReservationRepo)(nil)
	_ inventory.OrderReservationRepository = (*txReservationRepo)(nil)
)
