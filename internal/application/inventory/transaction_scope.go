package inventory

import (
	"context"

	"github.com/Shrijana18/StockPilot-v1-sub005/internal/domain/inventory"
)

// TransactionScope runs fn atomically: every repository call made through
// repos commits together or not at all.
//
// A write that lost a race surfaces as shared.ErrOptimisticLock or
// shared.ErrConcurrencyConflict, from a repository call or from Execute.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories hands out repositories bound to one transaction
type TransactionalRepositories interface {
	RecordRepo() inventory.InventoryRecordRepository
	ReservationRepo() inventory.OrderReservationRepository
}
