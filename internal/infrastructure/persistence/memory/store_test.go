package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	appinv "github.com/Shrijana18/StockPilot-v1-sub005/internal/application/inventory"
	"github.com/Shrijana18/StockPilot-v1-sub005/internal/domain/inventory"
	"github.com/Shrijana18/StockPilot-v1-sub005/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedRecord(t *testing.T, s *Store, tenantID uuid.UUID, sku string, qty int64) *inventory.InventoryRecord {
	t.Helper()
	record, err := inventory.NewInventoryRecord(tenantID, sku, decimal.NewFromInt(qty))
	require.NoError(t, err)
	require.NoError(t, s.Records().Create(context.Background(), record))
	return record
}

func TestStore_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	tenantID := uuid.New()
	created := seedRecord(t, s, tenantID, "SKU-1", 10)

	found, err := s.Records().FindBySKU(ctx, tenantID, "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.True(t, found.Quantity().Equal(decimal.NewFromInt(10)))

	_, err = s.Records().FindBySKU(ctx, uuid.New(), "SKU-1")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	records, err := s.Records().FindBySKUs(ctx, tenantID, []string{"SKU-1", "SKU-404"})
	require.NoError(t, err)
	assert.Len(t, records, 1)

	byID, err := s.Records().FindByIDs(ctx, tenantID, []uuid.UUID{created.ID})
	require.NoError(t, err)
	require.Len(t, byID, 1)
	assert.Equal(t, "SKU-1", byID[0].SKU)
}

func TestStore_CreateDuplicateSKU(t *testing.T) {
	s := NewStore()
	tenantID := uuid.New()
	seedRecord(t, s, tenantID, "SKU-1", 10)

	dup, err := inventory.NewInventoryRecord(tenantID, "SKU-1", decimal.NewFromInt(3))
	require.NoError(t, err)
	err = s.Records().Create(context.Background(), dup)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
}

func TestStore_SaveWithLock(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("saves the next version", func(t *testing.T) {
		s := NewStore()
		tenantID := uuid.New()
		seedRecord(t, s, tenantID, "SKU-1", 10)

		record, err := s.Records().FindBySKU(ctx, tenantID, "SKU-1")
		require.NoError(t, err)
		require.NoError(t, record.Reserve("order-1", decimal.NewFromInt(4), now))
		require.NoError(t, s.Records().SaveWithLock(ctx, record))

		reloaded, err := s.Records().FindBySKU(ctx, tenantID, "SKU-1")
		require.NoError(t, err)
		assert.True(t, reloaded.ReservedQuantity().Equal(decimal.NewFromInt(4)))
		assert.Equal(t, record.Version, reloaded.Version)
		assert.Equal(t, "order-1", reloaded.LastReservedBy())
	})

	t.Run("rejects a stale copy", func(t *testing.T) {
		s := NewStore()
		tenantID := uuid.New()
		seedRecord(t, s, tenantID, "SKU-1", 10)

		first, err := s.Records().FindBySKU(ctx, tenantID, "SKU-1")
		require.NoError(t, err)
		second, err := s.Records().FindBySKU(ctx, tenantID, "SKU-1")
		require.NoError(t, err)

		require.NoError(t, first.Reserve("order-1", decimal.NewFromInt(4), now))
		require.NoError(t, s.Records().SaveWithLock(ctx, first))

		require.NoError(t, second.Reserve("order-2", decimal.NewFromInt(4), now))
		err = s.Records().SaveWithLock(ctx, second)
		assert.ErrorIs(t, err, shared.ErrOptimisticLock)
	})
}

func TestStore_Execute(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("rolls back when fn fails", func(t *testing.T) {
		s := NewStore()
		tenantID := uuid.New()
		seedRecord(t, s, tenantID, "SKU-1", 10)
		boom := errors.New("boom")

		err := s.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
			record, err := repos.RecordRepo().FindBySKU(ctx, tenantID, "SKU-1")
			require.NoError(t, err)
			require.NoError(t, record.Reserve("order-1", decimal.NewFromInt(4), now))
			require.NoError(t, repos.RecordRepo().SaveWithLock(ctx, record))
			return boom
		})
		require.ErrorIs(t, err, boom)

		record, err := s.Records().FindBySKU(ctx, tenantID, "SKU-1")
		require.NoError(t, err)
		assert.True(t, record.ReservedQuantity().IsZero())
	})

	t.Run("reads its own writes", func(t *testing.T) {
		s := NewStore()
		tenantID := uuid.New()
		seedRecord(t, s, tenantID, "SKU-1", 10)

		err := s.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
			record, err := repos.RecordRepo().FindBySKU(ctx, tenantID, "SKU-1")
			require.NoError(t, err)
			require.NoError(t, record.Reserve("order-1", decimal.NewFromInt(4), now))
			require.NoError(t, repos.RecordRepo().SaveWithLock(ctx, record))

			again, err := repos.RecordRepo().FindBySKU(ctx, tenantID, "SKU-1")
			require.NoError(t, err)
			assert.True(t, again.ReservedQuantity().Equal(decimal.NewFromInt(4)))
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("loses to a transaction that committed first", func(t *testing.T) {
		s := NewStore()
		tenantID := uuid.New()
		seedRecord(t, s, tenantID, "SKU-1", 10)

		err := s.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
			record, err := repos.RecordRepo().FindBySKU(ctx, tenantID, "SKU-1")
			require.NoError(t, err)
			require.NoError(t, record.Reserve("order-1", decimal.NewFromInt(4), now))
			require.NoError(t, repos.RecordRepo().SaveWithLock(ctx, record))

			// a second writer commits while this one is still open
			other, err := s.Records().FindBySKU(ctx, tenantID, "SKU-1")
			require.NoError(t, err)
			require.NoError(t, other.Reserve("order-2", decimal.NewFromInt(5), now))
			require.NoError(t, s.Records().SaveWithLock(ctx, other))
			return nil
		})
		require.ErrorIs(t, err, shared.ErrOptimisticLock)

		record, err := s.Records().FindBySKU(ctx, tenantID, "SKU-1")
		require.NoError(t, err)
		assert.True(t, record.ReservedQuantity().Equal(decimal.NewFromInt(5)))
	})

	t.Run("honors a cancelled context", func(t *testing.T) {
		s := NewStore()
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		err := s.Execute(cctx, func(appinv.TransactionalRepositories) error { return nil })
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestStore_Ledger(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	tenantID := uuid.New()

	newLines := func() []*inventory.OrderReservation {
		return []*inventory.OrderReservation{
			inventory.NewOrderReservation(tenantID, "order-1", "SKU-1", decimal.NewFromInt(2), inventory.ReservationReserved, now),
			inventory.NewOrderReservation(tenantID, "order-1", "SKU-2", decimal.NewFromInt(3), inventory.ReservationReserved, now),
		}
	}

	t.Run("keeps write order", func(t *testing.T) {
		s := NewStore()
		require.NoError(t, s.Reservations().CreateBatch(ctx, newLines()))

		ledger, err := s.Reservations().FindByOrder(ctx, tenantID, "order-1")
		require.NoError(t, err)
		require.Len(t, ledger, 2)
		assert.Equal(t, "SKU-1", ledger[0].SKU)
		assert.Equal(t, "SKU-2", ledger[1].SKU)

		empty, err := s.Reservations().FindByOrder(ctx, tenantID, "order-2")
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("rejects a duplicate line", func(t *testing.T) {
		s := NewStore()
		require.NoError(t, s.Reservations().CreateBatch(ctx, newLines()))

		err := s.Reservations().CreateBatch(ctx, newLines()[:1])
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})

	t.Run("moves a line out of reserved only once", func(t *testing.T) {
		s := NewStore()
		require.NoError(t, s.Reservations().CreateBatch(ctx, newLines()))

		first, err := s.Reservations().FindByOrder(ctx, tenantID, "order-1")
		require.NoError(t, err)
		second, err := s.Reservations().FindByOrder(ctx, tenantID, "order-1")
		require.NoError(t, err)

		require.NoError(t, first[0].MarkReleased(now))
		require.NoError(t, s.Reservations().UpdateStates(ctx, []*inventory.OrderReservation{&first[0]}))

		require.NoError(t, second[0].MarkCommitted(now))
		err = s.Reservations().UpdateStates(ctx, []*inventory.OrderReservation{&second[0]})
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

		ledger, err := s.Reservations().FindByOrder(ctx, tenantID, "order-1")
		require.NoError(t, err)
		assert.Equal(t, inventory.ReservationReleased, ledger[0].State)
		assert.Equal(t, inventory.ReservationReserved, ledger[1].State)
	})

	t.Run("updates a line created in the same transaction", func(t *testing.T) {
		s := NewStore()
		err := s.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
			lines := newLines()
			require.NoError(t, repos.ReservationRepo().CreateBatch(ctx, lines))
			require.NoError(t, lines[0].MarkCommitted(now))
			return repos.ReservationRepo().UpdateStates(ctx, lines[:1])
		})
		require.NoError(t, err)

		ledger, err := s.Reservations().FindByOrder(ctx, tenantID, "order-1")
		require.NoError(t, err)
		require.Len(t, ledger, 2)
		assert.Equal(t, inventory.ReservationCommitted, ledger[0].State)
	})
}

func TestStore_MetricsProviders(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	tenantID := uuid.New()
	seedRecord(t, s, tenantID, "SKU-1", 10)
	seedRecord(t, s, tenantID, "SKU-2", 0)
	seedRecord(t, s, uuid.New(), "SKU-3", 5)

	record, err := s.Records().FindBySKU(ctx, tenantID, "SKU-1")
	require.NoError(t, err)
	require.NoError(t, record.Reserve("order-1", decimal.NewFromInt(4), time.Now()))
	require.NoError(t, s.Records().SaveWithLock(ctx, record))

	reserved, err := s.GetReservedUnits(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, 4.0, reserved)

	depleted, err := s.GetDepletedCount(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), depleted)

	tenants, err := s.GetActiveTenantIDs(ctx)
	require.NoError(t, err)
	assert.Len(t, tenants, 2)
}
