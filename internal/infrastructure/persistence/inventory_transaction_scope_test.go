package persistence

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	appinv "github.com/Shrijana18/StockPilot-v1-sub005/internal/application/inventory"
	"github.com/Shrijana18/StockPilot-v1-sub005/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormTransactionScope_Execute(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("commits on success", func(t *testing.T) {
		db := setupInventoryTestDB(t)
		scope := NewGormTransactionScope(db)

		err := scope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
			return repos.RecordRepo().Create(ctx, newRecord(t, tenantID, "SKU-1", 5))
		})
		require.NoError(t, err)

		_, err = NewGormInventoryRecordRepository(db).FindBySKU(ctx, tenantID, "SKU-1")
		assert.NoError(t, err)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		db := setupInventoryTestDB(t)
		scope := NewGormTransactionScope(db)
		boom := errors.New("boom")

		err := scope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
			require.NoError(t, repos.RecordRepo().Create(ctx, newRecord(t, tenantID, "SKU-1", 5)))
			return boom
		})
		assert.ErrorIs(t, err, boom)

		_, err = NewGormInventoryRecordRepository(db).FindBySKU(ctx, tenantID, "SKU-1")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("stale write surfaces optimistic lock", func(t *testing.T) {
		db := setupInventoryTestDB(t)
		repo := NewGormInventoryRecordRepository(db)
		require.NoError(t, repo.Create(ctx, newRecord(t, tenantID, "SKU-1", 5)))

		first, err := repo.FindBySKU(ctx, tenantID, "SKU-1")
		require.NoError(t, err)
		second, err := repo.FindBySKU(ctx, tenantID, "SKU-1")
		require.NoError(t, err)

		scope := NewGormTransactionScope(db)
		now := time.Now().UTC()
		require.NoError(t, first.Reserve("order-1", decimal.NewFromInt(2), now))
		require.NoError(t, scope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
			return repos.RecordRepo().SaveWithLock(ctx, first)
		}))

		require.NoError(t, second.Reserve("order-2", decimal.NewFromInt(2), now))
		err = scope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
			return repos.RecordRepo().SaveWithLock(ctx, second)
		})
		assert.ErrorIs(t, err, shared.ErrOptimisticLock)
		assert.True(t, IsConflict(err))
	})
}

func TestWithIsolation(t *testing.T) {
	scope := NewGormTransactionScope(nil)
	assert.Nil(t, scope.txOpts)

	scope = NewGormTransactionScope(nil, WithIsolation(sql.LevelRepeatableRead))
	require.NotNil(t, scope.txOpts)
	assert.Equal(t, sql.LevelRepeatableRead, scope.txOpts.Isolation)
}
