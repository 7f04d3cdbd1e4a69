package inventory

import (
	"errors"
	"testing"
	"time"

	"github.com/Shrijana18/StockPilot-v1-sub005/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRecord(t *testing.T, quantity int64) *InventoryRecord {
	t.Helper()
	r, err := NewInventoryRecord(uuid.New(), "P", decimal.NewFromInt(quantity))
	require.NoError(t, err)
	return r
}

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestNewInventoryRecord(t *testing.T) {
	tenantID := uuid.New()

	t.Run("creates record with zero reserved", func(t *testing.T) {
		r, err := NewInventoryRecord(tenantID, "  SKU-1 ", d(10))

		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, r.ID)
		assert.Equal(t, tenantID, r.TenantID)
		assert.Equal(t, "SKU-1", r.SKU)
		assert.True(t, r.Quantity().Equal(d(10)))
		assert.True(t, r.ReservedQuantity().IsZero())
		assert.Equal(t, 1, r.Version)
	})

	t.Run("rejects nil scope", func(t *testing.T) {
		_, err := NewInventoryRecord(uuid.Nil, "SKU-1", d(1))
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "scope_id", vErr.Field)
	})

	t.Run("rejects empty sku", func(t *testing.T) {
		_, err := NewInventoryRecord(tenantID, " ", d(1))
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
	})

	t.Run("rejects negative quantity", func(t *testing.T) {
		_, err := NewInventoryRecord(tenantID, "SKU-1", d(-1))
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
	})
}

func TestInventoryRecord_Reserve(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("holds stock and stamps order", func(t *testing.T) {
		r := newTestRecord(t, 10)

		require.NoError(t, r.Reserve("order-A", d(4), now))

		assert.True(t, r.ReservedQuantity().Equal(d(4)))
		assert.True(t, r.Available().Equal(d(6)))
		assert.Equal(t, "order-A", r.LastReservedBy())
		require.NotNil(t, r.LastReservedAt())
		assert.Equal(t, now, *r.LastReservedAt())
		assert.Equal(t, 2, r.Version)
		require.Len(t, r.GetDomainEvents(), 1)
		assert.Equal(t, EventTypeStockReserved, r.GetDomainEvents()[0].EventType())
	})

	t.Run("exact quantity depletes", func(t *testing.T) {
		r := newTestRecord(t, 10)

		require.NoError(t, r.Reserve("order-A", d(10), now))

		assert.True(t, r.Available().IsZero())
		events := r.GetDomainEvents()
		require.Len(t, events, 2)
		assert.Equal(t, EventTypeStockDepleted, events[1].EventType())
	})

	t.Run("one more than available fails without change", func(t *testing.T) {
		r := newTestRecord(t, 10)

		err := r.Reserve("order-A", d(11), now)

		var stockErr *InsufficientStockError
		require.ErrorAs(t, err, &stockErr)
		require.Len(t, stockErr.Items, 1)
		assert.Equal(t, "P", stockErr.Items[0].SKU)
		assert.True(t, stockErr.Items[0].Missing().Equal(d(1)))
		assert.True(t, errors.Is(err, shared.ErrInsufficientStock))
		assert.True(t, r.ReservedQuantity().IsZero())
		assert.Equal(t, 1, r.Version)
		assert.Empty(t, r.GetDomainEvents())
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		r := newTestRecord(t, 10)
		var vErr *ValidationError
		require.ErrorAs(t, r.Reserve("order-A", d(0), now), &vErr)
	})
}

func TestInventoryRecord_Release(t *testing.T) {
	now := time.Now()

	t.Run("returns held stock", func(t *testing.T) {
		r := newTestRecord(t, 10)
		require.NoError(t, r.Reserve("order-A", d(6), now))

		released, err := r.Release(d(6), now)

		require.NoError(t, err)
		assert.True(t, released.Equal(d(6)))
		assert.True(t, r.ReservedQuantity().IsZero())
		require.NotNil(t, r.LastReleasedAt())
	})

	t.Run("clamps at zero when bookkeeping drifted", func(t *testing.T) {
		r := newTestRecord(t, 10)
		require.NoError(t, r.Reserve("order-A", d(2), now))

		released, err := r.Release(d(5), now)

		require.NoError(t, err)
		assert.True(t, released.Equal(d(2)))
		assert.True(t, r.ReservedQuantity().IsZero())
	})
}

func TestInventoryRecord_Deduct(t *testing.T) {
	now := time.Now()

	t.Run("consumes the order's reservation", func(t *testing.T) {
		r := newTestRecord(t, 10)
		require.NoError(t, r.Reserve("order-C", d(4), now))

		ded, err := r.Deduct("order-C", d(4), d(4), now)

		require.NoError(t, err)
		assert.True(t, r.Quantity().Equal(d(6)))
		assert.True(t, r.ReservedQuantity().IsZero())
		assert.True(t, ded.PreviousQuantity.Equal(d(10)))
		assert.True(t, ded.NewQuantity.Equal(d(6)))
		assert.True(t, ded.PreviousReserved.Equal(d(4)))
		assert.True(t, ded.NewReserved.IsZero())
		assert.Equal(t, "order-C", r.LastDeductedBy())
	})

	t.Run("falls back to raw availability without reservation", func(t *testing.T) {
		r := newTestRecord(t, 10)
		require.NoError(t, r.Reserve("other", d(7), now))

		_, err := r.Deduct("order-D", d(3), decimal.Zero, now)
		require.NoError(t, err)
		assert.True(t, r.Quantity().Equal(d(7)))
		assert.True(t, r.ReservedQuantity().Equal(d(7)))

		_, err = r.Deduct("order-E", d(1), decimal.Zero, now)
		var stockErr *InsufficientStockError
		require.ErrorAs(t, err, &stockErr)
		assert.True(t, r.Quantity().Equal(d(7)))
	})

	t.Run("partial hold is topped up from availability", func(t *testing.T) {
		r := newTestRecord(t, 10)
		require.NoError(t, r.Reserve("order-F", d(2), now))

		_, err := r.Deduct("order-F", d(5), d(2), now)

		require.NoError(t, err)
		assert.True(t, r.Quantity().Equal(d(5)))
		assert.True(t, r.ReservedQuantity().IsZero())
	})

	t.Run("under-commit returns the rest of the hold", func(t *testing.T) {
		r := newTestRecord(t, 10)
		require.NoError(t, r.Reserve("order-H", d(4), now))
		r.ClearDomainEvents()

		ded, err := r.Deduct("order-H", d(3), d(4), now)

		require.NoError(t, err)
		assert.True(t, r.Quantity().Equal(d(7)))
		assert.True(t, r.ReservedQuantity().IsZero())
		assert.True(t, r.Available().Equal(d(7)))
		assert.True(t, ded.ReturnedHold.Equal(d(1)))
		require.NotNil(t, r.LastReleasedAt())
		assert.Equal(t, 3, r.Version)

		types := make([]string, 0)
		for _, e := range r.GetDomainEvents() {
			types = append(types, e.EventType())
		}
		assert.Equal(t, []string{EventTypeStockDeducted, EventTypeStockReleased}, types)
	})

	t.Run("other orders' holds stay reserved", func(t *testing.T) {
		r := newTestRecord(t, 10)
		require.NoError(t, r.Reserve("order-I", d(4), now))
		require.NoError(t, r.Reserve("other", d(3), now))

		ded, err := r.Deduct("order-I", d(1), d(4), now)

		require.NoError(t, err)
		assert.True(t, r.Quantity().Equal(d(9)))
		assert.True(t, r.ReservedQuantity().Equal(d(3)))
		assert.True(t, ded.ReturnedHold.Equal(d(3)))
	})

	t.Run("emits depletion when stock reaches zero", func(t *testing.T) {
		r := newTestRecord(t, 3)
		_, err := r.Deduct("order-G", d(3), decimal.Zero, now)
		require.NoError(t, err)

		types := make([]string, 0)
		for _, e := range r.GetDomainEvents() {
			types = append(types, e.EventType())
		}
		assert.Equal(t, []string{EventTypeStockDeducted, EventTypeStockDepleted}, types)
	})
}

func TestInventoryRecord_SetQuantity(t *testing.T) {
	now := time.Now()
	r := newTestRecord(t, 10)
	require.NoError(t, r.Reserve("order-A", d(4), now))

	t.Run("rejects quantity below reserved", func(t *testing.T) {
		var vErr *ValidationError
		require.ErrorAs(t, r.SetQuantity(d(3), now), &vErr)
		assert.True(t, r.Quantity().Equal(d(10)))
	})

	t.Run("accepts quantity equal to reserved", func(t *testing.T) {
		require.NoError(t, r.SetQuantity(d(4), now))
		assert.True(t, r.Available().IsZero())
	})

	t.Run("unchanged quantity does not bump version", func(t *testing.T) {
		v := r.Version
		require.NoError(t, r.SetQuantity(d(4), now))
		assert.Equal(t, v, r.Version)
	})
}

func TestInventoryRecord_SnapshotRoundTrip(t *testing.T) {
	now := time.Now().UTC()
	r := newTestRecord(t, 10)
	require.NoError(t, r.Reserve("order-A", d(3), now))

	restored := RestoreInventoryRecord(r.Snapshot())

	assert.Equal(t, r.Snapshot(), restored.Snapshot())
	assert.Empty(t, restored.GetDomainEvents())
}
