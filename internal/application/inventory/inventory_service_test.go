package inventory_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	appinv "github.com/Shrijana18/StockPilot-v1-sub005/internal/application/inventory"
	"github.com/Shrijana18/StockPilot-v1-sub005/internal/domain/inventory"
	"github.com/Shrijana18/StockPilot-v1-sub005/internal/domain/shared"
	"github.com/Shrijana18/StockPilot-v1-sub005/internal/infrastructure/persistence/memory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// recordingChangeLogger keeps appended change records, or fails when err is set
type recordingChangeLogger struct {
	mu      sync.Mutex
	records []inventory.ChangeRecord
	err     error
}

func (l *recordingChangeLogger) Append(_ context.Context, records ...inventory.ChangeRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.records = append(l.records, records...)
	return nil
}

func (l *recordingChangeLogger) Records() []inventory.ChangeRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]inventory.ChangeRecord(nil), l.records...)
}

// capturingPublisher keeps published events
type capturingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *capturingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *capturingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, len(p.events))
	for i, e := range p.events {
		types[i] = e.EventType()
	}
	return types
}

// mapStatusCache is a StatusCache over a plain map
type mapStatusCache struct {
	mu          sync.Mutex
	entries     map[string]inventory.StockStatus
	invalidated []string
}

func newMapStatusCache() *mapStatusCache {
	return &mapStatusCache{entries: make(map[string]inventory.StockStatus)}
}

func (c *mapStatusCache) Get(_ context.Context, tenantID uuid.UUID, sku string) (*inventory.StockStatus, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.entries[tenantID.String()+sku]
	if !ok {
		return nil, false, nil
	}
	return &s, true, nil
}

func (c *mapStatusCache) Set(_ context.Context, tenantID uuid.UUID, status inventory.StockStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[tenantID.String()+status.SKU] = status
	return nil
}

func (c *mapStatusCache) Invalidate(_ context.Context, tenantID uuid.UUID, skus ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, sku := range skus {
		delete(c.entries, tenantID.String()+sku)
		c.invalidated = append(c.invalidated, sku)
	}
	return nil
}

// countingScope counts transactions run through the store
type countingScope struct {
	*memory.Store
	executed atomic.Int64
}

func (s *countingScope) Execute(ctx context.Context, fn func(repos appinv.TransactionalRepositories) error) error {
	s.executed.Add(1)
	return s.Store.Execute(ctx, fn)
}

// conflictingScope loses every transaction
type conflictingScope struct{}

func (conflictingScope) Execute(context.Context, func(repos appinv.TransactionalRepositories) error) error {
	return shared.ErrOptimisticLock
}

type fixture struct {
	ctx       context.Context
	tenantID  uuid.UUID
	store     *memory.Store
	scope     *countingScope
	svc       *appinv.InventoryService
	changeLog *recordingChangeLogger
	publisher *capturingPublisher
	cache     *mapStatusCache
}

func newFixture(t *testing.T, opts ...func(*appinv.Dependencies)) *fixture {
	t.Helper()
	store := memory.NewStore()
	f := &fixture{
		ctx:       context.Background(),
		tenantID:  uuid.New(),
		store:     store,
		scope:     &countingScope{Store: store},
		changeLog: &recordingChangeLogger{},
		publisher: &capturingPublisher{},
		cache:     newMapStatusCache(),
	}
	deps := appinv.Dependencies{
		Scope:        f.scope,
		Records:      store.Records(),
		Reservations: store.Reservations(),
		ChangeLogger: f.changeLog,
		Publisher:    f.publisher,
		StatusCache:  f.cache,
		Logger:       zaptest.NewLogger(t),
	}
	for _, opt := range opts {
		opt(&deps)
	}
	svc, err := appinv.NewInventoryService(deps, appinv.Config{
		MaxLookupBatch: 2,
		MaxAttempts:    50,
		RetryBackoff:   time.Millisecond,
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *fixture) seed(t *testing.T, sku string, qty int64) {
	t.Helper()
	_, err := f.svc.UpsertRecord(f.ctx, f.tenantID, sku, decimal.NewFromInt(qty))
	require.NoError(t, err)
}

func (f *fixture) record(t *testing.T, sku string) *inventory.InventoryRecord {
	t.Helper()
	r, err := f.store.Records().FindBySKU(f.ctx, f.tenantID, sku)
	require.NoError(t, err)
	return r
}

func (f *fixture) assertCounts(t *testing.T, sku string, quantity, reserved int64) {
	t.Helper()
	r := f.record(t, sku)
	assert.True(t, r.Quantity().Equal(decimal.NewFromInt(quantity)), "quantity of %s: got %s want %d", sku, r.Quantity(), quantity)
	assert.True(t, r.ReservedQuantity().Equal(decimal.NewFromInt(reserved)), "reserved of %s: got %s want %d", sku, r.ReservedQuantity(), reserved)
}

func items(pairs ...any) []inventory.OrderItem {
	out := make([]inventory.OrderItem, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, inventory.NewOrderItem(pairs[i].(string), int64(pairs[i+1].(int))))
	}
	return out
}

func TestNewInventoryService_RequiresStore(t *testing.T) {
	_, err := appinv.NewInventoryService(appinv.Dependencies{}, appinv.DefaultConfig())
	assert.Error(t, err)
}

func TestScenarios(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "P", 10)

	// A: the whole stock goes to one order, the next one is refused
	res, err := f.svc.Reserve(f.ctx, f.tenantID, "orderA", items("P", 10))
	require.NoError(t, err)
	assert.False(t, res.Replayed)
	assert.Equal(t, inventory.ReservationReserved, res.State)
	f.assertCounts(t, "P", 10, 10)
	assert.True(t, f.record(t, "P").Available().IsZero())

	_, err = f.svc.Reserve(f.ctx, f.tenantID, "orderB", items("P", 1))
	var insufficient *inventory.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.Len(t, insufficient.Items, 1)
	assert.Equal(t, "P", insufficient.Items[0].SKU)
	assert.True(t, insufficient.Items[0].Available.IsZero())

	// B: release restores the pool
	released, err := f.svc.Release(f.ctx, f.tenantID, items("P", 10))
	require.NoError(t, err)
	assert.True(t, released.AllReleased)
	f.assertCounts(t, "P", 10, 0)

	// C: reserve then commit deducts once
	_, err = f.svc.Reserve(f.ctx, f.tenantID, "orderC", items("P", 4))
	require.NoError(t, err)
	committed, err := f.svc.Commit(f.ctx, f.tenantID, "orderC", items("P", 4))
	require.NoError(t, err)
	assert.Nil(t, committed.LogError)
	f.assertCounts(t, "P", 6, 0)

	// D: unknown sku, no writes
	before := f.scope.executed.Load()
	check, err := f.svc.Check(f.ctx, f.tenantID, items("ZZZ", 1))
	require.NoError(t, err)
	assert.False(t, check.OverallAvailable)
	require.Len(t, check.Items, 1)
	assert.Equal(t, inventory.StatusNotFound, check.Items[0].Status)
	assert.Equal(t, before, f.scope.executed.Load())
}

func TestReserve_RaceForLimitedStock(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "P", 10)

	const orders = 8
	var (
		wg           sync.WaitGroup
		succeeded    atomic.Int64
		insufficient atomic.Int64
		unexpected   = make(chan error, orders)
	)
	for range orders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Reserve(f.ctx, f.tenantID, uuid.NewString(), items("P", 3))
			var shortErr *inventory.InsufficientStockError
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.As(err, &shortErr):
				insufficient.Add(1)
			default:
				unexpected <- err
			}
		}()
	}
	wg.Wait()
	close(unexpected)

	for err := range unexpected {
		t.Errorf("unexpected reserve error: %v", err)
	}
	assert.Equal(t, int64(3), succeeded.Load())
	assert.Equal(t, int64(orders-3), insufficient.Load())
	f.assertCounts(t, "P", 10, 9)
}

func TestReserve_DisjointOrdersAllSucceed(t *testing.T) {
	f := newFixture(t)
	skus := []string{"A", "B", "C", "D"}
	for _, sku := range skus {
		f.seed(t, sku, 5)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(skus))
	for i, sku := range skus {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.svc.Reserve(f.ctx, f.tenantID, "order-"+sku, items(sku, 5))
		}()
	}
	wg.Wait()

	for i, sku := range skus {
		require.NoError(t, errs[i])
		f.assertCounts(t, sku, 5, 5)
	}
}

func TestReserve_AllOrNothing(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "A", 5)
	f.seed(t, "B", 1)

	_, err := f.svc.Reserve(f.ctx, f.tenantID, "order-1", items("A", 2, "B", 2))

	var insufficient *inventory.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.Len(t, insufficient.Items, 1)
	assert.Equal(t, "B", insufficient.Items[0].SKU)
	assert.True(t, insufficient.Items[0].Missing().Equal(decimal.NewFromInt(1)))
	f.assertCounts(t, "A", 5, 0)
	f.assertCounts(t, "B", 1, 0)

	_, err = f.svc.GetOrderReservation(f.ctx, f.tenantID, "order-1")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestReserve_UnknownSKU(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "A", 5)

	_, err := f.svc.Reserve(f.ctx, f.tenantID, "order-1", items("A", 1, "ZZZ", 1))

	var notFound *inventory.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, []string{"ZZZ"}, notFound.SKUs)
	f.assertCounts(t, "A", 5, 0)
}

func TestReserve_MergesDuplicateItems(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "A", 5)

	res, err := f.svc.Reserve(f.ctx, f.tenantID, "order-1", items("A", 2, "A", 3))
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	f.assertCounts(t, "A", 5, 5)
}

func TestReserve_ShardedLookup(t *testing.T) {
	f := newFixture(t) // MaxLookupBatch is 2
	skus := []string{"S1", "S2", "S3", "S4", "S5"}
	var req []inventory.OrderItem
	for _, sku := range skus {
		f.seed(t, sku, 3)
		req = append(req, inventory.NewOrderItem(sku, 1))
	}

	_, err := f.svc.Reserve(f.ctx, f.tenantID, "order-1", req)
	require.NoError(t, err)
	for _, sku := range skus {
		f.assertCounts(t, sku, 3, 1)
	}

	check, err := f.svc.Check(f.ctx, f.tenantID, req)
	require.NoError(t, err)
	assert.True(t, check.OverallAvailable)
	assert.Len(t, check.Items, len(skus))
}

func TestReserve_Replay(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "A", 5)

	first, err := f.svc.Reserve(f.ctx, f.tenantID, "order-1", items("A", 2))
	require.NoError(t, err)
	second, err := f.svc.Reserve(f.ctx, f.tenantID, "order-1", items("A", 2))
	require.NoError(t, err)

	assert.True(t, second.Replayed)
	assert.Equal(t, first.Items[0].SKU, second.Items[0].SKU)
	f.assertCounts(t, "A", 5, 2)

	_, err = f.svc.ReleaseOrder(f.ctx, f.tenantID, "order-1")
	require.NoError(t, err)
	_, err = f.svc.Reserve(f.ctx, f.tenantID, "order-1", items("A", 2))
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestReserve_RetryExhaustion(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "A", 5)

	svc, err := appinv.NewInventoryService(appinv.Dependencies{
		Scope:        conflictingScope{},
		Records:      f.store.Records(),
		Reservations: f.store.Reservations(),
		Logger:       zaptest.NewLogger(t),
	}, appinv.Config{MaxAttempts: 3, RetryBackoff: time.Millisecond})
	require.NoError(t, err)

	_, err = svc.Reserve(f.ctx, f.tenantID, "order-1", items("A", 1))

	var transient *inventory.TransientConflictError
	require.ErrorAs(t, err, &transient)
	assert.Equal(t, appinv.OpReserve, transient.Operation)
	assert.Equal(t, 3, transient.Attempts)
	f.assertCounts(t, "A", 5, 0)
}

func TestValidation(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "A", 5)

	tests := []struct {
		name string
		call func() error
	}{
		{"check without items", func() error {
			res, err := f.svc.Check(f.ctx, f.tenantID, nil)
			assert.False(t, res.OverallAvailable)
			assert.Empty(t, res.Items)
			return err
		}},
		{"check with zero quantity", func() error {
			_, err := f.svc.Check(f.ctx, f.tenantID, items("A", 0))
			return err
		}},
		{"check with blank sku", func() error {
			_, err := f.svc.Check(f.ctx, f.tenantID, items("  ", 1))
			return err
		}},
		{"reserve without order id", func() error {
			_, err := f.svc.Reserve(f.ctx, f.tenantID, " ", items("A", 1))
			return err
		}},
		{"reserve without scope", func() error {
			_, err := f.svc.Reserve(f.ctx, uuid.Nil, "order-1", items("A", 1))
			return err
		}},
		{"commit with negative quantity", func() error {
			_, err := f.svc.Commit(f.ctx, f.tenantID, "order-1", items("A", -1))
			return err
		}},
		{"release without items", func() error {
			_, err := f.svc.Release(f.ctx, f.tenantID, nil)
			return err
		}},
		{"upsert with negative quantity", func() error {
			_, err := f.svc.UpsertRecord(f.ctx, f.tenantID, "A", decimal.NewFromInt(-1))
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			var validation *inventory.ValidationError
			assert.ErrorAs(t, err, &validation)
		})
	}
	f.assertCounts(t, "A", 5, 0)
}

func TestCheck_BoundaryAndReadIdempotence(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "A", 5)
	f.seed(t, "B", 5)
	_, err := f.svc.Reserve(f.ctx, f.tenantID, "order-1", items("A", 2))
	require.NoError(t, err)
	versionBefore := f.record(t, "A").Version

	first, err := f.svc.Check(f.ctx, f.tenantID, items("A", 3, "B", 6))
	require.NoError(t, err)
	second, err := f.svc.Check(f.ctx, f.tenantID, items("A", 3, "B", 6))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.False(t, first.OverallAvailable)
	assert.Equal(t, inventory.StatusExact, first.Items[0].Status)
	assert.Equal(t, inventory.StatusInsufficient, first.Items[1].Status)
	assert.Equal(t, []string{"A"}, first.DepletionWarnings())
	assert.Equal(t, versionBefore, f.record(t, "A").Version)

	// exactly the available amount succeeds, one more fails and changes nothing
	_, err = f.svc.Reserve(f.ctx, f.tenantID, "order-2", items("B", 6))
	assert.ErrorIs(t, err, shared.ErrInsufficientStock)
	f.assertCounts(t, "B", 5, 0)

	_, err = f.svc.Reserve(f.ctx, f.tenantID, "order-3", items("A", 3))
	require.NoError(t, err)
	f.assertCounts(t, "A", 5, 5)
}

func TestRelease(t *testing.T) {
	t.Run("round trip restores reserved quantity", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, "A", 5)
		f.seed(t, "B", 5)
		_, err := f.svc.Reserve(f.ctx, f.tenantID, "order-0", items("A", 1))
		require.NoError(t, err)

		_, err = f.svc.Reserve(f.ctx, f.tenantID, "order-1", items("A", 2, "B", 3))
		require.NoError(t, err)
		_, err = f.svc.Release(f.ctx, f.tenantID, items("A", 2, "B", 3))
		require.NoError(t, err)

		f.assertCounts(t, "A", 5, 1)
		f.assertCounts(t, "B", 5, 0)
	})

	t.Run("reports each item and never blocks the others", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, "A", 5)
		f.seed(t, "B", 5)
		_, err := f.svc.Reserve(f.ctx, f.tenantID, "order-1", items("A", 2, "B", 1))
		require.NoError(t, err)

		res, err := f.svc.Release(f.ctx, f.tenantID, items("A", 2, "ZZZ", 1, "B", 4))
		require.NoError(t, err)

		assert.False(t, res.AllReleased)
		require.Len(t, res.Items, 3)
		assert.Equal(t, appinv.ReleaseOutcomeReleased, res.Items[0].Outcome)
		assert.Equal(t, appinv.ReleaseOutcomeNotFound, res.Items[1].Outcome)
		assert.NotEmpty(t, res.Items[1].Error)
		assert.Equal(t, appinv.ReleaseOutcomeReleased, res.Items[2].Outcome)
		// clamped at what was reserved
		assert.True(t, res.Items[2].Released.Equal(decimal.NewFromInt(1)))
		f.assertCounts(t, "A", 5, 0)
		f.assertCounts(t, "B", 5, 0)
	})

	t.Run("reports a failed item", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, "A", 5)
		_, err := f.svc.Reserve(f.ctx, f.tenantID, "order-1", items("A", 2))
		require.NoError(t, err)

		svc, err := appinv.NewInventoryService(appinv.Dependencies{
			Scope:        conflictingScope{},
			Records:      f.store.Records(),
			Reservations: f.store.Reservations(),
		}, appinv.Config{MaxAttempts: 2})
		require.NoError(t, err)

		res, err := svc.Release(f.ctx, f.tenantID, items("A", 2))
		require.NoError(t, err)
		assert.False(t, res.AllReleased)
		assert.Equal(t, appinv.ReleaseOutcomeFailed, res.Items[0].Outcome)
		assert.Contains(t, res.Items[0].Error, "gave up after 2 attempts")
		f.assertCounts(t, "A", 5, 2)
	})
}

func TestReleaseOrder(t *testing.T) {
	t.Run("releases what the ledger holds once", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, "A", 5)
		f.seed(t, "B", 5)
		_, err := f.svc.Reserve(f.ctx, f.tenantID, "order-1", items("A", 2, "B", 3))
		require.NoError(t, err)

		res, err := f.svc.ReleaseOrder(f.ctx, f.tenantID, "order-1")
		require.NoError(t, err)
		assert.False(t, res.Replayed)
		assert.True(t, res.AllReleased)
		assert.Len(t, res.Items, 2)
		f.assertCounts(t, "A", 5, 0)
		f.assertCounts(t, "B", 5, 0)

		again, err := f.svc.ReleaseOrder(f.ctx, f.tenantID, "order-1")
		require.NoError(t, err)
		assert.True(t, again.Replayed)
		f.assertCounts(t, "A", 5, 0)

		view, err := f.svc.GetOrderReservation(f.ctx, f.tenantID, "order-1")
		require.NoError(t, err)
		assert.Equal(t, inventory.ReservationReleased, view.State)
	})

	t.Run("unknown order", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.ReleaseOrder(f.ctx, f.tenantID, "nope")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("committed order cannot be released", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, "A", 5)
		_, err := f.svc.Reserve(f.ctx, f.tenantID, "order-1", items("A", 2))
		require.NoError(t, err)
		_, err = f.svc.Commit(f.ctx, f.tenantID, "order-1", items("A", 2))
		require.NoError(t, err)

		_, err = f.svc.ReleaseOrder(f.ctx, f.tenantID, "order-1")
		assert.ErrorIs(t, err, shared.ErrInvalidState)
		f.assertCounts(t, "A", 3, 0)
	})

	t.Run("released order cannot be committed", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, "A", 5)
		_, err := f.svc.Reserve(f.ctx, f.tenantID, "order-1", items("A", 2))
		require.NoError(t, err)
		_, err = f.svc.ReleaseOrder(f.ctx, f.tenantID, "order-1")
		require.NoError(t, err)

		_, err = f.svc.Commit(f.ctx, f.tenantID, "order-1", items("A", 2))
		assert.ErrorIs(t, err, shared.ErrInvalidState)
		f.assertCounts(t, "A", 5, 0)
	})

	t.Run("racing release and commit of one order apply exactly one", func(t *testing.T) {
		for range 10 {
			f := newFixture(t)
			f.seed(t, "A", 5)
			_, err := f.svc.Reserve(f.ctx, f.tenantID, "order-1", items("A", 2))
			require.NoError(t, err)

			var wg sync.WaitGroup
			var releaseErr, commitErr error
			wg.Add(2)
			go func() {
				defer wg.Done()
				_, releaseErr = f.svc.ReleaseOrder(f.ctx, f.tenantID, "order-1")
			}()
			go func() {
				defer wg.Done()
				_, commitErr = f.svc.Commit(f.ctx, f.tenantID, "order-1", items("A", 2))
			}()
			wg.Wait()

			if commitErr == nil {
				assert.ErrorIs(t, releaseErr, shared.ErrInvalidState)
				f.assertCounts(t, "A", 3, 0)
			} else {
				require.NoError(t, releaseErr)
				assert.ErrorIs(t, commitErr, shared.ErrInvalidState)
				f.assertCounts(t, "A", 5, 0)
			}
		}
	})
}

func TestCommit(t *testing.T) {
	t.Run("deducts the reservation without double counting", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, "A", 10)
		f.seed(t, "B", 4)
		_, err := f.svc.Reserve(f.ctx, f.tenantID, "order-1", items("A", 3, "B", 4))
		require.NoError(t, err)

		res, err := f.svc.Commit(f.ctx, f.tenantID, "order-1", items("A", 3, "B", 4))
		require.NoError(t, err)

		f.assertCounts(t, "A", 7, 0)
		f.assertCounts(t, "B", 0, 0)
		require.Len(t, res.Items, 2)
		assert.True(t, res.Items[0].PreviousQuantity.Equal(decimal.NewFromInt(10)))
		assert.True(t, res.Items[0].NewQuantity.Equal(decimal.NewFromInt(7)))
		assert.True(t, res.Items[0].PreviousReserved.Equal(decimal.NewFromInt(3)))
		assert.True(t, res.Items[0].NewReserved.IsZero())

		r := f.record(t, "A")
		assert.Equal(t, "order-1", r.LastDeductedBy())
		assert.NotNil(t, r.LastDeductedAt())
	})

	t.Run("writes one change record per line", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, "A", 10)
		_, err := f.svc.Commit(f.ctx, f.tenantID, "order-1", items("A", 3))
		require.NoError(t, err)

		records := f.changeLog.Records()
		require.Len(t, records, 1)
		assert.Equal(t, f.tenantID, records[0].ScopeID)
		assert.Equal(t, "A", records[0].SKU)
		assert.Equal(t, "order-1", records[0].OrderID)
		assert.Equal(t, inventory.ActionDeducted, records[0].Action)
		assert.Equal(t, inventory.SourceOrderAcceptance, records[0].Source)
		assert.True(t, records[0].PreviousQuantity.Equal(decimal.NewFromInt(10)))
		assert.True(t, records[0].NewQuantity.Equal(decimal.NewFromInt(7)))
	})

	t.Run("an order that never reserved does not take other holds", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, "A", 10)
		_, err := f.svc.Reserve(f.ctx, f.tenantID, "holder", items("A", 8))
		require.NoError(t, err)

		_, err = f.svc.Commit(f.ctx, f.tenantID, "walk-in", items("A", 3))
		var insufficient *inventory.InsufficientStockError
		require.ErrorAs(t, err, &insufficient)
		assert.True(t, insufficient.Items[0].Available.Equal(decimal.NewFromInt(2)))
		f.assertCounts(t, "A", 10, 8)

		_, err = f.svc.Commit(f.ctx, f.tenantID, "walk-in", items("A", 2))
		require.NoError(t, err)
		f.assertCounts(t, "A", 8, 8)
	})

	t.Run("settles the order's hold", func(t *testing.T) {
		type counts struct{ quantity, reserved int64 }
		cases := []struct {
			name    string
			reserve []inventory.OrderItem
			commits [][]inventory.OrderItem
			want    map[string]counts
			// releaseErr is checked when ReleaseOrder runs after the commits
			releaseErr error
		}{
			{
				name:       "under-commit returns the remainder",
				reserve:    items("A", 4),
				commits:    [][]inventory.OrderItem{items("A", 3)},
				want:       map[string]counts{"A": {7, 0}, "B": {10, 0}},
				releaseErr: shared.ErrInvalidState,
			},
			{
				name:       "over-commit takes the excess from availability",
				reserve:    items("A", 2),
				commits:    [][]inventory.OrderItem{items("A", 5)},
				want:       map[string]counts{"A": {5, 0}, "B": {10, 0}},
				releaseErr: shared.ErrInvalidState,
			},
			{
				name:       "split commit deducts each sku once",
				reserve:    items("A", 2, "B", 3),
				commits:    [][]inventory.OrderItem{items("A", 2), items("B", 3)},
				want:       map[string]counts{"A": {8, 0}, "B": {7, 0}},
				releaseErr: shared.ErrInvalidState,
			},
			{
				name:    "partial commit leaves the rest releasable",
				reserve: items("A", 2, "B", 3),
				commits: [][]inventory.OrderItem{items("A", 1)},
				want:    map[string]counts{"A": {9, 0}, "B": {10, 0}},
			},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				f := newFixture(t)
				f.seed(t, "A", 10)
				f.seed(t, "B", 10)
				_, err := f.svc.Reserve(f.ctx, f.tenantID, "order-1", tc.reserve)
				require.NoError(t, err)

				for _, commit := range tc.commits {
					res, err := f.svc.Commit(f.ctx, f.tenantID, "order-1", commit)
					require.NoError(t, err)
					assert.False(t, res.Replayed)
					require.Len(t, res.Items, len(commit))
				}

				_, err = f.svc.ReleaseOrder(f.ctx, f.tenantID, "order-1")
				if tc.releaseErr != nil {
					assert.ErrorIs(t, err, tc.releaseErr)
				} else {
					require.NoError(t, err)
				}
				for sku, c := range tc.want {
					f.assertCounts(t, sku, c.quantity, c.reserved)
				}
			})
		}
	})

	t.Run("ledger records the committed quantity", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, "A", 10)
		_, err := f.svc.Reserve(f.ctx, f.tenantID, "order-1", items("A", 4))
		require.NoError(t, err)
		_, err = f.svc.Commit(f.ctx, f.tenantID, "order-1", items("A", 3))
		require.NoError(t, err)

		again, err := f.svc.Commit(f.ctx, f.tenantID, "order-1", items("A", 3))
		require.NoError(t, err)
		assert.True(t, again.Replayed)
		require.Len(t, again.Items, 1)
		assert.True(t, again.Items[0].Quantity.Equal(decimal.NewFromInt(3)))
		f.assertCounts(t, "A", 7, 0)
	})

	t.Run("replays only the requested skus", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, "A", 10)
		f.seed(t, "B", 10)
		_, err := f.svc.Reserve(f.ctx, f.tenantID, "order-1", items("A", 2, "B", 3))
		require.NoError(t, err)
		_, err = f.svc.Commit(f.ctx, f.tenantID, "order-1", items("A", 2))
		require.NoError(t, err)
		_, err = f.svc.Commit(f.ctx, f.tenantID, "order-1", items("B", 3))
		require.NoError(t, err)

		again, err := f.svc.Commit(f.ctx, f.tenantID, "order-1", items("B", 3))
		require.NoError(t, err)
		assert.True(t, again.Replayed)
		require.Len(t, again.Items, 1)
		assert.Equal(t, "B", again.Items[0].SKU)
		f.assertCounts(t, "B", 7, 0)
		assert.Len(t, f.changeLog.Records(), 2)
	})

	t.Run("refuses a commit mixing committed and pending skus", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, "A", 10)
		f.seed(t, "B", 10)
		_, err := f.svc.Reserve(f.ctx, f.tenantID, "order-1", items("A", 2, "B", 3))
		require.NoError(t, err)
		_, err = f.svc.Commit(f.ctx, f.tenantID, "order-1", items("A", 2))
		require.NoError(t, err)

		_, err = f.svc.Commit(f.ctx, f.tenantID, "order-1", items("A", 2, "B", 3))
		assert.ErrorIs(t, err, shared.ErrInvalidState)
		assert.Contains(t, err.Error(), "already committed A")
		f.assertCounts(t, "A", 8, 0)
		f.assertCounts(t, "B", 10, 3)
	})

	t.Run("refuses a sku the order released", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, "A", 10)
		f.seed(t, "B", 10)
		_, err := f.svc.Reserve(f.ctx, f.tenantID, "order-1", items("A", 2, "B", 3))
		require.NoError(t, err)
		_, err = f.svc.Commit(f.ctx, f.tenantID, "order-1", items("A", 2))
		require.NoError(t, err)
		_, err = f.svc.ReleaseOrder(f.ctx, f.tenantID, "order-1")
		require.NoError(t, err)

		_, err = f.svc.Commit(f.ctx, f.tenantID, "order-1", items("B", 3))
		assert.ErrorIs(t, err, shared.ErrInvalidState)
		f.assertCounts(t, "B", 10, 0)
	})

	t.Run("is replayed for an order already committed", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, "A", 10)
		_, err := f.svc.Reserve(f.ctx, f.tenantID, "order-1", items("A", 3))
		require.NoError(t, err)
		_, err = f.svc.Commit(f.ctx, f.tenantID, "order-1", items("A", 3))
		require.NoError(t, err)

		again, err := f.svc.Commit(f.ctx, f.tenantID, "order-1", items("A", 3))
		require.NoError(t, err)
		assert.True(t, again.Replayed)
		require.Len(t, again.Items, 1)
		assert.True(t, again.Items[0].Quantity.Equal(decimal.NewFromInt(3)))
		f.assertCounts(t, "A", 7, 0)
		assert.Len(t, f.changeLog.Records(), 1)
	})

	t.Run("keeps uncommitted holds of the order releasable", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, "A", 10)
		f.seed(t, "B", 10)
		_, err := f.svc.Reserve(f.ctx, f.tenantID, "order-1", items("A", 2, "B", 3))
		require.NoError(t, err)

		_, err = f.svc.Commit(f.ctx, f.tenantID, "order-1", items("A", 2))
		require.NoError(t, err)

		view, err := f.svc.GetOrderReservation(f.ctx, f.tenantID, "order-1")
		require.NoError(t, err)
		assert.Equal(t, inventory.ReservationReserved, view.State)

		res, err := f.svc.ReleaseOrder(f.ctx, f.tenantID, "order-1")
		require.NoError(t, err)
		require.Len(t, res.Items, 1)
		assert.Equal(t, "B", res.Items[0].SKU)
		f.assertCounts(t, "A", 8, 0)
		f.assertCounts(t, "B", 10, 0)

		view, err = f.svc.GetOrderReservation(f.ctx, f.tenantID, "order-1")
		require.NoError(t, err)
		assert.Equal(t, inventory.ReservationCommitted, view.State)
	})

	t.Run("a change log failure does not undo the deduction", func(t *testing.T) {
		f := newFixture(t)
		f.changeLog.err = errors.New("audit store down")
		f.seed(t, "A", 10)

		res, err := f.svc.Commit(f.ctx, f.tenantID, "order-1", items("A", 4))
		require.NoError(t, err)
		require.NotNil(t, res.LogError)
		assert.Equal(t, "order-1", res.LogError.OrderID)
		assert.Contains(t, res.LogError.Error(), "audit store down")
		f.assertCounts(t, "A", 6, 0)
	})

	t.Run("insufficient stock aborts every line", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, "A", 10)
		f.seed(t, "B", 1)

		_, err := f.svc.Commit(f.ctx, f.tenantID, "order-1", items("A", 4, "B", 2))
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)
		f.assertCounts(t, "A", 10, 0)
		f.assertCounts(t, "B", 1, 0)
		assert.Empty(t, f.changeLog.Records())
	})
}

func TestStockStatusAndCatalog(t *testing.T) {
	f := newFixture(t)

	status, err := f.svc.GetStockStatus(f.ctx, f.tenantID, "A")
	require.NoError(t, err)
	assert.Equal(t, inventory.StatusNotFound, status.Status)

	created, err := f.svc.UpsertRecord(f.ctx, f.tenantID, "A", decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.Equal(t, inventory.StatusExact, created.Status)

	status, err = f.svc.GetStockStatus(f.ctx, f.tenantID, "A")
	require.NoError(t, err)
	assert.Equal(t, inventory.StatusExact, status.Status)
	cached, ok, err := f.cache.Get(f.ctx, f.tenantID, "A")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, status, *cached)

	_, err = f.svc.Reserve(f.ctx, f.tenantID, "order-1", items("A", 1))
	require.NoError(t, err)
	_, ok, _ = f.cache.Get(f.ctx, f.tenantID, "A")
	assert.False(t, ok, "reserve must drop the cached status")

	status, err = f.svc.GetStockStatus(f.ctx, f.tenantID, "A")
	require.NoError(t, err)
	assert.Equal(t, inventory.StatusInsufficient, status.Status)

	_, err = f.svc.UpsertRecord(f.ctx, f.tenantID, "A", decimal.Zero)
	var validation *inventory.ValidationError
	require.ErrorAs(t, err, &validation)

	updated, err := f.svc.UpsertRecord(f.ctx, f.tenantID, "A", decimal.NewFromInt(6))
	require.NoError(t, err)
	assert.Equal(t, inventory.StatusAvailable, updated.Status)
	assert.True(t, updated.Available.Equal(decimal.NewFromInt(5)))
	f.assertCounts(t, "A", 6, 1)
}

// racingRecords runs afterFind once, right after the next FindBySKU read
type racingRecords struct {
	inventory.InventoryRecordRepository
	mu        sync.Mutex
	afterFind func()
}

func (r *racingRecords) FindBySKU(ctx context.Context, tenantID uuid.UUID, sku string) (*inventory.InventoryRecord, error) {
	record, err := r.InventoryRecordRepository.FindBySKU(ctx, tenantID, sku)
	r.mu.Lock()
	hook := r.afterFind
	r.afterFind = nil
	r.mu.Unlock()
	if hook != nil {
		hook()
	}
	return record, err
}

func TestGetStockStatus_WriteDuringReadThrough(t *testing.T) {
	records := &racingRecords{}
	f := newFixture(t, func(deps *appinv.Dependencies) {
		records.InventoryRecordRepository = deps.Records
		deps.Records = records
	})
	f.seed(t, "A", 1)

	records.mu.Lock()
	records.afterFind = func() {
		_, err := f.svc.Reserve(f.ctx, f.tenantID, "order-1", items("A", 1))
		require.NoError(t, err)
	}
	records.mu.Unlock()

	stale, err := f.svc.GetStockStatus(f.ctx, f.tenantID, "A")
	require.NoError(t, err)
	assert.Equal(t, inventory.StatusExact, stale.Status)

	_, ok, err := f.cache.Get(f.ctx, f.tenantID, "A")
	require.NoError(t, err)
	assert.False(t, ok, "a status read before the reservation must not stay cached")

	fresh, err := f.svc.GetStockStatus(f.ctx, f.tenantID, "A")
	require.NoError(t, err)
	assert.Equal(t, inventory.StatusInsufficient, fresh.Status)
	cached, ok, err := f.cache.Get(f.ctx, f.tenantID, "A")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, inventory.StatusInsufficient, cached.Status)
}

func TestEventsPublishedAfterCommit(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "A", 2)

	_, err := f.svc.Reserve(f.ctx, f.tenantID, "order-1", items("A", 2))
	require.NoError(t, err)
	_, err = f.svc.Commit(f.ctx, f.tenantID, "order-1", items("A", 2))
	require.NoError(t, err)

	assert.Equal(t, []string{
		inventory.EventTypeStockReserved,
		inventory.EventTypeStockDepleted,
		inventory.EventTypeStockDeducted,
		inventory.EventTypeStockDepleted,
	}, f.publisher.Types())
}
