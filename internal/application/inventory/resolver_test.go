package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Shrijana18/StockPilot-v1-sub005/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRecordRepository is a mock implementation of InventoryRecordRepository
type MockRecordRepository struct {
	mock.Mock
	mu sync.Mutex
}

func (m *MockRecordRepository) FindBySKU(ctx context.Context, tenantID uuid.UUID, sku string) (*inventory.InventoryRecord, error) {
	args := m.Called(ctx, tenantID, sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.InventoryRecord), args.Error(1)
}

func (m *MockRecordRepository) FindBySKUs(ctx context.Context, tenantID uuid.UUID, skus []string) ([]*inventory.InventoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	args := m.Called(ctx, tenantID, skus)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*inventory.InventoryRecord), args.Error(1)
}

func (m *MockRecordRepository) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*inventory.InventoryRecord, error) {
	args := m.Called(ctx, tenantID, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*inventory.InventoryRecord), args.Error(1)
}

func (m *MockRecordRepository) Create(ctx context.Context, record *inventory.InventoryRecord) error {
	return m.Called(ctx, record).Error(0)
}

func (m *MockRecordRepository) SaveWithLock(ctx context.Context, record *inventory.InventoryRecord) error {
	return m.Called(ctx, record).Error(0)
}

func newTestRecord(t *testing.T, tenantID uuid.UUID, sku string, qty int64) *inventory.InventoryRecord {
	t.Helper()
	r, err := inventory.NewInventoryRecord(tenantID, sku, decimal.NewFromInt(qty))
	require.NoError(t, err)
	return r
}

func TestChunk(t *testing.T) {
	tests := []struct {
		name   string
		values []int
		size   int
		want   [][]int
	}{
		{name: "empty", values: nil, size: 3, want: [][]int{}},
		{name: "exact multiple", values: []int{1, 2, 3, 4}, size: 2, want: [][]int{{1, 2}, {3, 4}}},
		{name: "remainder", values: []int{1, 2, 3, 4, 5}, size: 2, want: [][]int{{1, 2}, {3, 4}, {5}}},
		{name: "size larger than input", values: []int{1, 2}, size: 30, want: [][]int{{1, 2}}},
		{name: "non-positive size", values: []int{1, 2}, size: 0, want: [][]int{{1}, {2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, chunk(tt.values, tt.size))
		})
	}
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	a := newTestRecord(t, tenantID, "A", 1)
	b := newTestRecord(t, tenantID, "B", 1)
	c := newTestRecord(t, tenantID, "C", 1)

	t.Run("shards lookups under the batch cap and merges them", func(t *testing.T) {
		repo := new(MockRecordRepository)
		repo.On("FindBySKUs", mock.Anything, tenantID, []string{"A", "B"}).Return([]*inventory.InventoryRecord{a, b}, nil).Once()
		repo.On("FindBySKUs", mock.Anything, tenantID, []string{"C", "D"}).Return([]*inventory.InventoryRecord{c}, nil).Once()
		repo.On("FindBySKUs", mock.Anything, tenantID, []string{"E"}).Return([]*inventory.InventoryRecord{}, nil).Once()

		core := &core{records: repo, cfg: Config{MaxLookupBatch: 2}.withDefaults()}
		resolved, err := core.resolve(ctx, tenantID, []string{"A", "B", "C", "D", "E"})

		require.NoError(t, err)
		assert.Len(t, resolved, 3)
		assert.Same(t, c, resolved["C"])
		assert.NotContains(t, resolved, "D")
		repo.AssertExpectations(t)
	})

	t.Run("fails when any shard fails", func(t *testing.T) {
		repo := new(MockRecordRepository)
		repo.On("FindBySKUs", mock.Anything, tenantID, []string{"A", "B"}).Return([]*inventory.InventoryRecord{a, b}, nil).Maybe()
		repo.On("FindBySKUs", mock.Anything, tenantID, []string{"C"}).Return(nil, errors.New("connection reset"))

		core := &core{records: repo, cfg: Config{MaxLookupBatch: 2}.withDefaults()}
		resolved, err := core.resolve(ctx, tenantID, []string{"A", "B", "C"})

		require.Error(t, err)
		assert.Nil(t, resolved)
		assert.Contains(t, err.Error(), "connection reset")
	})

	t.Run("tolerant resolve marks only the failed shard", func(t *testing.T) {
		repo := new(MockRecordRepository)
		repo.On("FindBySKUs", mock.Anything, tenantID, []string{"A", "B"}).Return([]*inventory.InventoryRecord{a, b}, nil)
		repo.On("FindBySKUs", mock.Anything, tenantID, []string{"C"}).Return(nil, errors.New("connection reset"))

		core := &core{records: repo, cfg: Config{MaxLookupBatch: 2}.withDefaults()}
		resolved, failed := core.resolveTolerant(ctx, tenantID, []string{"A", "B", "C"})

		assert.Len(t, resolved, 2)
		require.Len(t, failed, 1)
		assert.Contains(t, failed["C"].Error(), "connection reset")
	})
}
