package inventory

import (
	"context"
	"fmt"

	"github.com/Shrijana18/StockPilot-v1-sub005/internal/domain/inventory"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// chunk splits values into slices of at most size elements
func chunk[T any](values []T, size int) [][]T {
	if size < 1 {
		size = 1
	}
	out := make([][]T, 0, (len(values)+size-1)/size)
	for start := 0; start < len(values); start += size {
		end := min(start+size, len(values))
		out = append(out, values[start:end])
	}
	return out
}

// resolve maps skus to their records. Lookups are sharded under the store's
// predicate cap and run in parallel; any failed shard fails the whole resolve.
// Missing skus are absent from the map.
func (c *core) resolve(ctx context.Context, tenantID uuid.UUID, skus []string) (map[string]*inventory.InventoryRecord, error) {
	shards := chunk(skus, c.cfg.MaxLookupBatch)
	results := make([][]*inventory.InventoryRecord, len(shards))

	g, gctx := errgroup.WithContext(ctx)
	for i, shard := range shards {
		g.Go(func() error {
			records, err := c.records.FindBySKUs(gctx, tenantID, shard)
			if err != nil {
				return fmt.Errorf("lookup shard %d of %d: %w", i+1, len(shards), err)
			}
			results[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return mergeShards(results, len(skus)), nil
}

// resolveTolerant is resolve for best-effort callers: a failed shard marks only
// its own skus as failed.
func (c *core) resolveTolerant(ctx context.Context, tenantID uuid.UUID, skus []string) (map[string]*inventory.InventoryRecord, map[string]error) {
	shards := chunk(skus, c.cfg.MaxLookupBatch)
	results := make([][]*inventory.InventoryRecord, len(shards))
	errs := make([]error, len(shards))

	var g errgroup.Group
	for i, shard := range shards {
		g.Go(func() error {
			results[i], errs[i] = c.records.FindBySKUs(ctx, tenantID, shard)
			return nil
		})
	}
	_ = g.Wait()

	failed := make(map[string]error)
	for i, err := range errs {
		if err == nil {
			continue
		}
		for _, sku := range shards[i] {
			failed[sku] = fmt.Errorf("lookup failed: %w", err)
		}
	}
	return mergeShards(results, len(skus)), failed
}

func mergeShards(results [][]*inventory.InventoryRecord, size int) map[string]*inventory.InventoryRecord {
	merged := make(map[string]*inventory.InventoryRecord, size)
	for _, records := range results {
		for _, r := range records {
			merged[r.SKU] = r
		}
	}
	return merged
}

// loadByIDs re-reads resolved records inside a transaction. Reads are chunked
// the same way as the resolve phase but run sequentially on the transaction.
func (c *core) loadByIDs(ctx context.Context, repo inventory.InventoryRecordRepository, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]*inventory.InventoryRecord, error) {
	loaded := make(map[uuid.UUID]*inventory.InventoryRecord, len(ids))
	for _, part := range chunk(ids, c.cfg.MaxLookupBatch) {
		records, err := repo.FindByIDs(ctx, tenantID, part)
		if err != nil {
			return nil, err
		}
		for _, r := range records {
			loaded[r.ID] = r
		}
	}
	return loaded, nil
}

// loadBySKUs reads records by sku inside a transaction, chunked sequentially
func (c *core) loadBySKUs(ctx context.Context, repo inventory.InventoryRecordRepository, tenantID uuid.UUID, skus []string) (map[string]*inventory.InventoryRecord, error) {
	loaded := make(map[string]*inventory.InventoryRecord, len(skus))
	for _, part := range chunk(skus, c.cfg.MaxLookupBatch) {
		records, err := repo.FindBySKUs(ctx, tenantID, part)
		if err != nil {
			return nil, err
		}
		for _, r := range records {
			loaded[r.SKU] = r
		}
	}
	return loaded, nil
}
