package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Shrijana18/StockPilot-v1-sub005/internal/domain/inventory"
	"github.com/Shrijana18/StockPilot-v1-sub005/internal/domain/shared"
	"go.uber.org/zap"
)

// isConflict reports whether a transaction failed because another writer won
func isConflict(err error) bool {
	return errors.Is(err, shared.ErrOptimisticLock) || errors.Is(err, shared.ErrConcurrencyConflict)
}

// runInTransaction executes fn in a fresh transaction, restarting the whole
// closure when it loses a write race. fn must re-read everything it mutates;
// nothing from a failed attempt survives into the next one.
func (c *core) runInTransaction(ctx context.Context, op string, fn func(repos TransactionalRepositories) error) error {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		err := c.scope.Execute(ctx, fn)
		if err == nil {
			return nil
		}
		if !isConflict(err) {
			return err
		}
		lastErr = err

		if c.metrics != nil {
			c.metrics.RecordConflictRetry(ctx, op)
		}
		c.logger.Debug("Transaction conflict, retrying",
			zap.String("operation", op),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		if attempt == c.cfg.MaxAttempts {
			break
		}
		if err := sleepContext(ctx, time.Duration(attempt)*c.cfg.RetryBackoff); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return inventory.NewTransientConflictError(op, c.cfg.MaxAttempts, lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
