package persistence

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Shrijana18/StockPilot-v1-sub005/internal/domain/shared"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// PostgreSQL error codes that mean "another writer got there first"
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"
)

// translateError maps store-level contention errors to shared.ErrConcurrencyConflict
// so the application retry loop can recognise them. Other errors pass through.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, shared.ErrConcurrencyConflict) || errors.Is(err, shared.ErrOptimisticLock) {
		return err
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", shared.ErrConcurrencyConflict, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected, pgUniqueViolation:
			return fmt.Errorf("%w: %s (%s)", shared.ErrConcurrencyConflict, pgErr.Message, pgErr.Code)
		}
		return err
	}

	// sqlite reports lock contention and unique violations only as text
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "database is locked") {
		return fmt.Errorf("%w: %v", shared.ErrConcurrencyConflict, err)
	}
	return err
}

// IsConflict reports whether err is a retryable write conflict
func IsConflict(err error) bool {
	return errors.Is(translateError(err), shared.ErrConcurrencyConflict) || errors.Is(err, shared.ErrOptimisticLock)
}
