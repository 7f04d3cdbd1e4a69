package persistence

import (
	"context"
	"database/sql"

	appinv "github.com/Shrijana18/StockPilot-v1-sub005/internal/application/inventory"
	"github.com/Shrijana18/StockPilot-v1-sub005/internal/domain/inventory"
	"gorm.io/gorm"
)

// GormTransactionScope runs inventory closures in one GORM transaction
type GormTransactionScope struct {
	db     *gorm.DB
	txOpts *sql.TxOptions
}

// ScopeOption configures a GormTransactionScope
type ScopeOption func(*GormTransactionScope)

// WithIsolation begins every transaction at level. Postgres reports lost
// races at repeatable read and above as SQLSTATE 40001.
func WithIsolation(level sql.IsolationLevel) ScopeOption {
	return func(s *GormTransactionScope) {
		s.txOpts = &sql.TxOptions{Isolation: level}
	}
}

// NewGormTransactionScope creates a scope over db
func NewGormTransactionScope(db *gorm.DB, opts ...ScopeOption) *GormTransactionScope {
	s := &GormTransactionScope{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Execute commits when fn returns nil and rolls back otherwise. Conflicts
// raised by fn or at commit come back as shared.ErrConcurrencyConflict or
// shared.ErrOptimisticLock.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appinv.TransactionalRepositories) error) error {
	var txOpts []*sql.TxOptions
	if s.txOpts != nil {
		txOpts = append(txOpts, s.txOpts)
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(txRepos{tx: tx})
	}, txOpts...)
	return translateError(err)
}

type txRepos struct {
	tx *gorm.DB
}

func (r txRepos) RecordRepo() inventory.InventoryRecordRepository {
	return NewGormInventoryRecordRepository(r.tx)
}

func (r txRepos) ReservationRepo() inventory.OrderReservationRepository {
	return NewGormOrderReservationRepository(r.tx)
}

var (
	_ appinv.TransactionScope          = (*GormTransactionScope)(nil)
	_ appinv.TransactionalRepositories = txRepos{}
)
