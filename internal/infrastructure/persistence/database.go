package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Shrijana18/StockPilot-v1-sub005/internal/infrastructure/config"
	"github.com/Shrijana18/StockPilot-v1-sub005/internal/infrastructure/persistence/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const connectTimeout = 5 * time.Second

// Database is an open GORM connection and its pool
type Database struct {
	DB   *gorm.DB
	pool *sql.DB
}

// NewDatabase opens the configured SQL store with GORM logging silenced
func NewDatabase(cfg *config.DatabaseConfig) (*Database, error) {
	return NewDatabaseWithLogger(cfg, logger.Default.LogMode(logger.Silent))
}

// NewDatabaseWithLogger opens the configured SQL store, sizes its pool and
// verifies the connection.
func NewDatabaseWithLogger(cfg *config.DatabaseConfig, gormLogger logger.Interface) (*Database, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DriverPostgres, "":
		dialector = postgres.Open(cfg.DSN())
	case config.DriverSQLite:
		dialector = sqlite.Open(cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		TranslateError:         true,
		DisableAutomaticPing:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}
	db, err := wrap(gormDB)
	if err != nil {
		return nil, err
	}

	// each connection to an in-memory sqlite database sees its own schema
	if cfg.Driver == config.DriverSQLite && cfg.Path == ":memory:" {
		db.pool.SetMaxOpenConns(1)
	} else {
		db.pool.SetMaxOpenConns(cfg.MaxOpenConns)
		db.pool.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.pool.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	db.pool.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := db.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s database: %w", cfg.Driver, err)
	}
	return db, nil
}

func wrap(gormDB *gorm.DB) (*Database, error) {
	pool, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("connection pool: %w", err)
	}
	return &Database{DB: gormDB, pool: pool}, nil
}

// AutoMigrate creates or updates the inventory tables. Postgres deployments
// normally run the SQL migrations instead.
func (d *Database) AutoMigrate() error {
	if err := d.DB.AutoMigrate(models.AllModels()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// Ping checks the connection
func (d *Database) Ping(ctx context.Context) error {
	return d.pool.PingContext(ctx)
}

// Stats reports connection pool usage
func (d *Database) Stats() sql.DBStats {
	return d.pool.Stats()
}

// Close closes the pool
func (d *Database) Close() error {
	return d.pool.Close()
}
