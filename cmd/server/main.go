package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appinv "github.com/Shrijana18/StockPilot-v1-sub005/internal/application/inventory"
	"github.com/Shrijana18/StockPilot-v1-sub005/internal/infrastructure/cache"
	"github.com/Shrijana18/StockPilot-v1-sub005/internal/infrastructure/changelog"
	"github.com/Shrijana18/StockPilot-v1-sub005/internal/infrastructure/config"
	"github.com/Shrijana18/StockPilot-v1-sub005/internal/infrastructure/event"
	"github.com/Shrijana18/StockPilot-v1-sub005/internal/infrastructure/logger"
	"github.com/Shrijana18/StockPilot-v1-sub005/internal/infrastructure/persistence"
	"github.com/Shrijana18/StockPilot-v1-sub005/internal/infrastructure/persistence/memory"
	"github.com/Shrijana18/StockPilot-v1-sub005/internal/infrastructure/telemetry"
	"github.com/Shrijana18/StockPilot-v1-sub005/internal/interfaces/http/handler"
	"github.com/Shrijana18/StockPilot-v1-sub005/internal/interfaces/http/router"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
)

// shutdownTimeout bounds graceful shutdown when the config leaves it unset
const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	baseLog, err := logger.New(&logger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  cfg.Log.Output,
		Service: cfg.App.Name,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(baseLog)
	}()

	ctx := context.Background()

	providers, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:         cfg.Telemetry.Enabled,
		Endpoint:        cfg.Telemetry.CollectorEndpoint,
		Insecure:        cfg.Telemetry.Insecure,
		ServiceName:     cfg.Telemetry.ServiceName,
		SamplingRatio:   cfg.Telemetry.SamplingRatio,
		MetricsInterval: cfg.Telemetry.MetricsInterval,
		ExportLogs:      cfg.Telemetry.LogsEnabled,
	}, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	log := providers.Bridge(baseLog, zapcore.InfoLevel)

	profiler, err := telemetry.StartProfiler(telemetry.ProfilingConfig{
		Endpoint:             cfg.Telemetry.ProfilingEndpoint,
		ApplicationName:      cfg.Telemetry.ServiceName,
		BasicAuthUser:        cfg.Telemetry.ProfilingAuthUser,
		BasicAuthPassword:    cfg.Telemetry.ProfilingAuthPassword,
		MutexProfileFraction: cfg.Telemetry.ProfilingMutexFraction,
		BlockProfileRate:     cfg.Telemetry.ProfilingBlockRate,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.Enabled() {
		providers.LinkProfiles()
	}

	log.Info("Starting StockPilot",
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("database_driver", cfg.Database.Driver),
		zap.Strings("change_log_sinks", cfg.ChangeLog.Sinks),
	)

	deps, db, healthChecks := openStore(cfg, log)
	if db != nil {
		defer func() {
			if err := db.Close(); err != nil {
				log.Error("Error closing database", zap.Error(err))
			}
		}()
	}
	var gormDB *gorm.DB
	if db != nil {
		gormDB = db.DB
	}

	metrics, err := telemetry.NewInventoryMetrics(telemetry.InventoryMetricsConfig{
		Meter:         providers.Meter("stockpilot/inventory"),
		Logger:        log,
		StockProvider: stockProvider(gormDB),
	})
	if err != nil {
		log.Fatal("Failed to create inventory metrics", zap.Error(err))
	}
	if gormDB != nil && providers.MetricsExported() {
		metrics.StartPeriodicCollection(ctx, telemetry.NewGormTenantProvider(gormDB), cfg.Telemetry.MetricsInterval)
	}
	defer metrics.Stop()

	if cfg.StatusCache.Enabled {
		statusCache, err := cache.NewStatusCacheFactory(cfg.Redis, cfg.StatusCache,
			cache.WithLogger(log),
			cache.WithInMemoryFallback(cfg.StatusCache.Fallback),
		).CreateCache()
		if err != nil {
			log.Fatal("Failed to create status cache", zap.Error(err))
		}
		defer statusCache.Close()
		if redisCache, ok := statusCache.(*cache.RedisStatusCache); ok {
			healthChecks["redis"] = handler.HealthCheckerFunc(func(ctx context.Context) error {
				return redisCache.GetClient().Ping(ctx).Err()
			})
		}
		deps.StatusCache = statusCache
	}

	changeLog, closeChangeLog, err := changelog.NewFromConfig(cfg.ChangeLog, gormDB, log)
	if err != nil {
		log.Fatal("Failed to configure change log", zap.Error(err))
	}
	defer func() {
		if err := closeChangeLog(); err != nil {
			log.Warn("Error closing change log sinks", zap.Error(err))
		}
	}()

	bus := event.NewInMemoryEventBus(log)
	bus.Subscribe(appinv.NewStockDepletedHandler(log).
		WithRecorder(metrics).
		WithNotifier(appinv.NewLoggingStockAlertNotifier(log)))
	if err := bus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	deps.ChangeLogger = changeLog
	deps.Publisher = bus
	deps.Metrics = metrics
	deps.Logger = log

	service, err := appinv.NewInventoryService(deps, appinv.Config{
		MaxLookupBatch: cfg.Inventory.MaxLookupBatch,
		MaxAttempts:    cfg.Inventory.MaxAttempts,
		RetryBackoff:   cfg.Inventory.RetryBackoff,
	})
	if err != nil {
		log.Fatal("Failed to create inventory service", zap.Error(err))
	}

	engine, err := router.NewEngine(router.EngineConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		TracingEnabled: cfg.Telemetry.Enabled,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		Logger:         log,
	},
		handler.NewInventoryHandler(service),
		handler.NewSystemHandler(cfg.App.Name, telemetry.ServiceVersion, healthChecks),
	)
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	timeout := cfg.HTTP.ShutdownTimeout
	if timeout <= 0 {
		timeout = shutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := bus.Stop(shutdownCtx); err != nil {
		log.Warn("Event bus did not drain", zap.Error(err))
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Warn("Telemetry shutdown failed", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Warn("Profiler shutdown failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// openStore connects the configured store. The memory driver keeps state in
// process and returns a nil database.
func openStore(cfg *config.Config, log *zap.Logger) (appinv.Dependencies, *persistence.Database, map[string]handler.HealthChecker) {
	checks := make(map[string]handler.HealthChecker)

	if cfg.Database.Driver == config.DriverMemory {
		log.Warn("Using the in-memory store; stock state is lost on restart")
		store := memory.NewStore()
		return appinv.Dependencies{
			Scope:        store,
			Records:      store.Records(),
			Reservations: store.Reservations(),
		}, nil, checks
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
		logger.WithConflictClassifier(persistence.IsConflict),
	)
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate schema", zap.Error(err))
		}
	}

	dbSystem := "postgresql"
	var scopeOpts []persistence.ScopeOption
	if cfg.Database.Driver == config.DriverSQLite {
		dbSystem = "sqlite"
	} else {
		scopeOpts = append(scopeOpts, persistence.WithIsolation(sql.LevelRepeatableRead))
	}
	tracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:        dbSystem,
	}, log)
	if err := tracing.Register(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	checks["database"] = handler.HealthCheckerFunc(db.Ping)

	return appinv.Dependencies{
		Scope:        persistence.NewGormTransactionScope(db.DB, scopeOpts...),
		Records:      persistence.NewGormInventoryRecordRepository(db.DB),
		Reservations: persistence.NewGormOrderReservationRepository(db.DB),
	}, db, checks
}

func stockProvider(db *gorm.DB) telemetry.StockMetricsProvider {
	if db == nil {
		return nil
	}
	return telemetry.NewGormStockMetricsProvider(db)
}
