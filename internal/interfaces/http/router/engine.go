package router

import (
	"fmt"

	"github.com/Shrijana18/StockPilot-v1-sub005/internal/infrastructure/logger"
	"github.com/Shrijana18/StockPilot-v1-sub005/internal/interfaces/http/handler"
	"github.com/Shrijana18/StockPilot-v1-sub005/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DefaultMaxBodySize applies when EngineConfig.MaxBodySize is unset
const DefaultMaxBodySize = 1 << 20

// EngineConfig configures the HTTP engine
type EngineConfig struct {
	ServiceName    string
	TracingEnabled bool
	MaxBodySize    int64
	TrustedProxies []string
	Logger         *zap.Logger
}

// InventoryRoutes maps the stock API onto its handler
func InventoryRoutes(h *handler.InventoryHandler) *DomainGroup {
	return NewDomainGroup("inventory", "/inventory").
		POST("/availability/check", h.CheckAvailability).
		GET("/status/:sku", h.GetStockStatus).
		POST("/reservations", h.Reserve).
		POST("/reservations/release", h.Release).
		GET("/reservations/:order_id", h.GetOrderReservation).
		POST("/reservations/:order_id/release", h.ReleaseOrder).
		POST("/deductions", h.Commit).
		PUT("/records/:sku", h.UpsertRecord)
}

// NewEngine builds the gin engine with the middleware chain and all routes.
// Order matters: the request id feeds the logger, the logger feeds tenant
// scoping, and span attributes need both.
func NewEngine(cfg EngineConfig, inventory *handler.InventoryHandler, system *handler.SystemHandler) (*gin.Engine, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultMaxBodySize
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("set trusted proxies: %w", err)
	}

	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.Tracing(middleware.TracingConfig{ServiceName: cfg.ServiceName, Enabled: cfg.TracingEnabled}),
	)

	if system != nil {
		engine.GET("/health", system.Health)
		engine.GET("/ready", system.Ready)
	}

	api := engine.Group("",
		middleware.BodyLimit(cfg.MaxBodySize),
		middleware.Tenant(middleware.TenantConfig{Logger: log}),
		middleware.SpanAttributes(),
	)
	NewRouter(api).Register(InventoryRoutes(inventory)).Setup()

	return engine, nil
}
