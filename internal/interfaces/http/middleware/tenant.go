package middleware

import (
	"net/http"
	"strings"

	"github.com/Shrijana18/StockPilot-v1-sub005/internal/infrastructure/logger"
	"github.com/Shrijana18/StockPilot-v1-sub005/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Tenant context keys
const (
	TenantIDKey     = "tenant_id"
	TenantHeaderKey = "X-Tenant-ID"
)

// TenantConfig configures the tenant middleware
type TenantConfig struct {
	// SkipPaths are served without a tenant, e.g. health checks
	SkipPaths []string
	Logger    *zap.Logger
}

// DefaultTenantConfig returns the default tenant configuration
func DefaultTenantConfig() TenantConfig {
	return TenantConfig{
		SkipPaths: []string{"/health", "/healthz", "/ready"},
	}
}

// Tenant requires a UUID X-Tenant-ID header on every request outside SkipPaths.
// The parsed scope is stored on the gin context and on the request context
// so application logs carry it.
func Tenant(cfg TenantConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		raw := strings.TrimSpace(c.GetHeader(TenantHeaderKey))
		if raw == "" {
			abortTenant(c, "X-Tenant-ID header is required")
			return
		}
		tenantID, err := uuid.Parse(raw)
		if err != nil || tenantID == uuid.Nil {
			log.Debug("rejected tenant header", zap.String("value", raw), zap.Error(err))
			abortTenant(c, "X-Tenant-ID must be a non-nil UUID")
			return
		}

		c.Set(TenantIDKey, tenantID.String())
		ctx, _ := logger.WithTenantID(c.Request.Context(), logger.FromContext(c.Request.Context()), tenantID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// GetTenantID returns the tenant stored by Tenant, or uuid.Nil
func GetTenantID(c *gin.Context) uuid.UUID {
	id, err := uuid.Parse(c.GetString(TenantIDKey))
	if err != nil {
		return uuid.Nil
	}
	return id
}

func abortTenant(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest,
		dto.NewErrorResponseWithRequestID(dto.ErrCodeTenantRequired, message, GetRequestID(c)))
}
