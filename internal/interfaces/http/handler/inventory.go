package handler

import (
	"context"
	"net/http"

	appinv "github.com/Shrijana18/StockPilot-v1-sub005/internal/application/inventory"
	"github.com/Shrijana18/StockPilot-v1-sub005/internal/domain/inventory"
	"github.com/Shrijana18/StockPilot-v1-sub005/internal/interfaces/http/dto"
	"github.com/Shrijana18/StockPilot-v1-sub005/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InventoryService is the application surface the handler drives
type InventoryService interface {
	Check(ctx context.Context, tenantID uuid.UUID, items []inventory.OrderItem) (appinv.AvailabilityResult, error)
	GetStockStatus(ctx context.Context, tenantID uuid.UUID, sku string) (inventory.StockStatus, error)
	Reserve(ctx context.Context, tenantID uuid.UUID, orderID string, items []inventory.OrderItem) (*appinv.ReservationResult, error)
	GetOrderReservation(ctx context.Context, tenantID uuid.UUID, orderID string) (*appinv.OrderReservationView, error)
	Release(ctx context.Context, tenantID uuid.UUID, items []inventory.OrderItem) (*appinv.ReleaseResult, error)
	ReleaseOrder(ctx context.Context, tenantID uuid.UUID, orderID string) (*appinv.ReleaseResult, error)
	Commit(ctx context.Context, tenantID uuid.UUID, orderID string, items []inventory.OrderItem) (*appinv.DeductionResult, error)
	UpsertRecord(ctx context.Context, tenantID uuid.UUID, sku string, quantity decimal.Decimal) (inventory.StockStatus, error)
}

// InventoryHandler serves the stock reservation API
type InventoryHandler struct {
	BaseHandler
	service InventoryService
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(service InventoryService) *InventoryHandler {
	return &InventoryHandler{service: service}
}

// CheckAvailability handles POST /availability/check
func (h *InventoryHandler) CheckAvailability(c *gin.Context) {
	var req dto.ItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	result, err := h.service.Check(c.Request.Context(), middleware.GetTenantID(c), dto.ToOrderItems(req.Items))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.AvailabilityResponse{
		Items:             result.Items,
		OverallAvailable:  result.OverallAvailable,
		DepletionWarnings: result.DepletionWarnings(),
	})
}

// GetStockStatus handles GET /status/:sku
func (h *InventoryHandler) GetStockStatus(c *gin.Context) {
	status, err := h.service.GetStockStatus(c.Request.Context(), middleware.GetTenantID(c), c.Param("sku"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, status)
}

// Reserve handles POST /reservations. A replayed reservation answers 200
// instead of 201.
func (h *InventoryHandler) Reserve(c *gin.Context) {
	var req dto.OrderItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	result, err := h.service.Reserve(c.Request.Context(), middleware.GetTenantID(c), req.OrderID, dto.ToOrderItems(req.Items))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if result.Replayed {
		h.Success(c, result)
		return
	}
	h.Created(c, result)
}

// GetOrderReservation handles GET /reservations/:order_id
func (h *InventoryHandler) GetOrderReservation(c *gin.Context) {
	view, err := h.service.GetOrderReservation(c.Request.Context(), middleware.GetTenantID(c), c.Param("order_id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// Release handles POST /reservations/release. Partial releases still answer
// 200; the per-item outcomes tell the caller what happened.
func (h *InventoryHandler) Release(c *gin.Context) {
	var req dto.ItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	result, err := h.service.Release(c.Request.Context(), middleware.GetTenantID(c), dto.ToOrderItems(req.Items))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ReleaseOrder handles POST /reservations/:order_id/release
func (h *InventoryHandler) ReleaseOrder(c *gin.Context) {
	result, err := h.service.ReleaseOrder(c.Request.Context(), middleware.GetTenantID(c), c.Param("order_id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Commit handles POST /deductions. When the stock change committed but the
// change log rejected it, the deduction is answered with 200 and a
// change_log_failed warning in meta, so callers do not retry a commit that
// already took effect.
func (h *InventoryHandler) Commit(c *gin.Context) {
	var req dto.OrderItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	result, err := h.service.Commit(c.Request.Context(), middleware.GetTenantID(c), req.OrderID, dto.ToOrderItems(req.Items))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if result.LogError != nil {
		c.JSON(http.StatusOK, dto.NewSuccessResponse(result).
			WithWarning(dto.ErrCodeChangeLogFailed, result.LogError.Error()))
		return
	}
	if result.Replayed {
		h.Success(c, result)
		return
	}
	h.Created(c, result)
}

// UpsertRecord handles PUT /records/:sku
func (h *InventoryHandler) UpsertRecord(c *gin.Context) {
	var req dto.UpsertRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	status, err := h.service.UpsertRecord(c.Request.Context(), middleware.GetTenantID(c), c.Param("sku"), req.Quantity)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, status)
}

var _ InventoryService = (*appinv.InventoryService)(nil)
