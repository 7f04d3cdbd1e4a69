package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/Shrijana18/StockPilot-v1-sub005/internal/domain/inventory"
	"github.com/Shrijana18/StockPilot-v1-sub005/internal/domain/shared"
	"github.com/Shrijana18/StockPilot-v1-sub005/internal/interfaces/http/dto"
	"github.com/Shrijana18/StockPilot-v1-sub005/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// RetryAfterSeconds is advertised on transient conflicts
const RetryAfterSeconds = "1"

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a 200 response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response with an explicit status
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	h.respondError(c, statusCode, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// HandleError renders err according to the inventory failure taxonomy.
// Typed errors are matched first so their details reach the client; any
// other *shared.DomainError falls back to its code; everything else is a 500.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID := middleware.GetRequestID(c)

	var (
		validation   *inventory.ValidationError
		notFound     *inventory.NotFoundError
		insufficient *inventory.InsufficientStockError
		transient    *inventory.TransientConflictError
		logging      *inventory.LoggingError
		domainErr    *shared.DomainError
	)
	switch {
	case errors.As(err, &validation):
		h.respondError(c, http.StatusBadRequest,
			dto.NewValidationErrorResponse(validation.Error(), requestID,
				[]dto.ValidationDetail{{Field: validation.Field, Message: validation.Reason}}))
	case errors.As(err, &notFound):
		h.respondError(c, http.StatusNotFound,
			dto.NewErrorResponseWithRequestID(dto.ErrCodeNotFound, notFound.Error(), requestID).
				WithDetails(gin.H{"skus": notFound.SKUs}))
	case errors.As(err, &insufficient):
		h.respondError(c, http.StatusUnprocessableEntity,
			dto.NewErrorResponseWithRequestID(dto.ErrCodeInsufficientStock, "Insufficient stock", requestID).
				WithDetails(insufficient.Items))
	case errors.As(err, &transient):
		c.Header("Retry-After", RetryAfterSeconds)
		h.respondError(c, http.StatusConflict,
			dto.NewErrorResponseWithRequestID(dto.ErrCodeConcurrencyConflict,
				"Concurrent updates could not be serialized, retry the request", requestID).
				AsRetryable().
				WithDetails(gin.H{"operation": transient.Operation, "attempts": transient.Attempts}))
	case errors.As(err, &logging):
		h.respondError(c, http.StatusInternalServerError,
			dto.NewErrorResponseWithRequestID(dto.ErrCodeChangeLogFailed, logging.Error(), requestID))
	case errors.Is(err, context.DeadlineExceeded):
		h.respondError(c, http.StatusGatewayTimeout,
			dto.NewErrorResponseWithRequestID(dto.ErrCodeTimeout, "Request timed out", requestID).AsRetryable())
	case errors.As(err, &domainErr):
		code := dto.NormalizeErrorCode(domainErr.Code)
		h.respondError(c, dto.GetHTTPStatus(code),
			dto.NewErrorResponseWithRequestID(code, domainErr.Message, requestID))
	default:
		_ = c.Error(err)
		h.respondError(c, http.StatusInternalServerError,
			dto.NewErrorResponseWithRequestID(dto.ErrCodeInternal, "An unexpected error occurred", requestID))
	}
}

func (h *BaseHandler) respondError(c *gin.Context, statusCode int, resp dto.Response) {
	if resp.Error != nil {
		c.Set(middleware.ErrorCodeKey, resp.Error.Code)
	}
	c.JSON(statusCode, resp)
}
