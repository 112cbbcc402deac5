// Package handler holds the gin handlers of the directory API. Handlers
// bind and validate input, call the application services, and map results
// and domain errors onto the dto envelope.
package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appoccupancy "github.com/housing/backend/internal/application/occupancy"
	"github.com/housing/backend/internal/domain/shared"
	"github.com/housing/backend/internal/infrastructure/logger"
	"github.com/housing/backend/internal/interfaces/http/dto"
	"github.com/housing/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// ErrorWithCode sends an error response, deriving status code from error code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	h.Error(c, dto.GetHTTPStatus(code), code, message)
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// Forbidden sends a 403 forbidden response
func (h *BaseHandler) Forbidden(c *gin.Context, message string) {
	h.Error(c, http.StatusForbidden, dto.ErrCodeForbidden, message)
}

// HandleError maps domain errors to their status; anything else is a 500
// with the detail kept out of the response.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var lookupErr *shared.LookupError
	if errors.As(err, &lookupErr) {
		entity := strings.ReplaceAll(lookupErr.Entity, "_", " ")
		if shared.IsNotFound(err) {
			h.ErrorWithCode(c, dto.ErrCodeNotFound, entity+" not found")
			return
		}
		if !shared.IsTransport(err) {
			h.ErrorWithCode(c, dto.NormalizeErrorCode(shared.Code(err)), lookupErr.Error())
			return
		}
		logger.L(c.Request.Context()).Warn("Lookup failed", zap.Error(err))
		h.ErrorWithCode(c, dto.ErrCodeUnavailable, "data store unavailable ("+entity+" "+lookupErr.Op+")")
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		h.ErrorWithCode(c, dto.NormalizeErrorCode(domainErr.Code), domainErr.Message)
		return
	}

	logger.L(c.Request.Context()).Error("Unhandled error", zap.Error(err))
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, "An unexpected error occurred")
}

// Respond writes a mutation result. Successful results are sent with
// status ok; failed ones carry their domain code and message.
func (h *BaseHandler) Respond(c *gin.Context, ok int, res appoccupancy.Result) {
	if res.Success {
		c.JSON(ok, dto.NewSuccessResponse(res))
		return
	}
	h.ErrorWithCode(c, dto.NormalizeErrorCode(res.Code), res.Message)
}

// pathID binds and parses the :id path parameter, writing a 400 on failure
func (h *BaseHandler) pathID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidation, param+" must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// refresh reports whether ?refresh=true was passed
func (h *BaseHandler) refresh(c *gin.Context) (bool, bool) {
	var q dto.RefreshQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		middleware.HandleValidationError(c, err)
		return false, false
	}
	return q.Refresh, true
}
