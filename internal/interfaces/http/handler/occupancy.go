package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appoccupancy "github.com/housing/backend/internal/application/occupancy"
	"github.com/housing/backend/internal/domain/identity"
	"github.com/housing/backend/internal/interfaces/http/middleware"
)

// OccupancyService is the write side of the request lifecycle
type OccupancyService interface {
	Submit(ctx context.Context, cmd appoccupancy.SubmitRequestCommand) (appoccupancy.Result, error)
	Approve(ctx context.Context, cmd appoccupancy.ApproveRequestCommand) (appoccupancy.Result, error)
	Reject(ctx context.Context, cmd appoccupancy.RejectRequestCommand) (appoccupancy.Result, error)
	Unassign(ctx context.Context, cmd appoccupancy.UnassignTenantCommand) (appoccupancy.Result, error)
}

// OccupancyHandler exposes the occupancy request lifecycle
type OccupancyHandler struct {
	BaseHandler
	occupancy OccupancyService
}

// NewOccupancyHandler creates a new OccupancyHandler
func NewOccupancyHandler(svc OccupancyService) *OccupancyHandler {
	return &OccupancyHandler{occupancy: svc}
}

// SubmitRequest is the body of POST /requests
// @Description Request body for asking to occupy a flat
type SubmitRequest struct {
	FlatID uuid.UUID `json:"flat_id" binding:"required" example:"7f1c2c9e-3b0e-4d55-9d51-0c6a8f0f2a10"`
	// RequesterID defaults to the caller
	RequesterID *uuid.UUID `json:"requester_id" example:"2b8e4d1a-6f7c-4e1b-8a3d-5c9e0f1b2a34"`
}

// ReviewRequest is the body of approve and reject
// @Description Reviewer notes; mandatory when rejecting
type ReviewRequest struct {
	Notes string `json:"notes" binding:"max=2000" example:"Documents verified"`
}

// Submit godoc
// @ID           submitOccupancyRequest
// @Summary      Ask to occupy a flat
// @Description  Tenants may only submit for themselves.
// @Tags         requests
// @Accept       json
// @Produce      json
// @Param        X-User-ID    header  string         true  "Caller identity" format(uuid)
// @Param        X-User-Role  header  string         true  "Caller role"
// @Param        request      body    SubmitRequest  true  "Flat to occupy"
// @Success      201  {object}  APIResponse[appoccupancy.Result]
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /requests [post]
func (h *OccupancyHandler) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	caller, _ := middleware.GetCaller(c)
	requester := caller.ID
	if req.RequesterID != nil {
		requester = *req.RequesterID
	}
	if caller.Role == identity.RoleTenant && requester != caller.ID {
		h.Forbidden(c, "tenants may only submit requests for themselves")
		return
	}

	res, _ := h.occupancy.Submit(c.Request.Context(), appoccupancy.SubmitRequestCommand{
		FlatID:      req.FlatID,
		RequesterID: requester,
	})
	h.Respond(c, http.StatusCreated, res)
}

// Approve godoc
// @ID           approveOccupancyRequest
// @Summary      Approve a pending request
// @Description  Assigns the requester to the flat, then marks the request approved. The caller is recorded as reviewer.
// @Tags         requests
// @Accept       json
// @Produce      json
// @Param        X-User-ID    header  string         true   "Caller identity" format(uuid)
// @Param        X-User-Role  header  string         true   "Caller role" Enums(manager, approver)
// @Param        id           path    string         true   "Request ID" format(uuid)
// @Param        request      body    ReviewRequest  false  "Optional notes"
// @Success      200  {object}  APIResponse[appoccupancy.Result]
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /requests/{id}/approve [post]
func (h *OccupancyHandler) Approve(c *gin.Context) {
	requestID, review, ok := h.bindReview(c)
	if !ok {
		return
	}
	caller, _ := middleware.GetCaller(c)

	res, _ := h.occupancy.Approve(c.Request.Context(), appoccupancy.ApproveRequestCommand{
		RequestID:  requestID,
		ReviewerID: caller.ID,
		Notes:      review.Notes,
	})
	h.Respond(c, http.StatusOK, res)
}

// Reject godoc
// @ID           rejectOccupancyRequest
// @Summary      Reject a pending request
// @Tags         requests
// @Accept       json
// @Produce      json
// @Param        X-User-ID    header  string         true  "Caller identity" format(uuid)
// @Param        X-User-Role  header  string         true  "Caller role" Enums(manager, approver)
// @Param        id           path    string         true  "Request ID" format(uuid)
// @Param        request      body    ReviewRequest  true  "Rejection notes"
// @Success      200  {object}  APIResponse[appoccupancy.Result]
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /requests/{id}/reject [post]
func (h *OccupancyHandler) Reject(c *gin.Context) {
	requestID, review, ok := h.bindReview(c)
	if !ok {
		return
	}
	caller, _ := middleware.GetCaller(c)

	res, _ := h.occupancy.Reject(c.Request.Context(), appoccupancy.RejectRequestCommand{
		RequestID:  requestID,
		ReviewerID: caller.ID,
		Notes:      review.Notes,
	})
	h.Respond(c, http.StatusOK, res)
}

// UnassignTenant godoc
// @ID           unassignFlatTenant
// @Summary      Vacate a flat
// @Description  Clears the tenant without touching any request. Vacating an empty flat succeeds. Tenants may only vacate a flat they hold.
// @Tags         flats
// @Produce      json
// @Param        X-User-ID    header  string  true  "Caller identity" format(uuid)
// @Param        X-User-Role  header  string  true  "Caller role" Enums(tenant, manager, approver)
// @Param        id           path    string  true  "Flat ID" format(uuid)
// @Success      200  {object}  APIResponse[appoccupancy.Result]
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /flats/{id}/tenant [delete]
func (h *OccupancyHandler) UnassignTenant(c *gin.Context) {
	flatID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	cmd := appoccupancy.UnassignTenantCommand{FlatID: flatID}
	if caller, _ := middleware.GetCaller(c); caller.Role == identity.RoleTenant {
		cmd.OccupantID = &caller.ID
	}
	res, _ := h.occupancy.Unassign(c.Request.Context(), cmd)
	h.Respond(c, http.StatusOK, res)
}

// bindReview reads the request ID and the review body. An empty body means
// no notes; the service decides whether that is acceptable.
func (h *OccupancyHandler) bindReview(c *gin.Context) (uuid.UUID, ReviewRequest, bool) {
	var review ReviewRequest
	requestID, ok := h.pathID(c, "id")
	if !ok {
		return uuid.Nil, review, false
	}
	if c.Request.ContentLength == 0 {
		return requestID, review, true
	}
	if err := c.ShouldBindJSON(&review); err != nil {
		middleware.HandleValidationError(c, err)
		return uuid.Nil, review, false
	}
	return requestID, review, true
}
