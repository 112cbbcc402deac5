package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/housing/backend/internal/application/directory"
	"github.com/housing/backend/internal/domain/identity"
	"github.com/housing/backend/internal/interfaces/http/middleware"
)

// DirectoryService is the read side the directory endpoints need
type DirectoryService interface {
	Overviews(ctx context.Context, managerID uuid.UUID, forceRefresh bool) ([]directory.BuildingOverview, error)
	Flats(ctx context.Context, buildingID uuid.UUID, forceRefresh bool) ([]directory.FlatDetail, error)
	Stats(ctx context.Context, managerID uuid.UUID, forceRefresh bool) (directory.ManagerStats, error)
	Requests(ctx context.Context, who uuid.UUID, role identity.Role, forceRefresh bool) ([]directory.EnrichedRequest, error)
	InvalidateAll(ctx context.Context, id uuid.UUID) int
}

// DirectoryHandler serves the cached aggregate views
type DirectoryHandler struct {
	BaseHandler
	directory DirectoryService
}

// NewDirectoryHandler creates a new DirectoryHandler
func NewDirectoryHandler(svc DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{directory: svc}
}

// ListBuildings godoc
// @ID           listManagerBuildings
// @Summary      List a manager's buildings
// @Description  Building overviews with address, flat counts and accountant. Fields that could not be resolved are reported as unknown instead of failing the list.
// @Tags         directory
// @Produce      json
// @Param        id       path   string  true   "Manager ID" format(uuid)
// @Param        refresh  query  bool    false  "Bypass the cache"
// @Success      200  {object}  APIResponse[[]directory.BuildingOverview]
// @Failure      400  {object}  ErrorResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /managers/{id}/buildings [get]
func (h *DirectoryHandler) ListBuildings(c *gin.Context) {
	managerID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	refresh, ok := h.refresh(c)
	if !ok {
		return
	}

	overviews, err := h.directory.Overviews(c.Request.Context(), managerID, refresh)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, overviews)
}

// ListFlats godoc
// @ID           listBuildingFlats
// @Summary      List the flats of a building
// @Description  Flats in natural unit order, each with its tenant contact when occupied.
// @Tags         directory
// @Produce      json
// @Param        id       path   string  true   "Building ID" format(uuid)
// @Param        refresh  query  bool    false  "Bypass the cache"
// @Success      200  {object}  APIResponse[[]directory.FlatDetail]
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /buildings/{id}/flats [get]
func (h *DirectoryHandler) ListFlats(c *gin.Context) {
	buildingID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	refresh, ok := h.refresh(c)
	if !ok {
		return
	}

	flats, err := h.directory.Flats(c.Request.Context(), buildingID, refresh)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, flats)
}

// GetStats godoc
// @ID           getManagerStats
// @Summary      Manager dashboard counters
// @Tags         directory
// @Produce      json
// @Param        id       path   string  true   "Manager ID" format(uuid)
// @Param        refresh  query  bool    false  "Bypass the cache"
// @Success      200  {object}  APIResponse[directory.ManagerStats]
// @Failure      400  {object}  ErrorResponse
// @Router       /managers/{id}/stats [get]
func (h *DirectoryHandler) GetStats(c *gin.Context) {
	managerID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	refresh, ok := h.refresh(c)
	if !ok {
		return
	}

	stats, err := h.directory.Stats(c.Request.Context(), managerID, refresh)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}

// ListRequests godoc
// @ID           listRequests
// @Summary      List occupancy requests visible to the caller
// @Description  Tenants see their own requests, managers those for their buildings, approvers all of them.
// @Tags         requests
// @Produce      json
// @Param        X-User-ID    header  string  true   "Caller identity" format(uuid)
// @Param        X-User-Role  header  string  true   "Caller role" Enums(tenant, manager, approver)
// @Param        refresh      query   bool    false  "Bypass the cache"
// @Success      200  {object}  APIResponse[[]directory.EnrichedRequest]
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /requests [get]
func (h *DirectoryHandler) ListRequests(c *gin.Context) {
	caller, _ := middleware.GetCaller(c)
	refresh, ok := h.refresh(c)
	if !ok {
		return
	}

	requests, err := h.directory.Requests(c.Request.Context(), caller.ID, caller.Role, refresh)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, requests)
}

// InvalidateIdentity godoc
// @ID           invalidateIdentityCache
// @Summary      Drop every cached view keyed by an identity
// @Description  Clears overviews, stats and request lists for the identity on this and, when pub/sub is enabled, every other instance. Callers may clear their own identity; approvers may clear any.
// @Tags         cache
// @Produce      json
// @Param        X-User-ID    header  string  true  "Caller identity" format(uuid)
// @Param        X-User-Role  header  string  true  "Caller role" Enums(tenant, manager, approver)
// @Param        identity     path    string  true  "Identity ID" format(uuid)
// @Success      200  {object}  APIResponse[CountData]
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /cache/{identity} [delete]
func (h *DirectoryHandler) InvalidateIdentity(c *gin.Context) {
	id, ok := h.pathID(c, "identity")
	if !ok {
		return
	}
	caller, _ := middleware.GetCaller(c)
	if caller.ID != id && caller.Role != identity.RoleApprover {
		h.Forbidden(c, "only approvers may clear another identity's views")
		return
	}
	h.Success(c, CountData{Count: h.directory.InvalidateAll(c.Request.Context(), id)})
}
