package router

import (
	"github.com/housing/backend/internal/domain/identity"
	"github.com/housing/backend/internal/interfaces/http/handler"
	"github.com/housing/backend/internal/interfaces/http/middleware"
)

// Handlers are the API handlers mounted by APIGroups
type Handlers struct {
	Directory *handler.DirectoryHandler
	Occupancy *handler.OccupancyHandler
}

// APIGroups lays out the directory API:
//
//	GET    /managers/:id/buildings
//	GET    /managers/:id/stats
//	GET    /buildings/:id/flats
//	GET    /requests                  any identity
//	POST   /requests                  any identity
//	POST   /requests/:id/approve      manager, approver
//	POST   /requests/:id/reject       manager, approver
//	DELETE /flats/:id/tenant          own tenant, manager, approver
//	DELETE /cache/:identity           own identity, approver
func APIGroups(h Handlers) []RouteRegistrar {
	reviewers := middleware.RequireIdentity(identity.RoleManager, identity.RoleApprover)

	managers := NewDomainGroup("managers", "/managers").
		GET("/:id/buildings", h.Directory.ListBuildings).
		GET("/:id/stats", h.Directory.GetStats)

	buildings := NewDomainGroup("buildings", "/buildings").
		GET("/:id/flats", h.Directory.ListFlats)

	requests := NewDomainGroup("requests", "/requests").
		Use(middleware.RequireIdentity()).
		GET("", h.Directory.ListRequests).
		POST("", h.Occupancy.Submit).
		POST("/:id/approve", reviewers, h.Occupancy.Approve).
		POST("/:id/reject", reviewers, h.Occupancy.Reject)

	flats := NewDomainGroup("flats", "/flats").
		DELETE("/:id/tenant", middleware.RequireIdentity(identity.RoleTenant, identity.RoleManager, identity.RoleApprover), h.Occupancy.UnassignTenant)

	caches := NewDomainGroup("cache", "/cache").
		Use(middleware.RequireIdentity()).
		DELETE("/:identity", h.Directory.InvalidateIdentity)

	return []RouteRegistrar{managers, buildings, requests, flats, caches}
}
