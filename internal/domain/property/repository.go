package property

import (
	"context"

	"github.com/google/uuid"
	"github.com/housing/backend/internal/domain/shared"
)

// BuildingRepository defines persistence for buildings
type BuildingRepository interface {
	// FindByID returns shared.ErrNotFound when the building does not exist
	FindByID(ctx context.Context, id uuid.UUID) (*Building, error)

	// FindAll lists buildings matching the filter (manager_id, address_id, id)
	FindAll(ctx context.Context, filter shared.Filter) ([]Building, error)

	// Save creates or updates a building
	Save(ctx context.Context, building *Building) error
}

// BuildingAccountantRepository defines persistence for accountant links
type BuildingAccountantRepository interface {
	// FindByBuilding returns shared.ErrNotFound when the building has no accountant
	FindByBuilding(ctx context.Context, buildingID uuid.UUID) (*BuildingAccountant, error)

	Save(ctx context.Context, link *BuildingAccountant) error
}

// FlatRepository defines persistence for flats
type FlatRepository interface {
	// FindByID returns shared.ErrNotFound when the flat does not exist
	FindByID(ctx context.Context, id uuid.UUID) (*Flat, error)

	// FindAll lists flats matching the filter (building_id, tenant_id, id)
	FindAll(ctx context.Context, filter shared.Filter) ([]Flat, error)

	// Save creates or updates a flat
	Save(ctx context.Context, flat *Flat) error

	// AssignTenant sets the tenant only if the flat is vacant or already held
	// by the same tenant. Returns shared.ErrConflict when another tenant holds
	// it and shared.ErrNotFound when the flat does not exist.
	AssignTenant(ctx context.Context, flatID, tenantID uuid.UUID) error

	// ClearTenant vacates the flat. Returns shared.ErrNotFound for unknown flats.
	ClearTenant(ctx context.Context, flatID uuid.UUID) error
}
