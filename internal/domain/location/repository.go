package location

import (
	"context"

	"github.com/google/uuid"
	"github.com/housing/backend/internal/domain/shared"
)

// CountyRepository defines read access to counties
type CountyRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*County, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]County, error)
	Save(ctx context.Context, county *County) error
}

// MunicipalityRepository defines read access to municipalities
type MunicipalityRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Municipality, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Municipality, error)
	Save(ctx context.Context, municipality *Municipality) error
}

// SettlementRepository defines read access to settlements
type SettlementRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Settlement, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Settlement, error)
	Save(ctx context.Context, settlement *Settlement) error
}

// AddressRepository defines persistence for addresses
type AddressRepository interface {
	// FindByID returns shared.ErrNotFound when the address does not exist
	FindByID(ctx context.Context, id uuid.UUID) (*Address, error)

	// FindAll lists addresses matching the filter (settlement_id, status, id)
	FindAll(ctx context.Context, filter shared.Filter) ([]Address, error)

	// Save creates or updates an address
	Save(ctx context.Context, address *Address) error
}
