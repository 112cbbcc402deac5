package property

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/housing/backend/internal/domain/shared"
)

// Building sits on one Address and is managed by one manager identity
type Building struct {
	shared.BaseAggregateRoot
	Name      string
	AddressID uuid.UUID
	ManagerID uuid.UUID
}

// NewBuilding creates a building
func NewBuilding(name string, addressID, managerID uuid.UUID) (*Building, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.Validationf("building name cannot be empty")
	}
	if len(name) > 200 {
		return nil, shared.Validationf("building name cannot exceed 200 characters")
	}
	if addressID == uuid.Nil {
		return nil, shared.Validationf("building must reference an address")
	}
	if managerID == uuid.Nil {
		return nil, shared.Validationf("building must have a manager")
	}
	return &Building{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		AddressID:         addressID,
		ManagerID:         managerID,
	}, nil
}

// IsManagedBy reports whether identity manages the building
func (b *Building) IsManagedBy(identity uuid.UUID) bool {
	return b.ManagerID == identity
}

// Reassign hands the building to another manager
func (b *Building) Reassign(managerID uuid.UUID) error {
	if managerID == uuid.Nil {
		return shared.Validationf("building must have a manager")
	}
	b.ManagerID = managerID
	b.UpdatedAt = time.Now()
	b.IncrementVersion()
	return nil
}

// BuildingAccountant links a Building to an accountant identity.
// A building has at most one link; absence means no accountant.
type BuildingAccountant struct {
	shared.BaseEntity
	BuildingID   uuid.UUID
	AccountantID uuid.UUID
}

// NewBuildingAccountant creates the accountant link
func NewBuildingAccountant(buildingID, accountantID uuid.UUID) (*BuildingAccountant, error) {
	if buildingID == uuid.Nil || accountantID == uuid.Nil {
		return nil, shared.Validationf("accountant link requires a building and an accountant")
	}
	return &BuildingAccountant{
		BaseEntity:   shared.NewBaseEntity(),
		BuildingID:   buildingID,
		AccountantID: accountantID,
	}, nil
}
