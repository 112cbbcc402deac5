package property

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/housing/backend/internal/domain/shared"
)

// Flat is a unit inside a Building. TenantID is nil when the flat is vacant
// and never holds more than one identity.
type Flat struct {
	shared.BaseAggregateRoot
	BuildingID uuid.UUID
	UnitNumber string
	TenantID   *uuid.UUID
}

// NewFlat creates a vacant flat
func NewFlat(buildingID uuid.UUID, unitNumber string) (*Flat, error) {
	if buildingID == uuid.Nil {
		return nil, shared.Validationf("flat must reference a building")
	}
	unitNumber = strings.TrimSpace(unitNumber)
	if unitNumber == "" {
		return nil, shared.Validationf("unit number cannot be empty")
	}
	if len(unitNumber) > 50 {
		return nil, shared.Validationf("unit number cannot exceed 50 characters")
	}
	return &Flat{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		BuildingID:        buildingID,
		UnitNumber:        unitNumber,
	}, nil
}

// IsOccupied reports whether a tenant is assigned
func (f *Flat) IsOccupied() bool {
	return f.TenantID != nil
}

// IsOccupiedBy reports whether identity is the current tenant
func (f *Flat) IsOccupiedBy(identity uuid.UUID) bool {
	return f.TenantID != nil && *f.TenantID == identity
}

// AssignTenant sets the tenant. Reassigning the same tenant is a no-op;
// assigning over a different tenant is a conflict.
func (f *Flat) AssignTenant(tenantID uuid.UUID) error {
	if tenantID == uuid.Nil {
		return shared.Validationf("tenant id cannot be empty")
	}
	if f.IsOccupiedBy(tenantID) {
		return nil
	}
	if f.IsOccupied() {
		return shared.Conflictf("flat %s already has a tenant", f.UnitNumber)
	}
	id := tenantID
	f.TenantID = &id
	f.UpdatedAt = time.Now()
	f.IncrementVersion()
	f.AddDomainEvent(NewFlatTenantAssignedEvent(f, tenantID))
	return nil
}

// Vacate clears the tenant unconditionally
func (f *Flat) Vacate() {
	previous := f.TenantID
	f.TenantID = nil
	f.UpdatedAt = time.Now()
	f.IncrementVersion()
	f.AddDomainEvent(NewFlatVacatedEvent(f, previous))
}
