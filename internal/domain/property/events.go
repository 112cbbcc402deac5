package property

import (
	"github.com/google/uuid"
	"github.com/housing/backend/internal/domain/shared"
)

// AggregateTypeFlat is the aggregate type for flat events
const AggregateTypeFlat = "Flat"

// Event type constants for Flat
const (
	EventTypeFlatTenantAssigned = "FlatTenantAssigned"
	EventTypeFlatVacated        = "FlatVacated"
)

// FlatTenantAssignedEvent is published when a tenant moves into a flat
type FlatTenantAssignedEvent struct {
	shared.BaseDomainEvent
	FlatID     uuid.UUID `json:"flat_id"`
	BuildingID uuid.UUID `json:"building_id"`
	UnitNumber string    `json:"unit_number"`
	TenantID   uuid.UUID `json:"tenant_id"`
}

// NewFlatTenantAssignedEvent creates a FlatTenantAssignedEvent
func NewFlatTenantAssignedEvent(flat *Flat, tenantID uuid.UUID) *FlatTenantAssignedEvent {
	return &FlatTenantAssignedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeFlatTenantAssigned, AggregateTypeFlat, flat.ID),
		FlatID:          flat.ID,
		BuildingID:      flat.BuildingID,
		UnitNumber:      flat.UnitNumber,
		TenantID:        tenantID,
	}
}

// FlatVacatedEvent is published when a flat's tenant is cleared
type FlatVacatedEvent struct {
	shared.BaseDomainEvent
	FlatID           uuid.UUID  `json:"flat_id"`
	BuildingID       uuid.UUID  `json:"building_id"`
	UnitNumber       string     `json:"unit_number"`
	PreviousTenantID *uuid.UUID `json:"previous_tenant_id,omitempty"`
}

// NewFlatVacatedEvent creates a FlatVacatedEvent
func NewFlatVacatedEvent(flat *Flat, previous *uuid.UUID) *FlatVacatedEvent {
	return &FlatVacatedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeFlatVacated, AggregateTypeFlat, flat.ID),
		FlatID:           flat.ID,
		BuildingID:       flat.BuildingID,
		UnitNumber:       flat.UnitNumber,
		PreviousTenantID: previous,
	}
}
