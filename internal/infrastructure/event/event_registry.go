package event

import (
	"github.com/housing/backend/internal/domain/occupancy"
	"github.com/housing/backend/internal/domain/property"
)

// RegisterAllEvents registers every lifecycle event with the serializer
func RegisterAllEvents(serializer *EventSerializer) {
	// Occupancy requests
	serializer.Register(occupancy.EventTypeRequestSubmitted, &occupancy.RequestSubmittedEvent{})
	serializer.Register(occupancy.EventTypeRequestApproved, &occupancy.RequestReviewedEvent{})
	serializer.Register(occupancy.EventTypeRequestRejected, &occupancy.RequestReviewedEvent{})

	// Flats
	serializer.Register(property.EventTypeFlatTenantAssigned, &property.FlatTenantAssignedEvent{})
	serializer.Register(property.EventTypeFlatVacated, &property.FlatVacatedEvent{})
}
