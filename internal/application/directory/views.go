package directory

import (
	"time"

	"github.com/google/uuid"
	"github.com/housing/backend/internal/domain/identity"
	"github.com/housing/backend/internal/domain/occupancy"
	"github.com/shopspring/decimal"
)

// Placeholders substituted for fields whose lookup failed
const (
	UnknownAddress = "Unknown Address"
	Unknown        = "Unknown"
)

// Contact is the resolved contact data of an identity
type Contact struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"full_name"`
	Email    string    `json:"email"`
	Phone    string    `json:"phone"`
}

func contactOf(p *identity.Profile) Contact {
	return Contact{ID: p.ID, FullName: p.FullName, Email: p.Email, Phone: p.Phone}
}

func unknownContact(id uuid.UUID) Contact {
	return Contact{ID: id, FullName: Unknown, Email: Unknown, Phone: Unknown}
}

// IsUnknown reports whether the contact is a placeholder
func (c Contact) IsUnknown() bool {
	return c.FullName == Unknown && c.Email == Unknown && c.Phone == Unknown
}

// BuildingOverview summarises one building for its manager. FullAddress is
// UnknownAddress and the counts are zero when the respective lookups failed.
// Accountant is nil when the building has no linked accountant.
type BuildingOverview struct {
	BuildingID    uuid.UUID `json:"building_id"`
	Name          string    `json:"name"`
	AddressID     uuid.UUID `json:"address_id"`
	FullAddress   string    `json:"full_address"`
	TotalFlats    int       `json:"total_flats"`
	OccupiedFlats int       `json:"occupied_flats"`
	VacantFlats   int       `json:"vacant_flats"`
	Accountant    *Contact  `json:"accountant,omitempty"`
}

// FlatDetail is a flat with its tenant resolved. Tenant is nil for vacant
// flats; its fields are Unknown when the profile could not be loaded.
type FlatDetail struct {
	FlatID     uuid.UUID `json:"flat_id"`
	BuildingID uuid.UUID `json:"building_id"`
	UnitNumber string    `json:"unit_number"`
	Tenant     *Contact  `json:"tenant,omitempty"`
}

// IsOccupied reports whether the flat has a tenant
func (f FlatDetail) IsOccupied() bool {
	return f.Tenant != nil
}

// EnrichedRequest is an occupancy request joined with its flat, building,
// address and requester
type EnrichedRequest struct {
	RequestID   uuid.UUID               `json:"request_id"`
	FlatID      uuid.UUID               `json:"flat_id"`
	Status      occupancy.RequestStatus `json:"status"`
	CreatedAt   time.Time               `json:"created_at"`
	ReviewedAt  *time.Time              `json:"reviewed_at,omitempty"`
	ReviewedBy  *uuid.UUID              `json:"reviewed_by,omitempty"`
	Notes       string                  `json:"notes,omitempty"`
	UnitNumber  string                  `json:"unit_number"`
	BuildingID  uuid.UUID               `json:"building_id"`
	Building    string                  `json:"building"`
	FullAddress string                  `json:"full_address"`
	Requester   Contact                 `json:"requester"`
}

// ManagerStats are the dashboard counters of one manager
type ManagerStats struct {
	ManagerID       uuid.UUID       `json:"manager_id"`
	Buildings       int             `json:"buildings"`
	TotalFlats      int             `json:"total_flats"`
	OccupiedFlats   int             `json:"occupied_flats"`
	VacantFlats     int             `json:"vacant_flats"`
	PendingRequests int             `json:"pending_requests"`
	OccupancyRate   decimal.Decimal `json:"occupancy_rate"`
	ComputedAt      time.Time       `json:"computed_at"`
}
