package location

import (
	"strings"

	"github.com/google/uuid"
	"github.com/housing/backend/internal/domain/shared"
)

// County is the top level of the administrative hierarchy
type County struct {
	shared.BaseEntity
	Name string
}

// Municipality belongs to exactly one County
type Municipality struct {
	shared.BaseEntity
	CountyID uuid.UUID
	Name     string
}

// Settlement belongs to exactly one Municipality. Type is free text such as
// "city" or "village" and is rendered after the settlement name.
type Settlement struct {
	shared.BaseEntity
	MunicipalityID uuid.UUID
	Name           string
	Type           string
}

// NewCounty creates a county
func NewCounty(name string) (*County, error) {
	if err := validateName("county", name); err != nil {
		return nil, err
	}
	return &County{BaseEntity: shared.NewBaseEntity(), Name: strings.TrimSpace(name)}, nil
}

// NewMunicipality creates a municipality under the given county
func NewMunicipality(countyID uuid.UUID, name string) (*Municipality, error) {
	if countyID == uuid.Nil {
		return nil, shared.Validationf("municipality must reference a county")
	}
	if err := validateName("municipality", name); err != nil {
		return nil, err
	}
	return &Municipality{
		BaseEntity: shared.NewBaseEntity(),
		CountyID:   countyID,
		Name:       strings.TrimSpace(name),
	}, nil
}

// NewSettlement creates a settlement under the given municipality
func NewSettlement(municipalityID uuid.UUID, name, settlementType string) (*Settlement, error) {
	if municipalityID == uuid.Nil {
		return nil, shared.Validationf("settlement must reference a municipality")
	}
	if err := validateName("settlement", name); err != nil {
		return nil, err
	}
	return &Settlement{
		BaseEntity:     shared.NewBaseEntity(),
		MunicipalityID: municipalityID,
		Name:           strings.TrimSpace(name),
		Type:           strings.TrimSpace(settlementType),
	}, nil
}

// Label renders the settlement as "<name> <type>", omitting an empty type
func (s *Settlement) Label() string {
	if s.Type == "" {
		return s.Name
	}
	return s.Name + " " + s.Type
}

func validateName(kind, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.Validationf("%s name cannot be empty", kind)
	}
	if len(name) > 200 {
		return shared.Validationf("%s name cannot exceed 200 characters", kind)
	}
	return nil
}
