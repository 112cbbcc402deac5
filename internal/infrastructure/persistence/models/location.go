package models

import (
	"github.com/google/uuid"
	"github.com/housing/backend/internal/domain/location"
)

// CountyModel is the persistence model for counties
type CountyModel struct {
	BaseModel
	Name string `gorm:"type:varchar(200);not null"`
}

// TableName returns the table name for GORM
func (CountyModel) TableName() string {
	return "counties"
}

// ToDomain converts the model to a domain County
func (m *CountyModel) ToDomain() *location.County {
	return &location.County{BaseEntity: m.BaseModel.ToDomain(), Name: m.Name}
}

// FromDomain populates the model from a domain County
func (m *CountyModel) FromDomain(c *location.County) {
	m.FromDomainBaseEntity(c.BaseEntity)
	m.Name = c.Name
}

// MunicipalityModel is the persistence model for municipalities
type MunicipalityModel struct {
	BaseModel
	CountyID uuid.UUID `gorm:"type:uuid;not null;index"`
	Name     string    `gorm:"type:varchar(200);not null"`
}

// TableName returns the table name for GORM
func (MunicipalityModel) TableName() string {
	return "municipalities"
}

// ToDomain converts the model to a domain Municipality
func (m *MunicipalityModel) ToDomain() *location.Municipality {
	return &location.Municipality{BaseEntity: m.BaseModel.ToDomain(), CountyID: m.CountyID, Name: m.Name}
}

// FromDomain populates the model from a domain Municipality
func (m *MunicipalityModel) FromDomain(mu *location.Municipality) {
	m.FromDomainBaseEntity(mu.BaseEntity)
	m.CountyID = mu.CountyID
	m.Name = mu.Name
}

// SettlementModel is the persistence model for settlements
type SettlementModel struct {
	BaseModel
	MunicipalityID uuid.UUID `gorm:"type:uuid;not null;index"`
	Name           string    `gorm:"type:varchar(200);not null"`
	Type           string    `gorm:"type:varchar(50);not null;default:''"`
}

// TableName returns the table name for GORM
func (SettlementModel) TableName() string {
	return "settlements"
}

// ToDomain converts the model to a domain Settlement
func (m *SettlementModel) ToDomain() *location.Settlement {
	return &location.Settlement{
		BaseEntity:     m.BaseModel.ToDomain(),
		MunicipalityID: m.MunicipalityID,
		Name:           m.Name,
		Type:           m.Type,
	}
}

// FromDomain populates the model from a domain Settlement
func (m *SettlementModel) FromDomain(s *location.Settlement) {
	m.FromDomainBaseEntity(s.BaseEntity)
	m.MunicipalityID = s.MunicipalityID
	m.Name = s.Name
	m.Type = s.Type
}

// AddressModel is the persistence model for addresses
type AddressModel struct {
	BaseModel
	SettlementID uuid.UUID              `gorm:"type:uuid;not null;index"`
	Street       string                 `gorm:"type:varchar(300);not null"`
	Status       location.AddressStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	CreatedBy    *uuid.UUID             `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (AddressModel) TableName() string {
	return "addresses"
}

// ToDomain converts the model to a domain Address
func (m *AddressModel) ToDomain() *location.Address {
	return &location.Address{
		BaseEntity:   m.BaseModel.ToDomain(),
		SettlementID: m.SettlementID,
		Street:       m.Street,
		Status:       m.Status,
		CreatedBy:    m.CreatedBy,
	}
}

// FromDomain populates the model from a domain Address
func (m *AddressModel) FromDomain(a *location.Address) {
	m.FromDomainBaseEntity(a.BaseEntity)
	m.SettlementID = a.SettlementID
	m.Street = a.Street
	m.Status = a.Status
	m.CreatedBy = a.CreatedBy
}
