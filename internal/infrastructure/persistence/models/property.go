package models

import (
	"github.com/google/uuid"
	"github.com/housing/backend/internal/domain/property"
)

// BuildingModel is the persistence model for buildings
type BuildingModel struct {
	AggregateModel
	Name      string    `gorm:"type:varchar(200);not null"`
	AddressID uuid.UUID `gorm:"type:uuid;not null;index"`
	ManagerID uuid.UUID `gorm:"type:uuid;not null;index"`
}

// TableName returns the table name for GORM
func (BuildingModel) TableName() string {
	return "buildings"
}

// ToDomain converts the model to a domain Building
func (m *BuildingModel) ToDomain() *property.Building {
	return &property.Building{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Name:              m.Name,
		AddressID:         m.AddressID,
		ManagerID:         m.ManagerID,
	}
}

// FromDomain populates the model from a domain Building
func (m *BuildingModel) FromDomain(b *property.Building) {
	m.FromDomainAggregateRoot(b.BaseAggregateRoot)
	m.Name = b.Name
	m.AddressID = b.AddressID
	m.ManagerID = b.ManagerID
}

// BuildingAccountantModel links a building to its accountant
type BuildingAccountantModel struct {
	BaseModel
	BuildingID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	AccountantID uuid.UUID `gorm:"type:uuid;not null;index"`
}

// TableName returns the table name for GORM
func (BuildingAccountantModel) TableName() string {
	return "building_accountants"
}

// ToDomain converts the model to a domain BuildingAccountant
func (m *BuildingAccountantModel) ToDomain() *property.BuildingAccountant {
	return &property.BuildingAccountant{
		BaseEntity:   m.BaseModel.ToDomain(),
		BuildingID:   m.BuildingID,
		AccountantID: m.AccountantID,
	}
}

// FromDomain populates the model from a domain BuildingAccountant
func (m *BuildingAccountantModel) FromDomain(l *property.BuildingAccountant) {
	m.FromDomainBaseEntity(l.BaseEntity)
	m.BuildingID = l.BuildingID
	m.AccountantID = l.AccountantID
}

// FlatModel is the persistence model for flats
type FlatModel struct {
	AggregateModel
	BuildingID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_flat_building_unit,priority:1"`
	UnitNumber string     `gorm:"type:varchar(50);not null;uniqueIndex:idx_flat_building_unit,priority:2"`
	TenantID   *uuid.UUID `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (FlatModel) TableName() string {
	return "flats"
}

// ToDomain converts the model to a domain Flat
func (m *FlatModel) ToDomain() *property.Flat {
	return &property.Flat{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		BuildingID:        m.BuildingID,
		UnitNumber:        m.UnitNumber,
		TenantID:          m.TenantID,
	}
}

// FromDomain populates the model from a domain Flat
func (m *FlatModel) FromDomain(f *property.Flat) {
	m.FromDomainAggregateRoot(f.BaseAggregateRoot)
	m.BuildingID = f.BuildingID
	m.UnitNumber = f.UnitNumber
	m.TenantID = f.TenantID
}
