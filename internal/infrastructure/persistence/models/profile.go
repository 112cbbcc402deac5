package models

import (
	"github.com/housing/backend/internal/domain/identity"
)

// ProfileModel is the persistence model for identity profiles
type ProfileModel struct {
	BaseModel
	FullName string        `gorm:"type:varchar(200);not null"`
	Email    string        `gorm:"type:varchar(200);index"`
	Phone    string        `gorm:"type:varchar(50)"`
	Role     identity.Role `gorm:"type:varchar(20);not null;index"`
}

// TableName returns the table name for GORM
func (ProfileModel) TableName() string {
	return "profiles"
}

// ToDomain converts the model to a domain Profile
func (m *ProfileModel) ToDomain() *identity.Profile {
	return &identity.Profile{
		BaseEntity: m.BaseModel.ToDomain(),
		FullName:   m.FullName,
		Email:      m.Email,
		Phone:      m.Phone,
		Role:       m.Role,
	}
}

// FromDomain populates the model from a domain Profile
func (m *ProfileModel) FromDomain(p *identity.Profile) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.FullName = p.FullName
	m.Email = p.Email
	m.Phone = p.Phone
	m.Role = p.Role
}
