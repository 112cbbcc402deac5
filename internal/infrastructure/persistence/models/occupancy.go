package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/housing/backend/internal/domain/occupancy"
)

// OccupancyRequestModel is the persistence model for occupancy requests.
// The partial unique index allows one pending request per flat and requester.
type OccupancyRequestModel struct {
	AggregateModel
	FlatID      uuid.UUID               `gorm:"type:uuid;not null;index;uniqueIndex:idx_request_pending_pair,priority:1,where:status = 'pending'"`
	RequesterID uuid.UUID               `gorm:"type:uuid;not null;index;uniqueIndex:idx_request_pending_pair,priority:2,where:status = 'pending'"`
	Status      occupancy.RequestStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	ReviewedAt  *time.Time
	ReviewedBy  *uuid.UUID `gorm:"type:uuid"`
	Notes       string     `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (OccupancyRequestModel) TableName() string {
	return "occupancy_requests"
}

// ToDomain converts the model to a domain Request
func (m *OccupancyRequestModel) ToDomain() *occupancy.Request {
	return &occupancy.Request{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		FlatID:            m.FlatID,
		RequesterID:       m.RequesterID,
		Status:            m.Status,
		ReviewedAt:        m.ReviewedAt,
		ReviewedBy:        m.ReviewedBy,
		Notes:             m.Notes,
	}
}

// FromDomain populates the model from a domain Request
func (m *OccupancyRequestModel) FromDomain(r *occupancy.Request) {
	m.FromDomainAggregateRoot(r.BaseAggregateRoot)
	m.FlatID = r.FlatID
	m.RequesterID = r.RequesterID
	m.Status = r.Status
	m.ReviewedAt = r.ReviewedAt
	m.ReviewedBy = r.ReviewedBy
	m.Notes = r.Notes
}

// ApprovalIntentModel is the persistence model for the approval journal
type ApprovalIntentModel struct {
	BaseModel
	RequestID   uuid.UUID             `gorm:"type:uuid;not null;index"`
	FlatID      uuid.UUID             `gorm:"type:uuid;not null"`
	RequesterID uuid.UUID             `gorm:"type:uuid;not null"`
	ReviewerID  uuid.UUID             `gorm:"type:uuid;not null"`
	Notes       string                `gorm:"type:text"`
	Stage       occupancy.IntentStage `gorm:"type:varchar(20);not null;index"`
	LastError   string                `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (ApprovalIntentModel) TableName() string {
	return "approval_intents"
}

// ToDomain converts the model to a domain ApprovalIntent
func (m *ApprovalIntentModel) ToDomain() *occupancy.ApprovalIntent {
	return &occupancy.ApprovalIntent{
		BaseEntity:  m.BaseModel.ToDomain(),
		RequestID:   m.RequestID,
		FlatID:      m.FlatID,
		RequesterID: m.RequesterID,
		ReviewerID:  m.ReviewerID,
		Notes:       m.Notes,
		Stage:       m.Stage,
		LastError:   m.LastError,
	}
}

// FromDomain populates the model from a domain ApprovalIntent
func (m *ApprovalIntentModel) FromDomain(i *occupancy.ApprovalIntent) {
	m.FromDomainBaseEntity(i.BaseEntity)
	m.RequestID = i.RequestID
	m.FlatID = i.FlatID
	m.RequesterID = i.RequesterID
	m.ReviewerID = i.ReviewerID
	m.Notes = i.Notes
	m.Stage = i.Stage
	m.LastError = i.LastError
}

// All returns every model in migration order, for AutoMigrate in tests
func All() []interface{} {
	return []interface{}{
		&CountyModel{},
		&MunicipalityModel{},
		&SettlementModel{},
		&AddressModel{},
		&ProfileModel{},
		&BuildingModel{},
		&BuildingAccountantModel{},
		&FlatModel{},
		&OccupancyRequestModel{},
		&ApprovalIntentModel{},
	}
}
