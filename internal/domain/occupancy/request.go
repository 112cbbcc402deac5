package occupancy

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/housing/backend/internal/domain/shared"
)

// RequestStatus is the lifecycle state of an occupancy request
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
)

// IsTerminal reports whether no further transitions are allowed
func (s RequestStatus) IsTerminal() bool {
	return s == RequestStatusApproved || s == RequestStatusRejected
}

// IsValid reports whether the status is known
func (s RequestStatus) IsValid() bool {
	return s == RequestStatusPending || s.IsTerminal()
}

// Request is a tenant's application to occupy a flat.
//
//	pending --Approve--> approved
//	pending --Reject---> rejected
//
// approved and rejected are terminal.
type Request struct {
	shared.BaseAggregateRoot
	FlatID      uuid.UUID
	RequesterID uuid.UUID
	Status      RequestStatus
	ReviewedAt  *time.Time
	ReviewedBy  *uuid.UUID
	Notes       string
}

// NewRequest creates a pending request
func NewRequest(flatID, requesterID uuid.UUID) (*Request, error) {
	if flatID == uuid.Nil {
		return nil, shared.Validationf("request must reference a flat")
	}
	if requesterID == uuid.Nil {
		return nil, shared.Validationf("request must have a requester")
	}
	r := &Request{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		FlatID:            flatID,
		RequesterID:       requesterID,
		Status:            RequestStatusPending,
	}
	r.AddDomainEvent(NewRequestSubmittedEvent(r))
	return r, nil
}

// IsPending reports whether the request awaits review
func (r *Request) IsPending() bool {
	return r.Status == RequestStatusPending
}

// Approve moves a pending request to approved
func (r *Request) Approve(reviewerID uuid.UUID, notes string, at time.Time) error {
	if err := r.review(reviewerID, RequestStatusApproved, strings.TrimSpace(notes), at); err != nil {
		return err
	}
	r.AddDomainEvent(NewRequestApprovedEvent(r))
	return nil
}

// Reject moves a pending request to rejected. Notes are mandatory.
func (r *Request) Reject(reviewerID uuid.UUID, notes string, at time.Time) error {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return shared.Validationf("rejection notes are required")
	}
	if err := r.review(reviewerID, RequestStatusRejected, notes, at); err != nil {
		return err
	}
	r.AddDomainEvent(NewRequestRejectedEvent(r))
	return nil
}

func (r *Request) review(reviewerID uuid.UUID, to RequestStatus, notes string, at time.Time) error {
	if !r.IsPending() {
		return shared.Conflictf("request is already %s", r.Status)
	}
	if reviewerID == uuid.Nil {
		return shared.Validationf("reviewer is required")
	}
	reviewer := reviewerID
	reviewedAt := at
	r.Status = to
	r.ReviewedBy = &reviewer
	r.ReviewedAt = &reviewedAt
	r.Notes = notes
	r.UpdatedAt = at
	r.IncrementVersion()
	return nil
}
