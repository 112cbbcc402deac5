package occupancy

import (
	"github.com/google/uuid"
	"github.com/housing/backend/internal/domain/shared"
)

// AggregateTypeRequest is the aggregate type for request events
const AggregateTypeRequest = "OccupancyRequest"

// Event type constants for occupancy requests
const (
	EventTypeRequestSubmitted = "OccupancyRequestSubmitted"
	EventTypeRequestApproved  = "OccupancyRequestApproved"
	EventTypeRequestRejected  = "OccupancyRequestRejected"
)

// RequestSubmittedEvent is published when a tenant submits a request
type RequestSubmittedEvent struct {
	shared.BaseDomainEvent
	RequestID   uuid.UUID `json:"request_id"`
	FlatID      uuid.UUID `json:"flat_id"`
	RequesterID uuid.UUID `json:"requester_id"`
}

// NewRequestSubmittedEvent creates a RequestSubmittedEvent
func NewRequestSubmittedEvent(r *Request) *RequestSubmittedEvent {
	return &RequestSubmittedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRequestSubmitted, AggregateTypeRequest, r.ID),
		RequestID:       r.ID,
		FlatID:          r.FlatID,
		RequesterID:     r.RequesterID,
	}
}

// RequestReviewedEvent carries the outcome of a review
type RequestReviewedEvent struct {
	shared.BaseDomainEvent
	RequestID   uuid.UUID     `json:"request_id"`
	FlatID      uuid.UUID     `json:"flat_id"`
	RequesterID uuid.UUID     `json:"requester_id"`
	ReviewerID  uuid.UUID     `json:"reviewer_id"`
	Status      RequestStatus `json:"status"`
	Notes       string        `json:"notes,omitempty"`
}

// NewRequestApprovedEvent creates the approved variant
func NewRequestApprovedEvent(r *Request) *RequestReviewedEvent {
	return newReviewedEvent(EventTypeRequestApproved, r)
}

// NewRequestRejectedEvent creates the rejected variant
func NewRequestRejectedEvent(r *Request) *RequestReviewedEvent {
	return newReviewedEvent(EventTypeRequestRejected, r)
}

func newReviewedEvent(eventType string, r *Request) *RequestReviewedEvent {
	var reviewer uuid.UUID
	if r.ReviewedBy != nil {
		reviewer = *r.ReviewedBy
	}
	return &RequestReviewedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeRequest, r.ID),
		RequestID:       r.ID,
		FlatID:          r.FlatID,
		RequesterID:     r.RequesterID,
		ReviewerID:      reviewer,
		Status:          r.Status,
		Notes:           r.Notes,
	}
}
