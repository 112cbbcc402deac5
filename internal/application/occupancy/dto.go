package occupancy

import (
	"github.com/google/uuid"
)

// SubmitRequestCommand asks for requester to occupy a flat
type SubmitRequestCommand struct {
	FlatID      uuid.UUID `json:"flat_id" binding:"required"`
	RequesterID uuid.UUID `json:"requester_id" binding:"required"`
}

// ApproveRequestCommand approves a pending request. Notes are optional.
type ApproveRequestCommand struct {
	RequestID  uuid.UUID `json:"request_id" binding:"required"`
	ReviewerID uuid.UUID `json:"reviewer_id" binding:"required"`
	Notes      string    `json:"notes" binding:"max=2000"`
}

// RejectRequestCommand rejects a pending request. Notes are mandatory.
type RejectRequestCommand struct {
	RequestID  uuid.UUID `json:"request_id" binding:"required"`
	ReviewerID uuid.UUID `json:"reviewer_id" binding:"required"`
	Notes      string    `json:"notes" binding:"max=2000"`
}

// UnassignTenantCommand vacates a flat. When OccupantID is set the flat is
// only vacated if that identity holds it, as when a tenant moves out.
type UnassignTenantCommand struct {
	FlatID     uuid.UUID  `json:"flat_id" binding:"required"`
	OccupantID *uuid.UUID `json:"occupant_id"`
}

// Result is the envelope every mutation returns next to its error.
// Code is empty on success.
type Result struct {
	Success   bool       `json:"success"`
	Message   string     `json:"message"`
	Code      string     `json:"code,omitempty"`
	RequestID *uuid.UUID `json:"request_id,omitempty"`
}

func succeeded(message string) Result {
	return Result{Success: true, Message: message}
}
