package occupancy

import (
	"time"

	"github.com/google/uuid"
	"github.com/housing/backend/internal/domain/shared"
)

// IntentStage tracks how far an approval got. Approve writes to two records
// without a transaction; the intent row makes a half-finished approval
// visible so it can be completed or rolled back later.
type IntentStage string

const (
	IntentStageStarted      IntentStage = "started"
	IntentStageFlatAssigned IntentStage = "flat_assigned"
	IntentStageCompleted    IntentStage = "completed"
	IntentStageAborted      IntentStage = "aborted"
)

// IsOpen reports whether the intent still needs work
func (s IntentStage) IsOpen() bool {
	return s == IntentStageStarted || s == IntentStageFlatAssigned
}

// ApprovalIntent is the journal row for one Approve call
type ApprovalIntent struct {
	shared.BaseEntity
	RequestID   uuid.UUID
	FlatID      uuid.UUID
	RequesterID uuid.UUID
	ReviewerID  uuid.UUID
	Notes       string
	Stage       IntentStage
	LastError   string
}

// NewApprovalIntent starts a journal entry for approving request, stamped at
func NewApprovalIntent(request *Request, reviewerID uuid.UUID, notes string, at time.Time) *ApprovalIntent {
	base := shared.NewBaseEntity()
	base.CreatedAt, base.UpdatedAt = at, at
	return &ApprovalIntent{
		BaseEntity:  base,
		RequestID:   request.ID,
		FlatID:      request.FlatID,
		RequesterID: request.RequesterID,
		ReviewerID:  reviewerID,
		Notes:       notes,
		Stage:       IntentStageStarted,
	}
}

// Advance moves the intent to stage and records the failure, if any
func (i *ApprovalIntent) Advance(stage IntentStage, cause error, at time.Time) {
	i.Stage = stage
	if cause != nil {
		i.LastError = cause.Error()
	}
	i.UpdatedAt = at
}

// Age returns how long ago the intent was last touched
func (i *ApprovalIntent) Age(now time.Time) time.Duration {
	return now.Sub(i.UpdatedAt)
}
