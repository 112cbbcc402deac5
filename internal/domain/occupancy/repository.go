package occupancy

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/housing/backend/internal/domain/shared"
)

// RequestRepository defines persistence for occupancy requests
type RequestRepository interface {
	// FindByID returns shared.ErrNotFound when the request does not exist
	FindByID(ctx context.Context, id uuid.UUID) (*Request, error)

	// FindAll lists requests matching the filter (flat_id, requester_id, status)
	FindAll(ctx context.Context, filter shared.Filter) ([]Request, error)

	// Count counts requests matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// Create inserts a new request. A second pending request for the same
	// flat and requester fails with shared.ErrConflict.
	Create(ctx context.Context, request *Request) error

	// UpdateReview persists the review fields only if the stored request is
	// still pending. Returns shared.ErrConflict otherwise.
	UpdateReview(ctx context.Context, request *Request) error
}

// IntentRepository defines persistence for the approval journal
type IntentRepository interface {
	Create(ctx context.Context, intent *ApprovalIntent) error
	Update(ctx context.Context, intent *ApprovalIntent) error

	// FindOpenByRequest returns the unfinished intent for a request, or
	// shared.ErrNotFound
	FindOpenByRequest(ctx context.Context, requestID uuid.UUID) (*ApprovalIntent, error)

	// FindOpen lists unfinished intents last touched before olderThan
	FindOpen(ctx context.Context, olderThan time.Time, limit int) ([]ApprovalIntent, error)
}
