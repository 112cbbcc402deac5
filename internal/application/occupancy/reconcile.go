package occupancy

import (
	"context"
	"errors"

	"github.com/housing/backend/internal/domain/occupancy"
	"github.com/housing/backend/internal/domain/property"
	"github.com/housing/backend/internal/domain/shared"
	"go.uber.org/zap"
)

var (
	errRequestGone    = errors.New("request no longer exists")
	errFlatGone       = errors.New("flat no longer exists")
	errRejectedMidway = errors.New("request was rejected while being approved")
	errNotAssigned    = errors.New("flat was never assigned to the requester")
)

// Reconcile settles approval intents left open for longer than the grace
// period and returns how many were closed
func (s *Service) Reconcile(ctx context.Context) (int, error) {
	intents, err := s.store.StaleIntents(ctx, s.now().Add(-s.grace), s.batch)
	if err != nil {
		return 0, err
	}

	closed := 0
	var errs []error
	for i := range intents {
		if err := s.repair(ctx, &intents[i]); err != nil {
			s.logger.Warn("Approval intent left open",
				zap.String("intent_id", intents[i].ID.String()),
				zap.String("request_id", intents[i].RequestID.String()),
				zap.Error(err))
			errs = append(errs, err)
			continue
		}
		closed++
	}
	s.metrics.RecordReconciled(ctx, closed)
	return closed, errors.Join(errs...)
}

// repair finishes or rolls back one open intent based on what the store
// holds now. A flat held by the requester means write 1 landed, whatever
// stage the journal recorded.
func (s *Service) repair(ctx context.Context, intent *occupancy.ApprovalIntent) error {
	req, err := s.store.Request(ctx, intent.RequestID)
	if err != nil {
		if shared.IsNotFound(err) {
			return s.close(ctx, intent, occupancy.IntentStageAborted, errRequestGone)
		}
		return err
	}
	flat, err := s.store.Flat(ctx, intent.FlatID)
	if err != nil {
		if shared.IsNotFound(err) {
			return s.close(ctx, intent, occupancy.IntentStageAborted, errFlatGone)
		}
		return err
	}
	held := flat.IsOccupiedBy(intent.RequesterID)

	switch {
	case req.Status == occupancy.RequestStatusApproved:
		err = s.close(ctx, intent, occupancy.IntentStageCompleted, nil)

	case req.Status == occupancy.RequestStatusRejected:
		if held {
			if err := s.store.ClearFlatTenant(ctx, flat.ID); err != nil {
				return err
			}
			s.publish(ctx, property.NewFlatVacatedEvent(flat, flat.TenantID))
		}
		err = s.close(ctx, intent, occupancy.IntentStageAborted, errRejectedMidway)

	case held:
		if err := req.Approve(intent.ReviewerID, intent.Notes, s.now()); err != nil {
			return err
		}
		if err := s.store.UpdateRequestReview(ctx, req); err != nil {
			return err
		}
		s.publish(ctx, req.GetDomainEvents()...)
		req.ClearDomainEvents()
		err = s.close(ctx, intent, occupancy.IntentStageCompleted, nil)

	default:
		err = s.close(ctx, intent, occupancy.IntentStageAborted, errNotAssigned)
	}
	if err != nil {
		return err
	}

	s.logger.Info("Approval intent reconciled",
		zap.String("request_id", intent.RequestID.String()),
		zap.String("stage", string(intent.Stage)))
	s.invalidateAssignmentViews(ctx, s.building(ctx, flat.BuildingID), intent.RequesterID)
	return nil
}

func (s *Service) close(ctx context.Context, intent *occupancy.ApprovalIntent, stage occupancy.IntentStage, cause error) error {
	intent.Advance(stage, cause, s.now())
	return s.store.UpdateIntent(ctx, intent)
}
