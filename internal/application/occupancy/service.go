// Package occupancy drives the occupancy request state machine and the flat
// tenant assignments that follow from it. It is the only writer of the
// "one tenant per flat" relation besides the store's own guard.
package occupancy

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/housing/backend/internal/domain/location"
	"github.com/housing/backend/internal/domain/occupancy"
	"github.com/housing/backend/internal/domain/property"
	"github.com/housing/backend/internal/domain/shared"
	"github.com/housing/backend/internal/infrastructure/config"
	"github.com/housing/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Defaults for the approval journal sweep
const (
	DefaultReconcileGrace = time.Minute
	DefaultReconcileBatch = 100
)

// Mutation names, also used as metric labels
const (
	OpSubmit   = "submit"
	OpApprove  = "approve"
	OpReject   = "reject"
	OpUnassign = "unassign"
)

// Store is the part of the lookup client the lifecycle needs
type Store interface {
	Flat(ctx context.Context, id uuid.UUID) (*property.Flat, error)
	Building(ctx context.Context, id uuid.UUID) (*property.Building, error)
	Address(ctx context.Context, id uuid.UUID) (*location.Address, error)
	Request(ctx context.Context, id uuid.UUID) (*occupancy.Request, error)
	CountRequests(ctx context.Context, filter shared.Filter) (int64, error)

	InsertRequest(ctx context.Context, r *occupancy.Request) error
	UpdateRequestReview(ctx context.Context, r *occupancy.Request) error
	AssignFlatTenant(ctx context.Context, flatID, tenantID uuid.UUID) error
	ClearFlatTenant(ctx context.Context, flatID uuid.UUID) error

	RecordIntent(ctx context.Context, intent *occupancy.ApprovalIntent) error
	UpdateIntent(ctx context.Context, intent *occupancy.ApprovalIntent) error
	OpenIntent(ctx context.Context, requestID uuid.UUID) (*occupancy.ApprovalIntent, error)
	StaleIntents(ctx context.Context, olderThan time.Time, limit int) ([]occupancy.ApprovalIntent, error)
}

// Views drops cached views after a mutation. *directory.Service implements it.
type Views interface {
	InvalidateOverviews(ctx context.Context, managerID uuid.UUID)
	InvalidateFlats(ctx context.Context, buildingID uuid.UUID)
	InvalidateStats(ctx context.Context, managerID uuid.UUID)
	InvalidateRequests(ctx context.Context, who uuid.UUID)
}

// Metrics receives lifecycle measurements. *telemetry.DirectoryMetrics implements it.
type Metrics interface {
	RecordMutation(ctx context.Context, operation string, err error)
	RecordReconciled(ctx context.Context, n int)
}

type nopMetrics struct{}

func (nopMetrics) RecordMutation(context.Context, string, error) {}
func (nopMetrics) RecordReconciled(context.Context, int) {}

// Option configures the Service
type Option func(*Service)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink
func WithMetrics(m Metrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service handles occupancy request business operations
type Service struct {
	store          Store
	views          Views
	eventPublisher shared.EventPublisher
	validate       *validator.Validate
	metrics        Metrics
	logger         *zap.Logger
	now            func() time.Time

	grace time.Duration
	batch int
}

// NewService creates a new Service
func NewService(store Store, views Views, cfg config.LifecycleConfig, opts ...Option) *Service {
	s := &Service{
		store:    store,
		views:    views,
		validate: newValidator(),
		metrics:  nopMetrics{},
		logger:   zap.NewNop(),
		now:      time.Now,
		grace:    cfg.ReconcileGrace,
		batch:    cfg.ReconcileBatch,
	}
	if s.grace <= 0 {
		s.grace = DefaultReconcileGrace
	}
	if s.batch <= 0 {
		s.batch = DefaultReconcileBatch
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetEventPublisher sets the publisher lifecycle events go to
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (s *Service) check(cmd any) error {
	err := s.validate.Struct(cmd)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		switch fe.Tag() {
		case "required":
			return shared.Validationf("%s is required", fe.Field())
		case "max":
			return shared.Validationf("%s must be at most %s characters", fe.Field(), fe.Param())
		}
		return shared.Validationf("%s is invalid", fe.Field())
	}
	return shared.Validationf("invalid command: %v", err)
}

// Submit files a pending request for requester to occupy a flat
func (s *Service) Submit(ctx context.Context, cmd SubmitRequestCommand) (Result, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "occupancy", OpSubmit,
		telemetry.WithAttribute(telemetry.SpanAttrFlatID, cmd.FlatID.String()))
	defer span.End()
	res, err := s.submit(ctx, cmd)
	return s.finish(ctx, span, OpSubmit, res, err)
}

func (s *Service) submit(ctx context.Context, cmd SubmitRequestCommand) (Result, error) {
	if err := s.check(cmd); err != nil {
		return Result{}, err
	}

	pending, err := s.store.CountRequests(ctx, shared.DefaultFilter().
		Where("flat_id", cmd.FlatID).
		Where("requester_id", cmd.RequesterID).
		Where("status", occupancy.RequestStatusPending))
	if err != nil {
		return Result{}, err
	}
	if pending > 0 {
		return Result{}, shared.Conflictf("a pending request for this flat already exists")
	}

	flat, err := s.store.Flat(ctx, cmd.FlatID)
	if err != nil {
		return Result{}, err
	}
	building, err := s.store.Building(ctx, flat.BuildingID)
	if err != nil {
		return Result{}, err
	}
	address, err := s.store.Address(ctx, building.AddressID)
	if err != nil {
		return Result{}, err
	}
	if !address.IsApproved() {
		return Result{}, shared.NotFoundf("address %q is not approved", address.Street)
	}
	if flat.IsOccupied() {
		return Result{}, shared.Conflictf("flat %s already has a tenant", flat.UnitNumber)
	}

	req, err := occupancy.NewRequest(flat.ID, cmd.RequesterID)
	if err != nil {
		return Result{}, err
	}
	if err := s.store.InsertRequest(ctx, req); err != nil {
		return Result{}, err
	}

	s.publish(ctx, req.GetDomainEvents()...)
	req.ClearDomainEvents()
	s.invalidateRequestViews(ctx, building, req.RequesterID)

	res := succeeded("Request submitted")
	res.RequestID = &req.ID
	return res, nil
}

// Approve assigns the flat to the requester and marks the request approved.
// The two writes are journaled so a failure between them can be repaired.
func (s *Service) Approve(ctx context.Context, cmd ApproveRequestCommand) (Result, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "occupancy", OpApprove,
		telemetry.WithAttribute(telemetry.SpanAttrRequestID, cmd.RequestID.String()))
	defer span.End()
	res, err := s.approve(ctx, cmd)
	return s.finish(ctx, span, OpApprove, res, err)
}

func (s *Service) approve(ctx context.Context, cmd ApproveRequestCommand) (Result, error) {
	if err := s.check(cmd); err != nil {
		return Result{}, err
	}
	req, err := s.reviewable(ctx, cmd.RequestID)
	if err != nil {
		return Result{}, err
	}
	flat, err := s.store.Flat(ctx, req.FlatID)
	if err != nil {
		return Result{}, err
	}
	building, err := s.store.Building(ctx, flat.BuildingID)
	if err != nil {
		return Result{}, err
	}
	if flat.IsOccupied() && !flat.IsOccupiedBy(req.RequesterID) {
		return Result{}, shared.Conflictf("flat %s already has a tenant", flat.UnitNumber)
	}

	intent := occupancy.NewApprovalIntent(req, cmd.ReviewerID, cmd.Notes, s.now())
	if err := s.store.RecordIntent(ctx, intent); err != nil {
		return Result{}, err
	}

	if err := s.store.AssignFlatTenant(ctx, flat.ID, req.RequesterID); err != nil {
		stage := occupancy.IntentStageAborted
		if shared.IsTransport(err) {
			// the write may have landed; leave it to repair
			stage = occupancy.IntentStageStarted
		}
		s.advance(ctx, intent, stage, err)
		return Result{}, err
	}
	s.advance(ctx, intent, occupancy.IntentStageFlatAssigned, nil)

	if err := req.Approve(cmd.ReviewerID, cmd.Notes, s.now()); err != nil {
		s.advance(ctx, intent, occupancy.IntentStageFlatAssigned, err)
		s.invalidateAssignmentViews(ctx, building, req.RequesterID)
		return Result{}, err
	}
	if err := s.store.UpdateRequestReview(ctx, req); err != nil {
		s.advance(ctx, intent, occupancy.IntentStageFlatAssigned, err)
		if shared.IsConflict(err) {
			// reviewed elsewhere in the meantime, undo our half now
			if rerr := s.repair(ctx, intent); rerr != nil {
				s.logger.Warn("Approval repair failed",
					zap.String("request_id", req.ID.String()),
					zap.Error(rerr))
			}
		}
		s.invalidateAssignmentViews(ctx, building, req.RequesterID)
		return Result{}, err
	}
	s.advance(ctx, intent, occupancy.IntentStageCompleted, nil)

	events := append([]shared.DomainEvent{property.NewFlatTenantAssignedEvent(flat, req.RequesterID)}, req.GetDomainEvents()...)
	s.publish(ctx, events...)
	req.ClearDomainEvents()
	s.invalidateAssignmentViews(ctx, building, req.RequesterID)

	res := succeeded("Request approved")
	res.RequestID = &req.ID
	return res, nil
}

// Reject marks a pending request rejected. Notes are mandatory.
func (s *Service) Reject(ctx context.Context, cmd RejectRequestCommand) (Result, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "occupancy", OpReject,
		telemetry.WithAttribute(telemetry.SpanAttrRequestID, cmd.RequestID.String()))
	defer span.End()
	res, err := s.reject(ctx, cmd)
	return s.finish(ctx, span, OpReject, res, err)
}

func (s *Service) reject(ctx context.Context, cmd RejectRequestCommand) (Result, error) {
	if err := s.check(cmd); err != nil {
		return Result{}, err
	}
	notes := strings.TrimSpace(cmd.Notes)
	if notes == "" {
		return Result{}, shared.Validationf("rejection notes are required")
	}
	req, err := s.reviewable(ctx, cmd.RequestID)
	if err != nil {
		return Result{}, err
	}
	if err := req.Reject(cmd.ReviewerID, notes, s.now()); err != nil {
		return Result{}, err
	}
	if err := s.store.UpdateRequestReview(ctx, req); err != nil {
		return Result{}, err
	}

	s.publish(ctx, req.GetDomainEvents()...)
	req.ClearDomainEvents()
	s.invalidateRequestViews(ctx, s.buildingOfFlat(ctx, req.FlatID), req.RequesterID)

	res := succeeded("Request rejected")
	res.RequestID = &req.ID
	return res, nil
}

// Unassign vacates a flat. Requests are left untouched.
func (s *Service) Unassign(ctx context.Context, cmd UnassignTenantCommand) (Result, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "occupancy", OpUnassign,
		telemetry.WithAttribute(telemetry.SpanAttrFlatID, cmd.FlatID.String()))
	defer span.End()
	res, err := s.unassign(ctx, cmd)
	return s.finish(ctx, span, OpUnassign, res, err)
}

func (s *Service) unassign(ctx context.Context, cmd UnassignTenantCommand) (Result, error) {
	if err := s.check(cmd); err != nil {
		return Result{}, err
	}
	flat, err := s.store.Flat(ctx, cmd.FlatID)
	if err != nil {
		return Result{}, err
	}
	if cmd.OccupantID != nil && !flat.IsOccupiedBy(*cmd.OccupantID) {
		return Result{}, shared.Forbiddenf("flat %s is not held by the caller", flat.UnitNumber)
	}
	if err := s.store.ClearFlatTenant(ctx, flat.ID); err != nil {
		return Result{}, err
	}

	s.publish(ctx, property.NewFlatVacatedEvent(flat, flat.TenantID))
	s.invalidateVacancyViews(ctx, flat.BuildingID)
	return succeeded("Tenant unassigned"), nil
}

// reviewable loads a pending request, first settling any approval of it
// that was left half done
func (s *Service) reviewable(ctx context.Context, requestID uuid.UUID) (*occupancy.Request, error) {
	req, err := s.store.Request(ctx, requestID)
	if err != nil {
		return nil, err
	}

	intent, err := s.store.OpenIntent(ctx, requestID)
	switch {
	case shared.IsNotFound(err):
	case err != nil:
		return nil, err
	case intent.LastError == "" && intent.Age(s.now()) < s.grace:
		return nil, shared.Conflictf("request is being approved")
	default:
		if err := s.repair(ctx, intent); err != nil {
			return nil, err
		}
		if req, err = s.store.Request(ctx, requestID); err != nil {
			return nil, err
		}
	}

	if !req.IsPending() {
		return nil, shared.Conflictf("request is already %s", req.Status)
	}
	return req, nil
}

func (s *Service) finish(ctx context.Context, span trace.Span, op string, res Result, err error) (Result, error) {
	s.metrics.RecordMutation(ctx, op, err)
	if err == nil {
		return res, nil
	}
	telemetry.RecordError(span, err)
	if shared.IsTransport(err) {
		s.logger.Warn("Occupancy mutation failed",
			zap.String("operation", op),
			zap.Error(err))
	} else {
		s.logger.Debug("Occupancy mutation refused",
			zap.String("operation", op),
			zap.String("code", shared.Code(err)),
			zap.Error(err))
	}
	return Result{Success: false, Message: describe(err), Code: shared.Code(err)}, err
}

// describe turns err into a message fit for the result envelope
func describe(err error) string {
	var le *shared.LookupError
	if errors.As(err, &le) {
		what := strings.ReplaceAll(le.Entity, "_", " ")
		var de *shared.DomainError
		switch {
		case shared.IsNotFound(le.Cause):
			return what + " not found"
		case errors.As(le.Cause, &de) && de != shared.ErrConflict:
			return de.Message
		case shared.IsConflict(le.Cause):
			return what + " was modified by someone else"
		}
		return fmt.Sprintf("data store unavailable (%s %s)", what, le.Op)
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}

func (s *Service) advance(ctx context.Context, intent *occupancy.ApprovalIntent, stage occupancy.IntentStage, cause error) {
	intent.Advance(stage, cause, s.now())
	if err := s.store.UpdateIntent(ctx, intent); err != nil {
		s.logger.Warn("Failed to journal approval stage",
			zap.String("intent_id", intent.ID.String()),
			zap.String("stage", string(stage)),
			zap.Error(err))
	}
}

func (s *Service) publish(ctx context.Context, events ...shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish domain events", zap.Error(err))
	}
}

// buildingOfFlat is a best-effort lookup used only to scope invalidation
func (s *Service) buildingOfFlat(ctx context.Context, flatID uuid.UUID) *property.Building {
	flat, err := s.store.Flat(ctx, flatID)
	if err != nil {
		s.logger.Warn("Cannot resolve flat for invalidation", zap.String("flat_id", flatID.String()), zap.Error(err))
		return nil
	}
	return s.building(ctx, flat.BuildingID)
}

func (s *Service) building(ctx context.Context, buildingID uuid.UUID) *property.Building {
	b, err := s.store.Building(ctx, buildingID)
	if err != nil {
		s.logger.Warn("Cannot resolve building for invalidation", zap.String("building_id", buildingID.String()), zap.Error(err))
		return nil
	}
	return b
}

func (s *Service) invalidateRequestViews(ctx context.Context, building *property.Building, requesterID uuid.UUID) {
	s.views.InvalidateRequests(ctx, requesterID)
	if building == nil {
		return
	}
	s.views.InvalidateRequests(ctx, building.ManagerID)
	s.views.InvalidateStats(ctx, building.ManagerID)
}

func (s *Service) invalidateAssignmentViews(ctx context.Context, building *property.Building, requesterID uuid.UUID) {
	s.invalidateRequestViews(ctx, building, requesterID)
	if building == nil {
		return
	}
	s.views.InvalidateFlats(ctx, building.ID)
	s.views.InvalidateOverviews(ctx, building.ManagerID)
}

func (s *Service) invalidateVacancyViews(ctx context.Context, buildingID uuid.UUID) {
	s.views.InvalidateFlats(ctx, buildingID)
	if building := s.building(ctx, buildingID); building != nil {
		s.views.InvalidateStats(ctx, building.ManagerID)
		s.views.InvalidateOverviews(ctx, building.ManagerID)
	}
}
