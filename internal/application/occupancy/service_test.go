package occupancy_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	appoccupancy "github.com/housing/backend/internal/application/occupancy"
	"github.com/housing/backend/internal/domain/identity"
	"github.com/housing/backend/internal/domain/occupancy"
	"github.com/housing/backend/internal/domain/property"
	"github.com/housing/backend/internal/domain/shared"
	"github.com/housing/backend/internal/infrastructure/config"
	"github.com/housing/backend/internal/infrastructure/event"
	"github.com/housing/backend/tests/testutil"
	"github.com/housing/backend/tests/testutil/fixture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// faultyStore fails the next request review update when reviewErr is set
type faultyStore struct {
	appoccupancy.Store

	mu        sync.Mutex
	reviewErr error
}

func (f *faultyStore) UpdateRequestReview(ctx context.Context, r *occupancy.Request) error {
	f.mu.Lock()
	err := f.reviewErr
	f.reviewErr = nil
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.Store.UpdateRequestReview(ctx, r)
}

// spyViews records invalidations as "kind:id"
type spyViews struct {
	mu    sync.Mutex
	calls map[string]int
}

func (v *spyViews) add(kind string, id uuid.UUID) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls[kind+":"+id.String()]++
}

func (v *spyViews) InvalidateOverviews(_ context.Context, id uuid.UUID) { v.add("overviews", id) }
func (v *spyViews) InvalidateFlats(_ context.Context, id uuid.UUID)     { v.add("flats", id) }
func (v *spyViews) InvalidateStats(_ context.Context, id uuid.UUID)     { v.add("stats", id) }
func (v *spyViews) InvalidateRequests(_ context.Context, id uuid.UUID)  { v.add("requests", id) }

func (v *spyViews) has(kind string, id uuid.UUID) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls[kind+":"+id.String()] > 0
}

func (v *spyViews) reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls = map[string]int{}
}

type env struct {
	fx       *fixture.Builder
	sc       *fixture.Scenario
	store    *faultyStore
	views    *spyViews
	events   *testutil.MockEventHandler
	svc      *appoccupancy.Service
	approver *identity.Profile

	mu  sync.Mutex
	now time.Time
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	fx := fixture.New(t, db)
	e := &env{
		fx:     fx,
		sc:     fx.Scenario(),
		store:  &faultyStore{Store: fx.Client()},
		views:  &spyViews{calls: map[string]int{}},
		events: testutil.NewMockEventHandler(),
		now:    time.Now(),
	}
	e.approver = fx.Profile("approver", identity.RoleApprover)

	bus := event.NewInMemoryEventBus(zap.NewNop())
	bus.Subscribe(e.events)

	e.svc = appoccupancy.NewService(e.store, e.views,
		config.LifecycleConfig{ReconcileGrace: time.Minute},
		appoccupancy.WithClock(e.clock))
	e.svc.SetEventPublisher(bus)
	return e
}

func (e *env) clock() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.now
}

func (e *env) advance(d time.Duration) {
	e.mu.Lock()
	e.now = e.now.Add(d)
	e.mu.Unlock()
}

func (e *env) flat(t *testing.T, unit string) *property.Flat {
	t.Helper()
	f, err := e.fx.Repos.Flats.FindByID(context.Background(), e.sc.Flats[unit].ID)
	require.NoError(t, err)
	return f
}

func (e *env) request(t *testing.T, id uuid.UUID) *occupancy.Request {
	t.Helper()
	r, err := e.fx.Repos.Requests.FindByID(context.Background(), id)
	require.NoError(t, err)
	return r
}

func (e *env) submit(t *testing.T, unit string, requester uuid.UUID) uuid.UUID {
	t.Helper()
	res, err := e.svc.Submit(context.Background(), appoccupancy.SubmitRequestCommand{
		FlatID:      e.sc.Flats[unit].ID,
		RequesterID: requester,
	})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.NotNil(t, res.RequestID)
	return *res.RequestID
}

func (e *env) approve(requestID uuid.UUID) (appoccupancy.Result, error) {
	return e.svc.Approve(context.Background(), appoccupancy.ApproveRequestCommand{
		RequestID:  requestID,
		ReviewerID: e.approver.ID,
		Notes:      "welcome",
	})
}

func TestService_SubmitApproveResubmit(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	tenant, manager := e.sc.Tenant.ID, e.sc.Manager.ID

	requestID := e.submit(t, "1", tenant)
	assert.Equal(t, occupancy.RequestStatusPending, e.request(t, requestID).Status)
	assert.True(t, e.views.has("requests", tenant))
	assert.True(t, e.views.has("requests", manager))
	assert.True(t, e.views.has("stats", manager))
	assert.False(t, e.views.has("flats", e.sc.Building.ID))

	e.views.reset()
	res, err := e.approve(requestID)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Empty(t, res.Code)

	assert.True(t, e.flat(t, "1").IsOccupiedBy(tenant))
	approved := e.request(t, requestID)
	assert.Equal(t, occupancy.RequestStatusApproved, approved.Status)
	require.NotNil(t, approved.ReviewedBy)
	assert.Equal(t, e.approver.ID, *approved.ReviewedBy)
	assert.Equal(t, "welcome", approved.Notes)
	assert.NotNil(t, approved.ReviewedAt)

	_, err = e.fx.Repos.Intents.FindOpenByRequest(ctx, requestID)
	assert.True(t, shared.IsNotFound(err))

	for _, kind := range []string{"requests", "stats", "overviews"} {
		assert.True(t, e.views.has(kind, manager), kind)
	}
	assert.True(t, e.views.has("flats", e.sc.Building.ID))
	assert.True(t, e.views.has("requests", tenant))

	assert.Equal(t, []string{
		occupancy.EventTypeRequestSubmitted,
		property.EventTypeFlatTenantAssigned,
		occupancy.EventTypeRequestApproved,
	}, e.events.HandledTypes())

	res, err = e.svc.Submit(ctx, appoccupancy.SubmitRequestCommand{FlatID: e.sc.Flats["1"].ID, RequesterID: tenant})
	assert.True(t, shared.IsConflict(err))
	assert.False(t, res.Success)
	assert.Equal(t, shared.CodeConflict, res.Code)
	assert.Equal(t, "flat 1 already has a tenant", res.Message)

	n, err := e.fx.Repos.Requests.Count(ctx, shared.DefaultFilter().Where("flat_id", e.sc.Flats["1"].ID))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestService_Submit(t *testing.T) {
	t.Run("duplicate pending", func(t *testing.T) {
		e := newEnv(t)
		e.submit(t, "2", e.sc.Tenant.ID)

		res, err := e.svc.Submit(context.Background(), appoccupancy.SubmitRequestCommand{
			FlatID: e.sc.Flats["2"].ID, RequesterID: e.sc.Tenant.ID,
		})
		assert.True(t, shared.IsConflict(err))
		assert.Equal(t, shared.CodeConflict, res.Code)

		// another tenant may still apply
		e.submit(t, "2", e.fx.Profile("other", identity.RoleTenant).ID)
	})

	t.Run("unknown flat", func(t *testing.T) {
		e := newEnv(t)
		res, err := e.svc.Submit(context.Background(), appoccupancy.SubmitRequestCommand{
			FlatID: uuid.New(), RequesterID: e.sc.Tenant.ID,
		})
		assert.True(t, shared.IsNotFound(err))
		assert.Equal(t, "flat not found", res.Message)
	})

	t.Run("address not approved", func(t *testing.T) {
		e := newEnv(t)
		addr := e.fx.Address(e.sc.Settlement.ID, "7 Dock Rd", false)
		building := e.fx.Building("Dock", addr.ID, e.sc.Manager.ID)
		flat := e.fx.Flat(building.ID, "1", nil)

		res, err := e.svc.Submit(context.Background(), appoccupancy.SubmitRequestCommand{
			FlatID: flat.ID, RequesterID: e.sc.Tenant.ID,
		})
		assert.True(t, shared.IsNotFound(err))
		assert.Equal(t, shared.CodeNotFound, res.Code)
	})

	t.Run("missing ids", func(t *testing.T) {
		e := newEnv(t)
		res, err := e.svc.Submit(context.Background(), appoccupancy.SubmitRequestCommand{RequesterID: e.sc.Tenant.ID})
		assert.True(t, shared.IsValidation(err))
		assert.Equal(t, "flat_id is required", res.Message)
	})
}

func TestService_Reject(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	requestID := e.submit(t, "10", e.sc.Tenant.ID)

	for _, notes := range []string{"", "   \t"} {
		res, err := e.svc.Reject(ctx, appoccupancy.RejectRequestCommand{
			RequestID: requestID, ReviewerID: e.approver.ID, Notes: notes,
		})
		assert.True(t, shared.IsValidation(err))
		assert.Equal(t, shared.CodeValidation, res.Code)
	}
	assert.Equal(t, occupancy.RequestStatusPending, e.request(t, requestID).Status)

	e.views.reset()
	res, err := e.svc.Reject(ctx, appoccupancy.RejectRequestCommand{
		RequestID: requestID, ReviewerID: e.approver.ID, Notes: "  incomplete papers ",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)

	rejected := e.request(t, requestID)
	assert.Equal(t, occupancy.RequestStatusRejected, rejected.Status)
	assert.Equal(t, "incomplete papers", rejected.Notes)
	assert.False(t, e.flat(t, "10").IsOccupied())

	assert.True(t, e.views.has("requests", e.sc.Tenant.ID))
	assert.True(t, e.views.has("requests", e.sc.Manager.ID))
	assert.True(t, e.views.has("stats", e.sc.Manager.ID))
	assert.False(t, e.views.has("flats", e.sc.Building.ID))
	assert.False(t, e.views.has("overviews", e.sc.Manager.ID))

	_, err = e.approve(requestID)
	assert.True(t, shared.IsConflict(err))

	_, err = e.svc.Reject(ctx, appoccupancy.RejectRequestCommand{RequestID: uuid.New(), ReviewerID: e.approver.ID, Notes: "x"})
	assert.True(t, shared.IsNotFound(err))
}

func TestService_ApproveKeepsOneTenantPerFlat(t *testing.T) {
	e := newEnv(t)
	other := e.fx.Profile("other", identity.RoleTenant)
	first := e.submit(t, "2", e.sc.Tenant.ID)
	second := e.submit(t, "2", other.ID)

	_, err := e.approve(first)
	require.NoError(t, err)

	res, err := e.approve(second)
	assert.True(t, shared.IsConflict(err))
	assert.Equal(t, "flat 2 already has a tenant", res.Message)
	assert.True(t, e.flat(t, "2").IsOccupiedBy(e.sc.Tenant.ID))
	assert.Equal(t, occupancy.RequestStatusPending, e.request(t, second).Status)
}

func TestService_Unassign(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	requestID := e.submit(t, "1", e.sc.Tenant.ID)
	_, err := e.approve(requestID)
	require.NoError(t, err)

	e.views.reset()
	res, err := e.svc.Unassign(ctx, appoccupancy.UnassignTenantCommand{FlatID: e.sc.Flats["1"].ID})
	require.NoError(t, err)
	assert.True(t, res.Success)

	assert.False(t, e.flat(t, "1").IsOccupied())
	assert.Equal(t, occupancy.RequestStatusApproved, e.request(t, requestID).Status)
	assert.True(t, e.views.has("flats", e.sc.Building.ID))
	assert.True(t, e.views.has("stats", e.sc.Manager.ID))
	assert.True(t, e.views.has("overviews", e.sc.Manager.ID))
	assert.False(t, e.views.has("requests", e.sc.Tenant.ID))

	types := e.events.HandledTypes()
	assert.Equal(t, property.EventTypeFlatVacated, types[len(types)-1])

	// vacant flats can be unassigned again
	_, err = e.svc.Unassign(ctx, appoccupancy.UnassignTenantCommand{FlatID: e.sc.Flats["1"].ID})
	require.NoError(t, err)

	_, err = e.svc.Unassign(ctx, appoccupancy.UnassignTenantCommand{FlatID: uuid.New()})
	assert.True(t, shared.IsNotFound(err))
}

func TestService_UnassignByOccupant(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	requestID := e.submit(t, "1", e.sc.Tenant.ID)
	_, err := e.approve(requestID)
	require.NoError(t, err)
	other := e.fx.Profile("neighbour", identity.RoleTenant)

	t.Run("someone else's flat", func(t *testing.T) {
		res, err := e.svc.Unassign(ctx, appoccupancy.UnassignTenantCommand{
			FlatID:     e.sc.Flats["1"].ID,
			OccupantID: &other.ID,
		})
		require.Error(t, err)
		assert.Equal(t, shared.CodeForbidden, res.Code)
		assert.True(t, e.flat(t, "1").IsOccupiedBy(e.sc.Tenant.ID))
	})

	t.Run("vacant flat", func(t *testing.T) {
		res, _ := e.svc.Unassign(ctx, appoccupancy.UnassignTenantCommand{
			FlatID:     e.sc.Flats["2"].ID,
			OccupantID: &e.sc.Tenant.ID,
		})
		assert.Equal(t, shared.CodeForbidden, res.Code)
	})

	t.Run("own flat", func(t *testing.T) {
		res, err := e.svc.Unassign(ctx, appoccupancy.UnassignTenantCommand{
			FlatID:     e.sc.Flats["1"].ID,
			OccupantID: &e.sc.Tenant.ID,
		})
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.False(t, e.flat(t, "1").IsOccupied())
	})
}

func TestService_ApproveFailingSecondWrite(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	requestID := e.submit(t, "1", e.sc.Tenant.ID)

	e.store.reviewErr = shared.NewLookupError("occupancy_request", "update_review", errors.New("connection reset"))
	res, err := e.approve(requestID)
	require.Error(t, err)
	assert.True(t, shared.IsTransport(err))
	assert.Equal(t, shared.CodeTransport, res.Code)
	assert.Equal(t, "data store unavailable (occupancy request update_review)", res.Message)

	// write 1 landed and the journal says so
	assert.True(t, e.flat(t, "1").IsOccupiedBy(e.sc.Tenant.ID))
	assert.Equal(t, occupancy.RequestStatusPending, e.request(t, requestID).Status)
	intent, err := e.fx.Repos.Intents.FindOpenByRequest(ctx, requestID)
	require.NoError(t, err)
	assert.Equal(t, occupancy.IntentStageFlatAssigned, intent.Stage)
	assert.Contains(t, intent.LastError, "connection reset")
	// the flat changed, so its views are already stale
	assert.True(t, e.views.has("flats", e.sc.Building.ID))

	t.Run("sweep completes it", func(t *testing.T) {
		e.advance(2 * time.Minute)
		n, err := e.svc.Reconcile(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		assert.Equal(t, occupancy.RequestStatusApproved, e.request(t, requestID).Status)
		_, err = e.fx.Repos.Intents.FindOpenByRequest(ctx, requestID)
		assert.True(t, shared.IsNotFound(err))

		n, err = e.svc.Reconcile(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestService_IntentAgeFollowsClock(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	requestID := e.submit(t, "1", e.sc.Tenant.ID)
	// service time runs an hour ahead of the wall clock
	e.advance(time.Hour)

	e.store.reviewErr = shared.NewLookupError("occupancy_request", "update_review", errors.New("connection reset"))
	_, err := e.approve(requestID)
	require.Error(t, err)

	intent, err := e.fx.Repos.Intents.FindOpenByRequest(ctx, requestID)
	require.NoError(t, err)
	assert.WithinDuration(t, e.clock(), intent.UpdatedAt, time.Second)

	n, err := e.svc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "intent is younger than the grace period")
	assert.Equal(t, occupancy.RequestStatusPending, e.request(t, requestID).Status)

	e.advance(2 * time.Minute)
	n, err = e.svc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, occupancy.RequestStatusApproved, e.request(t, requestID).Status)
}

func TestService_ReviewRepairsFailedApproval(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	requestID := e.submit(t, "2", e.sc.Tenant.ID)

	e.store.reviewErr = errors.New("connection reset")
	_, err := e.approve(requestID)
	require.Error(t, err)

	// the half-done approval wins over the rejection
	res, err := e.svc.Reject(ctx, appoccupancy.RejectRequestCommand{
		RequestID: requestID, ReviewerID: e.approver.ID, Notes: "too late",
	})
	assert.True(t, shared.IsConflict(err))
	assert.Equal(t, "request is already approved", res.Message)
	assert.Equal(t, occupancy.RequestStatusApproved, e.request(t, requestID).Status)
	assert.True(t, e.flat(t, "2").IsOccupiedBy(e.sc.Tenant.ID))
}

func TestService_ApprovalInProgress(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	requestID := e.submit(t, "10", e.sc.Tenant.ID)
	req := e.request(t, requestID)

	intent := occupancy.NewApprovalIntent(req, e.approver.ID, "", e.clock())
	require.NoError(t, e.fx.Repos.Intents.Create(ctx, intent))

	_, err := e.approve(requestID)
	assert.True(t, shared.IsConflict(err))

	t.Run("stale intent without assignment is aborted", func(t *testing.T) {
		e.advance(2 * time.Minute)
		n, err := e.svc.Reconcile(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		_, err = e.fx.Repos.Intents.FindOpenByRequest(ctx, requestID)
		assert.True(t, shared.IsNotFound(err))
		assert.Equal(t, occupancy.RequestStatusPending, e.request(t, requestID).Status)
		assert.False(t, e.flat(t, "10").IsOccupied())

		_, err = e.approve(requestID)
		require.NoError(t, err)
	})
}

func TestService_ReconcileRollsBackRejected(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	requestID := e.submit(t, "1", e.sc.Tenant.ID)
	req := e.request(t, requestID)

	// approval assigned the flat, then someone rejected the request
	intent := occupancy.NewApprovalIntent(req, e.approver.ID, "", e.clock())
	intent.Stage = occupancy.IntentStageFlatAssigned
	require.NoError(t, e.fx.Repos.Intents.Create(ctx, intent))
	require.NoError(t, e.fx.Repos.Flats.AssignTenant(ctx, req.FlatID, req.RequesterID))
	require.NoError(t, req.Reject(e.approver.ID, "duplicate", time.Now()))
	require.NoError(t, e.fx.Repos.Requests.UpdateReview(ctx, req))

	e.advance(2 * time.Minute)
	n, err := e.svc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.False(t, e.flat(t, "1").IsOccupied())
	assert.Equal(t, occupancy.RequestStatusRejected, e.request(t, requestID).Status)
}
