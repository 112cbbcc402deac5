package directory_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/housing/backend/internal/application/directory"
	applocation "github.com/housing/backend/internal/application/location"
	"github.com/housing/backend/internal/domain/identity"
	"github.com/housing/backend/internal/domain/location"
	"github.com/housing/backend/internal/domain/occupancy"
	"github.com/housing/backend/internal/domain/property"
	"github.com/housing/backend/internal/domain/shared"
	"github.com/housing/backend/tests/testutil"
	"github.com/housing/backend/tests/testutil/fixture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastRetry = directory.RetryPolicy{
	MaxAttempts:     3,
	InitialInterval: time.Millisecond,
	MaxInterval:     2 * time.Millisecond,
}

// faultyReader fails selected lookups and counts calls
type faultyReader struct {
	directory.Reader

	buildingsErr error
	flatsErr     error
	addressErr   error
	profileErr   map[uuid.UUID]error
	flatErr      error
	countErr     error

	buildingsCalls atomic.Int32
	profileCalls   atomic.Int32
}

func (f *faultyReader) Buildings(ctx context.Context, filter shared.Filter) ([]property.Building, error) {
	f.buildingsCalls.Add(1)
	if f.buildingsErr != nil {
		return nil, f.buildingsErr
	}
	return f.Reader.Buildings(ctx, filter)
}

func (f *faultyReader) Flats(ctx context.Context, filter shared.Filter) ([]property.Flat, error) {
	if f.flatsErr != nil {
		return nil, f.flatsErr
	}
	return f.Reader.Flats(ctx, filter)
}

func (f *faultyReader) Flat(ctx context.Context, id uuid.UUID) (*property.Flat, error) {
	if f.flatErr != nil {
		return nil, f.flatErr
	}
	return f.Reader.Flat(ctx, id)
}

func (f *faultyReader) Address(ctx context.Context, id uuid.UUID) (*location.Address, error) {
	if f.addressErr != nil {
		return nil, f.addressErr
	}
	return f.Reader.Address(ctx, id)
}

func (f *faultyReader) Profile(ctx context.Context, id uuid.UUID) (*identity.Profile, error) {
	f.profileCalls.Add(1)
	if err := f.profileErr[id]; err != nil {
		return nil, err
	}
	return f.Reader.Profile(ctx, id)
}

func (f *faultyReader) CountRequests(ctx context.Context, filter shared.Filter) (int64, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.Reader.CountRequests(ctx, filter)
}

type env struct {
	fx     *fixture.Builder
	sc     *fixture.Scenario
	reader *faultyReader
	b      *directory.Builder
}

func newEnv(t *testing.T, opts ...directory.Option) *env {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	fx := fixture.New(t, db)
	sc := fx.Scenario()
	client := fx.Client()
	reader := &faultyReader{Reader: client, profileErr: map[uuid.UUID]error{}}
	opts = append([]directory.Option{directory.WithRetryPolicy(fastRetry)}, opts...)
	return &env{
		fx:     fx,
		sc:     sc,
		reader: reader,
		b:      directory.NewBuilder(reader, applocation.NewResolver(client), opts...),
	}
}

func (e *env) occupy(t *testing.T, unit string, tenant uuid.UUID) {
	t.Helper()
	require.NoError(t, e.fx.Repos.Flats.AssignTenant(context.Background(), e.sc.Flats[unit].ID, tenant))
}

func TestBuilder_BuildOverviewsForManager(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.occupy(t, "2", e.sc.Tenant.ID)
	accountant := e.fx.Profile("accountant", identity.RoleAccountant)
	e.fx.Accountant(e.sc.Building.ID, accountant.ID)

	// a building managed by someone else never shows up
	other := e.fx.Profile("other", identity.RoleManager)
	e.fx.Building("Block Z", e.sc.Address.ID, other.ID)

	overviews, err := e.b.BuildOverviewsForManager(ctx, e.sc.Manager.ID)
	require.NoError(t, err)
	require.Len(t, overviews, 1)

	ov := overviews[0]
	assert.Equal(t, e.sc.Building.ID, ov.BuildingID)
	assert.Equal(t, "Block A", ov.Name)
	assert.Equal(t, "12 Main St, Riverside city, Northshore, Harbor County", ov.FullAddress)
	assert.Equal(t, 3, ov.TotalFlats)
	assert.Equal(t, 1, ov.OccupiedFlats)
	assert.Equal(t, 2, ov.VacantFlats)
	require.NotNil(t, ov.Accountant)
	assert.Equal(t, "accountant", ov.Accountant.FullName)
	assert.Equal(t, "accountant@example.com", ov.Accountant.Email)
}

func TestBuilder_BuildOverviewsForManager_NoAccountant(t *testing.T) {
	e := newEnv(t)

	overviews, err := e.b.BuildOverviewsForManager(context.Background(), e.sc.Manager.ID)
	require.NoError(t, err)
	require.Len(t, overviews, 1)
	assert.Nil(t, overviews[0].Accountant)
}

func TestBuilder_BuildOverviewsForManager_Degrades(t *testing.T) {
	e := newEnv(t)
	e.reader.addressErr = shared.NewLookupError("address", "get", errors.New("connection reset"))
	e.reader.flatsErr = shared.NewLookupError("flat", "list", errors.New("connection reset"))

	overviews, err := e.b.BuildOverviewsForManager(context.Background(), e.sc.Manager.ID)
	require.NoError(t, err)
	require.Len(t, overviews, 1)

	ov := overviews[0]
	assert.Equal(t, "Block A", ov.Name)
	assert.Equal(t, directory.UnknownAddress, ov.FullAddress)
	assert.Zero(t, ov.TotalFlats)
	assert.Zero(t, ov.OccupiedFlats)
	assert.Zero(t, ov.VacantFlats)
}

func TestBuilder_InitialListingFailureIsRetriedThenReturned(t *testing.T) {
	e := newEnv(t)
	boom := errors.New("connection refused")
	e.reader.buildingsErr = boom

	_, err := e.b.BuildOverviewsForManager(context.Background(), e.sc.Manager.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(3), e.reader.buildingsCalls.Load())
}

func TestBuilder_DomainErrorsAreNotRetried(t *testing.T) {
	e := newEnv(t)
	e.occupy(t, "1", e.sc.Tenant.ID)
	e.reader.profileErr[e.sc.Tenant.ID] = shared.NewLookupError("profile", "get", shared.ErrNotFound)

	flats, err := e.b.BuildFlatsForBuilding(context.Background(), e.sc.Building.ID)
	require.NoError(t, err)
	require.Len(t, flats, 3)
	assert.Equal(t, int32(1), e.reader.profileCalls.Load())
}

func TestBuilder_BuildFlatsForBuilding(t *testing.T) {
	e := newEnv(t, directory.WithFanOut(2))
	ctx := context.Background()
	e.fx.Flat(e.sc.Building.ID, "2A", nil)
	second := e.fx.Profile("second", identity.RoleTenant)
	e.occupy(t, "10", e.sc.Tenant.ID)
	e.occupy(t, "2", second.ID)

	flats, err := e.b.BuildFlatsForBuilding(ctx, e.sc.Building.ID)
	require.NoError(t, err)

	units := make([]string, len(flats))
	for i, f := range flats {
		units[i] = f.UnitNumber
	}
	assert.Equal(t, []string{"1", "2", "2A", "10"}, units)

	assert.False(t, flats[0].IsOccupied())
	require.NotNil(t, flats[1].Tenant)
	assert.Equal(t, "second", flats[1].Tenant.FullName)
	assert.Nil(t, flats[2].Tenant)
	require.NotNil(t, flats[3].Tenant)
	assert.Equal(t, "tenant", flats[3].Tenant.FullName)
	assert.Equal(t, "555-0100", flats[3].Tenant.Phone)
}

func TestBuilder_BuildFlatsForBuilding_UnknownTenant(t *testing.T) {
	e := newEnv(t)
	e.occupy(t, "1", e.sc.Tenant.ID)
	e.reader.profileErr[e.sc.Tenant.ID] = errors.New("timeout")

	flats, err := e.b.BuildFlatsForBuilding(context.Background(), e.sc.Building.ID)
	require.NoError(t, err)
	require.NotNil(t, flats[0].Tenant)
	assert.Equal(t, e.sc.Tenant.ID, flats[0].Tenant.ID)
	assert.True(t, flats[0].Tenant.IsUnknown())
}

func TestBuilder_BuildFlatsForBuilding_ListingFails(t *testing.T) {
	e := newEnv(t)
	e.reader.flatsErr = errors.New("connection refused")

	_, err := e.b.BuildFlatsForBuilding(context.Background(), e.sc.Building.ID)
	assert.Error(t, err)
}

func seedRequest(t *testing.T, e *env, flatID, requesterID uuid.UUID, createdAt time.Time) *occupancy.Request {
	t.Helper()
	r, err := occupancy.NewRequest(flatID, requesterID)
	require.NoError(t, err)
	r.CreatedAt = createdAt
	r.UpdatedAt = createdAt
	require.NoError(t, e.fx.Repos.Requests.Create(context.Background(), r))
	return r
}

func TestBuilder_BuildRequestsFor(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	otherManager := e.fx.Profile("other", identity.RoleManager)
	otherAddr := e.fx.Address(e.sc.Settlement.ID, "7 Side St", true)
	otherBuilding := e.fx.Building("Block Z", otherAddr.ID, otherManager.ID)
	otherFlat := e.fx.Flat(otherBuilding.ID, "Z1", nil)
	second := e.fx.Profile("second", identity.RoleTenant)

	older := seedRequest(t, e, e.sc.Flats["1"].ID, e.sc.Tenant.ID, base)
	newer := seedRequest(t, e, e.sc.Flats["2"].ID, e.sc.Tenant.ID, base.Add(time.Hour))
	foreign := seedRequest(t, e, otherFlat.ID, second.ID, base.Add(2*time.Hour))

	t.Run("tenant sees own requests newest first", func(t *testing.T) {
		got, err := e.b.BuildRequestsFor(ctx, e.sc.Tenant.ID, identity.RoleTenant)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, newer.ID, got[0].RequestID)
		assert.Equal(t, older.ID, got[1].RequestID)

		assert.Equal(t, "2", got[0].UnitNumber)
		assert.Equal(t, "Block A", got[0].Building)
		assert.Equal(t, "12 Main St, Riverside city, Northshore, Harbor County", got[0].FullAddress)
		assert.Equal(t, "tenant", got[0].Requester.FullName)
		assert.Equal(t, occupancy.RequestStatusPending, got[0].Status)
	})

	t.Run("manager sees only managed buildings", func(t *testing.T) {
		got, err := e.b.BuildRequestsFor(ctx, e.sc.Manager.ID, identity.RoleManager)
		require.NoError(t, err)
		ids := []uuid.UUID{}
		for _, r := range got {
			ids = append(ids, r.RequestID)
		}
		assert.Equal(t, []uuid.UUID{newer.ID, older.ID}, ids)
	})

	t.Run("manager without buildings sees nothing", func(t *testing.T) {
		got, err := e.b.BuildRequestsFor(ctx, uuid.New(), identity.RoleManager)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("approver sees everything", func(t *testing.T) {
		got, err := e.b.BuildRequestsFor(ctx, uuid.New(), identity.RoleApprover)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, foreign.ID, got[0].RequestID)
		assert.Equal(t, "7 Side St, Riverside city, Northshore, Harbor County", got[0].FullAddress)
	})

	t.Run("accountant has no request view", func(t *testing.T) {
		_, err := e.b.BuildRequestsFor(ctx, uuid.New(), identity.RoleAccountant)
		assert.True(t, shared.IsValidation(err))
	})
}

func TestBuilder_BuildRequestsFor_Degrades(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	seedRequest(t, e, e.sc.Flats["1"].ID, e.sc.Tenant.ID, time.Now())

	t.Run("flat lookup fails", func(t *testing.T) {
		e.reader.flatErr = shared.NewLookupError("flat", "get", shared.ErrNotFound)
		defer func() { e.reader.flatErr = nil }()

		got, err := e.b.BuildRequestsFor(ctx, e.sc.Tenant.ID, identity.RoleTenant)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, directory.Unknown, got[0].UnitNumber)
		assert.Equal(t, directory.Unknown, got[0].Building)
		assert.Equal(t, directory.Unknown, got[0].FullAddress)
		assert.Equal(t, "tenant", got[0].Requester.FullName)
	})

	t.Run("requester and address lookups fail", func(t *testing.T) {
		e.reader.addressErr = errors.New("connection reset")
		e.reader.profileErr[e.sc.Tenant.ID] = errors.New("connection reset")

		got, err := e.b.BuildRequestsFor(ctx, e.sc.Tenant.ID, identity.RoleTenant)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "1", got[0].UnitNumber)
		assert.Equal(t, "Block A", got[0].Building)
		assert.Equal(t, directory.Unknown, got[0].FullAddress)
		assert.True(t, got[0].Requester.IsUnknown())
	})
}
