package integration

import (
	"context"
	"testing"
	"time"

	"github.com/housing/backend/internal/application/directory"
	applocation "github.com/housing/backend/internal/application/location"
	"github.com/housing/backend/internal/application/lookup"
	appoccupancy "github.com/housing/backend/internal/application/occupancy"
	"github.com/housing/backend/internal/domain/identity"
	"github.com/housing/backend/internal/domain/occupancy"
	"github.com/housing/backend/internal/domain/shared"
	"github.com/housing/backend/internal/infrastructure/cache"
	"github.com/housing/backend/internal/infrastructure/config"
	"github.com/housing/backend/internal/infrastructure/migration"
	"github.com/housing/backend/internal/infrastructure/persistence/models"
	"github.com/housing/backend/tests/testutil"
	"github.com/housing/backend/tests/testutil/fixture"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/sync/errgroup"
)

func newDirectory(t *testing.T, client *lookup.Client, opts ...directory.Option) *directory.Service {
	t.Helper()
	opts = append(opts, directory.WithLogger(zaptest.NewLogger(t)))
	svc := directory.NewService(
		directory.NewBuilder(client, applocation.NewResolver(client), opts...),
		directory.NewStatsAggregator(client, opts...),
		config.DirectoryConfig{},
		opts...)
	t.Cleanup(svc.Close)
	return svc
}

func TestMigrations_RoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	tdb := NewTestDB(t)

	Migrate(t, tdb.DSN, func(m *migration.Migrator) error {
		version, dirty, err := m.Version()
		require.NoError(t, err)
		assert.Equal(t, uint(2), version)
		assert.False(t, dirty)
		return m.Steps(-1)
	})
	assert.False(t, tdb.DB.Migrator().HasTable("occupancy_requests"))
	assert.True(t, tdb.DB.Migrator().HasTable("flats"))

	Migrate(t, tdb.DSN, func(m *migration.Migrator) error { return m.Up() })
	assert.True(t, tdb.DB.Migrator().HasTable("approval_intents"))

	// the SQL schema must accept every gorm model
	for _, model := range models.All() {
		assert.True(t, tdb.DB.Migrator().HasTable(model), "missing table for %T", model)
	}
}

func TestOccupancyLifecycle_Postgres(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	tdb := NewTestDB(t)
	ctx := context.Background()

	fx := fixture.New(t, tdb.DB)
	sc := fx.Scenario()
	accountant := fx.Profile("accountant", identity.RoleAccountant)
	fx.Accountant(sc.Building.ID, accountant.ID)
	approver := fx.Profile("approver", identity.RoleApprover)

	client := fx.Client()
	dir := newDirectory(t, client)
	svc := appoccupancy.NewService(client, dir, config.LifecycleConfig{ReconcileGrace: time.Minute},
		appoccupancy.WithLogger(zaptest.NewLogger(t)))

	t.Run("concurrent duplicate submissions", func(t *testing.T) {
		flat := sc.Flats["2"]
		results := make([]appoccupancy.Result, 8)
		var g errgroup.Group
		for i := range results {
			g.Go(func() error {
				results[i], _ = svc.Submit(ctx, appoccupancy.SubmitRequestCommand{
					FlatID:      flat.ID,
					RequesterID: sc.Tenant.ID,
				})
				return nil
			})
		}
		require.NoError(t, g.Wait())

		succeeded := 0
		for _, res := range results {
			if res.Success {
				succeeded++
				continue
			}
			assert.Equal(t, shared.CodeConflict, res.Code, res.Message)
		}
		assert.Equal(t, 1, succeeded)

		pending, err := client.CountRequests(ctx, shared.Filter{Filters: map[string]interface{}{
			"flat_id": flat.ID,
			"status":  occupancy.RequestStatusPending,
		}})
		require.NoError(t, err)
		assert.Equal(t, int64(1), pending)
	})

	t.Run("approve assigns the tenant", func(t *testing.T) {
		flat := sc.Flats["1"]
		submitted, err := svc.Submit(ctx, appoccupancy.SubmitRequestCommand{FlatID: flat.ID, RequesterID: sc.Tenant.ID})
		require.NoError(t, err)
		require.NotNil(t, submitted.RequestID)

		res, err := svc.Approve(ctx, appoccupancy.ApproveRequestCommand{
			RequestID:  *submitted.RequestID,
			ReviewerID: approver.ID,
			Notes:      "keys at the office",
		})
		require.NoError(t, err)
		assert.True(t, res.Success)

		stored, err := client.Flat(ctx, flat.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.TenantID)
		assert.Equal(t, sc.Tenant.ID, *stored.TenantID)

		request, err := client.Request(ctx, *submitted.RequestID)
		require.NoError(t, err)
		assert.Equal(t, occupancy.RequestStatusApproved, request.Status)
		require.NotNil(t, request.ReviewedBy)
		assert.Equal(t, approver.ID, *request.ReviewedBy)

		intent, err := client.OpenIntent(ctx, *submitted.RequestID)
		assert.Nil(t, intent)
		assert.True(t, shared.IsNotFound(err))
	})

	t.Run("views reflect the store", func(t *testing.T) {
		overviews, err := dir.Overviews(ctx, sc.Manager.ID, true)
		require.NoError(t, err)
		require.Len(t, overviews, 1)
		o := overviews[0]
		assert.Equal(t, "Block A", o.Name)
		assert.Contains(t, o.FullAddress, "12 Main St")
		assert.Contains(t, o.FullAddress, "Harbor County")
		assert.Equal(t, 3, o.TotalFlats)
		assert.Equal(t, 1, o.OccupiedFlats)
		require.NotNil(t, o.Accountant)
		assert.Equal(t, "accountant", o.Accountant.FullName)

		stats, err := dir.Stats(ctx, sc.Manager.ID, true)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.PendingRequests)
		assert.Equal(t, 2, stats.VacantFlats)

		requests, err := dir.Requests(ctx, approver.ID, identity.RoleApprover, true)
		require.NoError(t, err)
		assert.Len(t, requests, 2)
	})

	t.Run("reject requires notes", func(t *testing.T) {
		pending, err := client.Requests(ctx, shared.Filter{Filters: map[string]interface{}{
			"status": occupancy.RequestStatusPending,
		}})
		require.NoError(t, err)
		require.Len(t, pending, 1)

		res, _ := svc.Reject(ctx, appoccupancy.RejectRequestCommand{RequestID: pending[0].ID, ReviewerID: approver.ID})
		assert.Equal(t, shared.CodeValidation, res.Code)

		res, err = svc.Reject(ctx, appoccupancy.RejectRequestCommand{
			RequestID:  pending[0].ID,
			ReviewerID: approver.ID,
			Notes:      "flat already promised",
		})
		require.NoError(t, err)
		assert.True(t, res.Success)
	})
}

func TestRedisInvalidation_AcrossInstances(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	tdb := NewTestDB(t)
	addr := NewRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	fx := fixture.New(t, tdb.DB)
	sc := fx.Scenario()
	client := fx.Client()

	newInstance := func() *directory.Service {
		inv, err := cache.NewRedisInvalidator(ctx, &redis.Options{Addr: addr},
			cache.WithInvalidatorChannel("housing:test:invalidation"),
			cache.WithInvalidatorLogger(zaptest.NewLogger(t)))
		require.NoError(t, err)
		t.Cleanup(func() { _ = inv.Close() })

		svc := newDirectory(t, client, directory.WithInvalidator(inv))
		go func() { _ = svc.Listen(ctx) }()
		return svc
	}
	a, b := newInstance(), newInstance()

	_, err := b.Flats(ctx, sc.Building.ID, false)
	require.NoError(t, err)
	require.Equal(t, 1, b.CacheStats()[directory.CacheFlats].Entries)

	// the subscriber may not be attached yet, so keep publishing
	dropped := testutil.WaitForCondition(t, func() bool {
		a.InvalidateFlats(ctx, sc.Building.ID)
		return b.CacheStats()[directory.CacheFlats].Entries == 0
	}, 10*time.Second, 100*time.Millisecond)
	assert.True(t, dropped, "peer instance kept its cached flat list")
}
