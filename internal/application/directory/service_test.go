package directory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/housing/backend/internal/application/directory"
	applocation "github.com/housing/backend/internal/application/location"
	"github.com/housing/backend/internal/domain/identity"
	"github.com/housing/backend/internal/domain/shared"
	"github.com/housing/backend/internal/infrastructure/cache"
	"github.com/housing/backend/internal/infrastructure/config"
	"github.com/housing/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryBus delivers published invalidations to every subscriber
type memoryBus struct {
	mu        sync.Mutex
	subs      []func(cache.InvalidationMessage)
	published []cache.InvalidationMessage
}

func (b *memoryBus) Publish(_ context.Context, msg cache.InvalidationMessage) error {
	b.mu.Lock()
	b.published = append(b.published, msg)
	subs := append([]func(cache.InvalidationMessage){}, b.subs...)
	b.mu.Unlock()
	for _, sub := range subs {
		sub(msg)
	}
	return nil
}

func (b *memoryBus) Subscribe(ctx context.Context, cb func(cache.InvalidationMessage)) error {
	b.mu.Lock()
	b.subs = append(b.subs, cb)
	b.mu.Unlock()
	<-ctx.Done()
	return nil
}

func (b *memoryBus) Close() error { return nil }

func (b *memoryBus) subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *memoryBus) Published() []cache.InvalidationMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]cache.InvalidationMessage(nil), b.published...)
}

func newService(t *testing.T, e *env, cfg config.DirectoryConfig, opts ...directory.Option) *directory.Service {
	t.Helper()
	opts = append([]directory.Option{directory.WithRetryPolicy(fastRetry)}, opts...)
	client := e.fx.Client()
	builder := directory.NewBuilder(e.reader, applocation.NewResolver(client), opts...)
	agg := directory.NewStatsAggregator(e.reader, opts...)
	svc := directory.NewService(builder, agg, cfg, opts...)
	t.Cleanup(svc.Close)
	return svc
}

func TestService_ServesFreshOverviews(t *testing.T) {
	e := newEnv(t)
	spy := newSpyMetrics()
	svc := newService(t, e, config.DirectoryConfig{}, directory.WithMetrics(spy))
	ctx := context.Background()

	first, err := svc.Overviews(ctx, e.sc.Manager.ID, false)
	require.NoError(t, err)
	second, err := svc.Overviews(ctx, e.sc.Manager.ID, false)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), e.reader.buildingsCalls.Load())
	assert.Equal(t, 1, spy.lookups[directory.CacheOverviews+":hit"])
	assert.Equal(t, 1, spy.lookups[directory.CacheOverviews+":miss"])

	_, err = svc.Overviews(ctx, e.sc.Manager.ID, true)
	require.NoError(t, err)
	assert.Equal(t, int32(2), e.reader.buildingsCalls.Load())
}

func TestService_ConcurrentGetsShareOneBuild(t *testing.T) {
	e := newEnv(t)
	svc := newService(t, e, config.DirectoryConfig{})
	ctx := context.Background()

	const callers = 16
	results := make([][]directory.BuildingOverview, callers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			ov, err := svc.Overviews(ctx, e.sc.Manager.ID, false)
			assert.NoError(t, err)
			results[i] = ov
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), e.reader.buildingsCalls.Load())
	for i := 1; i < callers; i++ {
		assert.Equal(t, results[0], results[i])
	}
}

func TestService_InvalidateForcesRebuild(t *testing.T) {
	e := newEnv(t)
	bus := &memoryBus{}
	svc := newService(t, e, config.DirectoryConfig{}, directory.WithInvalidator(bus))
	ctx := context.Background()

	flats, err := svc.Flats(ctx, e.sc.Building.ID, false)
	require.NoError(t, err)
	assert.False(t, flats[0].IsOccupied())

	e.occupy(t, "1", e.sc.Tenant.ID)

	// still cached
	flats, err = svc.Flats(ctx, e.sc.Building.ID, false)
	require.NoError(t, err)
	assert.False(t, flats[0].IsOccupied())

	svc.InvalidateFlats(ctx, e.sc.Building.ID)
	flats, err = svc.Flats(ctx, e.sc.Building.ID, false)
	require.NoError(t, err)
	assert.True(t, flats[0].IsOccupied())

	published := bus.Published()
	require.Len(t, published, 1)
	assert.Equal(t, cache.ScopeFlats, published[0].Scope)
	assert.Equal(t, e.sc.Building.ID, published[0].Subject)
}

func TestService_Requests(t *testing.T) {
	e := newEnv(t)
	svc := newService(t, e, config.DirectoryConfig{})
	ctx := context.Background()

	e.fx.Request(e.sc.Flats["1"].ID, e.sc.Tenant.ID)

	mine, err := svc.Requests(ctx, e.sc.Tenant.ID, identity.RoleTenant, false)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	all, err := svc.Requests(ctx, uuid.New(), identity.RoleApprover, false)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	e.fx.Request(e.sc.Flats["2"].ID, e.sc.Tenant.ID)

	// approvers share one list, so another approver sees the cached copy
	all, err = svc.Requests(ctx, uuid.New(), identity.RoleApprover, false)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	svc.InvalidateRequests(ctx, e.sc.Tenant.ID)

	mine, err = svc.Requests(ctx, e.sc.Tenant.ID, identity.RoleTenant, false)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
	all, err = svc.Requests(ctx, uuid.New(), identity.RoleApprover, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.Requests(ctx, e.sc.Tenant.ID, identity.RoleAccountant, false)
	assert.True(t, shared.IsValidation(err))
}

func TestService_InvalidateAll(t *testing.T) {
	e := newEnv(t)
	svc := newService(t, e, config.DirectoryConfig{})
	ctx := context.Background()

	_, err := svc.Overviews(ctx, e.sc.Manager.ID, false)
	require.NoError(t, err)
	_, err = svc.Stats(ctx, e.sc.Manager.ID, false)
	require.NoError(t, err)
	_, err = svc.Requests(ctx, e.sc.Manager.ID, identity.RoleManager, false)
	require.NoError(t, err)
	_, err = svc.Flats(ctx, e.sc.Building.ID, false)
	require.NoError(t, err)

	assert.Equal(t, 3, svc.InvalidateAll(ctx, e.sc.Manager.ID))
	assert.Empty(t, svc.Watched())
	assert.Equal(t, 1, svc.CacheStats()[directory.CacheFlats].Entries)
	assert.Zero(t, svc.CacheStats()[directory.CacheOverviews].Entries)
}

func TestService_RemoteInvalidation(t *testing.T) {
	e := newEnv(t)
	bus := &memoryBus{}
	local := newService(t, e, config.DirectoryConfig{}, directory.WithInvalidator(bus))
	remote := newService(t, e, config.DirectoryConfig{}, directory.WithInvalidator(bus))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = local.Listen(ctx) }()
	go func() { _ = remote.Listen(ctx) }()
	require.True(t, testutil.WaitForCondition(t, func() bool { return bus.subscribers() == 2 }, time.Second, 5*time.Millisecond))

	_, err := remote.Stats(ctx, e.sc.Manager.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 1, remote.CacheStats()[directory.CacheManagerStats].Entries)

	local.InvalidateStats(ctx, e.sc.Manager.ID)
	assert.Zero(t, remote.CacheStats()[directory.CacheManagerStats].Entries)

	_, err = remote.Stats(ctx, e.sc.Manager.ID, false)
	require.NoError(t, err)
	local.InvalidateAll(ctx, e.sc.Manager.ID)
	assert.Zero(t, remote.CacheStats()[directory.CacheManagerStats].Entries)
	assert.Empty(t, remote.Watched())
}

func TestService_RefreshWatchedStats(t *testing.T) {
	e := newEnv(t)
	var mu sync.Mutex
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		now = now.Add(d)
		mu.Unlock()
	}
	svc := newService(t, e, config.DirectoryConfig{WatchRetention: 5 * time.Minute}, directory.WithClock(clock))
	ctx := context.Background()

	stats, err := svc.Stats(ctx, e.sc.Manager.ID, false)
	require.NoError(t, err)
	assert.Zero(t, stats.OccupiedFlats)

	e.occupy(t, "2", e.sc.Tenant.ID)
	advance(time.Minute)

	n, err := svc.RefreshWatchedStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stats, err = svc.Stats(ctx, e.sc.Manager.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.OccupiedFlats)

	advance(10 * time.Minute)
	n, err = svc.RefreshWatchedStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, svc.Watched())
}
