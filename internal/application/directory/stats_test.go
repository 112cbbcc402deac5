package directory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/housing/backend/internal/application/directory"
	"github.com/housing/backend/internal/domain/identity"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// spyMetrics records what the directory reports
type spyMetrics struct {
	mu           sync.Mutex
	degraded     []string
	rates        []decimal.Decimal
	lookups      map[string]int
	recomputeErr int
}

func newSpyMetrics() *spyMetrics {
	return &spyMetrics{lookups: map[string]int{}}
}

func (s *spyMetrics) RecordCacheLookup(_ context.Context, cache string, hit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if hit {
		s.lookups[cache+":hit"]++
	} else {
		s.lookups[cache+":miss"]++
	}
}

func (s *spyMetrics) RecordRecompute(_ context.Context, _ string, _ time.Duration, err error) {
	if err != nil {
		s.mu.Lock()
		s.recomputeErr++
		s.mu.Unlock()
	}
}

func (s *spyMetrics) RecordDegradation(_ context.Context, view, field string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.degraded = append(s.degraded, view+"."+field)
}

func (s *spyMetrics) RecordOccupancyRate(_ context.Context, rate decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates = append(s.rates, rate)
}

func (s *spyMetrics) Degraded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.degraded...)
}

func TestStatsAggregator_NoBuildings(t *testing.T) {
	e := newEnv(t)
	spy := newSpyMetrics()
	e.reader.flatsErr = errors.New("must not be queried")
	agg := directory.NewStatsAggregator(e.reader, directory.WithRetryPolicy(fastRetry), directory.WithMetrics(spy))
	managerID := uuid.New()

	stats, err := agg.Compute(context.Background(), managerID)
	require.NoError(t, err)
	assert.Equal(t, managerID, stats.ManagerID)
	assert.Zero(t, stats.Buildings)
	assert.Zero(t, stats.TotalFlats)
	assert.Zero(t, stats.PendingRequests)
	assert.True(t, stats.OccupancyRate.IsZero())
	assert.Empty(t, spy.Degraded())
}

func TestStatsAggregator_Compute(t *testing.T) {
	e := newEnv(t)
	spy := newSpyMetrics()
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	agg := directory.NewStatsAggregator(e.reader,
		directory.WithRetryPolicy(fastRetry),
		directory.WithMetrics(spy),
		directory.WithClock(func() time.Time { return now }))

	e.occupy(t, "10", e.sc.Tenant.ID)
	second := e.fx.Profile("second", identity.RoleTenant)
	e.fx.Request(e.sc.Flats["1"].ID, second.ID)
	e.fx.Request(e.sc.Flats["2"].ID, second.ID)

	otherManager := e.fx.Profile("other", identity.RoleManager)
	otherBuilding := e.fx.Building("Block Z", e.sc.Address.ID, otherManager.ID)
	otherFlat := e.fx.Flat(otherBuilding.ID, "1", nil)
	e.fx.Request(otherFlat.ID, second.ID)

	stats, err := agg.Compute(context.Background(), e.sc.Manager.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Buildings)
	assert.Equal(t, 3, stats.TotalFlats)
	assert.Equal(t, 1, stats.OccupiedFlats)
	assert.Equal(t, 2, stats.VacantFlats)
	assert.Equal(t, 2, stats.PendingRequests)
	assert.Equal(t, "33.33", stats.OccupancyRate.StringFixed(2))
	assert.Equal(t, now, stats.ComputedAt)
	require.Len(t, spy.rates, 1)
	assert.True(t, spy.rates[0].Equal(stats.OccupancyRate))
}

func TestStatsAggregator_FallsBackToLastKnown(t *testing.T) {
	e := newEnv(t)
	spy := newSpyMetrics()
	agg := directory.NewStatsAggregator(e.reader, directory.WithRetryPolicy(fastRetry), directory.WithMetrics(spy))
	ctx := context.Background()

	e.occupy(t, "1", e.sc.Tenant.ID)
	e.fx.Request(e.sc.Flats["2"].ID, e.sc.Tenant.ID)

	first, err := agg.Compute(ctx, e.sc.Manager.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, first.TotalFlats)
	assert.Equal(t, 1, first.PendingRequests)

	// state changes but the reads fail
	e.occupy(t, "2", e.sc.Tenant.ID)
	e.reader.flatsErr = errors.New("connection reset")

	second, err := agg.Compute(ctx, e.sc.Manager.ID)
	require.NoError(t, err)
	assert.Equal(t, first.TotalFlats, second.TotalFlats)
	assert.Equal(t, first.OccupiedFlats, second.OccupiedFlats)
	assert.Equal(t, first.PendingRequests, second.PendingRequests)
	assert.Contains(t, spy.Degraded(), "stats.flats")

	e.reader.flatsErr = nil
	e.reader.countErr = errors.New("connection reset")
	third, err := agg.Compute(ctx, e.sc.Manager.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, third.OccupiedFlats)
	assert.Equal(t, first.PendingRequests, third.PendingRequests)
	assert.Contains(t, spy.Degraded(), "stats.pending_requests")
}

func TestStatsAggregator_ZeroWithoutHistory(t *testing.T) {
	e := newEnv(t)
	agg := directory.NewStatsAggregator(e.reader, directory.WithRetryPolicy(fastRetry))
	e.reader.countErr = errors.New("connection reset")

	stats, err := agg.Compute(context.Background(), e.sc.Manager.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalFlats)
	assert.Zero(t, stats.PendingRequests)
}

func TestStatsAggregator_BuildingListingFails(t *testing.T) {
	e := newEnv(t)
	agg := directory.NewStatsAggregator(e.reader, directory.WithRetryPolicy(fastRetry))
	e.reader.buildingsErr = errors.New("connection refused")

	_, err := agg.Compute(context.Background(), e.sc.Manager.ID)
	assert.Error(t, err)
}

func TestOccupancyRate(t *testing.T) {
	tests := []struct {
		occupied, total int
		want            string
	}{
		{0, 0, "0"},
		{0, 4, "0"},
		{1, 3, "33.33"},
		{2, 3, "66.67"},
		{4, 4, "100"},
	}
	for _, tt := range tests {
		got := directory.OccupancyRate(tt.occupied, tt.total)
		assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "%d/%d = %s", tt.occupied, tt.total, got)
	}
}
