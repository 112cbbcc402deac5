package directory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/housing/backend/internal/domain/occupancy"
	"github.com/housing/backend/internal/domain/property"
	"github.com/housing/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var hundred = decimal.NewFromInt(100)

// StatsAggregator computes manager statistics. Counters whose query fails
// fall back to the last value computed for that manager, or zero.
type StatsAggregator struct {
	reader Reader
	opts   options

	mu        sync.Mutex
	lastKnown map[uuid.UUID]ManagerStats
}

// NewStatsAggregator creates a new StatsAggregator
func NewStatsAggregator(reader Reader, opts ...Option) *StatsAggregator {
	return &StatsAggregator{
		reader:    reader,
		opts:      buildOptions(opts),
		lastKnown: make(map[uuid.UUID]ManagerStats),
	}
}

// Compute returns fresh statistics for managerID. Only a failure to list
// the manager's buildings is returned as an error.
func (a *StatsAggregator) Compute(ctx context.Context, managerID uuid.UUID) (ManagerStats, error) {
	filter := shared.DefaultFilter().Where("manager_id", managerID)
	buildings, err := read(ctx, &a.opts, "buildings", func(ctx context.Context) ([]property.Building, error) {
		return a.reader.Buildings(ctx, filter)
	})
	if err != nil {
		return ManagerStats{}, err
	}

	stats := ManagerStats{
		ManagerID:     managerID,
		Buildings:     len(buildings),
		OccupancyRate: decimal.Zero,
		ComputedAt:    a.opts.now(),
	}
	if len(buildings) == 0 {
		a.remember(stats)
		return stats, nil
	}

	prev := a.previous(managerID)

	buildingIDs := make([]uuid.UUID, len(buildings))
	for i := range buildings {
		buildingIDs[i] = buildings[i].ID
	}
	flatFilter := shared.DefaultFilter().WhereIn("building_id", buildingIDs)
	flats, err := read(ctx, &a.opts, "flats", func(ctx context.Context) ([]property.Flat, error) {
		return a.reader.Flats(ctx, flatFilter)
	})
	if err != nil {
		a.degrade(ctx, "flats", managerID, err)
		stats.TotalFlats = prev.TotalFlats
		stats.OccupiedFlats = prev.OccupiedFlats
		stats.VacantFlats = prev.VacantFlats
		// pending requests are scoped by flat ids, which are unknown now
		a.degrade(ctx, "pending_requests", managerID, err)
		stats.PendingRequests = prev.PendingRequests
	} else {
		flatIDs := make([]uuid.UUID, len(flats))
		for i := range flats {
			flatIDs[i] = flats[i].ID
			if flats[i].IsOccupied() {
				stats.OccupiedFlats++
			}
		}
		stats.TotalFlats = len(flats)
		stats.VacantFlats = stats.TotalFlats - stats.OccupiedFlats

		pendingFilter := shared.DefaultFilter().
			WhereIn("flat_id", flatIDs).
			Where("status", occupancy.RequestStatusPending)
		pending, err := read(ctx, &a.opts, "pending_requests", func(ctx context.Context) (int64, error) {
			return a.reader.CountRequests(ctx, pendingFilter)
		})
		if err != nil {
			a.degrade(ctx, "pending_requests", managerID, err)
			stats.PendingRequests = prev.PendingRequests
		} else {
			stats.PendingRequests = int(pending)
		}
	}

	stats.OccupancyRate = OccupancyRate(stats.OccupiedFlats, stats.TotalFlats)
	a.opts.metrics.RecordOccupancyRate(ctx, stats.OccupancyRate)
	a.remember(stats)
	return stats, nil
}

// OccupancyRate returns occupied/total as a percentage rounded to two places
func OccupancyRate(occupied, total int) decimal.Decimal {
	if total <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(occupied)).Mul(hundred).DivRound(decimal.NewFromInt(int64(total)), 2)
}

// Forget drops the remembered statistics of managerID
func (a *StatsAggregator) Forget(managerID uuid.UUID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.lastKnown, managerID)
}

func (a *StatsAggregator) previous(managerID uuid.UUID) ManagerStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastKnown[managerID]
}

func (a *StatsAggregator) remember(stats ManagerStats) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastKnown[stats.ManagerID] = stats
}

func (a *StatsAggregator) degrade(ctx context.Context, counter string, managerID uuid.UUID, err error) {
	a.opts.metrics.RecordDegradation(ctx, ViewStats, counter)
	a.opts.logger.Warn("Statistics counter fell back to last known value",
		zap.String("counter", counter),
		zap.String("manager_id", managerID.String()),
		zap.Error(err))
}
