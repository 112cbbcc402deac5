package directory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/housing/backend/internal/domain/identity"
	"github.com/housing/backend/internal/domain/shared"
	"github.com/housing/backend/internal/infrastructure/cache"
	"github.com/housing/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Default freshness windows
const (
	DefaultListTTL        = 30 * time.Second
	DefaultStatsTTL       = 2 * time.Minute
	DefaultWatchRetention = 10 * time.Minute
)

// Cache names, also used as metric labels
const (
	CacheOverviews    = "overviews"
	CacheFlats        = "flats"
	CacheManagerStats = "stats"
	CacheRequests     = "requests"
)

// approverKey holds the single request list every approver shares
var approverKey = cache.Key{Subject: uuid.Nil, Secondary: string(identity.RoleApprover)}

// Service is the cached facade over the Builder and StatsAggregator.
// Returned slices are shared between callers and must not be modified.
type Service struct {
	overviews *cache.ViewCache[[]BuildingOverview]
	flats     *cache.ViewCache[[]FlatDetail]
	stats     *cache.ViewCache[ManagerStats]
	requests  *cache.ViewCache[[]EnrichedRequest]

	aggregator *StatsAggregator
	opts       options
	origin     string

	watchRetention time.Duration
	watchMu        sync.Mutex
	watched        map[uuid.UUID]time.Time
}

// NewService creates the four view caches over builder and aggregator
func NewService(builder *Builder, aggregator *StatsAggregator, cfg config.DirectoryConfig, opts ...Option) *Service {
	o := buildOptions(opts)
	s := &Service{
		aggregator:     aggregator,
		opts:           o,
		origin:         uuid.NewString(),
		watchRetention: orDefault(cfg.WatchRetention, DefaultWatchRetention),
		watched:        make(map[uuid.UUID]time.Time),
	}

	cacheOpts := []cache.Option{
		cache.WithLogger(o.logger),
		cache.WithRecorder(o.metrics),
		cache.WithClock(o.now),
	}
	if cfg.IdleEviction > 0 {
		cacheOpts = append(cacheOpts, cache.WithRetention(cfg.IdleEviction))
	}

	s.overviews = cache.NewViewCache[[]BuildingOverview](CacheOverviews, orDefault(cfg.OverviewTTL, DefaultListTTL),
		func(ctx context.Context, key cache.Key) ([]BuildingOverview, error) {
			return builder.BuildOverviewsForManager(ctx, key.Subject)
		}, cacheOpts...)
	s.flats = cache.NewViewCache[[]FlatDetail](CacheFlats, orDefault(cfg.FlatTTL, DefaultListTTL),
		func(ctx context.Context, key cache.Key) ([]FlatDetail, error) {
			return builder.BuildFlatsForBuilding(ctx, key.Subject)
		}, cacheOpts...)
	s.stats = cache.NewViewCache[ManagerStats](CacheManagerStats, orDefault(cfg.StatsTTL, DefaultStatsTTL),
		func(ctx context.Context, key cache.Key) (ManagerStats, error) {
			return aggregator.Compute(ctx, key.Subject)
		}, cacheOpts...)
	s.requests = cache.NewViewCache[[]EnrichedRequest](CacheRequests, orDefault(cfg.RequestTTL, DefaultListTTL),
		func(ctx context.Context, key cache.Key) ([]EnrichedRequest, error) {
			return builder.BuildRequestsFor(ctx, key.Subject, identity.Role(key.Secondary))
		}, cacheOpts...)
	return s
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// Overviews returns the building overviews of a manager
func (s *Service) Overviews(ctx context.Context, managerID uuid.UUID, forceRefresh bool) ([]BuildingOverview, error) {
	return s.overviews.Get(ctx, cache.Key{Subject: managerID}, forceRefresh)
}

// Flats returns the flats of a building
func (s *Service) Flats(ctx context.Context, buildingID uuid.UUID, forceRefresh bool) ([]FlatDetail, error) {
	return s.flats.Get(ctx, cache.Key{Subject: buildingID}, forceRefresh)
}

// Stats returns the statistics of a manager and keeps the manager on the
// auto-refresh list
func (s *Service) Stats(ctx context.Context, managerID uuid.UUID, forceRefresh bool) (ManagerStats, error) {
	s.watch(managerID)
	return s.stats.Get(ctx, cache.Key{Subject: managerID}, forceRefresh)
}

// Requests returns the request list visible to who in role
func (s *Service) Requests(ctx context.Context, who uuid.UUID, role identity.Role, forceRefresh bool) ([]EnrichedRequest, error) {
	switch role {
	case identity.RoleTenant, identity.RoleManager:
		return s.requests.Get(ctx, cache.Key{Subject: who, Secondary: string(role)}, forceRefresh)
	case identity.RoleApprover:
		return s.requests.Get(ctx, approverKey, forceRefresh)
	}
	return nil, shared.Validationf("role %q has no request view", role)
}

// InvalidateOverviews drops the overviews of a manager
func (s *Service) InvalidateOverviews(ctx context.Context, managerID uuid.UUID) {
	s.overviews.Invalidate(cache.Key{Subject: managerID})
	s.publish(ctx, cache.ScopeOverviews, managerID)
}

// InvalidateFlats drops the flat list of a building
func (s *Service) InvalidateFlats(ctx context.Context, buildingID uuid.UUID) {
	s.flats.Invalidate(cache.Key{Subject: buildingID})
	s.publish(ctx, cache.ScopeFlats, buildingID)
}

// InvalidateStats drops the statistics of a manager
func (s *Service) InvalidateStats(ctx context.Context, managerID uuid.UUID) {
	s.stats.Invalidate(cache.Key{Subject: managerID})
	s.publish(ctx, cache.ScopeStats, managerID)
}

// InvalidateRequests drops every request list of who together with the
// shared approver list
func (s *Service) InvalidateRequests(ctx context.Context, who uuid.UUID) {
	s.requests.InvalidateSubject(who)
	s.requests.Invalidate(approverKey)
	s.publish(ctx, cache.ScopeRequests, who)
}

// InvalidateAll drops every view keyed by id, e.g. on sign-out
func (s *Service) InvalidateAll(ctx context.Context, id uuid.UUID) int {
	n := s.invalidateIdentity(id)
	s.publish(ctx, cache.ScopeIdentity, id)
	return n
}

func (s *Service) invalidateIdentity(id uuid.UUID) int {
	n := s.overviews.InvalidateSubject(id) +
		s.flats.InvalidateSubject(id) +
		s.stats.InvalidateSubject(id) +
		s.requests.InvalidateSubject(id)
	s.unwatch(id)
	return n
}

func (s *Service) publish(ctx context.Context, scope cache.InvalidationScope, subject uuid.UUID) {
	msg := cache.InvalidationMessage{
		Origin:    s.origin,
		Scope:     scope,
		Subject:   subject,
		Timestamp: s.opts.now().UnixMilli(),
	}
	if err := s.opts.invalidator.Publish(ctx, msg); err != nil {
		s.opts.logger.Warn("Failed to broadcast invalidation",
			zap.String("scope", string(scope)),
			zap.String("subject", subject.String()),
			zap.Error(err))
	}
}

// Listen applies invalidations broadcast by peer instances until ctx is done
func (s *Service) Listen(ctx context.Context) error {
	return s.opts.invalidator.Subscribe(ctx, s.applyRemote)
}

func (s *Service) applyRemote(msg cache.InvalidationMessage) {
	if msg.Origin == s.origin {
		return
	}
	switch msg.Scope {
	case cache.ScopeOverviews:
		s.overviews.Invalidate(cache.Key{Subject: msg.Subject})
	case cache.ScopeFlats:
		s.flats.Invalidate(cache.Key{Subject: msg.Subject})
	case cache.ScopeStats:
		s.stats.Invalidate(cache.Key{Subject: msg.Subject})
	case cache.ScopeRequests:
		s.requests.InvalidateSubject(msg.Subject)
		s.requests.Invalidate(approverKey)
	case cache.ScopeIdentity:
		s.invalidateIdentity(msg.Subject)
	default:
		s.opts.logger.Warn("Ignoring invalidation with unknown scope", zap.String("scope", string(msg.Scope)))
		return
	}
	s.opts.logger.Debug("Applied remote invalidation",
		zap.String("scope", string(msg.Scope)),
		zap.String("subject", msg.Subject.String()),
		zap.String("origin", msg.Origin))
}

func (s *Service) watch(managerID uuid.UUID) {
	s.watchMu.Lock()
	s.watched[managerID] = s.opts.now()
	s.watchMu.Unlock()
}

func (s *Service) unwatch(id uuid.UUID) {
	s.watchMu.Lock()
	delete(s.watched, id)
	s.watchMu.Unlock()
	s.aggregator.Forget(id)
}

// Watched returns the managers whose statistics were viewed within the
// watch retention window, dropping the rest
func (s *Service) Watched() []uuid.UUID {
	cutoff := s.opts.now().Add(-s.watchRetention)

	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	out := make([]uuid.UUID, 0, len(s.watched))
	for id, seen := range s.watched {
		if seen.Before(cutoff) {
			delete(s.watched, id)
			continue
		}
		out = append(out, id)
	}
	return out
}

// RefreshWatchedStats recomputes the statistics of every watched manager and
// returns how many refreshes succeeded
func (s *Service) RefreshWatchedStats(ctx context.Context) (int, error) {
	refreshed := 0
	var firstErr error
	for _, id := range s.Watched() {
		if _, err := s.stats.Get(ctx, cache.Key{Subject: id}, true); err != nil {
			s.opts.logger.Warn("Statistics refresh failed",
				zap.String("manager_id", id.String()),
				zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		refreshed++
	}
	return refreshed, firstErr
}

// CacheStats reports hit and size counters per cache
func (s *Service) CacheStats() map[string]cache.CacheStats {
	return map[string]cache.CacheStats{
		CacheOverviews:    s.overviews.Stats(),
		CacheFlats:        s.flats.Stats(),
		CacheManagerStats: s.stats.Stats(),
		CacheRequests:     s.requests.Stats(),
	}
}

// Close stops the cache janitors
func (s *Service) Close() {
	s.overviews.Close()
	s.flats.Close()
	s.stats.Close()
	s.requests.Close()
}
