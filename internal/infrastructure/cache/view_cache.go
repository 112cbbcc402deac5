package cache

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Constants for view cache configuration
const (
	defaultRetention       = 10 * time.Minute
	defaultCleanupInterval = 30 * time.Second
)

// Key identifies a cached view: the subject (manager, building or identity)
// plus an optional secondary discriminator such as a role.
type Key struct {
	Subject   uuid.UUID
	Secondary string
}

// String renders the key as subject[/secondary]
func (k Key) String() string {
	if k.Secondary == "" {
		return k.Subject.String()
	}
	return k.Subject.String() + "/" + k.Secondary
}

// LoaderFunc recomputes the value of a key
type LoaderFunc[V any] func(ctx context.Context, key Key) (V, error)

// Recorder receives cache observations. telemetry.DirectoryMetrics implements it.
type Recorder interface {
	RecordCacheLookup(ctx context.Context, cache string, hit bool)
	RecordRecompute(ctx context.Context, cache string, d time.Duration, err error)
}

type nopRecorder struct{}

func (nopRecorder) RecordCacheLookup(context.Context, string, bool) {}
func (nopRecorder) RecordRecompute(context.Context, string, time.Duration, error) {}

// Option configures a ViewCache
type Option func(*options)

type options struct {
	logger          *zap.Logger
	recorder        Recorder
	retention       time.Duration
	cleanupInterval time.Duration
	now             func() time.Time
}

// WithLogger sets the logger for the cache
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRecorder sets the metrics recorder
func WithRecorder(r Recorder) Option {
	return func(o *options) {
		o.recorder = r
	}
}

// WithRetention sets how long an entry may go unread before the janitor
// drops it. Zero disables the janitor.
func WithRetention(d time.Duration) Option {
	return func(o *options) {
		o.retention = d
	}
}

// WithCleanupInterval sets how often the janitor runs
func WithCleanupInterval(d time.Duration) Option {
	return func(o *options) {
		o.cleanupInterval = d
	}
}

// WithClock overrides time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

type viewEntry[V any] struct {
	value       V
	refreshedAt time.Time
	lastAccess  time.Time
}

type generation struct {
	value uint64
	at    time.Time
}

type flightResult[V any] struct {
	value V
	err   error
}

// ViewCache is a keyed TTL cache with per-key request coalescing.
//
// Freshness is measured from the completion of the last successful load.
// A failed load keeps the previous value and its age. Invalidate detaches any
// in-flight load for the key: the detached load still answers its own callers
// but never writes back, and the next Get starts a new one.
type ViewCache[V any] struct {
	name string
	ttl  time.Duration
	load LoaderFunc[V]
	opts options

	mu       sync.Mutex
	entries  map[Key]*viewEntry[V]
	gens     map[Key]generation
	subjects map[uuid.UUID]generation
	floor    uint64
	counter  uint64

	group singleflight.Group

	stopCh   chan struct{}
	stopOnce sync.Once

	hits   int64
	misses int64
	loads  int64
}

// NewViewCache creates a cache named name whose entries stay fresh for ttl
func NewViewCache[V any](name string, ttl time.Duration, load LoaderFunc[V], opts ...Option) *ViewCache[V] {
	o := options{
		logger:          zap.NewNop(),
		recorder:        nopRecorder{},
		retention:       defaultRetention,
		cleanupInterval: defaultCleanupInterval,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	c := &ViewCache[V]{
		name:     name,
		ttl:      ttl,
		load:     load,
		opts:     o,
		entries:  make(map[Key]*viewEntry[V]),
		gens:     make(map[Key]generation),
		subjects: make(map[uuid.UUID]generation),
		stopCh:   make(chan struct{}),
	}

	if o.retention > 0 && o.cleanupInterval > 0 {
		go c.janitor()
	}
	return c
}

// Name returns the cache name used in logs and metrics
func (c *ViewCache[V]) Name() string {
	return c.name
}

// Get returns the cached value for key, recomputing it when the entry is
// missing, stale or forceRefresh is set. Concurrent callers for the same key
// share one recomputation. Abandoning the call through ctx does not cancel it.
func (c *ViewCache[V]) Get(ctx context.Context, key Key, forceRefresh bool) (V, error) {
	if !forceRefresh {
		if v, ok := c.fresh(key); ok {
			atomic.AddInt64(&c.hits, 1)
			c.opts.recorder.RecordCacheLookup(ctx, c.name, true)
			return v, nil
		}
	}
	atomic.AddInt64(&c.misses, 1)
	c.opts.recorder.RecordCacheLookup(ctx, c.name, false)

	c.mu.Lock()
	gen := c.generationLocked(key)
	c.mu.Unlock()

	flightKey := key.String() + "@" + strconv.FormatUint(gen, 10)
	ch := c.group.DoChan(flightKey, func() (interface{}, error) {
		return c.recompute(context.WithoutCancel(ctx), key, gen), nil
	})

	select {
	case <-ctx.Done():
		prev, _ := c.Peek(key)
		return prev, ctx.Err()
	case res := <-ch:
		r := res.Val.(flightResult[V])
		return r.value, r.err
	}
}

// Peek returns the stored value regardless of age
func (c *ViewCache[V]) Peek(key Key) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		return e.value, true
	}
	var zero V
	return zero, false
}

// Age returns how long ago the entry for key was refreshed
func (c *ViewCache[V]) Age(key Key) (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return 0, false
	}
	return c.opts.now().Sub(e.refreshedAt), true
}

// Invalidate drops the entry for key and detaches any in-flight load
func (c *ViewCache[V]) Invalidate(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidateLocked(key)
}

// InvalidateSubject drops every entry whose key has the given subject
func (c *ViewCache[V]) InvalidateSubject(subject uuid.UUID) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.counter++
	c.subjects[subject] = generation{value: c.counter, at: c.opts.now()}
	removed := 0
	for k := range c.entries {
		if k.Subject == subject {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Clear drops every entry and detaches every in-flight load
func (c *ViewCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counter++
	c.floor = c.counter
	c.entries = make(map[Key]*viewEntry[V])
	c.gens = make(map[Key]generation)
	c.subjects = make(map[uuid.UUID]generation)
	c.opts.logger.Debug("View cache cleared", zap.String("cache", c.name))
}

// Len returns the number of stored entries
func (c *ViewCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// CacheStats holds lookup counters
type CacheStats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Loads   int64 `json:"loads"`
	Entries int   `json:"entries"`
}

// Stats returns hit, miss and load counters
func (c *ViewCache[V]) Stats() CacheStats {
	return CacheStats{
		Hits:    atomic.LoadInt64(&c.hits),
		Misses:  atomic.LoadInt64(&c.misses),
		Loads:   atomic.LoadInt64(&c.loads),
		Entries: c.Len(),
	}
}

// Close stops the janitor
func (c *ViewCache[V]) Close() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
}

func (c *ViewCache[V]) fresh(key Key) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	now := c.opts.now()
	if now.Sub(e.refreshedAt) >= c.ttl {
		return e.value, false
	}
	e.lastAccess = now
	return e.value, true
}

func (c *ViewCache[V]) recompute(ctx context.Context, key Key, gen uint64) flightResult[V] {
	atomic.AddInt64(&c.loads, 1)
	start := c.opts.now()
	value, err := c.load(ctx, key)
	elapsed := c.opts.now().Sub(start)
	c.opts.recorder.RecordRecompute(ctx, c.name, elapsed, err)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.opts.logger.Warn("View recomputation failed",
			zap.String("cache", c.name),
			zap.String("key", key.String()),
			zap.Error(err))
		var prev V
		if e, ok := c.entries[key]; ok {
			prev = e.value
		}
		return flightResult[V]{value: prev, err: err}
	}

	if c.generationLocked(key) != gen {
		c.opts.logger.Debug("Discarding detached recomputation",
			zap.String("cache", c.name),
			zap.String("key", key.String()))
		return flightResult[V]{value: value}
	}

	now := c.opts.now()
	c.entries[key] = &viewEntry[V]{value: value, refreshedAt: now, lastAccess: now}
	c.opts.logger.Debug("View recomputed",
		zap.String("cache", c.name),
		zap.String("key", key.String()),
		zap.Duration("elapsed", elapsed))
	return flightResult[V]{value: value}
}

// generationLocked returns the newest invalidation mark covering key
func (c *ViewCache[V]) generationLocked(key Key) uint64 {
	gen := c.floor
	if g, ok := c.gens[key]; ok && g.value > gen {
		gen = g.value
	}
	if g, ok := c.subjects[key.Subject]; ok && g.value > gen {
		gen = g.value
	}
	return gen
}

func (c *ViewCache[V]) invalidateLocked(key Key) {
	c.counter++
	c.gens[key] = generation{value: c.counter, at: c.opts.now()}
	delete(c.entries, key)
}

func (c *ViewCache[V]) janitor() {
	ticker := time.NewTicker(c.opts.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

// Sweep drops entries not read within the retention window and forgets old
// invalidation marks. A forgotten mark is folded into the floor so no key's
// generation ever goes backwards. It runs periodically when retention is enabled.
func (c *ViewCache[V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := c.opts.now().Add(-c.opts.retention)
	removed := 0
	for k, e := range c.entries {
		if e.lastAccess.Before(cutoff) {
			delete(c.entries, k)
			removed++
		}
	}
	for k, g := range c.gens {
		if g.at.Before(cutoff) {
			c.raiseFloorLocked(g.value)
			delete(c.gens, k)
		}
	}
	for s, g := range c.subjects {
		if g.at.Before(cutoff) {
			c.raiseFloorLocked(g.value)
			delete(c.subjects, s)
		}
	}
	if removed > 0 {
		c.opts.logger.Debug("Purged idle view cache entries",
			zap.String("cache", c.name),
			zap.Int("removed", removed))
	}
	return removed
}

// raiseFloorLocked lifts the floor to gen. Loads still running under an older
// generation are detached.
func (c *ViewCache[V]) raiseFloorLocked(gen uint64) {
	if gen > c.floor {
		c.floor = gen
	}
}
