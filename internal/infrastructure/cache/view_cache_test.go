package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// countingLoader returns the call number as the value
func countingLoader(calls *int64) LoaderFunc[int64] {
	return func(ctx context.Context, key Key) (int64, error) {
		return atomic.AddInt64(calls, 1), nil
	}
}

func TestViewCache_ServesFreshEntry(t *testing.T) {
	var calls int64
	clock := newFakeClock()
	c := NewViewCache("test", 30*time.Second, countingLoader(&calls), WithClock(clock.Now), WithRetention(0))
	key := Key{Subject: uuid.New()}
	ctx := context.Background()

	v, err := c.Get(ctx, key, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	clock.Advance(29 * time.Second)
	v, err = c.Get(ctx, key, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Entries)
}

func TestViewCache_RecomputesStaleEntry(t *testing.T) {
	var calls int64
	clock := newFakeClock()
	c := NewViewCache("test", 30*time.Second, countingLoader(&calls), WithClock(clock.Now), WithRetention(0))
	key := Key{Subject: uuid.New()}
	ctx := context.Background()

	_, err := c.Get(ctx, key, false)
	require.NoError(t, err)

	clock.Advance(30 * time.Second)
	v, err := c.Get(ctx, key, false)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
}

func TestViewCache_ForceRefresh(t *testing.T) {
	var calls int64
	c := NewViewCache("test", time.Minute, countingLoader(&calls), WithRetention(0))
	key := Key{Subject: uuid.New()}
	ctx := context.Background()

	_, _ = c.Get(ctx, key, false)
	v, err := c.Get(ctx, key, true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	v, err = c.Get(ctx, key, false)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
}

func TestViewCache_CoalescesConcurrentGets(t *testing.T) {
	var calls int64
	release := make(chan struct{})
	load := func(ctx context.Context, key Key) (int64, error) {
		<-release
		return atomic.AddInt64(&calls, 1), nil
	}
	c := NewViewCache("test", time.Minute, load, WithRetention(0))
	key := Key{Subject: uuid.New(), Secondary: "manager"}

	const callers = 20
	results := make([]int64, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.Get(context.Background(), key, false)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))
	for _, v := range results {
		assert.Equal(t, int64(1), v)
	}
}

func TestViewCache_InvalidateForcesRecompute(t *testing.T) {
	var calls int64
	c := NewViewCache("test", time.Minute, countingLoader(&calls), WithRetention(0))
	key := Key{Subject: uuid.New()}
	ctx := context.Background()

	_, _ = c.Get(ctx, key, false)
	c.Invalidate(key)
	assert.Equal(t, 0, c.Len())

	v, err := c.Get(ctx, key, false)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
}

func TestViewCache_InvalidateDetachesInflightLoad(t *testing.T) {
	var calls int64
	started := make(chan struct{}, 2)
	release := make(chan struct{})
	load := func(ctx context.Context, key Key) (int64, error) {
		n := atomic.AddInt64(&calls, 1)
		if n == 1 {
			started <- struct{}{}
			<-release
		}
		return n, nil
	}
	c := NewViewCache("test", time.Minute, load, WithRetention(0))
	key := Key{Subject: uuid.New()}

	done := make(chan int64, 1)
	go func() {
		v, _ := c.Get(context.Background(), key, false)
		done <- v
	}()

	<-started
	c.Invalidate(key)

	// a Get after invalidation must not join the detached load
	v, err := c.Get(context.Background(), key, false)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	close(release)
	assert.Equal(t, int64(1), <-done)

	stored, ok := c.Peek(key)
	require.True(t, ok)
	assert.Equal(t, int64(2), stored, "detached load must not write back")
}

func TestViewCache_FailureKeepsPreviousValue(t *testing.T) {
	clock := newFakeClock()
	fail := errors.New("connection reset")
	var calls int64
	load := func(ctx context.Context, key Key) (string, error) {
		if atomic.AddInt64(&calls, 1) > 1 {
			return "", fail
		}
		return "first", nil
	}
	c := NewViewCache("test", 30*time.Second, load, WithClock(clock.Now), WithRetention(0))
	key := Key{Subject: uuid.New()}
	ctx := context.Background()

	v, err := c.Get(ctx, key, false)
	require.NoError(t, err)
	assert.Equal(t, "first", v)

	clock.Advance(45 * time.Second)
	v, err = c.Get(ctx, key, false)
	assert.ErrorIs(t, err, fail)
	assert.Equal(t, "first", v)

	age, ok := c.Age(key)
	require.True(t, ok)
	assert.Equal(t, 45*time.Second, age, "failed load keeps the previous age")
}

func TestViewCache_FailureWithoutPreviousValue(t *testing.T) {
	fail := errors.New("boom")
	c := NewViewCache("test", time.Minute, func(ctx context.Context, key Key) ([]string, error) {
		return nil, fail
	}, WithRetention(0))

	v, err := c.Get(context.Background(), Key{Subject: uuid.New()}, false)
	assert.ErrorIs(t, err, fail)
	assert.Nil(t, v)
	assert.Equal(t, 0, c.Len())
}

func TestViewCache_AbandonedGetDoesNotCancelLoad(t *testing.T) {
	release := make(chan struct{})
	finished := make(chan error, 1)
	load := func(ctx context.Context, key Key) (string, error) {
		<-release
		finished <- ctx.Err()
		return "value", nil
	}
	c := NewViewCache("test", time.Minute, load, WithRetention(0))
	key := Key{Subject: uuid.New()}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.Get(ctx, key, false)
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	assert.NoError(t, <-finished)

	require.Eventually(t, func() bool {
		v, ok := c.Peek(key)
		return ok && v == "value"
	}, time.Second, 10*time.Millisecond)
}

func TestViewCache_InvalidateSubject(t *testing.T) {
	var calls int64
	c := NewViewCache("test", time.Minute, countingLoader(&calls), WithRetention(0))
	ctx := context.Background()
	subject, other := uuid.New(), uuid.New()

	_, _ = c.Get(ctx, Key{Subject: subject, Secondary: "tenant"}, false)
	_, _ = c.Get(ctx, Key{Subject: subject, Secondary: "manager"}, false)
	_, _ = c.Get(ctx, Key{Subject: other}, false)

	assert.Equal(t, 2, c.InvalidateSubject(subject))
	assert.Equal(t, 1, c.Len())

	_, ok := c.Peek(Key{Subject: other})
	assert.True(t, ok)
}

func TestViewCache_Clear(t *testing.T) {
	var calls int64
	c := NewViewCache("test", time.Minute, countingLoader(&calls), WithRetention(0))
	ctx := context.Background()

	_, _ = c.Get(ctx, Key{Subject: uuid.New()}, false)
	_, _ = c.Get(ctx, Key{Subject: uuid.New()}, false)
	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestViewCache_SweepDropsIdleEntries(t *testing.T) {
	var calls int64
	clock := newFakeClock()
	c := NewViewCache("test", time.Minute, countingLoader(&calls),
		WithClock(clock.Now),
		WithRetention(10*time.Minute),
		WithCleanupInterval(time.Hour))
	defer c.Close()
	ctx := context.Background()

	idle, busy := Key{Subject: uuid.New()}, Key{Subject: uuid.New()}
	_, _ = c.Get(ctx, idle, false)
	_, _ = c.Get(ctx, busy, false)

	clock.Advance(9 * time.Minute)
	_, _ = c.Get(ctx, busy, true)
	clock.Advance(2 * time.Minute)

	assert.Equal(t, 1, c.Sweep())
	_, ok := c.Peek(busy)
	assert.True(t, ok)
	_, ok = c.Peek(idle)
	assert.False(t, ok)
}

func TestViewCache_SweepKeepsDetachedLoadDetached(t *testing.T) {
	clock := newFakeClock()
	started := make(chan struct{})
	release := make(chan struct{})
	var calls int64
	load := func(ctx context.Context, key Key) (string, error) {
		if atomic.AddInt64(&calls, 1) == 1 {
			close(started)
			<-release
			return "stale", nil
		}
		return "fresh", nil
	}
	c := NewViewCache("test", time.Minute, load,
		WithClock(clock.Now),
		WithRetention(10*time.Minute),
		WithCleanupInterval(time.Hour))
	defer c.Close()
	key := Key{Subject: uuid.New()}
	ctx := context.Background()

	done := make(chan string, 1)
	go func() {
		v, _ := c.Get(ctx, key, false)
		done <- v
	}()
	<-started

	c.Invalidate(key)
	c.InvalidateSubject(key.Subject)
	// the load outlives both marks
	clock.Advance(11 * time.Minute)
	c.Sweep()

	close(release)
	assert.Equal(t, "stale", <-done, "detached load still answers its caller")
	_, ok := c.Peek(key)
	assert.False(t, ok, "detached load must not write back after its mark is forgotten")

	v, err := c.Get(ctx, key, false)
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)
	stored, ok := c.Peek(key)
	require.True(t, ok)
	assert.Equal(t, "fresh", stored)
}

func TestKey_String(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	assert.Equal(t, id.String(), Key{Subject: id}.String())
	assert.Equal(t, id.String()+"/tenant", Key{Subject: id, Secondary: "tenant"}.String())
}
