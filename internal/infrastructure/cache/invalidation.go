package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultCloseTimeout = 5 * time.Second
	// DefaultInvalidationChannel is the Pub/Sub channel used when none is configured
	DefaultInvalidationChannel = "housing:directory:invalidate"
)

// InvalidationScope names the view family a message targets
type InvalidationScope string

const (
	ScopeOverviews InvalidationScope = "overviews"
	ScopeFlats     InvalidationScope = "flats"
	ScopeStats     InvalidationScope = "stats"
	ScopeRequests  InvalidationScope = "requests"
	// ScopeIdentity drops every view keyed by the subject
	ScopeIdentity InvalidationScope = "identity"
)

// InvalidationMessage is broadcast to peer instances after a local invalidation
type InvalidationMessage struct {
	Origin    string            `json:"origin"`
	Scope     InvalidationScope `json:"scope"`
	Subject   uuid.UUID         `json:"subject"`
	Timestamp int64             `json:"timestamp"`
}

// Invalidator broadcasts invalidations across instances
type Invalidator interface {
	Publish(ctx context.Context, msg InvalidationMessage) error
	Subscribe(ctx context.Context, callback func(msg InvalidationMessage)) error
	Close() error
}

// NopInvalidator is used when cross-instance invalidation is disabled
type NopInvalidator struct{}

// Publish does nothing
func (NopInvalidator) Publish(context.Context, InvalidationMessage) error { return nil }

// Subscribe blocks until ctx is done
func (NopInvalidator) Subscribe(ctx context.Context, _ func(InvalidationMessage)) error {
	<-ctx.Done()
	return nil
}

// Close does nothing
func (NopInvalidator) Close() error { return nil }

// RedisInvalidator implements Invalidator using Redis Pub/Sub
type RedisInvalidator struct {
	client     *redis.Client
	ownsClient bool
	channel    string
	logger     *zap.Logger
	cancelFn   context.CancelFunc
	doneCh     chan struct{}
	doneOnce   sync.Once
	mu         sync.Mutex
	isRunning  bool
}

// RedisInvalidatorOption is a functional option for configuring the invalidator
type RedisInvalidatorOption func(*RedisInvalidator)

// WithInvalidatorChannel sets the Pub/Sub channel name
func WithInvalidatorChannel(channel string) RedisInvalidatorOption {
	return func(i *RedisInvalidator) {
		if channel != "" {
			i.channel = channel
		}
	}
}

// WithInvalidatorLogger sets the logger for the invalidator
func WithInvalidatorLogger(logger *zap.Logger) RedisInvalidatorOption {
	return func(i *RedisInvalidator) {
		i.logger = logger
	}
}

// NewRedisInvalidator connects to Redis and returns an invalidator that owns the client
func NewRedisInvalidator(ctx context.Context, opts *redis.Options, options ...RedisInvalidatorOption) (*RedisInvalidator, error) {
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	i := NewRedisInvalidatorWithClient(client, options...)
	i.ownsClient = true
	return i, nil
}

// NewRedisInvalidatorWithClient creates an invalidator on an existing client.
// The caller keeps ownership of the client.
func NewRedisInvalidatorWithClient(client *redis.Client, opts ...RedisInvalidatorOption) *RedisInvalidator {
	i := &RedisInvalidator{
		client:  client,
		channel: DefaultInvalidationChannel,
		logger:  zap.NewNop(),
		doneCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Publish sends an invalidation to all subscribers
func (i *RedisInvalidator) Publish(ctx context.Context, msg InvalidationMessage) error {
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixNano()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal invalidation: %w", err)
	}

	if err := i.client.Publish(ctx, i.channel, data).Err(); err != nil {
		i.logger.Error("Failed to publish invalidation",
			zap.String("channel", i.channel),
			zap.Error(err))
		return fmt.Errorf("failed to publish invalidation: %w", err)
	}

	i.logger.Debug("Published invalidation",
		zap.String("scope", string(msg.Scope)),
		zap.String("subject", msg.Subject.String()))
	return nil
}

// Subscribe listens for invalidations and invokes callback for each one.
// It blocks until ctx is cancelled or Close is called.
func (i *RedisInvalidator) Subscribe(ctx context.Context, callback func(msg InvalidationMessage)) error {
	i.mu.Lock()
	if i.isRunning {
		i.mu.Unlock()
		return fmt.Errorf("subscription already running")
	}
	i.isRunning = true
	subCtx, cancel := context.WithCancel(ctx)
	i.cancelFn = cancel
	i.mu.Unlock()

	defer func() {
		i.mu.Lock()
		i.isRunning = false
		i.mu.Unlock()
		i.markDone()
	}()

	pubsub := i.client.Subscribe(subCtx, i.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(subCtx); err != nil {
		return fmt.Errorf("failed to subscribe to channel: %w", err)
	}

	i.logger.Info("Subscribed to invalidation channel", zap.String("channel", i.channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-subCtx.Done():
			i.logger.Info("Invalidation subscription stopped")
			return subCtx.Err()
		case msg, ok := <-ch:
			if !ok {
				i.logger.Warn("Invalidation channel closed")
				return nil
			}

			var inv InvalidationMessage
			if err := json.Unmarshal([]byte(msg.Payload), &inv); err != nil {
				i.logger.Error("Failed to unmarshal invalidation",
					zap.String("payload", msg.Payload),
					zap.Error(err))
				continue
			}
			i.dispatch(callback, inv)
		}
	}
}

func (i *RedisInvalidator) dispatch(callback func(InvalidationMessage), msg InvalidationMessage) {
	defer func() {
		if r := recover(); r != nil {
			i.logger.Error("Panic in invalidation callback", zap.Any("panic", r))
		}
	}()
	callback(msg)
}

func (i *RedisInvalidator) markDone() {
	i.doneOnce.Do(func() {
		close(i.doneCh)
	})
}

// Close stops the subscription and releases the client if owned
func (i *RedisInvalidator) Close() error {
	i.mu.Lock()
	cancelFn := i.cancelFn
	i.mu.Unlock()

	if cancelFn != nil {
		cancelFn()
		select {
		case <-i.doneCh:
		case <-time.After(defaultCloseTimeout):
			i.logger.Warn("Timeout waiting for subscription to stop")
		}
	}

	if i.ownsClient {
		return i.client.Close()
	}
	return nil
}

var (
	_ Invalidator = (*RedisInvalidator)(nil)
	_ Invalidator = NopInvalidator{}
)
