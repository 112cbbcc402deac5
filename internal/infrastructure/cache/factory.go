package cache

import (
	"context"
	"fmt"

	"github.com/housing/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// InvalidatorFactory creates invalidators based on configuration
type InvalidatorFactory struct {
	redisConfig      config.RedisConfig
	directoryConfig  config.DirectoryConfig
	logger           *zap.Logger
	allowNopFallback bool
}

// InvalidatorFactoryOption is a functional option for configuring the factory
type InvalidatorFactoryOption func(*InvalidatorFactory)

// WithFactoryLogger sets the logger for the factory and the invalidators it creates
func WithFactoryLogger(logger *zap.Logger) InvalidatorFactoryOption {
	return func(f *InvalidatorFactory) {
		f.logger = logger
	}
}

// WithNopFallback controls whether an unreachable Redis degrades to
// in-process invalidation only. Default is true.
func WithNopFallback(allow bool) InvalidatorFactoryOption {
	return func(f *InvalidatorFactory) {
		f.allowNopFallback = allow
	}
}

// NewInvalidatorFactory creates a new factory
func NewInvalidatorFactory(redisCfg config.RedisConfig, dirCfg config.DirectoryConfig, opts ...InvalidatorFactoryOption) *InvalidatorFactory {
	f := &InvalidatorFactory{
		redisConfig:      redisCfg,
		directoryConfig:  dirCfg,
		logger:           zap.NewNop(),
		allowNopFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create returns a Redis invalidator when broadcasting is enabled and Redis
// answers, otherwise a NopInvalidator
func (f *InvalidatorFactory) Create(ctx context.Context) (Invalidator, error) {
	if !f.directoryConfig.InvalidationEnabled {
		f.logger.Info("Cross-instance invalidation disabled")
		return NopInvalidator{}, nil
	}

	inv, err := NewRedisInvalidator(ctx, &redis.Options{
		Addr:     f.redisConfig.Addr(),
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	},
		WithInvalidatorChannel(f.directoryConfig.InvalidationChannel),
		WithInvalidatorLogger(f.logger),
	)
	if err == nil {
		f.logger.Info("Using Redis invalidation broadcast",
			zap.String("addr", f.redisConfig.Addr()),
			zap.String("channel", inv.channel))
		return inv, nil
	}

	if !f.allowNopFallback {
		return nil, fmt.Errorf("redis required for invalidation but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, invalidations stay local to this instance", zap.Error(err))
	return NopInvalidator{}, nil
}
