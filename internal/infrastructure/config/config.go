package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Telemetry TelemetryConfig
	Directory DirectoryConfig
	Lifecycle LifecycleConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
	LogLevel        string
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	ShutdownTimeout  time.Duration
	MaxHeaderBytes   int
	CORSAllowOrigins []string
	TrustedProxies   []string

	RequestTimeout  time.Duration
	MaxBodyBytes    int64
	RateLimit       int           // requests per window per caller, 0 disables
	RateLimitWindow time.Duration

	// IdentitySecret switches caller identity from the X-User-ID/X-User-Role
	// headers to HS256 bearer tokens signed with this secret
	IdentitySecret string

	SwaggerEnabled    bool
	SwaggerAllowedIPs []string
}

// TelemetryConfig holds OpenTelemetry and profiling configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	ServiceName       string
	Insecure          bool
	ExportInterval    time.Duration
	SamplingRatio     float64
	LogsEnabled       bool   // bridge zap records to the collector
	DBTracing         bool   // otelgorm spans for every query
	ProfilingAddress  string // pyroscope server; empty disables profiling
}

// DirectoryConfig controls the view cache, read retries and scheduled refresh
type DirectoryConfig struct {
	RequestTTL   time.Duration // request lists
	FlatTTL      time.Duration // flat lists per building
	OverviewTTL  time.Duration // building overviews per manager
	StatsTTL     time.Duration // manager statistics
	IdleEviction time.Duration // entries untouched this long are purged

	StatsRefreshInterval time.Duration // auto-refresh period for watched managers
	WatchRetention       time.Duration // managers not viewed for this long stop being refreshed

	RetryMaxAttempts     uint64
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration

	FanOut int // concurrent tenant lookups per flat list build

	InvalidationEnabled bool   // broadcast invalidations over Redis pub/sub
	InvalidationChannel string // pub/sub channel name
}

// LifecycleConfig controls the approval journal sweep
type LifecycleConfig struct {
	ReconcileEnabled  bool
	ReconcileInterval time.Duration
	ReconcileGrace    time.Duration // intents younger than this are left alone
	ReconcileBatch    int
}

// Load loads configuration from config.toml and HOUSING_* environment variables.
// Priority (highest to lowest):
// 1. Environment variables (e.g. HOUSING_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")
	return load(v)
}

// LoadFile loads configuration from an explicit file path
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("HOUSING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
			LogLevel:        v.GetString("database.log_level"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			ShutdownTimeout:   v.GetDuration("http.shutdown_timeout"),
			MaxHeaderBytes:    v.GetInt("http.max_header_bytes"),
			CORSAllowOrigins:  v.GetStringSlice("http.cors_allow_origins"),
			TrustedProxies:    v.GetStringSlice("http.trusted_proxies"),
			RequestTimeout:    v.GetDuration("http.request_timeout"),
			MaxBodyBytes:      v.GetInt64("http.max_body_bytes"),
			RateLimit:         v.GetInt("http.rate_limit"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
			IdentitySecret:    v.GetString("http.identity_secret"),
			SwaggerEnabled:    v.GetBool("http.swagger_enabled"),
			SwaggerAllowedIPs: v.GetStringSlice("http.swagger_allowed_ips"),
		},

		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			ExportInterval:    v.GetDuration("telemetry.export_interval"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			DBTracing:         v.GetBool("telemetry.db_tracing"),
			ProfilingAddress:  v.GetString("telemetry.profiling_address"),
		},
		Directory: DirectoryConfig{
			RequestTTL:           v.GetDuration("directory.request_ttl"),
			FlatTTL:              v.GetDuration("directory.flat_ttl"),
			OverviewTTL:          v.GetDuration("directory.overview_ttl"),
			StatsTTL:             v.GetDuration("directory.stats_ttl"),
			IdleEviction:         v.GetDuration("directory.idle_eviction"),
			StatsRefreshInterval: v.GetDuration("directory.stats_refresh_interval"),
			WatchRetention:       v.GetDuration("directory.watch_retention"),
			RetryMaxAttempts:     v.GetUint64("directory.retry_max_attempts"),
			RetryInitialInterval: v.GetDuration("directory.retry_initial_interval"),
			RetryMaxInterval:     v.GetDuration("directory.retry_max_interval"),
			FanOut:               v.GetInt("directory.fan_out"),
			InvalidationEnabled:  v.GetBool("directory.invalidation_enabled"),
			InvalidationChannel:  v.GetString("directory.invalidation_channel"),
		},
		Lifecycle: LifecycleConfig{
			ReconcileEnabled:  !v.IsSet("lifecycle.reconcile_enabled") || v.GetBool("lifecycle.reconcile_enabled"),
			ReconcileInterval: v.GetDuration("lifecycle.reconcile_interval"),
			ReconcileGrace:    v.GetDuration("lifecycle.reconcile_grace"),
			ReconcileBatch:    v.GetInt("lifecycle.reconcile_batch"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "housing-directory"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "housing"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 30 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20
	}
	if cfg.HTTP.RequestTimeout == 0 {
		cfg.HTTP.RequestTimeout = 10 * time.Second
	}
	if cfg.HTTP.MaxBodyBytes == 0 {
		cfg.HTTP.MaxBodyBytes = 64 << 10
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ExportInterval == 0 {
		cfg.Telemetry.ExportInterval = 30 * time.Second
	}

	d := &cfg.Directory
	if d.RequestTTL == 0 {
		d.RequestTTL = 30 * time.Second
	}
	if d.FlatTTL == 0 {
		d.FlatTTL = 30 * time.Second
	}
	if d.OverviewTTL == 0 {
		d.OverviewTTL = 30 * time.Second
	}
	if d.StatsTTL == 0 {
		d.StatsTTL = 2 * time.Minute
	}
	if d.IdleEviction == 0 {
		d.IdleEviction = 30 * time.Minute
	}
	if d.StatsRefreshInterval == 0 {
		d.StatsRefreshInterval = 2 * time.Minute
	}
	if d.WatchRetention == 0 {
		d.WatchRetention = 10 * time.Minute
	}
	if d.RetryMaxAttempts == 0 {
		d.RetryMaxAttempts = 3
	}
	if d.RetryInitialInterval == 0 {
		d.RetryInitialInterval = 100 * time.Millisecond
	}
	if d.RetryMaxInterval == 0 {
		d.RetryMaxInterval = 2 * time.Second
	}
	if d.FanOut == 0 {
		d.FanOut = 8
	}
	if d.InvalidationChannel == "" {
		d.InvalidationChannel = "housing:directory:invalidate"
	}

	l := &cfg.Lifecycle
	if l.ReconcileInterval == 0 {
		l.ReconcileInterval = time.Minute
	}
	if l.ReconcileGrace == 0 {
		l.ReconcileGrace = 30 * time.Second
	}
	if l.ReconcileBatch == 0 {
		l.ReconcileBatch = 50
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	d := c.Directory
	for name, ttl := range map[string]time.Duration{
		"directory.request_ttl":  d.RequestTTL,
		"directory.flat_ttl":     d.FlatTTL,
		"directory.overview_ttl": d.OverviewTTL,
		"directory.stats_ttl":    d.StatsTTL,
	} {
		if ttl < 0 {
			return fmt.Errorf("%s cannot be negative", name)
		}
	}
	if d.FanOut < 1 {
		return fmt.Errorf("directory.fan_out must be at least 1")
	}
	if d.RetryMaxInterval < d.RetryInitialInterval {
		return fmt.Errorf("directory.retry_max_interval (%s) cannot be below directory.retry_initial_interval (%s)",
			d.RetryMaxInterval, d.RetryInitialInterval)
	}
	if r := c.Telemetry.SamplingRatio; r < 0 || r > 1 {
		return fmt.Errorf("telemetry.sampling_ratio must be within [0, 1], got %v", r)
	}
	if c.Lifecycle.ReconcileBatch < 1 {
		return fmt.Errorf("lifecycle.reconcile_batch must be at least 1")
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.HTTP.IdentitySecret == "" {
			return fmt.Errorf("http.identity_secret is required in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}
	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
