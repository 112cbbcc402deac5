package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	_ "github.com/housing/backend/docs"
	"github.com/housing/backend/internal/application/directory"
	applocation "github.com/housing/backend/internal/application/location"
	"github.com/housing/backend/internal/application/lookup"
	appoccupancy "github.com/housing/backend/internal/application/occupancy"
	"github.com/housing/backend/internal/infrastructure/cache"
	"github.com/housing/backend/internal/infrastructure/config"
	"github.com/housing/backend/internal/infrastructure/event"
	"github.com/housing/backend/internal/infrastructure/logger"
	"github.com/housing/backend/internal/infrastructure/persistence"
	"github.com/housing/backend/internal/infrastructure/scheduler"
	"github.com/housing/backend/internal/infrastructure/telemetry"
	"github.com/housing/backend/internal/interfaces/http/handler"
	"github.com/housing/backend/internal/interfaces/http/middleware"
	"github.com/housing/backend/internal/interfaces/http/router"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

//	@title			Housing Directory API
//	@version		1.0
//	@description	Occupancy directory and request lifecycle

//	@contact.name	API Support

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Signed identity token, required when http.identity_secret is set. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	baseLog, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	providers, err := telemetry.Setup(ctx, cfg.Telemetry, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	log := providers.BridgeLogger(baseLog)
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting housing directory",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	db, err := persistence.NewDatabase(&cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if cfg.Telemetry.DBTracing {
		if err := telemetry.RegisterDBTracing(db.DB, "postgresql", log); err != nil {
			log.Warn("Database tracing disabled", zap.Error(err))
		}
	}
	log.Info("Database connected successfully")

	// Store adapters
	client := lookup.NewClient(lookup.Repositories{
		Counties:       persistence.NewGormCountyRepository(db.DB),
		Municipalities: persistence.NewGormMunicipalityRepository(db.DB),
		Settlements:    persistence.NewGormSettlementRepository(db.DB),
		Addresses:      persistence.NewGormAddressRepository(db.DB),
		Buildings:      persistence.NewGormBuildingRepository(db.DB),
		Accountants:    persistence.NewGormBuildingAccountantRepository(db.DB),
		Flats:          persistence.NewGormFlatRepository(db.DB),
		Profiles:       persistence.NewGormProfileRepository(db.DB),
		Requests:       persistence.NewGormRequestRepository(db.DB),
		Intents:        persistence.NewGormIntentRepository(db.DB),
	})

	metrics, err := telemetry.NewDirectoryMetrics(providers.Meter("housing/directory"))
	if err != nil {
		log.Fatal("Failed to register directory metrics", zap.Error(err))
	}

	invalidator, err := cache.NewInvalidatorFactory(cfg.Redis, cfg.Directory, cache.WithFactoryLogger(log)).Create(ctx)
	if err != nil {
		log.Fatal("Failed to create cache invalidator", zap.Error(err))
	}
	defer func() {
		_ = invalidator.Close()
	}()

	// Read side
	retry := directory.RetryPolicy{
		MaxAttempts:     cfg.Directory.RetryMaxAttempts,
		InitialInterval: cfg.Directory.RetryInitialInterval,
		MaxInterval:     cfg.Directory.RetryMaxInterval,
	}
	dirOpts := []directory.Option{
		directory.WithLogger(log),
		directory.WithMetrics(metrics),
		directory.WithInvalidator(invalidator),
		directory.WithFanOut(cfg.Directory.FanOut),
		directory.WithRetryPolicy(retry),
	}
	resolver := applocation.NewResolver(client,
		applocation.WithLogger(log),
		applocation.WithBackOff(retry.BackOff))
	directoryService := directory.NewService(
		directory.NewBuilder(client, resolver, dirOpts...),
		directory.NewStatsAggregator(client, dirOpts...),
		cfg.Directory,
		dirOpts...,
	)
	defer directoryService.Close()
	go func() {
		if err := directoryService.Listen(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Invalidation listener stopped", zap.Error(err))
		}
	}()

	// Write side
	occupancyService := appoccupancy.NewService(client, directoryService, cfg.Lifecycle,
		appoccupancy.WithLogger(log),
		appoccupancy.WithMetrics(metrics),
	)

	serializer := event.NewEventSerializer()
	event.RegisterAllEvents(serializer)
	eventBus := event.NewInMemoryEventBus(log)
	audit := event.NewAuditHandler(serializer, log)
	eventBus.Subscribe(audit, audit.EventTypes()...)
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	occupancyService.SetEventPublisher(eventBus)

	// Background jobs
	jobs := scheduler.NewScheduler(log, scheduler.WithRecorder(metrics))
	if cfg.Directory.StatsRefreshInterval > 0 {
		if err := jobs.Add(scheduler.StatsRefreshJob(directoryService, cfg.Directory.StatsRefreshInterval)); err != nil {
			log.Fatal("Failed to schedule stats refresh", zap.Error(err))
		}
	}
	if cfg.Lifecycle.ReconcileEnabled {
		if err := jobs.Add(scheduler.IntentReconcileJob(occupancyService, cfg.Lifecycle.ReconcileInterval)); err != nil {
			log.Fatal("Failed to schedule intent reconciliation", zap.Error(err))
		}
	}
	if err := jobs.Start(ctx); err != nil {
		log.Fatal("Failed to start scheduler", zap.Error(err))
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Global middleware, in order:
	// 1. RequestID - generate/propagate request ID
	// 2. Recovery - catch panics
	// 3. Logger - log requests
	// 4. Security headers and CORS
	// 5. Tracing and HTTP metrics
	// 6. Body limit and request timeout
	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(corsConfig))
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     providers.TracingEnabled(),
	}))
	engine.Use(middleware.HTTPMetrics(providers.Meter("housing/http")))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodyBytes))
	engine.Use(middleware.Timeout(cfg.HTTP.RequestTimeout))

	systemHandler := handler.NewSystemHandler(sqlPinger{db}, jobs, directoryService)
	engine.GET("/health", systemHandler.Health)
	engine.GET("/swagger/*any",
		middleware.SwaggerProtection(middleware.SwaggerConfig{
			Enabled:    cfg.HTTP.SwaggerEnabled,
			AllowedIPs: cfg.HTTP.SwaggerAllowedIPs,
		}),
		ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API middleware: identity first so limits, spans and profiles see the caller
	apiMiddleware := []gin.HandlerFunc{
		middleware.ResolveIdentity(middleware.IdentityConfig{Secret: cfg.HTTP.IdentitySecret}),
		middleware.TracingIdentity(),
		middleware.Profiling(cfg.Telemetry.ProfilingAddress != ""),
	}
	if cfg.HTTP.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimit, cfg.HTTP.RateLimitWindow)
		go limiter.Sweep(ctx)
		apiMiddleware = append(apiMiddleware, middleware.RateLimit(limiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimit),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	router.NewRouter(engine, router.WithAPIVersion("v1"), router.WithMiddleware(apiMiddleware...)).
		Register(router.APIGroups(router.Handlers{
			Directory: handler.NewDirectoryHandler(directoryService),
			Occupancy: handler.NewOccupancyHandler(occupancyService),
		})...).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := jobs.Stop(shutdownCtx); err != nil {
		log.Warn("Scheduler did not stop cleanly", zap.Error(err))
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Warn("Event bus did not stop cleanly", zap.Error(err))
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Warn("Telemetry shutdown failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// sqlPinger adapts the gorm connection to handler.Pinger
type sqlPinger struct {
	db *persistence.Database
}

func (p sqlPinger) PingContext(ctx context.Context) error {
	sqlDB, err := p.db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
