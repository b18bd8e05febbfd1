package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	catalogapp "github.com/erp/stockledger/internal/application/catalog"
	inventoryapp "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/infrastructure/cache"
	"github.com/erp/stockledger/internal/infrastructure/config"
	"github.com/erp/stockledger/internal/infrastructure/logger"
	"github.com/erp/stockledger/internal/infrastructure/migration"
	"github.com/erp/stockledger/internal/infrastructure/persistence"
	"github.com/erp/stockledger/internal/infrastructure/telemetry"
	"github.com/erp/stockledger/internal/interfaces/http/handler"
	"github.com/erp/stockledger/internal/interfaces/http/middleware"
	"github.com/erp/stockledger/internal/interfaces/http/router"
	"github.com/erp/stockledger/migrations"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

//	@title			Stock Ledger API
//	@version		1.0
//	@description	Unit conversion, stock movement ledger and stock document transitions

//	@host		localhost:8080
//	@BasePath	/api/v1

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	baseLog, err := logger.New(logger.FromAppConfig(cfg.App, cfg.Log))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()
	telemetry.ServiceVersion = version
	providers, err := telemetry.Setup(ctx, cfg.Telemetry, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	log := providers.BridgeLogger(baseLog, logger.ParseLevel(cfg.Log.Level))
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting stock ledger",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithFullSQL(cfg.Telemetry.DBLogFullSQL))
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	if cfg.Database.Driver != config.DriverSQLite {
		if err := migrateUp(db, log); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	if err := telemetry.RegisterDBTracing(db.DB, providers.DBTracingConfig(), log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	meter := providers.Meter.Meter("github.com/erp/stockledger")
	dbMetrics, err := telemetry.RegisterDBMetrics(db.DB, meter, providers.DBMetricsConfig(), log)
	if err != nil {
		log.Fatal("Failed to register database metrics", zap.Error(err))
	}
	var ledgerMetrics *telemetry.LedgerMetrics
	if providers.Meter.IsEnabled() {
		ledgerMetrics, err = telemetry.NewLedgerMetrics(meter, telemetry.NewGormStockLevelProvider(db.DB), log)
		if err != nil {
			log.Fatal("Failed to create ledger metrics", zap.Error(err))
		}
	}

	// Repositories and services
	scope := persistence.NewGormTransactionScope(db.DB)
	unitRepo := persistence.NewGormUnitRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)

	unitService := catalogapp.NewUnitService(unitRepo, productRepo, log)
	seeded, err := unitService.SeedDefaults(ctx)
	if err != nil {
		log.Fatal("Failed to seed default units", zap.Error(err))
	}
	if seeded > 0 {
		log.Info("Seeded default units", zap.Int("count", seeded))
	}
	productService := catalogapp.NewProductService(productRepo, unitService, log)

	var ledgerOpts []inventoryapp.LedgerOption
	transitionOpts := []inventoryapp.TransitionOption{
		inventoryapp.WithQuantityScale(cfg.Ledger.QuantityScale),
	}
	if ledgerMetrics != nil {
		ledgerOpts = append(ledgerOpts, inventoryapp.WithLedgerMetrics(ledgerMetrics))
		transitionOpts = append(transitionOpts, inventoryapp.WithTransitionMetrics(ledgerMetrics))
	}
	ledger := inventoryapp.NewLedger(scope, log, ledgerOpts...)
	transitions := inventoryapp.NewStockTransitionService(scope, unitService, ledger, log, transitionOpts...)
	productStock := inventoryapp.NewProductStockService(scope, ledger, log)

	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg.Redis, cfg.Idempotency,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.IsProduction()),
	).CreateStore(ctx)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Order matters: request ID before logging, tracing before anything
	// that records span attributes.
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig()))
	engine.Use(middleware.BodyLimit(middleware.DefaultBodyLimit))
	if providers.Meter.IsEnabled() {
		engine.Use(middleware.HTTPMetrics(meter, log))
	}

	engine.GET("/health", handler.NewSystemHandler(version, map[string]handler.HealthCheck{
		"database": db.Ping,
		"idempotency": func(ctx context.Context) error {
			_, err := idempotencyStore.IsClaimed(ctx, "health")
			return err
		},
	}).Health)

	var limiter *middleware.RateLimiter
	if cfg.HTTP.RateLimitRequests > 0 {
		limiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		defer limiter.Stop()
	}

	profiling := middleware.DefaultProfilingConfig()
	profiling.Enabled = cfg.Telemetry.ProfilingEnabled

	router.NewRouter(engine,
		router.WithAPIVersion("v1"),
		router.WithMiddleware(
			middleware.Actor(),
			middleware.TracingAttributeInjector(),
			middleware.ProfilingWithConfig(profiling),
			middleware.RateLimit(limiter),
			middleware.Idempotency(middleware.IdempotencyConfig{
				Store: idempotencyStore,
				TTL:   cfg.Idempotency.TTL,
			}),
		),
	).
		Public(handler.NewSystemHandler(version, nil)).
		Register(handler.NewUnitHandler(unitService)).
		Register(handler.NewProductHandler(productService, unitService, productStock, ledger)).
		Register(handler.NewDocumentHandler(transitions)).
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

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	timeout := cfg.HTTP.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := idempotencyStore.Close(); err != nil {
		log.Warn("Error closing idempotency store", zap.Error(err))
	}
	if err := ledgerMetrics.Close(); err != nil {
		log.Warn("Error closing ledger metrics", zap.Error(err))
	}
	if err := dbMetrics.Close(); err != nil {
		log.Warn("Error closing database metrics", zap.Error(err))
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Warn("Error shutting down telemetry", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// migrateUp applies the embedded PostgreSQL migrations. SQLite databases
// are migrated by GORM when they are opened.
func migrateUp(db *persistence.Database, log *zap.Logger) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	m, err := migration.NewFromFS(sqlDB, migrations.FS, log)
	if err != nil {
		return err
	}
	// Closing the migrator would close the shared sql.DB.
	return m.Up()
}
