package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appdispatch "github.com/skol/backend/internal/application/dispatch"
	appinventory "github.com/skol/backend/internal/application/inventory"
	appprescription "github.com/skol/backend/internal/application/prescription"
	"github.com/skol/backend/internal/infrastructure/auth"
	"github.com/skol/backend/internal/infrastructure/cache"
	"github.com/skol/backend/internal/infrastructure/config"
	"github.com/skol/backend/internal/infrastructure/event"
	"github.com/skol/backend/internal/infrastructure/logger"
	"github.com/skol/backend/internal/infrastructure/persistence"
	"github.com/skol/backend/internal/infrastructure/strategy/lot"
	"github.com/skol/backend/internal/interfaces/http/handler"
	"github.com/skol/backend/internal/interfaces/http/middleware"
	"github.com/skol/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Skol Fulfillment Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Idempotency store backs both retried event deliveries and the
	// Idempotency-Key request header
	storeFactory := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log))
	idempotencyStore, err := storeFactory.CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}

	// Repositories and transaction scopes
	prescriptionRepo := persistence.NewGormPrescriptionRepository(db.DB)
	inventoryRepo := persistence.NewGormInventoryItemRepository(db.DB)
	noteRepo := persistence.NewGormDispatchNoteRepository(db.DB)
	prescriptionScope := persistence.NewGormPrescriptionTransactionScope(db.DB)
	dispatchScope := persistence.NewGormDispatchTransactionScope(db.DB)

	// Ephemeral staging for the dispatch screen's scan validations and lot
	// picks. In-process by design: staging is advisory until note generation.
	staging := cache.NewInMemoryStagingStore(cfg.Fulfillment.StagingTTL)
	defer func() {
		_ = staging.Close()
	}()

	// Application services
	prescriptionService := appprescription.NewService(prescriptionRepo, prescriptionScope)
	dispatchService := appdispatch.NewService(
		prescriptionRepo,
		inventoryRepo,
		noteRepo,
		staging,
		lot.NewFEFOLotStrategy(),
		dispatchScope,
	)
	inventoryService := appinventory.NewService(inventoryRepo)

	// Event bus and handlers
	eventBus := event.NewInMemoryEventBus(log)

	lowStockHandler := event.NewIdempotentHandler(
		event.NewLowStockAlertHandler(log), idempotencyStore, log)
	eventBus.Subscribe(lowStockHandler)

	fulfillmentHandler := event.NewIdempotentHandler(
		event.NewFulfillmentLogHandler(log), idempotencyStore, log)
	eventBus.Subscribe(fulfillmentHandler)

	log.Info("Event handlers registered",
		zap.Strings("low_stock_events", lowStockHandler.EventTypes()),
		zap.Strings("fulfillment_events", fulfillmentHandler.EventTypes()),
	)

	prescriptionService.SetEventPublisher(eventBus)
	dispatchService.SetEventPublisher(eventBus)
	inventoryService.SetEventPublisher(eventBus)

	jwtService := auth.NewJWTService(cfg.JWT)

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

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.AccessLog(log))
	engine.Use(middleware.Secure())

	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Health and system info stay reachable without a token; everything else
	// requires an authenticated operator
	jwtConfig := middleware.JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths: []string{
			"/api/v1/health",
			"/api/v1/system/ping",
			"/api/v1/system/info",
		},
		Logger: log,
	}
	r.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))
	r.Use(middleware.Idempotency(idempotencyStore, cfg.Fulfillment.IdempotencyTTL))

	r.Register(handler.NewSystemHandler(db)).
		Register(handler.NewPrescriptionHandler(prescriptionService)).
		Register(handler.NewDispatchHandler(dispatchService)).
		Register(handler.NewInventoryHandler(inventoryService))

	r.Setup()

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
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
