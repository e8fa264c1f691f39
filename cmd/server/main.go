package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"ridehail/internal/app"
	"ridehail/internal/config"
	"ridehail/internal/handler"
	"ridehail/internal/logger"
	"ridehail/internal/pricing"
	internalRedis "ridehail/internal/redis"
	"ridehail/internal/repository/postgres"
	"ridehail/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// New Relic comes first so the database and redis clients can be instrumented.
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Printf("failed to initialize New Relic: %v", err)
			nrApp = nil
		}
	}

	zlog, err := logger.New(cfg.Log.Level, nrApp)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	if nrApp != nil {
		zlog.Info("new relic enabled", zap.String("app", cfg.NewRelic.AppName))
	}
	if cfg.UsesDevSecret() {
		zlog.Warn("JWT_SECRET not set, signing sessions with the development secret")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := app.NewDatabase(ctx, cfg.Database, nrApp, zlog)
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	zlog.Info("connected to postgres", zap.String("host", cfg.Database.Host))

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		zlog.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()
	zlog.Info("connected to redis", zap.String("addr", cfg.Redis.Addr))

	server := wireServer(db, redisClient, nrApp, cfg, zlog)

	go func() {
		zlog.Info("starting server", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error("server forced to shutdown", zap.Error(err))
	}
	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}

	zlog.Info("server exited")
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(db *sql.DB, redisClient *redis.Client, nrApp *newrelic.Application, cfg *config.Config, zlog *zap.Logger) *http.Server {
	// Redis stores.
	locationStore := internalRedis.NewLocationStore(redisClient)
	lockStore := internalRedis.NewLockStore(redisClient)
	cacheStore := internalRedis.NewCacheStore(redisClient)
	eventBus := internalRedis.NewEventBus(redisClient)

	// Repositories.
	userRepo := postgres.NewUserRepository(db)
	driverRepo := postgres.NewDriverRepository(db)
	tripRepo := postgres.NewTripRepository(db)
	walletRepo := postgres.NewWalletRepository(db)
	transactor := postgres.NewTransactor(db)

	// Services.
	calculator := pricing.NewCalculator()
	identityService := service.NewIdentityService(userRepo, driverRepo, transactor, service.IdentityOptions{
		Secret:     []byte(cfg.Auth.JWTSecret),
		TokenTTL:   cfg.Auth.TokenTTL,
		BcryptCost: cfg.Auth.BcryptCost,
	}, zlog.Named("identity"))
	notificationService := service.NewNotificationService(eventBus, zlog.Named("notification"))
	receiptService := service.NewReceiptService(notificationService)
	driverService := service.NewDriverService(locationStore, cacheStore, driverRepo, zlog.Named("driver")).
		WithSearchRadius(cfg.Dispatch.SearchRadiusKm)
	walletService := service.NewWalletService(walletRepo, service.NewMockPSP(), zlog.Named("wallet"))
	tripService := service.NewTripService(service.TripServiceDeps{
		TripRepo:            tripRepo,
		UserRepo:            userRepo,
		Transactor:          transactor,
		Calculator:          calculator,
		DriverService:       driverService,
		WalletService:       walletService,
		NotificationService: notificationService,
		ReceiptService:      receiptService,
		LockStore:           lockStore,
		CacheStore:          cacheStore,
		EventBus:            eventBus,
		Logger:              zlog.Named("trip"),
	})
	dispatchService := service.NewDispatchService(tripService, driverService, nil, lockStore, zlog.Named("dispatch")).
		WithLockTTL(cfg.Dispatch.LockTTL)

	router := app.NewRouter(app.RouterDeps{
		Authenticator: identityService,
		UserHandler:   handler.NewUserHandler(identityService),
		FareHandler:   handler.NewFareHandler(calculator),
		TripHandler:   handler.NewTripHandler(tripService, dispatchService, receiptService),
		DriverHandler: handler.NewDriverHandler(driverService),
		WalletHandler: handler.NewWalletHandler(walletService),
		EventsHandler: handler.NewEventsHandler(tripService, zlog.Named("events")),
		RedisClient:   redisClient,
		NewRelicApp:   nrApp,
		Logger:        zlog,
	})

	// The websocket upgrader clears these deadlines on hijacked connections.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
