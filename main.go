package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"telecare/config"
	"telecare/cron"
	"telecare/database"
	"telecare/database/repository"
	"telecare/handlers"
	"telecare/middleware"
	"telecare/routes"
	"telecare/services/availability"
	"telecare/services/booking"
	"telecare/services/callsession"
	"telecare/services/escrow"
	"telecare/services/notification"
	"telecare/services/queue"
	"telecare/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func main() {
	config.LoadConfig()
	utils.InitializeLogger()
	logger := utils.GetLogger()
	defer logger.Sync()

	cfg := config.AppConfig
	rootCtx, stopRoot := context.WithCancel(context.Background())
	defer stopRoot()

	// Stores.
	var (
		repos       repository.Set
		mongoClient *mongo.Client
	)
	if cfg.Store == "memory" {
		logger.Warn("main: STORE=memory, bookings will not survive a restart")
		repos = repository.NewMemorySet()
	} else {
		database.InitDB()
		mongoClient = database.MongoClient
		repos = repository.NewMongoSet(database.DB())
	}
	indexCtx, cancelIndex := context.WithTimeout(rootCtx, 30*time.Second)
	if err := repos.EnsureIndexes(indexCtx); err != nil {
		logger.Fatal("main: failed to ensure indexes", zap.Error(err))
	}
	cancelIndex()

	metrics := utils.NewBookingMetrics(prometheus.DefaultRegisterer)

	// Push delivery. Without credentials pushes are logged instead of sent.
	var sender notification.Sender
	if fcm, err := utils.FirebaseInit(rootCtx, cfg.FirebaseCredentialsFile); err != nil {
		logger.Warn("main: firebase unavailable, push notifications disabled", zap.Error(err))
	} else {
		sender = fcm
	}

	reminderRedis := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisReminderQueueDB,
	}
	asynqClient := asynq.NewClient(reminderRedis)
	defer asynqClient.Close()

	gateway := notification.NewFCMGateway(sender, repos.Devices, asynqClient, logger)

	// Video sessions.
	var provider callsession.Provider
	if cfg.VideoAPIURL != "" {
		provider = callsession.NewHTTPProvider(cfg.VideoAPIURL, cfg.VideoAPIKey)
	} else {
		logger.Warn("main: VIDEO_API_URL not set, using the local call provider")
		provider = callsession.NewLocalProvider(cfg.CallPropagationDelay)
	}
	bridge := callsession.NewDefaultCallBridge(provider, cfg.JoinMaxAttempts, cfg.JoinRetryDelay, metrics, logger)

	if cfg.WalletDepositsEnabled {
		logger.Warn("main: self-service wallet deposits are enabled")
	}

	// Services.
	availabilityService := availability.NewDefaultAvailabilityService(
		repos.Bookings,
		repos.Professionals,
		availability.CapacityPolicy{Default: cfg.DefaultDailyCapacity, Pharmacist: cfg.PharmacistDailyCapacity},
		cfg.Location(),
		logger,
	)
	policy := booking.PolicyFromConfig(cfg)
	bookingService := booking.NewDefaultBookingService(booking.Deps{
		Bookings:      repos.Bookings,
		Professionals: repos.Professionals,
		Availability:  availabilityService,
		Queue:         queue.NewDefaultQueueService(repos.Bookings, logger),
		Escrow:        escrow.NewDefaultEscrowCoordinator(repos.Wallets, logger),
		Bridge:        bridge,
		Notifier:      gateway,
		Metrics:       metrics,
		Logger:        logger,
	}, policy)

	// Background work.
	worker := cron.NewReminderWorker(reminderRedis, repos.Bookings, gateway, logger)
	worker.Start()

	var (
		locker       cron.Locker
		redisClients []*redis.Client
	)
	if lockClient, err := utils.GetLockClient(); err != nil {
		logger.Warn("main: lock redis unavailable, reconciler runs without a leader lock", zap.Error(err))
	} else {
		locker = cron.NewRedisLocker(lockClient, logger)
		redisClients = append(redisClients, lockClient)
	}
	reconciler := cron.NewReconciler(repos.Bookings, bookingService, locker, cron.ReconcilerConfig{
		Interval:       cfg.SweepInterval,
		ReadyBuffer:    policy.ReadyBuffer,
		ReminderWindow: policy.ReminderWindow,
	}, metrics, logger)
	if err := reconciler.Start(rootCtx); err != nil {
		logger.Fatal("main: failed to start reconciler", zap.Error(err))
	}

	utils.StartHealthMonitor(rootCtx, 30*time.Second, redisClients, mongoClient)

	// HTTP.
	router := gin.New()
	router.Use(utils.ErrorHandler())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.RateLimitMiddleware(cfg.MaxRequestsPerMin))

	routes.RegisterRoutes(router, &handlers.HandlerBundle{
		Booking:      handlers.NewBookingHandler(bookingService),
		Professional: handlers.NewProfessionalHandler(availabilityService, bookingService),
		Device:       handlers.NewDeviceHandler(repos.Devices),
		Wallet:       handlers.NewWalletHandler(repos.Wallets, cfg.WalletDepositsEnabled),
		Gatherer:     prometheus.DefaultGatherer,
	})

	port := cfg.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("main: server forced to shutdown", zap.Error(err))
	}

	reconciler.Stop()
	worker.Shutdown()
	bookingService.Shutdown()
	stopRoot()
	database.CloseDB(ctx)

	logger.Sugar().Info("main: server stopped gracefully")
}
