// File: slotify/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"slotify/config"
	"slotify/cron"
	"slotify/database"
	bookingRepo "slotify/database/repository/booking"
	catalogRepo "slotify/database/repository/catalog"
	idempotencyRepo "slotify/database/repository/idempotency"
	outboxRepo "slotify/database/repository/outbox"
	timeslotRepo "slotify/database/repository/timeslot"
	"slotify/handlers"
	"slotify/routes"
	"slotify/services/availability"
	"slotify/services/booking"
	"slotify/services/notification"
	"slotify/services/outbox"
	"slotify/services/payment"
	"slotify/services/schedule"
	"slotify/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/stripe/stripe-go/v76"
	"go.uber.org/zap"
)

func main() {
	if err := config.LoadConfig(); err != nil {
		os.Stderr.WriteString("configuration error: " + err.Error() + "\n")
		os.Exit(1)
	}
	logger := utils.GetLogger()
	defer logger.Sync()

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.InitDB(rootCtx); err != nil {
		logger.Error("database unreachable", zap.Error(err))
		os.Exit(2)
	}
	defer database.Pool.Close()
	if err := database.Migrate(rootCtx); err != nil {
		logger.Error("migration failed", zap.Error(err))
		os.Exit(2)
	}

	utils.InitCache()
	utils.StartHealthMonitor(database.Pool, utils.GetCacheClient())
	stripe.Key = config.AppConfig.StripeKey

	// Repositories.
	catalog := catalogRepo.NewPgCatalogRepo()
	slots := timeslotRepo.NewPgTimeSlotRepo()
	bookings := bookingRepo.NewPgBookingRepo()
	idem := idempotencyRepo.NewPgIdempotencyRepo()
	outboxStore := outboxRepo.NewPgOutboxRepo()

	runner := &database.PoolRunner{Pool: database.Pool, Logger: logger}

	// Services.
	availabilitySvc := &availability.DefaultService{
		Q:       database.Pool,
		Catalog: catalog,
		Slots:   slots,
		Cache:   utils.GetCacheClient(),
		Logger:  logger,
	}

	coordinator := &booking.DefaultCoordinator{
		DB:       runner,
		Q:        database.Pool,
		Catalog:  catalog,
		Slots:    slots,
		Bookings: bookings,
		Idem:     idem,
		Outbox:   outboxStore,
		Cache:    availabilitySvc,
		Logger:   logger,
		IdemTTL:  time.Duration(config.AppConfig.IdempotencyTTLSeconds) * time.Second,

		MaxDurationMin: config.AppConfig.MaxBookingDurationMin,
	}

	compiler := &schedule.DefaultCompiler{
		DB:          runner,
		Q:           database.Pool,
		Catalog:     catalog,
		Slots:       slots,
		Cache:       availabilitySvc,
		Logger:      logger,
		HorizonDays: config.AppConfig.HorizonDays,
	}

	taskClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisReminderQueueDB,
	})
	defer taskClient.Close()

	notifSvc, err := notification.NewDefaultNotificationService(
		&notification.LogSender{Logger: logger}, taskClient, utils.GetCacheClient(), logger)
	if err != nil {
		logger.Fatal("notification service init failed", zap.Error(err))
	}

	paymentSvc := &payment.Service{
		DB:       runner,
		Bookings: bookings,
		Verifier: payment.StripeVerifier{},
		Logger:   logger,
	}

	// Outbox dispatcher with all handlers registered.
	registry := outbox.NewRegistry()
	notification.RegisterHandlers(registry, notifSvc)
	payment.RegisterHandlers(registry, paymentSvc)

	dispatcher := &outbox.Dispatcher{
		Q:              database.Pool,
		Outbox:         outboxStore,
		Registry:       registry,
		Logger:         logger,
		PollInterval:   time.Duration(config.AppConfig.OutboxPollMs) * time.Millisecond,
		BatchSize:      config.AppConfig.OutboxBatch,
		MaxAttempts:    config.AppConfig.OutboxMaxAttempts,
		Lease:          time.Duration(config.AppConfig.OutboxLeaseMs) * time.Millisecond,
		HandlerTimeout: time.Duration(config.AppConfig.HandlerTimeoutMs) * time.Millisecond,
	}
	go dispatcher.Run(rootCtx)

	// Background workers.
	cron.InitReminderWorker(notifSvc)
	scheduledJobs := cron.InitScheduledJobs(compiler, idem, database.Pool)
	defer scheduledJobs.Stop()

	// Compile the initial horizon so a fresh deployment has inventory.
	go func() {
		ctx, cancel := context.WithTimeout(rootCtx, 30*time.Minute)
		defer cancel()
		if err := compiler.RollHorizon(ctx); err != nil {
			logger.Error("initial horizon compile failed", zap.Error(err))
		}
	}()

	// HTTP surface.
	handlers.Coordinator = coordinator
	handlers.Availability = availabilitySvc
	handlers.Compiler = compiler

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	routes.SetupRoutes(router)

	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:              "0.0.0.0:" + port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Sugar().Infof("Starting server on %s...", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-rootCtx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	logger.Info("server stopped")
}
