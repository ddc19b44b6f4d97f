package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"policy-lifecycle/internal/config"
	"policy-lifecycle/internal/database/postgres"
	"policy-lifecycle/internal/database/redis"
	"policy-lifecycle/internal/event"
	"policy-lifecycle/internal/handlers"
	"policy-lifecycle/internal/repository"
	"policy-lifecycle/internal/services"
	"policy-lifecycle/internal/worker"

	"github.com/gofiber/fiber/v3"
)

func setupLogging() (*os.File, error) {
	logDir := filepath.Join("/agrisa", "log", "policy_lifecycle")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logFileName := fmt.Sprintf("log_%s.log", time.Now().Format("2006-01-02"))
	file, err := os.OpenFile(filepath.Join(logDir, logFileName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(file, nil)))
	return file, nil
}

func main() {
	logFile, err := setupLogging()
	if err != nil {
		fmt.Printf("Failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()

	cfg := config.New()

	db, err := postgres.ConnectAndCreateDB(cfg.PostgresCfg)
	if err != nil {
		slog.Error("failed to connect to database, retrying in background", "error", err)
		go postgres.RetryConnectOnFailed(30*time.Second, &db, cfg.PostgresCfg)
	}

	redisClient, err := redis.NewRedisClient(cfg.RedisCfg.Host, cfg.RedisCfg.Port, cfg.RedisCfg.Password, cfg.RedisCfg.DB)
	if err != nil {
		// Sweeps degrade to lock-free operation without Redis.
		slog.Warn("failed to connect to Redis, sweeps run unlocked", "error", err)
	}

	rabbitConn, err := event.ConnectRabbitMQ(cfg.RabbitMQCfg)
	if err != nil {
		slog.Error("failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer rabbitConn.Close()

	// Repositories
	policyRepo := repository.NewRegisteredPolicyRepository(db)
	cancelRepo := repository.NewCancelRequestRepository(db)
	claimRepo := repository.NewClaimRepository(db)
	payoutRepo := repository.NewPayoutRepository(db)

	// Event publishers
	auditPublisher := event.NewAuditPublisher(rabbitConn)
	notificationPublisher := event.NewNotificationPublisher(rabbitConn)

	// Workflow engines
	lc := cfg.LifecycleCfg
	cancelService := services.NewCancelRequestService(
		policyRepo, cancelRepo, auditPublisher, services.SystemClock, lc.NoticePeriod, lc.DisputeWindow)
	claimService := services.NewClaimService(
		claimRepo, payoutRepo, policyRepo, auditPublisher, notificationPublisher,
		services.SystemClock, lc.AutoApprovalSLA, lc.Currency)
	policyService := services.NewRegisteredPolicyService(policyRepo, auditPublisher, services.SystemClock)
	queryService := services.NewQueryService(policyRepo, cancelRepo, claimRepo, payoutRepo)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Payment outcome consumer
	paymentConsumer := event.NewPaymentConsumer(rabbitConn, claimService, cancelService)
	if err := paymentConsumer.Start(ctx); err != nil {
		slog.Error("failed to start payment consumer", "error", err)
		os.Exit(1)
	}

	// Background sweeps
	var lock worker.Locker
	if redisClient != nil {
		lock = worker.NewRedisLock(redisClient.GetClient())
	}
	pool := worker.NewWorkingPool(lc.WorkerCount, lc.WorkerQueueSize)
	var poolWg sync.WaitGroup
	poolWg.Add(1)
	go pool.Start(ctx, &poolWg)

	sweepScheduler := worker.NewJobScheduler("lifecycle-sweeps", lc.PollInterval, pool)
	sweepScheduler.AddJob(worker.NewAutoApprovalSweep(claimRepo, claimService, lock, services.SystemClock, lc.PollInterval))
	sweepScheduler.AddJob(worker.NewCoverageExpirationSweep(policyRepo, policyService, lock, services.SystemClock, lc.PollInterval))
	go sweepScheduler.Run(ctx)

	// HTTP surface
	app := fiber.New()
	app.Get("/checkhealth", func(c fiber.Ctx) error {
		return c.Status(fiber.StatusOK).SendString("Policy lifecycle service is healthy")
	})

	handlers.NewPolicyHandler(policyService, queryService).Register(app)
	handlers.NewCancelRequestHandler(cancelService, queryService).Register(app)
	handlers.NewClaimHandler(claimService, queryService).Register(app)
	handlers.NewPayoutHandler(claimService, queryService).Register(app)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server stopped", "error", err)
			stop()
		}
	}()

	slog.Info("Policy lifecycle service started", "port", cfg.Port)

	<-ctx.Done()
	slog.Info("Shutdown signal received")

	if err := app.Shutdown(); err != nil {
		slog.Error("failed to shut down server", "error", err)
	}
	poolWg.Wait()
	if redisClient != nil {
		redisClient.Close()
	}
	slog.Info("Policy lifecycle service stopped")
}
