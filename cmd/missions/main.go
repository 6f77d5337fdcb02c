package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/application"
	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/application/services"
	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/config"
	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/infrastructure/events"
	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/infrastructure/gateway"
	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/infrastructure/persistence"
	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/infrastructure/persistence/postgres"
	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/interfaces/rest"
	"github.com/AchrafBen7/BelDetailing-Backend-sub000/internal/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting mission payment service",
		"port", cfg.Server.Port,
		"log_level", cfg.Logger.Level,
	)

	ctx := context.Background()
	db, err := persistence.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	missionRepo := postgres.NewMissionRepository(db.Pool)
	paymentRepo := postgres.NewPaymentRepository(db.Pool)
	failedTransferRepo := postgres.NewFailedTransferRepository(db.Pool)
	coordinator := postgres.NewTransactionCoordinator(db.Pool)

	gatewayClient := gateway.NewGatewayClient(cfg.Gateway)
	retryGateway := gateway.NewRetryGatewayClient(gatewayClient, cfg.Retry)

	var publisher application.EventPublisher
	if cfg.Events.URL != "" {
		rabbit, err := events.NewRabbitPublisher(cfg.Events, logger)
		if err != nil {
			logger.Error("failed to connect to event broker", "error", err)
			os.Exit(1)
		}
		defer rabbit.Close()
		publisher = rabbit
	} else {
		logger.Warn("no event broker configured, events will be logged and dropped")
		publisher = &events.NoopPublisher{Logger: logger}
	}

	transferService := services.NewTransferService(
		paymentRepo, failedTransferRepo, retryGateway, publisher, cfg.Commission, logger)
	dueService := services.NewDuePaymentsService(
		missionRepo, paymentRepo, retryGateway, transferService, publisher, logger)
	missionService := services.NewMissionService(missionRepo, publisher, logger)
	plannerService := services.NewPlannerService(coordinator, logger)
	confirmService := services.NewConfirmService(
		missionRepo, paymentRepo, coordinator, retryGateway, publisher, dueService, cfg.Commission, logger)
	releaseService := services.NewReleaseService(
		missionRepo, paymentRepo, transferService, publisher, logger)
	cancelService := services.NewCancelService(
		missionRepo, paymentRepo, retryGateway, publisher, logger)
	retryService := services.NewRetryService(
		failedTransferRepo, paymentRepo, retryGateway, publisher, logger)
	queryService := services.NewQueryService(missionRepo, paymentRepo, failedTransferRepo)

	handler := rest.NewHandler(
		missionService, plannerService, confirmService, cancelService, releaseService, queryService)
	router := rest.NewRouter(handler, logger)

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	dueWorker := worker.NewDueWorker(dueService, cfg.Worker.Interval, cfg.Worker.BatchSize, logger)
	releaseWorker := worker.NewReleaseWorker(releaseService, cfg.Worker.Interval, cfg.Worker.BatchSize, logger)
	retryWorker := worker.NewRetryWorker(retryService, cfg.Worker.Interval, cfg.Worker.BatchSize, logger)

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	go dueWorker.Start(workerCtx)
	go releaseWorker.Start(workerCtx)
	go retryWorker.Start(workerCtx)

	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	cancelWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	logger.Info("server stopped")
}
