package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Jeffrey-Xu/kafka/internal/api"
	"github.com/Jeffrey-Xu/kafka/internal/application/factories/infrastructure"
	"github.com/Jeffrey-Xu/kafka/internal/config"
	"github.com/Jeffrey-Xu/kafka/internal/dispatcher"
	"github.com/Jeffrey-Xu/kafka/internal/infrastructure/kafka"
	"github.com/Jeffrey-Xu/kafka/internal/infrastructure/postgres"
	"github.com/Jeffrey-Xu/kafka/internal/stats"
)

func main() {
	// Initialize structured JSON logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.New()
	if err != nil {
		logger.Error("Failed to load config, using defaults", "error", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	infraFactory := infrastructure.NewFactory(cfg)
	defer infraFactory.Close()

	pgPool, err := infraFactory.Postgres(ctx)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}

	if err := infraFactory.Migrate(); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	redisCli, err := infraFactory.Redis(ctx)
	if err != nil {
		logger.Warn("redis unavailable, idempotency protection disabled", "error", err)
		redisCli = nil
	}

	producer := kafka.NewProducer(kafka.Config{Brokers: cfg.Kafka.Brokers})
	defer producer.Close()

	registry := prometheus.NewRegistry()
	agg := stats.NewAggregator("producer", registry)
	auditRepo := postgres.NewAuditRepository(pgPool, postgres.TableMessageLog)

	disp := dispatcher.New(dispatcher.Config{
		UserTopic:     cfg.Kafka.UserTopic,
		BusinessTopic: cfg.Kafka.BusinessTopic,
		SystemTopic:   cfg.Kafka.SystemTopic,
		SendTimeout:   cfg.Kafka.SendTimeout,
	}, producer, auditRepo, agg, logger)

	handlers := api.NewProducerHandlers(disp, agg, auditRepo)
	router := api.NewProducerRouter(handlers, redisCli, registry)

	server := &http.Server{
		Addr:    ":" + cfg.HTTP.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Producer API started", "port", cfg.HTTP.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down producer")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "error", err)
	}

	// Let in-flight sends finish reporting before the pool closes.
	disp.Close()
	logger.Info("Producer stopped")
}
