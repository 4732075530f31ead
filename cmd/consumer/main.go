package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Jeffrey-Xu/kafka/internal/api"
	"github.com/Jeffrey-Xu/kafka/internal/application/factories/infrastructure"
	"github.com/Jeffrey-Xu/kafka/internal/config"
	"github.com/Jeffrey-Xu/kafka/internal/infrastructure/kafka"
	"github.com/Jeffrey-Xu/kafka/internal/infrastructure/postgres"
	"github.com/Jeffrey-Xu/kafka/internal/listener"
	"github.com/Jeffrey-Xu/kafka/internal/processor"
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
		logger.Warn("redis unavailable, recent-message caching disabled", "error", err)
		redisCli = nil
	}

	registry := prometheus.NewRegistry()
	agg := stats.NewAggregator("consumer", registry)

	auditRepo := postgres.NewAuditRepository(pgPool, postgres.TableProcessedMessages)
	projectionRepo := postgres.NewProjectionRepository(pgPool)
	txManager := postgres.NewTxManager(pgPool)

	proc := processor.New(txManager, auditRepo, projectionRepo, agg, logger)

	topics := []string{cfg.Kafka.UserTopic, cfg.Kafka.BusinessTopic, cfg.Kafka.SystemTopic}

	var wg sync.WaitGroup
	for _, topic := range topics {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, topic, cfg.Kafka.GroupID, cfg.Kafka.StartOffset)
		defer consumer.Close()

		l := listener.New(topic, consumer, proc, listener.AckAlways, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Run(ctx); err != nil {
				logger.Error("listener stopped with error", "error", err)
			}
		}()
	}

	handlers := api.NewConsumerHandlers(agg, auditRepo, redisCli, logger)
	router := api.NewConsumerRouter(handlers, registry)

	server := &http.Server{
		Addr:    ":" + cfg.HTTP.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Consumer API started", "port", cfg.HTTP.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	logger.Info("Consumer started", "group_id", cfg.Kafka.GroupID, "topics", topics)

	<-ctx.Done()
	logger.Info("Shutting down consumer")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "error", err)
	}

	wg.Wait()
	logger.Info("Consumer stopped")
}
