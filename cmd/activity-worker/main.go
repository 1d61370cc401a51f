package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/metrics"
	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/repository"
	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/service"
	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/worker"
	"github.com/ShaneJP-Dev/event-ticket-scanner/pkg/config"
	"github.com/ShaneJP-Dev/event-ticket-scanner/pkg/kafka"
	"github.com/ShaneJP-Dev/event-ticket-scanner/pkg/logger"
	"github.com/ShaneJP-Dev/event-ticket-scanner/pkg/redis"
	"github.com/ShaneJP-Dev/event-ticket-scanner/pkg/retry"
	"github.com/ShaneJP-Dev/event-ticket-scanner/pkg/telemetry"
)

const serviceName = "ticket-activity-worker"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if !cfg.Kafka.Enabled {
		log.Fatalf("Activity worker requires KAFKA_ENABLED")
	}
	if !cfg.Redis.Enabled {
		log.Fatalf("Activity worker requires REDIS_ENABLED")
	}

	if err := logger.Init(&logger.Config{
		Level:       cfg.App.Environment,
		ServiceName: serviceName,
		Development: cfg.IsDevelopment(),
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	appLog := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    serviceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}); err != nil {
		appLog.Warn(fmt.Sprintf("Failed to initialize telemetry: %v", err))
	}
	defer telemetry.Shutdown(context.Background())

	redisClient, err := redis.NewClient(ctx, redis.ConfigFrom(cfg.Redis))
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Redis connection failed: %v", err))
	}
	defer redisClient.Close()

	consumer, err := kafka.NewConsumer(ctx, &kafka.ConsumerConfig{
		Brokers:       cfg.Kafka.Brokers,
		GroupID:       cfg.Kafka.ConsumerGroup,
		Topics:        []string{cfg.Kafka.RedemptionTopic},
		ClientID:      serviceName,
		MaxRetries:    3,
		RetryInterval: time.Second,
	})
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Kafka consumer failed: %v", err))
	}
	defer consumer.Close()

	// Parked records go to <topic>.dlq through a dedicated producer
	dlqProducer, err := kafka.NewProducer(ctx, &kafka.ProducerConfig{
		Brokers:        cfg.Kafka.Brokers,
		ClientID:       serviceName + "-dlq",
		MaxRetries:     3,
		RetryInterval:  time.Second,
		ProduceTimeout: 5 * time.Second,
	})
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Kafka DLQ producer failed: %v", err))
	}
	defer dlqProducer.Close()

	dlq := retry.NewDLQHandler(
		retry.NewKafkaDLQPublisher(dlqProducer, &retry.DLQConfig{Source: serviceName}),
		&retry.DLQHandlerConfig{
			RetryConfig: &retry.Config{
				MaxRetries:      3,
				InitialInterval: 200 * time.Millisecond,
				MaxInterval:     2 * time.Second,
				Multiplier:      2.0,
				JitterFactor:    0.1,
			},
			Source: serviceName,
		},
	)

	// Ticket lookups are not needed to append entries
	activity := service.NewActivityService(
		repository.NewRedisActivityRepository(redisClient, cfg.Tickets.ActivityLimit),
		nil, nil,
	)

	w := worker.NewActivityWorker(consumer, activity, dlq, metrics.New(), nil)

	// Expose worker metrics for scraping
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           mux,
		ReadHeaderTimeout: 2 * time.Second,
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Warn(fmt.Sprintf("Metrics listener stopped: %v", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	appLog.Info(fmt.Sprintf("Activity worker consuming %s (group %s)", cfg.Kafka.RedemptionTopic, cfg.Kafka.ConsumerGroup))
	if err := w.Run(ctx); err != nil {
		appLog.Fatal(fmt.Sprintf("Activity worker stopped: %v", err))
	}
	appLog.Info("Activity worker exited gracefully")
}
