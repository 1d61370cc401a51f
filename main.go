package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/di"
	"github.com/ShaneJP-Dev/event-ticket-scanner/migrations"
	"github.com/ShaneJP-Dev/event-ticket-scanner/pkg/config"
	"github.com/ShaneJP-Dev/event-ticket-scanner/pkg/database"
	"github.com/ShaneJP-Dev/event-ticket-scanner/pkg/kafka"
	"github.com/ShaneJP-Dev/event-ticket-scanner/pkg/logger"
	"github.com/ShaneJP-Dev/event-ticket-scanner/pkg/redis"
	"github.com/ShaneJP-Dev/event-ticket-scanner/pkg/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:       cfg.App.Environment,
		ServiceName: cfg.App.Name,
		Development: cfg.IsDevelopment(),
	}
	if cfg.App.Debug {
		logCfg.Level = "debug"
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting Ticket Scanner...")

	ctx := context.Background()

	// Initialize OpenTelemetry
	telemetryCfg := &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}
	if _, err := telemetry.Init(ctx, telemetryCfg); err != nil {
		appLog.Warn(fmt.Sprintf("Failed to initialize telemetry: %v", err))
	} else if telemetryCfg.Enabled {
		appLog.Info(fmt.Sprintf("Telemetry initialized (collector: %s)", telemetryCfg.CollectorAddr))
	}
	defer telemetry.Shutdown(ctx)

	// Initialize database connection
	var db *database.PostgresDB
	if cfg.Store.Driver == config.StoreDriverPostgres {
		dbCfg := database.PostgresConfigFrom(cfg.Database, cfg.OTel.Enabled)
		db, err = database.NewPostgres(ctx, dbCfg)
		if err != nil {
			appLog.Fatal(fmt.Sprintf("Database connection failed: %v", err))
		}
		defer db.Close()
		appLog.Info(fmt.Sprintf("Database connected (pool: min=%d, max=%d)", dbCfg.MinConns, dbCfg.MaxConns))

		if cfg.Store.AutoMigrate {
			applied, err := migrations.Apply(ctx, db.Pool())
			if err != nil {
				appLog.Fatal(fmt.Sprintf("Database migration failed: %v", err))
			}
			appLog.Info(fmt.Sprintf("Migrations applied: %d", applied))
		}
	} else {
		appLog.Warn("Using in-memory store: data is lost on restart")
	}

	// Initialize Redis connection (optional unless STORE_REDIS_REQUIRED is set)
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisCfg := redis.ConfigFrom(cfg.Redis)
		redisClient, err = redis.NewClient(ctx, redisCfg)
		if err != nil {
			if cfg.Store.RedisRequired {
				appLog.Fatal(fmt.Sprintf("Redis connection failed: %v", err))
			}
			appLog.Warn(fmt.Sprintf("Redis connection failed (caching disabled): %v", err))
			redisClient = nil
		} else {
			defer redisClient.Close()
			appLog.Info(fmt.Sprintf("Redis connected (%s)", redisCfg.Addr()))
		}
	}

	// Initialize Kafka producer for redemption events
	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		producer, err = kafka.NewProducer(ctx, &kafka.ProducerConfig{
			Brokers:        cfg.Kafka.Brokers,
			ClientID:       cfg.Kafka.ClientID,
			MaxRetries:     3,
			RetryInterval:  time.Second,
			ProduceTimeout: 5 * time.Second,
		})
		if err != nil {
			appLog.Fatal(fmt.Sprintf("Kafka connection failed: %v", err))
		}
		appLog.Info(fmt.Sprintf("Kafka producer connected (topic: %s)", cfg.Kafka.RedemptionTopic))
	}

	// Build dependency injection container
	container := di.NewContainer(&di.ContainerConfig{
		Config:   cfg,
		DB:       db,
		Redis:    redisClient,
		Producer: producer,
	})
	defer container.Close()

	// Setup Gin
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create HTTP server
	port := cfg.Server.Port
	if port == 0 {
		port = 8080
	}
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           container.Router(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 2 * time.Second,
	}

	// Start server in goroutine
	go func() {
		appLog.Info(fmt.Sprintf("Ticket Scanner listening on %s", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal(fmt.Sprintf("Failed to start server: %v", err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Fatal(fmt.Sprintf("Server forced to shutdown: %v", err))
	}

	appLog.Info("Server exited gracefully")
}
