package di

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/clock"
	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/handler"
	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/metrics"
	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/repository"
	"github.com/ShaneJP-Dev/event-ticket-scanner/internal/service"
	"github.com/ShaneJP-Dev/event-ticket-scanner/pkg/config"
	"github.com/ShaneJP-Dev/event-ticket-scanner/pkg/database"
	"github.com/ShaneJP-Dev/event-ticket-scanner/pkg/kafka"
	"github.com/ShaneJP-Dev/event-ticket-scanner/pkg/logger"
	"github.com/ShaneJP-Dev/event-ticket-scanner/pkg/middleware"
	"github.com/ShaneJP-Dev/event-ticket-scanner/pkg/redis"
)

// Container holds all dependencies for the scanner API
type Container struct {
	// Infrastructure
	DB       *database.PostgresDB
	Redis    *redis.Client
	Producer *kafka.Producer
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	// Repositories
	EventRepo    repository.EventRepository
	TicketRepo   repository.TicketRepository
	ActivityRepo repository.ActivityRepository

	// Services
	CodeResolver      *service.CodeResolver
	Publisher         service.RedemptionPublisher
	EventService      service.EventService
	TicketService     service.TicketService
	RedemptionService service.RedemptionService
	BulkService       service.BulkService
	ActivityService   service.ActivityService

	// Handlers
	HealthHandler *handler.HealthHandler
	EventHandler  *handler.EventHandler
	TicketHandler *handler.TicketHandler
	ScanHandler   *handler.ScanHandler
	BulkHandler   *handler.BulkHandler

	config *config.Config
}

// ContainerConfig contains configuration for building the container.
// DB is required for the postgres driver; Redis and Producer are optional.
type ContainerConfig struct {
	Config   *config.Config
	DB       *database.PostgresDB
	Redis    *redis.Client
	Producer *kafka.Producer
	Registry *prometheus.Registry
	Clock    clock.Clock
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) *Container {
	c := &Container{
		DB:       cfg.DB,
		Redis:    cfg.Redis,
		Producer: cfg.Producer,
		Registry: cfg.Registry,
		config:   cfg.Config,
	}
	if c.Registry == nil {
		c.Registry = prometheus.NewRegistry()
	}
	c.Metrics = metrics.NewWithRegistry(c.Registry)

	clk := cfg.Clock
	if clk == nil {
		clk = clock.NewSystem()
	}
	log := logger.Get()

	// Initialize repositories
	var store handler.Pinger
	if c.DB != nil {
		c.EventRepo = repository.NewPostgresEventRepository(c.DB.Pool())
		c.TicketRepo = repository.NewPostgresTicketRepository(c.DB.Pool())
		store = c.DB
	} else {
		mem := repository.NewMemoryStore()
		c.EventRepo = mem.Events()
		c.TicketRepo = mem.Tickets()
		store = mem
	}

	// Wrap with cache if Redis is available
	if c.Redis != nil {
		c.EventRepo = repository.NewCachedEventRepository(c.EventRepo, c.Redis, c.config.Redis.CacheTTL)
		c.ActivityRepo = repository.NewRedisActivityRepository(c.Redis, c.config.Tickets.ActivityLimit)
	} else {
		c.ActivityRepo = repository.NewMemoryActivityRepository(c.config.Tickets.ActivityLimit)
	}

	// Redemption outcomes go through Kafka when enabled, otherwise straight
	// to whichever feed this process can read back
	switch {
	case c.Producer != nil:
		c.Publisher = service.NewKafkaRedemptionPublisher(c.Producer, &service.RedemptionPublisherConfig{
			Topic:       c.config.Kafka.RedemptionTopic,
			ServiceName: c.config.App.Name,
		})
		if c.Redis == nil {
			log.Warn("Kafka enabled without Redis: this process cannot read the worker's activity feed")
		}
	case c.Redis != nil || c.DB == nil:
		c.Publisher = service.NewDirectRedemptionPublisher(c.ActivityRepo)
	default:
		log.Warn("Neither Kafka nor Redis configured: scan activity will not be recorded")
		c.Publisher = service.NewNoOpRedemptionPublisher()
	}

	// Initialize services
	c.CodeResolver = service.NewCodeResolver(c.TicketRepo, nil, c.config.Tickets.CodeMaxAttempts, c.Metrics)
	c.EventService = service.NewEventService(c.EventRepo, c.TicketRepo, clk)
	c.RedemptionService = service.NewRedemptionService(c.TicketRepo, c.Publisher, c.Metrics, clk)
	c.TicketService = service.NewTicketService(c.TicketRepo, c.EventRepo, c.CodeResolver, c.RedemptionService, c.Metrics, clk)
	c.BulkService = service.NewBulkService(c.TicketRepo, c.EventRepo, c.CodeResolver, c.Metrics, clk, &service.BulkServiceConfig{
		MaxRows: c.config.Tickets.BulkMaxRows,
	})
	c.ActivityService = service.NewActivityService(c.ActivityRepo, c.TicketRepo, c.EventRepo)

	// Initialize handlers
	components := map[string]handler.Pinger{"database": store, "redis": nil}
	if c.Redis != nil {
		components["redis"] = c.Redis
	}
	if c.Producer != nil {
		components["kafka"] = c.Producer
	}
	c.HealthHandler = handler.NewHealthHandler(components)
	c.EventHandler = handler.NewEventHandler(c.EventService)
	c.TicketHandler = handler.NewTicketHandler(c.TicketService, c.RedemptionService)
	c.ScanHandler = handler.NewScanHandler(c.RedemptionService, c.ActivityService)
	c.BulkHandler = handler.NewBulkHandler(c.BulkService)

	return c
}

// Router builds the HTTP router over the container's handlers
func (c *Container) Router() *gin.Engine {
	rc := &handler.RouterConfig{
		ServiceName: c.config.App.Name,
		Tracing:     c.config.OTel.Enabled,
		Health:      c.HealthHandler,
		Event:       c.EventHandler,
		Ticket:      c.TicketHandler,
		Scan:        c.ScanHandler,
		Bulk:        c.BulkHandler,
		HTTPMetrics: c.Metrics,
		Gatherer:    c.Registry,
	}
	if c.Redis != nil {
		rc.Idempotency = middleware.DefaultIdempotencyConfig(c.Redis)
	}
	return handler.NewRouter(rc)
}

// Close releases the publisher. Connections are owned and closed by main.
func (c *Container) Close() error {
	if c.Publisher != nil {
		return c.Publisher.Close()
	}
	return nil
}
