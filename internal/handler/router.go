package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ShaneJP-Dev/event-ticket-scanner/pkg/middleware"
	"github.com/ShaneJP-Dev/event-ticket-scanner/pkg/response"
	"github.com/ShaneJP-Dev/event-ticket-scanner/pkg/telemetry"
)

// RouterConfig carries the handlers and optional middleware the router mounts
type RouterConfig struct {
	ServiceName string
	Tracing     bool

	Health *HealthHandler
	Event  *EventHandler
	Ticket *TicketHandler
	Scan   *ScanHandler
	Bulk   *BulkHandler

	// HTTPMetrics enables the Prometheus request middleware
	HTTPMetrics middleware.HTTPMetrics
	// Gatherer backs GET /metrics; nil leaves the route unmounted
	Gatherer prometheus.Gatherer
	// Idempotency guards the bulk endpoints when set
	Idempotency *middleware.IdempotencyConfig
}

// NewRouter builds the gin engine with every route mounted
func NewRouter(cfg *RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestID())
	if cfg.Tracing {
		router.Use(telemetry.TracingMiddleware(cfg.ServiceName))
	}
	router.Use(middleware.RequestLogger())
	if cfg.HTTPMetrics != nil {
		router.Use(middleware.Prometheus(cfg.HTTPMetrics))
	}

	router.GET("/health", cfg.Health.Health)
	router.GET("/ready", cfg.Health.Ready)
	if cfg.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	guarded := func(h gin.HandlerFunc) []gin.HandlerFunc {
		if cfg.Idempotency == nil {
			return []gin.HandlerFunc{h}
		}
		return []gin.HandlerFunc{middleware.IdempotencyMiddleware(cfg.Idempotency), h}
	}

	v1 := router.Group("/api/v1")
	{
		events := v1.Group("/events")
		{
			events.GET("", cfg.Event.List)
			events.POST("", cfg.Event.Create)
			events.GET("/:id", cfg.Event.GetByID)
			events.PUT("/:id", cfg.Event.Update)
			events.DELETE("/:id", cfg.Event.Delete)
			events.POST("/:id/tickets/bulk", guarded(cfg.Bulk.Issue)...)
			events.POST("/:id/tickets/import", guarded(cfg.Bulk.Import)...)
		}

		tickets := v1.Group("/tickets")
		{
			tickets.GET("", cfg.Ticket.List)
			tickets.POST("", cfg.Ticket.Create)
			tickets.GET("/import/template", cfg.Bulk.Template)
			tickets.GET("/check/:code", cfg.Ticket.Check)
			tickets.GET("/:id", cfg.Ticket.GetByID)
			tickets.PUT("/:id", cfg.Ticket.Update)
			tickets.DELETE("/:id", cfg.Ticket.Delete)
			tickets.POST("/:id/redeem", cfg.Ticket.Redeem)
			tickets.POST("/:id/unredeem", cfg.Ticket.Unredeem)
		}

		scans := v1.Group("/scans")
		{
			scans.POST("", cfg.Scan.Scan)
			scans.GET("/activity", cfg.Scan.Activity)
			scans.GET("/stats", cfg.Scan.Stats)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, response.NotFound("Route not found"))
	})

	return router
}
