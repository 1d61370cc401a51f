package telemetry

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	// TracerName is the name of the HTTP server tracer
	TracerName = "ticket-scanner-http"

	// TraceIDHeader echoes the trace ID so scanner clients can quote it
	TraceIDHeader = "X-Trace-ID"

	requestIDHeader = "X-Request-ID"
)

// untracedPaths are probe and scrape endpoints hit every few seconds
var untracedPaths = map[string]bool{
	"/health":  true,
	"/ready":   true,
	"/metrics": true,
}

// TracingMiddleware starts a server span per request, named after the
// matched route so /tickets/:id collapses to one span name. Route
// parameters are recorded as attributes.
func TracingMiddleware(serviceName string) gin.HandlerFunc {
	tracer := otel.Tracer(TracerName)
	service := attribute.String("service.name", serviceName)

	return func(c *gin.Context) {
		if untracedPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		attrs := []attribute.KeyValue{
			service,
			semconv.HTTPMethod(c.Request.Method),
			semconv.HTTPRoute(route),
			semconv.UserAgentOriginal(c.Request.UserAgent()),
			attribute.String("http.client_ip", c.ClientIP()),
		}
		for _, p := range c.Params {
			attrs = append(attrs, attribute.String("http.route.param."+p.Key, p.Value))
		}
		if rid := c.GetHeader(requestIDHeader); rid != "" {
			attrs = append(attrs, attribute.String("request.id", rid))
		}

		ctx, span := tracer.Start(ctx, c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attrs...),
		)
		defer span.End()

		if sc := span.SpanContext(); sc.HasTraceID() {
			c.Header(TraceIDHeader, sc.TraceID().String())
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(semconv.HTTPStatusCode(status))
		if len(c.Errors) > 0 {
			span.RecordError(c.Errors.Last())
		}
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}
