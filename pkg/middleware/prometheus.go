package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// HTTPMetrics records one observation per HTTP request
type HTTPMetrics interface {
	ObserveHTTPRequest(method, path, status string, duration time.Duration)
}

// Prometheus records request counts and latency by route template
func Prometheus(m HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			// Unmatched routes collapse into one series
			path = "unmatched"
		}
		m.ObserveHTTPRequest(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
