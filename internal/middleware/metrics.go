package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sundai/hackathon-api/internal/telemetry"
)

// noRoutePath labels requests that matched no registered route, so unknown paths do not
// inflate label cardinality.
const noRoutePath = "<no-route>"

// MetricsMiddleware records http_requests_total{method,path,status} and
// http_request_duration_seconds{method,path} for every request. The path label is the
// matched route template (e.g. /api/matching/:matchId/respond), never the raw URL.
//
// Register it after gin.Recovery() and RequestIDMiddleware so the final status is captured.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = noRoutePath
		}

		method := c.Request.Method
		telemetry.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		telemetry.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}
