// usage.go provides Gin middleware that records every API-key-authenticated request to
// api_usage_logs after the handler has run.
package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sundai/hackathon-api/internal/db/models"
	"github.com/sundai/hackathon-api/internal/safego"
)

// UsageRecorder persists usage log rows. *repositories.UsageLogRepository satisfies it.
type UsageRecorder interface {
	CreateUsageLog(ctx context.Context, log *models.APIUsageLog) error
}

// UsageLogMiddleware writes one usage row per request that carried an API key. The write
// happens asynchronously so a slow database never delays the response.
func UsageLogMiddleware(recorder UsageRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// Process request first
		c.Next()

		if recorder == nil || c.Request.Method == "OPTIONS" {
			return
		}
		apiKeyID := c.GetString(APIKeyIDKey)
		if apiKeyID == "" {
			return
		}

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = c.Request.URL.Path
		}
		entry := &models.APIUsageLog{
			APIKeyID:       apiKeyID,
			Endpoint:       endpoint,
			Method:         c.Request.Method,
			StatusCode:     c.Writer.Status(),
			ResponseTimeMS: int(time.Since(start).Milliseconds()),
		}
		if ua := c.Request.UserAgent(); ua != "" {
			entry.UserAgent = &ua
		}
		if ip := c.ClientIP(); ip != "" {
			entry.IPAddress = &ip
		}

		safego.Go("usage-log", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := recorder.CreateUsageLog(ctx, entry); err != nil {
				slog.Error("failed to write api usage log", "api_key_id", apiKeyID, "error", err)
			}
		})
	}
}
