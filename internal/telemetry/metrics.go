// Package telemetry provides application-level observability for the hackathon API.
//
// # Prometheus Metrics Endpoint
//
// All metrics are registered against the default Prometheus registry and served on the
// side-channel HTTP server started by main.go:
//
//	GET http://<host>:<HACKATHON_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// Default port: 9090. The endpoint is not served by the Gin router.
//
// # Metric Groups
//
//   - HTTP request counters and latency histograms (labelled by route template, not raw URL)
//   - Match scoring outcomes and completion API latency
//   - API key authentication results and expiry notifications
//   - Discord channel provisioning
//   - Database connection pool gauge (polled every 30 s)
//
// # Label Cardinality
//
// HTTP metrics use c.FullPath() (route template such as /api/profiles/:id) rather than the
// raw request URL, so participant ids and search queries never become label values.
package telemetry

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics, labelled by method, route template, and status code.
//
// Example PromQL queries:
//   - Request rate (req/s, 5 m window):  rate(http_requests_total[5m])
//   - p99 latency per route:             histogram_quantile(0.99, sum by (path, le) (rate(http_request_duration_seconds_bucket[5m])))
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// Matching metrics.
//
// MatchScoresTotal counts every compatibility score produced, labelled by source:
// "ai" when the completion reply was parsed, "heuristic" when the fallback was used.
// A rising heuristic share usually means the completion API is failing or slow.
//
// Example PromQL queries:
//   - Fallback ratio:  sum(rate(hackathon_match_scores_total{source="heuristic"}[15m])) / sum(rate(hackathon_match_scores_total[15m]))
//
// CompletionDuration observes completion API latency, labelled by purpose
// (score, reason, team) and outcome (ok, error).
var (
	MatchScoresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hackathon_match_scores_total",
			Help: "Total number of compatibility scores computed, by source (ai or heuristic).",
		},
		[]string{"source"},
	)

	CompletionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hackathon_completion_duration_seconds",
			Help:    "Latency of completion API calls, by purpose and outcome.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 15, 30},
		},
		[]string{"purpose", "outcome"},
	)
)

// APIKeyAuthTotal counts API key authentication attempts by result
// (ok, missing, invalid, expired, error).
var APIKeyAuthTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "hackathon_api_key_auth_total",
		Help: "Total number of API key authentication attempts, by result.",
	},
	[]string{"result"},
)

// DiscordChannelsCreatedTotal counts channels created by the provisioner, by type (team, voice, match).
var DiscordChannelsCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "hackathon_discord_channels_created_total",
		Help: "Total number of Discord channels created, by channel type.",
	},
	[]string{"type"},
)

// APIKeyExpiryNotificationsSentTotal is incremented once per expiry warning DM delivered
// by the API key expiry job.
var APIKeyExpiryNotificationsSentTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "apikey_expiry_notifications_sent_total",
		Help: "Total number of API key expiry warnings successfully sent.",
	},
)

// DBOpenConnections tracks the number of open connections held by the sql.DB pool.
// It is sampled every 30 seconds by StartDBStatsCollector rather than per request.
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Current number of open database connections in the pool.",
	},
)

// DBInUseConnections tracks connections currently checked out of the pool.
var DBInUseConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_in_use_connections",
		Help: "Current number of database connections in use.",
	},
)

// StartDBStatsCollector samples sql.DB pool statistics every 30 seconds until ctx is
// cancelled or the database becomes unreachable.
func StartDBStatsCollector(ctx context.Context, db *sql.DB) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := db.PingContext(ctx); err != nil {
					slog.Warn("db stats collector: database unreachable, stopping collector", "error", err)
					return
				}
				RecordDBStats(db.Stats())
			}
		}
	}()
}

// RecordDBStats copies pool statistics into the gauges
func RecordDBStats(stats sql.DBStats) {
	DBOpenConnections.Set(float64(stats.OpenConnections))
	DBInUseConnections.Set(float64(stats.InUse))
}
