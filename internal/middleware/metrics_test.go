package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	dto "github.com/prometheus/client_model/go"
	"github.com/sundai/hackathon-api/internal/telemetry"
)

func requestsTotal(t *testing.T, method, path, status string) float64 {
	t.Helper()
	var m dto.Metric
	if err := telemetry.HTTPRequestsTotal.WithLabelValues(method, path, status).Write(&m); err != nil {
		t.Fatalf("read counter: %v", err)
	}
	return m.GetCounter().GetValue()
}

func durationCount(t *testing.T, method, path string) uint64 {
	t.Helper()
	obs, err := telemetry.HTTPRequestDuration.GetMetricWithLabelValues(method, path)
	if err != nil {
		t.Fatalf("histogram lookup: %v", err)
	}
	var m dto.Metric
	if err := obs.(interface{ Write(*dto.Metric) error }).Write(&m); err != nil {
		t.Fatalf("read histogram: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

// newMetricsRouter builds a minimal Gin engine with MetricsMiddleware and one test route.
func newMetricsRouter(handler gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(MetricsMiddleware())
	r.GET("/api/profiles/:id", handler)
	return r
}

func get(r *gin.Engine, path string) {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
}

// ---------------------------------------------------------------------------
// MetricsMiddleware tests
// ---------------------------------------------------------------------------

func TestMetricsMiddleware_UsesRouteTemplate(t *testing.T) {
	r := newMetricsRouter(func(c *gin.Context) { c.Status(http.StatusOK) })
	before := requestsTotal(t, "GET", "/api/profiles/:id", "200")
	beforeCount := durationCount(t, "GET", "/api/profiles/:id")

	get(r, "/api/profiles/p-1")
	get(r, "/api/profiles/p-2")

	if got := requestsTotal(t, "GET", "/api/profiles/:id", "200") - before; got != 2 {
		t.Errorf("requests delta = %v, want 2", got)
	}
	if got := durationCount(t, "GET", "/api/profiles/:id") - beforeCount; got != 2 {
		t.Errorf("duration sample delta = %d, want 2", got)
	}
	if got := requestsTotal(t, "GET", "/api/profiles/p-1", "200"); got != 0 {
		t.Errorf("raw URL series = %v, want 0", got)
	}
}

func TestMetricsMiddleware_RecordsErrorStatus(t *testing.T) {
	r := newMetricsRouter(func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	before := requestsTotal(t, "GET", "/api/profiles/:id", "500")

	get(r, "/api/profiles/p-1")

	if got := requestsTotal(t, "GET", "/api/profiles/:id", "500") - before; got != 1 {
		t.Errorf("500 delta = %v, want 1", got)
	}
}

func TestMetricsMiddleware_NoRouteLabel(t *testing.T) {
	r := newMetricsRouter(func(c *gin.Context) { c.Status(http.StatusOK) })
	before := requestsTotal(t, "GET", noRoutePath, "404")

	get(r, "/does/not/exist")

	if got := requestsTotal(t, "GET", noRoutePath, "404") - before; got != 1 {
		t.Errorf("no-route delta = %v, want 1", got)
	}
}
