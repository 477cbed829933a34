package obs

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"hotelres/internal/app/outbox"
)

func TestMetricsObserve(t *testing.T) {
	m := NewMetrics("test", nil)
	m.Observe("command", "reservations.create", nil, 3*time.Millisecond)
	m.Observe("command", "reservations.create", errors.New("x"), time.Millisecond)
	m.Observe("command", "reservations.create", nil, time.Millisecond)

	if got := testutil.ToFloat64(m.Messages.WithLabelValues("command", "reservations.create", "ok")); got != 2 {
		t.Fatalf("ok count = %v", got)
	}
	if got := testutil.ToFloat64(m.Messages.WithLabelValues("command", "reservations.create", "error")); got != 1 {
		t.Fatalf("error count = %v", got)
	}
}

func TestRequestIDPropagatesToEventHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var logs bytes.Buffer
	m := Middleware{Logger: NewLoggerTo(&logs, "prod", "info"), Metrics: NewMetrics("test", nil)}
	r := gin.New()
	r.Use(m.RequestID(), m.LoggerMiddleware())
	var seen map[string]string
	r.GET("/ping", func(c *gin.Context) {
		seen = outbox.HeadersFromContext(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Header().Get(RequestIDHeader) != "req-42" || seen["request_id"] != "req-42" {
		t.Fatalf("header = %q, event headers = %v", rec.Header().Get(RequestIDHeader), seen)
	}
	if !strings.Contains(logs.String(), `"request_id":"req-42"`) {
		t.Fatalf("access log missing request id: %s", logs.String())
	}
	if got := testutil.ToFloat64(m.Metrics.Requests.WithLabelValues("GET /ping", "204")); got != 1 {
		t.Fatalf("http counter = %v", got)
	}
}

func TestReadyzReportsFailingChecks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := HealthHandlers{Checks: map[string]Check{
		"store": func(ctx context.Context) error { return nil },
		"cache": func(ctx context.Context) error { return errors.New("connection refused") },
	}}
	r := gin.New()
	r.GET("/readyz", h.Readyz)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), "connection refused") {
		t.Fatalf("readyz = %d %s", rec.Code, rec.Body.String())
	}
}
