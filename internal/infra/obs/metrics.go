package obs

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the HTTP and bus collectors. It satisfies middleware.Recorder.
type Metrics struct {
	Requests   *prometheus.CounterVec
	LatencyMS  *prometheus.HistogramVec
	Messages   *prometheus.CounterVec
	MessageDur *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// NewMetrics registers collectors on reg; a nil reg uses a fresh registry.
func NewMetrics(service string, reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hotel",
		Subsystem: service,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"handler", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "hotel",
		Subsystem: service,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"handler"})
	messages := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hotel",
		Subsystem: service,
		Name:      "bus_messages_total",
		Help:      "Commands and queries handled, by outcome.",
	}, []string{"kind", "key", "outcome"})
	messageDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "hotel",
		Subsystem: service,
		Name:      "bus_message_duration_ms",
		Help:      "Command and query latency in milliseconds.",
		Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
	}, []string{"kind", "key"})

	reg.MustRegister(requests, latency, messages, messageDur)
	return &Metrics{
		Requests:   requests,
		LatencyMS:  latency,
		Messages:   messages,
		MessageDur: messageDur,
		gatherer:   reg,
	}
}

func (m *Metrics) Observe(kind, key string, err error, elapsed time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Messages.WithLabelValues(kind, key, outcome).Inc()
	m.MessageDur.WithLabelValues(kind, key).Observe(float64(elapsed.Milliseconds()))
}

func (m *Metrics) ObserveHTTP(handler, status string, elapsed time.Duration) {
	m.Requests.WithLabelValues(handler, status).Inc()
	m.LatencyMS.WithLabelValues(handler).Observe(float64(elapsed.Milliseconds()))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
