package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	ChatRequests     *prometheus.CounterVec
	ProviderAttempts *prometheus.CounterVec
	ProviderLatency  *prometheus.HistogramVec
	FallbackReplies  prometheus.Counter
	StorageErrors    *prometheus.CounterVec
	WSConnections    prometheus.Gauge

	handler http.Handler
}

// NewMetricsWith registers the instruments on reg and serves reg on Handler.
func NewMetricsWith(reg *prometheus.Registry, namespace string) *Metrics {
	handler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	factory := promauto.With(reg)
	return &Metrics{
		ChatRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_requests_total",
			Help:      "Chat requests by transport and outcome.",
		}, []string{"transport", "outcome"}),
		ProviderAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_attempts_total",
			Help:      "Provider attempts by provider and outcome (ok or miss reason).",
		}, []string{"provider", "outcome"}),
		ProviderLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_latency_ms",
			Help:      "Provider call latency in milliseconds.",
			Buckets:   []float64{250, 500, 1000, 2000, 4000, 8000, 12000, 18000, 30000},
		}, []string{"provider"}),
		FallbackReplies: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_replies_total",
			Help:      "Replies answered with the fixed fallback text because every provider missed.",
		}),
		StorageErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_errors_total",
			Help:      "Turn store failures by operation.",
		}, []string{"op"}),
		WSConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_connections",
			Help:      "Open chat websocket connections.",
		}),
		handler: handler,
	}
}

func (m *Metrics) ObserveChat(transport, outcome string) {
	if m == nil {
		return
	}
	m.ChatRequests.WithLabelValues(transport, outcome).Inc()
}

func (m *Metrics) ObserveProviderAttempt(provider, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.ProviderAttempts.WithLabelValues(provider, outcome).Inc()
	m.ProviderLatency.WithLabelValues(provider).Observe(float64(d.Milliseconds()))
}

func (m *Metrics) ObserveFallback() {
	if m == nil {
		return
	}
	m.FallbackReplies.Inc()
}

func (m *Metrics) ObserveStorageError(op string) {
	if m == nil {
		return
	}
	m.StorageErrors.WithLabelValues(op).Inc()
}

// Handler serves the registry the instruments were registered on.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.handler == nil {
		return promhttp.Handler()
	}
	return m.handler
}
