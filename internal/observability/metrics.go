package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors used across the storefront.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	chatTurns          *prometheus.CounterVec
	intentSource       *prometheus.CounterVec
	searchStrategy     *prometheus.CounterVec
	comparisons        *prometheus.CounterVec
	generatorLatency   *prometheus.HistogramVec
	httpRequests       *prometheus.CounterVec
	httpRequestLatency *prometheus.HistogramVec
}

// NewMetrics creates collectors registered on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		chatTurns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "chat_turns_total",
			Help:      "Chat turns completed, by outcome.",
		}, []string{"outcome"}),
		intentSource: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "intent_analyses_total",
			Help:      "Query intents produced, by source (ai or heuristic).",
		}, []string{"source"}),
		searchStrategy: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "search_strategy_hits_total",
			Help:      "Product searches, by the strategy that produced the result.",
		}, []string{"strategy"}),
		comparisons: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "comparisons_total",
			Help:      "Product comparisons, by outcome.",
		}, []string{"outcome"}),
		generatorLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "storefront",
			Name:      "generator_request_duration_seconds",
			Help:      "Latency of text-generation calls.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		}, []string{"provider", "status"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpRequestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "storefront",
			Name:      "http_request_duration_seconds",
			Help:      "Histogram of HTTP request durations.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
		}, []string{"method", "route", "status"}),
	}

	m.registry.MustRegister(
		m.chatTurns,
		m.intentSource,
		m.searchStrategy,
		m.comparisons,
		m.generatorLatency,
		m.httpRequests,
		m.httpRequestLatency,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns the /metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ChatTurn counts a finished chat turn.
func (m *Metrics) ChatTurn(outcome string) {
	if m == nil {
		return
	}
	m.chatTurns.WithLabelValues(outcome).Inc()
}

// IntentAnalyzed counts an intent by where it came from.
func (m *Metrics) IntentAnalyzed(source string) {
	if m == nil {
		return
	}
	m.intentSource.WithLabelValues(source).Inc()
}

// SearchStrategyHit counts the strategy that ended a product search.
func (m *Metrics) SearchStrategyHit(strategy string) {
	if m == nil {
		return
	}
	m.searchStrategy.WithLabelValues(strategy).Inc()
}

// Comparison counts a comparison request outcome.
func (m *Metrics) Comparison(outcome string) {
	if m == nil {
		return
	}
	m.comparisons.WithLabelValues(outcome).Inc()
}

// GeneratorCall observes the latency of one text-generation call.
func (m *Metrics) GeneratorCall(provider string, err error, d time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.generatorLatency.WithLabelValues(provider, status).Observe(d.Seconds())
}

// HTTPRequest records one served HTTP request.
func (m *Metrics) HTTPRequest(method, route string, statusCode int, d time.Duration) {
	if m == nil {
		return
	}
	status := classifyStatus(statusCode)
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpRequestLatency.WithLabelValues(method, route, status).Observe(d.Seconds())
}

func classifyStatus(statusCode int) string {
	if statusCode < 100 || statusCode > 599 {
		return "unknown"
	}
	return strconv.Itoa(statusCode/100) + "xx"
}
