package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServerMetrics collects HTTP and search pipeline metrics on a dedicated
// registry.
type ServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration prometheus.ObserverVec
	requestInFlight prometheus.Gauge

	searchTotal        *prometheus.CounterVec
	searchDuration     prometheus.ObserverVec
	searchCandidates   prometheus.ObserverVec
	degradedTotal      *prometheus.CounterVec
	modelAttemptsTotal *prometheus.CounterVec
}

func NewServerMetrics(service string) *ServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pa",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pa",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "pa",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	searchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pa",
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Total search requests by outcome.",
		},
		[]string{"service", "outcome"},
	)
	searchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pa",
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "End-to-end search pipeline duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	searchCandidates := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pa",
			Subsystem: "search",
			Name:      "candidates",
			Help:      "Distribution of candidate counts per search.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8},
		},
		[]string{"service"},
	)
	degradedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pa",
			Subsystem: "search",
			Name:      "degraded_total",
			Help:      "Total zero-confidence results served.",
		},
		[]string{"service"},
	)
	modelAttemptsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pa",
			Subsystem: "model",
			Name:      "endpoint_attempts_total",
			Help:      "Model endpoint attempts by endpoint and outcome class.",
		},
		[]string{"service", "endpoint", "outcome"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		searchTotal,
		searchDuration,
		searchCandidates,
		degradedTotal,
		modelAttemptsTotal,
	)

	return &ServerMetrics{
		registry:           registry,
		requestTotal:       requestTotal.MustCurryWith(prometheus.Labels{"service": service}),
		requestDuration:    requestDuration.MustCurryWith(prometheus.Labels{"service": service}),
		requestInFlight:    requestInFlight,
		searchTotal:        searchTotal.MustCurryWith(prometheus.Labels{"service": service}),
		searchDuration:     searchDuration.MustCurryWith(prometheus.Labels{"service": service}),
		searchCandidates:   searchCandidates.MustCurryWith(prometheus.Labels{"service": service}),
		degradedTotal:      degradedTotal.MustCurryWith(prometheus.Labels{"service": service}),
		modelAttemptsTotal: modelAttemptsTotal.MustCurryWith(prometheus.Labels{"service": service}),
	}
}

func (m *ServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *ServerMetrics) ObserveRequest(method, path string, status int, duration time.Duration) {
	m.requestTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func (m *ServerMetrics) RequestStarted() {
	m.requestInFlight.Inc()
}

func (m *ServerMetrics) RequestFinished() {
	m.requestInFlight.Dec()
}

// ObserveSearch implements the search pipeline's metrics recorder.
func (m *ServerMetrics) ObserveSearch(outcome string, candidates int, confidence float64, duration time.Duration) {
	m.searchTotal.WithLabelValues(outcome).Inc()
	m.searchDuration.WithLabelValues().Observe(duration.Seconds())
	m.searchCandidates.WithLabelValues().Observe(float64(candidates))
	if outcome == "ok" && confidence == 0 {
		m.degradedTotal.WithLabelValues().Inc()
	}
}

// RecordModelAttempt implements the model client's attempt recorder.
func (m *ServerMetrics) RecordModelAttempt(endpoint, outcome string) {
	m.modelAttemptsTotal.WithLabelValues(endpoint, outcome).Inc()
}
