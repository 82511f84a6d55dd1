package observability

import (
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yungbote/knowledge-backend/internal/platform/envutil"
	"github.com/yungbote/knowledge-backend/internal/platform/logger"
)

const namespace = "kb"

// Metrics holds the process-wide Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	aggregateOps      *prometheus.CounterVec
	aggregateLatency  *prometheus.HistogramVec
	aggregateConflict *prometheus.CounterVec
	aggregateRetry    *prometheus.CounterVec

	lookupRequests *prometheus.CounterVec
	lookupLatency  *prometheus.HistogramVec

	resolveOutcomes *prometheus.CounterVec
	publishAttempts prometheus.Histogram
	signalsEmitted  *prometheus.CounterVec

	sloCompliance *prometheus.GaugeVec
	sloBudget     *prometheus.GaugeVec
	sloBurn       *prometheus.GaugeVec

	// Raw tallies read by the SLO evaluator.
	apiTotal      tally
	apiErrors     tally
	apiFast       tally
	resolveTotal  tally
	resolveErrors tally
	fastThreshold time.Duration
}

type tally struct{ n atomic.Uint64 }

func (t *tally) inc()           { t.n.Add(1) }
func (t *tally) Value() float64 { return float64(t.n.Load()) }

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv("METRICS_ENABLED")))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func Current() *Metrics {
	return instance
}

// Init builds the singleton when METRICS_ENABLED is set.
func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = NewMetrics()
		if log != nil {
			log.Info("prometheus metrics initialized", "namespace", namespace)
		}
	})
	return instance
}

// NewMetrics builds an independent collector set on its own registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry:      reg,
		fastThreshold: envutil.Millis("SLO_API_LATENCY_THRESHOLD_MS", 500*time.Millisecond),
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Total API requests by method/route/status.",
		}, []string{"method", "route", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "API request latency in seconds by method/route/status.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"method", "route", "status"}),
		apiInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "api_inflight_requests",
			Help:      "In-flight API requests.",
		}),
		aggregateOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregate_operations_total",
			Help:      "Aggregate write operations by name/status.",
		}, []string{"operation", "status"}),
		aggregateLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "aggregate_operation_duration_seconds",
			Help:      "Aggregate write latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		aggregateConflict: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregate_conflicts_total",
			Help:      "Uniqueness conflicts observed by aggregate writes.",
		}, []string{"operation"}),
		aggregateRetry: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregate_retries_total",
			Help:      "Retryable failures observed by aggregate writes.",
		}, []string{"operation"}),
		lookupRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "external_lookup_requests_total",
			Help:      "Bibliographic lookups by operation/outcome.",
		}, []string{"operation", "outcome"}),
		lookupLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "external_lookup_duration_seconds",
			Help:      "Bibliographic lookup latency including retries.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"operation"}),
		resolveOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolve_outcomes_total",
			Help:      "Resolution pipeline outcomes (noop/bound/merged/skipped/error code).",
		}, []string{"outcome"}),
		publishAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "publish_slug_attempts",
			Help:      "Slug candidates tried per successful publish.",
			Buckets:   []float64{1, 2, 3, 5, 10, 20, 50},
		}),
		signalsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signals_emitted_total",
			Help:      "Outbound signals by type/status.",
		}, []string{"type", "status"}),
		sloCompliance: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "slo_compliance_ratio",
			Help:      "Rolling SLI per objective.",
		}, []string{"slo", "window"}),
		sloBudget: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "slo_error_budget_remaining_ratio",
			Help:      "Remaining error budget per objective.",
		}, []string{"slo", "window"}),
		sloBurn: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "slo_burn_rate",
			Help:      "Error budget burn rate per objective.",
		}, []string{"slo", "window"}),
	}
	reg.MustRegister(
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.aggregateOps, m.aggregateLatency, m.aggregateConflict, m.aggregateRetry,
		m.lookupRequests, m.lookupLatency,
		m.resolveOutcomes, m.publishAttempts, m.signalsEmitted,
		m.sloCompliance, m.sloBudget, m.sloBurn,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route, status).Observe(dur.Seconds())

	m.apiTotal.inc()
	if strings.HasPrefix(status, "5") {
		m.apiErrors.inc()
	}
	if dur <= m.fastThreshold {
		m.apiFast.inc()
	}
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveAggregateOperation(name, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.aggregateOps.WithLabelValues(orUnknown(name), orUnknown(status)).Inc()
	m.aggregateLatency.WithLabelValues(orUnknown(name)).Observe(dur.Seconds())
}

// SeedAggregateOperations creates the conflict and retry series at zero so
// rate() queries see them before the first failure.
func (m *Metrics) SeedAggregateOperations(names []string) {
	if m == nil {
		return
	}
	for _, name := range names {
		m.aggregateConflict.WithLabelValues(orUnknown(name)).Add(0)
		m.aggregateRetry.WithLabelValues(orUnknown(name)).Add(0)
	}
}

func (m *Metrics) IncAggregateConflict(name string) {
	if m == nil {
		return
	}
	m.aggregateConflict.WithLabelValues(orUnknown(name)).Inc()
}

func (m *Metrics) IncAggregateRetry(name string) {
	if m == nil {
		return
	}
	m.aggregateRetry.WithLabelValues(orUnknown(name)).Inc()
}

func (m *Metrics) ObserveExternalLookup(operation, outcome string, dur time.Duration) {
	if m == nil {
		return
	}
	m.lookupRequests.WithLabelValues(orUnknown(operation), orUnknown(outcome)).Inc()
	m.lookupLatency.WithLabelValues(orUnknown(operation)).Observe(dur.Seconds())
}

func (m *Metrics) IncResolveOutcome(outcome string) {
	if m == nil {
		return
	}
	m.resolveOutcomes.WithLabelValues(orUnknown(outcome)).Inc()

	m.resolveTotal.inc()
	switch outcome {
	case "internal", "external_lookup", "retryable", "error":
		m.resolveErrors.inc()
	}
}

func (m *Metrics) ObservePublishAttempts(n int) {
	if m == nil {
		return
	}
	m.publishAttempts.Observe(float64(n))
}

func (m *Metrics) IncSignal(signalType, status string) {
	if m == nil {
		return
	}
	m.signalsEmitted.WithLabelValues(orUnknown(signalType), orUnknown(status)).Inc()
}

func orUnknown(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "unknown"
	}
	return v
}
