package providers

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"signalgate/internal/models"
	"signalgate/internal/structures"
)

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncUnlockOutcome(outcome string)
	ObserveVerificationDuration(duration time.Duration)
	IncVerifying()
	DecVerifying()
	IncCacheHits()
	IncCacheMisses()
	ObservePersistenceDuration(duration time.Duration)
}

type MetricsProvider struct {
	requestsTotal        *prometheus.CounterVec
	requestDuration      *prometheus.HistogramVec
	unlocksTotal         *prometheus.CounterVec
	verificationDuration prometheus.Histogram
	verifying            prometheus.Gauge
	cacheHits            prometheus.Counter
	cacheMisses          prometheus.Counter
	persistenceDuration  prometheus.Histogram
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncUnlockOutcome(outcome string) {
	m.unlocksTotal.WithLabelValues(outcome).Inc()
}

func (m *MetricsProvider) ObserveVerificationDuration(duration time.Duration) {
	m.verificationDuration.Observe(duration.Seconds())
}

func (m *MetricsProvider) IncVerifying() {
	m.verifying.Inc()
}

func (m *MetricsProvider) DecVerifying() {
	m.verifying.Dec()
}

func (m *MetricsProvider) IncCacheHits() {
	m.cacheHits.Inc()
}

func (m *MetricsProvider) IncCacheMisses() {
	m.cacheMisses.Inc()
}

func (m *MetricsProvider) ObservePersistenceDuration(duration time.Duration) {
	m.persistenceDuration.Observe(duration.Seconds())
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func NewMetricsProvider(conf *structures.Config, store *models.EntitlementStore) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	m := &MetricsProvider{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "signalgate_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "signalgate_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		unlocksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "signalgate_unlocks_total",
			Help: "Unlock attempts by terminal outcome",
		}, []string{"outcome"}),

		verificationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "signalgate_verification_duration_seconds",
			Help:    "Payment verification duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 30, 60},
		}),

		verifying: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "signalgate_verifications_in_flight",
			Help: "Currently running payment verifications",
		}),

		cacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "signalgate_cache_hits_total",
			Help: "Total number of cache hits",
		}),

		cacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "signalgate_cache_misses_total",
			Help: "Total number of cache misses",
		}),

		persistenceDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "signalgate_persistence_duration_seconds",
			Help:    "Duration of persistence operations in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}

	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "signalgate_entitlements_live",
		Help: "Currently live entitlements across all holders",
	}, func() float64 {
		return float64(store.TotalLive(models.ToEpochSeconds(time.Now())))
	})

	return m
}

// noopMetrics is a no-op implementation for when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (n *noopMetrics) IncUnlockOutcome(_ string)                        {}
func (n *noopMetrics) ObserveVerificationDuration(_ time.Duration)      {}
func (n *noopMetrics) IncVerifying()                                    {}
func (n *noopMetrics) DecVerifying()                                    {}
func (n *noopMetrics) IncCacheHits()                                    {}
func (n *noopMetrics) IncCacheMisses()                                  {}
func (n *noopMetrics) ObservePersistenceDuration(_ time.Duration)       {}
