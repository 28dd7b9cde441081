package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Recorder owns the service's Prometheus collectors on a private registry.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	providerRequests *prometheus.CounterVec
	providerLatency  *prometheus.HistogramVec
	fetchCycles      *prometheus.CounterVec
	staleCycles      prometheus.Counter
	skippedRefreshes prometheus.Counter
	activeSessions   prometheus.Gauge
}

// New creates a Recorder with Go runtime and process collectors registered.
func New() *Recorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Recorder{
		registry: registry,
		providerRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "brightside_provider_requests_total",
			Help: "Outbound weather provider requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "brightside_provider_request_duration_seconds",
			Help:    "Latency of outbound weather provider requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		fetchCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "brightside_fetch_cycles_total",
			Help: "Dashboard fetch cycles by final state.",
		}, []string{"state"}),
		staleCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "brightside_stale_cycles_total",
			Help: "Fetch cycles discarded because a newer search superseded them.",
		}),
		skippedRefreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "brightside_refreshes_skipped_total",
			Help: "Live-feed refreshes skipped because the provider budget of the run was spent.",
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "brightside_active_sessions",
			Help: "Dashboard sessions currently held in memory.",
		}),
	}

	registry.MustRegister(
		r.providerRequests,
		r.providerLatency,
		r.fetchCycles,
		r.staleCycles,
		r.skippedRefreshes,
		r.activeSessions,
	)
	return r
}

// Registry exposes the registry for the /metrics handler.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveProviderCall records one outbound call.
func (r *Recorder) ObserveProviderCall(endpoint, outcome string, took time.Duration) {
	if r == nil {
		return
	}
	r.providerRequests.WithLabelValues(endpoint, outcome).Inc()
	r.providerLatency.WithLabelValues(endpoint).Observe(took.Seconds())
}

// ObserveCycle records the final state of a committed fetch cycle.
func (r *Recorder) ObserveCycle(state string) {
	if r == nil {
		return
	}
	r.fetchCycles.WithLabelValues(state).Inc()
}

// ObserveStaleCycle records a discarded fetch cycle.
func (r *Recorder) ObserveStaleCycle() {
	if r == nil {
		return
	}
	r.staleCycles.Inc()
}

// ObserveSkippedRefreshes records live-feed refreshes that did not run.
func (r *Recorder) ObserveSkippedRefreshes(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.skippedRefreshes.Add(float64(n))
}

// SetActiveSessions updates the session gauge.
func (r *Recorder) SetActiveSessions(n int) {
	if r == nil {
		return
	}
	r.activeSessions.Set(float64(n))
}
