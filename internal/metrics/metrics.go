package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the reconciliation collectors. A nil *Registry is valid and records nothing.
type Registry struct {
	reg *prometheus.Registry

	Passes          *prometheus.CounterVec
	PassDurationSec prometheus.Histogram
	Views           prometheus.Histogram
	BranchFailures  *prometheus.CounterVec
	CacheHits       prometheus.Counter
	CacheMisses     prometheus.Counter
	Invalidations   *prometheus.CounterVec
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	passes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reconcile_passes_total",
		Help: "Reconciliation passes by outcome (ok, degraded, fatal, cancelled).",
	}, []string{"outcome"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "reconcile_pass_duration_seconds",
		Buckets: prometheus.DefBuckets,
	})
	views := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "reconcile_pass_views",
		Buckets: []float64{0, 5, 10, 25, 50, 100, 250, 500},
	})
	branchFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reconcile_branch_failures_total",
		Help: "Degraded fan-out branches by stage.",
	}, []string{"stage"})
	hits := prometheus.NewCounter(prometheus.CounterOpts{Name: "reconcile_cache_hits_total"})
	misses := prometheus.NewCounter(prometheus.CounterOpts{Name: "reconcile_cache_misses_total"})
	invalidations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reconcile_cache_invalidations_total",
	}, []string{"kind"})

	r.MustRegister(
		passes, duration, views, branchFailures, hits, misses, invalidations,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Registry{
		reg:             r,
		Passes:          passes,
		PassDurationSec: duration,
		Views:           views,
		BranchFailures:  branchFailures,
		CacheHits:       hits,
		CacheMisses:     misses,
		Invalidations:   invalidations,
	}
}

func (r *Registry) ObservePass(outcome string, elapsed time.Duration, views int) {
	if r == nil {
		return
	}
	r.Passes.WithLabelValues(outcome).Inc()
	r.PassDurationSec.Observe(elapsed.Seconds())
	r.Views.Observe(float64(views))
}

func (r *Registry) BranchFailed(stage string) {
	if r == nil {
		return
	}
	r.BranchFailures.WithLabelValues(stage).Inc()
}

func (r *Registry) CacheLookup(hit bool) {
	if r == nil {
		return
	}
	if hit {
		r.CacheHits.Inc()
		return
	}
	r.CacheMisses.Inc()
}

func (r *Registry) Invalidated(kind string) {
	if r == nil {
		return
	}
	r.Invalidations.WithLabelValues(kind).Inc()
}

func (r *Registry) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
