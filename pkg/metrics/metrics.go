// Package metrics holds the planner's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	reg *prometheus.Registry

	PlanRequests   *prometheus.CounterVec
	Degradations   *prometheus.CounterVec
	StoreFallbacks prometheus.Counter
	DraftConflicts *prometheus.CounterVec
	PlannerSeconds prometheus.Histogram
}

// New registers the collectors on a fresh registry, so tests can build as
// many instances as they like.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		reg: reg,
		PlanRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "daytrip_plan_requests_total",
			Help: "Planning requests by operation.",
		}, []string{"op"}),
		Degradations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "daytrip_plan_degradations_total",
			Help: "Plans that fell back to nearest-first, by reason.",
		}, []string{"reason"}),
		StoreFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "daytrip_store_fallbacks_total",
			Help: "Radius queries answered by the in-memory fallback.",
		}),
		DraftConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "daytrip_draft_conflicts_total",
			Help: "Rejected draft edits by error kind.",
		}, []string{"kind"}),
		PlannerSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "daytrip_planner_seconds",
			Help:    "Latency of planner calls.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
		}),
	}
	reg.MustRegister(
		m.PlanRequests, m.Degradations, m.StoreFallbacks, m.DraftConflicts, m.PlannerSeconds,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
