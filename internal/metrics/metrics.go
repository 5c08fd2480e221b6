// Package metrics exposes sweep counters for the serve command.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/julianstephens/trainsync/internal/engine"
	"github.com/julianstephens/trainsync/internal/models"
)

const namespace = "trainsync"

// Registry holds the trainsync collectors on a private Prometheus registry.
type Registry struct {
	registry *prometheus.Registry

	SweepsTotal        *prometheus.CounterVec
	SweepDuration      *prometheus.HistogramVec
	ActionsTotal       *prometheus.CounterVec
	StatusChangesTotal *prometheus.CounterVec
	LastSweepTimestamp *prometheus.GaugeVec
	HTTPRequestsTotal  *prometheus.CounterVec
}

var _ engine.Recorder = (*Registry)(nil)

func New() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		SweepsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweeps_total",
			Help:      "Sweeps run, by kind and result (ok, partial, error).",
		}, []string{"kind", "result"}),
		SweepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Sweep wall time in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"kind"}),
		ActionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Row actions dispatched, by action and result.",
		}, []string{"action", "result"}),
		StatusChangesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_changes_total",
			Help:      "Status cells rewritten by reconciliation, by new status.",
		}, []string{"status"}),
		LastSweepTimestamp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_sweep_timestamp_seconds",
			Help:      "Unix time the last sweep of each kind finished.",
		}, []string{"kind"}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by route and status code.",
		}, []string{"route", "code"}),
	}
	r.registry.MustRegister(
		r.SweepsTotal,
		r.SweepDuration,
		r.ActionsTotal,
		r.StatusChangesTotal,
		r.LastSweepTimestamp,
		r.HTTPRequestsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Registry) SweepFinished(kind engine.SweepKind, result string, elapsed time.Duration) {
	r.SweepsTotal.WithLabelValues(string(kind), result).Inc()
	r.SweepDuration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
	r.LastSweepTimestamp.WithLabelValues(string(kind)).SetToCurrentTime()
}

func (r *Registry) ActionFinished(action models.Action, result string) {
	r.ActionsTotal.WithLabelValues(string(action), result).Inc()
}

func (r *Registry) StatusChanged(kind models.StatusKind) {
	r.StatusChangesTotal.WithLabelValues(kind.String()).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
