package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"venuebooking/internal/domain"
)

const namespace = "venuebooking"

// Recorder exports lifecycle and blocker sweep metrics on its own registry.
type Recorder struct {
	registry    *prometheus.Registry
	transitions *prometheus.CounterVec
	conflicts   *prometheus.CounterVec
	sweepBlocks *prometheus.CounterVec
	lastSweep   prometheus.Gauge
}

// NewRecorder registers the venuebooking collectors, plus Go runtime and process
// collectors, on a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Lifecycle actions by outcome",
		}, []string{"action", "outcome"}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conflicts_total",
			Help:      "Booking conflicts detected, by action",
		}, []string{"action"}),
		sweepBlocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocker_sweep_blocks_total",
			Help:      "Temporary blocks touched by the reconciliation sweep",
		}, []string{"result"}),
		lastSweep: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "blocker_sweep_last_run_timestamp_seconds",
			Help:      "Unix time of the last completed reconciliation sweep",
		}),
	}
	r.registry.MustRegister(
		r.transitions,
		r.conflicts,
		r.sweepBlocks,
		r.lastSweep,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) TransitionObserved(action domain.Action, outcome string) {
	r.transitions.WithLabelValues(string(action), outcome).Inc()
}

func (r *Recorder) ConflictDetected(action domain.Action) {
	r.conflicts.WithLabelValues(string(action)).Inc()
}

// SweepCompleted records the result of one reconciliation sweep.
func (r *Recorder) SweepCompleted(report domain.ReconcileReport) {
	r.sweepBlocks.WithLabelValues("created").Add(float64(report.Created))
	r.sweepBlocks.WithLabelValues("released").Add(float64(report.Released))
	r.sweepBlocks.WithLabelValues("failed").Add(float64(report.Failed))
	r.lastSweep.SetToCurrentTime()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

var _ domain.LifecycleMetrics = (*Recorder)(nil)
