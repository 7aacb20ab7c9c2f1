// Package metrics records engine activity as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Recorder holds the engine's Prometheus collectors. A nil *Recorder is valid
// and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	tickDuration prometheus.Histogram
	phaseSkipped *prometheus.CounterVec
	transitions  *prometheus.CounterVec
	pollFailures prometheus.Counter
	reconciled   *prometheus.CounterVec
	unmatched    prometheus.Counter
}

// NewRecorder creates a Recorder with its own registry.
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Recorder{
		registry: registry,
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ultradialer_tick_duration_seconds",
			Help:    "Duration of scheduler ticks.",
			Buckets: prometheus.DefBuckets,
		}),
		phaseSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ultradialer_phase_skipped_total",
			Help: "Phases dropped because a previous run was still in progress.",
		}, []string{"phase"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ultradialer_transitions_total",
			Help: "Campaign transitions attempted by the scheduler.",
		}, []string{"action", "outcome"}),
		pollFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ultradialer_poll_failures_total",
			Help: "Failed batch job status fetches.",
		}),
		reconciled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ultradialer_reconciled_calls_total",
			Help: "Call records finalised from provider results, by status.",
		}, []string{"status"}),
		unmatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ultradialer_reconcile_unmatched_total",
			Help: "Terminal recipients with no pending call record.",
		}),
	}

	registry.MustRegister(r.tickDuration)
	registry.MustRegister(r.phaseSkipped)
	registry.MustRegister(r.transitions)
	registry.MustRegister(r.pollFailures)
	registry.MustRegister(r.reconciled)
	registry.MustRegister(r.unmatched)

	return r
}

// Registry returns the Prometheus registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveTick records the duration of one tick.
func (r *Recorder) ObserveTick(d time.Duration) {
	if r == nil {
		return
	}
	r.tickDuration.Observe(d.Seconds())
}

// PhaseSkipped counts a phase dropped by its re-entrancy guard.
func (r *Recorder) PhaseSkipped(phase string) {
	if r == nil {
		return
	}
	r.phaseSkipped.WithLabelValues(phase).Inc()
}

// Transition counts a pause or resume attempt.
func (r *Recorder) Transition(action string, err error) {
	if r == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.transitions.WithLabelValues(action, outcome).Inc()
}

// PollFailed counts a failed batch job status fetch.
func (r *Recorder) PollFailed() {
	if r == nil {
		return
	}
	r.pollFailures.Inc()
}

// Reconciled counts a call record finalised with status.
func (r *Recorder) Reconciled(status string) {
	if r == nil {
		return
	}
	r.reconciled.WithLabelValues(status).Inc()
}

// Unmatched counts recipients that matched no pending call record.
func (r *Recorder) Unmatched(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.unmatched.Add(float64(n))
}
