package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/fleetworks/dispatchd/core/metrics"
)

// PromSink records stage runs as Prometheus series. The engine additionally
// exposes its own per-outcome collectors; this sink covers the run-level
// view (runs and durations per tenant).
type PromSink struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewPromSink registers on the default Prometheus registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global one.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_stage_runs_total",
		Help: "Number of stage invocations",
	}, []string{"stage", "tenant_id"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dispatch_stage_run_duration_seconds",
		Help:    "Stage invocation duration per tenant",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage", "tenant_id"})

	if err := reg.Register(runs); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			runs = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(duration); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			duration = are.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			return nil, err
		}
	}
	return &PromSink{runs: runs, duration: duration}, nil
}

func (s *PromSink) RecordStageRun(run coremetrics.StageRun) error {
	s.runs.WithLabelValues(run.Stage, run.TenantID).Inc()
	s.duration.WithLabelValues(run.Stage, run.TenantID).Observe(run.Duration.Seconds())
	return nil
}

var _ coremetrics.Sink = (*PromSink)(nil)
