package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ordersProcessed *prometheus.CounterVec
	stageDuration   *prometheus.HistogramVec
	delayAlerts     *prometheus.CounterVec
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, *prometheus.HistogramVec, *prometheus.CounterVec) {
	orders := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_orders_total",
			Help: "Orders handled by the automation passes, by stage and outcome",
		},
		[]string{"stage", "outcome"},
	)
	dur := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dispatch_stage_duration_seconds",
			Help:    "Duration of one batch invocation of a stage",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)
	alerts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_delay_alerts_total",
			Help: "Delay alerts raised by the ETA pass",
		},
		[]string{"severity"},
	)
	return orders, dur, alerts
}

func init() {
	ordersProcessed, stageDuration, delayAlerts = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers engine metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(ordersProcessed, stageDuration, delayAlerts)
}
