// Package metrics defines the observability contract of the engine. Sinks
// receive one StageRun record per stage invocation.
package metrics

import "time"

// StageRun summarises one batch invocation of an engine stage.
type StageRun struct {
	// Stage is one of "acceptance", "assignment", "arrival", "eta".
	Stage    string
	TenantID string
	// Outcomes maps counter names (processed, accepted, pending, errors, ...)
	// to their values for this run.
	Outcomes map[string]int
	Duration time.Duration
	Time     time.Time
}

// Sink records stage runs for observability purposes.
type Sink interface {
	RecordStageRun(run StageRun) error
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) RecordStageRun(StageRun) error { return nil }

// Config holds the metrics backends configuration.
type Config struct {
	PrometheusEnabled bool   `json:"prometheus_enabled"`
	PrometheusPort    string `json:"prometheus_port"`
	InfluxEnabled     bool   `json:"influx_enabled"`
	InfluxURL         string `json:"influx_url"`
	InfluxToken       string `json:"influx_token"`
	InfluxOrg         string `json:"influx_org"`
	InfluxBucket      string `json:"influx_bucket"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.PrometheusPort == "" {
		c.PrometheusPort = ":9090"
	}
}
