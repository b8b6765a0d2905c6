package metrics

import coremetrics "github.com/fleetworks/dispatchd/core/metrics"

// MultiSink fans stage runs out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordStageRun forwards the record to all sinks, returning the first error
// encountered.
func (m *MultiSink) RecordStageRun(run coremetrics.StageRun) error {
	for _, s := range m.Sinks {
		if err := s.RecordStageRun(run); err != nil {
			return err
		}
	}
	return nil
}
