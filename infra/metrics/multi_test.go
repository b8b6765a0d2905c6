package metrics

import (
	"errors"
	"testing"
	"time"

	coremetrics "github.com/fleetworks/dispatchd/core/metrics"
)

type recordingSink struct {
	runs []coremetrics.StageRun
	err  error
}

func (r *recordingSink) RecordStageRun(run coremetrics.StageRun) error {
	if r.err != nil {
		return r.err
	}
	r.runs = append(r.runs, run)
	return nil
}

func TestMultiSinkFansOut(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	m := NewMultiSink(a, b)

	run := coremetrics.StageRun{
		Stage:    "acceptance",
		TenantID: "t1",
		Outcomes: map[string]int{"processed": 3},
		Duration: 20 * time.Millisecond,
	}
	if err := m.RecordStageRun(run); err != nil {
		t.Fatalf("RecordStageRun: %v", err)
	}
	if len(a.runs) != 1 || len(b.runs) != 1 {
		t.Errorf("fan-out incomplete: a=%d b=%d", len(a.runs), len(b.runs))
	}
}

func TestMultiSinkReturnsFirstError(t *testing.T) {
	boom := errors.New("boom")
	a := &recordingSink{err: boom}
	b := &recordingSink{}
	m := NewMultiSink(a, b)

	if err := m.RecordStageRun(coremetrics.StageRun{Stage: "eta"}); !errors.Is(err, boom) {
		t.Fatalf("expected first sink error, got %v", err)
	}
	if len(b.runs) != 0 {
		t.Error("later sinks must not record after a failure")
	}
}

func TestPromSinkRegistersOnce(t *testing.T) {
	// Registering twice on the same registerer must reuse the collectors.
	if _, err := NewPromSink(); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	s, err := NewPromSink()
	if err != nil {
		t.Fatalf("second registration: %v", err)
	}
	if err := s.RecordStageRun(coremetrics.StageRun{Stage: "arrival", TenantID: "t1"}); err != nil {
		t.Fatalf("RecordStageRun: %v", err)
	}
}
