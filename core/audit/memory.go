package audit

import (
	"context"
	"sync"
)

// MemoryStore keeps records in memory. It backs tests and single-process
// deployments that do not need durable audit history.
type MemoryStore struct {
	mu        sync.RWMutex
	entries   []Entry
	decisions []PendingDecision
	alerts    []DelayAlert
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) AppendEntry(_ context.Context, e Entry) error {
	s.mu.Lock()
	s.entries = append(s.entries, e)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) AppendDecision(_ context.Context, d PendingDecision) error {
	s.mu.Lock()
	s.decisions = append(s.decisions, d)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) AppendAlert(_ context.Context, a DelayAlert) error {
	s.mu.Lock()
	s.alerts = append(s.alerts, a)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Entries(_ context.Context, q Query) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []Entry
	for _, e := range s.entries {
		if q.Matches(e.TenantID, e.OrderID, e.CreatedAt) {
			res = append(res, e)
		}
	}
	return res, nil
}

func (s *MemoryStore) Decisions(_ context.Context, q Query) ([]PendingDecision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []PendingDecision
	for _, d := range s.decisions {
		if q.Matches(d.TenantID, d.OrderID, d.CreatedAt) {
			res = append(res, d)
		}
	}
	return res, nil
}

func (s *MemoryStore) Alerts(_ context.Context, q Query) ([]DelayAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []DelayAlert
	for _, a := range s.alerts {
		if q.Matches(a.TenantID, a.OrderID, a.CreatedAt) {
			res = append(res, a)
		}
	}
	return res, nil
}

func (s *MemoryStore) Close() error { return nil }
