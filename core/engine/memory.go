package engine

import (
	"context"
	"sync"
	"time"

	"github.com/fleetworks/dispatchd/core/model"
)

// MemoryOrderStore is an OrderStore held in memory, used by tests and
// single-process bootstrap deployments.
type MemoryOrderStore struct {
	mu     sync.RWMutex
	orders map[string]*memoryOrder
	nowFn  func() time.Time
}

type memoryOrder struct {
	order      model.Order
	claimToken string
	claimUntil time.Time
}

func NewMemoryOrderStore() *MemoryOrderStore {
	return &MemoryOrderStore{orders: make(map[string]*memoryOrder), nowFn: time.Now}
}

// SetClock overrides the clock used for claim expiry, for tests.
func (s *MemoryOrderStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.nowFn = now
	s.mu.Unlock()
}

// Put inserts or replaces an order.
func (s *MemoryOrderStore) Put(o model.Order) {
	s.mu.Lock()
	s.orders[o.ID] = &memoryOrder{order: o}
	s.mu.Unlock()
}

// Get returns a copy of the stored order.
func (s *MemoryOrderStore) Get(id string) (model.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.orders[id]
	if !ok {
		return model.Order{}, false
	}
	return m.order, true
}

func matchesFilter(o model.Order, f OrderFilter) bool {
	if f.TenantID != "" && o.TenantID != f.TenantID {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, st := range f.Statuses {
			if o.Status == st {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.WithoutDriver && o.DriverID != nil && *o.DriverID != "" {
		return false
	}
	if f.AssignedOnly && !o.Assigned() {
		return false
	}
	return true
}

func (s *MemoryOrderStore) List(_ context.Context, f OrderFilter) ([]model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.nowFn()
	var res []model.Order
	for _, m := range s.orders {
		if m.claimToken != "" && m.claimUntil.After(now) {
			continue
		}
		if !matchesFilter(m.order, f) {
			continue
		}
		res = append(res, m.order)
		if f.Limit > 0 && len(res) >= f.Limit {
			break
		}
	}
	return res, nil
}

func (s *MemoryOrderStore) Claim(_ context.Context, orderID, token string, until time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.orders[orderID]
	if !ok {
		return false, ErrNotFound
	}
	if m.claimToken != "" && m.claimUntil.After(s.nowFn()) {
		return false, nil
	}
	m.claimToken = token
	m.claimUntil = until
	return true, nil
}

func (s *MemoryOrderStore) Release(_ context.Context, orderID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.orders[orderID]
	if !ok {
		return ErrNotFound
	}
	if m.claimToken == token {
		m.claimToken = ""
		m.claimUntil = time.Time{}
	}
	return nil
}

func (s *MemoryOrderStore) Update(_ context.Context, o *model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.orders[o.ID]
	if !ok {
		return ErrNotFound
	}
	if m.order.StatusVersion != o.StatusVersion {
		return ErrStaleOrder
	}
	o.StatusVersion++
	o.UpdatedAt = s.nowFn()
	m.order = *o
	return nil
}

// MemoryTelemetry keeps the latest sample per vehicle in memory.
type MemoryTelemetry struct {
	mu      sync.RWMutex
	samples map[string]model.TelemetrySample
}

func NewMemoryTelemetry() *MemoryTelemetry {
	return &MemoryTelemetry{samples: make(map[string]model.TelemetrySample)}
}

// Record stores the sample as the vehicle's most recent position.
func (t *MemoryTelemetry) Record(s model.TelemetrySample) {
	t.mu.Lock()
	t.samples[s.VehicleID] = s
	t.mu.Unlock()
}

func (t *MemoryTelemetry) Latest(_ context.Context, vehicleID string) (model.TelemetrySample, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.samples[vehicleID]
	if !ok {
		return model.TelemetrySample{}, ErrNoSample
	}
	return s, nil
}

// StaticCustomerSettings resolves delay thresholds from a fixed map keyed by
// customer ID.
type StaticCustomerSettings map[string]int

func (s StaticCustomerSettings) DelayThresholdMinutes(_ context.Context, _, customerID string) (int, error) {
	return s[customerID], nil
}
