package audit

import (
	"context"
	"time"
)

// Query filters records on retrieval. Zero-valued fields match everything.
type Query struct {
	TenantID string
	OrderID  string
	Start    time.Time
	End      time.Time
}

// Matches reports whether a record's identifying fields satisfy the query.
func (q Query) Matches(tenantID, orderID string, createdAt time.Time) bool {
	if q.TenantID != "" && tenantID != q.TenantID {
		return false
	}
	if q.OrderID != "" && orderID != q.OrderID {
		return false
	}
	if !q.Start.IsZero() && createdAt.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && createdAt.After(q.End) {
		return false
	}
	return true
}

// Store persists audit records and supports querying. All three families are
// append-only: nothing the engine writes is ever updated or deleted.
type Store interface {
	AppendEntry(ctx context.Context, e Entry) error
	AppendDecision(ctx context.Context, d PendingDecision) error
	AppendAlert(ctx context.Context, a DelayAlert) error

	Entries(ctx context.Context, q Query) ([]Entry, error)
	Decisions(ctx context.Context, q Query) ([]PendingDecision, error)
	Alerts(ctx context.Context, q Query) ([]DelayAlert, error)

	Close() error
}
