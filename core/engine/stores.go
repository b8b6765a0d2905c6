package engine

import (
	"context"
	"errors"
	"time"

	"github.com/fleetworks/dispatchd/core/model"
)

var (
	// ErrNotFound is returned when an order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrStaleOrder is returned by Update when the optimistic version check
	// fails, meaning another writer got there first.
	ErrStaleOrder = errors.New("order version conflict")
	// ErrNoSample is returned when a vehicle has no telemetry yet.
	ErrNoSample = errors.New("no telemetry sample")
)

// OrderFilter selects the candidate rows for one stage invocation.
type OrderFilter struct {
	TenantID string
	Statuses []model.OrderStatus
	// WithoutDriver restricts to orders with no driver assigned.
	WithoutDriver bool
	// AssignedOnly restricts to orders carrying both driver and vehicle.
	AssignedOnly bool
	Limit        int
}

// OrderStore is the persistence contract the engine drives. List must not
// return rows under a live claim, Claim must be atomic (one winner under
// concurrent invocations), and Update must fail with ErrStaleOrder when the
// row changed since it was read.
type OrderStore interface {
	List(ctx context.Context, f OrderFilter) ([]model.Order, error)
	// Claim leases the row for this invocation until the given deadline.
	// It returns false when another invocation holds a live claim.
	Claim(ctx context.Context, orderID, token string, until time.Time) (bool, error)
	// Release drops the claim if it is still held under the given token.
	Release(ctx context.Context, orderID, token string) error
	// Update writes the order back, comparing o.StatusVersion against the
	// stored row. On success the version is incremented in place.
	Update(ctx context.Context, o *model.Order) error
}

// TelemetryReader yields the single most recent position sample per vehicle.
type TelemetryReader interface {
	Latest(ctx context.Context, vehicleID string) (model.TelemetrySample, error)
}

// CustomerSettings resolves per-customer dispatch preferences. A zero or
// negative threshold means "not configured" and the engine default applies.
type CustomerSettings interface {
	DelayThresholdMinutes(ctx context.Context, tenantID, customerID string) (int, error)
}
