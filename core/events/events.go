// Package events defines the domain events the engine publishes on the
// internal event bus. Subscribers (chat bridges, a pending-approval UI,
// escalation hooks) consume them without coupling to the engine.
package events

import "time"

// OrderAccepted is published when the acceptance pass auto-accepts an order.
type OrderAccepted struct {
	TenantID   string
	OrderID    string
	Confidence float64
	Reason     string
}

// OrderRejected is published when the acceptance pass auto-rejects an order.
type OrderRejected struct {
	TenantID   string
	OrderID    string
	Confidence float64
	Reason     string
}

// OrderAssigned is published when the assignment pass binds a driver and
// vehicle to an order.
type OrderAssigned struct {
	TenantID  string
	OrderID   string
	DriverID  string
	VehicleID string
	Score     float64
}

// DecisionQueued is published when a recommendation falls below the
// auto-action threshold and is handed to human approval.
type DecisionQueued struct {
	TenantID   string
	OrderID    string
	Kind       string
	Confidence float64
}

// ArrivalDetected is published when telemetry places a vehicle inside a
// pickup or delivery geofence for the first time.
type ArrivalDetected struct {
	TenantID  string
	OrderID   string
	VehicleID string
	SiteID    string
	// Leg is "pickup" or "delivery".
	Leg        string
	DetectedAt time.Time
}

// OrderDelivered is published when the dwell guard confirms a delivery
// arrival and the order is promoted to DELIVERED.
type OrderDelivered struct {
	TenantID    string
	OrderID     string
	DeliveredAt time.Time
}

// DelayAlertRaised is published alongside every delay alert record.
type DelayAlertRaised struct {
	TenantID     string
	OrderID      string
	Severity     string
	DelayMinutes float64
}
