// Package audit holds the append-only records the engine produces: dispatch
// log entries for automated actions, pending decisions awaiting human
// approval, and delay alerts.
package audit

import "time"

// EntryType tags a dispatch log entry.
type EntryType string

const (
	// EntryAutomatedDecision records an action the engine took on its own.
	EntryAutomatedDecision EntryType = "automated_decision"
	// EntryError records a per-order failure for observability.
	EntryError EntryType = "engine_error"
)

// Entry is one dispatch log record. Entries are written exactly once per
// automated action and never mutated.
type Entry struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	Type        EntryType `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	OrderID     string    `json:"order_id,omitempty"`
	DriverID    string    `json:"driver_id,omitempty"`
	VehicleID   string    `json:"vehicle_id,omitempty"`
	Automated   bool      `json:"automated"`
	// Confidence is the collaborator score backing the action, 0-100.
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
}

// DecisionKind distinguishes what a pending decision proposes.
type DecisionKind string

const (
	DecisionAccept DecisionKind = "accept"
	DecisionAssign DecisionKind = "assign"
)

// PendingDecision is an automated recommendation that fell below the
// auto-action threshold and waits for human approval. The approval workflow
// itself lives outside this module; the engine only creates these in status
// "pending".
type PendingDecision struct {
	ID                string       `json:"id"`
	TenantID          string       `json:"tenant_id"`
	Kind              DecisionKind `json:"kind"`
	OrderID           string       `json:"order_id"`
	ProposedDriverID  string       `json:"proposed_driver_id,omitempty"`
	ProposedVehicleID string       `json:"proposed_vehicle_id,omitempty"`
	Title             string       `json:"title"`
	Description       string       `json:"description"`
	Confidence        float64      `json:"confidence"`
	Status            string       `json:"status"`
	CreatedAt         time.Time    `json:"created_at"`
}

// DecisionStatusPending is the only status the engine ever writes.
const DecisionStatusPending = "pending"

// AlertSeverity grades a delay alert.
type AlertSeverity string

const (
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// DelayAlert is raised when a recomputed ETA drifts past the customer's
// threshold. One alert is created per recalculation pass that still exceeds
// the threshold; de-duplication is left to consumers.
type DelayAlert struct {
	ID           string        `json:"id"`
	TenantID     string        `json:"tenant_id"`
	Type         string        `json:"type"`
	Severity     AlertSeverity `json:"severity"`
	OrderID      string        `json:"order_id"`
	DriverID     string        `json:"driver_id,omitempty"`
	VehicleID    string        `json:"vehicle_id,omitempty"`
	Title        string        `json:"title"`
	Message      string        `json:"message"`
	Automated    bool          `json:"automated"`
	DelayMinutes float64       `json:"delay_minutes"`
	CreatedAt    time.Time     `json:"created_at"`
}

// AlertTypeDelay is the alert type produced by the ETA pass.
const AlertTypeDelay = "delay"
