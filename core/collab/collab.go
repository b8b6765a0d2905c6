// Package collab defines the contracts of the decision collaborators the
// engine consumes. Their internals (validation rules, scoring weights,
// geofence geometry, routing) live outside this module; the engine only
// depends on these narrow interfaces.
package collab

import (
	"context"

	"github.com/fleetworks/dispatchd/core/model"
)

// ValidationOutcome is the tri-state answer of the order validator.
type ValidationOutcome struct {
	ShouldAccept bool
	// Confidence is the validator's certainty in its recommendation,
	// between 0 and 100.
	Confidence float64
	Reason     string
}

// OrderValidator decides whether a freshly created order should be accepted.
type OrderValidator interface {
	Evaluate(ctx context.Context, o model.Order) (ValidationOutcome, error)
}

// ScoredCandidate is one driver/vehicle pairing proposed by the scorer.
type ScoredCandidate struct {
	DriverID   string
	VehicleID  string
	DriverName string
	// TotalScore is between 0 and 100, higher is better.
	TotalScore float64
}

// DriverScorer ranks available driver/vehicle pairings for an order. The
// returned slice is ordered best first and holds at most max entries.
type DriverScorer interface {
	Rank(ctx context.Context, o model.Order, max int) ([]ScoredCandidate, error)
}

// Geofencer answers point-in-geofence containment for a site.
type Geofencer interface {
	IsInsideSite(ctx context.Context, p model.Point, siteID string) (bool, error)
}

// DistanceCalculator resolves site coordinates and distances between points.
// The boolean return distinguishes "could not resolve" from a hard failure.
type DistanceCalculator interface {
	ResolveSiteCoordinates(ctx context.Context, siteID string) (model.Point, bool, error)
	DistanceKm(ctx context.Context, a, b model.Point) (float64, bool, error)
}
