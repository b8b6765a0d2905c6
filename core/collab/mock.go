package collab

import (
	"context"

	"github.com/fleetworks/dispatchd/core/model"
)

// MockValidator returns configured outcomes per order ID, or a default.
type MockValidator struct {
	Outcomes map[string]ValidationOutcome
	Default  ValidationOutcome
	Err      error
}

func (m MockValidator) Evaluate(_ context.Context, o model.Order) (ValidationOutcome, error) {
	if m.Err != nil {
		return ValidationOutcome{}, m.Err
	}
	if out, ok := m.Outcomes[o.ID]; ok {
		return out, nil
	}
	return m.Default, nil
}

// MockScorer returns configured candidate lists per order ID.
type MockScorer struct {
	Candidates map[string][]ScoredCandidate
	Err        error
}

func (m MockScorer) Rank(_ context.Context, o model.Order, max int) ([]ScoredCandidate, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	cs := m.Candidates[o.ID]
	if len(cs) > max {
		cs = cs[:max]
	}
	cp := make([]ScoredCandidate, len(cs))
	copy(cp, cs)
	return cp, nil
}

// MockGeofencer answers containment from a static site set.
type MockGeofencer struct {
	Inside map[string]bool
	Err    error
}

func (m MockGeofencer) IsInsideSite(_ context.Context, _ model.Point, siteID string) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	return m.Inside[siteID], nil
}

// MockDistance resolves sites from a static map and returns fixed distances.
type MockDistance struct {
	Sites map[string]model.Point
	// Km is returned for every distance query; KmKnown false simulates an
	// unresolvable route.
	Km      float64
	KmKnown bool
	Err     error
}

func (m MockDistance) ResolveSiteCoordinates(_ context.Context, siteID string) (model.Point, bool, error) {
	if m.Err != nil {
		return model.Point{}, false, m.Err
	}
	p, ok := m.Sites[siteID]
	return p, ok, nil
}

func (m MockDistance) DistanceKm(_ context.Context, _, _ model.Point) (float64, bool, error) {
	if m.Err != nil {
		return 0, false, m.Err
	}
	return m.Km, m.KmKnown, nil
}

// PendingValidator never auto-accepts and reports mid-band confidence, so the
// acceptance pass leaves every order untouched. It is the safe default when
// no real validator is wired in.
type PendingValidator struct{}

func (PendingValidator) Evaluate(context.Context, model.Order) (ValidationOutcome, error) {
	return ValidationOutcome{ShouldAccept: false, Confidence: 50, Reason: "no validator configured"}, nil
}

// PendingScorer returns no candidates, leaving every order pending.
type PendingScorer struct{}

func (PendingScorer) Rank(context.Context, model.Order, int) ([]ScoredCandidate, error) {
	return nil, nil
}
