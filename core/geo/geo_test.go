package geo

import (
	"context"
	"math"
	"testing"

	"github.com/fleetworks/dispatchd/core/model"
)

func TestHaversineKm_KnownDistances(t *testing.T) {
	tests := []struct {
		name      string
		a, b      model.Point
		wantKm    float64
		tolerance float64
	}{
		{
			name:      "same point",
			a:         model.Point{Lat: 48.8566, Lng: 2.3522},
			b:         model.Point{Lat: 48.8566, Lng: 2.3522},
			wantKm:    0,
			tolerance: 0.001,
		},
		{
			name:      "Paris to Lyon (~392km)",
			a:         model.Point{Lat: 48.8566, Lng: 2.3522},
			b:         model.Point{Lat: 45.7640, Lng: 4.8357},
			wantKm:    392,
			tolerance: 10,
		},
		{
			name:      "New York to Los Angeles (~3944km)",
			a:         model.Point{Lat: 40.7128, Lng: -74.0060},
			b:         model.Point{Lat: 34.0522, Lng: -118.2437},
			wantKm:    3944,
			tolerance: 50,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HaversineKm(tt.a, tt.b)
			if math.Abs(got-tt.wantKm) > tt.tolerance {
				t.Errorf("HaversineKm() = %f, want %f (±%f)", got, tt.wantKm, tt.tolerance)
			}
		})
	}
}

func TestHaversineKm_Symmetry(t *testing.T) {
	a := model.Point{Lat: 25.0, Lng: 121.0}
	b := model.Point{Lat: 26.0, Lng: 122.0}
	if d1, d2 := HaversineKm(a, b), HaversineKm(b, a); math.Abs(d1-d2) > 0.0001 {
		t.Errorf("haversine is not symmetric: %f vs %f", d1, d2)
	}
}

func testService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(StaticSites{
		"dock-1": {ID: "dock-1", Center: model.Point{Lat: 48.8566, Lng: 2.3522}, RadiusM: 300},
		"dock-2": {ID: "dock-2", Center: model.Point{Lat: 45.7640, Lng: 4.8357}},
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestServiceIsInsideSite(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	inside, err := svc.IsInsideSite(ctx, model.Point{Lat: 48.8567, Lng: 2.3530}, "dock-1")
	if err != nil {
		t.Fatalf("IsInsideSite: %v", err)
	}
	if !inside {
		t.Error("point ~60m from center should be inside a 300m fence")
	}

	inside, err = svc.IsInsideSite(ctx, model.Point{Lat: 48.87, Lng: 2.37}, "dock-1")
	if err != nil {
		t.Fatalf("IsInsideSite: %v", err)
	}
	if inside {
		t.Error("point ~2km away should be outside")
	}

	if _, err := svc.IsInsideSite(ctx, model.Point{Lat: 1, Lng: 1}, "nope"); err == nil {
		t.Error("unknown site should error")
	}
}

func TestServiceDefaultRadius(t *testing.T) {
	svc := testService(t)
	// dock-2 has no radius configured and falls back to the default.
	inside, err := svc.IsInsideSite(context.Background(), model.Point{Lat: 45.7641, Lng: 4.8358}, "dock-2")
	if err != nil {
		t.Fatalf("IsInsideSite: %v", err)
	}
	if !inside {
		t.Error("point next to center should be inside the default fence")
	}
}

func TestServiceResolveAndDistance(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	pt, ok, err := svc.ResolveSiteCoordinates(ctx, "dock-1")
	if err != nil || !ok {
		t.Fatalf("expected dock-1 to resolve, ok=%v err=%v", ok, err)
	}
	if pt.Lat != 48.8566 {
		t.Errorf("unexpected center: %v", pt)
	}
	if _, ok, err := svc.ResolveSiteCoordinates(ctx, "missing"); err != nil || ok {
		t.Errorf("missing site should resolve to ok=false, got ok=%v err=%v", ok, err)
	}

	km, ok, err := svc.DistanceKm(ctx, model.Point{Lat: 48.8566, Lng: 2.3522}, model.Point{Lat: 45.7640, Lng: 4.8357})
	if err != nil || !ok {
		t.Fatalf("DistanceKm: ok=%v err=%v", ok, err)
	}
	if math.Abs(km-392) > 10 {
		t.Errorf("Paris-Lyon distance = %f, want ~392", km)
	}

	if _, ok, _ := svc.DistanceKm(ctx, model.Point{}, model.Point{Lat: 1, Lng: 1}); ok {
		t.Error("invalid origin should not resolve a distance")
	}
}
