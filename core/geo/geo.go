// Package geo provides great-circle distance math and a circular-geofence
// service over a site directory. Polygon geofencing stays with the external
// geofencing collaborator; the circle containment here is the built-in
// fallback that makes the engine runnable end to end.
package geo

import (
	"context"
	"fmt"
	"math"

	"github.com/fleetworks/dispatchd/core/model"
)

const earthRadiusKm = 6371.0

// DefaultGeofenceRadiusM is used for sites that do not configure a radius.
const DefaultGeofenceRadiusM = 250.0

// HaversineKm returns the great-circle distance in kilometres between two
// points specified in decimal degrees.
func HaversineKm(a, b model.Point) float64 {
	dLat := degreesToRadians(b.Lat - a.Lat)
	dLng := degreesToRadians(b.Lng - a.Lng)

	rLat1 := degreesToRadians(a.Lat)
	rLat2 := degreesToRadians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// Site is a named location with a circular geofence.
type Site struct {
	ID      string
	Center  model.Point
	RadiusM float64
}

// SiteDirectory resolves site references to their geometry.
type SiteDirectory interface {
	Site(ctx context.Context, id string) (Site, bool, error)
}

// StaticSites is a SiteDirectory backed by a map, typically loaded from
// configuration.
type StaticSites map[string]Site

func (s StaticSites) Site(_ context.Context, id string) (Site, bool, error) {
	site, ok := s[id]
	return site, ok, nil
}

// Service implements the geofencing and distance collaborator contracts with
// haversine math over a site directory.
type Service struct {
	sites SiteDirectory
}

func NewService(sites SiteDirectory) (*Service, error) {
	if sites == nil {
		return nil, fmt.Errorf("geo: nil site directory")
	}
	return &Service{sites: sites}, nil
}

// IsInsideSite reports whether p falls within the site's circular geofence.
func (s *Service) IsInsideSite(ctx context.Context, p model.Point, siteID string) (bool, error) {
	site, ok, err := s.sites.Site(ctx, siteID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, fmt.Errorf("geo: unknown site %s", siteID)
	}
	radius := site.RadiusM
	if radius <= 0 {
		radius = DefaultGeofenceRadiusM
	}
	return HaversineKm(p, site.Center)*1000 <= radius, nil
}

// ResolveSiteCoordinates returns the site's center, or ok=false when the
// site is not in the directory.
func (s *Service) ResolveSiteCoordinates(ctx context.Context, siteID string) (model.Point, bool, error) {
	site, ok, err := s.sites.Site(ctx, siteID)
	if err != nil || !ok {
		return model.Point{}, false, err
	}
	return site.Center, true, nil
}

// DistanceKm returns the great-circle distance between a and b.
func (s *Service) DistanceKm(_ context.Context, a, b model.Point) (float64, bool, error) {
	if !a.Valid() || !b.Valid() {
		return 0, false, nil
	}
	return HaversineKm(a, b), true, nil
}
