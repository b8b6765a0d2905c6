// Package maps provides a Google Maps backed distance calculator for ETA
// estimation over real road networks.
package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"

	"github.com/fleetworks/dispatchd/core/collab"
	"github.com/fleetworks/dispatchd/core/geo"
	"github.com/fleetworks/dispatchd/core/model"
)

// RoadDistance resolves site coordinates from a directory and measures
// driving distance via the Directions API. An unroutable pair is reported as
// unknown, not as an error, so the ETA pass simply skips the order.
type RoadDistance struct {
	client *maps.Client
	sites  geo.SiteDirectory
}

func NewRoadDistance(apiKey string, sites geo.SiteDirectory) (*RoadDistance, error) {
	if sites == nil {
		return nil, fmt.Errorf("maps: nil site directory")
	}
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("maps client: %w", err)
	}
	return &RoadDistance{client: client, sites: sites}, nil
}

func (r *RoadDistance) ResolveSiteCoordinates(ctx context.Context, siteID string) (model.Point, bool, error) {
	site, ok, err := r.sites.Site(ctx, siteID)
	if err != nil || !ok {
		return model.Point{}, false, err
	}
	return site.Center, true, nil
}

func (r *RoadDistance) DistanceKm(ctx context.Context, from, to model.Point) (float64, bool, error) {
	routes, _, err := r.client.Directions(ctx, &maps.DirectionsRequest{
		Origin:      fmt.Sprintf("%f,%f", from.Lat, from.Lng),
		Destination: fmt.Sprintf("%f,%f", to.Lat, to.Lng),
		Mode:        maps.TravelModeDriving,
	})
	if err != nil {
		return 0, false, fmt.Errorf("maps directions: %w", err)
	}
	if len(routes) == 0 {
		return 0, false, nil
	}
	meters := 0
	for _, leg := range routes[0].Legs {
		meters += leg.Distance.Meters
	}
	return float64(meters) / 1000, true, nil
}

var _ collab.DistanceCalculator = (*RoadDistance)(nil)
