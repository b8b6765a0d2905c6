package model

import "time"

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64
	Lng float64
}

// Valid reports whether the point carries plausible coordinates. A zero
// value (0,0) is treated as missing, matching how trackers report "no fix".
func (p Point) Valid() bool {
	if p.Lat == 0 && p.Lng == 0 {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// TelemetrySample is one position report from a vehicle tracker. The stream
// is produced by an external tracking collaborator; the engine only ever
// reads the most recent sample per vehicle.
type TelemetrySample struct {
	VehicleID  string
	Position   Point
	RecordedAt time.Time
}
