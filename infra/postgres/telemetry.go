package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetworks/dispatchd/core/engine"
	"github.com/fleetworks/dispatchd/core/model"
)

// TelemetryStore keeps one latest-position row per vehicle. It backs
// deployments without Redis.
type TelemetryStore struct {
	db *pgxpool.Pool
}

func NewTelemetryStore(db *pgxpool.Pool) *TelemetryStore {
	return &TelemetryStore{db: db}
}

// Record upserts the latest sample for the vehicle.
func (s *TelemetryStore) Record(ctx context.Context, sample model.TelemetrySample) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO vehicle_positions (vehicle_id, lat, lng, recorded_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (vehicle_id) DO UPDATE
		SET lat = EXCLUDED.lat, lng = EXCLUDED.lng, recorded_at = EXCLUDED.recorded_at`,
		sample.VehicleID, sample.Position.Lat, sample.Position.Lng, sample.RecordedAt,
	)
	return err
}

func (s *TelemetryStore) Latest(ctx context.Context, vehicleID string) (model.TelemetrySample, error) {
	var sample model.TelemetrySample
	sample.VehicleID = vehicleID
	err := s.db.QueryRow(ctx, `
		SELECT lat, lng, recorded_at FROM vehicle_positions WHERE vehicle_id = $1`,
		vehicleID,
	).Scan(&sample.Position.Lat, &sample.Position.Lng, &sample.RecordedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.TelemetrySample{}, engine.ErrNoSample
	}
	if err != nil {
		return model.TelemetrySample{}, err
	}
	return sample, nil
}

var _ engine.TelemetryReader = (*TelemetryStore)(nil)
