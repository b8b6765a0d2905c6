// Package telemetry provides the Redis-backed latest-position reader used in
// production, where an ingestion pipeline outside this module keeps one hash
// per vehicle up to date.
package telemetry

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fleetworks/dispatchd/core/engine"
	"github.com/fleetworks/dispatchd/core/model"
)

const keyPrefix = "vehicle:pos:"

// RedisReader reads the latest telemetry sample per vehicle from a Redis
// hash with lat, lng and recorded_at fields.
type RedisReader struct {
	client *redis.Client
}

func NewRedisReader(client *redis.Client) *RedisReader {
	return &RedisReader{client: client}
}

func (r *RedisReader) Latest(ctx context.Context, vehicleID string) (model.TelemetrySample, error) {
	fields, err := r.client.HGetAll(ctx, keyPrefix+vehicleID).Result()
	if err != nil {
		return model.TelemetrySample{}, fmt.Errorf("redis telemetry: %w", err)
	}
	if len(fields) == 0 {
		return model.TelemetrySample{}, engine.ErrNoSample
	}
	sample := model.TelemetrySample{VehicleID: vehicleID}
	if sample.Position.Lat, err = strconv.ParseFloat(fields["lat"], 64); err != nil {
		return model.TelemetrySample{}, fmt.Errorf("redis telemetry: lat: %w", err)
	}
	if sample.Position.Lng, err = strconv.ParseFloat(fields["lng"], 64); err != nil {
		return model.TelemetrySample{}, fmt.Errorf("redis telemetry: lng: %w", err)
	}
	if ts := fields["recorded_at"]; ts != "" {
		sample.RecordedAt, err = time.Parse(time.RFC3339, ts)
		if err != nil {
			return model.TelemetrySample{}, fmt.Errorf("redis telemetry: recorded_at: %w", err)
		}
	}
	return sample, nil
}

// Record writes a sample; used by ingestion tooling and tests.
func (r *RedisReader) Record(ctx context.Context, s model.TelemetrySample) error {
	return r.client.HSet(ctx, keyPrefix+s.VehicleID, map[string]any{
		"lat":         strconv.FormatFloat(s.Position.Lat, 'f', -1, 64),
		"lng":         strconv.FormatFloat(s.Position.Lng, 'f', -1, 64),
		"recorded_at": s.RecordedAt.Format(time.RFC3339),
	}).Err()
}

var _ engine.TelemetryReader = (*RedisReader)(nil)
