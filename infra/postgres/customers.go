package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetworks/dispatchd/core/engine"
)

// CustomerStore resolves per-customer dispatch settings. A missing row means
// "not configured" and reports a zero threshold.
type CustomerStore struct {
	db *pgxpool.Pool
}

func NewCustomerStore(db *pgxpool.Pool) *CustomerStore {
	return &CustomerStore{db: db}
}

func (s *CustomerStore) DelayThresholdMinutes(ctx context.Context, tenantID, customerID string) (int, error) {
	var minutes int
	err := s.db.QueryRow(ctx, `
		SELECT delay_threshold_minutes FROM customer_settings
		WHERE tenant_id = $1 AND customer_id = $2`,
		tenantID, customerID,
	).Scan(&minutes)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return minutes, nil
}

var _ engine.CustomerSettings = (*CustomerStore)(nil)
