package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetworks/dispatchd/core/engine"
	"github.com/fleetworks/dispatchd/core/model"
)

const orderColumns = `id, tenant_id, customer_id, status, status_version,
	driver_id, vehicle_id, pickup_site_id, delivery_site_id,
	eta_pickup_at, eta_delivery_at,
	arrived_at_pickup_at, arrived_at_delivery_at, actual_delivery_at,
	reject_reason, manual_dispatch, created_at, updated_at`

// OrderStore implements engine.OrderStore on PostgreSQL. Claims are plain
// token/deadline columns on the order row, so a crashed invocation leaks
// nothing: the lease simply expires.
type OrderStore struct {
	db *pgxpool.Pool
}

func NewOrderStore(db *pgxpool.Pool) *OrderStore {
	return &OrderStore{db: db}
}

func (s *OrderStore) List(ctx context.Context, f engine.OrderFilter) ([]model.Order, error) {
	var b strings.Builder
	b.WriteString("SELECT " + orderColumns + " FROM orders WHERE tenant_id = $1")
	args := []any{f.TenantID}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			statuses[i] = string(st)
		}
		args = append(args, statuses)
		fmt.Fprintf(&b, " AND status = ANY($%d)", len(args))
	}
	// Rows under a live claim belong to another invocation.
	b.WriteString(" AND (claim_until IS NULL OR claim_until <= NOW())")
	if f.WithoutDriver {
		b.WriteString(" AND driver_id IS NULL")
	}
	if f.AssignedOnly {
		b.WriteString(" AND driver_id IS NOT NULL AND vehicle_id IS NOT NULL")
	}
	b.WriteString(" ORDER BY created_at")
	if f.Limit > 0 {
		args = append(args, f.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}

	rows, err := s.db.Query(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// Get loads one order regardless of claim state.
func (s *OrderStore) Get(ctx context.Context, id string) (model.Order, error) {
	rows, err := s.db.Query(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id)
	if err != nil {
		return model.Order{}, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return model.Order{}, err
		}
		return model.Order{}, engine.ErrNotFound
	}
	return scanOrder(rows)
}

// Insert creates a new order row.
func (s *OrderStore) Insert(ctx context.Context, o model.Order) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO orders (
			id, tenant_id, customer_id, status, status_version,
			driver_id, vehicle_id, pickup_site_id, delivery_site_id,
			eta_pickup_at, eta_delivery_at,
			arrived_at_pickup_at, arrived_at_delivery_at, actual_delivery_at,
			reject_reason, manual_dispatch, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		o.ID, o.TenantID, o.CustomerID, string(o.Status), o.StatusVersion,
		o.DriverID, o.VehicleID, o.PickupSiteID, o.DeliverySiteID,
		o.ETAPickupAt, o.ETADeliveryAt,
		o.ArrivedAtPickupAt, o.ArrivedAtDeliveryAt, o.ActualDeliveryAt,
		o.RejectReason, o.ManualDispatch, o.CreatedAt, o.UpdatedAt,
	)
	return err
}

func (s *OrderStore) Claim(ctx context.Context, orderID, token string, until time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE orders
		SET claim_token = $2, claim_until = $3
		WHERE id = $1 AND (claim_until IS NULL OR claim_until <= NOW())`,
		orderID, token, until,
	)
	if err != nil {
		return false, fmt.Errorf("claim order: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *OrderStore) Release(ctx context.Context, orderID, token string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE orders
		SET claim_token = NULL, claim_until = NULL
		WHERE id = $1 AND claim_token = $2`,
		orderID, token,
	)
	if err != nil {
		return fmt.Errorf("release order: %w", err)
	}
	return nil
}

func (s *OrderStore) Update(ctx context.Context, o *model.Order) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE orders
		SET status = $2,
			status_version = status_version + 1,
			driver_id = $3,
			vehicle_id = $4,
			eta_pickup_at = $5,
			eta_delivery_at = $6,
			arrived_at_pickup_at = $7,
			arrived_at_delivery_at = $8,
			actual_delivery_at = $9,
			reject_reason = $10,
			manual_dispatch = $11,
			updated_at = NOW()
		WHERE id = $1 AND status_version = $12`,
		o.ID, string(o.Status),
		o.DriverID, o.VehicleID,
		o.ETAPickupAt, o.ETADeliveryAt,
		o.ArrivedAtPickupAt, o.ArrivedAtDeliveryAt, o.ActualDeliveryAt,
		o.RejectReason, o.ManualDispatch,
		o.StatusVersion,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return engine.ErrStaleOrder
	}
	o.StatusVersion++
	return nil
}

func scanOrder(rows pgx.Rows) (model.Order, error) {
	var o model.Order
	var driverID, vehicleID, rejectReason sql.NullString
	var etaPickup, etaDelivery, arrPickup, arrDelivery, actualDelivery sql.NullTime
	var status string
	err := rows.Scan(
		&o.ID, &o.TenantID, &o.CustomerID, &status, &o.StatusVersion,
		&driverID, &vehicleID, &o.PickupSiteID, &o.DeliverySiteID,
		&etaPickup, &etaDelivery,
		&arrPickup, &arrDelivery, &actualDelivery,
		&rejectReason, &o.ManualDispatch, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return model.Order{}, err
	}
	o.Status = model.OrderStatus(status)
	if driverID.Valid {
		o.DriverID = &driverID.String
	}
	if vehicleID.Valid {
		o.VehicleID = &vehicleID.String
	}
	if rejectReason.Valid {
		o.RejectReason = &rejectReason.String
	}
	o.ETAPickupAt = timePtr(etaPickup)
	o.ETADeliveryAt = timePtr(etaDelivery)
	o.ArrivedAtPickupAt = timePtr(arrPickup)
	o.ArrivedAtDeliveryAt = timePtr(arrDelivery)
	o.ActualDeliveryAt = timePtr(actualDelivery)
	return o, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

var _ engine.OrderStore = (*OrderStore)(nil)
