package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleetworks/dispatchd/core/audit"
)

// AuditStore implements audit.Store on PostgreSQL. Records are append-only;
// nothing here updates or deletes.
type AuditStore struct {
	db *pgxpool.Pool
}

func NewAuditStore(db *pgxpool.Pool) *AuditStore {
	return &AuditStore{db: db}
}

func (s *AuditStore) AppendEntry(ctx context.Context, e audit.Entry) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO dispatch_log (
			id, tenant_id, type, title, description,
			order_id, driver_id, vehicle_id, automated, confidence, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		e.ID, e.TenantID, string(e.Type), e.Title, e.Description,
		nullable(e.OrderID), nullable(e.DriverID), nullable(e.VehicleID),
		e.Automated, e.Confidence, e.CreatedAt,
	)
	return err
}

func (s *AuditStore) AppendDecision(ctx context.Context, d audit.PendingDecision) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO pending_decisions (
			id, tenant_id, kind, order_id, proposed_driver_id,
			proposed_vehicle_id, title, description, confidence, status, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		d.ID, d.TenantID, string(d.Kind), d.OrderID, nullable(d.ProposedDriverID),
		nullable(d.ProposedVehicleID), d.Title, d.Description, d.Confidence, d.Status, d.CreatedAt,
	)
	return err
}

func (s *AuditStore) AppendAlert(ctx context.Context, a audit.DelayAlert) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO delay_alerts (
			id, tenant_id, type, severity, order_id, driver_id, vehicle_id,
			title, message, automated, delay_minutes, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		a.ID, a.TenantID, a.Type, string(a.Severity), a.OrderID,
		nullable(a.DriverID), nullable(a.VehicleID),
		a.Title, a.Message, a.Automated, a.DelayMinutes, a.CreatedAt,
	)
	return err
}

func (s *AuditStore) Entries(ctx context.Context, q audit.Query) ([]audit.Entry, error) {
	where, args := buildWhere(q)
	rows, err := s.db.Query(ctx, `
		SELECT id, tenant_id, type, title, description,
			order_id, driver_id, vehicle_id, automated, confidence, created_at
		FROM dispatch_log`+where+" ORDER BY created_at", args...)
	if err != nil {
		return nil, fmt.Errorf("query dispatch log: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var e audit.Entry
		var typ string
		var orderID, driverID, vehicleID *string
		if err := rows.Scan(&e.ID, &e.TenantID, &typ, &e.Title, &e.Description,
			&orderID, &driverID, &vehicleID, &e.Automated, &e.Confidence, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Type = audit.EntryType(typ)
		e.OrderID = deref(orderID)
		e.DriverID = deref(driverID)
		e.VehicleID = deref(vehicleID)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *AuditStore) Decisions(ctx context.Context, q audit.Query) ([]audit.PendingDecision, error) {
	where, args := buildWhere(q)
	rows, err := s.db.Query(ctx, `
		SELECT id, tenant_id, kind, order_id, proposed_driver_id,
			proposed_vehicle_id, title, description, confidence, status, created_at
		FROM pending_decisions`+where+" ORDER BY created_at", args...)
	if err != nil {
		return nil, fmt.Errorf("query pending decisions: %w", err)
	}
	defer rows.Close()

	var decisions []audit.PendingDecision
	for rows.Next() {
		var d audit.PendingDecision
		var kind string
		var driverID, vehicleID *string
		if err := rows.Scan(&d.ID, &d.TenantID, &kind, &d.OrderID, &driverID,
			&vehicleID, &d.Title, &d.Description, &d.Confidence, &d.Status, &d.CreatedAt); err != nil {
			return nil, err
		}
		d.Kind = audit.DecisionKind(kind)
		d.ProposedDriverID = deref(driverID)
		d.ProposedVehicleID = deref(vehicleID)
		decisions = append(decisions, d)
	}
	return decisions, rows.Err()
}

func (s *AuditStore) Alerts(ctx context.Context, q audit.Query) ([]audit.DelayAlert, error) {
	where, args := buildWhere(q)
	rows, err := s.db.Query(ctx, `
		SELECT id, tenant_id, type, severity, order_id, driver_id, vehicle_id,
			title, message, automated, delay_minutes, created_at
		FROM delay_alerts`+where+" ORDER BY created_at", args...)
	if err != nil {
		return nil, fmt.Errorf("query delay alerts: %w", err)
	}
	defer rows.Close()

	var alerts []audit.DelayAlert
	for rows.Next() {
		var a audit.DelayAlert
		var sev string
		var driverID, vehicleID *string
		if err := rows.Scan(&a.ID, &a.TenantID, &a.Type, &sev, &a.OrderID, &driverID, &vehicleID,
			&a.Title, &a.Message, &a.Automated, &a.DelayMinutes, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Severity = audit.AlertSeverity(sev)
		a.DriverID = deref(driverID)
		a.VehicleID = deref(vehicleID)
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func (s *AuditStore) Close() error { return nil }

// buildWhere translates an audit.Query into a WHERE clause. All tables share
// the tenant_id, order_id and created_at column names.
func buildWhere(q audit.Query) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if q.TenantID != "" {
		add("tenant_id = $%d", q.TenantID)
	}
	if q.OrderID != "" {
		add("order_id = $%d", q.OrderID)
	}
	if !q.Start.IsZero() {
		add("created_at >= $%d", q.Start)
	}
	if !q.End.IsZero() {
		add("created_at <= $%d", q.End)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var _ audit.Store = (*AuditStore)(nil)
