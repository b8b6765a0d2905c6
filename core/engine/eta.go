package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fleetworks/dispatchd/core/audit"
	"github.com/fleetworks/dispatchd/core/events"
	"github.com/fleetworks/dispatchd/core/model"
)

// RunETARecalc recomputes the remaining-distance ETA for up to limit active
// orders and raises a delay alert when the drift past the scheduled time
// exceeds the customer's threshold. ASSIGNED orders are measured against the
// pickup leg, IN_TRANSIT orders against the delivery leg.
func (e *Engine) RunETARecalc(ctx context.Context, tenantID string, limit int) (ETAResult, error) {
	var res ETAResult
	started := e.now()
	orders, err := e.orders.List(ctx, OrderFilter{
		TenantID:     tenantID,
		Statuses:     []model.OrderStatus{model.StatusAssigned, model.StatusInTransit},
		AssignedOnly: true,
		Limit:        limit,
	})
	if err != nil {
		return res, fmt.Errorf("eta: list orders: %w", err)
	}
	for i := range orders {
		if ctx.Err() != nil {
			break
		}
		o := orders[i]
		token, ok := e.claimOrder(ctx, o.ID)
		if !ok {
			continue
		}
		e.recalcOne(ctx, &o, &res)
		e.releaseOrder(ctx, o.ID, token)
	}
	e.observeStage(stageETA, tenantID, started, res.outcomes())
	return res, nil
}

func (e *Engine) recalcOne(ctx context.Context, o *model.Order, res *ETAResult) {
	res.Processed++
	sample, err := e.telemetry.Latest(ctx, *o.VehicleID)
	if errors.Is(err, ErrNoSample) {
		return
	}
	if err != nil {
		res.Errors++
		e.recordFailure(ctx, stageETA, o.TenantID, o.ID, err)
		return
	}
	if !sample.Position.Valid() {
		return
	}

	// The current leg decides both the target site and which scheduled ETA
	// the drift is measured against.
	var siteID string
	var scheduled *time.Time
	if o.Status == model.StatusAssigned {
		siteID, scheduled = o.PickupSiteID, o.ETAPickupAt
	} else {
		siteID, scheduled = o.DeliverySiteID, o.ETADeliveryAt
	}

	target, ok, err := e.distance.ResolveSiteCoordinates(ctx, siteID)
	if err != nil {
		res.Errors++
		e.recordFailure(ctx, stageETA, o.TenantID, o.ID, err)
		return
	}
	if !ok {
		return
	}
	km, ok, err := e.distance.DistanceKm(ctx, sample.Position, target)
	if err != nil {
		res.Errors++
		e.recordFailure(ctx, stageETA, o.TenantID, o.ID, err)
		return
	}
	if !ok {
		return
	}

	newETA := e.now().Add(time.Duration(km / e.cfg.AvgSpeedKmh * float64(time.Hour)))
	if o.Status == model.StatusAssigned {
		o.ETAPickupAt = &newETA
	} else {
		o.ETADeliveryAt = &newETA
	}
	if err := e.orders.Update(ctx, o); err != nil {
		res.Errors++
		e.recordFailure(ctx, stageETA, o.TenantID, o.ID, err)
		return
	}
	res.Updated++

	if scheduled == nil {
		// No baseline to measure drift against.
		return
	}
	delay := newETA.Sub(*scheduled)
	thresholdMin, err := e.customers.DelayThresholdMinutes(ctx, o.TenantID, o.CustomerID)
	if err != nil {
		e.log.Warnf("eta: delay threshold for customer %s: %v", o.CustomerID, err)
		thresholdMin = 0
	}
	if thresholdMin <= 0 {
		thresholdMin = e.cfg.DefaultDelayThresholdMinutes
	}
	if delay <= time.Duration(thresholdMin)*time.Minute {
		return
	}

	delayMin := delay.Minutes()
	severity := audit.SeverityWarning
	if delayMin > e.cfg.CriticalDelayMinutes {
		severity = audit.SeverityCritical
	}
	alert := audit.DelayAlert{
		ID:           e.newID(),
		TenantID:     o.TenantID,
		Type:         audit.AlertTypeDelay,
		Severity:     severity,
		OrderID:      o.ID,
		DriverID:     *o.DriverID,
		VehicleID:    *o.VehicleID,
		Title:        fmt.Sprintf("Order %s running late", o.ID),
		Message:      fmt.Sprintf("Estimated arrival drifted %.0f minutes past schedule (threshold %d)", delayMin, thresholdMin),
		Automated:    true,
		DelayMinutes: delayMin,
		CreatedAt:    e.now(),
	}
	if err := e.audit.AppendAlert(ctx, alert); err != nil {
		res.Errors++
		e.recordFailure(ctx, stageETA, o.TenantID, o.ID, err)
		return
	}
	res.Alerts++
	delayAlerts.WithLabelValues(string(severity)).Inc()
	e.publish(events.DelayAlertRaised{
		TenantID:     o.TenantID,
		OrderID:      o.ID,
		Severity:     string(severity),
		DelayMinutes: delayMin,
	})
}
