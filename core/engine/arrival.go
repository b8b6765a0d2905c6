package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/fleetworks/dispatchd/core/audit"
	"github.com/fleetworks/dispatchd/core/events"
	"github.com/fleetworks/dispatchd/core/model"
)

// RunArrivalDetection inspects the latest telemetry of up to limit ASSIGNED
// and IN_TRANSIT orders and stamps pickup/delivery arrival when the vehicle
// sits inside the corresponding geofence. A delivery arrival only promotes
// the order to DELIVERED once the stamp has aged past the dwell guard, which
// suppresses transient geofence noise.
func (e *Engine) RunArrivalDetection(ctx context.Context, tenantID string, limit int) (ArrivalResult, error) {
	var res ArrivalResult
	started := e.now()
	orders, err := e.orders.List(ctx, OrderFilter{
		TenantID:     tenantID,
		Statuses:     []model.OrderStatus{model.StatusAssigned, model.StatusInTransit},
		AssignedOnly: true,
		Limit:        limit,
	})
	if err != nil {
		return res, fmt.Errorf("arrival: list orders: %w", err)
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
		e.detectOne(ctx, &o, &res)
		e.releaseOrder(ctx, o.ID, token)
	}
	e.observeStage(stageArrival, tenantID, started, res.outcomes())
	return res, nil
}

func (e *Engine) detectOne(ctx context.Context, o *model.Order, res *ArrivalResult) {
	res.Processed++
	sample, err := e.telemetry.Latest(ctx, *o.VehicleID)
	if errors.Is(err, ErrNoSample) {
		return
	}
	if err != nil {
		res.Errors++
		e.recordFailure(ctx, stageArrival, o.TenantID, o.ID, err)
		return
	}
	if !sample.Position.Valid() {
		return
	}

	switch o.Status {
	case model.StatusAssigned:
		if o.ArrivedAtPickupAt != nil {
			return
		}
		inside, err := e.geofence.IsInsideSite(ctx, sample.Position, o.PickupSiteID)
		if err != nil {
			res.Errors++
			e.recordFailure(ctx, stageArrival, o.TenantID, o.ID, err)
			return
		}
		if !inside {
			return
		}
		now := e.now()
		o.ArrivedAtPickupAt = &now
		if err := e.orders.Update(ctx, o); err != nil {
			res.Errors++
			e.recordFailure(ctx, stageArrival, o.TenantID, o.ID, err)
			return
		}
		res.PickupArrivals++
		e.publish(events.ArrivalDetected{
			TenantID:   o.TenantID,
			OrderID:    o.ID,
			VehicleID:  *o.VehicleID,
			SiteID:     o.PickupSiteID,
			Leg:        "pickup",
			DetectedAt: now,
		})

	case model.StatusInTransit:
		now := e.now()
		newArrival := false
		if o.ArrivedAtDeliveryAt == nil {
			inside, err := e.geofence.IsInsideSite(ctx, sample.Position, o.DeliverySiteID)
			if err != nil {
				res.Errors++
				e.recordFailure(ctx, stageArrival, o.TenantID, o.ID, err)
				return
			}
			if !inside {
				return
			}
			o.ArrivedAtDeliveryAt = &now
			newArrival = true
		}
		// Dwell guard: a freshly stamped arrival never promotes in the
		// same pass; only a stamp older than the guard confirms delivery.
		promoted := false
		if now.Sub(*o.ArrivedAtDeliveryAt) > e.cfg.DwellGuard() && model.CanTransition(o.Status, model.StatusDelivered) {
			o.Status = model.StatusDelivered
			o.ActualDeliveryAt = &now
			promoted = true
		}
		if !newArrival && !promoted {
			return
		}
		if err := e.orders.Update(ctx, o); err != nil {
			res.Errors++
			e.recordFailure(ctx, stageArrival, o.TenantID, o.ID, err)
			return
		}
		if newArrival {
			res.DeliveryArrivals++
			e.publish(events.ArrivalDetected{
				TenantID:   o.TenantID,
				OrderID:    o.ID,
				VehicleID:  *o.VehicleID,
				SiteID:     o.DeliverySiteID,
				Leg:        "delivery",
				DetectedAt: now,
			})
		}
		if promoted {
			e.appendEntry(ctx, audit.Entry{
				TenantID:    o.TenantID,
				Type:        audit.EntryAutomatedDecision,
				Title:       "Delivery confirmed",
				Description: fmt.Sprintf("Vehicle dwelled inside the delivery geofence for more than %d minutes", e.cfg.DwellGuardMinutes),
				OrderID:     o.ID,
				DriverID:    *o.DriverID,
				VehicleID:   *o.VehicleID,
				Automated:   true,
			})
			e.publish(events.OrderDelivered{
				TenantID:    o.TenantID,
				OrderID:     o.ID,
				DeliveredAt: now,
			})
		}
	}
}
