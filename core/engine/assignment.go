package engine

import (
	"context"
	"fmt"

	"github.com/fleetworks/dispatchd/core/audit"
	"github.com/fleetworks/dispatchd/core/events"
	"github.com/fleetworks/dispatchd/core/model"
)

// RunAssignment ranks driver/vehicle candidates for up to limit ACCEPTED,
// unassigned orders. The top candidate is assigned outright when its score
// clears the auto-assign threshold; below it the proposal is queued as a
// pending decision for human approval.
func (e *Engine) RunAssignment(ctx context.Context, tenantID string, limit int) (AssignmentResult, error) {
	var res AssignmentResult
	started := e.now()
	orders, err := e.orders.List(ctx, OrderFilter{
		TenantID:      tenantID,
		Statuses:      []model.OrderStatus{model.StatusAccepted},
		WithoutDriver: true,
		Limit:         limit,
	})
	if err != nil {
		return res, fmt.Errorf("assignment: list orders: %w", err)
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
		e.assignOne(ctx, &o, &res)
		e.releaseOrder(ctx, o.ID, token)
	}
	e.observeStage(stageAssignment, tenantID, started, res.outcomes())
	return res, nil
}

func (e *Engine) assignOne(ctx context.Context, o *model.Order, res *AssignmentResult) {
	res.Processed++
	candidates, err := e.scorer.Rank(ctx, *o, e.cfg.MaxCandidates)
	if err != nil {
		res.Errors++
		e.recordFailure(ctx, stageAssignment, o.TenantID, o.ID, err)
		return
	}
	if len(candidates) == 0 {
		res.Pending++
		return
	}
	top := candidates[0]
	if top.TotalScore < e.cfg.AssignAbove {
		// Queue the proposal for a human instead of acting on it.
		d := audit.PendingDecision{
			ID:                e.newID(),
			TenantID:          o.TenantID,
			Kind:              audit.DecisionAssign,
			OrderID:           o.ID,
			ProposedDriverID:  top.DriverID,
			ProposedVehicleID: top.VehicleID,
			Title:             fmt.Sprintf("Assign %s to order %s", top.DriverName, o.ID),
			Description:       fmt.Sprintf("Top candidate %s scored %.0f, below the auto-assign threshold of %.0f", top.DriverName, top.TotalScore, e.cfg.AssignAbove),
			Confidence:        top.TotalScore,
			Status:            audit.DecisionStatusPending,
			CreatedAt:         e.now(),
		}
		if err := e.audit.AppendDecision(ctx, d); err != nil {
			res.Errors++
			e.recordFailure(ctx, stageAssignment, o.TenantID, o.ID, err)
			return
		}
		res.Pending++
		e.publish(events.DecisionQueued{
			TenantID:   o.TenantID,
			OrderID:    o.ID,
			Kind:       string(audit.DecisionAssign),
			Confidence: top.TotalScore,
		})
		return
	}

	driverID, vehicleID := top.DriverID, top.VehicleID
	o.DriverID = &driverID
	o.VehicleID = &vehicleID
	o.Status = model.StatusAssigned
	if err := e.orders.Update(ctx, o); err != nil {
		res.Errors++
		e.recordFailure(ctx, stageAssignment, o.TenantID, o.ID, err)
		return
	}
	res.Assigned++
	e.appendEntry(ctx, audit.Entry{
		TenantID:    o.TenantID,
		Type:        audit.EntryAutomatedDecision,
		Title:       "Driver auto-assigned",
		Description: fmt.Sprintf("%s assigned with score %.0f", top.DriverName, top.TotalScore),
		OrderID:     o.ID,
		DriverID:    top.DriverID,
		VehicleID:   top.VehicleID,
		Automated:   true,
		Confidence:  top.TotalScore,
	})
	e.publish(events.OrderAssigned{
		TenantID:  o.TenantID,
		OrderID:   o.ID,
		DriverID:  top.DriverID,
		VehicleID: top.VehicleID,
		Score:     top.TotalScore,
	})
}
