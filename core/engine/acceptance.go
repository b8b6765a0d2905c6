package engine

import (
	"context"
	"fmt"

	"github.com/fleetworks/dispatchd/core/audit"
	"github.com/fleetworks/dispatchd/core/events"
	"github.com/fleetworks/dispatchd/core/model"
)

// RunAcceptance evaluates up to limit NEW orders for the tenant and either
// accepts, rejects or leaves each pending. The confidence partition is
// exhaustive: a positive recommendation accepts, a negative one below the
// reject cutoff rejects, everything else stays untouched for a human.
// Per-order failures are counted and never abort the batch; a cancelled
// context ends the batch early with the counters accumulated so far.
func (e *Engine) RunAcceptance(ctx context.Context, tenantID string, limit int) (AcceptanceResult, error) {
	var res AcceptanceResult
	started := e.now()
	orders, err := e.orders.List(ctx, OrderFilter{
		TenantID: tenantID,
		Statuses: []model.OrderStatus{model.StatusNew},
		Limit:    limit,
	})
	if err != nil {
		return res, fmt.Errorf("acceptance: list orders: %w", err)
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
		e.acceptOne(ctx, &o, &res)
		e.releaseOrder(ctx, o.ID, token)
	}
	e.observeStage(stageAcceptance, tenantID, started, res.outcomes())
	return res, nil
}

func (e *Engine) acceptOne(ctx context.Context, o *model.Order, res *AcceptanceResult) {
	res.Processed++
	out, err := e.validator.Evaluate(ctx, *o)
	if err != nil {
		res.Errors++
		e.recordFailure(ctx, stageAcceptance, o.TenantID, o.ID, err)
		return
	}
	switch {
	case out.ShouldAccept:
		o.Status = model.StatusAccepted
		o.ManualDispatch = false
		if err := e.orders.Update(ctx, o); err != nil {
			res.Errors++
			e.recordFailure(ctx, stageAcceptance, o.TenantID, o.ID, err)
			return
		}
		res.Accepted++
		e.appendEntry(ctx, audit.Entry{
			TenantID:    o.TenantID,
			Type:        audit.EntryAutomatedDecision,
			Title:       "Order auto-accepted",
			Description: out.Reason,
			OrderID:     o.ID,
			Automated:   true,
			Confidence:  out.Confidence,
		})
		e.publish(events.OrderAccepted{
			TenantID:   o.TenantID,
			OrderID:    o.ID,
			Confidence: out.Confidence,
			Reason:     out.Reason,
		})
	case out.Confidence < e.cfg.RejectBelow:
		reason := out.Reason
		o.Status = model.StatusRejected
		o.RejectReason = &reason
		if err := e.orders.Update(ctx, o); err != nil {
			res.Errors++
			e.recordFailure(ctx, stageAcceptance, o.TenantID, o.ID, err)
			return
		}
		res.Rejected++
		e.appendEntry(ctx, audit.Entry{
			TenantID:    o.TenantID,
			Type:        audit.EntryAutomatedDecision,
			Title:       "Order auto-rejected",
			Description: out.Reason,
			OrderID:     o.ID,
			Automated:   true,
			Confidence:  out.Confidence,
		})
		e.publish(events.OrderRejected{
			TenantID:   o.TenantID,
			OrderID:    o.ID,
			Confidence: out.Confidence,
			Reason:     out.Reason,
		})
	default:
		// Ambiguous band: leave the order for a human dispatcher.
		res.Pending++
	}
}
