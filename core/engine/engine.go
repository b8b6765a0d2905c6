// Package engine implements the dispatch automation engine: four independent
// batch passes that advance in-flight freight orders through their lifecycle
// based on confidence-scored collaborator decisions.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fleetworks/dispatchd/core/audit"
	"github.com/fleetworks/dispatchd/core/collab"
	"github.com/fleetworks/dispatchd/core/logger"
	"github.com/fleetworks/dispatchd/core/metrics"
	"github.com/fleetworks/dispatchd/internal/eventbus"
)

const (
	stageAcceptance = "acceptance"
	stageAssignment = "assignment"
	stageArrival    = "arrival"
	stageETA        = "eta"
)

// Deps bundles the engine's collaborators and stores. Orders, Telemetry,
// Audit, Validator, Scorer, Geofence and Distance are mandatory; the rest
// default to no-ops.
type Deps struct {
	Orders    OrderStore
	Telemetry TelemetryReader
	Customers CustomerSettings
	Audit     audit.Store
	Validator collab.OrderValidator
	Scorer    collab.DriverScorer
	Geofence  collab.Geofencer
	Distance  collab.DistanceCalculator
	Logger    logger.Logger
	Sink      metrics.Sink
	Bus       eventbus.EventBus
}

// Engine runs the four dispatch automation passes. Each pass is independently
// invocable and idempotent at the level of "only orders currently in the
// matching state are touched". A claim lease taken before any decision work
// keeps concurrent invocations of the same pass from double-processing a row.
type Engine struct {
	orders    OrderStore
	telemetry TelemetryReader
	customers CustomerSettings
	audit     audit.Store
	validator collab.OrderValidator
	scorer    collab.DriverScorer
	geofence  collab.Geofencer
	distance  collab.DistanceCalculator
	cfg       Config
	log       logger.Logger
	sink      metrics.Sink
	bus       eventbus.EventBus

	now   func() time.Time
	newID func() string
}

// New creates an Engine. cfg is completed with defaults and validated.
func New(deps Deps, cfg Config) (*Engine, error) {
	if deps.Orders == nil || deps.Telemetry == nil || deps.Audit == nil {
		return nil, fmt.Errorf("engine: nil store provided")
	}
	if deps.Validator == nil || deps.Scorer == nil || deps.Geofence == nil || deps.Distance == nil {
		return nil, fmt.Errorf("engine: nil collaborator provided")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}
	if deps.Logger == nil {
		deps.Logger = logger.NopLogger{}
	}
	if deps.Sink == nil {
		deps.Sink = metrics.NopSink{}
	}
	if deps.Customers == nil {
		deps.Customers = defaultCustomerSettings{}
	}
	return &Engine{
		orders:    deps.Orders,
		telemetry: deps.Telemetry,
		customers: deps.Customers,
		audit:     deps.Audit,
		validator: deps.Validator,
		scorer:    deps.Scorer,
		geofence:  deps.Geofence,
		distance:  deps.Distance,
		cfg:       cfg,
		log:       deps.Logger,
		sink:      deps.Sink,
		bus:       deps.Bus,
		now:       time.Now,
		newID:     uuid.NewString,
	}, nil
}

// defaultCustomerSettings reports no configuration for every customer.
type defaultCustomerSettings struct{}

func (defaultCustomerSettings) DelayThresholdMinutes(context.Context, string, string) (int, error) {
	return 0, nil
}

// claimOrder takes the processing lease for one row. A false return means a
// concurrent invocation holds it and the row must be skipped.
func (e *Engine) claimOrder(ctx context.Context, orderID string) (string, bool) {
	token := e.newID()
	ok, err := e.orders.Claim(ctx, orderID, token, e.now().Add(e.cfg.ClaimLease()))
	if err != nil {
		e.log.Warnf("claim %s: %v", orderID, err)
		return "", false
	}
	return token, ok
}

func (e *Engine) releaseOrder(ctx context.Context, orderID, token string) {
	if err := e.orders.Release(ctx, orderID, token); err != nil {
		e.log.Warnf("release %s: %v", orderID, err)
	}
}

func (e *Engine) publish(ev eventbus.Event) {
	if e.bus != nil {
		e.bus.Publish(ev)
	}
}

// appendEntry persists a dispatch log entry, filling in ID and timestamp.
// Audit failures are logged but never fail the batch.
func (e *Engine) appendEntry(ctx context.Context, entry audit.Entry) {
	entry.ID = e.newID()
	entry.CreatedAt = e.now()
	if err := e.audit.AppendEntry(ctx, entry); err != nil {
		e.log.Warnf("audit entry for order %s: %v", entry.OrderID, err)
	}
}

// recordFailure counts a per-order failure into the dispatch log so operators
// can see which orders failed and why, not just how many.
func (e *Engine) recordFailure(ctx context.Context, stage, tenantID, orderID string, err error) {
	e.log.Warnf("%s: order %s: %v", stage, orderID, err)
	e.appendEntry(ctx, audit.Entry{
		TenantID:    tenantID,
		Type:        audit.EntryError,
		Title:       fmt.Sprintf("Automated %s failed", stage),
		Description: err.Error(),
		OrderID:     orderID,
		Automated:   true,
	})
}

// observeStage records one stage run in the metrics pipeline.
func (e *Engine) observeStage(stage, tenantID string, started time.Time, outcomes map[string]int) {
	dur := e.now().Sub(started)
	stageDuration.WithLabelValues(stage).Observe(dur.Seconds())
	for outcome, n := range outcomes {
		if n > 0 {
			ordersProcessed.WithLabelValues(stage, outcome).Add(float64(n))
		}
	}
	if err := e.sink.RecordStageRun(metrics.StageRun{
		Stage:    stage,
		TenantID: tenantID,
		Outcomes: outcomes,
		Duration: dur,
		Time:     started,
	}); err != nil {
		e.log.Errorf("metrics sink: %v", err)
	}
	e.log.Debugw("stage run", map[string]any{
		"stage":    stage,
		"tenant":   tenantID,
		"outcomes": outcomes,
		"duration": dur.String(),
	})
}
