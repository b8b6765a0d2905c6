package engine

import (
	"context"
	"testing"
	"time"

	"github.com/fleetworks/dispatchd/core/audit"
	"github.com/fleetworks/dispatchd/core/collab"
	"github.com/fleetworks/dispatchd/core/model"
)

// etaFixture wires a 50 km remaining distance, which at the default 50 km/h
// puts the fresh ETA exactly one hour out.
func etaFixture(t *testing.T, mutate func(*Deps)) *fixture {
	t.Helper()
	return newFixture(t, func(d *Deps) {
		d.Distance = collab.MockDistance{
			Sites: map[string]model.Point{
				"site-pickup":   {Lat: 48.85, Lng: 2.35},
				"site-delivery": {Lat: 45.76, Lng: 4.83},
			},
			Km:      50,
			KmKnown: true,
		}
		if mutate != nil {
			mutate(d)
		}
	})
}

func inTransitWithSchedule(f *fixture, id string, scheduledIn time.Duration) model.Order {
	o := assigned(id, model.StatusInTransit)
	sched := f.now.Add(scheduledIn)
	o.ETADeliveryAt = &sched
	return o
}

func TestETACriticalDelayAlert(t *testing.T) {
	f := etaFixture(t, nil)
	// Scheduled 20 minutes out, travel takes 60: a 40 minute delay.
	f.orders.Put(inTransitWithSchedule(f, "o1", 20*time.Minute))
	recordPosition(f, "veh-1", model.Point{Lat: 46.0, Lng: 4.5})

	res, err := f.engine.RunETARecalc(context.Background(), "t1", 10)
	if err != nil {
		t.Fatalf("RunETARecalc: %v", err)
	}
	if res.Updated != 1 || res.Alerts != 1 {
		t.Fatalf("unexpected counters: %+v", res)
	}

	got, _ := f.orders.Get("o1")
	wantETA := f.now.Add(time.Hour)
	if got.ETADeliveryAt == nil || !got.ETADeliveryAt.Equal(wantETA) {
		t.Errorf("ETA not overwritten: got %v, want %v", got.ETADeliveryAt, wantETA)
	}

	alerts, err := f.audit.Alerts(context.Background(), audit.Query{TenantID: "t1", OrderID: "o1"})
	if err != nil {
		t.Fatalf("Alerts: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("expected one alert, got %d", len(alerts))
	}
	a := alerts[0]
	if a.Severity != audit.SeverityCritical {
		t.Errorf("40 minute delay must be critical, got %s", a.Severity)
	}
	if a.DelayMinutes != 40 {
		t.Errorf("delay minutes = %v, want 40", a.DelayMinutes)
	}
	if a.Type != audit.AlertTypeDelay || !a.Automated {
		t.Errorf("alert not tagged as automated delay: %+v", a)
	}
}

func TestETAWarningSeverityBelowCriticalBoundary(t *testing.T) {
	f := etaFixture(t, nil)
	// 20 minute delay: above the 15 minute default threshold, below critical.
	f.orders.Put(inTransitWithSchedule(f, "o2", 40*time.Minute))
	recordPosition(f, "veh-1", model.Point{Lat: 46.0, Lng: 4.5})

	if _, err := f.engine.RunETARecalc(context.Background(), "t1", 10); err != nil {
		t.Fatalf("RunETARecalc: %v", err)
	}
	alerts, _ := f.audit.Alerts(context.Background(), audit.Query{OrderID: "o2"})
	if len(alerts) != 1 || alerts[0].Severity != audit.SeverityWarning {
		t.Fatalf("expected one warning alert, got %+v", alerts)
	}
}

func TestETAWithinThresholdUpdatesWithoutAlert(t *testing.T) {
	f := etaFixture(t, nil)
	// 10 minute delay stays under the 15 minute default.
	f.orders.Put(inTransitWithSchedule(f, "o3", 50*time.Minute))
	recordPosition(f, "veh-1", model.Point{Lat: 46.0, Lng: 4.5})

	res, err := f.engine.RunETARecalc(context.Background(), "t1", 10)
	if err != nil {
		t.Fatalf("RunETARecalc: %v", err)
	}
	if res.Updated != 1 || res.Alerts != 0 {
		t.Fatalf("unexpected counters: %+v", res)
	}
}

func TestETACustomerThresholdOverridesDefault(t *testing.T) {
	f := etaFixture(t, func(d *Deps) {
		d.Customers = StaticCustomerSettings{"c1": 45}
	})
	// 40 minutes late, but this customer tolerates 45.
	f.orders.Put(inTransitWithSchedule(f, "o4", 20*time.Minute))
	recordPosition(f, "veh-1", model.Point{Lat: 46.0, Lng: 4.5})

	res, err := f.engine.RunETARecalc(context.Background(), "t1", 10)
	if err != nil {
		t.Fatalf("RunETARecalc: %v", err)
	}
	if res.Alerts != 0 {
		t.Errorf("customer threshold not honored: %+v", res)
	}
}

func TestETAAssignedOrderUsesPickupLeg(t *testing.T) {
	f := etaFixture(t, nil)
	o := assigned("o5", model.StatusAssigned)
	f.orders.Put(o)
	recordPosition(f, "veh-1", model.Point{Lat: 48.0, Lng: 2.0})

	res, err := f.engine.RunETARecalc(context.Background(), "t1", 10)
	if err != nil {
		t.Fatalf("RunETARecalc: %v", err)
	}
	if res.Updated != 1 {
		t.Fatalf("unexpected counters: %+v", res)
	}
	got, _ := f.orders.Get("o5")
	if got.ETAPickupAt == nil {
		t.Fatal("pickup ETA not written for ASSIGNED order")
	}
	if got.ETADeliveryAt != nil {
		t.Error("delivery ETA must stay untouched on the pickup leg")
	}
	// No scheduled pickup ETA existed, so no drift measurement and no alert.
	if res.Alerts != 0 {
		t.Errorf("alert raised without a scheduled baseline: %+v", res)
	}
}

func TestETAUnresolvableSiteIsSkipped(t *testing.T) {
	f := etaFixture(t, func(d *Deps) {
		d.Distance = collab.MockDistance{} // no sites resolve
	})
	f.orders.Put(inTransitWithSchedule(f, "o6", 10*time.Minute))
	recordPosition(f, "veh-1", model.Point{Lat: 46.0, Lng: 4.5})

	res, err := f.engine.RunETARecalc(context.Background(), "t1", 10)
	if err != nil {
		t.Fatalf("RunETARecalc: %v", err)
	}
	if res.Processed != 1 || res.Updated != 0 || res.Errors != 0 {
		t.Errorf("unresolvable site must be a silent skip: %+v", res)
	}
}

func TestETAUnknownRouteIsSkipped(t *testing.T) {
	f := etaFixture(t, func(d *Deps) {
		d.Distance = collab.MockDistance{
			Sites:   map[string]model.Point{"site-delivery": {Lat: 45.76, Lng: 4.83}},
			KmKnown: false,
		}
	})
	f.orders.Put(inTransitWithSchedule(f, "o7", 10*time.Minute))
	recordPosition(f, "veh-1", model.Point{Lat: 46.0, Lng: 4.5})

	res, err := f.engine.RunETARecalc(context.Background(), "t1", 10)
	if err != nil {
		t.Fatalf("RunETARecalc: %v", err)
	}
	if res.Updated != 0 || res.Errors != 0 {
		t.Errorf("unknown route must be a silent skip: %+v", res)
	}
}
