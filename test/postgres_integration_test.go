package test

import (
	"context"
	"fmt"
	"os/exec"
	"testing"
	"time"

	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/fleetworks/dispatchd/core/audit"
	"github.com/fleetworks/dispatchd/core/collab"
	"github.com/fleetworks/dispatchd/core/engine"
	"github.com/fleetworks/dispatchd/core/model"
	"github.com/fleetworks/dispatchd/infra/postgres"
)

func startPostgres(ctx context.Context, t *testing.T) (tc.Container, string) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "dispatch",
			"POSTGRES_PASSWORD": "dispatch",
			"POSTGRES_DB":       "dispatch",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).WithStartupTimeout(time.Minute),
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	host, err := cont.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := cont.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://dispatch:dispatch@%s:%s/dispatch?sslmode=disable", host, port.Port())
	return cont, dsn
}

func TestPostgresStoresEndToEnd(t *testing.T) {
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not installed")
	}
	ctx := context.Background()

	cont, dsn := startPostgres(ctx, t)
	defer func() { _ = cont.Terminate(ctx) }()

	pool, err := postgres.Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer pool.Close()
	if err := postgres.Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	orders := postgres.NewOrderStore(pool)
	now := time.Now().UTC().Truncate(time.Microsecond)
	seed := model.Order{
		ID:             "o1",
		TenantID:       "t1",
		CustomerID:     "c1",
		Status:         model.StatusNew,
		PickupSiteID:   "p1",
		DeliverySiteID: "d1",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := orders.Insert(ctx, seed); err != nil {
		t.Fatalf("insert: %v", err)
	}

	t.Run("claim is exclusive and expires", func(t *testing.T) {
		ok, err := orders.Claim(ctx, "o1", "tok-a", time.Now().Add(time.Minute))
		if err != nil || !ok {
			t.Fatalf("first claim: ok=%v err=%v", ok, err)
		}
		ok, err = orders.Claim(ctx, "o1", "tok-b", time.Now().Add(time.Minute))
		if err != nil {
			t.Fatalf("second claim: %v", err)
		}
		if ok {
			t.Fatal("second claim must lose while the lease is live")
		}

		// Claimed rows are invisible to List.
		rows, err := orders.List(ctx, engine.OrderFilter{
			TenantID: "t1",
			Statuses: []model.OrderStatus{model.StatusNew},
		})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(rows) != 0 {
			t.Fatalf("claimed order visible in list: %d rows", len(rows))
		}

		if err := orders.Release(ctx, "o1", "tok-a"); err != nil {
			t.Fatalf("release: %v", err)
		}
		ok, err = orders.Claim(ctx, "o1", "tok-c", time.Now().Add(time.Minute))
		if err != nil || !ok {
			t.Fatalf("claim after release: ok=%v err=%v", ok, err)
		}
		if err := orders.Release(ctx, "o1", "tok-c"); err != nil {
			t.Fatalf("release: %v", err)
		}
	})

	t.Run("update is compare-and-set", func(t *testing.T) {
		got, err := orders.Get(ctx, "o1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		stale := got

		got.Status = model.StatusAccepted
		if err := orders.Update(ctx, &got); err != nil {
			t.Fatalf("update: %v", err)
		}
		stale.Status = model.StatusRejected
		if err := orders.Update(ctx, &stale); err != engine.ErrStaleOrder {
			t.Fatalf("stale update: %v, want ErrStaleOrder", err)
		}

		fresh, err := orders.Get(ctx, "o1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if fresh.Status != model.StatusAccepted || fresh.StatusVersion != 1 {
			t.Fatalf("unexpected row after CAS: %+v", fresh)
		}
	})

	t.Run("audit round trip", func(t *testing.T) {
		store := postgres.NewAuditStore(pool)
		entry := audit.Entry{
			ID: "e1", TenantID: "t1", Type: audit.EntryAutomatedDecision,
			Title: "Order auto-accepted", OrderID: "o1",
			Automated: true, Confidence: 92, CreatedAt: now,
		}
		if err := store.AppendEntry(ctx, entry); err != nil {
			t.Fatalf("append entry: %v", err)
		}
		entries, err := store.Entries(ctx, audit.Query{TenantID: "t1"})
		if err != nil {
			t.Fatalf("entries: %v", err)
		}
		if len(entries) != 1 || entries[0].Confidence != 92 {
			t.Fatalf("unexpected entries: %+v", entries)
		}
	})

	t.Run("engine acceptance against postgres", func(t *testing.T) {
		reset := model.Order{
			ID:             "o2",
			TenantID:       "t1",
			CustomerID:     "c1",
			Status:         model.StatusNew,
			PickupSiteID:   "p1",
			DeliverySiteID: "d1",
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := orders.Insert(ctx, reset); err != nil {
			t.Fatalf("insert: %v", err)
		}

		eng, err := engine.New(engine.Deps{
			Orders:    orders,
			Telemetry: postgres.NewTelemetryStore(pool),
			Customers: postgres.NewCustomerStore(pool),
			Audit:     postgres.NewAuditStore(pool),
			Validator: collab.MockValidator{Default: collab.ValidationOutcome{ShouldAccept: true, Confidence: 88}},
			Scorer:    collab.PendingScorer{},
			Geofence:  collab.MockGeofencer{},
			Distance:  collab.MockDistance{},
		}, engine.Config{})
		if err != nil {
			t.Fatalf("engine: %v", err)
		}

		res, err := eng.RunAcceptance(ctx, "t1", 10)
		if err != nil {
			t.Fatalf("run acceptance: %v", err)
		}
		if res.Accepted != 1 {
			t.Fatalf("unexpected counters: %+v", res)
		}
		got, err := orders.Get(ctx, "o2")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Status != model.StatusAccepted {
			t.Fatalf("status = %s, want ACCEPTED", got.Status)
		}
	})
}
