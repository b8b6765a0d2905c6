package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func seedStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.AppendEntry(ctx, Entry{
		ID: "e1", TenantID: "t1", Type: EntryAutomatedDecision,
		Title: "Order auto-accepted", OrderID: "o1", Automated: true,
		Confidence: 92, CreatedAt: base,
	}))
	require.NoError(t, s.AppendEntry(ctx, Entry{
		ID: "e2", TenantID: "t2", Type: EntryAutomatedDecision,
		Title: "Order auto-accepted", OrderID: "o9", Automated: true,
		Confidence: 88, CreatedAt: base.Add(time.Hour),
	}))
	require.NoError(t, s.AppendDecision(ctx, PendingDecision{
		ID: "d1", TenantID: "t1", Kind: DecisionAssign, OrderID: "o2",
		ProposedDriverID: "drv-7", Confidence: 65, Status: DecisionStatusPending,
		CreatedAt: base,
	}))
	require.NoError(t, s.AppendAlert(ctx, DelayAlert{
		ID: "a1", TenantID: "t1", Type: AlertTypeDelay, Severity: SeverityCritical,
		OrderID: "o3", Automated: true, DelayMinutes: 40, CreatedAt: base,
	}))
}

func verifyStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	entries, err := s.Entries(ctx, Query{TenantID: "t1"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "o1", entries[0].OrderID)

	all, err := s.Entries(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, all, 2)

	until := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	early, err := s.Entries(ctx, Query{End: until})
	require.NoError(t, err)
	require.Len(t, early, 1)

	decisions, err := s.Decisions(ctx, Query{OrderID: "o2"})
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	require.Equal(t, DecisionAssign, decisions[0].Kind)
	require.Equal(t, DecisionStatusPending, decisions[0].Status)

	alerts, err := s.Alerts(ctx, Query{TenantID: "t1"})
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	require.Equal(t, SeverityCritical, alerts[0].Severity)

	none, err := s.Alerts(ctx, Query{TenantID: "t9"})
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestMemoryStoreQueries(t *testing.T) {
	s := NewMemoryStore()
	seedStore(t, s)
	verifyStore(t, s)
	require.NoError(t, s.Close())
}

func TestJSONLStoreQueries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	s, err := NewJSONLStore(path)
	require.NoError(t, err)
	seedStore(t, s)
	verifyStore(t, s)
	require.NoError(t, s.Close())

	// Reopening must see the same records.
	s2, err := NewJSONLStore(path)
	require.NoError(t, err)
	verifyStore(t, s2)
}
