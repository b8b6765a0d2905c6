// Package audit exposes the dispatch log, pending decisions and delay alerts
// over HTTP for human dispatcher UIs. The surface is strictly read-only;
// resolving a pending decision is a separate system's job.
package audit

import (
	"encoding/json"
	"net/http"
	"time"

	coreaudit "github.com/fleetworks/dispatchd/core/audit"
)

// NewHandler returns an HTTP handler serving:
//
//	GET /api/audit/logs
//	GET /api/audit/decisions
//	GET /api/audit/alerts
//
// All routes accept tenant_id, order_id, start and end (RFC 3339) query
// parameters. Requests must carry "Bearer <token>" when token is non-empty.
func NewHandler(store coreaudit.Store, token string) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/audit/logs", guard(token, func(w http.ResponseWriter, r *http.Request) {
		entries, err := store.Entries(r.Context(), parseQuery(r))
		respond(w, entries, err)
	}))
	mux.Handle("/api/audit/decisions", guard(token, func(w http.ResponseWriter, r *http.Request) {
		decisions, err := store.Decisions(r.Context(), parseQuery(r))
		respond(w, decisions, err)
	}))
	mux.Handle("/api/audit/alerts", guard(token, func(w http.ResponseWriter, r *http.Request) {
		alerts, err := store.Alerts(r.Context(), parseQuery(r))
		respond(w, alerts, err)
	}))
	return mux
}

func guard(token string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	})
}

func parseQuery(r *http.Request) coreaudit.Query {
	q := coreaudit.Query{
		TenantID: r.URL.Query().Get("tenant_id"),
		OrderID:  r.URL.Query().Get("order_id"),
	}
	if s := r.URL.Query().Get("start"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			q.Start = t
		}
	}
	if s := r.URL.Query().Get("end"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			q.End = t
		}
	}
	return q
}

func respond(w http.ResponseWriter, payload any, err error) {
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
