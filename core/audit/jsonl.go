package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"sync"
)

// JSONLStore appends audit records to a JSONL file. Each line is an envelope
// carrying the record kind so the three families share one file.
type JSONLStore struct {
	path string
	mu   sync.Mutex
}

type jsonlEnvelope struct {
	Kind     string           `json:"kind"`
	Entry    *Entry           `json:"entry,omitempty"`
	Decision *PendingDecision `json:"decision,omitempty"`
	Alert    *DelayAlert      `json:"alert,omitempty"`
}

func NewJSONLStore(path string) (*JSONLStore, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}
	if cerr := f.Close(); cerr != nil {
		return nil, cerr
	}
	return &JSONLStore{path: path}, nil
}

func (s *JSONLStore) append(env jsonlEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return json.NewEncoder(f).Encode(env)
}

func (s *JSONLStore) AppendEntry(_ context.Context, e Entry) error {
	return s.append(jsonlEnvelope{Kind: "entry", Entry: &e})
}

func (s *JSONLStore) AppendDecision(_ context.Context, d PendingDecision) error {
	return s.append(jsonlEnvelope{Kind: "decision", Decision: &d})
}

func (s *JSONLStore) AppendAlert(_ context.Context, a DelayAlert) error {
	return s.append(jsonlEnvelope{Kind: "alert", Alert: &a})
}

// scan walks the file and hands every well-formed envelope to fn. Malformed
// lines are skipped so a torn write never poisons later queries.
func (s *JSONLStore) scan(fn func(jsonlEnvelope)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.Open(s.path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var env jsonlEnvelope
		if err := json.Unmarshal(scanner.Bytes(), &env); err != nil {
			continue
		}
		fn(env)
	}
	return scanner.Err()
}

func (s *JSONLStore) Entries(_ context.Context, q Query) ([]Entry, error) {
	var res []Entry
	err := s.scan(func(env jsonlEnvelope) {
		if env.Kind != "entry" || env.Entry == nil {
			return
		}
		if q.Matches(env.Entry.TenantID, env.Entry.OrderID, env.Entry.CreatedAt) {
			res = append(res, *env.Entry)
		}
	})
	return res, err
}

func (s *JSONLStore) Decisions(_ context.Context, q Query) ([]PendingDecision, error) {
	var res []PendingDecision
	err := s.scan(func(env jsonlEnvelope) {
		if env.Kind != "decision" || env.Decision == nil {
			return
		}
		if q.Matches(env.Decision.TenantID, env.Decision.OrderID, env.Decision.CreatedAt) {
			res = append(res, *env.Decision)
		}
	})
	return res, err
}

func (s *JSONLStore) Alerts(_ context.Context, q Query) ([]DelayAlert, error) {
	var res []DelayAlert
	err := s.scan(func(env jsonlEnvelope) {
		if env.Kind != "alert" || env.Alert == nil {
			return
		}
		if q.Matches(env.Alert.TenantID, env.Alert.OrderID, env.Alert.CreatedAt) {
			res = append(res, *env.Alert)
		}
	})
	return res, err
}

func (s *JSONLStore) Close() error { return nil }
