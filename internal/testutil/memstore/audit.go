package memstore

import (
	"context"
	"sort"

	"github.com/showteam/teamhub/internal/app/store/audit"
	"github.com/showteam/teamhub/internal/app/store/documents"
)

// Audit is the auditEvents collection. Events are kept outside
// transactions, like the real store's writes.
type Audit struct {
	db *DB
}

func (db *DB) Audit() *Audit { return &Audit{db: db} }

// AuditEvents returns every stored event in insertion order.
func (db *DB) AuditEvents() []audit.Event {
	db.mu.Lock()
	defer db.mu.Unlock()
	return append([]audit.Event(nil), db.events...)
}

func (s *Audit) Log(_ context.Context, e audit.Event) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("audit.Log"); err != nil {
		return err
	}
	if e.ID == "" {
		e.ID = documents.NewID()
	}
	s.db.events = append(s.db.events, e)
	return nil
}

func (s *Audit) Query(_ context.Context, f audit.QueryFilter) ([]audit.Event, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.check("audit.Query"); err != nil {
		return nil, err
	}
	out := []audit.Event{}
	for i := len(s.db.events) - 1; i >= 0; i-- {
		if f.Matches(s.db.events[i]) {
			out = append(out, s.db.events[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })

	limit := f.Limit
	if limit <= 0 {
		limit = audit.DefaultLimit
	}
	if f.Offset >= int64(len(out)) {
		return []audit.Event{}, nil
	}
	out = out[f.Offset:]
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}
