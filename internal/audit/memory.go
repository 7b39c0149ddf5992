package audit

import (
	"context"
	"sync"
)

// InMemory implements Store with in-process concurrency safety. Suitable for
// tests and single-node development; Postgres is the durable implementation.
type InMemory struct {
	mu   sync.RWMutex
	recs []Record
}

var _ Store = (*InMemory)(nil)

// NewInMemory creates an empty audit store.
func NewInMemory() *InMemory {
	return &InMemory{}
}

func (s *InMemory) Append(ctx context.Context, rec *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, *rec)
	return nil
}

func (s *InMemory) Query(ctx context.Context, orgIDs []string, limit int) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	allowed := make(map[string]struct{}, len(orgIDs))
	for _, id := range orgIDs {
		allowed[id] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	// Appends preserve per-writer order, so walking backwards yields most
	// recent first without re-sorting.
	var out []Record
	for i := len(s.recs) - 1; i >= 0 && len(out) < limit; i-- {
		rec := s.recs[i]
		if _, ok := allowed[rec.ActorOrgID]; !ok {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
