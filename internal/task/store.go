package task

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Store describes task persistence. Get and Update are scope-checked by the
// service before they reach the store; List receives the accessible
// organization ids as a disjunction.
type Store interface {
	Create(ctx context.Context, t *Task) error
	Get(ctx context.Context, id string) (Task, error)
	List(ctx context.Context, orgIDs []string, filter Filter) ([]Task, error)
	Save(ctx context.Context, t *Task) error
	Delete(ctx context.Context, id string) error
}

// InMemory implements Store with in-process concurrency safety.
type InMemory struct {
	mu    sync.RWMutex
	tasks map[string]Task
}

var _ Store = (*InMemory)(nil)

// NewInMemory creates an empty task store.
func NewInMemory() *InMemory {
	return &InMemory{tasks: make(map[string]Task)}
}

func (s *InMemory) Create(ctx context.Context, t *Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID] = *t
	return nil
}

func (s *InMemory) Get(ctx context.Context, id string) (Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return Task{}, ErrNotFound
	}
	return t, nil
}

func (s *InMemory) List(ctx context.Context, orgIDs []string, filter Filter) ([]Task, error) {
	allowed := make(map[string]struct{}, len(orgIDs))
	for _, id := range orgIDs {
		allowed[id] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Task
	for _, t := range s.tasks {
		if _, ok := allowed[t.OrganizationID]; !ok {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.Category != "" && t.Category != filter.Category {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemory) Save(ctx context.Context, t *Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[t.ID]; !ok {
		return ErrNotFound
	}
	t.UpdatedAt = time.Now().UTC()
	s.tasks[t.ID] = *t
	return nil
}

func (s *InMemory) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return ErrNotFound
	}
	delete(s.tasks, id)
	return nil
}
