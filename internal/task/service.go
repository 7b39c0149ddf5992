package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskdeck.dev/internal/audit"
	"taskdeck.dev/internal/authz"
	"taskdeck.dev/internal/ids"
)

const (
	maxTitleLen       = 200
	maxDescriptionLen = 2000
)

// Service wires the authorization gate and the audit recorder around task
// storage. Every mutation passes the gate first and records an audit fact
// only after the store write succeeded.
type Service struct {
	store    Store
	gate     *authz.Gate
	recorder *audit.Recorder
	now      func() time.Time
}

// NewService constructs the task service.
func NewService(store Store, gate *authz.Gate, recorder *audit.Recorder) (*Service, error) {
	if store == nil {
		return nil, errors.New("task: store is required")
	}
	if gate == nil {
		return nil, errors.New("task: gate is required")
	}
	if recorder == nil {
		return nil, errors.New("task: audit recorder is required")
	}
	return &Service{store: store, gate: gate, recorder: recorder, now: time.Now}, nil
}

// Draft is the validated input for task creation.
type Draft struct {
	Title       string
	Description string
	Status      Status
	Priority    Priority
	Category    Category
	DueDate     *time.Time
}

// Create adds a task to the actor's home organization.
func (s *Service) Create(ctx context.Context, actor *authz.Identity, draft Draft) (Task, error) {
	decision, err := s.gate.Authorize(ctx, actor, authz.PermTaskCreate, "")
	if err != nil {
		return Task{}, err
	}
	if !decision.Allowed {
		return Task{}, authz.DeniedError(decision.Reason)
	}

	draft.Title = strings.TrimSpace(draft.Title)
	if draft.Title == "" {
		return Task{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if len(draft.Title) > maxTitleLen {
		return Task{}, fmt.Errorf("%w: title too long", ErrInvalidInput)
	}
	if len(draft.Description) > maxDescriptionLen {
		return Task{}, fmt.Errorf("%w: description too long", ErrInvalidInput)
	}
	if draft.Status == "" {
		draft.Status = StatusTodo
	}
	if draft.Priority == "" {
		draft.Priority = PriorityMedium
	}
	if draft.Category == "" {
		draft.Category = CategoryOther
	}

	now := s.now().UTC()
	t := Task{
		ID:             ids.New(),
		Title:          draft.Title,
		Description:    draft.Description,
		Status:         draft.Status,
		Priority:       draft.Priority,
		Category:       draft.Category,
		OwnerID:        actor.UserID,
		OrganizationID: actor.OrgID,
		DueDate:        draft.DueDate,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.Create(ctx, &t); err != nil {
		return Task{}, err
	}
	if _, err := s.recorder.Record(ctx, actor.UserID, actor.OrgID, "task.create", "task", t.ID, "Created task: "+t.Title); err != nil {
		return Task{}, err
	}
	return t, nil
}

// List returns tasks across the actor's accessible organizations.
func (s *Service) List(ctx context.Context, actor *authz.Identity, filter Filter) ([]Task, error) {
	decision, err := s.gate.Authorize(ctx, actor, authz.PermTaskRead, "")
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, authz.DeniedError(decision.Reason)
	}
	scope, err := s.gate.Scope(ctx, actor)
	if err != nil {
		return nil, err
	}
	return s.store.List(ctx, scope.IDs(), filter)
}

// Get returns one task if it sits inside the actor's scope. A task outside
// the scope reads as not found so existence does not leak.
func (s *Service) Get(ctx context.Context, actor *authz.Identity, id string) (Task, error) {
	decision, err := s.gate.Authorize(ctx, actor, authz.PermTaskRead, "")
	if err != nil {
		return Task{}, err
	}
	if !decision.Allowed {
		return Task{}, authz.DeniedError(decision.Reason)
	}
	t, err := s.store.Get(ctx, id)
	if err != nil {
		return Task{}, err
	}
	scope, err := s.gate.Scope(ctx, actor)
	if err != nil {
		return Task{}, err
	}
	if !scope.Contains(t.OrganizationID) {
		return Task{}, ErrNotFound
	}
	return t, nil
}

// Update applies a partial mutation to a task in scope.
func (s *Service) Update(ctx context.Context, actor *authz.Identity, id string, upd Update) (Task, error) {
	decision, err := s.gate.Authorize(ctx, actor, authz.PermTaskUpdate, "")
	if err != nil {
		return Task{}, err
	}
	if !decision.Allowed {
		return Task{}, authz.DeniedError(decision.Reason)
	}

	t, err := s.loadInScope(ctx, actor, id)
	if err != nil {
		return Task{}, err
	}

	var changed []string
	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if title == "" {
			return Task{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
		}
		if len(title) > maxTitleLen {
			return Task{}, fmt.Errorf("%w: title too long", ErrInvalidInput)
		}
		t.Title = title
		changed = append(changed, "title")
	}
	if upd.Description != nil {
		if len(*upd.Description) > maxDescriptionLen {
			return Task{}, fmt.Errorf("%w: description too long", ErrInvalidInput)
		}
		t.Description = *upd.Description
		changed = append(changed, "description")
	}
	if upd.Status != nil {
		t.Status = *upd.Status
		changed = append(changed, "status")
	}
	if upd.Priority != nil {
		t.Priority = *upd.Priority
		changed = append(changed, "priority")
	}
	if upd.Category != nil {
		t.Category = *upd.Category
		changed = append(changed, "category")
	}
	if upd.DueDate != nil {
		t.DueDate = upd.DueDate
		changed = append(changed, "due_date")
	}
	if len(changed) == 0 {
		return t, nil
	}

	if err := s.store.Save(ctx, &t); err != nil {
		return Task{}, err
	}
	detail := "Updated fields: " + strings.Join(changed, ", ")
	if _, err := s.recorder.Record(ctx, actor.UserID, actor.OrgID, "task.update", "task", t.ID, detail); err != nil {
		return Task{}, err
	}
	return t, nil
}

// Delete removes a task in scope.
func (s *Service) Delete(ctx context.Context, actor *authz.Identity, id string) error {
	decision, err := s.gate.Authorize(ctx, actor, authz.PermTaskDelete, "")
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return authz.DeniedError(decision.Reason)
	}

	t, err := s.loadInScope(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, t.ID); err != nil {
		return err
	}
	if _, err := s.recorder.Record(ctx, actor.UserID, actor.OrgID, "task.delete", "task", t.ID, "Deleted task: "+t.Title); err != nil {
		return err
	}
	return nil
}

// Reorder assigns ascending order values following the given id sequence.
// All tasks must be in scope; the whole batch is audited once.
func (s *Service) Reorder(ctx context.Context, actor *authz.Identity, taskIDs []string) ([]Task, error) {
	decision, err := s.gate.Authorize(ctx, actor, authz.PermTaskUpdate, "")
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, authz.DeniedError(decision.Reason)
	}
	if len(taskIDs) == 0 {
		return nil, fmt.Errorf("%w: task ids are required", ErrInvalidInput)
	}

	scope, err := s.gate.Scope(ctx, actor)
	if err != nil {
		return nil, err
	}

	// Resolve and scope-check the whole batch before the first write, so a
	// missing or out-of-scope id cannot leave a half-applied ordering.
	out := make([]Task, 0, len(taskIDs))
	for _, id := range taskIDs {
		t, err := s.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if !scope.Contains(t.OrganizationID) {
			return nil, ErrNotFound
		}
		out = append(out, t)
	}
	for i := range out {
		out[i].Order = i
		if err := s.store.Save(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	detail := fmt.Sprintf("Reordered %d tasks", len(taskIDs))
	if _, err := s.recorder.Record(ctx, actor.UserID, actor.OrgID, "task.reorder", "task", "", detail); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) loadInScope(ctx context.Context, actor *authz.Identity, id string) (Task, error) {
	t, err := s.store.Get(ctx, id)
	if err != nil {
		return Task{}, err
	}
	scope, err := s.gate.Scope(ctx, actor)
	if err != nil {
		return Task{}, err
	}
	if !scope.Contains(t.OrganizationID) {
		return Task{}, ErrNotFound
	}
	return t, nil
}
