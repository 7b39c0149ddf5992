package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskdeck.dev/internal/ids"
	"taskdeck.dev/internal/obs"
)

var (
	ErrInvalidInput = errors.New("audit: invalid input")
	ErrStorage      = errors.New("audit: storage failure")
)

const (
	defaultQueryLimit = 100
	maxQueryLimit     = 1000
)

// Record is an immutable fact describing one completed action. Once written
// it is never mutated or deleted.
type Record struct {
	ID           string    `json:"id"`
	ActorUserID  string    `json:"actor_user_id"`
	ActorOrgID   string    `json:"actor_org_id"`
	Action       string    `json:"action"`
	ResourceKind string    `json:"resource_kind"`
	ResourceID   string    `json:"resource_id,omitempty"`
	Detail       string    `json:"detail,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Store is the append-only sink the recorder writes to. Query restricts
// results to records whose acting user's organization is in orgIDs and
// returns them most recent first, at most limit entries.
type Store interface {
	Append(ctx context.Context, rec *Record) error
	Query(ctx context.Context, orgIDs []string, limit int) ([]Record, error)
}

// Recorder stamps and appends audit records. Callers invoke it strictly
// after the primary mutation is durable; a failed mutation never produces an
// audit entry.
type Recorder struct {
	store Store
	now   func() time.Time
}

// Option configures Recorder behavior.
type Option func(*Recorder)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(r *Recorder) {
		if fn != nil {
			r.now = fn
		}
	}
}

// NewRecorder constructs a Recorder over the given store.
func NewRecorder(store Store, opts ...Option) (*Recorder, error) {
	if store == nil {
		return nil, errors.New("audit: store is required")
	}
	r := &Recorder{store: store, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Record appends one audit fact and emits a structured audit log line. The
// append error propagates to the caller; recording is never silently dropped.
func (r *Recorder) Record(ctx context.Context, actorUserID, actorOrgID, action, resourceKind, resourceID, detail string) (Record, error) {
	actorUserID = strings.TrimSpace(actorUserID)
	action = strings.TrimSpace(action)
	resourceKind = strings.TrimSpace(resourceKind)
	if actorUserID == "" || action == "" || resourceKind == "" {
		return Record{}, fmt.Errorf("%w: actor, action and resource kind are required", ErrInvalidInput)
	}

	rec := Record{
		ID:           ids.New(),
		ActorUserID:  actorUserID,
		ActorOrgID:   strings.TrimSpace(actorOrgID),
		Action:       action,
		ResourceKind: resourceKind,
		ResourceID:   strings.TrimSpace(resourceID),
		Detail:       detail,
		OccurredAt:   r.now().UTC(),
	}
	if err := r.store.Append(ctx, &rec); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	obs.ObserveAuditRecord()
	logRecord(rec)
	return rec, nil
}

// Query returns recent records visible to the given organization scope.
func (r *Recorder) Query(ctx context.Context, orgIDs []string, limit int) ([]Record, error) {
	if len(orgIDs) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = defaultQueryLimit
	} else if limit > maxQueryLimit {
		limit = maxQueryLimit
	}
	recs, err := r.store.Query(ctx, orgIDs, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return recs, nil
}

// logRecord mirrors every appended record onto the structured log stream.
func logRecord(rec Record) {
	entry := map[string]any{
		"ts":            rec.OccurredAt.Format(time.RFC3339Nano),
		"type":          "audit",
		"event":         rec.Action,
		"actor_user_id": rec.ActorUserID,
		"actor_org_id":  rec.ActorOrgID,
		"resource_kind": rec.ResourceKind,
	}
	if rec.ResourceID != "" {
		entry["resource_id"] = rec.ResourceID
	}
	if rec.Detail != "" {
		entry["detail"] = rec.Detail
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	obs.Logger().Println(string(data))
}
