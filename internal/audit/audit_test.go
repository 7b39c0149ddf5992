package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"taskdeck.dev/internal/obs"
)

func newTestRecorder(t *testing.T) (*Recorder, *InMemory) {
	t.Helper()
	store := NewInMemory()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	seq := 0
	rec, err := NewRecorder(store, WithClock(func() time.Time {
		seq++
		return base.Add(time.Duration(seq) * time.Second)
	}))
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}
	return rec, store
}

func TestRecordOrderingAndScope(t *testing.T) {
	recorder, _ := newTestRecorder(t)
	ctx := context.Background()

	if _, err := recorder.Record(ctx, "u1", "org1", "task.create", "task", "t1", "Created task: X"); err != nil {
		t.Fatalf("Record X: %v", err)
	}
	if _, err := recorder.Record(ctx, "u1", "org1", "task.delete", "task", "t1", "Deleted task: X"); err != nil {
		t.Fatalf("Record Y: %v", err)
	}

	recs, err := recorder.Query(ctx, []string{"org1"}, 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].Action != "task.delete" || recs[1].Action != "task.create" {
		t.Fatalf("expected most recent first, got %s then %s", recs[0].Action, recs[1].Action)
	}
	if !recs[0].OccurredAt.After(recs[1].OccurredAt) {
		t.Fatal("timestamps not descending")
	}

	// A scope that excludes the acting user's organization sees nothing.
	recs, err = recorder.Query(ctx, []string{"org2"}, 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("expected no records outside scope, got %d", len(recs))
	}
}

func TestRecordEmitsLogLine(t *testing.T) {
	logger := obs.Logger()
	original := logger.Writer()
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(original)

	recorder, _ := newTestRecorder(t)
	if _, err := recorder.Record(context.Background(), "u1", "org1", "task.update", "task", "t7", ""); err != nil {
		t.Fatalf("Record: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log not valid JSON: %v", err)
	}
	if entry["type"] != "audit" {
		t.Fatalf("unexpected type: %v", entry["type"])
	}
	if entry["event"] != "task.update" {
		t.Fatalf("unexpected event: %v", entry["event"])
	}
	if entry["actor_user_id"] != "u1" {
		t.Fatalf("unexpected actor: %v", entry["actor_user_id"])
	}
}

func TestRecordValidation(t *testing.T) {
	recorder, _ := newTestRecorder(t)
	if _, err := recorder.Record(context.Background(), "", "org1", "task.create", "task", "", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := recorder.Record(context.Background(), "u1", "org1", "", "task", "", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRecordCancelledContext(t *testing.T) {
	recorder, store := newTestRecorder(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := recorder.Record(ctx, "u1", "org1", "task.create", "task", "t1", ""); !errors.Is(err, ErrStorage) {
		t.Fatalf("expected storage failure on cancelled context, got %v", err)
	}
	recs, err := store.Query(context.Background(), []string{"org1"}, 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(recs) != 0 {
		t.Fatal("cancelled append must not persist a record")
	}
}

func TestQueryLimit(t *testing.T) {
	recorder, _ := newTestRecorder(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := recorder.Record(ctx, "u1", "org1", "task.create", "task", "", ""); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	recs, err := recorder.Query(ctx, []string{"org1"}, 3)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected limit 3, got %d", len(recs))
	}
}

func TestQueryLimitClampsToMax(t *testing.T) {
	recorder, _ := newTestRecorder(t)
	ctx := context.Background()
	for i := 0; i < defaultQueryLimit+50; i++ {
		if _, err := recorder.Record(ctx, "u1", "org1", "task.create", "task", "", ""); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	// An oversized limit clamps to the maximum rather than shrinking to the
	// default, so it never returns fewer rows than a smaller valid limit.
	recs, err := recorder.Query(ctx, []string{"org1"}, maxQueryLimit+1)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(recs) != defaultQueryLimit+50 {
		t.Fatalf("expected all %d records, got %d", defaultQueryLimit+50, len(recs))
	}
}
