package queue_test

import (
	"context"
	"testing"

	"clipforge/internal/queue"
	"clipforge/internal/testsupport"
)

func TestEnqueueAndFetch(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	item, err := store.Enqueue(ctx, "job-1", "My Export", `[{"id":"e1"}]`, `{"format":"mp4"}`)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if item.Status != queue.StatusQueued {
		t.Fatalf("status = %s, want queued", item.Status)
	}
	if item.JobID != "job-1" || item.Title != "My Export" {
		t.Fatalf("unexpected item: %+v", item)
	}

	byUUID, err := store.GetByJobID(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetByJobID: %v", err)
	}
	if byUUID == nil || byUUID.ID != item.ID {
		t.Fatalf("GetByJobID = %+v", byUUID)
	}

	missing, err := store.GetByJobID(ctx, "nope")
	if err != nil {
		t.Fatalf("GetByJobID missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("missing = %+v, want nil", missing)
	}
}

func TestReopenKeepsSchemaAndRows(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()

	store := testsupport.MustOpenStore(t, cfg)
	if _, err := store.Enqueue(ctx, "job-1", "Survivor", `[]`, `{}`); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// A second Open against the same file must no-op the schema setup and
	// still see the earlier row.
	reopened, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	item, err := reopened.GetByJobID(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetByJobID: %v", err)
	}
	if item == nil || item.Title != "Survivor" {
		t.Fatalf("item = %+v, want the enqueued row", item)
	}
}

func TestUpdateRoundTripsWarnings(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	item := testsupport.Enqueue(t, store, "job-2", "Warned")
	item.Status = queue.StatusCompleted
	item.Progress = 1
	item.Backend = "stream-recorder"
	item.OutputPath = "/out/warned.mkv"
	item.SetWarnings([]string{"source s1 degraded to silence"})
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != queue.StatusCompleted || got.Progress != 1 {
		t.Fatalf("got = %+v", got)
	}
	warnings := got.Warnings()
	if len(warnings) != 1 || warnings[0] != "source s1 degraded to silence" {
		t.Fatalf("warnings = %v", warnings)
	}
}

func TestNextQueuedIsOldestFirst(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	first := testsupport.Enqueue(t, store, "job-a", "First")
	testsupport.Enqueue(t, store, "job-b", "Second")

	next, err := store.NextQueued(ctx)
	if err != nil {
		t.Fatalf("NextQueued: %v", err)
	}
	if next == nil || next.ID != first.ID {
		t.Fatalf("next = %+v, want first", next)
	}
}

func TestResetInFlight(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	item := testsupport.Enqueue(t, store, "job-c", "Crashed")
	item.Status = queue.StatusEncoding
	item.Progress = 0.6
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update: %v", err)
	}

	reset, err := store.ResetInFlight(ctx)
	if err != nil {
		t.Fatalf("ResetInFlight: %v", err)
	}
	if reset != 1 {
		t.Fatalf("reset = %d, want 1", reset)
	}

	got, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != queue.StatusQueued || got.Progress != 0 {
		t.Fatalf("got = %+v, want requeued at zero progress", got)
	}
}

func TestMarkCancelledOnlyHitsQueued(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	queued := testsupport.Enqueue(t, store, "job-d", "Queued")
	running := testsupport.Enqueue(t, store, "job-e", "Running")
	running.Status = queue.StatusEncoding
	if err := store.Update(ctx, running); err != nil {
		t.Fatalf("Update: %v", err)
	}

	ok, err := store.MarkCancelled(ctx, queued.JobID)
	if err != nil {
		t.Fatalf("MarkCancelled: %v", err)
	}
	if !ok {
		t.Fatal("queued job should be cancellable")
	}
	ok, err = store.MarkCancelled(ctx, running.JobID)
	if err != nil {
		t.Fatalf("MarkCancelled running: %v", err)
	}
	if ok {
		t.Fatal("running job must not be settled by MarkCancelled")
	}
}

func TestListAndStats(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	testsupport.Enqueue(t, store, "job-f", "One")
	done := testsupport.Enqueue(t, store, "job-g", "Two")
	done.Status = queue.StatusCompleted
	if err := store.Update(ctx, done); err != nil {
		t.Fatalf("Update: %v", err)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len(all) = %d, want 2", len(all))
	}

	completed, err := store.List(ctx, queue.StatusCompleted)
	if err != nil {
		t.Fatalf("List completed: %v", err)
	}
	if len(completed) != 1 || completed[0].JobID != "job-g" {
		t.Fatalf("completed = %+v", completed)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[queue.StatusQueued] != 1 || stats[queue.StatusCompleted] != 1 {
		t.Fatalf("stats = %v", stats)
	}

	cleared, err := store.ClearCompleted(ctx)
	if err != nil {
		t.Fatalf("ClearCompleted: %v", err)
	}
	if cleared != 1 {
		t.Fatalf("cleared = %d, want 1", cleared)
	}
}
