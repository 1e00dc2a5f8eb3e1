package testsupport

import (
	"context"
	"testing"

	"clipforge/internal/config"
	"clipforge/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// Enqueue inserts a queued export job for tests using the provided store.
func Enqueue(t testing.TB, store *queue.Store, jobID, title string) *queue.Item {
	t.Helper()

	item, err := store.Enqueue(context.Background(), jobID, title, "[]", "{}")
	if err != nil {
		t.Fatalf("store.Enqueue: %v", err)
	}
	return item
}
