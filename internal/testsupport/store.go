package testsupport

import (
	"context"
	"fmt"
	"testing"

	"tunesmith/internal/config"
	"tunesmith/internal/library"
	"tunesmith/internal/queue"
)

// MustOpenQueue opens a queue.Store for tests and registers cleanup.
func MustOpenQueue(t testing.TB, cfg *config.Config) *queue.Store {
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

// MustOpenLibrary opens a library.Store for tests and registers cleanup.
func MustOpenLibrary(t testing.TB, cfg *config.Config) *library.Store {
	t.Helper()

	store, err := library.Open(cfg)
	if err != nil {
		t.Fatalf("library.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// Enqueue inserts a pending queue item for tests using the provided store.
func Enqueue(t testing.TB, store *queue.Store, platform, platformID string) *queue.Item {
	t.Helper()

	item, err := store.Enqueue(context.Background(), queue.NewItem{
		Platform:   platform,
		PlatformID: platformID,
		URL:        fmt.Sprintf("https://%s.example/%s", platform, platformID),
		Title:      "Track " + platformID,
	})
	if err != nil {
		t.Fatalf("store.Enqueue: %v", err)
	}
	return item
}
