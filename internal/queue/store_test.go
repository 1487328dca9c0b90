package queue_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"tunesmith/internal/queue"
	"tunesmith/internal/testsupport"
)

func TestEnqueueAndGet(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenQueue(t, cfg)

	ctx := context.Background()
	item, err := store.Enqueue(ctx, queue.NewItem{
		Platform:    "spotify",
		PlatformID:  "abc123",
		URL:         "https://open.spotify.com/track/abc123",
		Title:       "YAH.",
		ArtistGuess: "Kendrick Lamar - Topic",
	})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if item.Status != queue.StatusPending {
		t.Fatalf("expected pending status, got %s", item.Status)
	}
	if item.RetryCount != 0 {
		t.Fatalf("expected zero retry count, got %d", item.RetryCount)
	}

	fetched, err := store.GetByKey(ctx, queue.Key{Platform: "spotify", PlatformID: "abc123"})
	if err != nil {
		t.Fatalf("GetByKey failed: %v", err)
	}
	if fetched == nil || fetched.Title != "YAH." {
		t.Fatalf("unexpected fetched item: %#v", fetched)
	}
}

func TestEnqueueIsIdempotentPerKey(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenQueue(t, cfg)

	ctx := context.Background()
	first, err := store.Enqueue(ctx, queue.NewItem{
		Platform:   "youtube",
		PlatformID: "vid-1",
		URL:        "https://youtube.com/watch?v=vid-1",
		Title:      "Original Title",
	})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	second, err := store.Enqueue(ctx, queue.NewItem{
		Platform:   "youtube",
		PlatformID: "vid-1",
		URL:        "https://youtube.com/watch?v=vid-1",
		Title:      "Different Title",
	})
	if err != nil {
		t.Fatalf("second Enqueue failed: %v", err)
	}
	if second.Title != first.Title {
		t.Fatalf("expected existing item returned unchanged, got title %q", second.Title)
	}
}

func TestEnqueueRequiresKeyAndURL(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenQueue(t, cfg)

	ctx := context.Background()
	if _, err := store.Enqueue(ctx, queue.NewItem{Platform: "spotify", URL: "https://x"}); err == nil {
		t.Fatal("expected error when platform id missing")
	}
	if _, err := store.Enqueue(ctx, queue.NewItem{Platform: "spotify", PlatformID: "x"}); err == nil {
		t.Fatal("expected error when url missing")
	}
}

func TestClaimBatchFlipsToProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenQueue(t, cfg)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		testsupport.Enqueue(t, store, "spotify", fmt.Sprintf("track-%d", i))
	}

	claimed, err := store.ClaimBatch(ctx, 3)
	if err != nil {
		t.Fatalf("ClaimBatch failed: %v", err)
	}
	if len(claimed) != 3 {
		t.Fatalf("expected 3 claimed items, got %d", len(claimed))
	}
	for _, item := range claimed {
		if item.Status != queue.StatusProcessing {
			t.Fatalf("expected claimed item to be processing, got %s", item.Status)
		}
	}

	rest, err := store.ClaimBatch(ctx, 10)
	if err != nil {
		t.Fatalf("second ClaimBatch failed: %v", err)
	}
	if len(rest) != 2 {
		t.Fatalf("expected remaining 2 items, got %d", len(rest))
	}

	seen := map[queue.Key]struct{}{}
	for _, item := range append(claimed, rest...) {
		key := item.Key()
		if _, dup := seen[key]; dup {
			t.Fatalf("item %s claimed twice", key)
		}
		seen[key] = struct{}{}
	}
}

func TestClaimBatchEmptyQueue(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenQueue(t, cfg)

	claimed, err := store.ClaimBatch(context.Background(), 10)
	if err != nil {
		t.Fatalf("ClaimBatch failed: %v", err)
	}
	if len(claimed) != 0 {
		t.Fatalf("expected no items, got %d", len(claimed))
	}
}

func TestRequeueIncrementsRetryCount(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenQueue(t, cfg)

	ctx := context.Background()
	item := testsupport.Enqueue(t, store, "soundcloud", "song-1")
	key := item.Key()

	if _, err := store.ClaimBatch(ctx, 1); err != nil {
		t.Fatalf("ClaimBatch failed: %v", err)
	}
	if err := store.Requeue(ctx, key, "no metadata extracted"); err != nil {
		t.Fatalf("Requeue failed: %v", err)
	}

	updated, err := store.GetByKey(ctx, key)
	if err != nil {
		t.Fatalf("GetByKey failed: %v", err)
	}
	if updated.Status != queue.StatusPending {
		t.Fatalf("expected pending after requeue, got %s", updated.Status)
	}
	if updated.RetryCount != 1 {
		t.Fatalf("expected retry count 1, got %d", updated.RetryCount)
	}
	if updated.ErrorMessage != "no metadata extracted" {
		t.Fatalf("unexpected error message %q", updated.ErrorMessage)
	}
}

func TestMarkFailedIsTerminal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenQueue(t, cfg)

	ctx := context.Background()
	item := testsupport.Enqueue(t, store, "spotify", "track-x")
	key := item.Key()

	if err := store.MarkFailed(ctx, key, "llm request: http 500"); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}

	updated, err := store.GetByKey(ctx, key)
	if err != nil {
		t.Fatalf("GetByKey failed: %v", err)
	}
	if updated.Status != queue.StatusFailed {
		t.Fatalf("expected failed status, got %s", updated.Status)
	}
	if !updated.Status.IsTerminal() {
		t.Fatal("expected failed status to be terminal")
	}
	if updated.ProcessedAt == nil {
		t.Fatal("expected processed_at to be set")
	}

	claimed, err := store.ClaimBatch(ctx, 10)
	if err != nil {
		t.Fatalf("ClaimBatch failed: %v", err)
	}
	if len(claimed) != 0 {
		t.Fatal("failed items must not be claimable")
	}
}

func TestMarkCompletedClearsError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenQueue(t, cfg)

	ctx := context.Background()
	item := testsupport.Enqueue(t, store, "spotify", "track-y")
	key := item.Key()

	if err := store.Requeue(ctx, key, "transient failure"); err != nil {
		t.Fatalf("Requeue failed: %v", err)
	}
	if err := store.MarkCompleted(ctx, key); err != nil {
		t.Fatalf("MarkCompleted failed: %v", err)
	}

	updated, err := store.GetByKey(ctx, key)
	if err != nil {
		t.Fatalf("GetByKey failed: %v", err)
	}
	if updated.Status != queue.StatusCompleted {
		t.Fatalf("expected completed, got %s", updated.Status)
	}
	if updated.ErrorMessage != "" {
		t.Fatalf("expected error message cleared, got %q", updated.ErrorMessage)
	}
}

func TestStatsAndHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenQueue(t, cfg)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		testsupport.Enqueue(t, store, "spotify", fmt.Sprintf("p-%d", i))
	}
	failed := testsupport.Enqueue(t, store, "spotify", "f-1")
	if err := store.MarkFailed(ctx, failed.Key(), "exhausted"); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}
	done := testsupport.Enqueue(t, store, "spotify", "c-1")
	if err := store.MarkCompleted(ctx, done.Key()); err != nil {
		t.Fatalf("MarkCompleted failed: %v", err)
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if health.Total != 5 || health.Pending != 3 || health.Failed != 1 || health.Completed != 1 {
		t.Fatalf("unexpected health summary: %+v", health)
	}
}

func TestListFailedOrderingAndLimit(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenQueue(t, cfg)

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		item := testsupport.Enqueue(t, store, "youtube", fmt.Sprintf("fail-%d", i))
		if err := store.MarkFailed(ctx, item.Key(), fmt.Sprintf("error %d", i)); err != nil {
			t.Fatalf("MarkFailed failed: %v", err)
		}
	}

	failed, err := store.ListFailed(ctx, 2)
	if err != nil {
		t.Fatalf("ListFailed failed: %v", err)
	}
	if len(failed) != 2 {
		t.Fatalf("expected 2 failed items, got %d", len(failed))
	}
	for _, item := range failed {
		if item.ErrorMessage == "" {
			t.Fatal("expected error message on failed item")
		}
	}
}

func TestRetryFailedResetsRetryBudget(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenQueue(t, cfg)

	ctx := context.Background()
	item := testsupport.Enqueue(t, store, "spotify", "retry-me")
	key := item.Key()
	for i := 0; i < 5; i++ {
		if err := store.Requeue(ctx, key, "transient"); err != nil {
			t.Fatalf("Requeue failed: %v", err)
		}
	}
	if err := store.MarkFailed(ctx, key, "exhausted"); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}

	count, err := store.RetryFailed(ctx)
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 item retried, got %d", count)
	}

	updated, err := store.GetByKey(ctx, key)
	if err != nil {
		t.Fatalf("GetByKey failed: %v", err)
	}
	if updated.Status != queue.StatusPending || updated.RetryCount != 0 {
		t.Fatalf("expected pending with reset retries, got %s/%d", updated.Status, updated.RetryCount)
	}
}

func TestReclaimStaleProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenQueue(t, cfg)

	ctx := context.Background()
	testsupport.Enqueue(t, store, "spotify", "stale-1")
	if _, err := store.ClaimBatch(ctx, 1); err != nil {
		t.Fatalf("ClaimBatch failed: %v", err)
	}

	count, err := store.ReclaimStaleProcessing(ctx, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("ReclaimStaleProcessing failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 reclaimed item, got %d", count)
	}

	claimed, err := store.ClaimBatch(ctx, 1)
	if err != nil {
		t.Fatalf("ClaimBatch after reclaim failed: %v", err)
	}
	if len(claimed) != 1 {
		t.Fatal("expected reclaimed item to be claimable again")
	}
}

func TestParseStatus(t *testing.T) {
	cases := []struct {
		input string
		want  queue.Status
		ok    bool
	}{
		{"pending", queue.StatusPending, true},
		{" Processing ", queue.StatusProcessing, true},
		{"COMPLETED", queue.StatusCompleted, true},
		{"failed", queue.StatusFailed, true},
		{"archived", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := queue.ParseStatus(tc.input)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ParseStatus(%q) = %q, %v; want %q, %v", tc.input, got, ok, tc.want, tc.ok)
		}
	}
}
