package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tunesmith/internal/logging"
	"tunesmith/internal/processor"
)

type countingRunner struct {
	mu         sync.Mutex
	calls      int
	inFlight   int32
	overlapped atomic.Bool
	sleep      time.Duration
	result     processor.Result
}

func (r *countingRunner) RunBatch(context.Context, processor.Options) processor.Result {
	if atomic.AddInt32(&r.inFlight, 1) > 1 {
		r.overlapped.Store(true)
	}
	defer atomic.AddInt32(&r.inFlight, -1)

	if r.sleep > 0 {
		time.Sleep(r.sleep)
	}
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	return r.result
}

func (r *countingRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func waitFor(t *testing.T, timeout time.Duration, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestStartIsIdempotent(t *testing.T) {
	runner := &countingRunner{}
	w := New(Config{Interval: time.Hour}, runner, logging.NewNop())
	defer w.Stop()

	w.Start(context.Background())
	w.Start(context.Background())

	if !w.Status().Running {
		t.Fatal("expected worker running")
	}
}

func TestRunImmediatelyFiresFirstTick(t *testing.T) {
	runner := &countingRunner{result: processor.Result{TotalProcessed: 3, Successful: 2, Failed: 1}}
	w := New(Config{Interval: time.Hour, RunImmediately: true}, runner, logging.NewNop())
	defer w.Stop()

	w.Start(context.Background())
	waitFor(t, time.Second, func() bool { return runner.callCount() == 1 })

	status := w.Status()
	if status.TotalRuns != 1 || status.TotalProcessed != 3 || status.TotalSuccessful != 2 || status.TotalFailed != 1 {
		t.Fatalf("unexpected totals %+v", status)
	}
	if status.LastRunAt == nil {
		t.Fatal("expected last run timestamp")
	}
}

func TestNoOverlappingBatches(t *testing.T) {
	runner := &countingRunner{sleep: 60 * time.Millisecond}
	w := New(Config{Interval: 10 * time.Millisecond, RunImmediately: true}, runner, logging.NewNop())

	w.Start(context.Background())
	time.Sleep(200 * time.Millisecond)
	w.Stop()

	if runner.overlapped.Load() {
		t.Fatal("two batches ran concurrently")
	}
	// With a 60ms batch and a 10ms interval, at most one run per ~60ms can
	// actually execute; the rest of the ticks must have been skipped.
	if calls := runner.callCount(); calls > 5 {
		t.Fatalf("expected skipped ticks, got %d runs in 200ms", calls)
	}
	if calls := runner.callCount(); calls < 2 {
		t.Fatalf("expected multiple runs, got %d", calls)
	}
}

func TestStopIsIdempotentAndClearsPause(t *testing.T) {
	runner := &countingRunner{}
	w := New(Config{Interval: time.Hour}, runner, logging.NewNop())

	w.Start(context.Background())
	if err := w.Pause(); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}
	w.Stop()
	w.Stop()

	status := w.Status()
	if status.Running || status.Paused {
		t.Fatalf("expected stopped and unpaused, got %+v", status)
	}
}

func TestPauseResumeOnStoppedWorker(t *testing.T) {
	w := New(Config{Interval: time.Hour}, &countingRunner{}, logging.NewNop())

	if err := w.Pause(); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning from Pause, got %v", err)
	}
	if err := w.Resume(); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning from Resume, got %v", err)
	}
}

func TestPausedTicksAreSkipped(t *testing.T) {
	runner := &countingRunner{}
	w := New(Config{Interval: 10 * time.Millisecond}, runner, logging.NewNop())
	defer w.Stop()

	w.Start(context.Background())
	if err := w.Pause(); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}
	time.Sleep(60 * time.Millisecond)

	if calls := runner.callCount(); calls != 0 {
		t.Fatalf("expected no runs while paused, got %d", calls)
	}
	if runs := w.Status().TotalRuns; runs != 0 {
		t.Fatalf("skipped ticks must not count as runs, got %d", runs)
	}
}

func TestResumeFiresImmediateTick(t *testing.T) {
	runner := &countingRunner{}
	w := New(Config{Interval: time.Hour}, runner, logging.NewNop())
	defer w.Stop()

	w.Start(context.Background())
	if err := w.Pause(); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}
	if err := w.Resume(); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}

	// The hour-long interval means the only possible tick is the resume kick.
	waitFor(t, time.Second, func() bool { return runner.callCount() == 1 })
}

func TestExternalCancelStopsWorker(t *testing.T) {
	runner := &countingRunner{}
	w := New(Config{Interval: time.Hour}, runner, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	if !w.Status().Running {
		t.Fatal("expected worker running")
	}

	cancel()
	waitFor(t, time.Second, func() bool { return !w.Status().Running })

	status := w.Status()
	if status.Paused || status.NextRunAt != nil {
		t.Fatalf("expected fully stopped status, got %+v", status)
	}
	if err := w.Pause(); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning after cancellation, got %v", err)
	}

	// The worker is restartable after an external cancellation.
	w.Start(context.Background())
	defer w.Stop()
	if !w.Status().Running {
		t.Fatal("expected worker running after restart")
	}
}

func TestNextRunAtVisibility(t *testing.T) {
	runner := &countingRunner{}
	w := New(Config{Interval: time.Hour}, runner, logging.NewNop())

	if w.Status().NextRunAt != nil {
		t.Fatal("expected nil NextRunAt while stopped")
	}

	w.Start(context.Background())
	defer w.Stop()
	if w.Status().NextRunAt == nil {
		t.Fatal("expected NextRunAt while running idle")
	}

	if err := w.Pause(); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}
	if w.Status().NextRunAt != nil {
		t.Fatal("expected nil NextRunAt while paused")
	}
}

func TestTickPanicDoesNotKillWorker(t *testing.T) {
	panicked := atomic.Bool{}
	runner := &panicRunner{panicked: &panicked}
	w := New(Config{Interval: time.Hour, RunImmediately: true}, runner, logging.NewNop())
	defer w.Stop()

	w.Start(context.Background())
	waitFor(t, time.Second, func() bool { return panicked.Load() })

	// Worker survives and can still report status and resume ticking.
	if err := w.Pause(); err != nil {
		t.Fatalf("worker unusable after panic: %v", err)
	}
	if err := w.Resume(); err != nil {
		t.Fatalf("worker unusable after panic: %v", err)
	}
	if !w.Status().Running {
		t.Fatal("expected worker still running after panic")
	}
}

type panicRunner struct {
	panicked *atomic.Bool
}

func (r *panicRunner) RunBatch(context.Context, processor.Options) processor.Result {
	r.panicked.Store(true)
	panic("boom")
}
