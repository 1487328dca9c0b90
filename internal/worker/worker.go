package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"tunesmith/internal/logging"
	"tunesmith/internal/processor"
)

// ErrNotRunning reports a pause or resume call against a stopped worker.
// That is a programming error in the caller, signaled rather than ignored.
var ErrNotRunning = errors.New("worker is not running")

// BatchRunner runs one enrichment batch. Satisfied by *processor.Processor.
type BatchRunner interface {
	RunBatch(ctx context.Context, opts processor.Options) processor.Result
}

// Config controls tick cadence and batch shape.
type Config struct {
	Interval       time.Duration
	BatchSize      int
	RunImmediately bool
	// Model overrides the configured default when non-empty.
	Model string
}

// Status is a point-in-time snapshot of the worker. NextRunAt is nil
// whenever the worker is stopped, paused, or mid-batch, so callers can tell
// "about to fire" apart from "can't predict".
type Status struct {
	Running         bool       `json:"running"`
	Paused          bool       `json:"paused"`
	Processing      bool       `json:"processing"`
	LastRunAt       *time.Time `json:"last_run_at,omitempty"`
	NextRunAt       *time.Time `json:"next_run_at,omitempty"`
	TotalRuns       int        `json:"total_runs"`
	TotalProcessed  int        `json:"total_processed"`
	TotalSuccessful int        `json:"total_successful"`
	TotalFailed     int        `json:"total_failed"`
}

// Worker schedules enrichment batches.
type Worker struct {
	cfg    Config
	runner BatchRunner
	logger *slog.Logger

	mu              sync.Mutex
	running         bool
	paused          bool
	processing      bool
	lastRunAt       *time.Time
	totalRuns       int
	totalProcessed  int
	totalSuccessful int
	totalFailed     int

	cancel context.CancelFunc
	kick   chan struct{}
	done   chan struct{}
}

// New constructs a worker.
func New(cfg Config, runner BatchRunner, logger *slog.Logger) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Worker{cfg: cfg, runner: runner, logger: logger}
}

// Start launches the scheduling loop. Calling Start on a running worker is a
// no-op. Ticks run under ctx, and cancelling ctx stops the worker; Stop only
// prevents future ticks and does not cancel a batch already in flight.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	loopCtx, cancel := context.WithCancel(context.Background())
	w.running = true
	w.cancel = cancel
	w.kick = make(chan struct{}, 1)
	w.done = make(chan struct{})
	kick := w.kick
	done := w.done
	w.mu.Unlock()

	w.logger.Info("worker started",
		logging.Duration("interval", w.cfg.Interval),
		logging.Int(logging.FieldBatchSize, w.cfg.BatchSize))

	go w.loop(ctx, loopCtx, kick, done)
}

func (w *Worker) loop(tickCtx, loopCtx context.Context, kick <-chan struct{}, done chan<- struct{}) {
	// The loop owns the running flag on the way out: an external cancellation
	// of the Start context must leave the worker stopped, not reporting a
	// live schedule with a dead loop.
	defer func() {
		w.mu.Lock()
		if w.running {
			w.running = false
			w.paused = false
			if w.cancel != nil {
				w.cancel()
				w.cancel = nil
			}
		}
		w.mu.Unlock()
		close(done)
	}()

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	// Ticks are fire-and-forget: the in-flight guard inside tick decides
	// whether this one actually runs, so a slow batch never delays the loop.
	if w.cfg.RunImmediately {
		go w.tick(tickCtx)
	}
	for {
		select {
		case <-loopCtx.Done():
			return
		case <-tickCtx.Done():
			return
		case <-ticker.C:
			go w.tick(tickCtx)
		case <-kick:
			go w.tick(tickCtx)
		}
	}
}

// tick runs one batch unless the worker is paused or a batch is already in
// flight, in which case the tick is skipped entirely.
func (w *Worker) tick(ctx context.Context) {
	w.mu.Lock()
	if w.paused || w.processing {
		skipped := "paused"
		if w.processing {
			skipped = "batch in flight"
		}
		w.mu.Unlock()
		w.logger.Debug("tick skipped", logging.String("reason", skipped))
		return
	}
	w.processing = true
	w.totalRuns++
	w.mu.Unlock()

	runID := uuid.NewString()
	defer func() {
		if recovered := recover(); recovered != nil {
			w.logger.Error("tick panicked",
				logging.String(logging.FieldRunID, runID),
				logging.Any("panic", recovered))
		}
		now := time.Now().UTC()
		w.mu.Lock()
		w.processing = false
		w.lastRunAt = &now
		w.mu.Unlock()
	}()

	result := w.runner.RunBatch(ctx, processor.Options{
		BatchSize: w.cfg.BatchSize,
		Model:     w.cfg.Model,
	})

	w.mu.Lock()
	w.totalProcessed += result.TotalProcessed
	w.totalSuccessful += result.Successful
	w.totalFailed += result.Failed
	w.mu.Unlock()

	if result.TotalProcessed > 0 || len(result.Errors) > 0 {
		w.logger.Info("tick complete",
			logging.String(logging.FieldRunID, runID),
			logging.Int("total", result.TotalProcessed),
			logging.Int("successful", result.Successful),
			logging.Int("failed", result.Failed),
			logging.Int("errors", len(result.Errors)))
	}
}

// Stop cancels the scheduling loop and clears pause state. Stopping an
// already stopped worker is a no-op. An in-flight batch is left to finish.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	cancel := w.cancel
	done := w.done
	w.running = false
	w.paused = false
	w.cancel = nil
	w.mu.Unlock()

	cancel()
	<-done
	w.logger.Info("worker stopped")
}

// Pause suspends ticks without stopping the loop. Returns ErrNotRunning when
// the worker is stopped.
func (w *Worker) Pause() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return ErrNotRunning
	}
	w.paused = true
	w.logger.Info("worker paused")
	return nil
}

// Resume lifts a pause and fires one immediate tick in addition to resuming
// the timer. Returns ErrNotRunning when the worker is stopped.
func (w *Worker) Resume() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return ErrNotRunning
	}
	w.paused = false
	kick := w.kick
	w.mu.Unlock()

	select {
	case kick <- struct{}{}:
	default:
	}
	w.logger.Info("worker resumed")
	return nil
}

// Status reports a snapshot of the worker's state and cumulative totals.
func (w *Worker) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()

	status := Status{
		Running:         w.running,
		Paused:          w.paused,
		Processing:      w.processing,
		LastRunAt:       w.lastRunAt,
		TotalRuns:       w.totalRuns,
		TotalProcessed:  w.totalProcessed,
		TotalSuccessful: w.totalSuccessful,
		TotalFailed:     w.totalFailed,
	}
	if w.running && !w.paused && !w.processing {
		next := time.Now().UTC().Add(w.cfg.Interval)
		status.NextRunAt = &next
	}
	return status
}
