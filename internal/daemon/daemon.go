package daemon

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"log/slog"

	"tunesmith/internal/config"
	"tunesmith/internal/library"
	"tunesmith/internal/logging"
	"tunesmith/internal/queue"
	"tunesmith/internal/worker"
)

// staleProcessingCutoff bounds how long an item may sit in processing before
// daemon start reclaims it. Generous relative to the LLM deadline so a
// healthy concurrent instance is never robbed of in-flight work.
const staleProcessingCutoff = 30 * time.Minute

// Daemon wires the stores, worker, and API server together and enforces
// single-instance execution through a file lock.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	queue   *queue.Store
	library *library.Store
	worker  *worker.Worker
	api     *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, queueStore *queue.Store, libraryStore *library.Store, enrichWorker *worker.Worker, runner BatchRunner, llm LLMHealth, fetch MetadataFetcher, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || queueStore == nil || libraryStore == nil || enrichWorker == nil || logger == nil {
		return nil, errors.New("daemon requires config, stores, worker, and logger")
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, "tunesmithd.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		queue:    queueStore,
		library:  libraryStore,
		worker:   enrichWorker,
		api:      newAPIServer(cfg, queueStore, runner, enrichWorker, llm, fetch, logger),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock, reclaims work orphaned by a crash, and
// launches the worker and API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another tunesmith daemon instance is already running")
	}

	daemonCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	reclaimed, err := d.queue.ReclaimStaleProcessing(daemonCtx, time.Now().UTC().Add(-staleProcessingCutoff))
	if err != nil {
		d.logger.Warn("failed to reclaim stale processing items", logging.Error(err))
	} else if reclaimed > 0 {
		d.logger.Info("reclaimed stale processing items", logging.Int64("count", reclaimed))
	}

	if err := d.api.start(daemonCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return err
	}

	d.worker.Start(daemonCtx)
	d.running.Store(true)
	d.logger.Info("tunesmith daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop halts the worker and API server and releases the instance lock. An
// in-flight batch finishes before the worker stops ticking.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.worker.Stop()
	d.api.stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("tunesmith daemon stopped")
}

// Close stops the daemon and closes both stores.
func (d *Daemon) Close() error {
	d.Stop()
	var errs []error
	if err := d.queue.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := d.library.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Running reports whether the daemon has been started.
func (d *Daemon) Running() bool {
	return d.running.Load()
}
