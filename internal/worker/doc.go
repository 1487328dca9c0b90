// Package worker drives the batch processor on a timer. It guarantees that
// at most one batch is in flight at any instant: ticks that land while a
// batch is running or while the worker is paused are skipped outright, never
// queued. Failures inside a tick are logged and absorbed so the worker keeps
// running unattended.
package worker
