// Package daemon is the composition root for the tunesmith background
// service: it owns the queue and library stores, the enrichment worker, the
// HTTP control API, and the single-instance file lock.
package daemon
