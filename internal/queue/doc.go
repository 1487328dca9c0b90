// Package queue persists enrichment work items in SQLite.
//
// Each item is keyed by (platform, platform_id) and moves through
// pending -> processing -> completed | failed, with failures re-queued to
// pending until the retry bound is reached. Items are mutated only by the
// batch processor; nothing in this subsystem deletes them except explicit
// maintenance commands.
package queue
