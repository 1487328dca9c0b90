// Package processor orchestrates one enrichment cycle: claim a batch of
// pending queue items, run them through the extraction engine, persist
// enriched records to the music library, and drive cooperative retries for
// anything that failed or was dropped.
package processor
