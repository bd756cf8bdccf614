// Package store persists bus events into a SQLite time-series table.
//
// Writes are batched: Ingest enqueues into a bounded in-memory queue and
// a background loop flushes batches in single transactions, retrying with
// exponential backoff and re-queuing the batch on failure so transient
// database errors never lose events outright. Reads go through QueryRange,
// a restartable paged cursor the learning engine streams from. A cron
// scheduled pruner enforces the retention window.
package store
