// Package store persists audit records in SQLite.
//
// The adapter is deliberately narrow: whole-record upserts keyed by meeting
// id, point reads, and list queries. Writes carry last-write-wins semantics on
// updated_at so a stale writer can never overwrite a newer record. Schema
// creation is embedded and versioned; transient SQLITE_BUSY errors are retried
// with backoff before surfacing as services.ErrStore.
package store
