// Package api defines the wire-format types shared by the daemon's HTTP
// surface and the CLI, plus a small client for reading daemon state.
//
// # Key Types
//
// DaemonStatus: running state, lock and database paths, listener address,
// and aggregate audit counts.
//
// IngestRequest: a status report posted by the analysis pipeline.
//
// AuditListResponse/AuditResponse: record payloads returned by the audit
// endpoints.
//
// # Client
//
// Client talks to a running daemon over its bind address. IsUnavailable
// distinguishes "daemon not running" from real failures so callers can
// render it as a status rather than an error.
package api
