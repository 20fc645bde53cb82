// Package daemon coordinates the long-running meetaudit process.
//
// It wires configuration, the audit store, the reconciliation poller, and
// the ingestion API into a single lifecycle with flock-based locking to
// prevent multiple instances. The analysis pipeline reports progress by
// posting to the ingestion API; the poller keeps the daemon's view in step
// with any other writer of the store, and completion or failure of an audit
// triggers a notification exactly once per status change.
//
// Keep orchestration logic here: state machine rules live in internal/audit
// and persistence in internal/store.
package daemon
