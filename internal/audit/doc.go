// Package audit defines the lifecycle of a meeting audit record.
//
// A record moves none → pending → auditing → completed, with failed reachable
// from pending or auditing. Completed and failed records start a new cycle
// only through an explicit re-dispatch back to pending carrying a strictly
// greater UpdatedAt. Transition enforces that table; Reconcile merges a local
// view with an authoritative remote read and never rejects, because the
// remote writer owns completion.
//
// Everything here is pure: no I/O, no clocks. Callers supply timestamps.
package audit
