// Package reconcile keeps a local view of audit records eventually consistent
// with the store that the analysis pipeline writes to.
//
// A Poller owns the view. Each cycle lists every record, merges it per
// meeting with audit.Reconcile, and hands consumers a fresh snapshot only when
// some record changed by value. Stop is safe at any time: once it returns, no
// callback fires again, including for a fetch that was already in flight.
package reconcile
