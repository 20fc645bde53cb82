// Command meetaudit dispatches recording bots into calendar meetings, tracks
// each meeting's audit through the analysis pipeline, and renders the
// results.
//
// Commands that only read the local store (audits list/past/show, watch)
// work offline. "meetaudit serve" runs the long-lived daemon that receives
// pipeline status reports; "meetaudit status" reports its health alongside
// the preflight checks.
package main
