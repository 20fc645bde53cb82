// Package dispatch coordinates one user-triggered "start audit" action.
//
// StartAudit checks that no dispatch is outstanding for the meeting, resolves
// a joinable link, persists an optimistic pending record, and only then asks
// the bot service to join. A failed join marks the record failed and is
// reported to the caller; it is never retried here, since a retry can put two
// bots into a live meeting. Moving the record past pending is the analysis
// pipeline's job.
package dispatch
