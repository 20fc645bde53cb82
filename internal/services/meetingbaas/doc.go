// Package meetingbaas asks the Meeting BaaS service to send a recording bot
// into a meeting.
//
// One call per Dispatch: the client never retries, because a retried join
// request can put two bots into a live meeting.
package meetingbaas
