// Package calendar reads upcoming meetings from the Google Calendar v3 events API.
//
// Only the fields the audit flow depends on are decoded: identifiers, title,
// description, start time, organizer, and the conferencing link or location a
// bot can join.
package calendar
