package audit

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// ErrInvalidTransition is returned when a status change is not in the allowed table.
var ErrInvalidTransition = errors.New("invalid audit transition")

type statusTransition struct {
	from Status
	to   Status
}

var allowedTransitions = []statusTransition{
	{from: StatusNone, to: StatusPending},
	{from: StatusPending, to: StatusAuditing},
	{from: StatusPending, to: StatusFailed},
	{from: StatusAuditing, to: StatusCompleted},
	{from: StatusAuditing, to: StatusFailed},
	{from: StatusCompleted, to: StatusPending},
	{from: StatusFailed, to: StatusPending},
}

// CanTransition reports whether from → to appears in the allowed table.
func CanTransition(from, to Status) bool {
	return slices.Contains(allowedTransitions, statusTransition{from: normalizeStatus(from), to: to})
}

func isRedispatch(from, to Status) bool {
	return to == StatusPending && (from == StatusCompleted || from == StatusFailed)
}

// Transition applies a status change stamped at the given time.
//
// Moving to pending clears any previous report, error, and bot id. A
// re-dispatch from completed or failed requires at to be strictly after the
// current UpdatedAt; every other transition requires it to be no earlier.
// Moving to completed keeps current.Report, so callers attach the report first.
func Transition(current Record, to Status, at time.Time) (Record, error) {
	from := normalizeStatus(current.Status)
	if !CanTransition(from, to) {
		return current, fmt.Errorf("%w: %s → %s for %s", ErrInvalidTransition, from, to, current.MeetingID)
	}
	if isRedispatch(from, to) {
		if !at.After(current.UpdatedAt) {
			return current, fmt.Errorf("%w: re-dispatch of %s needs a timestamp after %s", ErrInvalidTransition, current.MeetingID, current.UpdatedAt.Format(time.RFC3339Nano))
		}
	} else if at.Before(current.UpdatedAt) {
		return current, fmt.Errorf("%w: %s would move updated_at backwards", ErrInvalidTransition, current.MeetingID)
	}

	next := current.Clone()
	next.Status = to
	next.UpdatedAt = at
	if next.CreatedAt.IsZero() {
		next.CreatedAt = at
	}
	switch to {
	case StatusPending:
		next.Report = nil
		next.ErrorMessage = ""
		next.BotID = ""
	case StatusAuditing:
		next.Report = nil
	case StatusFailed:
		next.Report = nil
	}
	return next, nil
}

// CanDispatch reports whether a new dispatch may start for the record.
func CanDispatch(record Record) bool {
	switch normalizeStatus(record.Status) {
	case StatusNone, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// NextTimestamp returns now, or one nanosecond past prev when now does not
// exceed it. Clocks that stall or step back still yield strictly greater stamps.
func NextTimestamp(prev, now time.Time) time.Time {
	now = now.UTC()
	if now.After(prev) {
		return now
	}
	return prev.UTC().Add(time.Nanosecond)
}

func normalizeStatus(status Status) Status {
	if status == "" {
		return StatusNone
	}
	return status
}
