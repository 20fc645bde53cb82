// Package narrator shows a human a sequence of status messages while one real
// operation runs, then resolves to that operation's outcome.
//
// Two timelines race inside Run: the stage timer and the operation. The
// operation always wins: the moment it resolves, narration stops and its
// outcome is returned, even if a stage timer fired in the same instant. When
// the stages run out first, a "still working" message is held until the
// operation finishes. Every observer call happens on the caller's goroutine
// before Run returns, so nothing fires after the session closes.
package narrator
