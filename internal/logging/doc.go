// Package logging assembles structured slog loggers and formatting helpers used
// across meetaudit.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so dispatch and polling code can
// tag log lines with meeting IDs and correlation IDs. A no-op logger is
// provided for tests and wiring code that cannot fail.
package logging
