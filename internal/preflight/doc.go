// Package preflight provides readiness checks for the directories and
// external services meetaudit depends on.
//
// The daemon runs RunAll at startup and logs failures as warnings so a
// missing credential surfaces before the first dispatch. The CLI "meetaudit
// status" command renders the same results as a table.
//
// Checks for optional collaborators (calendar, analysis) report a failing
// result instead of being skipped when their configuration is blank.
package preflight
