// Package services defines shared utilities consumed by the audit coordinator
// and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp meeting IDs, narration session IDs, and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper so failures from the
//     store, the bot-dispatch service, and the analysis pipeline classify
//     uniformly (retryable vs needs-a-fix).
//
// Subpackages hold the HTTP clients for the external collaborators: the bot
// dispatch service, the calendar, and the analysis webhook.
package services
