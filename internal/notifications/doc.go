// Package notifications delivers audit lifecycle events via ntfy.
//
// The default implementation publishes to the topic configured in
// config.toml and degrades to a no-op when no topic is set. Per-category
// toggles (dispatch, completion, errors) suppress events the user does not
// want on their phone.
package notifications
