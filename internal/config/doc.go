// Package config loads, normalizes, and validates meetaudit configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// MEETING_BAAS_API_KEY and GOOGLE_ACCESS_TOKEN. The Config type centralizes
// every knob the CLI and the ingestion server need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
