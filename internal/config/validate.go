package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
//
// Credentials are not required here: commands that talk to a collaborator
// check for their own key so read-only commands work without any setup.
func (c *Config) Validate() error {
	if err := c.validateURLs(); err != nil {
		return err
	}
	if err := c.validateTiming(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateURLs() error {
	values := []struct {
		key      string
		value    string
		optional bool
	}{
		{key: "dispatch.base_url", value: c.Dispatch.BaseURL},
		{key: "dispatch.webhook_url", value: c.Dispatch.WebhookURL, optional: true},
		{key: "calendar.base_url", value: c.Calendar.BaseURL},
		{key: "analysis.webhook_url", value: c.Analysis.WebhookURL, optional: true},
	}
	for _, v := range values {
		if strings.TrimSpace(v.value) == "" {
			if v.optional {
				continue
			}
			return fmt.Errorf("%s must be set", v.key)
		}
		parsed, err := url.Parse(v.value)
		if err != nil {
			return fmt.Errorf("%s: %w", v.key, err)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return fmt.Errorf("%s must be an http(s) URL, got %q", v.key, v.value)
		}
	}
	return nil
}

func (c *Config) validateTiming() error {
	if err := ensurePositiveMap(map[string]int{
		"dispatch.timeout_seconds":      c.Dispatch.TimeoutSeconds,
		"calendar.max_results":          c.Calendar.MaxResults,
		"analysis.stage_seconds":        c.Analysis.StageSeconds,
		"reconcile.poll_interval_ms":    c.Reconcile.PollIntervalMillis,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	}); err != nil {
		return err
	}
	if c.Analysis.TimeoutSeconds < 0 {
		return errors.New("analysis.timeout_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error (got %q)", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
