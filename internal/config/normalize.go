package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDispatch()
	c.normalizeCalendar()
	c.normalizeAnalysis()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("MEETAUDIT_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeDispatch() {
	c.Dispatch.APIKey = strings.TrimSpace(c.Dispatch.APIKey)
	if c.Dispatch.APIKey == "" {
		if value, ok := os.LookupEnv("MEETING_BAAS_API_KEY"); ok {
			c.Dispatch.APIKey = strings.TrimSpace(value)
		}
	}
	c.Dispatch.BaseURL = strings.TrimRight(strings.TrimSpace(c.Dispatch.BaseURL), "/")
	if c.Dispatch.BaseURL == "" {
		c.Dispatch.BaseURL = defaultDispatchBaseURL
	}
	c.Dispatch.BotName = strings.TrimSpace(c.Dispatch.BotName)
	if c.Dispatch.BotName == "" {
		c.Dispatch.BotName = defaultBotName
	}
	c.Dispatch.RecordingMode = strings.ToLower(strings.TrimSpace(c.Dispatch.RecordingMode))
	if c.Dispatch.RecordingMode == "" {
		c.Dispatch.RecordingMode = defaultRecordingMode
	}
	c.Dispatch.TranscriptionProvider = strings.ToLower(strings.TrimSpace(c.Dispatch.TranscriptionProvider))
	if c.Dispatch.TranscriptionProvider == "" {
		c.Dispatch.TranscriptionProvider = defaultTranscriptionProvider
	}
	c.Dispatch.WebhookURL = strings.TrimSpace(c.Dispatch.WebhookURL)
	c.Dispatch.DefaultRequester = strings.TrimSpace(c.Dispatch.DefaultRequester)
	if c.Dispatch.TimeoutSeconds <= 0 {
		c.Dispatch.TimeoutSeconds = defaultDispatchTimeoutSeconds
	}
}

func (c *Config) normalizeCalendar() {
	c.Calendar.AccessToken = strings.TrimSpace(c.Calendar.AccessToken)
	if c.Calendar.AccessToken == "" {
		if value, ok := os.LookupEnv("GOOGLE_ACCESS_TOKEN"); ok {
			c.Calendar.AccessToken = strings.TrimSpace(value)
		}
	}
	c.Calendar.BaseURL = strings.TrimRight(strings.TrimSpace(c.Calendar.BaseURL), "/")
	if c.Calendar.BaseURL == "" {
		c.Calendar.BaseURL = defaultCalendarBaseURL
	}
	if c.Calendar.MaxResults <= 0 {
		c.Calendar.MaxResults = defaultCalendarMaxResults
	}
}

func (c *Config) normalizeAnalysis() {
	c.Analysis.WebhookURL = strings.TrimSpace(c.Analysis.WebhookURL)
	if c.Analysis.WebhookURL == "" {
		if value, ok := os.LookupEnv("MEETAUDIT_ANALYSIS_URL"); ok {
			c.Analysis.WebhookURL = strings.TrimSpace(value)
		}
	}
	if c.Analysis.TimeoutSeconds < 0 {
		c.Analysis.TimeoutSeconds = 0
	}
	if c.Analysis.StageSeconds <= 0 {
		c.Analysis.StageSeconds = defaultStageSeconds
	}
	c.Analysis.StillWorkingMessage = strings.TrimSpace(c.Analysis.StillWorkingMessage)
	if c.Analysis.StillWorkingMessage == "" {
		c.Analysis.StillWorkingMessage = defaultStillWorkingMessage
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
