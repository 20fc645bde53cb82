package main

import (
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"meetaudit/internal/config"
	"meetaudit/internal/logging"
	"meetaudit/internal/services/analysis"
	"meetaudit/internal/services/calendar"
	"meetaudit/internal/services/meetingbaas"
	"meetaudit/internal/store"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) openStore() (*store.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return store.Open(cfg)
}

// fileLogger logs CLI activity to the log file only so command output stays clean.
func (c *commandContext) fileLogger() *slog.Logger {
	cfg := c.configValue()
	if cfg == nil {
		return logging.NewNop()
	}
	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{filepath.Join(cfg.Paths.LogDir, "meetaudit.log")},
	})
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

func (c *commandContext) calendarClient() *calendar.Client {
	cfg := c.configValue()
	return calendar.NewClient(calendar.Config{
		BaseURL:     cfg.Calendar.BaseURL,
		AccessToken: cfg.Calendar.AccessToken,
		MaxResults:  cfg.Calendar.MaxResults,
	})
}

func (c *commandContext) dispatchClient() *meetingbaas.Client {
	cfg := c.configValue()
	return meetingbaas.NewClient(meetingbaas.Config{
		BaseURL:               cfg.Dispatch.BaseURL,
		APIKey:                cfg.Dispatch.APIKey,
		BotName:               cfg.Dispatch.BotName,
		RecordingMode:         cfg.Dispatch.RecordingMode,
		WebhookURL:            cfg.Dispatch.WebhookURL,
		TranscriptionProvider: cfg.Dispatch.TranscriptionProvider,
		TimeoutSeconds:        cfg.Dispatch.TimeoutSeconds,
	})
}

func (c *commandContext) analysisClient() *analysis.Client {
	cfg := c.configValue()
	return analysis.NewClient(cfg.Analysis.WebhookURL, time.Duration(cfg.Analysis.TimeoutSeconds)*time.Second)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
