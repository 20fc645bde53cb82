package testsupport

import (
	"path/filepath"
	"testing"

	"meetaudit/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Dispatch.APIKey = "test"
	cfgVal.Dispatch.WebhookURL = "https://hooks.example.test/autopilot"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithDispatchURL points the dispatch client at a test server.
func WithDispatchURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Dispatch.BaseURL = url
	}
}

// WithAnalysisURL points the analysis client at a test server.
func WithAnalysisURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Analysis.WebhookURL = url
	}
}

// WithCalendarURL points the calendar client at a test server.
func WithCalendarURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Calendar.BaseURL = url
		b.cfg.Calendar.AccessToken = "test-token"
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
