package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"meetaudit/internal/config"
)

func TestLoadDefaultConfigUsesEnvKeysAndExpandsPaths(t *testing.T) {
	t.Setenv("MEETING_BAAS_API_KEY", "bot-key")
	t.Setenv("GOOGLE_ACCESS_TOKEN", "token")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "meetaudit")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.DatabasePath() != filepath.Join(wantState, "audits.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.Dispatch.APIKey != "bot-key" {
		t.Fatalf("expected dispatch key from env, got %q", cfg.Dispatch.APIKey)
	}
	if cfg.Calendar.AccessToken != "token" {
		t.Fatalf("expected calendar token from env, got %q", cfg.Calendar.AccessToken)
	}
	if cfg.Dispatch.BotName != "AI Meeting Auditor" {
		t.Fatalf("unexpected bot name: %q", cfg.Dispatch.BotName)
	}
	if cfg.Analysis.StageSeconds != 13 || cfg.StageDuration().Seconds() != 13 {
		t.Fatalf("unexpected stage seconds: %d", cfg.Analysis.StageSeconds)
	}
	if cfg.PollInterval().Milliseconds() != 5000 {
		t.Fatalf("unexpected poll interval: %s", cfg.PollInterval())
	}
	if cfg.Analysis.StillWorkingMessage != "Finishing up..." {
		t.Fatalf("unexpected still working message: %q", cfg.Analysis.StillWorkingMessage)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("MEETING_BAAS_API_KEY", "")

	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := `
[paths]
state_dir = "~/state"

[dispatch]
api_key = "file-key"
base_url = "https://bots.example.com/"
webhook_url = "https://hooks.example.com/autopilot"

[reconcile]
poll_interval_ms = 250

[logging]
format = "JSON"
level = "debug"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config to exist")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.Paths.StateDir != filepath.Join(tempHome, "state") {
		t.Fatalf("unexpected state dir: %q", cfg.Paths.StateDir)
	}
	if cfg.Dispatch.APIKey != "file-key" {
		t.Fatalf("unexpected api key: %q", cfg.Dispatch.APIKey)
	}
	if cfg.Dispatch.BaseURL != "https://bots.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Dispatch.BaseURL)
	}
	if cfg.Reconcile.PollIntervalMillis != 250 {
		t.Fatalf("unexpected poll interval: %d", cfg.Reconcile.PollIntervalMillis)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
}

func TestConfigFileKeyWinsOverEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("MEETING_BAAS_API_KEY", "env-key")

	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte("[dispatch]\napi_key = \"file-key\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Dispatch.APIKey != "file-key" {
		t.Fatalf("expected file key to win, got %q", cfg.Dispatch.APIKey)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var decoded config.Config
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("sample config is not valid TOML: %v", err)
	}
	if decoded.Analysis.StageSeconds != 13 {
		t.Fatalf("unexpected sample stage seconds: %d", decoded.Analysis.StageSeconds)
	}
	if !strings.Contains(string(data), "[reconcile]") {
		t.Fatal("expected reconcile section in sample")
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "bad dispatch url",
			mutate: func(c *config.Config) { c.Dispatch.BaseURL = "ftp://bots" },
			want:   "dispatch.base_url",
		},
		{
			name:   "bad analysis url",
			mutate: func(c *config.Config) { c.Analysis.WebhookURL = "localhost:5678" },
			want:   "analysis.webhook_url",
		},
		{
			name:   "zero poll interval",
			mutate: func(c *config.Config) { c.Reconcile.PollIntervalMillis = 0 },
			want:   "reconcile.poll_interval_ms",
		},
		{
			name:   "negative analysis timeout",
			mutate: func(c *config.Config) { c.Analysis.TimeoutSeconds = -1 },
			want:   "analysis.timeout_seconds",
		},
		{
			name:   "unknown log level",
			mutate: func(c *config.Config) { c.Logging.Level = "verbose" },
			want:   "logging.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestDefaultConfigValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}
