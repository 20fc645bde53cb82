package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	// APIToken, when set, is required as a bearer token on the ingestion API.
	APIToken string `toml:"api_token"`
}

// Dispatch contains configuration for the bot-dispatch service that joins meetings.
type Dispatch struct {
	BaseURL               string `toml:"base_url"`
	APIKey                string `toml:"api_key"`
	BotName               string `toml:"bot_name"`
	RecordingMode         string `toml:"recording_mode"`
	WebhookURL            string `toml:"webhook_url"`
	TranscriptionProvider string `toml:"transcription_provider"`
	DefaultRequester      string `toml:"default_requester"`
	TimeoutSeconds        int    `toml:"timeout_seconds"`
}

// Calendar contains configuration for the upcoming-meetings collaborator.
type Calendar struct {
	BaseURL     string `toml:"base_url"`
	AccessToken string `toml:"access_token"`
	MaxResults  int    `toml:"max_results"`
}

// Analysis contains configuration for the narrated meeting analysis call.
type Analysis struct {
	WebhookURL string `toml:"webhook_url"`
	// TimeoutSeconds bounds the HTTP call. Zero leaves the call unbounded so a
	// slow pipeline stays "still working" instead of failing.
	TimeoutSeconds      int    `toml:"timeout_seconds"`
	StageSeconds        int    `toml:"stage_seconds"`
	StillWorkingMessage string `toml:"still_working_message"`
}

// Reconcile contains configuration for the store reconciliation poller.
type Reconcile struct {
	PollIntervalMillis int `toml:"poll_interval_ms"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Dispatch       bool   `toml:"dispatch"`
	Completion     bool   `toml:"completion"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for meetaudit.
//
// Configuration sections by subsystem:
//   - Paths: state/log directories and the API bind address
//   - Dispatch: bot-dispatch service credentials and bot payload defaults
//   - Calendar: upcoming meeting listing
//   - Analysis: manual analysis webhook and narration timing
//   - Reconcile: store polling cadence
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Dispatch      Dispatch      `toml:"dispatch"`
	Calendar      Calendar      `toml:"calendar"`
	Analysis      Analysis      `toml:"analysis"`
	Reconcile     Reconcile     `toml:"reconcile"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("meetaudit.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the audit record database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.StateDir, "audits.db")
}

// LockPath returns the location of the single-instance server lock.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "meetaudit.lock")
}

// PollInterval returns the reconciliation cadence.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Reconcile.PollIntervalMillis) * time.Millisecond
}

// StageDuration returns how long each narration stage stays visible.
func (c *Config) StageDuration() time.Duration {
	return time.Duration(c.Analysis.StageSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
