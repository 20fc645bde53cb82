package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"meetaudit/internal/config"
	"meetaudit/internal/store"
	"meetaudit/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	store      *store.Store
	configPath string
}

type envOptions struct {
	calendar http.Handler
	dispatch http.Handler
	analysis http.Handler
}

func setupCLITestEnv(t *testing.T, opts envOptions) *cliTestEnv {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	cfg := testsupport.NewConfig(t)
	cfg.Calendar.BaseURL = "https://calendar.example.test"
	cfg.Calendar.AccessToken = "test-token"
	cfg.Analysis.WebhookURL = ""

	if opts.calendar != nil {
		cfg.Calendar.BaseURL = serve(t, opts.calendar)
	}
	if opts.dispatch != nil {
		cfg.Dispatch.BaseURL = serve(t, opts.dispatch)
	}
	if opts.analysis != nil {
		cfg.Analysis.WebhookURL = serve(t, opts.analysis)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		store:      testsupport.MustOpenStore(t, cfg),
		configPath: configPath,
	}
}

func serve(t *testing.T, handler http.Handler) string {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv.URL
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, "[paths]\nstate_dir = %q\nlog_dir = %q\napi_bind = %q\n\n", cfg.Paths.StateDir, cfg.Paths.LogDir, cfg.Paths.APIBind)
	fmt.Fprintf(&b, "[dispatch]\nbase_url = %q\napi_key = %q\nwebhook_url = %q\n\n", cfg.Dispatch.BaseURL, cfg.Dispatch.APIKey, cfg.Dispatch.WebhookURL)
	fmt.Fprintf(&b, "[calendar]\nbase_url = %q\naccess_token = %q\n\n", cfg.Calendar.BaseURL, cfg.Calendar.AccessToken)
	fmt.Fprintf(&b, "[analysis]\nwebhook_url = %q\n", cfg.Analysis.WebhookURL)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func requireNotContains(t *testing.T, output, substr string) {
	t.Helper()
	if strings.Contains(output, substr) {
		t.Fatalf("expected %q not to contain %q", output, substr)
	}
}
