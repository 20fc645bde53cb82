package main

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/jedib0t/go-pretty/v6/text"

	"meetaudit/internal/audit"
	"meetaudit/internal/preflight"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("meetaudit", statusError, "Not running", false)
	want := fmt.Sprintf("%s%-*s %s", lineIndent, labelWidth, "meetaudit:", "[ERROR] Not running")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("meetaudit", statusOK, "Running", true)
	if want := text.FgGreen.Sprint(renderStatusLine("meetaudit", statusOK, "Running", false)); got != want {
		t.Fatalf("expected green line\n got: %q\nwant: %q", got, want)
	}
}

func TestPreflightLinesSeverity(t *testing.T) {
	lines := preflightLines([]preflight.Result{
		{Name: "State directory", Detail: "missing"},
		{Name: "Calendar", Detail: "missing access token"},
		{Name: "Bot dispatch", Passed: true, Detail: "API key configured"},
	}, false)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "[ERROR] missing") {
		t.Fatalf("expected required check to error, got %q", lines[0])
	}
	if !strings.Contains(lines[1], "[WARN] missing access token") {
		t.Fatalf("expected optional check to warn, got %q", lines[1])
	}
	if !strings.Contains(lines[2], "[OK] API key configured") {
		t.Fatalf("expected passing check, got %q", lines[2])
	}
}

func TestLabels(t *testing.T) {
	if got := statusLabel(audit.StatusNone); got != "Not audited" {
		t.Fatalf("statusLabel(none) = %q", got)
	}
	if got := statusLabel(audit.StatusAuditing); got != "Auditing" {
		t.Fatalf("statusLabel(auditing) = %q", got)
	}
	if got := riskLabel(&audit.Report{RiskLevel: audit.RiskMedium}); got != "Medium" {
		t.Fatalf("riskLabel = %q", got)
	}
	if got := truncate("Quarterly business review", 12); got != "Quarterly..." {
		t.Fatalf("truncate = %q", got)
	}
}

func TestStatusCommandReportsDaemonDown(t *testing.T) {
	env := setupCLITestEnv(t, envOptions{})
	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Not running")
	requireContains(t, out, "State directory:")
	requireContains(t, out, "Audit database:")
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}
