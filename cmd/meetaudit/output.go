package main

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"meetaudit/internal/audit"
)

var titleCaser = cases.Title(language.English)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// statusLabel renders a status for humans; "none" reads as "Not audited".
func statusLabel(status audit.Status) string {
	if status == audit.StatusNone || status == "" {
		return "Not audited"
	}
	return titleCaser.String(string(status))
}

func riskLabel(report *audit.Report) string {
	if report == nil || report.RiskLevel == "" {
		return "-"
	}
	return titleCaser.String(string(report.RiskLevel))
}

func riskKind(level audit.RiskLevel) statusKind {
	switch level {
	case audit.RiskLow:
		return statusOK
	case audit.RiskMedium:
		return statusWarn
	case audit.RiskHigh:
		return statusError
	default:
		return statusInfo
	}
}

func auditStatusKind(status audit.Status) statusKind {
	switch status {
	case audit.StatusCompleted:
		return statusOK
	case audit.StatusFailed:
		return statusError
	case audit.StatusPending, audit.StatusAuditing:
		return statusWarn
	default:
		return statusInfo
	}
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	runes := []rune(value)
	if limit <= 0 || len(runes) <= limit {
		return value
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}

func joinOrDash(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	return strings.Join(values, ", ")
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
