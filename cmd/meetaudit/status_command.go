package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"meetaudit/internal/api"
	"meetaudit/internal/config"
	"meetaudit/internal/preflight"
)

// requiredChecks fail the status report; the rest only warn.
var requiredChecks = map[string]struct{}{
	"State directory": {},
	"Log directory":   {},
	"Audit database":  {},
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and dependency health",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, daemonStatusLine(cmd.Context(), cfg, colorize))
			fmt.Fprintln(out)

			for _, line := range renderSectionHeader("Dependencies", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, line := range preflightLines(preflight.RunAll(cmd.Context(), cfg), colorize) {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
}

func daemonStatusLine(ctx context.Context, cfg *config.Config, colorize bool) string {
	client, err := api.NewClient(cfg.Paths.APIBind)
	if err != nil {
		return renderStatusLine("meetaudit", statusError, fmt.Sprintf("Invalid api_bind: %v", err), colorize)
	}
	status, err := client.Status(ctx)
	if err != nil {
		if api.IsUnavailable(err) {
			return renderStatusLine("meetaudit", statusWarn, "Not running", colorize)
		}
		return renderStatusLine("meetaudit", statusWarn, err.Error(), colorize)
	}
	detail := fmt.Sprintf("Running on %s (%d tracked, %d completed, %d high risk)",
		status.APIAddress, status.Tracked, status.Stats.Completed, status.Stats.HighRisk)
	return renderStatusLine("meetaudit", statusOK, detail, colorize)
}

func preflightLines(results []preflight.Result, colorize bool) []string {
	lines := make([]string, 0, len(results))
	for _, result := range results {
		kind := statusOK
		if !result.Passed {
			kind = statusWarn
			if _, required := requiredChecks[result.Name]; required {
				kind = statusError
			}
		}
		lines = append(lines, renderStatusLine(result.Name, kind, result.Detail, colorize))
	}
	return lines
}
