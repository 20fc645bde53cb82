package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"meetaudit/internal/audit"
	"meetaudit/internal/reconcile"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow audit status changes until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if interval <= 0 {
				interval = cfg.PollInterval()
			}

			st, err := ctx.openStore()
			if err != nil {
				return fmt.Errorf("open audit store: %w", err)
			}
			defer st.Close()

			out := cmd.OutOrStdout()
			errOut := cmd.ErrOrStderr()
			colorize := shouldColorize(out)
			poller := reconcile.New(st, reconcile.WithLogger(ctx.fileLogger()))

			err = poller.Start(interval,
				func(records []audit.Record) {
					renderWatchUpdate(out, records, colorize)
				},
				func(err error) {
					fmt.Fprintf(errOut, "warn: refresh failed: %v\n", err)
				},
			)
			if err != nil {
				return err
			}
			fmt.Fprintf(errOut, "Watching audits every %s (Ctrl+C to stop)\n", interval)

			<-cmd.Context().Done()
			poller.Stop()
			return nil
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "Refresh interval (defaults to reconcile.poll_interval_ms)")
	return cmd
}

func renderWatchUpdate(out io.Writer, records []audit.Record, colorize bool) {
	header := fmt.Sprintf("Audits at %s", time.Now().Format("15:04:05"))
	for _, line := range renderSectionHeader(header, colorize) {
		fmt.Fprintln(out, line)
	}
	if len(records) == 0 {
		fmt.Fprintln(out, "No audits recorded")
		return
	}
	fmt.Fprintln(out, renderAuditTable(records))

	var active, highRisk int
	for _, record := range records {
		if record.Status.InProgress() {
			active++
		}
		if riskLevelOf(record) == audit.RiskHigh {
			highRisk++
		}
	}
	fmt.Fprintln(out, renderField("In progress", fmt.Sprint(active)))
	fmt.Fprintln(out, renderField("High risk", renderBadge(fmt.Sprint(highRisk), highRiskKind(highRisk), colorize)))
}

func riskLevelOf(record audit.Record) audit.RiskLevel {
	if record.Report == nil {
		return ""
	}
	return record.Report.RiskLevel
}
