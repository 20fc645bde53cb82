package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"meetaudit/internal/audit"
	"meetaudit/internal/dispatch"
	"meetaudit/internal/notifications"
	"meetaudit/internal/store"
)

func newAuditsCommand(ctx *commandContext) *cobra.Command {
	auditsCmd := &cobra.Command{
		Use:   "audits",
		Short: "Inspect and start meeting audits",
	}

	auditsCmd.AddCommand(newAuditsListCommand(ctx))
	auditsCmd.AddCommand(newAuditsPastCommand(ctx))
	auditsCmd.AddCommand(newAuditsShowCommand(ctx))
	auditsCmd.AddCommand(newAuditsStartCommand(ctx))

	return auditsCmd
}

func newAuditsListCommand(ctx *commandContext) *cobra.Command {
	var (
		jsonOut  bool
		statuses []string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every tracked audit, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := make(map[audit.Status]struct{}, len(statuses))
			for _, value := range statuses {
				status, ok := audit.ParseStatus(value)
				if !ok {
					return fmt.Errorf("unknown status %q", value)
				}
				filter[status] = struct{}{}
			}

			st, err := ctx.openStore()
			if err != nil {
				return fmt.Errorf("open audit store: %w", err)
			}
			defer st.Close()

			records, err := st.ListAll(cmd.Context())
			if err != nil {
				return err
			}
			if len(filter) > 0 {
				kept := records[:0]
				for _, record := range records {
					if _, ok := filter[record.Status]; ok {
						kept = append(kept, record)
					}
				}
				records = kept
			}

			if jsonOut {
				if records == nil {
					records = []audit.Record{}
				}
				return writeJSON(cmd, records)
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No audits recorded")
				return nil
			}
			fmt.Fprintln(out, renderAuditTable(records))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Only show audits in these statuses (pending, auditing, completed, failed)")
	return cmd
}

// pastView is the JSON shape of the past meetings view.
type pastView struct {
	Stats  store.Stats    `json:"stats"`
	Audits []audit.Record `json:"audits"`
}

func newAuditsPastCommand(ctx *commandContext) *cobra.Command {
	var (
		jsonOut bool
		search  string
	)

	cmd := &cobra.Command{
		Use:   "past",
		Short: "Show completed audit reports with summary stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return fmt.Errorf("open audit store: %w", err)
			}
			defer st.Close()

			records, err := st.ListCompleted(cmd.Context(), search)
			if err != nil {
				return err
			}
			stats, err := st.Stats(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOut {
				if records == nil {
					records = []audit.Record{}
				}
				return writeJSON(cmd, pastView{Stats: stats, Audits: records})
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintln(out, renderField("Total audits", fmt.Sprint(stats.Total)))
			fmt.Fprintln(out, renderField("Completed", fmt.Sprint(stats.Completed)))
			fmt.Fprintln(out, renderField("High risk", renderBadge(fmt.Sprint(stats.HighRisk), highRiskKind(stats.HighRisk), colorize)))
			fmt.Fprintln(out)

			if len(records) == 0 {
				if strings.TrimSpace(search) != "" {
					fmt.Fprintf(out, "No completed audits match %q\n", search)
				} else {
					fmt.Fprintln(out, "No completed audits yet")
				}
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, record := range records {
				rows = append(rows, []string{
					record.MeetingID,
					truncate(record.Title, titleColumnWidth),
					riskLabel(record.Report),
					joinOrDash(reportTopics(record.Report)),
					formatTimestamp(record.UpdatedAt),
				})
			}
			fmt.Fprintln(out, renderTable([]column{
				leftColumn("Meeting"),
				leftColumn("Title"),
				leftColumn("Risk"),
				wrappedColumn("Top Topics", titleColumnWidth),
				rightColumn("Completed"),
			}, rows))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Filter by title (case-insensitive substring)")
	return cmd
}

func reportTopics(report *audit.Report) []string {
	if report == nil {
		return nil
	}
	return report.TopTopics
}

func highRiskKind(count int) statusKind {
	if count > 0 {
		return statusError
	}
	return statusOK
}

func newAuditsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <meeting-id>",
		Short: "Show one audit and its report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return fmt.Errorf("open audit store: %w", err)
			}
			defer st.Close()

			record, err := st.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if record == nil {
				return fmt.Errorf("no audit recorded for meeting %q", args[0])
			}
			if jsonOut {
				return writeJSON(cmd, record)
			}
			out := cmd.OutOrStdout()
			printAuditDetail(out, *record, shouldColorize(out))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func printAuditDetail(out io.Writer, record audit.Record, colorize bool) {
	title := record.Title
	if title == "" {
		title = record.MeetingID
	}
	for _, line := range renderSectionHeader(title, colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderField("Meeting", record.MeetingID))
	fmt.Fprintln(out, renderField("Status", renderBadge(statusLabel(record.Status), auditStatusKind(record.Status), colorize)))
	if record.OrganizerEmail != "" {
		fmt.Fprintln(out, renderField("Requested by", record.OrganizerEmail))
	}
	if record.BotID != "" {
		fmt.Fprintln(out, renderField("Bot", record.BotID))
	}
	fmt.Fprintln(out, renderField("Created", formatTimestamp(record.CreatedAt)))
	fmt.Fprintln(out, renderField("Updated", formatTimestamp(record.UpdatedAt)))
	if record.ErrorMessage != "" {
		fmt.Fprintln(out, renderField("Error", record.ErrorMessage))
	}

	report := record.Report
	if report == nil {
		return
	}
	fmt.Fprintln(out, renderField("Risk", renderBadge(riskLabel(report), riskKind(report.RiskLevel), colorize)))
	if report.Summary != "" {
		fmt.Fprintln(out)
		fmt.Fprintln(out, report.Summary)
	}
	printBullets(out, "Decisions", report.Decisions)
	printBullets(out, "Action items", report.ActionItems)
	printBullets(out, "Top topics", report.TopTopics)
}

func printBullets(out io.Writer, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s:\n", heading)
	for _, item := range items {
		fmt.Fprintf(out, "%s- %s\n", lineIndent, item)
	}
}

func newAuditsStartCommand(ctx *commandContext) *cobra.Command {
	var (
		jsonOut bool
		actor   string
	)

	cmd := &cobra.Command{
		Use:   "start <event-id>",
		Short: "Dispatch a recording bot into a calendar meeting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			meeting, err := ctx.calendarClient().Event(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("load calendar event: %w", err)
			}

			st, err := ctx.openStore()
			if err != nil {
				return fmt.Errorf("open audit store: %w", err)
			}
			defer st.Close()

			coordinator := dispatch.New(st, ctx.dispatchClient(),
				dispatch.WithLogger(ctx.fileLogger()),
				dispatch.WithNotifier(notifications.NewService(cfg)),
				dispatch.WithDefaultRequester(cfg.Dispatch.DefaultRequester),
			)
			result, err := coordinator.StartAudit(cmd.Context(), meeting, dispatch.Actor{Email: actor})
			out := cmd.OutOrStdout()
			switch {
			case errors.Is(err, dispatch.ErrAlreadyInProgress):
				fmt.Fprintf(out, "Audit already in progress for %s; nothing to do\n", meeting.Summary)
				return nil
			case errors.Is(err, dispatch.ErrNoJoinableLink):
				return fmt.Errorf("meeting %q has no conferencing link or location to join", meeting.Summary)
			case err != nil:
				return err
			}

			if jsonOut {
				return writeJSON(cmd, result)
			}
			fmt.Fprintf(out, "Bot dispatched to %s\n", meeting.Summary)
			fmt.Fprintln(out, renderField("Bot", result.BotID))
			fmt.Fprintln(out, renderField("Status", statusLabel(result.Record.Status)))
			fmt.Fprintln(out, renderField("Correlation ID", result.CorrelationID))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&actor, "as", "", "Requester email recorded on the bot (defaults to the organizer)")
	return cmd
}
