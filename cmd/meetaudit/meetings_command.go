package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"meetaudit/internal/audit"
	"meetaudit/internal/services/calendar"
)

// meetingView pairs an upcoming event with its local audit state.
type meetingView struct {
	calendar.Meeting
	AuditStatus audit.Status `json:"audit_status"`
	CanAudit    bool         `json:"can_audit"`
}

func newMeetingsCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "meetings",
		Short: "List upcoming calendar meetings with their audit status",
		RunE: func(cmd *cobra.Command, args []string) error {
			meetings, err := ctx.calendarClient().Upcoming(cmd.Context())
			if err != nil {
				return fmt.Errorf("list upcoming meetings: %w", err)
			}

			st, err := ctx.openStore()
			if err != nil {
				return fmt.Errorf("open audit store: %w", err)
			}
			defer st.Close()

			views := make([]meetingView, 0, len(meetings))
			for _, meeting := range meetings {
				record, err := st.Get(cmd.Context(), meeting.ID)
				if err != nil {
					return fmt.Errorf("load audit for %s: %w", meeting.ID, err)
				}
				current := audit.Empty(meeting.ID)
				if record != nil {
					current = *record
				}
				_, joinable := meeting.JoinURL()
				views = append(views, meetingView{
					Meeting:     meeting,
					AuditStatus: current.Status,
					CanAudit:    joinable && audit.CanDispatch(current),
				})
			}

			if jsonOut {
				return writeJSON(cmd, views)
			}
			out := cmd.OutOrStdout()
			if len(views) == 0 {
				fmt.Fprintln(out, "No upcoming meetings")
				return nil
			}

			rows := make([][]string, 0, len(views))
			for _, view := range views {
				link, ok := view.JoinURL()
				if !ok {
					link = "(no link)"
				}
				rows = append(rows, []string{
					view.ID,
					formatTimestamp(view.Start),
					truncate(view.Summary, titleColumnWidth),
					truncate(link, titleColumnWidth),
					statusLabel(view.AuditStatus),
					yesNo(view.CanAudit),
				})
			}
			fmt.Fprintln(out, renderTable([]column{
				leftColumn("Event"),
				rightColumn("Start"),
				leftColumn("Title"),
				leftColumn("Join"),
				leftColumn("Audit"),
				leftColumn("Can Audit"),
			}, rows))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}
