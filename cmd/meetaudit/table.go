package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"meetaudit/internal/audit"
)

const (
	titleColumnWidth = 40
	pointColumnWidth = 72
)

// column describes one table column. Cells wider than wrap are soft-wrapped
// onto extra lines; titles are truncated by callers instead.
type column struct {
	header string
	align  text.Align
	wrap   int
}

func leftColumn(header string) column { return column{header: header, align: text.AlignLeft} }
func rightColumn(header string) column { return column{header: header, align: text.AlignRight} }

func wrappedColumn(header string, width int) column {
	return column{header: header, align: text.AlignLeft, wrap: width}
}

func renderTable(columns []column, rows [][]string) string {
	if len(columns) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.Style().Format.Header = text.FormatDefault
	tw.Style().Options.SeparateRows = false

	header := make(table.Row, 0, len(columns))
	configs := make([]table.ColumnConfig, 0, len(columns))
	for i, col := range columns {
		header = append(header, col.header)
		cfg := table.ColumnConfig{Number: i + 1, Align: col.align, AlignHeader: text.AlignLeft}
		if col.wrap > 0 {
			cfg.WidthMax = col.wrap
			cfg.WidthMaxEnforcer = text.WrapSoft
		}
		configs = append(configs, cfg)
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		cells := make(table.Row, len(columns))
		for i := range cells {
			cells[i] = ""
			if i < len(row) {
				cells[i] = row[i]
			}
		}
		tw.AppendRow(cells)
	}
	return tw.Render()
}

// renderAuditTable lists records in the order given.
func renderAuditTable(records []audit.Record) string {
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, []string{
			record.MeetingID,
			truncate(record.Title, titleColumnWidth),
			statusLabel(record.Status),
			riskLabel(record.Report),
			formatTimestamp(record.UpdatedAt),
		})
	}
	return renderTable([]column{
		leftColumn("Meeting"),
		leftColumn("Title"),
		leftColumn("Status"),
		leftColumn("Risk"),
		rightColumn("Updated"),
	}, rows)
}
