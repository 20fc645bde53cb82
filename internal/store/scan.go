package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"meetaudit/internal/audit"
)

// storedTimeLayout is fixed-width so that lexical order in SQLite matches time order.
const storedTimeLayout = "2006-01-02T15:04:05.000000000Z"

type recordRow struct {
	meetingID      string
	title          any
	status         string
	organizerEmail any
	errorMessage   any
	botID          any
	summary        any
	decisions      any
	actionItems    any
	topTopics      any
	riskLevel      any
	createdAt      string
	updatedAt      string
}

func (r recordRow) args() []any {
	return []any{
		r.meetingID, r.title, r.status, r.organizerEmail, r.errorMessage, r.botID,
		r.summary, r.decisions, r.actionItems, r.topTopics, r.riskLevel,
		r.createdAt, r.updatedAt,
	}
}

func encodeRecord(record audit.Record) (recordRow, error) {
	status := record.Status
	if status == "" {
		status = audit.StatusNone
	}
	created := record.CreatedAt
	if created.IsZero() {
		created = record.UpdatedAt
	}
	row := recordRow{
		meetingID:      record.MeetingID,
		title:          nullableString(record.Title),
		status:         string(status),
		organizerEmail: nullableString(record.OrganizerEmail),
		errorMessage:   nullableString(record.ErrorMessage),
		botID:          nullableString(record.BotID),
		createdAt:      formatTime(created),
		updatedAt:      formatTime(record.UpdatedAt),
	}
	if report := record.Report; report != nil {
		var err error
		row.summary = nullableString(report.Summary)
		row.riskLevel = string(report.RiskLevel)
		if row.decisions, err = encodeList(report.Decisions); err != nil {
			return row, err
		}
		if row.actionItems, err = encodeList(report.ActionItems); err != nil {
			return row, err
		}
		if row.topTopics, err = encodeList(audit.NormalizeTopics(report.TopTopics)); err != nil {
			return row, err
		}
	}
	return row, nil
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*audit.Record, error) {
	var (
		meetingID      string
		title          sql.NullString
		status         string
		organizerEmail sql.NullString
		errorMessage   sql.NullString
		botID          sql.NullString
		summary        sql.NullString
		decisions      sql.NullString
		actionItems    sql.NullString
		topTopics      sql.NullString
		riskLevel      sql.NullString
		createdRaw     sql.NullString
		updatedRaw     sql.NullString
	)
	if err := scanner.Scan(
		&meetingID,
		&title,
		&status,
		&organizerEmail,
		&errorMessage,
		&botID,
		&summary,
		&decisions,
		&actionItems,
		&topTopics,
		&riskLevel,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	record := &audit.Record{
		MeetingID:      meetingID,
		Title:          title.String,
		Status:         audit.Status(status),
		OrganizerEmail: organizerEmail.String,
		ErrorMessage:   errorMessage.String,
		BotID:          botID.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		record.CreatedAt = created
	}
	updated, err := parseTimeString(updatedRaw.String)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at for %s: %w", meetingID, err)
	}
	record.UpdatedAt = updated

	if riskLevel.Valid {
		report := &audit.Report{
			Summary:   summary.String,
			RiskLevel: audit.RiskLevel(riskLevel.String),
		}
		if report.Decisions, err = decodeList(decisions); err != nil {
			return nil, fmt.Errorf("decode decisions for %s: %w", meetingID, err)
		}
		if report.ActionItems, err = decodeList(actionItems); err != nil {
			return nil, fmt.Errorf("decode action items for %s: %w", meetingID, err)
		}
		if report.TopTopics, err = decodeList(topTopics); err != nil {
			return nil, fmt.Errorf("decode topics for %s: %w", meetingID, err)
		}
		record.Report = report
	}
	return record, nil
}

func encodeList(values []string) (any, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func decodeList(raw sql.NullString) ([]string, error) {
	if !raw.Valid || raw.String == "" {
		return []string{}, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw.String), &values); err != nil {
		return nil, err
	}
	return values, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTime(t time.Time) string {
	return t.UTC().Format(storedTimeLayout)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if t, err := time.Parse(storedTimeLayout, value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}
