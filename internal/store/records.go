package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"meetaudit/internal/audit"
	"meetaudit/internal/services"
)

// ErrStaleWrite reports an upsert whose updated_at is older than the stored record.
var ErrStaleWrite = errors.New("stale audit record write")

const recordColumns = "meeting_id, title, status, organizer_email, error_message, bot_id, summary, decisions_json, action_items_json, top_topics_json, risk_level, created_at, updated_at"

// Upsert writes the whole record keyed by meeting id. An existing row is only
// replaced when the incoming updated_at is not older than the stored one;
// otherwise ErrStaleWrite is returned and the row is left untouched.
func (s *Store) Upsert(ctx context.Context, record audit.Record) error {
	if err := record.Validate(); err != nil {
		return services.Wrap(services.ErrValidation, "store", "upsert", "reject record", err)
	}

	row, err := encodeRecord(record)
	if err != nil {
		return services.Wrap(services.ErrValidation, "store", "upsert", "encode report", err)
	}

	res, err := s.execWithRetry(ctx,
		`INSERT INTO audit_records (`+recordColumns+`)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(meeting_id) DO UPDATE SET
             title = excluded.title,
             status = excluded.status,
             organizer_email = excluded.organizer_email,
             error_message = excluded.error_message,
             bot_id = excluded.bot_id,
             summary = excluded.summary,
             decisions_json = excluded.decisions_json,
             action_items_json = excluded.action_items_json,
             top_topics_json = excluded.top_topics_json,
             risk_level = excluded.risk_level,
             created_at = COALESCE(audit_records.created_at, excluded.created_at),
             updated_at = excluded.updated_at
         WHERE excluded.updated_at >= audit_records.updated_at`,
		row.args()...,
	)
	if err != nil {
		return services.Wrap(services.ErrStore, "store", "upsert", "write "+record.MeetingID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return services.Wrap(services.ErrStore, "store", "upsert", "rows affected", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s at %s", ErrStaleWrite, record.MeetingID, row.updatedAt)
	}
	return nil
}

// Get returns the record for meetingID, or nil when none has been written.
func (s *Store) Get(ctx context.Context, meetingID string) (*audit.Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM audit_records WHERE meeting_id = ?`, meetingID)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, services.Wrap(services.ErrStore, "store", "get", "read "+meetingID, err)
	}
	return record, nil
}

// ListAll returns every record, most recently updated first.
func (s *Store) ListAll(ctx context.Context) ([]audit.Record, error) {
	return s.query(ctx, "list", `SELECT `+recordColumns+` FROM audit_records ORDER BY updated_at DESC, meeting_id`)
}

// ListCompleted returns completed records whose title contains search
// (case-insensitive). A blank search matches everything.
func (s *Store) ListCompleted(ctx context.Context, search string) ([]audit.Record, error) {
	search = strings.TrimSpace(search)
	if search == "" {
		return s.query(ctx, "list completed",
			`SELECT `+recordColumns+` FROM audit_records WHERE status = ? ORDER BY updated_at DESC, meeting_id`,
			audit.StatusCompleted)
	}
	return s.query(ctx, "list completed",
		`SELECT `+recordColumns+` FROM audit_records
         WHERE status = ? AND LOWER(COALESCE(title, '')) LIKE ? ESCAPE '\'
         ORDER BY updated_at DESC, meeting_id`,
		audit.StatusCompleted, "%"+escapeLike(strings.ToLower(search))+"%")
}

// Stats summarises the audit table for the past meetings view.
type Stats struct {
	Total     int
	Completed int
	HighRisk  int
	ByStatus  map[audit.Status]int
}

// Stats counts records per status and completed reports graded high risk.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{ByStatus: make(map[audit.Status]int)}
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM audit_records GROUP BY status`)
	if err != nil {
		return stats, services.Wrap(services.ErrStore, "store", "stats", "count statuses", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return stats, services.Wrap(services.ErrStore, "store", "stats", "scan status", err)
		}
		stats.ByStatus[audit.Status(status)] = count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return stats, services.Wrap(services.ErrStore, "store", "stats", "iterate statuses", err)
	}
	stats.Completed = stats.ByStatus[audit.StatusCompleted]

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM audit_records WHERE status = ? AND risk_level = ?`,
		audit.StatusCompleted, audit.RiskHigh,
	).Scan(&stats.HighRisk)
	if err != nil {
		return stats, services.Wrap(services.ErrStore, "store", "stats", "count high risk", err)
	}
	return stats, nil
}

func (s *Store) query(ctx context.Context, operation, query string, args ...any) ([]audit.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, services.Wrap(services.ErrStore, "store", operation, "query", err)
	}
	defer rows.Close()

	var records []audit.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, services.Wrap(services.ErrStore, "store", operation, "scan", err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrStore, "store", operation, "iterate", err)
	}
	return records, nil
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
