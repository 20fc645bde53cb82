package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
)

// DatabaseHealth captures diagnostic information about the audit database.
type DatabaseHealth struct {
	DBPath         string
	DatabaseExists bool
	SchemaVersion  int
	TableExists    bool
	MissingColumns []string
	IntegrityCheck bool
	TotalRecords   int
	Error          string
}

var expectedColumns = []string{
	"meeting_id", "title", "status", "organizer_email", "error_message", "bot_id",
	"summary", "decisions_json", "action_items_json", "top_topics_json", "risk_level",
	"created_at", "updated_at",
}

// CheckHealth inspects schema version, column layout, and integrity.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{DBPath: s.path}
	if _, err := os.Stat(s.path); err == nil {
		health.DatabaseExists = true
	} else if !errors.Is(err, fs.ErrNotExist) {
		health.Error = err.Error()
		return health, err
	}

	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&health.SchemaVersion); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("read schema version: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT name FROM pragma_table_info('audit_records')")
	if err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("inspect columns: %w", err)
	}
	var present []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			health.Error = err.Error()
			return health, fmt.Errorf("scan column: %w", err)
		}
		present = append(present, name)
	}
	rows.Close()
	health.TableExists = len(present) > 0
	for _, column := range expectedColumns {
		if !slices.Contains(present, column) {
			health.MissingColumns = append(health.MissingColumns, column)
		}
	}

	var integrity string
	if err := s.db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&integrity); err == nil {
		health.IntegrityCheck = integrity == "ok"
	}
	if health.TableExists {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_records").Scan(&health.TotalRecords); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("count records: %w", err)
		}
	}
	return health, nil
}
