package testsupport

import (
	"context"
	"testing"
	"time"

	"meetaudit/internal/audit"
	"meetaudit/internal/config"
	"meetaudit/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// SeedRecord writes a record with the given status stamped at updatedAt.
// Completed records get a low-risk placeholder report.
func SeedRecord(t testing.TB, st *store.Store, meetingID string, status audit.Status, updatedAt time.Time) audit.Record {
	t.Helper()

	record := audit.Record{
		MeetingID: meetingID,
		Title:     "Meeting " + meetingID,
		Status:    status,
		UpdatedAt: updatedAt,
		CreatedAt: updatedAt,
	}
	if status == audit.StatusCompleted {
		record.Report = &audit.Report{Summary: "seeded", RiskLevel: audit.RiskLow}
	}
	if err := st.Upsert(context.Background(), record); err != nil {
		t.Fatalf("store.Upsert: %v", err)
	}
	return record
}
