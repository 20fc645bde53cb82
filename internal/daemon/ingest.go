package daemon

import (
	"context"
	"errors"
	"strings"
	"time"

	"meetaudit/internal/api"
	"meetaudit/internal/audit"
	"meetaudit/internal/logging"
	"meetaudit/internal/services"
	"meetaudit/internal/store"
)

const ingestAttempts = 3

// Ingest applies a pipeline status report to the stored record.
//
// Status changes go through the audit transition table, so a late or
// duplicated report can never move a record backwards; such reports fail
// with audit.ErrInvalidTransition. Repeating the current status re-applies
// the payload. The write is stamped strictly after the stored one and a
// concurrent writer causes a re-read.
func (d *Daemon) Ingest(ctx context.Context, meetingID string, req api.IngestRequest) (audit.Record, error) {
	meetingID = strings.TrimSpace(meetingID)
	if meetingID == "" {
		return audit.Record{}, services.Wrap(services.ErrValidation, "daemon", "ingest", "meeting id is required", nil)
	}
	status, ok := audit.ParseStatus(req.Status)
	if !ok || status == audit.StatusNone {
		return audit.Record{}, services.Wrap(services.ErrValidation, "daemon", "ingest", "unknown status "+req.Status, nil)
	}
	if status == audit.StatusCompleted && req.Report == nil {
		return audit.Record{}, services.Wrap(services.ErrValidation, "daemon", "ingest", "completed status requires a report", nil)
	}

	ctx = services.WithMeetingID(ctx, meetingID)
	logger := logging.WithContext(ctx, d.logger)

	var lastErr error
	for range ingestAttempts {
		existing, err := d.store.Get(ctx, meetingID)
		if err != nil {
			return audit.Record{}, err
		}
		current := audit.Empty(meetingID)
		if existing != nil {
			current = *existing
		}

		next, err := applyIngested(current, status, req, audit.NextTimestamp(current.UpdatedAt, d.clock.Now()))
		if err != nil {
			logging.WarnWithContext(logger, "pipeline report rejected", "ingest_rejected",
				logging.String("from", string(current.Status)),
				logging.String("to", string(status)),
				logging.Error(err),
			)
			return audit.Record{}, err
		}

		err = d.store.Upsert(ctx, next)
		if errors.Is(err, store.ErrStaleWrite) {
			lastErr = err
			continue
		}
		if err != nil {
			return audit.Record{}, err
		}

		logger.Info("audit status ingested",
			logging.String(logging.FieldStatus, string(next.Status)),
			logging.String("previous_status", string(current.Status)),
		)
		d.poller.Observe(next)
		d.track(ctx, []audit.Record{next})
		return next, nil
	}
	return audit.Record{}, lastErr
}

// applyIngested moves current to status at the given stamp and overlays the
// report payload.
func applyIngested(current audit.Record, status audit.Status, req api.IngestRequest, at time.Time) (audit.Record, error) {
	var next audit.Record
	if current.Status == status {
		next = current.Clone()
		next.UpdatedAt = at
	} else {
		var err error
		if next, err = audit.Transition(current, status, at); err != nil {
			return audit.Record{}, err
		}
	}

	if title := strings.TrimSpace(req.Title); title != "" {
		next.Title = title
	}
	if botID := strings.TrimSpace(req.BotID); botID != "" {
		next.BotID = botID
	}
	switch status {
	case audit.StatusCompleted:
		next.ErrorMessage = ""
		next.Report = req.Report.Clone()
		next.Report.TopTopics = audit.NormalizeTopics(next.Report.TopTopics)
		if level, ok := audit.ParseRiskLevel(string(next.Report.RiskLevel)); ok {
			next.Report.RiskLevel = level
		}
	case audit.StatusFailed:
		next.ErrorMessage = strings.TrimSpace(req.ErrorMessage)
	default:
		next.ErrorMessage = ""
	}
	return next, nil
}
