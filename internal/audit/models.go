package audit

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Status represents the lifecycle of an audit record.
type Status string

const (
	StatusNone      Status = "none"
	StatusPending   Status = "pending"
	StatusAuditing  Status = "auditing"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

var allStatuses = []Status{
	StatusNone,
	StatusPending,
	StatusAuditing,
	StatusCompleted,
	StatusFailed,
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	return slices.Clone(allStatuses)
}

// ParseStatus converts a string into a known Status. Blank input maps to none.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return StatusNone, true
	}
	if slices.Contains(allStatuses, normalized) {
		return normalized, true
	}
	return "", false
}

// InProgress reports whether a dispatch for this status is still unresolved.
func (s Status) InProgress() bool {
	return s == StatusPending || s == StatusAuditing
}

// RiskLevel grades how much attention a meeting outcome needs.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ParseRiskLevel accepts any casing of low, medium, or high.
func ParseRiskLevel(value string) (RiskLevel, bool) {
	switch level := RiskLevel(strings.ToLower(strings.TrimSpace(value))); level {
	case RiskLow, RiskMedium, RiskHigh:
		return level, true
	default:
		return "", false
	}
}

// Report is the structured result the analysis pipeline writes on completion.
type Report struct {
	Summary     string    `json:"summary"`
	Decisions   []string  `json:"decisions"`
	ActionItems []string  `json:"action_items"`
	TopTopics   []string  `json:"top_topics"`
	RiskLevel   RiskLevel `json:"risk_level"`
}

// Clone returns a deep copy. Nil stays nil.
func (r *Report) Clone() *Report {
	if r == nil {
		return nil
	}
	return &Report{
		Summary:     r.Summary,
		Decisions:   slices.Clone(r.Decisions),
		ActionItems: slices.Clone(r.ActionItems),
		TopTopics:   slices.Clone(r.TopTopics),
		RiskLevel:   r.RiskLevel,
	}
}

// Equal compares reports by value. Topics compare as sets.
func (r *Report) Equal(other *Report) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.Summary == other.Summary &&
		r.RiskLevel == other.RiskLevel &&
		slices.Equal(r.Decisions, other.Decisions) &&
		slices.Equal(r.ActionItems, other.ActionItems) &&
		slices.Equal(topicSet(r.TopTopics), topicSet(other.TopTopics))
}

// NormalizeTopics trims, de-duplicates case-insensitively, and keeps first-seen order.
func NormalizeTopics(topics []string) []string {
	seen := make(map[string]struct{}, len(topics))
	out := make([]string, 0, len(topics))
	for _, topic := range topics {
		trimmed := strings.TrimSpace(topic)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}

func topicSet(topics []string) []string {
	normalized := NormalizeTopics(topics)
	for i := range normalized {
		normalized[i] = strings.ToLower(normalized[i])
	}
	slices.Sort(normalized)
	return normalized
}

// Record is the persisted audit state for one meeting.
type Record struct {
	MeetingID      string    `json:"meeting_id"`
	Title          string    `json:"title"`
	Status         Status    `json:"status"`
	UpdatedAt      time.Time `json:"updated_at"`
	Report         *Report   `json:"report,omitempty"`
	OrganizerEmail string    `json:"organizer_email,omitempty"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	BotID          string    `json:"bot_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Empty returns the implicit record of a meeting that has never been dispatched.
func Empty(meetingID string) Record {
	return Record{MeetingID: meetingID, Status: StatusNone}
}

// Clone returns a copy that shares no slices with r.
func (r Record) Clone() Record {
	r.Report = r.Report.Clone()
	return r
}

// Equal reports whether two records hold the same value.
func (r Record) Equal(other Record) bool {
	return r.MeetingID == other.MeetingID &&
		r.Title == other.Title &&
		r.Status == other.Status &&
		r.UpdatedAt.Equal(other.UpdatedAt) &&
		r.OrganizerEmail == other.OrganizerEmail &&
		r.ErrorMessage == other.ErrorMessage &&
		r.BotID == other.BotID &&
		r.CreatedAt.Equal(other.CreatedAt) &&
		r.Report.Equal(other.Report)
}

// ErrInvalidRecord marks a record that violates a structural invariant.
var ErrInvalidRecord = errors.New("invalid audit record")

// Validate checks the structural invariants a store write must uphold.
func (r Record) Validate() error {
	if strings.TrimSpace(r.MeetingID) == "" {
		return fmt.Errorf("%w: meeting id is required", ErrInvalidRecord)
	}
	if _, ok := ParseStatus(string(r.Status)); !ok {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidRecord, r.Status)
	}
	if r.Status == StatusCompleted && r.Report == nil {
		return fmt.Errorf("%w: completed record %s has no report", ErrInvalidRecord, r.MeetingID)
	}
	if r.Status != StatusCompleted && r.Report != nil {
		return fmt.Errorf("%w: %s record %s carries a report", ErrInvalidRecord, r.Status, r.MeetingID)
	}
	if r.Report != nil {
		if _, ok := ParseRiskLevel(string(r.Report.RiskLevel)); !ok {
			return fmt.Errorf("%w: unknown risk level %q", ErrInvalidRecord, r.Report.RiskLevel)
		}
	}
	return nil
}
