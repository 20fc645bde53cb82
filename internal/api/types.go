package api

import "meetaudit/internal/audit"

// DaemonStatus summarizes daemon runtime state.
type DaemonStatus struct {
	Running      bool       `json:"running"`
	DatabasePath string     `json:"database_path"`
	LockFilePath string     `json:"lock_file_path"`
	APIAddress   string     `json:"api_address,omitempty"`
	Tracked      int        `json:"tracked"`
	Stats        AuditStats `json:"stats"`
}

// AuditStats carries aggregate audit counts.
type AuditStats struct {
	Total     int            `json:"total"`
	Completed int            `json:"completed"`
	HighRisk  int            `json:"high_risk"`
	ByStatus  map[string]int `json:"by_status,omitempty"`
}

// IngestRequest is a status report from the analysis pipeline.
type IngestRequest struct {
	Status       string        `json:"status"`
	Title        string        `json:"title,omitempty"`
	Report       *audit.Report `json:"report,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	BotID        string        `json:"bot_id,omitempty"`
}

// AuditListResponse is the body of GET /api/audits.
type AuditListResponse struct {
	Audits []audit.Record `json:"audits"`
}

// AuditResponse is the body of single-record responses.
type AuditResponse struct {
	Audit audit.Record `json:"audit"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}
