package models

import "time"

type ImportStatus string

const (
	ImportPending             ImportStatus = "pending"
	ImportInProgress          ImportStatus = "in_progress"
	ImportCompleted           ImportStatus = "completed"
	ImportCompletedWithErrors ImportStatus = "completed_with_errors"
	ImportFailed              ImportStatus = "failed"
)

// importTransitions encodes the forward-only lifecycle. Terminal states have
// no outgoing edges.
var importTransitions = map[ImportStatus]map[ImportStatus]bool{
	ImportPending: {ImportInProgress: true, ImportFailed: true},
	ImportInProgress: {
		ImportCompleted:           true,
		ImportCompletedWithErrors: true,
		ImportFailed:              true,
	},
}

func (s ImportStatus) CanTransition(to ImportStatus) bool {
	return importTransitions[s][to]
}

func (s ImportStatus) Terminal() bool {
	return len(importTransitions[s]) == 0
}

// ImportJob is one invocation of the import pipeline against one uploaded
// file. Counters satisfy successful + failed == processed <= total once
// processing starts; ErrorReportPath is set exactly when FailedRows > 0 at
// completion.
type ImportJob struct {
	ID              string       `json:"id"`
	TemplateID      int64        `json:"template_id"`
	AdminID         int64        `json:"admin_id"`
	FileName        string       `json:"file_name"`
	StoragePath     string       `json:"-"`
	Status          ImportStatus `json:"status"`
	TotalRows       int          `json:"total_rows"`
	ProcessedRows   int          `json:"processed_rows"`
	SuccessfulRows  int          `json:"successful_rows"`
	FailedRows      int          `json:"failed_rows"`
	ErrorReportPath *string      `json:"-"`
	StartedAt       *time.Time   `json:"started_at,omitempty"`
	CompletedAt     *time.Time   `json:"completed_at,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
}

// RowError records one data row that failed validation. Kept in memory during
// processing and rendered into the error report; never persisted row by row.
type RowError struct {
	RowNumber int
	Reason    string
	Raw       map[string]string
}

// ImportProgress is a partial counter update checkpointed mid-run.
type ImportProgress struct {
	ProcessedRows  int
	SuccessfulRows int
	FailedRows     int
}

// ── Request/Response Types ──────────────────────────────

type StartImportResponse struct {
	JobID    string       `json:"job_id"`
	FileName string       `json:"file_name"`
	Status   ImportStatus `json:"status"`
	Message  string       `json:"message"`
}

type ImportJobSummary struct {
	ID             string       `json:"id"`
	FileName       string       `json:"file_name"`
	Status         ImportStatus `json:"status"`
	TotalRows      int          `json:"total_rows"`
	ProcessedRows  int          `json:"processed_rows"`
	SuccessfulRows int          `json:"successful_rows"`
	FailedRows     int          `json:"failed_rows"`
	ErrorReportURL string       `json:"error_report_url,omitempty"`
	StartedAt      *time.Time   `json:"started_at,omitempty"`
	CompletedAt    *time.Time   `json:"completed_at,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

type ImportJobListResponse struct {
	Jobs  []ImportJobSummary `json:"jobs"`
	Total int                `json:"total"`
}
