package domain

import "time"

// StagedStatus is the lifecycle of a pre-classification upload.
type StagedStatus string

const (
	StagedPending    StagedStatus = "pending"
	StagedProcessing StagedStatus = "processing"
	StagedProcessed  StagedStatus = "processed"
	StagedFailed     StagedStatus = "failed"
)

// EntryStatus is the lifecycle of a promoted ledger entry.
// pending -> processing -> {completed, failed}; completed is terminal.
// Approval and category are orthogonal metadata, not status transitions.
type EntryStatus string

const (
	EntryPending    EntryStatus = "pending"
	EntryProcessing EntryStatus = "processing"
	EntryCompleted  EntryStatus = "completed"
	EntryFailed     EntryStatus = "failed"
)

// Source records how a document entered the system.
type Source string

const (
	SourceManual  Source = "manual"
	SourceAPI     Source = "api"
	SourceBatch   Source = "batch"
	SourceEmail   Source = "email"
	SourceScanner Source = "scanner"
	SourceSFTP    Source = "sftp"
)

// Stable metadata map keys. The backing storage is schemaless JSON but these
// keys are a contract consumed by downstream viewers.
const (
	MetaLoanApplicationID = "loan_application_id"
	MetaSize              = "size"
	MetaContentType       = "content_type"
	MetaUploadTimestamp   = "upload_timestamp"
	MetaUploadedBy        = "uploaded_by"
	MetaApprovalStatus    = "approval_status"
	MetaApprovalBy        = "approval_by"
	MetaApprovalTime      = "approval_time"
	MetaApprovalNotes     = "approval_notes"
	MetaManualOverride    = "manual_override"
	MetaProcessingHistory = "processing_history"
)

const (
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

// StagedUpload is a transient pre-classification record. It is created by
// upload intake and mutated only by the promotion pipeline.
type StagedUpload struct {
	ID           string         `json:"id"`
	TenantID     string         `json:"tenant_id"`
	OwnerID      string         `json:"owner_id"`
	Filename     string         `json:"filename"`
	DeclaredType string         `json:"declared_type"`
	Status       StagedStatus   `json:"status"`
	StoragePath  string         `json:"storage_path"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	UploadedAt   time.Time      `json:"uploaded_at"`
	ProcessedAt  *time.Time     `json:"processed_at,omitempty"`
}

// LoanApplicationID returns the loan id embedded at upload time, if any.
func (s *StagedUpload) LoanApplicationID() string {
	if s.Metadata == nil {
		return ""
	}
	id, _ := s.Metadata[MetaLoanApplicationID].(string)
	return id
}

// LedgerEntry is a permanently recorded, classified document attached to a
// loan application. Created exactly once from a StagedUpload by the promoter.
type LedgerEntry struct {
	ID           string         `json:"id"`
	TenantID     string         `json:"tenant_id"`
	OwnerID      string         `json:"owner_id"`
	LoanID       string         `json:"loan_application_id"`
	CategoryID   string         `json:"category_id"`
	CategoryCode CategoryCode   `json:"category_code"`
	Filename     string         `json:"filename"`
	DeclaredType string         `json:"declared_type"`
	Status       EntryStatus    `json:"status"`
	StoragePath  string         `json:"storage_path"`
	Source       Source         `json:"source"`
	Confidence   float64        `json:"confidence"`
	Diagnostics  map[string]any `json:"diagnostics,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	UploadedAt   time.Time      `json:"uploaded_at"`
	ProcessedAt  time.Time      `json:"processed_at"`
}

// ApprovalStatus returns "approved", "rejected", or "" when undecided.
func (e *LedgerEntry) ApprovalStatus() string {
	if e.Metadata == nil {
		return ""
	}
	status, _ := e.Metadata[MetaApprovalStatus].(string)
	return status
}

// LogStatus is the status of one processing audit line.
type LogStatus string

const (
	LogStarted    LogStatus = "started"
	LogInProgress LogStatus = "in_progress"
	LogCompleted  LogStatus = "completed"
	LogFailed     LogStatus = "failed"
)

// ProcessingLogEntry is an append-only audit line for a ledger entry.
type ProcessingLogEntry struct {
	ID        string    `json:"id"`
	EntryID   string    `json:"entry_id"`
	Status    LogStatus `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ClassifiedConfidence is the fixed confidence attached to any accepted
// classifier label. The score is a pipeline constant, not model certainty.
const ClassifiedConfidence = 0.85

// CategorySuggestion is the normalized outcome of one classification call.
// A failed or unrecognized call degrades to (untagged, 0.0) and carries the
// failure text for diagnostics; it is never an error.
type CategorySuggestion struct {
	Code       CategoryCode `json:"code"`
	Confidence float64      `json:"confidence"`
	RawLabel   string       `json:"raw_label,omitempty"`
	Failure    string       `json:"failure,omitempty"`
}

// UntaggedSuggestion is the classification fallback.
func UntaggedSuggestion(rawLabel, failure string) CategorySuggestion {
	return CategorySuggestion{
		Code:       CategoryUntagged,
		Confidence: 0.0,
		RawLabel:   rawLabel,
		Failure:    failure,
	}
}
