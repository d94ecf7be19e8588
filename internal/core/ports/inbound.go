package ports

import (
	"context"
	"io"
	"time"

	"github.com/lendware/docflow/internal/core/domain"
)

// UploadRequest carries one raw upload from the presentation layer.
type UploadRequest struct {
	LoanApplicationID string
	Filename          string
	DeclaredType      string
	ContentType       string
	Size              int64
	Body              io.Reader
}

// UploadIntake is the inbound contract for staging uploads.
type UploadIntake interface {
	StageUpload(ctx context.Context, actor domain.Actor, req UploadRequest) (*domain.StagedUpload, error)
	GetStaged(ctx context.Context, actor domain.Actor, stagedID string) (*domain.StagedUpload, error)
}

// StagedPromoter is the inbound contract for the asynchronous
// classify-and-promote pipeline.
type StagedPromoter interface {
	ProcessStaged(ctx context.Context, stagedID string) error
}

// ReviewWorkflow covers manual category correction, approve/reject decisions
// and guarded deletion of ledger entries.
type ReviewWorkflow interface {
	Get(ctx context.Context, actor domain.Actor, entryID string) (*domain.LedgerEntry, error)
	History(ctx context.Context, actor domain.Actor, entryID string) ([]domain.ProcessingLogEntry, error)
	OverrideCategory(ctx context.Context, actor domain.Actor, entryID string, newCode domain.CategoryCode) (*domain.LedgerEntry, error)
	Decide(ctx context.Context, actor domain.Actor, entryID, action, notes string) (*domain.LedgerEntry, error)
	Delete(ctx context.Context, actor domain.Actor, entryID string) error
}

// CategoryCoverage is one row of the per-category readiness breakdown.
type CategoryCoverage struct {
	Code    domain.CategoryCode `json:"code"`
	Name    string              `json:"name"`
	Covered bool                `json:"covered"`
}

// LoanMetricsView is the derived-metric read model for one loan.
type LoanMetricsView struct {
	LoanID        string             `json:"loan_application_id"`
	Status        domain.LoanStatus  `json:"status"`
	CaseReadiness int                `json:"case_readiness"`
	DocumentIndex int                `json:"document_index"`
	Coverage      []CategoryCoverage `json:"coverage"`
}

// LoanUpdate carries the editable loan fields; nil means leave unchanged.
type LoanUpdate struct {
	AmountCents  *int64
	Purpose      *string
	TermMonths   *int
	InterestRate *float64
}

// LetterView is the response body for one generated letter.
type LetterView struct {
	LetterType    domain.LetterType `json:"letter_type"`
	LoanID        string            `json:"loan_application_id"`
	ApplicantName string            `json:"applicant_name"`
	GeneratedAt   time.Time         `json:"generated_at"`
	Content       string            `json:"content"`
}

// LoanService covers the loan application operations the pipeline depends on.
type LoanService interface {
	CreateDraft(ctx context.Context, actor domain.Actor, amountCents int64, purpose string, termMonths int) (*domain.LoanApplication, error)
	Update(ctx context.Context, actor domain.Actor, loanID string, upd LoanUpdate) (*domain.LoanApplication, error)
	Submit(ctx context.Context, actor domain.Actor, loanID string) (*domain.LoanApplication, error)
	Process(ctx context.Context, actor domain.Actor, loanID, action, notes string) (*domain.LoanApplication, error)
	Get(ctx context.Context, actor domain.Actor, loanID string) (*domain.LoanApplication, error)
	Metrics(ctx context.Context, actor domain.Actor, loanID string) (*LoanMetricsView, error)
	Documents(ctx context.Context, actor domain.Actor, loanID string) ([]domain.LedgerEntry, error)
	GenerateLetter(ctx context.Context, actor domain.Actor, loanID, letterType string) (*LetterView, error)
}
