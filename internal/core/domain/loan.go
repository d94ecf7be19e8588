package domain

import (
	"math"
	"time"
)

type LoanStatus string

const (
	LoanDraft       LoanStatus = "draft"
	LoanSubmitted   LoanStatus = "submitted"
	LoanUnderReview LoanStatus = "under_review"
	LoanUnderwriter LoanStatus = "underwriter"
	LoanApproved    LoanStatus = "approved"
	LoanRejected    LoanStatus = "rejected"
	LoanCancelled   LoanStatus = "cancelled"
)

// DefaultDraftTermMonths is the placeholder term for implicitly created
// drafts: a standard 30-year mortgage.
const DefaultDraftTermMonths = 360

// LoanApplication carries the financial attributes plus the two derived
// document metrics. Metrics are always recomputed from persisted state,
// never patched incrementally.
type LoanApplication struct {
	ID            string         `json:"id"`
	TenantID      string         `json:"tenant_id"`
	OwnerID       string         `json:"owner_id"`
	ApplicantName string         `json:"applicant_name"`
	AmountCents   int64          `json:"loan_amount_cents"`
	Purpose       string         `json:"loan_purpose"`
	TermMonths    int            `json:"loan_term_months"`
	InterestRate  float64        `json:"interest_rate,omitempty"`
	Status        LoanStatus     `json:"status"`
	CaseReadiness int            `json:"case_readiness"`
	DocumentIndex int            `json:"document_index"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	SubmittedAt   *time.Time     `json:"submitted_at,omitempty"`
	DecidedAt     *time.Time     `json:"decided_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// ComputeMetrics derives case readiness and document index.
//
//	case_readiness  = round(100 * coveredCategories / categoryCount), 0 when categoryCount == 0
//	document_index  = round(100 * completedEntries / max(totalEntries, 1))
//
// Pure and idempotent; zero denominators degrade to 0 instead of erroring.
func ComputeMetrics(categoryCount, coveredCategories, totalEntries, completedEntries int) (caseReadiness, documentIndex int) {
	if categoryCount > 0 {
		caseReadiness = int(math.Round(100 * float64(coveredCategories) / float64(categoryCount)))
	}
	denominator := totalEntries
	if denominator < 1 {
		denominator = 1
	}
	documentIndex = int(math.Round(100 * float64(completedEntries) / float64(denominator)))
	return caseReadiness, documentIndex
}

// StatusTransition is one append-only processing_history record.
type StatusTransition struct {
	From      LoanStatus `json:"from"`
	To        LoanStatus `json:"to"`
	ActorID   string     `json:"actor_id"`
	ActorName string     `json:"actor_name,omitempty"`
	Notes     string     `json:"notes,omitempty"`
	At        time.Time  `json:"at"`
}

// AppendTransition records a status change into metadata processing_history
// and applies it to the loan. History is append-only.
func (l *LoanApplication) AppendTransition(to LoanStatus, actor Actor, notes string, at time.Time) {
	if l.Metadata == nil {
		l.Metadata = map[string]any{}
	}
	history, _ := l.Metadata[MetaProcessingHistory].([]any)
	history = append(history, StatusTransition{
		From:      l.Status,
		To:        to,
		ActorID:   actor.ID,
		ActorName: actor.Name,
		Notes:     notes,
		At:        at,
	})
	l.Metadata[MetaProcessingHistory] = history
	l.Status = to
}
