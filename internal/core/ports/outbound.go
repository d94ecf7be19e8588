package ports

import (
	"context"
	"io"
	"time"

	"github.com/lendware/docflow/internal/core/domain"
)

// Transactor runs fn within one storage transaction. Repository calls made
// with the ctx passed to fn join that transaction; an error from fn rolls
// everything back.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// StagedUploadRepository persists pre-classification uploads.
type StagedUploadRepository interface {
	Create(ctx context.Context, staged *domain.StagedUpload) error
	GetByID(ctx context.Context, id string) (*domain.StagedUpload, error)
	UpdateStatus(ctx context.Context, id string, status domain.StagedStatus, processedAt *time.Time) error
}

// LedgerRepository persists promoted documents and serves the aggregate
// counts the recalculator needs.
type LedgerRepository interface {
	Create(ctx context.Context, entry *domain.LedgerEntry) error
	GetByID(ctx context.Context, id string) (*domain.LedgerEntry, error)
	ListByLoan(ctx context.Context, loanID string) ([]domain.LedgerEntry, error)
	UpdateCategory(ctx context.Context, id, categoryID string, code domain.CategoryCode, diagnostics map[string]any) error
	UpdateMetadata(ctx context.Context, id string, metadata map[string]any) error
	Delete(ctx context.Context, id string) error

	CountByLoan(ctx context.Context, loanID string) (total, completed int, err error)
	CountDistinctCategories(ctx context.Context, loanID string) (int, error)
	HasCompletedInCategory(ctx context.Context, loanID, categoryID string) (bool, error)
}

// ProcessingLogRepository is the append-only audit trail.
type ProcessingLogRepository interface {
	Append(ctx context.Context, entry *domain.ProcessingLogEntry) error
	ListByEntry(ctx context.Context, entryID string) ([]domain.ProcessingLogEntry, error)
}

// LoanRepository persists loan applications and their derived metrics.
type LoanRepository interface {
	Create(ctx context.Context, loan *domain.LoanApplication) error
	GetByID(ctx context.Context, id string) (*domain.LoanApplication, error)
	LatestByOwner(ctx context.Context, tenantID, ownerID string) (*domain.LoanApplication, error)
	Update(ctx context.Context, loan *domain.LoanApplication) error
	UpdateMetrics(ctx context.Context, id string, caseReadiness, documentIndex int) error
	UpdateStatus(ctx context.Context, loan *domain.LoanApplication) error
}

// TaxonomyRepository is the read-mostly category/type store. Categories are
// provisioned out-of-band (seed/admin); the pipeline only reads.
type TaxonomyRepository interface {
	GetByCode(ctx context.Context, tenantID string, code domain.CategoryCode) (*domain.Category, error)
	GetByID(ctx context.Context, id string) (*domain.Category, error)
	ListForTenant(ctx context.Context, tenantID string) ([]domain.Category, error)
	CountForTenant(ctx context.Context, tenantID string) (int, error)
	CreateCategory(ctx context.Context, category *domain.Category) error
	CreateTypeSpec(ctx context.Context, spec *domain.DocumentTypeSpec) error
	ListTypeSpecs(ctx context.Context, categoryID string) ([]domain.DocumentTypeSpec, error)
	SeedDefaults(ctx context.Context, tenantID string) error
}

// ObjectStorage stores raw uploaded documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// MessageQueue hands staged uploads to the classification worker. Publishing
// is fire-and-forget from the caller's perspective.
type MessageQueue interface {
	PublishStagedUpload(ctx context.Context, stagedID string) error
	SubscribeStagedUploads(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor derives a text excerpt from a stored upload. An empty result
// with nil error means no text is available for this format.
type TextExtractor interface {
	Extract(ctx context.Context, staged *domain.StagedUpload) (string, error)
}

// DocumentClassifier wraps the single external classification call. It never
// returns an error: any failure degrades to the untagged suggestion.
type DocumentClassifier interface {
	Classify(ctx context.Context, excerpt string) domain.CategorySuggestion
}

// LetterComposer writes borrower correspondence. It never returns an error:
// any model failure degrades to the deterministic letter template.
type LetterComposer interface {
	Compose(ctx context.Context, req domain.LetterRequest) string
}
