package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lendware/docflow/internal/core/domain"
	"github.com/lendware/docflow/internal/core/ports"
)

// PromoteStagedUseCase runs the classify-and-promote pipeline for one staged
// upload: derive an excerpt, classify it, then atomically convert the staged
// record into a ledger entry and recompute the loan's metrics.
type PromoteStagedUseCase struct {
	staged     ports.StagedUploadRepository
	ledger     ports.LedgerRepository
	logs       ports.ProcessingLogRepository
	loans      ports.LoanRepository
	taxonomy   ports.TaxonomyRepository
	extractor  ports.TextExtractor
	classifier ports.DocumentClassifier
	tx         ports.Transactor
	recalc     *ReadinessRecalculator
}

func NewPromoteStagedUseCase(
	staged ports.StagedUploadRepository,
	ledger ports.LedgerRepository,
	logs ports.ProcessingLogRepository,
	loans ports.LoanRepository,
	taxonomy ports.TaxonomyRepository,
	extractor ports.TextExtractor,
	classifier ports.DocumentClassifier,
	tx ports.Transactor,
	recalc *ReadinessRecalculator,
) *PromoteStagedUseCase {
	return &PromoteStagedUseCase{
		staged:     staged,
		ledger:     ledger,
		logs:       logs,
		loans:      loans,
		taxonomy:   taxonomy,
		extractor:  extractor,
		classifier: classifier,
		tx:         tx,
		recalc:     recalc,
	}
}

// ProcessStaged promotes one staged upload. The processing flag is written
// before the transaction so a failed promotion leaves the upload at
// status=failed via a compensating write; the promotion itself is
// all-or-nothing.
func (uc *PromoteStagedUseCase) ProcessStaged(ctx context.Context, stagedID string) error {
	staged, err := uc.staged.GetByID(ctx, stagedID)
	if err != nil {
		return fmt.Errorf("fetch staged upload: %w", err)
	}
	if staged.Status == domain.StagedProcessed {
		// Duplicate delivery; the ledger entry already exists.
		return nil
	}

	if err := uc.staged.UpdateStatus(ctx, staged.ID, domain.StagedProcessing, nil); err != nil {
		return fmt.Errorf("set staged status=processing: %w", err)
	}

	suggestion := uc.classifier.Classify(ctx, uc.excerpt(ctx, staged))

	if err := uc.tx.InTx(ctx, func(ctx context.Context) error {
		return uc.promote(ctx, staged, suggestion)
	}); err != nil {
		if failErr := uc.staged.UpdateStatus(ctx, staged.ID, domain.StagedFailed, nil); failErr != nil {
			return fmt.Errorf("%w; mark staged failed: %v", err, failErr)
		}
		return err
	}

	return nil
}

// excerpt returns extracted document text, or a metadata placeholder when no
// text is available for the format.
func (uc *PromoteStagedUseCase) excerpt(ctx context.Context, staged *domain.StagedUpload) string {
	text, err := uc.extractor.Extract(ctx, staged)
	if err != nil {
		slog.Warn("text extraction failed, using metadata placeholder",
			"staged_id", staged.ID,
			"error", err,
		)
		text = ""
	}
	if text == "" {
		return fmt.Sprintf("Document name: %s, Type: %s", staged.Filename, staged.DeclaredType)
	}
	return text
}

func (uc *PromoteStagedUseCase) promote(ctx context.Context, staged *domain.StagedUpload, suggestion domain.CategorySuggestion) error {
	category, err := uc.resolveCategory(ctx, staged.TenantID, suggestion.Code)
	if err != nil {
		return err
	}

	loan, err := uc.resolveLoan(ctx, staged)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	entry := &domain.LedgerEntry{
		ID:           uuid.NewString(),
		TenantID:     staged.TenantID,
		OwnerID:      staged.OwnerID,
		LoanID:       loan.ID,
		CategoryID:   category.ID,
		CategoryCode: category.Code,
		Filename:     staged.Filename,
		DeclaredType: staged.DeclaredType,
		Status:       domain.EntryCompleted,
		StoragePath:  staged.StoragePath,
		Source:       domain.SourceManual,
		Confidence:   suggestion.Confidence,
		Diagnostics: map[string]any{
			"categorization": string(suggestion.Code),
			"confidence":     suggestion.Confidence,
			"raw_label":      suggestion.RawLabel,
			"failure":        suggestion.Failure,
			"processed_at":   now.Format(time.RFC3339),
		},
		Metadata:    cloneMetadata(staged.Metadata),
		UploadedAt:  staged.UploadedAt,
		ProcessedAt: now,
	}
	if err := uc.ledger.Create(ctx, entry); err != nil {
		return fmt.Errorf("create ledger entry: %w", err)
	}

	if err := uc.logs.Append(ctx, &domain.ProcessingLogEntry{
		ID:        uuid.NewString(),
		EntryID:   entry.ID,
		Status:    domain.LogCompleted,
		Message:   fmt.Sprintf("document processed and categorized as %s", category.Name),
		Timestamp: now,
	}); err != nil {
		return fmt.Errorf("append processing log: %w", err)
	}

	if err := uc.staged.UpdateStatus(ctx, staged.ID, domain.StagedProcessed, &now); err != nil {
		return fmt.Errorf("set staged status=processed: %w", err)
	}

	if err := uc.recalc.Recalculate(ctx, loan); err != nil {
		return fmt.Errorf("recalculate loan metrics: %w", err)
	}
	return nil
}

// resolveCategory maps a suggested code onto the tenant's taxonomy, falling
// back to untagged when the code has no row for this tenant. A missing
// untagged row means the tenant was never seeded and is a configuration
// error.
func (uc *PromoteStagedUseCase) resolveCategory(ctx context.Context, tenantID string, code domain.CategoryCode) (*domain.Category, error) {
	category, err := uc.taxonomy.GetByCode(ctx, tenantID, code)
	if err == nil {
		return category, nil
	}
	if !domain.IsKind(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("resolve category %s: %w", code, err)
	}

	category, err = uc.taxonomy.GetByCode(ctx, tenantID, domain.CategoryUntagged)
	if err != nil {
		if domain.IsKind(err, domain.ErrNotFound) {
			return nil, domain.WrapError(domain.ErrTaxonomyNotSeeded, "resolve category",
				fmt.Errorf("reserved untagged category missing for tenant %s", tenantID))
		}
		return nil, fmt.Errorf("resolve untagged category: %w", err)
	}
	return category, nil
}

// resolveLoan prefers the loan id embedded at upload time, then the owner's
// most recent loan, and finally creates a draft. Promotion never fails
// because a loan is missing.
func (uc *PromoteStagedUseCase) resolveLoan(ctx context.Context, staged *domain.StagedUpload) (*domain.LoanApplication, error) {
	if id := staged.LoanApplicationID(); id != "" {
		loan, err := uc.loans.GetByID(ctx, id)
		if err == nil {
			return loan, nil
		}
		if !domain.IsKind(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("resolve loan %s: %w", id, err)
		}
	}

	loan, err := uc.loans.LatestByOwner(ctx, staged.TenantID, staged.OwnerID)
	if err == nil {
		return loan, nil
	}
	if !domain.IsKind(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("resolve latest loan: %w", err)
	}

	applicantName, _ := staged.Metadata[domain.MetaUploadedBy].(string)
	if applicantName == "" {
		applicantName = staged.OwnerID
	}

	now := time.Now().UTC()
	draft := &domain.LoanApplication{
		ID:            uuid.NewString(),
		TenantID:      staged.TenantID,
		OwnerID:       staged.OwnerID,
		ApplicantName: applicantName,
		AmountCents:   0,
		Purpose:       "Document Upload",
		TermMonths:    domain.DefaultDraftTermMonths,
		Status:        domain.LoanDraft,
		Metadata:      map[string]any{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := uc.loans.Create(ctx, draft); err != nil {
		return nil, fmt.Errorf("create draft loan: %w", err)
	}
	return draft, nil
}

func cloneMetadata(metadata map[string]any) map[string]any {
	if metadata == nil {
		return map[string]any{}
	}
	clone := make(map[string]any, len(metadata))
	for k, v := range metadata {
		clone[k] = v
	}
	return clone
}
