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

// ReviewWorkflowUseCase covers post-promotion mutations on ledger entries:
// manual category override, approve/reject decisions, and guarded deletion.
type ReviewWorkflowUseCase struct {
	ledger   ports.LedgerRepository
	logs     ports.ProcessingLogRepository
	loans    ports.LoanRepository
	taxonomy ports.TaxonomyRepository
	storage  ports.ObjectStorage
	tx       ports.Transactor
	recalc   *ReadinessRecalculator
}

func NewReviewWorkflowUseCase(
	ledger ports.LedgerRepository,
	logs ports.ProcessingLogRepository,
	loans ports.LoanRepository,
	taxonomy ports.TaxonomyRepository,
	storage ports.ObjectStorage,
	tx ports.Transactor,
	recalc *ReadinessRecalculator,
) *ReviewWorkflowUseCase {
	return &ReviewWorkflowUseCase{
		ledger:   ledger,
		logs:     logs,
		loans:    loans,
		taxonomy: taxonomy,
		storage:  storage,
		tx:       tx,
		recalc:   recalc,
	}
}

func (uc *ReviewWorkflowUseCase) loadVisible(ctx context.Context, actor domain.Actor, entryID string) (*domain.LedgerEntry, error) {
	entry, err := uc.ledger.GetByID(ctx, entryID)
	if err != nil {
		return nil, fmt.Errorf("fetch ledger entry: %w", err)
	}
	if entry.TenantID != actor.TenantID {
		return nil, domain.WrapError(domain.ErrNotFound, "fetch ledger entry",
			fmt.Errorf("entry %s not visible to tenant", entryID))
	}
	return entry, nil
}

// Get returns one ledger entry visible to the actor.
func (uc *ReviewWorkflowUseCase) Get(ctx context.Context, actor domain.Actor, entryID string) (*domain.LedgerEntry, error) {
	return uc.loadVisible(ctx, actor, entryID)
}

// History returns the processing audit trail for an entry.
func (uc *ReviewWorkflowUseCase) History(ctx context.Context, actor domain.Actor, entryID string) ([]domain.ProcessingLogEntry, error) {
	entry, err := uc.loadVisible(ctx, actor, entryID)
	if err != nil {
		return nil, err
	}
	history, err := uc.logs.ListByEntry(ctx, entry.ID)
	if err != nil {
		return nil, fmt.Errorf("list processing log: %w", err)
	}
	return history, nil
}

// OverrideCategory reclassifies an entry by hand. Unknown codes are a
// not-found error here; the untagged fallback applies only to classifier
// output. Allowed regardless of approval state for elevated actors.
func (uc *ReviewWorkflowUseCase) OverrideCategory(ctx context.Context, actor domain.Actor, entryID string, newCode domain.CategoryCode) (*domain.LedgerEntry, error) {
	entry, err := uc.loadVisible(ctx, actor, entryID)
	if err != nil {
		return nil, err
	}
	if !domain.CanOverrideCategory(actor, entry) {
		return nil, domain.WrapError(domain.ErrPermissionDenied, "override category",
			fmt.Errorf("actor %s may not update entry %s", actor.ID, entryID))
	}

	category, err := uc.taxonomy.GetByCode(ctx, actor.TenantID, newCode)
	if err != nil {
		return nil, fmt.Errorf("resolve category %s: %w", newCode, err)
	}

	now := time.Now().UTC()
	diagnostics := cloneMetadata(entry.Diagnostics)
	diagnostics[domain.MetaManualOverride] = map[string]any{
		"previous_category": string(entry.CategoryCode),
		"override_by":       actor.ID,
		"override_time":     now.Format(time.RFC3339),
	}

	if err := uc.tx.InTx(ctx, func(ctx context.Context) error {
		if err := uc.ledger.UpdateCategory(ctx, entry.ID, category.ID, category.Code, diagnostics); err != nil {
			return fmt.Errorf("update entry category: %w", err)
		}
		if err := uc.logs.Append(ctx, &domain.ProcessingLogEntry{
			ID:        uuid.NewString(),
			EntryID:   entry.ID,
			Status:    domain.LogCompleted,
			Message:   fmt.Sprintf("category manually updated to %s by %s", category.Name, actor.Name),
			Timestamp: now,
		}); err != nil {
			return fmt.Errorf("append processing log: %w", err)
		}
		loan, err := uc.loans.GetByID(ctx, entry.LoanID)
		if err != nil {
			return fmt.Errorf("fetch loan for recalculation: %w", err)
		}
		return uc.recalc.Recalculate(ctx, loan)
	}); err != nil {
		return nil, err
	}

	entry.CategoryID = category.ID
	entry.CategoryCode = category.Code
	entry.Diagnostics = diagnostics
	return entry, nil
}

// Decide records an approve or reject decision in the entry's metadata.
// LedgerEntry.status is untouched; approval is an orthogonal axis.
func (uc *ReviewWorkflowUseCase) Decide(ctx context.Context, actor domain.Actor, entryID, action, notes string) (*domain.LedgerEntry, error) {
	if !domain.CanDecide(actor) {
		return nil, domain.WrapError(domain.ErrPermissionDenied, "decide document",
			fmt.Errorf("actor %s may not approve or reject documents", actor.ID))
	}

	var approvalStatus string
	switch action {
	case "approve":
		approvalStatus = domain.ApprovalApproved
	case "reject":
		approvalStatus = domain.ApprovalRejected
	default:
		return nil, domain.WrapError(domain.ErrInvalidInput, "decide document",
			fmt.Errorf("action must be approve or reject, got %q", action))
	}

	entry, err := uc.loadVisible(ctx, actor, entryID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	metadata := cloneMetadata(entry.Metadata)
	metadata[domain.MetaApprovalStatus] = approvalStatus
	metadata[domain.MetaApprovalBy] = actor.ID
	metadata[domain.MetaApprovalTime] = now.Format(time.RFC3339)
	metadata[domain.MetaApprovalNotes] = notes

	if err := uc.ledger.UpdateMetadata(ctx, entry.ID, metadata); err != nil {
		return nil, fmt.Errorf("save approval metadata: %w", err)
	}
	if err := uc.logs.Append(ctx, &domain.ProcessingLogEntry{
		ID:        uuid.NewString(),
		EntryID:   entry.ID,
		Status:    domain.LogCompleted,
		Message:   fmt.Sprintf("document %s by %s: %s", approvalStatus, actor.Name, notes),
		Timestamp: now,
	}); err != nil {
		return nil, fmt.Errorf("append processing log: %w", err)
	}

	entry.Metadata = metadata
	return entry, nil
}

// Delete removes an entry and its backing object, then recomputes the parent
// loan's metrics. Storage deletion is best-effort: a failure is logged and
// never blocks the record deletion.
func (uc *ReviewWorkflowUseCase) Delete(ctx context.Context, actor domain.Actor, entryID string) error {
	entry, err := uc.loadVisible(ctx, actor, entryID)
	if err != nil {
		return err
	}
	if !domain.CanDeleteEntry(actor, entry) {
		if entry.ApprovalStatus() == domain.ApprovalApproved {
			return domain.WrapError(domain.ErrPermissionDenied, "delete document",
				fmt.Errorf("approved documents can only be deleted by an administrator"))
		}
		return domain.WrapError(domain.ErrPermissionDenied, "delete document",
			fmt.Errorf("actor %s may not delete entry %s", actor.ID, entryID))
	}

	if entry.StoragePath != "" {
		if err := uc.storage.Delete(ctx, entry.StoragePath); err != nil {
			slog.Warn("storage deletion failed, continuing with record deletion",
				"entry_id", entry.ID,
				"storage_path", entry.StoragePath,
				"error", err,
			)
		}
	}

	return uc.tx.InTx(ctx, func(ctx context.Context) error {
		if err := uc.ledger.Delete(ctx, entry.ID); err != nil {
			return fmt.Errorf("delete ledger entry: %w", err)
		}
		loan, err := uc.loans.GetByID(ctx, entry.LoanID)
		if err != nil {
			return fmt.Errorf("fetch loan for recalculation: %w", err)
		}
		return uc.recalc.Recalculate(ctx, loan)
	})
}
