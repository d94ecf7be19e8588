package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lendware/docflow/internal/core/domain"
	"github.com/lendware/docflow/internal/core/ports"
)

// LoanServiceUseCase covers explicit loan application operations around the
// document pipeline: draft creation and editing, the submission and
// processing state machine with its append-only history, letter generation,
// and the derived-metric read models.
type LoanServiceUseCase struct {
	loans    ports.LoanRepository
	ledger   ports.LedgerRepository
	taxonomy ports.TaxonomyRepository
	composer ports.LetterComposer
}

func NewLoanServiceUseCase(
	loans ports.LoanRepository,
	ledger ports.LedgerRepository,
	taxonomy ports.TaxonomyRepository,
	composer ports.LetterComposer,
) *LoanServiceUseCase {
	return &LoanServiceUseCase{
		loans:    loans,
		ledger:   ledger,
		taxonomy: taxonomy,
		composer: composer,
	}
}

func (uc *LoanServiceUseCase) CreateDraft(ctx context.Context, actor domain.Actor, amountCents int64, purpose string, termMonths int) (*domain.LoanApplication, error) {
	if amountCents < 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "create loan", fmt.Errorf("loan amount must not be negative"))
	}
	if strings.TrimSpace(purpose) == "" {
		purpose = "Document Upload"
	}
	if termMonths <= 0 {
		termMonths = domain.DefaultDraftTermMonths
	}

	now := time.Now().UTC()
	loan := &domain.LoanApplication{
		ID:            uuid.NewString(),
		TenantID:      actor.TenantID,
		OwnerID:       actor.ID,
		ApplicantName: actor.Name,
		AmountCents:   amountCents,
		Purpose:       purpose,
		TermMonths:    termMonths,
		Status:        domain.LoanDraft,
		Metadata:      map[string]any{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := uc.loans.Create(ctx, loan); err != nil {
		return nil, fmt.Errorf("create loan application: %w", err)
	}
	return loan, nil
}

// Update edits the financial fields of a loan application. Owners may edit
// their loan while it is still a draft or freshly submitted; reviewers may
// edit at any status.
func (uc *LoanServiceUseCase) Update(ctx context.Context, actor domain.Actor, loanID string, upd ports.LoanUpdate) (*domain.LoanApplication, error) {
	loan, err := uc.loadVisible(ctx, actor, loanID)
	if err != nil {
		return nil, err
	}
	if !actor.IsReviewer() && loan.Status != domain.LoanDraft && loan.Status != domain.LoanSubmitted {
		return nil, domain.WrapError(domain.ErrInvalidInput, "update loan",
			fmt.Errorf("loan %s is %s and can no longer be edited", loanID, loan.Status))
	}

	if upd.AmountCents != nil {
		if *upd.AmountCents < 0 {
			return nil, domain.WrapError(domain.ErrInvalidInput, "update loan",
				fmt.Errorf("loan amount must not be negative"))
		}
		loan.AmountCents = *upd.AmountCents
	}
	if upd.Purpose != nil {
		if strings.TrimSpace(*upd.Purpose) == "" {
			return nil, domain.WrapError(domain.ErrInvalidInput, "update loan",
				fmt.Errorf("loan purpose must not be empty"))
		}
		loan.Purpose = *upd.Purpose
	}
	if upd.TermMonths != nil {
		if *upd.TermMonths <= 0 {
			return nil, domain.WrapError(domain.ErrInvalidInput, "update loan",
				fmt.Errorf("loan term must be positive"))
		}
		loan.TermMonths = *upd.TermMonths
	}
	if upd.InterestRate != nil {
		loan.InterestRate = *upd.InterestRate
	}
	loan.UpdatedAt = time.Now().UTC()

	if err := uc.loans.Update(ctx, loan); err != nil {
		return nil, fmt.Errorf("persist loan update: %w", err)
	}
	return loan, nil
}

// Submit moves a draft to submitted and appends the transition to the
// append-only processing_history metadata.
func (uc *LoanServiceUseCase) Submit(ctx context.Context, actor domain.Actor, loanID string) (*domain.LoanApplication, error) {
	loan, err := uc.loadVisible(ctx, actor, loanID)
	if err != nil {
		return nil, err
	}
	if loan.OwnerID != actor.ID && !actor.IsReviewer() {
		return nil, domain.WrapError(domain.ErrPermissionDenied, "submit loan",
			fmt.Errorf("loan %s is not owned by caller", loanID))
	}
	if loan.Status != domain.LoanDraft {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit loan",
			fmt.Errorf("loan %s is %s, only drafts can be submitted", loanID, loan.Status))
	}

	now := time.Now().UTC()
	loan.AppendTransition(domain.LoanSubmitted, actor, "", now)
	loan.SubmittedAt = &now

	if err := uc.loans.UpdateStatus(ctx, loan); err != nil {
		return nil, fmt.Errorf("persist loan submission: %w", err)
	}
	return loan, nil
}

// Process advances a submitted loan through the review state machine:
// submitted -> under_review -> underwriter -> approved or rejected (approve
// and reject are also reachable straight from under_review). Each step
// appends a processing_history record with the reviewer's notes.
func (uc *LoanServiceUseCase) Process(ctx context.Context, actor domain.Actor, loanID, action, notes string) (*domain.LoanApplication, error) {
	if !actor.IsReviewer() {
		return nil, domain.WrapError(domain.ErrPermissionDenied, "process loan",
			fmt.Errorf("actor %s may not process loan applications", actor.ID))
	}

	loan, err := uc.loadVisible(ctx, actor, loanID)
	if err != nil {
		return nil, err
	}

	var target domain.LoanStatus
	switch action {
	case "review":
		if loan.Status != domain.LoanSubmitted {
			return nil, domain.WrapError(domain.ErrInvalidInput, "process loan",
				fmt.Errorf("can only move to under_review from submitted, loan is %s", loan.Status))
		}
		target = domain.LoanUnderReview
	case "underwriter":
		if loan.Status != domain.LoanUnderReview {
			return nil, domain.WrapError(domain.ErrInvalidInput, "process loan",
				fmt.Errorf("can only move to underwriter from under_review, loan is %s", loan.Status))
		}
		target = domain.LoanUnderwriter
	case "approve", "reject":
		if loan.Status != domain.LoanUnderReview && loan.Status != domain.LoanUnderwriter {
			return nil, domain.WrapError(domain.ErrInvalidInput, "process loan",
				fmt.Errorf("can only %s from under_review or underwriter, loan is %s", action, loan.Status))
		}
		target = domain.LoanApproved
		if action == "reject" {
			target = domain.LoanRejected
		}
	default:
		return nil, domain.WrapError(domain.ErrInvalidInput, "process loan",
			fmt.Errorf("action must be review, underwriter, approve or reject, got %q", action))
	}

	now := time.Now().UTC()
	loan.AppendTransition(target, actor, notes, now)
	if target == domain.LoanApproved || target == domain.LoanRejected {
		loan.DecidedAt = &now
	}

	if err := uc.loans.UpdateStatus(ctx, loan); err != nil {
		return nil, fmt.Errorf("persist loan processing: %w", err)
	}
	return loan, nil
}

func (uc *LoanServiceUseCase) Get(ctx context.Context, actor domain.Actor, loanID string) (*domain.LoanApplication, error) {
	return uc.loadVisible(ctx, actor, loanID)
}

// Metrics returns the stored derived metrics plus a per-category coverage
// breakdown (≥1 completed entry in the category).
func (uc *LoanServiceUseCase) Metrics(ctx context.Context, actor domain.Actor, loanID string) (*ports.LoanMetricsView, error) {
	loan, err := uc.loadVisible(ctx, actor, loanID)
	if err != nil {
		return nil, err
	}

	categories, err := uc.taxonomy.ListForTenant(ctx, loan.TenantID)
	if err != nil {
		return nil, fmt.Errorf("list tenant categories: %w", err)
	}

	view := &ports.LoanMetricsView{
		LoanID:        loan.ID,
		Status:        loan.Status,
		CaseReadiness: loan.CaseReadiness,
		DocumentIndex: loan.DocumentIndex,
		Coverage:      make([]ports.CategoryCoverage, 0, len(categories)),
	}
	for _, category := range categories {
		covered, err := uc.ledger.HasCompletedInCategory(ctx, loan.ID, category.ID)
		if err != nil {
			return nil, fmt.Errorf("check coverage for %s: %w", category.Code, err)
		}
		view.Coverage = append(view.Coverage, ports.CategoryCoverage{
			Code:    category.Code,
			Name:    category.Name,
			Covered: covered,
		})
	}
	return view, nil
}

func (uc *LoanServiceUseCase) Documents(ctx context.Context, actor domain.Actor, loanID string) ([]domain.LedgerEntry, error) {
	loan, err := uc.loadVisible(ctx, actor, loanID)
	if err != nil {
		return nil, err
	}
	entries, err := uc.ledger.ListByLoan(ctx, loan.ID)
	if err != nil {
		return nil, fmt.Errorf("list loan documents: %w", err)
	}
	return entries, nil
}

// GenerateLetter composes borrower correspondence for a loan. Document
// request letters enumerate the required document types whose category has
// no completed ledger entry yet.
func (uc *LoanServiceUseCase) GenerateLetter(ctx context.Context, actor domain.Actor, loanID, letterType string) (*ports.LetterView, error) {
	parsed, ok := domain.ParseLetterType(letterType)
	if !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "generate letter",
			fmt.Errorf("unknown letter type %q", letterType))
	}

	loan, err := uc.loadVisible(ctx, actor, loanID)
	if err != nil {
		return nil, err
	}

	var missing []domain.MissingDocument
	if parsed == domain.LetterDocumentRequest {
		missing, err = uc.missingRequiredDocuments(ctx, loan)
		if err != nil {
			return nil, err
		}
	}

	content := uc.composer.Compose(ctx, domain.LetterRequest{
		Type:    parsed,
		Loan:    loan,
		Missing: missing,
	})
	return &ports.LetterView{
		LetterType:    parsed,
		LoanID:        loan.ID,
		ApplicantName: loan.ApplicantName,
		GeneratedAt:   time.Now().UTC(),
		Content:       content,
	}, nil
}

// missingRequiredDocuments lists required type specs in categories without a
// completed ledger entry for this loan.
func (uc *LoanServiceUseCase) missingRequiredDocuments(ctx context.Context, loan *domain.LoanApplication) ([]domain.MissingDocument, error) {
	categories, err := uc.taxonomy.ListForTenant(ctx, loan.TenantID)
	if err != nil {
		return nil, fmt.Errorf("list tenant categories: %w", err)
	}

	var missing []domain.MissingDocument
	for _, category := range categories {
		specs, err := uc.taxonomy.ListTypeSpecs(ctx, category.ID)
		if err != nil {
			return nil, fmt.Errorf("list type specs for %s: %w", category.Code, err)
		}
		required := false
		for _, spec := range specs {
			if spec.Required {
				required = true
				break
			}
		}
		if !required {
			continue
		}

		covered, err := uc.ledger.HasCompletedInCategory(ctx, loan.ID, category.ID)
		if err != nil {
			return nil, fmt.Errorf("check coverage for %s: %w", category.Code, err)
		}
		if covered {
			continue
		}
		for _, spec := range specs {
			if !spec.Required {
				continue
			}
			missing = append(missing, domain.MissingDocument{
				Category:    category.Name,
				Type:        spec.Name,
				Description: spec.Description,
			})
		}
	}
	return missing, nil
}

func (uc *LoanServiceUseCase) loadVisible(ctx context.Context, actor domain.Actor, loanID string) (*domain.LoanApplication, error) {
	loan, err := uc.loans.GetByID(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("fetch loan application: %w", err)
	}
	if loan.TenantID != actor.TenantID {
		return nil, domain.WrapError(domain.ErrNotFound, "fetch loan application",
			fmt.Errorf("loan %s not visible to tenant", loanID))
	}
	if loan.OwnerID != actor.ID && !actor.IsReviewer() {
		return nil, domain.WrapError(domain.ErrPermissionDenied, "fetch loan application",
			fmt.Errorf("loan %s is not owned by caller", loanID))
	}
	return loan, nil
}
