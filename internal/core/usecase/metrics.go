package usecase

import (
	"context"
	"fmt"

	"github.com/lendware/docflow/internal/core/domain"
	"github.com/lendware/docflow/internal/core/ports"
)

// ReadinessRecalculator recomputes both derived loan metrics from persisted
// state. It must run after every ledger entry creation, category change, or
// deletion; it is idempotent and safe to call redundantly.
type ReadinessRecalculator struct {
	taxonomy ports.TaxonomyRepository
	ledger   ports.LedgerRepository
	loans    ports.LoanRepository
}

func NewReadinessRecalculator(
	taxonomy ports.TaxonomyRepository,
	ledger ports.LedgerRepository,
	loans ports.LoanRepository,
) *ReadinessRecalculator {
	return &ReadinessRecalculator{
		taxonomy: taxonomy,
		ledger:   ledger,
		loans:    loans,
	}
}

// Recalculate loads the aggregate counts, derives both metrics, and persists
// them on the loan. The computation itself never fails; only storage errors
// propagate.
func (r *ReadinessRecalculator) Recalculate(ctx context.Context, loan *domain.LoanApplication) error {
	if loan == nil {
		return nil
	}

	categoryCount, err := r.taxonomy.CountForTenant(ctx, loan.TenantID)
	if err != nil {
		return fmt.Errorf("count tenant categories: %w", err)
	}
	covered, err := r.ledger.CountDistinctCategories(ctx, loan.ID)
	if err != nil {
		return fmt.Errorf("count covered categories: %w", err)
	}
	total, completed, err := r.ledger.CountByLoan(ctx, loan.ID)
	if err != nil {
		return fmt.Errorf("count ledger entries: %w", err)
	}

	readiness, index := domain.ComputeMetrics(categoryCount, covered, total, completed)
	if err := r.loans.UpdateMetrics(ctx, loan.ID, readiness, index); err != nil {
		return fmt.Errorf("persist loan metrics: %w", err)
	}

	loan.CaseReadiness = readiness
	loan.DocumentIndex = index
	return nil
}
