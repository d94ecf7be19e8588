package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lendware/docflow/internal/core/domain"
)

type LoanRepository struct {
	db *DB
}

func NewLoanRepository(db *DB) *LoanRepository {
	return &LoanRepository{db: db}
}

const loanColumns = `id, tenant_id, owner_id, applicant_name, loan_amount_cents, loan_purpose, loan_term_months,
	interest_rate, status, case_readiness, document_index, metadata, submitted_at, decided_at, created_at, updated_at`

func (r *LoanRepository) Create(ctx context.Context, loan *domain.LoanApplication) error {
	metadataJSON, err := json.Marshal(loan.Metadata)
	if err != nil {
		return fmt.Errorf("marshal loan metadata: %w", err)
	}

	_, err = r.db.q(ctx).ExecContext(ctx, `
INSERT INTO loan_applications (`+loanColumns+`
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
`,
		loan.ID, loan.TenantID, loan.OwnerID, loan.ApplicantName, loan.AmountCents, loan.Purpose,
		loan.TermMonths, loan.InterestRate, string(loan.Status), loan.CaseReadiness, loan.DocumentIndex,
		metadataJSON, loan.SubmittedAt, loan.DecidedAt, loan.CreatedAt, loan.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert loan application: %w", err)
	}
	return nil
}

func (r *LoanRepository) GetByID(ctx context.Context, id string) (*domain.LoanApplication, error) {
	row := r.db.q(ctx).QueryRowContext(ctx, `
SELECT `+loanColumns+`
FROM loan_applications
WHERE id = $1
`, id)

	loan, err := scanLoan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get loan application",
				fmt.Errorf("loan application not found: %s", id))
		}
		return nil, fmt.Errorf("get loan application: %w", err)
	}
	return loan, nil
}

func (r *LoanRepository) LatestByOwner(ctx context.Context, tenantID, ownerID string) (*domain.LoanApplication, error) {
	row := r.db.q(ctx).QueryRowContext(ctx, `
SELECT `+loanColumns+`
FROM loan_applications
WHERE tenant_id = $1 AND owner_id = $2
ORDER BY created_at DESC
LIMIT 1
`, tenantID, ownerID)

	loan, err := scanLoan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get latest loan",
				fmt.Errorf("no loan application for owner %s", ownerID))
		}
		return nil, fmt.Errorf("get latest loan: %w", err)
	}
	return loan, nil
}

func (r *LoanRepository) Update(ctx context.Context, loan *domain.LoanApplication) error {
	result, err := r.db.q(ctx).ExecContext(ctx, `
UPDATE loan_applications
SET loan_amount_cents = $2, loan_purpose = $3, loan_term_months = $4, interest_rate = $5, updated_at = $6
WHERE id = $1
`, loan.ID, loan.AmountCents, loan.Purpose, loan.TermMonths, loan.InterestRate, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update loan application: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update loan application rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrNotFound, "update loan application",
			fmt.Errorf("loan application not found: %s", loan.ID))
	}
	return nil
}

func (r *LoanRepository) UpdateMetrics(ctx context.Context, id string, caseReadiness, documentIndex int) error {
	result, err := r.db.q(ctx).ExecContext(ctx, `
UPDATE loan_applications
SET case_readiness = $2, document_index = $3, updated_at = $4
WHERE id = $1
`, id, caseReadiness, documentIndex, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update loan metrics: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update loan metrics rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrNotFound, "update loan metrics",
			fmt.Errorf("loan application not found: %s", id))
	}
	return nil
}

func (r *LoanRepository) UpdateStatus(ctx context.Context, loan *domain.LoanApplication) error {
	metadataJSON, err := json.Marshal(loan.Metadata)
	if err != nil {
		return fmt.Errorf("marshal loan metadata: %w", err)
	}

	result, err := r.db.q(ctx).ExecContext(ctx, `
UPDATE loan_applications
SET status = $2, metadata = $3, submitted_at = $4, decided_at = $5, updated_at = $6
WHERE id = $1
`, loan.ID, string(loan.Status), metadataJSON, loan.SubmittedAt, loan.DecidedAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update loan status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update loan status rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrNotFound, "update loan status",
			fmt.Errorf("loan application not found: %s", loan.ID))
	}
	return nil
}

func scanLoan(row rowScanner) (*domain.LoanApplication, error) {
	var loan domain.LoanApplication
	var metadataRaw []byte
	var status string

	err := row.Scan(
		&loan.ID, &loan.TenantID, &loan.OwnerID, &loan.ApplicantName, &loan.AmountCents, &loan.Purpose,
		&loan.TermMonths, &loan.InterestRate, &status, &loan.CaseReadiness, &loan.DocumentIndex,
		&metadataRaw, &loan.SubmittedAt, &loan.DecidedAt, &loan.CreatedAt, &loan.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(metadataRaw, &loan.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal loan metadata: %w", err)
	}
	loan.Status = domain.LoanStatus(status)
	return &loan, nil
}
