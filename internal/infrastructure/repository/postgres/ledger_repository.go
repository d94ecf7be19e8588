package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lendware/docflow/internal/core/domain"
)

type LedgerRepository struct {
	db *DB
}

func NewLedgerRepository(db *DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

const ledgerColumns = `id, tenant_id, owner_id, loan_application_id, category_id, category_code,
	filename, declared_type, status, storage_path, source, confidence, diagnostics, metadata, uploaded_at, processed_at`

func (r *LedgerRepository) Create(ctx context.Context, entry *domain.LedgerEntry) error {
	diagnosticsJSON, err := json.Marshal(entry.Diagnostics)
	if err != nil {
		return fmt.Errorf("marshal diagnostics: %w", err)
	}
	metadataJSON, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("marshal entry metadata: %w", err)
	}

	_, err = r.db.q(ctx).ExecContext(ctx, `
INSERT INTO ledger_entries (`+ledgerColumns+`
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
`,
		entry.ID, entry.TenantID, entry.OwnerID, entry.LoanID, entry.CategoryID, string(entry.CategoryCode),
		entry.Filename, entry.DeclaredType, string(entry.Status), entry.StoragePath, string(entry.Source),
		entry.Confidence, diagnosticsJSON, metadataJSON, entry.UploadedAt, entry.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

func (r *LedgerRepository) GetByID(ctx context.Context, id string) (*domain.LedgerEntry, error) {
	row := r.db.q(ctx).QueryRowContext(ctx, `
SELECT `+ledgerColumns+`
FROM ledger_entries
WHERE id = $1
`, id)

	entry, err := scanLedgerEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get ledger entry",
				fmt.Errorf("ledger entry not found: %s", id))
		}
		return nil, fmt.Errorf("get ledger entry: %w", err)
	}
	return entry, nil
}

func (r *LedgerRepository) ListByLoan(ctx context.Context, loanID string) ([]domain.LedgerEntry, error) {
	rows, err := r.db.q(ctx).QueryContext(ctx, `
SELECT `+ledgerColumns+`
FROM ledger_entries
WHERE loan_application_id = $1
ORDER BY uploaded_at DESC
`, loanID)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	out := make([]domain.LedgerEntry, 0)
	for rows.Next() {
		entry, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		out = append(out, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}
	return out, nil
}

func (r *LedgerRepository) UpdateCategory(ctx context.Context, id, categoryID string, code domain.CategoryCode, diagnostics map[string]any) error {
	diagnosticsJSON, err := json.Marshal(diagnostics)
	if err != nil {
		return fmt.Errorf("marshal diagnostics: %w", err)
	}

	result, err := r.db.q(ctx).ExecContext(ctx, `
UPDATE ledger_entries
SET category_id = $2, category_code = $3, diagnostics = $4
WHERE id = $1
`, id, categoryID, string(code), diagnosticsJSON)
	if err != nil {
		return fmt.Errorf("update entry category: %w", err)
	}
	return requireRow(result, "update entry category", id)
}

func (r *LedgerRepository) UpdateMetadata(ctx context.Context, id string, metadata map[string]any) error {
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshal entry metadata: %w", err)
	}

	result, err := r.db.q(ctx).ExecContext(ctx, `
UPDATE ledger_entries
SET metadata = $2
WHERE id = $1
`, id, metadataJSON)
	if err != nil {
		return fmt.Errorf("update entry metadata: %w", err)
	}
	return requireRow(result, "update entry metadata", id)
}

func (r *LedgerRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.q(ctx).ExecContext(ctx, `
DELETE FROM ledger_entries
WHERE id = $1
`, id)
	if err != nil {
		return fmt.Errorf("delete ledger entry: %w", err)
	}
	return requireRow(result, "delete ledger entry", id)
}

func (r *LedgerRepository) CountByLoan(ctx context.Context, loanID string) (int, int, error) {
	row := r.db.q(ctx).QueryRowContext(ctx, `
SELECT COUNT(*), COUNT(*) FILTER (WHERE status = $2)
FROM ledger_entries
WHERE loan_application_id = $1
`, loanID, string(domain.EntryCompleted))

	var total, completed int
	if err := row.Scan(&total, &completed); err != nil {
		return 0, 0, fmt.Errorf("count ledger entries: %w", err)
	}
	return total, completed, nil
}

func (r *LedgerRepository) CountDistinctCategories(ctx context.Context, loanID string) (int, error) {
	row := r.db.q(ctx).QueryRowContext(ctx, `
SELECT COUNT(DISTINCT category_id)
FROM ledger_entries
WHERE loan_application_id = $1
`, loanID)

	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count covered categories: %w", err)
	}
	return count, nil
}

func (r *LedgerRepository) HasCompletedInCategory(ctx context.Context, loanID, categoryID string) (bool, error) {
	row := r.db.q(ctx).QueryRowContext(ctx, `
SELECT EXISTS (
	SELECT 1 FROM ledger_entries
	WHERE loan_application_id = $1 AND category_id = $2 AND status = $3
)
`, loanID, categoryID, string(domain.EntryCompleted))

	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, fmt.Errorf("check category coverage: %w", err)
	}
	return exists, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLedgerEntry(row rowScanner) (*domain.LedgerEntry, error) {
	var entry domain.LedgerEntry
	var diagnosticsRaw, metadataRaw []byte
	var code, status, source string

	err := row.Scan(
		&entry.ID, &entry.TenantID, &entry.OwnerID, &entry.LoanID, &entry.CategoryID, &code,
		&entry.Filename, &entry.DeclaredType, &status, &entry.StoragePath, &source,
		&entry.Confidence, &diagnosticsRaw, &metadataRaw, &entry.UploadedAt, &entry.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(diagnosticsRaw, &entry.Diagnostics); err != nil {
		return nil, fmt.Errorf("unmarshal diagnostics: %w", err)
	}
	if err := json.Unmarshal(metadataRaw, &entry.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal entry metadata: %w", err)
	}
	entry.CategoryCode = domain.CategoryCode(code)
	entry.Status = domain.EntryStatus(status)
	entry.Source = domain.Source(source)
	return &entry, nil
}

// requireRow maps a zero-row write to the domain not-found kind.
func requireRow(result sql.Result, operation, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrNotFound, operation,
			fmt.Errorf("ledger entry not found: %s", id))
	}
	return nil
}
