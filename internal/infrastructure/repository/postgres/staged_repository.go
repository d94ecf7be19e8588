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

type StagedUploadRepository struct {
	db *DB
}

func NewStagedUploadRepository(db *DB) *StagedUploadRepository {
	return &StagedUploadRepository{db: db}
}

func (r *StagedUploadRepository) Create(ctx context.Context, staged *domain.StagedUpload) error {
	metadataJSON, err := json.Marshal(staged.Metadata)
	if err != nil {
		return fmt.Errorf("marshal staged metadata: %w", err)
	}

	_, err = r.db.q(ctx).ExecContext(ctx, `
INSERT INTO staged_uploads (
	id, tenant_id, owner_id, filename, declared_type, status, storage_path, metadata, uploaded_at, processed_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`,
		staged.ID, staged.TenantID, staged.OwnerID, staged.Filename, staged.DeclaredType,
		string(staged.Status), staged.StoragePath, metadataJSON, staged.UploadedAt, staged.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("insert staged upload: %w", err)
	}
	return nil
}

func (r *StagedUploadRepository) GetByID(ctx context.Context, id string) (*domain.StagedUpload, error) {
	row := r.db.q(ctx).QueryRowContext(ctx, `
SELECT id, tenant_id, owner_id, filename, declared_type, status, storage_path, metadata, uploaded_at, processed_at
FROM staged_uploads
WHERE id = $1
`, id)

	var staged domain.StagedUpload
	var metadataRaw []byte
	var status string

	err := row.Scan(
		&staged.ID, &staged.TenantID, &staged.OwnerID, &staged.Filename, &staged.DeclaredType,
		&status, &staged.StoragePath, &metadataRaw, &staged.UploadedAt, &staged.ProcessedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get staged upload",
				fmt.Errorf("staged upload not found: %s", id))
		}
		return nil, fmt.Errorf("scan staged upload: %w", err)
	}

	if err := json.Unmarshal(metadataRaw, &staged.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal staged metadata: %w", err)
	}
	staged.Status = domain.StagedStatus(status)
	return &staged, nil
}

func (r *StagedUploadRepository) UpdateStatus(ctx context.Context, id string, status domain.StagedStatus, processedAt *time.Time) error {
	result, err := r.db.q(ctx).ExecContext(ctx, `
UPDATE staged_uploads
SET status = $2, processed_at = $3
WHERE id = $1
`, id, string(status), processedAt)
	if err != nil {
		return fmt.Errorf("update staged status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update staged status rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrNotFound, "update staged status",
			fmt.Errorf("staged upload not found: %s", id))
	}
	return nil
}
