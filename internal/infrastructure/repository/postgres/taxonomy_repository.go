package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lendware/docflow/internal/core/domain"
)

type TaxonomyRepository struct {
	db *DB
}

func NewTaxonomyRepository(db *DB) *TaxonomyRepository {
	return &TaxonomyRepository{db: db}
}

const categoryColumns = `id, tenant_id, code, name, description, display_order`

func (r *TaxonomyRepository) GetByCode(ctx context.Context, tenantID string, code domain.CategoryCode) (*domain.Category, error) {
	row := r.db.q(ctx).QueryRowContext(ctx, `
SELECT `+categoryColumns+`
FROM document_categories
WHERE tenant_id = $1 AND code = $2
`, tenantID, string(code))

	category, err := scanCategory(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get category by code",
				fmt.Errorf("category %s not found for tenant %s", code, tenantID))
		}
		return nil, fmt.Errorf("get category by code: %w", err)
	}
	return category, nil
}

func (r *TaxonomyRepository) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	row := r.db.q(ctx).QueryRowContext(ctx, `
SELECT `+categoryColumns+`
FROM document_categories
WHERE id = $1
`, id)

	category, err := scanCategory(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get category",
				fmt.Errorf("category not found: %s", id))
		}
		return nil, fmt.Errorf("get category: %w", err)
	}
	return category, nil
}

func (r *TaxonomyRepository) ListForTenant(ctx context.Context, tenantID string) ([]domain.Category, error) {
	rows, err := r.db.q(ctx).QueryContext(ctx, `
SELECT `+categoryColumns+`
FROM document_categories
WHERE tenant_id = $1
ORDER BY display_order, code
`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Category, 0)
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, *category)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return out, nil
}

func (r *TaxonomyRepository) CountForTenant(ctx context.Context, tenantID string) (int, error) {
	row := r.db.q(ctx).QueryRowContext(ctx, `
SELECT COUNT(*)
FROM document_categories
WHERE tenant_id = $1
`, tenantID)

	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count categories: %w", err)
	}
	return count, nil
}

func (r *TaxonomyRepository) CreateCategory(ctx context.Context, category *domain.Category) error {
	_, err := r.db.q(ctx).ExecContext(ctx, `
INSERT INTO document_categories (`+categoryColumns+`
) VALUES ($1,$2,$3,$4,$5,$6)
`,
		category.ID, category.TenantID, string(category.Code), category.Name,
		category.Description, category.DisplayOrder,
	)
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (r *TaxonomyRepository) CreateTypeSpec(ctx context.Context, spec *domain.DocumentTypeSpec) error {
	rulesJSON, err := json.Marshal(spec.ValidationRules)
	if err != nil {
		return fmt.Errorf("marshal validation rules: %w", err)
	}

	_, err = r.db.q(ctx).ExecContext(ctx, `
INSERT INTO document_type_specs (
	id, tenant_id, category_id, name, description, is_required, validation_rules, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`,
		spec.ID, spec.TenantID, spec.CategoryID, spec.Name, spec.Description,
		spec.Required, rulesJSON, spec.CreatedAt, spec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert type spec: %w", err)
	}
	return nil
}

func (r *TaxonomyRepository) ListTypeSpecs(ctx context.Context, categoryID string) ([]domain.DocumentTypeSpec, error) {
	rows, err := r.db.q(ctx).QueryContext(ctx, `
SELECT id, tenant_id, category_id, name, description, is_required, validation_rules, created_at, updated_at
FROM document_type_specs
WHERE category_id = $1
ORDER BY name
`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list type specs: %w", err)
	}
	defer rows.Close()

	out := make([]domain.DocumentTypeSpec, 0)
	for rows.Next() {
		var spec domain.DocumentTypeSpec
		var rulesRaw []byte
		if err := rows.Scan(
			&spec.ID, &spec.TenantID, &spec.CategoryID, &spec.Name, &spec.Description,
			&spec.Required, &rulesRaw, &spec.CreatedAt, &spec.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan type spec: %w", err)
		}
		if err := json.Unmarshal(rulesRaw, &spec.ValidationRules); err != nil {
			return nil, fmt.Errorf("unmarshal validation rules: %w", err)
		}
		out = append(out, spec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate type specs: %w", err)
	}
	return out, nil
}

// SeedDefaults provisions the standard taxonomy for a tenant. Existing rows
// are left alone so re-running on boot is safe.
func (r *TaxonomyRepository) SeedDefaults(ctx context.Context, tenantID string) error {
	return r.db.InTx(ctx, func(ctx context.Context) error {
		now := time.Now().UTC()
		for order, seed := range domain.DefaultTaxonomy() {
			categoryID := uuid.NewString()
			row := r.db.q(ctx).QueryRowContext(ctx, `
INSERT INTO document_categories (`+categoryColumns+`
) VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (tenant_id, code) DO UPDATE SET code = EXCLUDED.code
RETURNING id
`, categoryID, tenantID, string(seed.Code), seed.Name, seed.Description, order)
			if err := row.Scan(&categoryID); err != nil {
				return fmt.Errorf("seed category %s: %w", seed.Code, err)
			}

			for _, typeSeed := range seed.Types {
				if _, err := r.db.q(ctx).ExecContext(ctx, `
INSERT INTO document_type_specs (
	id, tenant_id, category_id, name, description, is_required, validation_rules, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,'{}'::jsonb,$7,$7)
ON CONFLICT (category_id, name) DO NOTHING
`, uuid.NewString(), tenantID, categoryID, typeSeed.Name, typeSeed.Description, typeSeed.Required, now); err != nil {
					return fmt.Errorf("seed type %s/%s: %w", seed.Code, typeSeed.Name, err)
				}
			}
		}
		return nil
	})
}

func scanCategory(row rowScanner) (*domain.Category, error) {
	var category domain.Category
	var code string
	err := row.Scan(
		&category.ID, &category.TenantID, &code, &category.Name,
		&category.Description, &category.DisplayOrder,
	)
	if err != nil {
		return nil, err
	}
	category.Code = domain.CategoryCode(code)
	return &category, nil
}
