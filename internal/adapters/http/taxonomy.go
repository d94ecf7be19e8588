package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lendware/docflow/internal/core/domain"
)

func (rt *Router) listCategories(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	categories, err := rt.taxonomy.ListForTenant(r.Context(), actor.TenantID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

// createCategory registers a tenant category row for one of the known codes.
// Taxonomy management is an administrator concern.
func (rt *Router) createCategory(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if !actor.IsAdmin() {
		writeError(w, domain.WrapError(domain.ErrPermissionDenied, "create category",
			errors.New("taxonomy changes require an administrator role")))
		return
	}

	var req struct {
		Code         string `json:"code"`
		Name         string `json:"name"`
		Description  string `json:"description"`
		DisplayOrder int    `json:"display_order"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "create category", errInvalidJSON))
		return
	}
	code, ok := domain.ParseCategoryCode(req.Code)
	if !ok {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "create category", errUnknownCategory))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "create category",
			errors.New("name is required")))
		return
	}

	category := &domain.Category{
		ID:           uuid.NewString(),
		TenantID:     actor.TenantID,
		Code:         code,
		Name:         req.Name,
		Description:  req.Description,
		DisplayOrder: req.DisplayOrder,
	}
	if err := rt.taxonomy.CreateCategory(r.Context(), category); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

func (rt *Router) listTypeSpecs(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	category, err := rt.loadTenantCategory(r, actor.TenantID)
	if err != nil {
		writeError(w, err)
		return
	}
	specs, err := rt.taxonomy.ListTypeSpecs(r.Context(), category.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, specs)
}

func (rt *Router) createTypeSpec(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if !actor.IsAdmin() {
		writeError(w, domain.WrapError(domain.ErrPermissionDenied, "create type spec",
			errors.New("taxonomy changes require an administrator role")))
		return
	}
	category, err := rt.loadTenantCategory(r, actor.TenantID)
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		Name            string         `json:"name"`
		Description     string         `json:"description"`
		Required        bool           `json:"is_required"`
		ValidationRules map[string]any `json:"validation_rules"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "create type spec", errInvalidJSON))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "create type spec",
			errors.New("name is required")))
		return
	}

	now := time.Now().UTC()
	spec := &domain.DocumentTypeSpec{
		ID:              uuid.NewString(),
		TenantID:        actor.TenantID,
		CategoryID:      category.ID,
		Name:            req.Name,
		Description:     req.Description,
		Required:        req.Required,
		ValidationRules: req.ValidationRules,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := rt.taxonomy.CreateTypeSpec(r.Context(), spec); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, spec)
}

// loadTenantCategory resolves the {id} path value and hides rows belonging
// to other tenants.
func (rt *Router) loadTenantCategory(r *http.Request, tenantID string) (*domain.Category, error) {
	category, err := rt.taxonomy.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		return nil, err
	}
	if category.TenantID != tenantID {
		return nil, domain.WrapError(domain.ErrNotFound, "get category",
			errors.New("category not visible to tenant"))
	}
	return category, nil
}
