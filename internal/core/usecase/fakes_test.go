package usecase

import (
	"context"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/lendware/docflow/internal/core/domain"
)

// Shared in-memory fakes for the pipeline use cases. Error fields inject
// failures per method.

type fakeStagedRepo struct {
	uploads     map[string]*domain.StagedUpload
	createErr   error
	getErr      error
	statusErr   error
	statusCalls []domain.StagedStatus
}

func newFakeStagedRepo() *fakeStagedRepo {
	return &fakeStagedRepo{uploads: map[string]*domain.StagedUpload{}}
}

func (f *fakeStagedRepo) Create(_ context.Context, staged *domain.StagedUpload) error {
	if f.createErr != nil {
		return f.createErr
	}
	cp := *staged
	f.uploads[staged.ID] = &cp
	return nil
}

func (f *fakeStagedRepo) GetByID(_ context.Context, id string) (*domain.StagedUpload, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	staged, ok := f.uploads[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "fake staged", domain.ErrNotFound)
	}
	cp := *staged
	return &cp, nil
}

func (f *fakeStagedRepo) UpdateStatus(_ context.Context, id string, status domain.StagedStatus, processedAt *time.Time) error {
	f.statusCalls = append(f.statusCalls, status)
	if f.statusErr != nil {
		return f.statusErr
	}
	if staged, ok := f.uploads[id]; ok {
		staged.Status = status
		staged.ProcessedAt = processedAt
	}
	return nil
}

type fakeLedgerRepo struct {
	entries   map[string]*domain.LedgerEntry
	createErr error
	deleteErr error
}

func newFakeLedgerRepo() *fakeLedgerRepo {
	return &fakeLedgerRepo{entries: map[string]*domain.LedgerEntry{}}
}

func (f *fakeLedgerRepo) Create(_ context.Context, entry *domain.LedgerEntry) error {
	if f.createErr != nil {
		return f.createErr
	}
	cp := *entry
	f.entries[entry.ID] = &cp
	return nil
}

func (f *fakeLedgerRepo) GetByID(_ context.Context, id string) (*domain.LedgerEntry, error) {
	entry, ok := f.entries[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "fake ledger", domain.ErrNotFound)
	}
	cp := *entry
	return &cp, nil
}

func (f *fakeLedgerRepo) ListByLoan(_ context.Context, loanID string) ([]domain.LedgerEntry, error) {
	var out []domain.LedgerEntry
	for _, entry := range f.entries {
		if entry.LoanID == loanID {
			out = append(out, *entry)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeLedgerRepo) UpdateCategory(_ context.Context, id, categoryID string, code domain.CategoryCode, diagnostics map[string]any) error {
	entry, ok := f.entries[id]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "fake ledger", domain.ErrNotFound)
	}
	entry.CategoryID = categoryID
	entry.CategoryCode = code
	entry.Diagnostics = diagnostics
	return nil
}

func (f *fakeLedgerRepo) UpdateMetadata(_ context.Context, id string, metadata map[string]any) error {
	entry, ok := f.entries[id]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "fake ledger", domain.ErrNotFound)
	}
	entry.Metadata = metadata
	return nil
}

func (f *fakeLedgerRepo) Delete(_ context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.entries[id]; !ok {
		return domain.WrapError(domain.ErrNotFound, "fake ledger", domain.ErrNotFound)
	}
	delete(f.entries, id)
	return nil
}

func (f *fakeLedgerRepo) CountByLoan(_ context.Context, loanID string) (int, int, error) {
	total, completed := 0, 0
	for _, entry := range f.entries {
		if entry.LoanID != loanID {
			continue
		}
		total++
		if entry.Status == domain.EntryCompleted {
			completed++
		}
	}
	return total, completed, nil
}

func (f *fakeLedgerRepo) CountDistinctCategories(_ context.Context, loanID string) (int, error) {
	seen := map[string]bool{}
	for _, entry := range f.entries {
		if entry.LoanID == loanID {
			seen[entry.CategoryID] = true
		}
	}
	return len(seen), nil
}

func (f *fakeLedgerRepo) HasCompletedInCategory(_ context.Context, loanID, categoryID string) (bool, error) {
	for _, entry := range f.entries {
		if entry.LoanID == loanID && entry.CategoryID == categoryID && entry.Status == domain.EntryCompleted {
			return true, nil
		}
	}
	return false, nil
}

type fakeLogRepo struct {
	appended  []domain.ProcessingLogEntry
	appendErr error
}

func (f *fakeLogRepo) Append(_ context.Context, entry *domain.ProcessingLogEntry) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appended = append(f.appended, *entry)
	return nil
}

func (f *fakeLogRepo) ListByEntry(_ context.Context, entryID string) ([]domain.ProcessingLogEntry, error) {
	var out []domain.ProcessingLogEntry
	for _, entry := range f.appended {
		if entry.EntryID == entryID {
			out = append(out, entry)
		}
	}
	return out, nil
}

type metricsCall struct {
	loanID        string
	caseReadiness int
	documentIndex int
}

type fakeLoanRepo struct {
	loans        map[string]*domain.LoanApplication
	createErr    error
	updateErr    error
	metricsErr   error
	metricsCalls []metricsCall
}

func newFakeLoanRepo() *fakeLoanRepo {
	return &fakeLoanRepo{loans: map[string]*domain.LoanApplication{}}
}

func (f *fakeLoanRepo) Create(_ context.Context, loan *domain.LoanApplication) error {
	if f.createErr != nil {
		return f.createErr
	}
	cp := *loan
	f.loans[loan.ID] = &cp
	return nil
}

func (f *fakeLoanRepo) GetByID(_ context.Context, id string) (*domain.LoanApplication, error) {
	loan, ok := f.loans[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "fake loans", domain.ErrNotFound)
	}
	cp := *loan
	return &cp, nil
}

func (f *fakeLoanRepo) LatestByOwner(_ context.Context, tenantID, ownerID string) (*domain.LoanApplication, error) {
	var latest *domain.LoanApplication
	for _, loan := range f.loans {
		if loan.TenantID != tenantID || loan.OwnerID != ownerID {
			continue
		}
		if latest == nil || loan.CreatedAt.After(latest.CreatedAt) {
			latest = loan
		}
	}
	if latest == nil {
		return nil, domain.WrapError(domain.ErrNotFound, "fake loans", domain.ErrNotFound)
	}
	cp := *latest
	return &cp, nil
}

func (f *fakeLoanRepo) Update(_ context.Context, loan *domain.LoanApplication) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	stored, ok := f.loans[loan.ID]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "fake loans", domain.ErrNotFound)
	}
	stored.AmountCents = loan.AmountCents
	stored.Purpose = loan.Purpose
	stored.TermMonths = loan.TermMonths
	stored.InterestRate = loan.InterestRate
	stored.UpdatedAt = loan.UpdatedAt
	return nil
}

func (f *fakeLoanRepo) UpdateMetrics(_ context.Context, id string, caseReadiness, documentIndex int) error {
	if f.metricsErr != nil {
		return f.metricsErr
	}
	f.metricsCalls = append(f.metricsCalls, metricsCall{loanID: id, caseReadiness: caseReadiness, documentIndex: documentIndex})
	if loan, ok := f.loans[id]; ok {
		loan.CaseReadiness = caseReadiness
		loan.DocumentIndex = documentIndex
	}
	return nil
}

func (f *fakeLoanRepo) UpdateStatus(_ context.Context, loan *domain.LoanApplication) error {
	stored, ok := f.loans[loan.ID]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "fake loans", domain.ErrNotFound)
	}
	*stored = *loan
	return nil
}

type fakeTaxonomyRepo struct {
	categories map[string]*domain.Category          // keyed tenant|code
	typeSpecs  map[string][]domain.DocumentTypeSpec // keyed category ID
}

func newFakeTaxonomyRepo() *fakeTaxonomyRepo {
	return &fakeTaxonomyRepo{
		categories: map[string]*domain.Category{},
		typeSpecs:  map[string][]domain.DocumentTypeSpec{},
	}
}

func (f *fakeTaxonomyRepo) add(category *domain.Category) {
	f.categories[category.TenantID+"|"+string(category.Code)] = category
}

func (f *fakeTaxonomyRepo) GetByCode(_ context.Context, tenantID string, code domain.CategoryCode) (*domain.Category, error) {
	category, ok := f.categories[tenantID+"|"+string(code)]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "fake taxonomy", domain.ErrNotFound)
	}
	return category, nil
}

func (f *fakeTaxonomyRepo) GetByID(_ context.Context, id string) (*domain.Category, error) {
	for _, category := range f.categories {
		if category.ID == id {
			return category, nil
		}
	}
	return nil, domain.WrapError(domain.ErrNotFound, "fake taxonomy", domain.ErrNotFound)
}

func (f *fakeTaxonomyRepo) ListForTenant(_ context.Context, tenantID string) ([]domain.Category, error) {
	var out []domain.Category
	for _, category := range f.categories {
		if category.TenantID == tenantID {
			out = append(out, *category)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out, nil
}

func (f *fakeTaxonomyRepo) CountForTenant(_ context.Context, tenantID string) (int, error) {
	count := 0
	for _, category := range f.categories {
		if category.TenantID == tenantID {
			count++
		}
	}
	return count, nil
}

func (f *fakeTaxonomyRepo) CreateCategory(_ context.Context, category *domain.Category) error {
	f.add(category)
	return nil
}

func (f *fakeTaxonomyRepo) CreateTypeSpec(_ context.Context, spec *domain.DocumentTypeSpec) error {
	f.typeSpecs[spec.CategoryID] = append(f.typeSpecs[spec.CategoryID], *spec)
	return nil
}

func (f *fakeTaxonomyRepo) ListTypeSpecs(_ context.Context, categoryID string) ([]domain.DocumentTypeSpec, error) {
	return f.typeSpecs[categoryID], nil
}

func (f *fakeTaxonomyRepo) SeedDefaults(context.Context, string) error { return nil }

type fakeStorage struct {
	saved     map[string]string
	saveErr   error
	deleteErr error
	deleted   []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{saved: map[string]string{}}
}

func (f *fakeStorage) Save(_ context.Context, key string, data io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.saved[key] = string(raw)
	return nil
}

func (f *fakeStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	body, ok := f.saved[key]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "fake storage", domain.ErrNotFound)
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func (f *fakeStorage) Delete(_ context.Context, key string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, key)
	delete(f.saved, key)
	return nil
}

type fakeQueue struct {
	published []string
	err       error
}

func (f *fakeQueue) PublishStagedUpload(_ context.Context, stagedID string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, stagedID)
	return nil
}

func (f *fakeQueue) SubscribeStagedUploads(context.Context, func(context.Context, string) error) error {
	return nil
}

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) Extract(context.Context, *domain.StagedUpload) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type fakeClassifier struct {
	suggestion domain.CategorySuggestion
	excerpt    string
}

func (f *fakeClassifier) Classify(_ context.Context, excerpt string) domain.CategorySuggestion {
	f.excerpt = excerpt
	return f.suggestion
}

// fakeComposer records the last letter request and renders the deterministic
// template so tests can assert on its content.
type fakeComposer struct {
	lastRequest domain.LetterRequest
}

func (f *fakeComposer) Compose(_ context.Context, req domain.LetterRequest) string {
	f.lastRequest = req
	return domain.RenderLetterTemplate(req)
}

// fakeTx runs the closure directly and records whether it rolled back.
type fakeTx struct {
	rolledBack bool
}

func (f *fakeTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := fn(ctx); err != nil {
		f.rolledBack = true
		return err
	}
	return nil
}
