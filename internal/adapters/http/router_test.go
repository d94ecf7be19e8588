package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lendware/docflow/internal/core/domain"
	"github.com/lendware/docflow/internal/core/ports"
)

type intakeStub struct {
	staged *domain.StagedUpload
	err    error
	got    ports.UploadRequest
}

func (s *intakeStub) StageUpload(_ context.Context, _ domain.Actor, req ports.UploadRequest) (*domain.StagedUpload, error) {
	s.got = req
	if s.err != nil {
		return nil, s.err
	}
	return s.staged, nil
}

func (s *intakeStub) GetStaged(context.Context, domain.Actor, string) (*domain.StagedUpload, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.staged, nil
}

type reviewStub struct {
	entry   *domain.LedgerEntry
	history []domain.ProcessingLogEntry
	err     error
	gotCode domain.CategoryCode
}

func (s *reviewStub) Get(context.Context, domain.Actor, string) (*domain.LedgerEntry, error) {
	return s.entry, s.err
}

func (s *reviewStub) History(context.Context, domain.Actor, string) ([]domain.ProcessingLogEntry, error) {
	return s.history, s.err
}

func (s *reviewStub) OverrideCategory(_ context.Context, _ domain.Actor, _ string, code domain.CategoryCode) (*domain.LedgerEntry, error) {
	s.gotCode = code
	return s.entry, s.err
}

func (s *reviewStub) Decide(context.Context, domain.Actor, string, string, string) (*domain.LedgerEntry, error) {
	return s.entry, s.err
}

func (s *reviewStub) Delete(context.Context, domain.Actor, string) error {
	return s.err
}

type loansStub struct {
	loan       *domain.LoanApplication
	view       *ports.LoanMetricsView
	letter     *ports.LetterView
	err        error
	lastUpdate ports.LoanUpdate
	lastAction string
	lastLetter string
}

func (s *loansStub) CreateDraft(context.Context, domain.Actor, int64, string, int) (*domain.LoanApplication, error) {
	return s.loan, s.err
}

func (s *loansStub) Update(_ context.Context, _ domain.Actor, _ string, upd ports.LoanUpdate) (*domain.LoanApplication, error) {
	s.lastUpdate = upd
	return s.loan, s.err
}

func (s *loansStub) Submit(context.Context, domain.Actor, string) (*domain.LoanApplication, error) {
	return s.loan, s.err
}

func (s *loansStub) Process(_ context.Context, _ domain.Actor, _ string, action, _ string) (*domain.LoanApplication, error) {
	s.lastAction = action
	return s.loan, s.err
}

func (s *loansStub) GenerateLetter(_ context.Context, _ domain.Actor, _ string, letterType string) (*ports.LetterView, error) {
	s.lastLetter = letterType
	return s.letter, s.err
}

func (s *loansStub) Get(context.Context, domain.Actor, string) (*domain.LoanApplication, error) {
	return s.loan, s.err
}

func (s *loansStub) Metrics(context.Context, domain.Actor, string) (*ports.LoanMetricsView, error) {
	return s.view, s.err
}

func (s *loansStub) Documents(context.Context, domain.Actor, string) ([]domain.LedgerEntry, error) {
	return nil, s.err
}

type taxonomyStub struct {
	categories []domain.Category
	err        error
}

func (s *taxonomyStub) GetByCode(context.Context, string, domain.CategoryCode) (*domain.Category, error) {
	return nil, s.err
}

func (s *taxonomyStub) GetByID(context.Context, string) (*domain.Category, error) {
	if len(s.categories) == 0 {
		return nil, domain.WrapError(domain.ErrNotFound, "get category", errors.New("not found"))
	}
	return &s.categories[0], s.err
}

func (s *taxonomyStub) ListForTenant(context.Context, string) ([]domain.Category, error) {
	return s.categories, s.err
}

func (s *taxonomyStub) CountForTenant(context.Context, string) (int, error) { return 0, s.err }

func (s *taxonomyStub) CreateCategory(context.Context, *domain.Category) error { return s.err }

func (s *taxonomyStub) CreateTypeSpec(context.Context, *domain.DocumentTypeSpec) error { return s.err }

func (s *taxonomyStub) ListTypeSpecs(context.Context, string) ([]domain.DocumentTypeSpec, error) {
	return nil, s.err
}

func (s *taxonomyStub) SeedDefaults(context.Context, string) error { return s.err }

type routerFixture struct {
	intake   *intakeStub
	review   *reviewStub
	loans    *loansStub
	taxonomy *taxonomyStub
	handler  http.Handler
}

func newRouterFixture() *routerFixture {
	f := &routerFixture{
		intake:   &intakeStub{staged: &domain.StagedUpload{ID: "staged-1", Status: domain.StagedPending}},
		review:   &reviewStub{entry: &domain.LedgerEntry{ID: "entry-1"}},
		loans: &loansStub{
			loan:   &domain.LoanApplication{ID: "loan-1"},
			letter: &ports.LetterView{LetterType: domain.LetterStatusUpdate, LoanID: "loan-1", Content: "Dear Alice Doe,"},
		},
		taxonomy: &taxonomyStub{},
	}
	f.handler = NewRouter(f.intake, f.review, f.loans, f.taxonomy, Options{}).Handler()
	return f
}

func withIdentity(req *http.Request) *http.Request {
	req.Header.Set("X-User-Id", "user-1")
	req.Header.Set("X-Tenant-Id", "t1")
	req.Header.Set("X-User-Name", "Alice Doe")
	req.Header.Set("X-User-Role", "Borrower")
	return req
}

func multipartUpload(t *testing.T, contentType string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("loan_application_id", "loan-1")
	_ = mw.WriteField("document_type", "Pay Stub")

	hdr := make(map[string][]string)
	hdr["Content-Disposition"] = []string{`form-data; name="file"; filename="paystub.pdf"`}
	hdr["Content-Type"] = []string{contentType}
	part, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	_, _ = part.Write([]byte("%PDF-1.4 fake"))
	_ = mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestUploadWithoutIdentityIsUnauthorized(t *testing.T) {
	f := newRouterFixture()
	body, contentType := multipartUpload(t, "application/pdf")
	req := httptest.NewRequest(http.MethodPost, "/v1/documents", body)
	req.Header.Set("Content-Type", contentType)

	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", res.Code)
	}
}

func TestUploadAccepted(t *testing.T) {
	f := newRouterFixture()
	body, contentType := multipartUpload(t, "application/pdf")
	req := withIdentity(httptest.NewRequest(http.MethodPost, "/v1/documents", body))
	req.Header.Set("Content-Type", contentType)

	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)
	if res.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", res.Code, res.Body.String())
	}
	if f.intake.got.LoanApplicationID != "loan-1" {
		t.Errorf("loan id = %q", f.intake.got.LoanApplicationID)
	}
	if f.intake.got.DeclaredType != "Pay Stub" {
		t.Errorf("declared type = %q", f.intake.got.DeclaredType)
	}
	if f.intake.got.ContentType != "application/pdf" {
		t.Errorf("content type = %q", f.intake.got.ContentType)
	}
}

func TestUploadUnsupportedTypeIs415(t *testing.T) {
	f := newRouterFixture()
	f.intake.err = domain.WrapError(domain.ErrUnsupportedType, "stage upload", errors.New("text/plain"))
	body, contentType := multipartUpload(t, "text/plain")
	req := withIdentity(httptest.NewRequest(http.MethodPost, "/v1/documents", body))
	req.Header.Set("Content-Type", contentType)

	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)
	if res.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status = %d, want 415", res.Code)
	}
}

func TestUploadTooLargeIs413(t *testing.T) {
	f := newRouterFixture()
	f.intake.err = domain.WrapError(domain.ErrRequestTooLarge, "stage upload", errors.New("too big"))
	body, contentType := multipartUpload(t, "application/pdf")
	req := withIdentity(httptest.NewRequest(http.MethodPost, "/v1/documents", body))
	req.Header.Set("Content-Type", contentType)

	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)
	if res.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", res.Code)
	}
}

func TestOverrideCategoryRejectsUnknownCode(t *testing.T) {
	f := newRouterFixture()
	req := withIdentity(httptest.NewRequest(http.MethodPatch, "/v1/documents/entry-1/category",
		strings.NewReader(`{"category":"definitely-not-a-code"}`)))

	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", res.Code)
	}
}

func TestOverrideCategoryNormalizesCode(t *testing.T) {
	f := newRouterFixture()
	req := withIdentity(httptest.NewRequest(http.MethodPatch, "/v1/documents/entry-1/category",
		strings.NewReader(`{"category":"  Income "}`)))

	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.Code)
	}
	if f.review.gotCode != domain.CategoryIncome {
		t.Errorf("code = %s, want income", f.review.gotCode)
	}
}

func TestDeletePermissionDeniedIs403(t *testing.T) {
	f := newRouterFixture()
	f.review.err = domain.WrapError(domain.ErrPermissionDenied, "delete document", errors.New("nope"))
	req := withIdentity(httptest.NewRequest(http.MethodDelete, "/v1/documents/entry-1", nil))

	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)
	if res.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", res.Code)
	}
}

func TestDeleteSucceedsWith204(t *testing.T) {
	f := newRouterFixture()
	req := withIdentity(httptest.NewRequest(http.MethodDelete, "/v1/documents/entry-1", nil))

	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)
	if res.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", res.Code)
	}
}

func TestUpdateLoanDecodesPartialFields(t *testing.T) {
	f := newRouterFixture()
	req := withIdentity(httptest.NewRequest(http.MethodPut, "/v1/loans/loan-1",
		strings.NewReader(`{"loan_purpose":"Refinance","loan_term_months":180}`)))

	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", res.Code, res.Body.String())
	}
	upd := f.loans.lastUpdate
	if upd.Purpose == nil || *upd.Purpose != "Refinance" {
		t.Errorf("purpose = %v", upd.Purpose)
	}
	if upd.TermMonths == nil || *upd.TermMonths != 180 {
		t.Errorf("term = %v", upd.TermMonths)
	}
	if upd.AmountCents != nil || upd.InterestRate != nil {
		t.Error("absent fields must stay nil")
	}
}

func TestProcessLoanPassesAction(t *testing.T) {
	f := newRouterFixture()
	req := withIdentity(httptest.NewRequest(http.MethodPost, "/v1/loans/loan-1/process",
		strings.NewReader(`{"action":"approve","notes":"income verified"}`)))

	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", res.Code, res.Body.String())
	}
	if f.loans.lastAction != "approve" {
		t.Errorf("action = %q", f.loans.lastAction)
	}
}

func TestGenerateLetterReturnsContent(t *testing.T) {
	f := newRouterFixture()
	req := withIdentity(httptest.NewRequest(http.MethodPost, "/v1/loans/loan-1/letters",
		strings.NewReader(`{"letter_type":"status_update"}`)))

	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", res.Code, res.Body.String())
	}
	if f.loans.lastLetter != "status_update" {
		t.Errorf("letter type = %q", f.loans.lastLetter)
	}
	if !strings.Contains(res.Body.String(), "Dear Alice Doe,") {
		t.Errorf("body = %s", res.Body.String())
	}
}

func TestGetMissingDocumentIs404(t *testing.T) {
	f := newRouterFixture()
	f.review.err = domain.WrapError(domain.ErrNotFound, "fetch ledger entry", errors.New("missing"))
	req := withIdentity(httptest.NewRequest(http.MethodGet, "/v1/documents/missing", nil))

	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)
	if res.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", res.Code)
	}
}

func TestCreateCategoryRequiresAdmin(t *testing.T) {
	f := newRouterFixture()
	req := withIdentity(httptest.NewRequest(http.MethodPost, "/v1/categories",
		strings.NewReader(`{"code":"income","name":"Income Verification"}`)))

	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)
	if res.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403 for borrower", res.Code)
	}

	req = withIdentity(httptest.NewRequest(http.MethodPost, "/v1/categories",
		strings.NewReader(`{"code":"income","name":"Income Verification"}`)))
	req.Header.Set("X-User-Role", "Admin")

	res = httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)
	if res.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 for admin: %s", res.Code, res.Body.String())
	}

	var created domain.Category
	if err := json.NewDecoder(res.Body).Decode(&created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.Code != domain.CategoryIncome || created.TenantID != "t1" {
		t.Errorf("created = %+v", created)
	}
}

func TestHealthz(t *testing.T) {
	f := newRouterFixture()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.Code)
	}
}
