package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/lendware/docflow/internal/core/domain"
	"github.com/lendware/docflow/internal/core/ports"
)

type intakeFixture struct {
	loans   *fakeLoanRepo
	staged  *fakeStagedRepo
	storage *fakeStorage
	queue   *fakeQueue
	uc      *UploadIntakeUseCase
}

func newIntakeFixture() *intakeFixture {
	f := &intakeFixture{
		loans:   newFakeLoanRepo(),
		staged:  newFakeStagedRepo(),
		storage: newFakeStorage(),
		queue:   &fakeQueue{},
	}
	f.uc = NewUploadIntakeUseCase(f.loans, f.staged, f.storage, f.queue, 0)
	return f
}

func (f *intakeFixture) seedLoan(tenantID, ownerID string) *domain.LoanApplication {
	loan := &domain.LoanApplication{
		ID:        "loan-1",
		TenantID:  tenantID,
		OwnerID:   ownerID,
		Status:    domain.LoanDraft,
		CreatedAt: time.Now().UTC(),
	}
	f.loans.loans[loan.ID] = loan
	return loan
}

func pdfRequest(loanID string) ports.UploadRequest {
	return ports.UploadRequest{
		LoanApplicationID: loanID,
		Filename:          "paystub march.pdf",
		DeclaredType:      "Pay Stub",
		ContentType:       "application/pdf",
		Size:              1024,
		Body:              strings.NewReader("%PDF-1.4 fake"),
	}
}

func TestStageUploadSuccess(t *testing.T) {
	f := newIntakeFixture()
	owner := domain.Actor{ID: "user-1", TenantID: "t1", Name: "Alice Doe", Role: domain.RoleBorrower}
	loan := f.seedLoan("t1", owner.ID)

	staged, err := f.uc.StageUpload(context.Background(), owner, pdfRequest(loan.ID))
	if err != nil {
		t.Fatalf("StageUpload: %v", err)
	}
	if staged.Status != domain.StagedPending {
		t.Errorf("status = %s, want pending", staged.Status)
	}
	if !strings.HasPrefix(staged.StoragePath, "documents/pay_stub/") || !strings.HasSuffix(staged.StoragePath, ".pdf") {
		t.Errorf("storage key = %q", staged.StoragePath)
	}
	if _, ok := f.storage.saved[staged.StoragePath]; !ok {
		t.Error("object not written to storage")
	}
	if _, ok := f.staged.uploads[staged.ID]; !ok {
		t.Error("staged record not persisted")
	}
	if staged.LoanApplicationID() != loan.ID {
		t.Errorf("loan id in metadata = %q, want %q", staged.LoanApplicationID(), loan.ID)
	}
	if got, _ := staged.Metadata[domain.MetaUploadedBy].(string); got != "Alice Doe" {
		t.Errorf("uploaded_by = %q", got)
	}
	if len(f.queue.published) != 1 || f.queue.published[0] != staged.ID {
		t.Errorf("published = %v, want [%s]", f.queue.published, staged.ID)
	}
}

func TestStageUploadRejectsUnsupportedType(t *testing.T) {
	f := newIntakeFixture()
	owner := domain.Actor{ID: "user-1", TenantID: "t1", Role: domain.RoleBorrower}
	loan := f.seedLoan("t1", owner.ID)

	req := pdfRequest(loan.ID)
	req.ContentType = "text/plain"
	req.Filename = "notes.txt"

	if _, err := f.uc.StageUpload(context.Background(), owner, req); !domain.IsKind(err, domain.ErrUnsupportedType) {
		t.Fatalf("err = %v, want unsupported type", err)
	}
	if len(f.storage.saved) != 0 {
		t.Error("rejected upload must not reach object storage")
	}
	if len(f.staged.uploads) != 0 {
		t.Error("rejected upload must not be staged")
	}
	if len(f.queue.published) != 0 {
		t.Error("rejected upload must not be published")
	}
}

func TestStageUploadRejectsOversize(t *testing.T) {
	f := newIntakeFixture()
	owner := domain.Actor{ID: "user-1", TenantID: "t1", Role: domain.RoleBorrower}
	loan := f.seedLoan("t1", owner.ID)

	req := pdfRequest(loan.ID)
	req.Size = DefaultMaxUploadBytes + 1

	if _, err := f.uc.StageUpload(context.Background(), owner, req); !domain.IsKind(err, domain.ErrRequestTooLarge) {
		t.Fatalf("err = %v, want request too large", err)
	}
	if len(f.storage.saved) != 0 {
		t.Error("oversize upload must not reach object storage")
	}
}

func TestStageUploadRejectsMissingBody(t *testing.T) {
	f := newIntakeFixture()
	owner := domain.Actor{ID: "user-1", TenantID: "t1", Role: domain.RoleBorrower}
	loan := f.seedLoan("t1", owner.ID)

	req := pdfRequest(loan.ID)
	req.Body = nil

	if _, err := f.uc.StageUpload(context.Background(), owner, req); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("err = %v, want invalid input", err)
	}
}

func TestStageUploadUnknownLoan(t *testing.T) {
	f := newIntakeFixture()
	owner := domain.Actor{ID: "user-1", TenantID: "t1", Role: domain.RoleBorrower}

	if _, err := f.uc.StageUpload(context.Background(), owner, pdfRequest("missing")); !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestStageUploadForeignTenantLoanLooksMissing(t *testing.T) {
	f := newIntakeFixture()
	loan := f.seedLoan("t1", "user-1")
	outsider := domain.Actor{ID: "user-9", TenantID: "t2", Role: domain.RoleAdmin}

	if _, err := f.uc.StageUpload(context.Background(), outsider, pdfRequest(loan.ID)); !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestStageUploadNonOwnerBorrowerDenied(t *testing.T) {
	f := newIntakeFixture()
	loan := f.seedLoan("t1", "user-1")
	other := domain.Actor{ID: "user-2", TenantID: "t1", Role: domain.RoleBorrower}

	if _, err := f.uc.StageUpload(context.Background(), other, pdfRequest(loan.ID)); !domain.IsKind(err, domain.ErrPermissionDenied) {
		t.Fatalf("err = %v, want permission denied", err)
	}
}

func TestStageUploadReviewerMayUploadForOthers(t *testing.T) {
	f := newIntakeFixture()
	loan := f.seedLoan("t1", "user-1")
	officer := domain.Actor{ID: "user-2", TenantID: "t1", Name: "Bob", Role: domain.RoleLoanOfficer}

	if _, err := f.uc.StageUpload(context.Background(), officer, pdfRequest(loan.ID)); err != nil {
		t.Fatalf("StageUpload by reviewer: %v", err)
	}
}

func TestStageUploadSurvivesPublishFailure(t *testing.T) {
	f := newIntakeFixture()
	f.queue.err = domain.ErrTemporary
	owner := domain.Actor{ID: "user-1", TenantID: "t1", Role: domain.RoleBorrower}
	loan := f.seedLoan("t1", owner.ID)

	staged, err := f.uc.StageUpload(context.Background(), owner, pdfRequest(loan.ID))
	if err != nil {
		t.Fatalf("StageUpload: %v", err)
	}
	if got := f.staged.uploads[staged.ID]; got == nil || got.Status != domain.StagedPending {
		t.Error("upload must stay staged as pending when publish fails")
	}
}

func TestNormalizeContentType(t *testing.T) {
	if got := normalizeContentType("Application/PDF; charset=binary"); got != "application/pdf" {
		t.Errorf("normalizeContentType = %q", got)
	}
}

func TestSanitizeSegment(t *testing.T) {
	cases := map[string]string{
		"Pay Stub":       "pay_stub",
		"../../etc":      "etc",
		"W-2 (2024)":     "w-2__2024_",
		"":               "unknown",
		"Bank Statement": "bank_statement",
	}
	for in, want := range cases {
		if got := sanitizeSegment(in); got != want {
			t.Errorf("sanitizeSegment(%q) = %q, want %q", in, got, want)
		}
	}
}
