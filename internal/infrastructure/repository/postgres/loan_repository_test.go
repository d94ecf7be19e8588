package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/lendware/docflow/internal/core/domain"
)

func TestLoanUpdateReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	db, mock, done := newDBWithMock(t)
	defer done()
	repo := NewLoanRepository(db)

	mock.ExpectExec("UPDATE loan_applications").
		WithArgs("missing", int64(100000), "Home Purchase", 360, 6.5, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &domain.LoanApplication{
		ID:           "missing",
		AmountCents:  100000,
		Purpose:      "Home Purchase",
		TermMonths:   360,
		InterestRate: 6.5,
	})
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestLoanUpdateStatusWritesDecisionTimestamp(t *testing.T) {
	db, mock, done := newDBWithMock(t)
	defer done()
	repo := NewLoanRepository(db)

	decided := time.Now().UTC()
	loan := &domain.LoanApplication{
		ID:        "loan-1",
		Status:    domain.LoanApproved,
		Metadata:  map[string]any{},
		DecidedAt: &decided,
	}

	mock.ExpectExec("UPDATE loan_applications").
		WithArgs("loan-1", "approved", sqlmock.AnyArg(), nil, decided, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.UpdateStatus(context.Background(), loan); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
