package together

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lendware/docflow/internal/core/domain"
)

func letterRequest() domain.LetterRequest {
	return domain.LetterRequest{
		Type: domain.LetterDocumentRequest,
		Loan: &domain.LoanApplication{
			ID:            "loan-1",
			ApplicantName: "Alice Doe",
			AmountCents:   25000000,
			Purpose:       "Home Purchase",
			Status:        domain.LoanUnderReview,
		},
		Missing: []domain.MissingDocument{
			{Category: "Income Verification", Type: "Pay Stub", Description: "Most recent pay stub"},
		},
	}
}

func TestComposeUsesModelContent(t *testing.T) {
	srv := httptest.NewServer(chatHandler(t, "Dear Alice Doe,\n\nPlease upload your pay stub.\n\nThe Loan Team", nil))
	defer srv.Close()

	composer := NewComposer(New(srv.URL, "test-model", "", time.Second), testExecutor())
	content := composer.Compose(context.Background(), letterRequest())

	if !strings.Contains(content, "Please upload your pay stub") {
		t.Fatalf("expected model content, got:\n%s", content)
	}
}

func TestComposeServerErrorFallsBackToTemplate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	composer := NewComposer(New(srv.URL, "test-model", "", time.Second), testExecutor())
	content := composer.Compose(context.Background(), letterRequest())

	for _, want := range []string{
		"Dear Alice Doe,",
		"- Income Verification: Pay Stub (Most recent pay stub)",
		"The Loan Team",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("fallback letter missing %q:\n%s", want, content)
		}
	}
}

func TestComposeEmptyCompletionFallsBackToTemplate(t *testing.T) {
	srv := httptest.NewServer(chatHandler(t, "   ", nil))
	defer srv.Close()

	composer := NewComposer(New(srv.URL, "test-model", "", time.Second), testExecutor())
	content := composer.Compose(context.Background(), letterRequest())

	if !strings.Contains(content, "Dear Alice Doe,") {
		t.Fatalf("expected template fallback, got:\n%s", content)
	}
}

func TestLetterPromptCarriesLoanFactsAndMissingDocuments(t *testing.T) {
	var prompt string
	srv := httptest.NewServer(chatHandler(t, "letter body", &prompt))
	defer srv.Close()

	composer := NewComposer(New(srv.URL, "test-model", "", time.Second), testExecutor())
	composer.Compose(context.Background(), letterRequest())

	for _, want := range []string{
		"Alice Doe",
		"$250,000.00",
		"under_review",
		"- Income Verification: Pay Stub (Most recent pay stub)",
		"The Loan Team",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}
