package together

import (
	"fmt"
	"strings"

	"github.com/lendware/docflow/internal/core/domain"
)

func buildCategoryPrompt(excerpt string) string {
	const maxSnippet = 4000
	snippet := excerpt
	if len(snippet) > maxSnippet {
		snippet = snippet[:maxSnippet]
	}

	var categories strings.Builder
	for _, code := range domain.CategoryCodes() {
		fmt.Fprintf(&categories, "- %s: %s\n", code, code.Definition())
	}

	return fmt.Sprintf(`You classify mortgage application documents.
Pick exactly one category code from this list:
%s
Return only the category code, nothing else.

Document:
%s`, categories.String(), snippet)
}

var letterInstructions = map[domain.LetterType]string{
	domain.LetterWelcome:         "Welcome the applicant and explain that the team will review the application and reach out if anything else is needed.",
	domain.LetterStatusUpdate:    "Give the applicant a short status update naming the current application status.",
	domain.LetterDocumentRequest: "Ask the applicant to upload the outstanding documents listed below through the online portal.",
	domain.LetterApproval:        "Congratulate the applicant on the approval and mention that the team will contact them about next steps.",
	domain.LetterRejection:       "Politely inform the applicant that the application could not be approved and invite them to contact the office.",
}

func buildLetterPrompt(req domain.LetterRequest) string {
	var b strings.Builder
	b.WriteString("You write professional correspondence for a mortgage lender.\n")
	b.WriteString(letterInstructions[req.Type])
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Applicant: %s\n", req.Loan.ApplicantName)
	fmt.Fprintf(&b, "Loan purpose: %s\n", req.Loan.Purpose)
	fmt.Fprintf(&b, "Loan amount: %s\n", domain.FormatAmountCents(req.Loan.AmountCents))
	fmt.Fprintf(&b, "Application status: %s\n", req.Loan.Status)
	if len(req.Missing) > 0 {
		b.WriteString("Outstanding documents:\n")
		for _, doc := range req.Missing {
			fmt.Fprintf(&b, "- %s: %s", doc.Category, doc.Type)
			if doc.Description != "" {
				fmt.Fprintf(&b, " (%s)", doc.Description)
			}
			b.WriteByte('\n')
		}
	}
	b.WriteString("\nWrite the letter body only, signed by \"The Loan Team\". Do not invent facts beyond the details above.")
	return b.String()
}
