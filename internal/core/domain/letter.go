package domain

import (
	"fmt"
	"strings"
)

// LetterType selects one of the borrower correspondence templates.
type LetterType string

const (
	LetterWelcome         LetterType = "welcome"
	LetterStatusUpdate    LetterType = "status_update"
	LetterDocumentRequest LetterType = "document_request"
	LetterApproval        LetterType = "approval"
	LetterRejection       LetterType = "rejection"
)

var letterTypes = map[LetterType]struct{}{
	LetterWelcome:         {},
	LetterStatusUpdate:    {},
	LetterDocumentRequest: {},
	LetterApproval:        {},
	LetterRejection:       {},
}

// ParseLetterType normalizes a raw letter type (trim, lowercase) and reports
// whether it is a member of the known set.
func ParseLetterType(raw string) (LetterType, bool) {
	t := LetterType(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := letterTypes[t]; ok {
		return t, true
	}
	return "", false
}

// MissingDocument is one outstanding required document type for a
// document-request letter.
type MissingDocument struct {
	Category    string `json:"category"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// LetterRequest carries everything a composer needs to write one letter.
type LetterRequest struct {
	Type    LetterType
	Loan    *LoanApplication
	Missing []MissingDocument
}

// RenderLetterTemplate produces the deterministic letter text for a request.
// It is the fallback when no language model is reachable and the grounding
// for what a generated letter must cover.
func RenderLetterTemplate(req LetterRequest) string {
	name := req.Loan.ApplicantName
	if name == "" {
		name = "Applicant"
	}
	amount := FormatAmountCents(req.Loan.AmountCents)
	purpose := req.Loan.Purpose

	switch req.Type {
	case LetterWelcome:
		return fmt.Sprintf(`Dear %s,

Thank you for choosing our institution for your %s loan application of %s. We are excited to work with you on this journey.

Our team will review your application and reach out if we need any additional information. You can track the status of your application and upload documents through our online portal.

Best regards,
The Loan Team
`, name, purpose, amount)
	case LetterStatusUpdate:
		return fmt.Sprintf(`Dear %s,

We wanted to provide you with an update on your %s loan application of %s.

Your application is currently in %s status. Our team is working diligently to process your application as quickly as possible.

You can track the status of your application and upload any required documents through our online portal.

Best regards,
The Loan Team
`, name, purpose, amount, req.Loan.Status)
	case LetterDocumentRequest:
		lines := make([]string, 0, len(req.Missing))
		for _, doc := range req.Missing {
			line := fmt.Sprintf("- %s: %s", doc.Category, doc.Type)
			if doc.Description != "" {
				line += fmt.Sprintf(" (%s)", doc.Description)
			}
			lines = append(lines, line)
		}
		return fmt.Sprintf(`Dear %s,

We are currently processing your %s loan application of %s. To proceed further, we need the following documents:

%s

Please upload these documents through our online portal at your earliest convenience.

Best regards,
The Loan Team
`, name, purpose, amount, strings.Join(lines, "\n"))
	case LetterApproval:
		return fmt.Sprintf(`Dear %s,

Congratulations! We are pleased to inform you that your %s loan application of %s has been approved.

Our team will contact you shortly to discuss the next steps and finalize the details.

Best regards,
The Loan Team
`, name, purpose, amount)
	case LetterRejection:
		return fmt.Sprintf(`Dear %s,

Thank you for your %s loan application of %s.

After careful review, we regret to inform you that we are unable to approve your loan application at this time. Please contact our office if you would like to discuss the specific reasons or explore alternative options.

Best regards,
The Loan Team
`, name, purpose, amount)
	default:
		return "Letter content not available."
	}
}

// FormatAmountCents renders cents as a dollar amount with thousands
// separators, e.g. 123456789 -> "$1,234,567.89".
func FormatAmountCents(cents int64) string {
	negative := cents < 0
	if negative {
		cents = -cents
	}
	dollars := cents / 100
	remainder := cents % 100

	digits := fmt.Sprintf("%d", dollars)
	var grouped strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(d)
	}

	sign := ""
	if negative {
		sign = "-"
	}
	return fmt.Sprintf("%s$%s.%02d", sign, grouped.String(), remainder)
}
