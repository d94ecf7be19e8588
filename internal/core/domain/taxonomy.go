package domain

import (
	"strings"
	"time"
)

// CategoryCode is the closed set of document categories a classifier result
// may resolve to. CategoryUntagged is reserved: it must exist for every
// tenant so an unrecognized label always has somewhere to land.
type CategoryCode string

const (
	CategoryIdentification CategoryCode = "identification"
	CategoryIncome         CategoryCode = "income"
	CategoryAsset          CategoryCode = "asset"
	CategoryCredit         CategoryCode = "credit"
	CategoryProperty       CategoryCode = "property"
	CategoryDebt           CategoryCode = "debt"
	CategoryDownPayment    CategoryCode = "down_payment"
	CategoryLoanSpecific   CategoryCode = "loan_specific"
	CategoryAdditional     CategoryCode = "additional"
	CategoryUntagged       CategoryCode = "untagged"
)

var categoryDefinitions = map[CategoryCode]string{
	CategoryIdentification: "Government-issued ID, SSN, etc.",
	CategoryIncome:         "Pay stubs, W-2s, tax returns, etc.",
	CategoryAsset:          "Bank statements, investment accounts, etc.",
	CategoryCredit:         "Credit reports, credit score, etc.",
	CategoryProperty:       "Property details, appraisal, etc.",
	CategoryDebt:           "Existing loans, credit card debt, etc.",
	CategoryDownPayment:    "Proof of down payment funds",
	CategoryLoanSpecific:   "Specific documents for the loan",
	CategoryAdditional:     "Other supporting documents",
	CategoryUntagged:       "Documents not yet categorized",
}

// CategoryCodes returns all codes in display order, untagged last.
func CategoryCodes() []CategoryCode {
	return []CategoryCode{
		CategoryIdentification,
		CategoryIncome,
		CategoryAsset,
		CategoryCredit,
		CategoryProperty,
		CategoryDebt,
		CategoryDownPayment,
		CategoryLoanSpecific,
		CategoryAdditional,
		CategoryUntagged,
	}
}

func (c CategoryCode) Definition() string {
	return categoryDefinitions[c]
}

// ParseCategoryCode normalizes a raw classifier label (trim, lowercase) and
// reports whether it is a member of the known code set.
func ParseCategoryCode(raw string) (CategoryCode, bool) {
	code := CategoryCode(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := categoryDefinitions[code]; ok {
		return code, true
	}
	return "", false
}

// Category is the per-tenant row behind a CategoryCode. Codes are unique per
// tenant; display metadata is tenant-editable.
type Category struct {
	ID           string       `json:"id"`
	TenantID     string       `json:"tenant_id"`
	Code         CategoryCode `json:"code"`
	Name         string       `json:"name"`
	Description  string       `json:"description,omitempty"`
	DisplayOrder int          `json:"display_order"`
}

// DocumentTypeSpec describes one expected document type within a category.
// Names are unique per category.
type DocumentTypeSpec struct {
	ID              string         `json:"id"`
	TenantID        string         `json:"tenant_id"`
	CategoryID      string         `json:"category_id"`
	Name            string         `json:"name"`
	Description     string         `json:"description,omitempty"`
	Required        bool           `json:"is_required"`
	ValidationRules map[string]any `json:"validation_rules,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

type TypeSeed struct {
	Name        string
	Description string
	Required    bool
}

type CategorySeed struct {
	Code        CategoryCode
	Name        string
	Description string
	Types       []TypeSeed
}

// DefaultTaxonomy is the standard mortgage document taxonomy provisioned for
// new tenants.
func DefaultTaxonomy() []CategorySeed {
	return []CategorySeed{
		{
			Code:        CategoryIdentification,
			Name:        "Identification Documents",
			Description: categoryDefinitions[CategoryIdentification],
			Types: []TypeSeed{
				{Name: "Driver's License", Description: "State-issued driver's license", Required: true},
				{Name: "Passport", Description: "Government-issued passport"},
				{Name: "Social Security Card", Description: "Social Security Number card", Required: true},
				{Name: "Proof of Legal Residency", Description: "For non-citizens"},
			},
		},
		{
			Code:        CategoryIncome,
			Name:        "Income Verification",
			Description: categoryDefinitions[CategoryIncome],
			Types: []TypeSeed{
				{Name: "Pay Stubs", Description: "Recent pay stubs (last 30 days)", Required: true},
				{Name: "W-2 Forms", Description: "W-2 forms for last 2 years", Required: true},
				{Name: "Tax Returns", Description: "Federal tax returns for last 2 years", Required: true},
				{Name: "Employment Verification", Description: "Verification of employment letter"},
			},
		},
		{
			Code:        CategoryAsset,
			Name:        "Asset Documentation",
			Description: categoryDefinitions[CategoryAsset],
			Types: []TypeSeed{
				{Name: "Bank Statements", Description: "Bank statements for last 2-3 months", Required: true},
				{Name: "Investment Accounts", Description: "Investment account statements"},
				{Name: "Retirement Accounts", Description: "401(k) or IRA statements"},
			},
		},
		{
			Code:        CategoryCredit,
			Name:        "Credit History",
			Description: categoryDefinitions[CategoryCredit],
			Types: []TypeSeed{
				{Name: "Credit Report", Description: "Recent credit report", Required: true},
				{Name: "Credit Score", Description: "Credit score documentation"},
				{Name: "Credit History", Description: "Credit history documentation"},
			},
		},
		{
			Code:        CategoryProperty,
			Name:        "Property Information",
			Description: categoryDefinitions[CategoryProperty],
			Types: []TypeSeed{
				{Name: "Property Appraisal", Description: "Professional property appraisal", Required: true},
				{Name: "Home Inspection", Description: "Home inspection report"},
				{Name: "Property Tax Statement", Description: "Current property tax statement", Required: true},
				{Name: "Homeowners Insurance", Description: "Proof of homeowners insurance", Required: true},
			},
		},
		{
			Code:        CategoryDebt,
			Name:        "Debt Obligations",
			Description: categoryDefinitions[CategoryDebt],
			Types: []TypeSeed{
				{Name: "Existing Mortgage Statements", Description: "Current mortgage statements"},
				{Name: "Auto Loan Statements", Description: "Current auto loan statements"},
				{Name: "Credit Card Statements", Description: "Recent credit card statements"},
				{Name: "Student Loan Information", Description: "Current student loan details"},
			},
		},
		{
			Code:        CategoryDownPayment,
			Name:        "Down Payment Verification",
			Description: categoryDefinitions[CategoryDownPayment],
			Types: []TypeSeed{
				{Name: "Gift Letter", Description: "Letter confirming gift funds for down payment"},
				{Name: "Deposit Verification", Description: "Proof of deposit for down payment", Required: true},
				{Name: "Source of Funds", Description: "Documentation of source of down payment funds", Required: true},
			},
		},
		{
			Code:        CategoryLoanSpecific,
			Name:        "Loan-Specific Requirements",
			Description: categoryDefinitions[CategoryLoanSpecific],
			Types: []TypeSeed{
				{Name: "Loan Application", Description: "Completed loan application form", Required: true},
				{Name: "Rate Lock Agreement", Description: "Agreement to lock in interest rate"},
				{Name: "Disclosures", Description: "Signed loan disclosure documents", Required: true},
			},
		},
		{
			Code:        CategoryAdditional,
			Name:        "Additional Documentation",
			Description: categoryDefinitions[CategoryAdditional],
			Types: []TypeSeed{
				{Name: "Divorce Decree", Description: "If applicable"},
				{Name: "Bankruptcy Documents", Description: "If applicable"},
				{Name: "Power of Attorney", Description: "If applicable"},
			},
		},
		{
			Code:        CategoryUntagged,
			Name:        "Untagged",
			Description: categoryDefinitions[CategoryUntagged],
			Types: []TypeSeed{
				{Name: "Unidentified Document", Description: "Document pending categorization"},
			},
		},
	}
}
