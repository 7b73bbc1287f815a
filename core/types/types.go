// Package types defines the value types exchanged by the tax engine, the optimizer and their callers.
// This package contains NO business logic - only type definitions.
package types

import "github.com/shopspring/decimal"

// RemunerationInput is one remuneration scenario for a SASU president.
// All amounts are in the rate table currency and must be non-negative.
type RemunerationInput struct {
	// GrossSalary is the annual gross salary paid to the president
	GrossSalary decimal.Decimal `json:"gross_salary"`

	// Dividends is the requested distribution; the engine caps it at after-tax profit
	Dividends decimal.Decimal `json:"dividends"`

	// Revenue is the company's annual revenue excluding VAT
	Revenue decimal.Decimal `json:"revenue"`

	// Expenses are the company's deductible annual expenses excluding salary
	Expenses decimal.Decimal `json:"expenses"`

	// VATRate is the blended VAT rate in (0, 1]. Zero selects the table default.
	VATRate decimal.Decimal `json:"vat_rate"`
}

// SalaryBreakdown itemizes social charges on the gross salary
type SalaryBreakdown struct {
	GrossSalary        decimal.Decimal `json:"gross_salary"`
	EmployerCharges    decimal.Decimal `json:"employer_charges"`
	EmployeeCharges    decimal.Decimal `json:"employee_charges"`
	TotalSocialCharges decimal.Decimal `json:"total_social_charges"`

	// NetSalary = GrossSalary - EmployeeCharges
	NetSalary decimal.Decimal `json:"net_salary"`

	// TotalCostToCompany = GrossSalary + EmployerCharges
	TotalCostToCompany decimal.Decimal `json:"total_cost_to_company"`
}

// DividendBreakdown itemizes PFU taxation of the distributed dividends.
// Every field is zero when nothing is distributed.
type DividendBreakdown struct {
	// Dividends is the amount actually distributed
	Dividends decimal.Decimal `json:"dividends"`

	SocialCharges decimal.Decimal `json:"social_charges"`

	// IncomeTax is the flat-tax component of the PFU
	IncomeTax decimal.Decimal `json:"income_tax"`

	TotalTax      decimal.Decimal `json:"total_tax"`
	NetDividends  decimal.Decimal `json:"net_dividends"`
	EffectiveRate decimal.Decimal `json:"effective_rate"`
}

// CorporateTaxResult is the IS computation on company profit
type CorporateTaxResult struct {
	ProfitBeforeTax decimal.Decimal `json:"profit_before_tax"`
	CorporateTax    decimal.Decimal `json:"corporate_tax"`
	ProfitAfterTax  decimal.Decimal `json:"profit_after_tax"`

	// AvailableForDividends = max(0, ProfitAfterTax)
	AvailableForDividends decimal.Decimal `json:"available_for_dividends"`
}

// IncomeTaxResult is the president's personal income tax
type IncomeTaxResult struct {
	// TaxableSalary is net salary after the professional-expense deduction
	TaxableSalary decimal.Decimal `json:"taxable_salary"`

	// TaxOnSalary is the progressive IR on TaxableSalary
	TaxOnSalary decimal.Decimal `json:"tax_on_salary"`

	// Total adds the dividend flat tax to TaxOnSalary
	Total decimal.Decimal `json:"total"`
}

// VATResult is the VAT position for the period
type VATResult struct {
	VATCollected  decimal.Decimal `json:"vat_collected"`
	VATDeductible decimal.Decimal `json:"vat_deductible"`

	// VATToPay = max(0, VATCollected - VATDeductible)
	VATToPay decimal.Decimal `json:"vat_to_pay"`

	VATRate decimal.Decimal `json:"vat_rate"`
}
