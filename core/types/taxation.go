package types

import "github.com/shopspring/decimal"

// TaxSummary aggregates every tax paid by the company and its president
type TaxSummary struct {
	// TotalSocialCharges covers salary charges and dividend social charges
	TotalSocialCharges decimal.Decimal `json:"total_social_charges"`

	TotalCorporateTax decimal.Decimal `json:"total_corporate_tax"`

	// TotalIncomeTax covers IR on salary and the dividend flat tax
	TotalIncomeTax decimal.Decimal `json:"total_income_tax"`

	TotalVAT decimal.Decimal `json:"total_vat"`

	// TotalTaxes includes employer charges even though they are a company cost
	TotalTaxes decimal.Decimal `json:"total_taxes"`

	// NetIncome is what the president keeps: net salary after IR plus net dividends
	NetIncome decimal.Decimal `json:"net_income"`

	// EffectiveTaxRate = TotalTaxes / Revenue, or zero without revenue
	EffectiveTaxRate decimal.Decimal `json:"effective_tax_rate"`
}

// TaxationResult is the full breakdown of one remuneration scenario.
// It is produced once per calculation and never modified afterwards.
type TaxationResult struct {
	// TaxYear is the year of the rate table used
	TaxYear int `json:"tax_year"`

	// RateTableID identifies the exact rates used
	RateTableID string `json:"rate_table_id"`

	// Input echoes the requested scenario, before the dividend cap
	Input RemunerationInput `json:"input"`

	Salary    SalaryBreakdown    `json:"salary"`
	Corporate CorporateTaxResult `json:"corporate"`
	Dividends DividendBreakdown  `json:"dividends"`
	IncomeTax IncomeTaxResult    `json:"income_tax"`
	VAT       VATResult          `json:"vat"`
	Summary   TaxSummary         `json:"summary"`
}
