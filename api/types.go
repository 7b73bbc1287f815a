// Package api is the HTTP layer over the tax engine.
// Handlers decode, resolve the rate table, call the core and encode; they hold no tax logic.
package api

import (
	"github.com/shopspring/decimal"

	"sasu-tax/adapters/storage"
	"sasu-tax/core/diff"
	"sasu-tax/core/types"
)

// CalculateRequest is the body of POST /api/v1/tax/calculate
type CalculateRequest struct {
	// TaxYear selects the rate table; zero means the configured default
	TaxYear int `json:"tax_year,omitempty"`

	GrossSalary decimal.Decimal `json:"gross_salary"`
	Dividends   decimal.Decimal `json:"dividends"`
	Revenue     decimal.Decimal `json:"revenue"`
	Expenses    decimal.Decimal `json:"expenses"`

	// VATPreset names a VAT rate of the table (standard, reduced, ...)
	VATPreset string `json:"vat_preset,omitempty"`

	// VATRate is an explicit rate and wins over VATPreset
	VATRate *decimal.Decimal `json:"vat_rate,omitempty"`

	// IncludeRecommendations defaults to true
	IncludeRecommendations *bool `json:"include_recommendations,omitempty"`
}

func (r *CalculateRequest) wantsRecommendations() bool {
	return r.IncludeRecommendations == nil || *r.IncludeRecommendations
}

// CalculationResponse is the flat view of a complete taxation
type CalculationResponse struct {
	GrossSalary     decimal.Decimal `json:"gross_salary"`
	Dividends       decimal.Decimal `json:"dividends"`
	Revenue         decimal.Decimal `json:"revenue"`
	Expenses        decimal.Decimal `json:"expenses"`
	ProfitBeforeTax decimal.Decimal `json:"profit_before_tax"`

	NetSalary             decimal.Decimal `json:"net_salary"`
	EmployerSocialCharges decimal.Decimal `json:"employer_social_charges"`
	EmployeeSocialCharges decimal.Decimal `json:"employee_social_charges"`
	TotalSocialCharges    decimal.Decimal `json:"total_social_charges"`

	CorporateTax decimal.Decimal `json:"corporate_tax"`
	IncomeTax    decimal.Decimal `json:"income_tax"`
	DividendTax  decimal.Decimal `json:"dividend_tax"`
	VATToPay     decimal.Decimal `json:"vat_to_pay"`

	TotalTaxes       decimal.Decimal `json:"total_taxes"`
	NetIncome        decimal.Decimal `json:"net_income_after_tax"`
	EffectiveTaxRate decimal.Decimal `json:"effective_tax_rate"`

	// OptimizationPotential is always zero here; POST /optimize computes savings
	OptimizationPotential decimal.Decimal `json:"optimization_potential"`

	CalculationDetails *types.TaxationResult `json:"calculation_details"`
	Recommendations    []string              `json:"recommendations,omitempty"`
}

func newCalculationResponse(req *CalculateRequest, result *types.TaxationResult) *CalculationResponse {
	return &CalculationResponse{
		GrossSalary:     req.GrossSalary,
		Dividends:       req.Dividends,
		Revenue:         req.Revenue,
		Expenses:        req.Expenses,
		ProfitBeforeTax: result.Corporate.ProfitBeforeTax,

		NetSalary:             result.Salary.NetSalary,
		EmployerSocialCharges: result.Salary.EmployerCharges,
		EmployeeSocialCharges: result.Salary.EmployeeCharges,
		TotalSocialCharges:    result.Summary.TotalSocialCharges,

		CorporateTax: result.Corporate.CorporateTax,
		IncomeTax:    result.IncomeTax.Total,
		DividendTax:  result.Dividends.TotalTax,
		VATToPay:     result.VAT.VATToPay,

		TotalTaxes:       result.Summary.TotalTaxes,
		NetIncome:        result.Summary.NetIncome,
		EffectiveTaxRate: result.Summary.EffectiveTaxRate,

		OptimizationPotential: decimal.Zero,
		CalculationDetails:    result,
	}
}

// OptimizeRequest is the body of POST /api/v1/tax/optimize
type OptimizeRequest struct {
	TaxYear         int              `json:"tax_year,omitempty"`
	TargetNetIncome decimal.Decimal  `json:"target_net_income"`
	Revenue         decimal.Decimal  `json:"revenue"`
	Expenses        decimal.Decimal  `json:"expenses"`
	MinSalary       *decimal.Decimal `json:"min_salary,omitempty"`
	MaxSalary       *decimal.Decimal `json:"max_salary,omitempty"`

	// RequireConvergence turns the minimum-salary fallback into a NO_FEASIBLE_SOLUTION error
	RequireConvergence bool `json:"require_convergence,omitempty"`
}

// CompareYearsRequest runs one calculation against several tax years
type CompareYearsRequest struct {
	CalculateRequest

	// Years defaults to every loaded table
	Years []int `json:"years,omitempty"`
}

// YearSummary is one row of a year comparison
type YearSummary struct {
	TaxYear     int              `json:"tax_year"`
	RateTableID string           `json:"rate_table_id"`
	VATRate     decimal.Decimal  `json:"vat_rate"`
	NetSalary   decimal.Decimal  `json:"net_salary"`
	Summary     types.TaxSummary `json:"summary"`
}

// CompareYearsResponse lists summaries in ascending year order
type CompareYearsResponse struct {
	Years []YearSummary `json:"years"`

	// Changes holds one diff per later year against the earliest one
	Changes []*diff.Result `json:"changes"`
}

// SaveCalculationRequest calculates then stores the result
type SaveCalculationRequest struct {
	CalculateRequest

	CompanyID           string `json:"company_id,omitempty"`
	ScenarioName        string `json:"scenario_name,omitempty"`
	ScenarioDescription string `json:"scenario_description,omitempty"`
	Notes               string `json:"notes,omitempty"`
}

// UpdateCalculationRequest is the body of PUT /api/v1/tax/calculations/{id}.
// Only metadata can change; omitted fields keep their value.
type UpdateCalculationRequest = storage.CalculationUpdate

// CalculationList is a page of stored calculations
type CalculationList struct {
	Calculations []*storage.StoredCalculation `json:"calculations"`
	Count        int                          `json:"count"`
	Skip         int                          `json:"skip"`
	Limit        int                          `json:"limit"`
}

// RateTableInfo is one entry of GET /api/v1/rates
type RateTableInfo struct {
	Year     int    `json:"year"`
	ID       string `json:"id"`
	Currency string `json:"currency"`
}
