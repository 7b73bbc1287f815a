package types

import "github.com/shopspring/decimal"

// SalaryConstraints bounds the salary search. A nil bound uses the default.
type SalaryConstraints struct {
	MinSalary *decimal.Decimal `json:"min_salary,omitempty"`
	MaxSalary *decimal.Decimal `json:"max_salary,omitempty"`
}

// OptimizationResult is the salary/dividend split found by the optimizer
type OptimizationResult struct {
	OptimalGrossSalary decimal.Decimal `json:"optimal_gross_salary"`
	OptimalDividends   decimal.Decimal `json:"optimal_dividends"`
	NetIncomeAchieved  decimal.Decimal `json:"net_income_achieved"`
	TotalTaxBurden     decimal.Decimal `json:"total_tax_burden"`
	EffectiveTaxRate   decimal.Decimal `json:"effective_tax_rate"`

	// Converged is false when no candidate reached the target and the
	// result is the (minimum salary, no dividends) fallback
	Converged bool `json:"converged"`

	// Evaluations counts complete tax calculations performed by the search
	Evaluations int `json:"evaluations"`

	Warnings []string `json:"warnings,omitempty"`

	// Breakdown is the summary of FullCalculation
	Breakdown       TaxSummary      `json:"breakdown"`
	FullCalculation *TaxationResult `json:"full_calculation"`
}

// StrategyComparison puts the optimal split next to two naive strategies
type StrategyComparison struct {
	Optimal *OptimizationResult `json:"optimal"`

	// AllSalary pays the target mostly as salary, without dividends
	AllSalary *TaxationResult `json:"all_salary"`

	// AllDividends pays the minimum wage and the rest as dividends
	AllDividends *TaxationResult `json:"all_dividends"`

	// Savings are never negative
	SavingsVsAllSalary    decimal.Decimal `json:"savings_vs_all_salary"`
	SavingsVsAllDividends decimal.Decimal `json:"savings_vs_all_dividends"`

	Recommendations []string `json:"recommendations"`
	Warnings        []string `json:"warnings,omitempty"`
}
