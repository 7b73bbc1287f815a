package optimizer

import (
	"fmt"

	"github.com/shopspring/decimal"

	"sasu-tax/core/types"
)

// Rough gross-up factors for the reference strategies
var (
	allSalaryFactor    = decimal.RequireFromString("1.8")
	allDividendsFactor = decimal.RequireFromString("1.4")
)

// CompareStrategies runs the optimizer and compares its burden with two naive
// strategies: everything as salary, and minimum wage plus dividends.
func (o *Optimizer) CompareStrategies(target, revenue, expenses decimal.Decimal, constraints types.SalaryConstraints) (*types.StrategyComparison, error) {
	optimal, err := o.Optimize(target, revenue, expenses, constraints)
	if err != nil {
		return nil, err
	}

	smic := o.engine.Table().SMICAnnual()

	allSalary, err := o.engine.CompleteTaxation(types.RemunerationInput{
		GrossSalary: target.Mul(allSalaryFactor),
		Revenue:     revenue,
		Expenses:    expenses,
	})
	if err != nil {
		return nil, err
	}

	allDividends, err := o.engine.CompleteTaxation(types.RemunerationInput{
		GrossSalary: smic,
		Dividends:   target.Mul(allDividendsFactor),
		Revenue:     revenue,
		Expenses:    expenses,
	})
	if err != nil {
		return nil, err
	}

	savingsVsSalary := decimal.Max(decimal.Zero, allSalary.Summary.TotalTaxes.Sub(optimal.TotalTaxBurden))
	savingsVsDividends := decimal.Max(decimal.Zero, allDividends.Summary.TotalTaxes.Sub(optimal.TotalTaxBurden))

	recommendations := []string{
		fmt.Sprintf("Salaire optimal : %s brut annuel", FormatEuros(optimal.OptimalGrossSalary)),
		fmt.Sprintf("Dividendes optimaux : %s", FormatEuros(optimal.OptimalDividends)),
		fmt.Sprintf("Économie vs tout en salaire : %s", FormatEuros(savingsVsSalary)),
		fmt.Sprintf("Économie vs tout en dividendes : %s", FormatEuros(savingsVsDividends)),
	}

	var warnings []string
	if optimal.OptimalGrossSalary.LessThan(smic) {
		warnings = append(warnings, "Le salaire optimisé est inférieur au SMIC")
	}
	warnings = append(warnings, optimal.Warnings...)

	return &types.StrategyComparison{
		Optimal:               optimal,
		AllSalary:             allSalary,
		AllDividends:          allDividends,
		SavingsVsAllSalary:    savingsVsSalary,
		SavingsVsAllDividends: savingsVsDividends,
		Recommendations:       recommendations,
		Warnings:              warnings,
	}, nil
}
