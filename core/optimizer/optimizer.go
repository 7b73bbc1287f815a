// Package optimizer searches the salary/dividend split that minimizes the total
// tax burden for a target net income.
//
// The search is deliberately discrete: 21 evenly spaced salary samples, each
// followed by a binary search on dividends down to a 100 euro interval. Results
// are reproducible and do not depend on a numerical solver.
package optimizer

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"sasu-tax/core/engine"
	"sasu-tax/core/types"
	"sasu-tax/internal/errors"
)

const (
	// SalarySteps is the number of intervals between the salary bounds (21 samples)
	SalarySteps = 20
)

var (
	// DividendTolerance stops the dividend binary search
	DividendTolerance = decimal.NewFromInt(100)

	// TargetTolerance is the maximum distance to the target net income for a candidate to be accepted
	TargetTolerance = decimal.NewFromInt(1000)

	// DefaultMaxSalaryShare caps the salary at 80% of revenue when no maximum is given
	DefaultMaxSalaryShare = decimal.RequireFromString("0.8")

	two = decimal.NewFromInt(2)
)

// Option configures an Optimizer
type Option func(*Optimizer)

// WithLogger sets the logger used for search diagnostics
func WithLogger(logger *zap.Logger) Option {
	return func(o *Optimizer) {
		o.logger = logger
	}
}

// Optimizer is stateless between calls and safe for concurrent use
type Optimizer struct {
	engine *engine.Engine
	logger *zap.Logger
}

// New creates an optimizer over an engine
func New(eng *engine.Engine, opts ...Option) *Optimizer {
	o := &Optimizer{
		engine: eng,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Engine returns the underlying tax engine
func (o *Optimizer) Engine() *engine.Engine {
	return o.engine
}

// candidate is the best split found so far
type candidate struct {
	salary    decimal.Decimal
	dividends decimal.Decimal
	result    *types.TaxationResult
}

// Optimize finds the split closest to minimizing total taxes while keeping the
// net income within TargetTolerance of the target.
//
// When no sample qualifies, the result falls back to the minimum salary with no
// dividends and Converged is false. A minimum above the maximum samples nothing.
func (o *Optimizer) Optimize(target, revenue, expenses decimal.Decimal, constraints types.SalaryConstraints) (*types.OptimizationResult, error) {
	if err := validate(target, revenue, expenses, constraints); err != nil {
		return nil, err
	}

	minSalary, maxSalary := o.bounds(revenue, constraints)

	var (
		best        *candidate
		evaluations int
		warnings    []string
	)

	evaluate := func(salary, dividends decimal.Decimal) (*types.TaxationResult, error) {
		evaluations++
		return o.engine.CompleteTaxation(types.RemunerationInput{
			GrossSalary: salary,
			Dividends:   dividends,
			Revenue:     revenue,
			Expenses:    expenses,
		})
	}

	if minSalary.GreaterThan(maxSalary) {
		warnings = append(warnings, fmt.Sprintf(
			"minimum salary %s exceeds maximum salary %s: no salary was sampled",
			minSalary.StringFixed(2), maxSalary.StringFixed(2)))
	} else {
		span := maxSalary.Sub(minSalary)
		for i := 0; i <= SalarySteps; i++ {
			salary := minSalary.Add(span.Mul(decimal.NewFromInt(int64(i))).Div(decimal.NewFromInt(SalarySteps)))

			breakdown, err := o.engine.SocialChargesOnSalary(salary)
			if err != nil {
				return nil, err
			}
			profit := revenue.Sub(expenses).Sub(breakdown.TotalCostToCompany)
			if !profit.IsPositive() {
				continue
			}
			available := profit.Sub(o.engine.CorporateTax(profit))
			if !available.IsPositive() {
				continue
			}

			// Net income is non-decreasing in dividends for a fixed salary
			low, high := decimal.Zero, available
			for high.Sub(low).GreaterThan(DividendTolerance) {
				mid := low.Add(high).Div(two)
				result, err := evaluate(salary, mid)
				if err != nil {
					return nil, err
				}
				if result.Summary.NetIncome.LessThan(target) {
					low = mid
				} else {
					high = mid
				}
			}

			dividends := low.Add(high).Div(two)
			result, err := evaluate(salary, dividends)
			if err != nil {
				return nil, err
			}

			gap := result.Summary.NetIncome.Sub(target).Abs()
			if gap.LessThan(TargetTolerance) &&
				(best == nil || result.Summary.TotalTaxes.LessThan(best.result.Summary.TotalTaxes)) {
				best = &candidate{salary: salary, dividends: dividends, result: result}
				o.logger.Debug("accepted candidate",
					zap.Int("sample", i),
					zap.String("salary", salary.StringFixed(2)),
					zap.String("dividends", dividends.StringFixed(2)),
					zap.String("total_taxes", result.Summary.TotalTaxes.StringFixed(2)))
			}
		}
	}

	converged := best != nil
	if !converged {
		result, err := evaluate(minSalary, decimal.Zero)
		if err != nil {
			return nil, err
		}
		best = &candidate{salary: minSalary, dividends: decimal.Zero, result: result}
		warnings = append(warnings, fmt.Sprintf(
			"no split reached the target net income %s within %s: falling back to the minimum salary without dividends",
			target.StringFixed(2), TargetTolerance))
		o.logger.Warn("optimization did not converge",
			zap.String("target", target.StringFixed(2)),
			zap.String("revenue", revenue.StringFixed(2)),
			zap.String("expenses", expenses.StringFixed(2)),
			zap.Int("evaluations", evaluations))
	}

	summary := best.result.Summary
	return &types.OptimizationResult{
		OptimalGrossSalary: best.salary,
		OptimalDividends:   best.dividends,
		NetIncomeAchieved:  summary.NetIncome,
		TotalTaxBurden:     summary.TotalTaxes,
		EffectiveTaxRate:   summary.EffectiveTaxRate,
		Converged:          converged,
		Evaluations:        evaluations,
		Warnings:           warnings,
		Breakdown:          summary,
		FullCalculation:    best.result,
	}, nil
}

// bounds applies the default salary range: minimum wage up to 80% of revenue
func (o *Optimizer) bounds(revenue decimal.Decimal, c types.SalaryConstraints) (decimal.Decimal, decimal.Decimal) {
	minSalary := o.engine.Table().SMICAnnual()
	if c.MinSalary != nil {
		minSalary = *c.MinSalary
	}
	maxSalary := revenue.Mul(DefaultMaxSalaryShare)
	if c.MaxSalary != nil {
		maxSalary = *c.MaxSalary
	}
	return minSalary, maxSalary
}

func validate(target, revenue, expenses decimal.Decimal, c types.SalaryConstraints) error {
	if !target.IsPositive() {
		return errors.InvalidInput("target net income must be positive, got %s", target)
	}
	if !revenue.IsPositive() {
		return errors.InvalidInput("revenue must be positive, got %s", revenue)
	}
	if expenses.IsNegative() {
		return errors.InvalidInput("expenses must not be negative, got %s", expenses)
	}
	if c.MinSalary != nil && c.MinSalary.IsNegative() {
		return errors.InvalidInput("minimum salary must not be negative, got %s", *c.MinSalary)
	}
	if c.MaxSalary != nil && c.MaxSalary.IsNegative() {
		return errors.InvalidInput("maximum salary must not be negative, got %s", *c.MaxSalary)
	}
	return nil
}
