// Package engine computes the itemized taxation of a SASU remuneration scenario.
// The engine is a pure calculator over an immutable rate table:
// no clock, no randomness, no I/O. Identical inputs give identical results.
package engine

import (
	"github.com/shopspring/decimal"

	"sasu-tax/core/rates"
	"sasu-tax/core/types"
	"sasu-tax/internal/errors"
)

var one = decimal.NewFromInt(1)

// quotientScale is the number of decimals kept after splitting income into parts
const quotientScale = 10

// Engine is safe for concurrent use
type Engine struct {
	table *rates.Table

	// Copied once; the table hands out fresh slices on every call
	corporateBrackets []rates.Bracket
	incomeBrackets    []rates.Bracket
}

// New creates an engine bound to one tax year's rates
func New(table *rates.Table) *Engine {
	return &Engine{
		table:             table,
		corporateBrackets: table.CorporateBrackets(),
		incomeBrackets:    table.IncomeBrackets(),
	}
}

// Table returns the rates this engine computes with
func (e *Engine) Table() *rates.Table {
	return e.table
}

// SocialChargesOnSalary applies the flat employer and employee rates to a gross salary
func (e *Engine) SocialChargesOnSalary(grossSalary decimal.Decimal) (types.SalaryBreakdown, error) {
	if grossSalary.IsNegative() {
		return types.SalaryBreakdown{}, errors.InvalidInput("gross salary must not be negative, got %s", grossSalary)
	}

	employer := grossSalary.Mul(e.table.EmployerRate())
	employee := grossSalary.Mul(e.table.EmployeeRate())

	return types.SalaryBreakdown{
		GrossSalary:        grossSalary,
		EmployerCharges:    employer,
		EmployeeCharges:    employee,
		TotalSocialCharges: employer.Add(employee),
		NetSalary:          grossSalary.Sub(employee),
		TotalCostToCompany: grossSalary.Add(employer),
	}, nil
}

// CorporateTax applies the progressive IS scale. Profit at or below zero owes nothing.
func (e *Engine) CorporateTax(profitBeforeTax decimal.Decimal) decimal.Decimal {
	return applyBrackets(profitBeforeTax, e.corporateBrackets)
}

// IncomeTax applies the progressive IR scale with the quotient familial:
// the scale is applied to income per part and the result multiplied back.
func (e *Engine) IncomeTax(taxableIncome, parts decimal.Decimal) (decimal.Decimal, error) {
	if !parts.IsPositive() {
		return decimal.Zero, errors.InvalidInput("parts must be positive, got %s", parts)
	}
	if !taxableIncome.IsPositive() {
		return decimal.Zero, nil
	}

	if parts.Equal(one) {
		return applyBrackets(taxableIncome, e.incomeBrackets), nil
	}

	// Division by parts can repeat forever; trim the residue it leaves
	perPart := taxableIncome.Div(parts)
	return applyBrackets(perPart, e.incomeBrackets).Mul(parts).Round(quotientScale), nil
}

// DividendsTaxation applies the PFU flat rates
func (e *Engine) DividendsTaxation(dividends decimal.Decimal) types.DividendBreakdown {
	if !dividends.IsPositive() {
		return types.DividendBreakdown{
			Dividends:     decimal.Zero,
			SocialCharges: decimal.Zero,
			IncomeTax:     decimal.Zero,
			TotalTax:      decimal.Zero,
			NetDividends:  decimal.Zero,
			EffectiveRate: decimal.Zero,
		}
	}

	social := dividends.Mul(e.table.DividendSocialRate())
	flatTax := dividends.Mul(e.table.DividendFlatTaxRate())
	total := social.Add(flatTax)

	return types.DividendBreakdown{
		Dividends:     dividends,
		SocialCharges: social,
		IncomeTax:     flatTax,
		TotalTax:      total,
		NetDividends:  dividends.Sub(total),
		EffectiveRate: total.Div(dividends),
	}
}

// VAT computes collected, deductible and payable VAT at one blended rate
func (e *Engine) VAT(revenue, expenses, vatRate decimal.Decimal) (types.VATResult, error) {
	if revenue.IsNegative() {
		return types.VATResult{}, errors.InvalidInput("revenue must not be negative, got %s", revenue)
	}
	if expenses.IsNegative() {
		return types.VATResult{}, errors.InvalidInput("expenses must not be negative, got %s", expenses)
	}
	if !vatRate.IsPositive() || vatRate.GreaterThan(one) {
		return types.VATResult{}, errors.InvalidInput("VAT rate must be in (0, 1], got %s", vatRate)
	}

	collected := revenue.Mul(vatRate)
	deductible := expenses.Mul(vatRate)

	return types.VATResult{
		VATCollected:  collected,
		VATDeductible: deductible,
		VATToPay:      decimal.Max(decimal.Zero, collected.Sub(deductible)),
		VATRate:       vatRate,
	}, nil
}

// VATRate resolves a named preset; an empty name selects the default
func (e *Engine) VATRate(preset string) (decimal.Decimal, error) {
	if preset == "" {
		return e.table.DefaultVATRate(), nil
	}
	rate, ok := e.table.VATRate(preset)
	if !ok {
		return decimal.Zero, errors.InvalidInput("unknown VAT preset %q", preset)
	}
	return rate, nil
}

// applyBrackets walks an ascending scale. Each bracket taxes the slice of the
// amount between the previous bound and its own bound, inclusive of the bound.
func applyBrackets(amount decimal.Decimal, brackets []rates.Bracket) decimal.Decimal {
	if !amount.IsPositive() {
		return decimal.Zero
	}

	tax := decimal.Zero
	remaining := amount
	lower := decimal.Zero

	for _, b := range brackets {
		if !remaining.IsPositive() {
			break
		}

		slice := remaining
		if !b.IsUnbounded() {
			slice = decimal.Min(remaining, b.Upper.Sub(lower))
			lower = *b.Upper
		}

		tax = tax.Add(slice.Mul(b.Rate))
		remaining = remaining.Sub(slice)
	}
	return tax
}
