package engine

import (
	"github.com/shopspring/decimal"

	"sasu-tax/core/types"
	"sasu-tax/internal/errors"
)

// CompleteTaxation computes the full breakdown of one remuneration scenario.
//
// Requested dividends are silently capped at the after-tax profit: a company
// cannot distribute more than it earned. Input echoes the uncapped request.
// A zero VATRate selects the table's default preset.
func (e *Engine) CompleteTaxation(in types.RemunerationInput) (*types.TaxationResult, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	vatRate := in.VATRate
	if vatRate.IsZero() {
		vatRate = e.table.DefaultVATRate()
	}

	// Salary and company profit
	salary, err := e.SocialChargesOnSalary(in.GrossSalary)
	if err != nil {
		return nil, err
	}

	profitBeforeTax := in.Revenue.Sub(in.Expenses).Sub(salary.TotalCostToCompany)
	corporateTax := e.CorporateTax(profitBeforeTax)
	profitAfterTax := profitBeforeTax.Sub(corporateTax)
	available := decimal.Max(decimal.Zero, profitAfterTax)

	corporate := types.CorporateTaxResult{
		ProfitBeforeTax:       profitBeforeTax,
		CorporateTax:          corporateTax,
		ProfitAfterTax:        profitAfterTax,
		AvailableForDividends: available,
	}

	// Dividends
	dividends := e.DividendsTaxation(decimal.Min(in.Dividends, available))

	// Personal income tax on salary, after the flat professional deduction
	taxableSalary := salary.NetSalary.Mul(one.Sub(e.table.ProfessionalDeduction()))
	taxOnSalary, err := e.IncomeTax(taxableSalary, one)
	if err != nil {
		return nil, err
	}

	incomeTax := types.IncomeTaxResult{
		TaxableSalary: taxableSalary,
		TaxOnSalary:   taxOnSalary,
		Total:         taxOnSalary.Add(dividends.IncomeTax),
	}

	vat, err := e.VAT(in.Revenue, in.Expenses, vatRate)
	if err != nil {
		return nil, err
	}

	totalTaxes := salary.TotalSocialCharges.
		Add(corporateTax).
		Add(dividends.TotalTax).
		Add(taxOnSalary).
		Add(vat.VATToPay)

	effectiveRate := decimal.Zero
	if in.Revenue.IsPositive() {
		effectiveRate = totalTaxes.Div(in.Revenue)
	}

	echo := in
	echo.VATRate = vatRate

	return &types.TaxationResult{
		TaxYear:     e.table.Year(),
		RateTableID: e.table.ID(),
		Input:       echo,
		Salary:      salary,
		Corporate:   corporate,
		Dividends:   dividends,
		IncomeTax:   incomeTax,
		VAT:         vat,
		Summary: types.TaxSummary{
			TotalSocialCharges: salary.TotalSocialCharges.Add(dividends.SocialCharges),
			TotalCorporateTax:  corporateTax,
			TotalIncomeTax:     incomeTax.Total,
			TotalVAT:           vat.VATToPay,
			TotalTaxes:         totalTaxes,
			NetIncome:          salary.NetSalary.Sub(taxOnSalary).Add(dividends.NetDividends),
			EffectiveTaxRate:   effectiveRate,
		},
	}, nil
}

// validateInput rejects the scenario before any partial computation
func validateInput(in types.RemunerationInput) error {
	fields := []struct {
		name  string
		value decimal.Decimal
	}{
		{"gross salary", in.GrossSalary},
		{"dividends", in.Dividends},
		{"revenue", in.Revenue},
		{"expenses", in.Expenses},
		{"VAT rate", in.VATRate},
	}
	for _, f := range fields {
		if f.value.IsNegative() {
			return errors.InvalidInput("%s must not be negative, got %s", f.name, f.value)
		}
	}
	if in.VATRate.GreaterThan(one) {
		return errors.InvalidInput("VAT rate must be in (0, 1], got %s", in.VATRate)
	}
	return nil
}
