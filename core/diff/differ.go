// Package diff compares two taxation results line by line.
package diff

import (
	"fmt"

	"github.com/shopspring/decimal"

	"sasu-tax/core/types"
)

// ChangeType indicates how a line moved
type ChangeType int

const (
	ChangeUnchanged ChangeType = iota
	ChangeIncreased
	ChangeDecreased
)

// String returns the change type name
func (c ChangeType) String() string {
	switch c {
	case ChangeIncreased:
		return "increased"
	case ChangeDecreased:
		return "decreased"
	default:
		return "unchanged"
	}
}

// MarshalText renders the name in JSON
func (c ChangeType) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText parses a change type name
func (c *ChangeType) UnmarshalText(text []byte) error {
	switch string(text) {
	case "increased":
		*c = ChangeIncreased
	case "decreased":
		*c = ChangeDecreased
	case "unchanged":
		*c = ChangeUnchanged
	default:
		return fmt.Errorf("unknown change type %q", text)
	}
	return nil
}

// LineDiff describes one figure of the breakdown
type LineDiff struct {
	Name       string          `json:"name"`
	ChangeType ChangeType      `json:"change"`
	Before     decimal.Decimal `json:"before"`
	After      decimal.Decimal `json:"after"`
	Delta      decimal.Decimal `json:"delta"`
}

// Result is the complete diff between two results
type Result struct {
	BaseYear int `json:"base_year"`
	Year     int `json:"year"`

	TotalBefore decimal.Decimal `json:"total_taxes_before"`
	TotalAfter  decimal.Decimal `json:"total_taxes_after"`
	TotalDelta  decimal.Decimal `json:"total_taxes_delta"`

	// DeltaPercent is zero when the base total is zero
	DeltaPercent decimal.Decimal `json:"delta_percent"`

	NetIncomeDelta decimal.Decimal `json:"net_income_delta"`

	// Lines holds changed figures only, in breakdown order
	Lines []LineDiff `json:"lines"`
}

// Differ computes diffs between taxation results
type Differ struct {
	// Threshold is the absolute amount under which a line counts as unchanged
	Threshold decimal.Decimal
}

// NewDiffer creates a differ; a non-positive threshold means one cent
func NewDiffer(threshold decimal.Decimal) *Differ {
	if !threshold.IsPositive() {
		threshold = decimal.New(1, -2)
	}
	return &Differ{Threshold: threshold}
}

type line struct {
	name  string
	value func(*types.TaxationResult) decimal.Decimal
}

// lines is the breakdown order
var lines = []line{
	{"net_salary", func(r *types.TaxationResult) decimal.Decimal { return r.Salary.NetSalary }},
	{"employer_charges", func(r *types.TaxationResult) decimal.Decimal { return r.Salary.EmployerCharges }},
	{"employee_charges", func(r *types.TaxationResult) decimal.Decimal { return r.Salary.EmployeeCharges }},
	{"corporate_tax", func(r *types.TaxationResult) decimal.Decimal { return r.Corporate.CorporateTax }},
	{"dividends_distributed", func(r *types.TaxationResult) decimal.Decimal { return r.Dividends.Dividends }},
	{"dividend_tax", func(r *types.TaxationResult) decimal.Decimal { return r.Dividends.TotalTax }},
	{"tax_on_salary", func(r *types.TaxationResult) decimal.Decimal { return r.IncomeTax.TaxOnSalary }},
	{"vat_to_pay", func(r *types.TaxationResult) decimal.Decimal { return r.VAT.VATToPay }},
	{"total_taxes", func(r *types.TaxationResult) decimal.Decimal { return r.Summary.TotalTaxes }},
	{"net_income", func(r *types.TaxationResult) decimal.Decimal { return r.Summary.NetIncome }},
}

// Diff computes the diff between before and after
func (d *Differ) Diff(before, after *types.TaxationResult) *Result {
	result := &Result{
		BaseYear:       before.TaxYear,
		Year:           after.TaxYear,
		TotalBefore:    before.Summary.TotalTaxes,
		TotalAfter:     after.Summary.TotalTaxes,
		TotalDelta:     after.Summary.TotalTaxes.Sub(before.Summary.TotalTaxes),
		NetIncomeDelta: after.Summary.NetIncome.Sub(before.Summary.NetIncome),
		Lines:          []LineDiff{},
	}

	if !before.Summary.TotalTaxes.IsZero() {
		result.DeltaPercent = result.TotalDelta.
			Div(before.Summary.TotalTaxes).
			Mul(decimal.NewFromInt(100)).
			Round(2)
	}

	for _, l := range lines {
		b, a := l.value(before), l.value(after)
		delta := a.Sub(b)
		change := d.classify(delta)
		if change == ChangeUnchanged {
			continue
		}
		result.Lines = append(result.Lines, LineDiff{
			Name:       l.name,
			ChangeType: change,
			Before:     b,
			After:      a,
			Delta:      delta,
		})
	}

	return result
}

func (d *Differ) classify(delta decimal.Decimal) ChangeType {
	switch {
	case delta.Abs().LessThan(d.Threshold):
		return ChangeUnchanged
	case delta.IsPositive():
		return ChangeIncreased
	default:
		return ChangeDecreased
	}
}

// HasChanges reports whether any line moved beyond the threshold
func (r *Result) HasChanges() bool {
	return len(r.Lines) > 0
}
