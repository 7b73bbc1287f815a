// Package output renders tax results for humans (table) and machines (json).
package output

import (
	"fmt"
	"io"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"sasu-tax/core/rates"
	"sasu-tax/core/types"
	"sasu-tax/core/ui"
	"sasu-tax/internal/errors"
)

// Format represents output format type
type Format string

const (
	// FormatTable is a human-readable terminal table
	FormatTable Format = "table"

	// FormatJSON is machine-readable JSON
	FormatJSON Format = "json"
)

// Formats lists the supported formats
func Formats() []Format {
	return []Format{FormatTable, FormatJSON}
}

// Formatter produces output in a specific format
type Formatter interface {
	// Format returns the format type
	Format() Format

	// RenderTaxation renders one complete taxation
	RenderTaxation(w io.Writer, result *types.TaxationResult, recommendations []string) error

	// RenderComparison renders an optimization with its reference strategies
	RenderComparison(w io.Writer, cmp *types.StrategyComparison) error

	// RenderRates renders a rate table
	RenderRates(w io.Writer, table *rates.Table) error
}

// New returns the formatter for a format name
func New(format string, noColor bool) (Formatter, error) {
	switch Format(strings.ToLower(format)) {
	case FormatTable, "":
		return &TableFormatter{NoColor: noColor}, nil
	case FormatJSON:
		return &JSONFormatter{Indent: "  "}, nil
	default:
		return nil, errors.InvalidInput("unknown output format %q (supported: %v)", format, Formats())
	}
}

// JSONFormatter writes indented JSON
type JSONFormatter struct {
	Indent string
}

func (f *JSONFormatter) Format() Format { return FormatJSON }

func (f *JSONFormatter) write(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", f.Indent)
	if err != nil {
		return errors.Internal("failed to encode output", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

func (f *JSONFormatter) RenderTaxation(w io.Writer, result *types.TaxationResult, recommendations []string) error {
	return f.write(w, struct {
		Result          *types.TaxationResult `json:"result"`
		Recommendations []string              `json:"recommendations,omitempty"`
	}{result, recommendations})
}

func (f *JSONFormatter) RenderComparison(w io.Writer, cmp *types.StrategyComparison) error {
	return f.write(w, cmp)
}

func (f *JSONFormatter) RenderRates(w io.Writer, table *rates.Table) error {
	return f.write(w, table)
}

// TableFormatter writes aligned terminal tables
type TableFormatter struct {
	NoColor bool
}

func (f *TableFormatter) Format() Format { return FormatTable }

func (f *TableFormatter) RenderTaxation(w io.Writer, result *types.TaxationResult, recommendations []string) error {
	out := ui.NewWriter(w, f.NoColor)
	out.Header(fmt.Sprintf("SASU taxation %d (rates %s)", result.TaxYear, result.RateTableID))

	t := out.NewTable("Section", "Item", "Amount").AlignRight(2)
	t.AddRow("Salary", "Gross salary", Money(result.Salary.GrossSalary))
	t.AddRow("", "Employer charges", Money(result.Salary.EmployerCharges))
	t.AddRow("", "Employee charges", Money(result.Salary.EmployeeCharges))
	t.AddRow("", "Net salary", Money(result.Salary.NetSalary))
	t.Separator()
	t.AddRow("Company", "Profit before tax", Money(result.Corporate.ProfitBeforeTax))
	t.AddRow("", "Corporate tax", Money(result.Corporate.CorporateTax))
	t.AddRow("", "Available for dividends", Money(result.Corporate.AvailableForDividends))
	t.Separator()
	t.AddRow("Dividends", "Distributed", Money(result.Dividends.Dividends))
	t.AddRow("", "Social charges", Money(result.Dividends.SocialCharges))
	t.AddRow("", "Flat tax", Money(result.Dividends.IncomeTax))
	t.AddRow("", "Net dividends", Money(result.Dividends.NetDividends))
	t.Separator()
	t.AddRow("Income tax", "Taxable salary", Money(result.IncomeTax.TaxableSalary))
	t.AddRow("", "Tax on salary", Money(result.IncomeTax.TaxOnSalary))
	t.AddRow("VAT", "To pay at "+Percent(result.VAT.VATRate), Money(result.VAT.VATToPay))
	t.Separator()
	t.AddRow("Total", "Taxes and charges", Money(result.Summary.TotalTaxes))
	t.AddRow("", "Net income", Money(result.Summary.NetIncome))
	t.AddRow("", "Effective rate", Percent(result.Summary.EffectiveTaxRate))
	t.Render()

	if result.Input.Dividends.GreaterThan(result.Dividends.Dividends) {
		out.Println("")
		out.Warning("Requested dividends %s capped at %s", Money(result.Input.Dividends), Money(result.Dividends.Dividends))
	}
	renderList(out, "Recommendations", recommendations)
	return nil
}

func (f *TableFormatter) RenderComparison(w io.Writer, cmp *types.StrategyComparison) error {
	out := ui.NewWriter(w, f.NoColor)
	opt := cmp.Optimal
	out.Header("Optimal remuneration")

	if opt.Converged {
		out.Success("Target reached after %d evaluations", opt.Evaluations)
	} else {
		out.Warning("Target not reached; showing the fallback split")
	}
	out.Println("")

	t := out.NewTable("Strategy", "Gross salary", "Dividends", "Total taxes", "Net income").AlignRight(1, 2, 3, 4)
	t.AddRow("Optimal", Money(opt.OptimalGrossSalary), Money(opt.OptimalDividends), Money(opt.TotalTaxBurden), Money(opt.NetIncomeAchieved))
	addStrategyRow(t, "All salary", cmp.AllSalary)
	addStrategyRow(t, "All dividends", cmp.AllDividends)
	t.Render()

	out.Println("")
	out.Info("Savings vs all salary: %s", Money(cmp.SavingsVsAllSalary))
	out.Info("Savings vs all dividends: %s", Money(cmp.SavingsVsAllDividends))

	renderList(out, "Recommendations", cmp.Recommendations)
	if len(cmp.Warnings) > 0 {
		out.Println("")
		for _, warning := range cmp.Warnings {
			out.Warning("%s", warning)
		}
	}
	return nil
}

func addStrategyRow(t *ui.Table, name string, result *types.TaxationResult) {
	if result == nil {
		return
	}
	t.AddRow(name,
		Money(result.Salary.GrossSalary),
		Money(result.Dividends.Dividends),
		Money(result.Summary.TotalTaxes),
		Money(result.Summary.NetIncome),
	)
}

func (f *TableFormatter) RenderRates(w io.Writer, table *rates.Table) error {
	out := ui.NewWriter(w, f.NoColor)
	out.Header(fmt.Sprintf("Rates %d (%s, id %s)", table.Year(), table.Currency(), table.ID()))

	t := out.NewTable("Item", "Value").AlignRight(1)
	t.AddRow("Employer salary charges", Percent(table.EmployerRate()))
	t.AddRow("Employee salary charges", Percent(table.EmployeeRate()))
	t.AddRow("Dividend social charges", Percent(table.DividendSocialRate()))
	t.AddRow("Dividend flat tax", Percent(table.DividendFlatTaxRate()))
	t.AddRow("SMIC annual", Money(table.SMICAnnual()))
	t.AddRow("PASS annual", Money(table.PASSAnnual()))
	t.AddRow("Professional deduction", Percent(table.ProfessionalDeduction()))
	t.Render()

	out.Println("")
	renderBrackets(out, "Corporate tax", table.CorporateBrackets())
	out.Println("")
	renderBrackets(out, "Income tax", table.IncomeBrackets())

	out.Println("")
	out.SubHeader("VAT rates")
	vat := out.NewTable("Preset", "Rate", "Default").AlignRight(1)
	for _, preset := range table.VATPresets() {
		def := ""
		if preset.Default {
			def = "yes"
		}
		vat.AddRow(preset.Name, Percent(preset.Rate), def)
	}
	vat.Render()
	return nil
}

func renderBrackets(out *ui.Writer, title string, brackets []rates.Bracket) {
	out.SubHeader(title)
	t := out.NewTable("Up to", "Rate").AlignRight(0, 1)
	for _, b := range brackets {
		upper := "∞"
		if !b.IsUnbounded() {
			upper = Money(*b.Upper)
		}
		t.AddRow(upper, Percent(b.Rate))
	}
	t.Render()
}

func renderList(out *ui.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	out.Println("")
	out.SubHeader(title)
	for _, item := range items {
		out.Println("  • %s", item)
	}
}

// Money renders an amount with two decimals and grouped thousands
func Money(amount decimal.Decimal) string {
	s := amount.StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}

	whole, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return sign + b.String() + "," + frac + " €"
}

// Percent renders a rate as a percentage
func Percent(rate decimal.Decimal) string {
	return rate.Mul(decimal.NewFromInt(100)).StringFixed(2) + " %"
}
