// Package rates provides immutable, content-hashed tax rate tables.
// A Table is built once per tax year and shared read-only by every calculation.
package rates

import (
	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"sasu-tax/core/determinism"
)

// Legal working time used to annualize the hourly minimum wage.
const (
	WeeklyHours  = 35
	WeeksPerYear = 52
)

// Bracket is one tier of a progressive scale.
// Upper is the inclusive upper bound of the tier; nil means unbounded.
type Bracket struct {
	Upper *decimal.Decimal
	Rate  decimal.Decimal
}

// UpTo creates a bounded bracket
func UpTo(upper, rate decimal.Decimal) Bracket {
	u := upper
	return Bracket{Upper: &u, Rate: rate}
}

// Above creates the terminal, unbounded bracket
func Above(rate decimal.Decimal) Bracket {
	return Bracket{Rate: rate}
}

// IsUnbounded reports whether the bracket has no upper bound
func (b Bracket) IsUnbounded() bool {
	return b.Upper == nil
}

// VATPreset is a named VAT rate
type VATPreset struct {
	Name    string          `json:"name"`
	Rate    decimal.Decimal `json:"rate"`
	Default bool            `json:"default"`
}

// Table is IMMUTABLE after Build.
// It holds every rate the engine consumes for one tax year.
type Table struct {
	year     int
	currency string

	employerRate decimal.Decimal
	employeeRate decimal.Decimal

	dividendSocialRate  decimal.Decimal
	dividendFlatTaxRate decimal.Decimal

	corporateBrackets []Bracket
	incomeBrackets    []Bracket

	vatRates   map[string]decimal.Decimal
	defaultVAT string

	smicHourly            decimal.Decimal
	passAnnual            decimal.Decimal
	professionalDeduction decimal.Decimal

	hash determinism.ContentHash
}

// Year returns the tax year
func (t *Table) Year() int { return t.year }

// Currency returns the currency code of every amount
func (t *Table) Currency() string { return t.currency }

// ID returns the content-derived identifier
func (t *Table) ID() string { return t.hash.Short() }

// Hash returns the full content hash
func (t *Table) Hash() determinism.ContentHash { return t.hash }

// EmployerRate returns the employer social-charge rate on gross salary
func (t *Table) EmployerRate() decimal.Decimal { return t.employerRate }

// EmployeeRate returns the employee social-charge rate on gross salary
func (t *Table) EmployeeRate() decimal.Decimal { return t.employeeRate }

// DividendSocialRate returns the social-charge rate on dividends
func (t *Table) DividendSocialRate() decimal.Decimal { return t.dividendSocialRate }

// DividendFlatTaxRate returns the PFU income-tax component on dividends
func (t *Table) DividendFlatTaxRate() decimal.Decimal { return t.dividendFlatTaxRate }

// CorporateBrackets returns a copy of the IS scale
func (t *Table) CorporateBrackets() []Bracket { return copyBrackets(t.corporateBrackets) }

// IncomeBrackets returns a copy of the IR scale (per part)
func (t *Table) IncomeBrackets() []Bracket { return copyBrackets(t.incomeBrackets) }

// SMICHourly returns the hourly minimum wage
func (t *Table) SMICHourly() decimal.Decimal { return t.smicHourly }

// SMICAnnual returns the annualized minimum wage: hourly x 35 x 52
func (t *Table) SMICAnnual() decimal.Decimal {
	return t.smicHourly.Mul(decimal.NewFromInt(WeeklyHours)).Mul(decimal.NewFromInt(WeeksPerYear))
}

// PASSAnnual returns the annual social-security ceiling
func (t *Table) PASSAnnual() decimal.Decimal { return t.passAnnual }

// ProfessionalDeduction returns the flat expense deduction applied to net salary before IR
func (t *Table) ProfessionalDeduction() decimal.Decimal { return t.professionalDeduction }

// VATRate looks up a preset by name
func (t *Table) VATRate(name string) (decimal.Decimal, bool) {
	rate, ok := t.vatRates[name]
	return rate, ok
}

// DefaultVATPreset returns the name of the default preset
func (t *Table) DefaultVATPreset() string { return t.defaultVAT }

// DefaultVATRate returns the rate of the default preset
func (t *Table) DefaultVATRate() decimal.Decimal { return t.vatRates[t.defaultVAT] }

// VATPresets returns all presets sorted by name
func (t *Table) VATPresets() []VATPreset {
	names := determinism.SortedKeys(t.vatRates)
	presets := make([]VATPreset, 0, len(names))
	for _, name := range names {
		presets = append(presets, VATPreset{
			Name:    name,
			Rate:    t.vatRates[name],
			Default: name == t.defaultVAT,
		})
	}
	return presets
}

// bracketView is the serialized form of a Bracket
type bracketView struct {
	Upper *decimal.Decimal `json:"upper"`
	Rate  decimal.Decimal  `json:"rate"`
}

// tableView is the serialized form of a Table. Field order is fixed, which
// makes the JSON encoding canonical and safe to hash.
type tableView struct {
	ID       string `json:"id,omitempty"`
	Year     int    `json:"year"`
	Currency string `json:"currency"`

	SalaryCharges struct {
		Employer decimal.Decimal `json:"employer"`
		Employee decimal.Decimal `json:"employee"`
	} `json:"salary_charges"`

	DividendCharges struct {
		Social  decimal.Decimal `json:"social"`
		FlatTax decimal.Decimal `json:"flat_tax"`
	} `json:"dividend_charges"`

	CorporateTax []bracketView `json:"corporate_tax"`
	IncomeTax    []bracketView `json:"income_tax"`
	VATRates     []VATPreset   `json:"vat_rates"`

	Constants struct {
		SMICHourly            decimal.Decimal `json:"smic_hourly"`
		SMICAnnual            decimal.Decimal `json:"smic_annual"`
		PASSAnnual            decimal.Decimal `json:"pass_annual"`
		ProfessionalDeduction decimal.Decimal `json:"professional_deduction"`
	} `json:"constants"`
}

func (t *Table) view() tableView {
	var v tableView
	v.Year = t.year
	v.Currency = t.currency
	v.SalaryCharges.Employer = t.employerRate
	v.SalaryCharges.Employee = t.employeeRate
	v.DividendCharges.Social = t.dividendSocialRate
	v.DividendCharges.FlatTax = t.dividendFlatTaxRate
	v.CorporateTax = viewBrackets(t.corporateBrackets)
	v.IncomeTax = viewBrackets(t.incomeBrackets)
	v.VATRates = t.VATPresets()
	v.Constants.SMICHourly = t.smicHourly
	v.Constants.SMICAnnual = t.SMICAnnual()
	v.Constants.PASSAnnual = t.passAnnual
	v.Constants.ProfessionalDeduction = t.professionalDeduction
	return v
}

// canonicalBytes returns deterministic bytes for hashing (the ID is excluded)
func (t *Table) canonicalBytes() []byte {
	data, _ := json.Marshal(t.view())
	return data
}

// MarshalJSON renders the table with its ID
func (t *Table) MarshalJSON() ([]byte, error) {
	v := t.view()
	v.ID = t.ID()
	return json.Marshal(v)
}

func viewBrackets(brackets []Bracket) []bracketView {
	out := make([]bracketView, len(brackets))
	for i, b := range brackets {
		out[i] = bracketView{Upper: b.Upper, Rate: b.Rate}
	}
	return out
}

func copyBrackets(brackets []Bracket) []Bracket {
	out := make([]Bracket, len(brackets))
	for i, b := range brackets {
		out[i] = Bracket{Rate: b.Rate}
		if b.Upper != nil {
			u := *b.Upper
			out[i].Upper = &u
		}
	}
	return out
}
