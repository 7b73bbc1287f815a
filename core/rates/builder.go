package rates

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"sasu-tax/core/determinism"
	"sasu-tax/internal/errors"
)

// DefaultCurrency is used when a table does not name one
const DefaultCurrency = "EUR"

// DefaultProfessionalDeduction is the flat 10% expense allowance on salary
var DefaultProfessionalDeduction = decimal.RequireFromString("0.10")

// Builder collects rates and seals them into a Table
type Builder struct {
	year     int
	currency string

	employerRate decimal.Decimal
	employeeRate decimal.Decimal
	salarySet    bool

	dividendSocialRate  decimal.Decimal
	dividendFlatTaxRate decimal.Decimal
	dividendSet         bool

	corporateBrackets []Bracket
	incomeBrackets    []Bracket

	vatRates   map[string]decimal.Decimal
	vatOrder   []string
	defaultVAT []string

	smicHourly            decimal.Decimal
	passAnnual            decimal.Decimal
	professionalDeduction decimal.Decimal
}

// NewBuilder creates a builder for a tax year
func NewBuilder(year int) *Builder {
	return &Builder{
		year:                  year,
		currency:              DefaultCurrency,
		vatRates:              make(map[string]decimal.Decimal),
		professionalDeduction: DefaultProfessionalDeduction,
	}
}

// WithCurrency sets the currency code
func (b *Builder) WithCurrency(currency string) *Builder {
	b.currency = currency
	return b
}

// SalaryCharges sets the employer and employee social-charge rates
func (b *Builder) SalaryCharges(employer, employee decimal.Decimal) *Builder {
	b.employerRate = employer
	b.employeeRate = employee
	b.salarySet = true
	return b
}

// DividendCharges sets the social and flat-tax rates on dividends
func (b *Builder) DividendCharges(social, flatTax decimal.Decimal) *Builder {
	b.dividendSocialRate = social
	b.dividendFlatTaxRate = flatTax
	b.dividendSet = true
	return b
}

// CorporateBrackets appends IS brackets in ascending order
func (b *Builder) CorporateBrackets(brackets ...Bracket) *Builder {
	b.corporateBrackets = append(b.corporateBrackets, brackets...)
	return b
}

// IncomeBrackets appends IR brackets (per part) in ascending order
func (b *Builder) IncomeBrackets(brackets ...Bracket) *Builder {
	b.incomeBrackets = append(b.incomeBrackets, brackets...)
	return b
}

// VATPreset adds a named VAT rate. Exactly one preset must be the default.
func (b *Builder) VATPreset(name string, rate decimal.Decimal, isDefault bool) *Builder {
	if _, exists := b.vatRates[name]; !exists {
		b.vatOrder = append(b.vatOrder, name)
	}
	b.vatRates[name] = rate
	if isDefault {
		b.defaultVAT = append(b.defaultVAT, name)
	}
	return b
}

// SMIC sets the hourly minimum wage
func (b *Builder) SMIC(hourly decimal.Decimal) *Builder {
	b.smicHourly = hourly
	return b
}

// PASS sets the annual social-security ceiling
func (b *Builder) PASS(annual decimal.Decimal) *Builder {
	b.passAnnual = annual
	return b
}

// ProfessionalDeduction overrides the flat expense deduction on salary
func (b *Builder) ProfessionalDeduction(rate decimal.Decimal) *Builder {
	b.professionalDeduction = rate
	return b
}

// Build validates the collected rates and returns a sealed Table.
// Every problem is reported at once as a single CONFIG_ERROR.
func (b *Builder) Build() (*Table, error) {
	var problems []string
	addf := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if b.year <= 0 {
		addf("year must be positive, got %d", b.year)
	}
	if strings.TrimSpace(b.currency) == "" {
		addf("currency is required")
	}

	if !b.salarySet {
		addf("salary_charges are required")
	} else {
		checkRate(addf, "salary_charges.employer", b.employerRate)
		checkRate(addf, "salary_charges.employee", b.employeeRate)
	}

	if !b.dividendSet {
		addf("dividend_charges are required")
	} else {
		checkRate(addf, "dividend_charges.social", b.dividendSocialRate)
		checkRate(addf, "dividend_charges.flat_tax", b.dividendFlatTaxRate)
	}

	checkBrackets(addf, "corporate_tax", b.corporateBrackets)
	checkBrackets(addf, "income_tax", b.incomeBrackets)

	if len(b.vatRates) == 0 {
		addf("at least one vat_rate is required")
	}
	for _, name := range b.vatOrder {
		rate := b.vatRates[name]
		if rate.LessThanOrEqual(decimal.Zero) || rate.GreaterThan(decimal.NewFromInt(1)) {
			addf("vat_rate %q must be in (0, 1], got %s", name, rate)
		}
	}
	switch len(b.defaultVAT) {
	case 1:
	case 0:
		if len(b.vatRates) > 0 {
			addf("exactly one vat_rate must be marked default, got none")
		}
	default:
		addf("exactly one vat_rate must be marked default, got %s", strings.Join(b.defaultVAT, ", "))
	}

	if !b.smicHourly.IsPositive() {
		addf("constants.smic_hourly must be positive, got %s", b.smicHourly)
	}
	if !b.passAnnual.IsPositive() {
		addf("constants.pass_annual must be positive, got %s", b.passAnnual)
	}
	checkRate(addf, "constants.professional_deduction", b.professionalDeduction)

	if len(problems) > 0 {
		return nil, errors.Newf(errors.TypeConfig,
			"invalid rate table for %d: %s", b.year, strings.Join(problems, "; "))
	}

	vat := make(map[string]decimal.Decimal, len(b.vatRates))
	for name, rate := range b.vatRates {
		vat[name] = rate
	}

	t := &Table{
		year:                  b.year,
		currency:              b.currency,
		employerRate:          b.employerRate,
		employeeRate:          b.employeeRate,
		dividendSocialRate:    b.dividendSocialRate,
		dividendFlatTaxRate:   b.dividendFlatTaxRate,
		corporateBrackets:     copyBrackets(b.corporateBrackets),
		incomeBrackets:        copyBrackets(b.incomeBrackets),
		vatRates:              vat,
		defaultVAT:            b.defaultVAT[0],
		smicHourly:            b.smicHourly,
		passAnnual:            b.passAnnual,
		professionalDeduction: b.professionalDeduction,
	}
	t.hash = determinism.ComputeHash(t.canonicalBytes())
	return t, nil
}

// MustBuild is Build for tables known to be valid
func (b *Builder) MustBuild() *Table {
	t, err := b.Build()
	if err != nil {
		panic(err)
	}
	return t
}

func checkRate(addf func(string, ...interface{}), name string, rate decimal.Decimal) {
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		addf("%s must be in [0, 1], got %s", name, rate)
	}
}

// checkBrackets enforces a non-empty, strictly ascending scale that ends unbounded
func checkBrackets(addf func(string, ...interface{}), name string, brackets []Bracket) {
	if len(brackets) == 0 {
		addf("%s needs at least one bracket", name)
		return
	}

	previous := decimal.Zero
	for i, br := range brackets {
		checkRate(addf, fmt.Sprintf("%s bracket %d rate", name, i+1), br.Rate)

		last := i == len(brackets)-1
		if br.Upper == nil {
			if !last {
				addf("%s bracket %d is unbounded but is not the last bracket", name, i+1)
			}
			continue
		}
		if last {
			addf("%s last bracket must be unbounded", name)
		}
		if !br.Upper.GreaterThan(previous) {
			addf("%s bracket %d upper bound %s must exceed %s", name, i+1, br.Upper, previous)
		}
		previous = *br.Upper
	}
}
