package optimizer

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"sasu-tax/core/types"
)

// Advisory thresholds
var (
	highSalaryPASSMultiple = decimal.NewFromInt(4)
	highEffectiveRate      = decimal.RequireFromString("0.45")
	highVATShare           = decimal.RequireFromString("0.15")
	undistributedMultiple  = decimal.NewFromInt(2)
)

// Recommendations derives advisory notes from a calculation.
// Checks are independent and always appended in the same order.
// Salary and dividends are the requested amounts, before the dividend cap.
func (o *Optimizer) Recommendations(result *types.TaxationResult) []string {
	table := o.engine.Table()
	smic := table.SMICAnnual()
	pass := table.PASSAnnual()

	salary := result.Input.GrossSalary
	dividends := result.Input.Dividends

	recommendations := []string{}

	if salary.LessThan(smic) {
		recommendations = append(recommendations, fmt.Sprintf(
			"Le salaire est inférieur au SMIC annuel (%s). "+
				"Envisagez de l'augmenter pour valider des trimestres de retraite.", FormatEuros(smic)))
	} else if salary.GreaterThan(pass.Mul(highSalaryPASSMultiple)) {
		recommendations = append(recommendations,
			"Le salaire dépasse 4 PASS. Au-delà, les cotisations retraite ont un rendement décroissant.")
	}

	if dividends.IsPositive() && salary.LessThan(pass) {
		recommendations = append(recommendations,
			"Augmenter le salaire jusqu'à 1 PASS pourrait optimiser les cotisations retraite.")
	}

	if result.Summary.EffectiveTaxRate.GreaterThan(highEffectiveRate) {
		recommendations = append(recommendations,
			"Taux d'imposition effectif élevé (>45%). Explorez les dispositifs de défiscalisation.")
	}

	if result.VAT.VATToPay.GreaterThan(result.Input.Revenue.Mul(highVATShare)) {
		recommendations = append(recommendations,
			"TVA à payer élevée. Vérifiez que toutes les dépenses déductibles sont comptabilisées.")
	}

	if result.Corporate.AvailableForDividends.GreaterThan(dividends.Mul(undistributedMultiple)) {
		recommendations = append(recommendations,
			"Profits importants non distribués. Envisagez l'investissement ou la distribution.")
	}

	return recommendations
}

// FormatEuros renders a whole-euro amount with French digit grouping, e.g. "20 966 €"
func FormatEuros(amount decimal.Decimal) string {
	digits := amount.Round(0).Abs().String()

	var b strings.Builder
	if amount.Round(0).IsNegative() {
		b.WriteByte('-')
	}
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	b.WriteString(" €")
	return b.String()
}
