package cmd

import (
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"sasu-tax/core/engine"
	"sasu-tax/core/optimizer"
	"sasu-tax/core/output"
	"sasu-tax/core/types"
	"sasu-tax/internal/logging"
)

var calcFlags struct {
	salary, dividends, revenue, expenses decimal.Decimal
	vatPreset                            string
	year                                 int
	format                               string
	noRecommendations                    bool
}

// calculateCmd represents the calculate command
var calculateCmd = &cobra.Command{
	Use:   "calculate",
	Short: "Compute the complete taxation of one remuneration scenario",
	Long: `Compute salary charges, corporate tax, dividend taxation, income tax
and VAT for one salary/dividend scenario.

Requested dividends above the after-tax profit are capped.

Examples:
  sasu-tax calculate --salary 40000 --revenue 150000 --expenses 50000
  sasu-tax calculate --salary 30000 --dividends 20000 --revenue 120000 --vat-preset reduced
  sasu-tax calculate --salary 40000 --revenue 150000 --year 2025 --format json`,
	Args: cobra.NoArgs,
	RunE: runCalculate,
}

func init() {
	f := calculateCmd.Flags()
	f.Var(newDecimalValue(&calcFlags.salary), "salary", "annual gross salary")
	f.Var(newDecimalValue(&calcFlags.dividends), "dividends", "requested dividends")
	f.Var(newDecimalValue(&calcFlags.revenue), "revenue", "annual revenue excluding VAT")
	f.Var(newDecimalValue(&calcFlags.expenses), "expenses", "annual expenses excluding VAT")
	f.StringVar(&calcFlags.vatPreset, "vat-preset", "", "VAT preset (default: the table's default preset)")
	f.IntVar(&calcFlags.year, "year", 0, "tax year (default: rates.year from config)")
	f.StringVarP(&calcFlags.format, "format", "f", "", "output format (table, json)")
	f.BoolVar(&calcFlags.noRecommendations, "no-recommendations", false, "omit recommendations")
}

func runCalculate(cmd *cobra.Command, args []string) error {
	formatter, err := output.New(formatFlag(calcFlags.format), noColor)
	if err != nil {
		return err
	}

	table, err := tableFor(calcFlags.year)
	if err != nil {
		return err
	}
	eng := engine.New(table)

	vatRate, err := eng.VATRate(calcFlags.vatPreset)
	if err != nil {
		return err
	}

	result, err := eng.CompleteTaxation(types.RemunerationInput{
		GrossSalary: calcFlags.salary,
		Dividends:   calcFlags.dividends,
		Revenue:     calcFlags.revenue,
		Expenses:    calcFlags.expenses,
		VATRate:     vatRate,
	})
	if err != nil {
		return err
	}
	logging.Debug("taxation computed")

	var recommendations []string
	if !calcFlags.noRecommendations {
		recommendations = optimizer.New(eng).Recommendations(result)
	}

	return formatter.RenderTaxation(cmd.OutOrStdout(), result, recommendations)
}
