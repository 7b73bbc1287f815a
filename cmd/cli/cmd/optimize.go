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

var optFlags struct {
	target, revenue, expenses decimal.Decimal
	minSalary, maxSalary      decimal.Decimal
	year                      int
	format                    string
}

var (
	minSalaryFlag = newDecimalValue(&optFlags.minSalary)
	maxSalaryFlag = newDecimalValue(&optFlags.maxSalary)
)

// optimizeCmd represents the optimize command
var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Find the salary/dividend split reaching a target net income",
	Long: `Search the salary range for the split that reaches a target net income
with the lowest total tax burden, then compare it with an all-salary and an
all-dividends strategy.

The salary range defaults to [SMIC annual, 80% of revenue].

Examples:
  sasu-tax optimize --target 50000 --revenue 120000 --expenses 30000
  sasu-tax optimize --target 60000 --revenue 200000 --min-salary 30000 --max-salary 80000`,
	Args: cobra.NoArgs,
	RunE: runOptimize,
}

func init() {
	f := optimizeCmd.Flags()
	f.Var(newDecimalValue(&optFlags.target), "target", "target net income after all taxes")
	f.Var(newDecimalValue(&optFlags.revenue), "revenue", "annual revenue excluding VAT")
	f.Var(newDecimalValue(&optFlags.expenses), "expenses", "annual expenses excluding VAT")
	f.Var(minSalaryFlag, "min-salary", "lower bound of the salary search")
	f.Var(maxSalaryFlag, "max-salary", "upper bound of the salary search")
	f.IntVar(&optFlags.year, "year", 0, "tax year (default: rates.year from config)")
	f.StringVarP(&optFlags.format, "format", "f", "", "output format (table, json)")

	_ = optimizeCmd.MarkFlagRequired("target")
	_ = optimizeCmd.MarkFlagRequired("revenue")
}

func runOptimize(cmd *cobra.Command, args []string) error {
	formatter, err := output.New(formatFlag(optFlags.format), noColor)
	if err != nil {
		return err
	}

	table, err := tableFor(optFlags.year)
	if err != nil {
		return err
	}

	opt := optimizer.New(engine.New(table), optimizer.WithLogger(logging.Named("optimizer")))
	cmp, err := opt.CompareStrategies(optFlags.target, optFlags.revenue, optFlags.expenses, types.SalaryConstraints{
		MinSalary: minSalaryFlag.ptr(),
		MaxSalary: maxSalaryFlag.ptr(),
	})
	if err != nil {
		return err
	}

	return formatter.RenderComparison(cmd.OutOrStdout(), cmp)
}
