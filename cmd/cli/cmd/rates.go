package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"sasu-tax/core/output"
	"sasu-tax/core/rates"
	"sasu-tax/core/ui"
)

var ratesFormat string

// ratesCmd groups rate-table commands
var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Inspect and validate tax-year rate tables",
}

var ratesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the loaded tax years",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := loadRegistry()
		if err != nil {
			return err
		}

		t := ui.NewWriter(cmd.OutOrStdout(), noColor).NewTable("Year", "ID", "Currency")
		for _, table := range registry.Tables() {
			t.AddRow(strconv.Itoa(table.Year()), table.ID(), table.Currency())
		}
		t.Render()
		return nil
	},
}

var ratesShowCmd = &cobra.Command{
	Use:   "show <year>",
	Short: "Show one rate table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		year, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid year %q", args[0])
		}

		formatter, err := output.New(formatFlag(ratesFormat), noColor)
		if err != nil {
			return err
		}
		table, err := tableFor(year)
		if err != nil {
			return err
		}
		return formatter.RenderRates(cmd.OutOrStdout(), table)
	},
}

var ratesValidateCmd = &cobra.Command{
	Use:   "validate <file.hcl>...",
	Short: "Parse and validate rate files without loading them",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := ui.NewWriter(cmd.OutOrStdout(), noColor)

		failed := 0
		for _, path := range args {
			table, err := rates.LoadFile(path)
			if err != nil {
				w.Warning("%s: %v", path, err)
				failed++
				continue
			}
			w.Success("%s: tax year %d, id %s", path, table.Year(), table.ID())
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d rate files are invalid", failed, len(args))
		}
		return nil
	},
}

func init() {
	ratesShowCmd.Flags().StringVarP(&ratesFormat, "format", "f", "", "output format (table, json)")

	ratesCmd.AddCommand(ratesListCmd)
	ratesCmd.AddCommand(ratesShowCmd)
	ratesCmd.AddCommand(ratesValidateCmd)
}
