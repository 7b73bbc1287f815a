// Package cmd provides the CLI commands for sasu-tax.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sasu-tax/core/rates"
	"sasu-tax/internal/config"
	"sasu-tax/internal/logging"
)

// Version is stamped at build time with -ldflags "-X sasu-tax/cmd/cli/cmd.Version=..."
var Version = "0.1.0"

var (
	cfgFile  string
	verbose  bool
	ratesDir string
	noColor  bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "sasu-tax",
	Short: "Compute and optimize French SASU taxation",
	Long: `sasu-tax computes the taxes of a French SASU and its president
(social charges, corporate tax, dividend flat tax, income tax and VAT)
and finds the salary/dividend split that reaches a target net income.

Examples:
  sasu-tax calculate --salary 40000 --revenue 150000 --expenses 50000
  sasu-tax optimize --target 50000 --revenue 120000 --expenses 30000
  sasu-tax rates show 2025 --format json`,
	SilenceUsage: true,
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (json, yaml or toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&ratesDir, "rates-dir", "", "directory of <year>.hcl rate files overriding the built-in tables")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(calculateCmd)
	rootCmd.AddCommand(optimizeCmd)
	rootCmd.AddCommand(ratesCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	config.Set(cfg)

	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
	}
}

// loadRegistry returns the built-in tables overridden by --rates-dir or rates.dir
func loadRegistry() (*rates.Registry, error) {
	registry, err := rates.Builtin()
	if err != nil {
		return nil, err
	}

	dir := ratesDir
	if dir == "" {
		dir = config.Get().Rates.Dir
	}
	if dir != "" {
		years, err := registry.LoadDir(dir)
		if err != nil {
			return nil, err
		}
		logging.Named("rates").Debug(fmt.Sprintf("loaded %d rate files from %s", len(years), dir))
	}
	return registry, nil
}

// tableFor resolves a --year flag; zero means the configured year
func tableFor(year int) (*rates.Table, error) {
	registry, err := loadRegistry()
	if err != nil {
		return nil, err
	}
	if year == 0 {
		year = config.Get().Rates.Year
	}
	return registry.Get(year)
}

// formatFlag falls back to output.default_format
func formatFlag(value string) string {
	if value != "" {
		return value
	}
	return config.Get().Output.DefaultFormat
}

// versionCmd prints version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := loadRegistry()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "sasu-tax version %s (tax years %v)\n", Version, registry.Years())
		return nil
	},
}
