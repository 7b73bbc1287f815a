// Package ratestest provides rate tables for tests in other packages.
package ratestest

import (
	"github.com/shopspring/decimal"

	"sasu-tax/core/rates"
)

// D parses a decimal literal and panics on malformed input
func D(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Builder2024 returns a builder preloaded with the 2024 French rates
func Builder2024() *rates.Builder {
	return rates.NewBuilder(2024).
		SalaryCharges(D("0.42"), D("0.22")).
		DividendCharges(D("0.172"), D("0.128")).
		CorporateBrackets(
			rates.UpTo(D("42500"), D("0.15")),
			rates.Above(D("0.25")),
		).
		IncomeBrackets(
			rates.UpTo(D("11294"), D("0")),
			rates.UpTo(D("28797"), D("0.11")),
			rates.UpTo(D("82341"), D("0.30")),
			rates.UpTo(D("177106"), D("0.41")),
			rates.Above(D("0.45")),
		).
		VATPreset("standard", D("0.20"), true).
		VATPreset("intermediate", D("0.10"), false).
		VATPreset("reduced", D("0.055"), false).
		VATPreset("super_reduced", D("0.021"), false).
		SMIC(D("11.52")).
		PASS(D("43992"))
}

// France2024 returns the sealed 2024 table
func France2024() *rates.Table {
	return Builder2024().MustBuild()
}
