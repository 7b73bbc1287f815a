// Package main is the entry point for the sasu-tax CLI.
package main

import (
	"os"

	"sasu-tax/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
