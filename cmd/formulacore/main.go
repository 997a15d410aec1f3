// Package main provides the CLI entry point for formulacore.
package main

import (
	"os"

	"github.com/leapstack-labs/formulacore/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
