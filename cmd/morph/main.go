// Package main provides the morph CLI entry point.
package main

import (
	"os"

	"github.com/leapstack-labs/morph/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
