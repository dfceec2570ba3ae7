// Package main is the lookscan CLI entrypoint.
package main

import (
	"os"

	"github.com/leapstack-labs/lookscan/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
