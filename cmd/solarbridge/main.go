// Package main provides the entry point for the solarbridge CLI.
package main

import (
	"fmt"
	"os"

	"github.com/solargraph-ai/solarbridge/cmd/solarbridge/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
