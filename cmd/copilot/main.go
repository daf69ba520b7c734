// Package main provides the entry point for the copilot CLI.
package main

import (
	"fmt"
	"os"

	"github.com/opencode-ai/copilot/cmd/copilot/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
