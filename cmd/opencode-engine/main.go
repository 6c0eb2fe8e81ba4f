// Package main provides the entry point for the opencode-engine CLI.
package main

import (
	"fmt"
	"os"

	"github.com/opencode-ai/opencode-engine/cmd/opencode-engine/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
