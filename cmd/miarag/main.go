// Package main provides the entry point for the miarag CLI.
package main

import (
	"os"

	"github.com/artsmia/miarag/cmd/miarag/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
