// Package main provides the entry point for the serpq operator CLI.
package main

import (
	"os"

	"github.com/kailas-cloud/serp/cmd/serpq/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
