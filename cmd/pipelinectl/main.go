// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Command pipelinectl runs pipeline maintenance against the database
// directly: sweeps, purges, stats, applicant listings and pipeline imports.
package main

import (
	"errors"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		os.Stderr.WriteString("pipelinectl: failed to load .env: " + err.Error() + "\n")
	}
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
