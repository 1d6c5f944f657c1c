// The complisense binary is the command-line client for the CompliSense
// platform: assessments, what-if simulations, suggestion scans, decision
// search, and report retrieval against a running API server.
package main

import (
	"fmt"
	"os"

	"github.com/turtacn/CompliSense/internal/interfaces/cli"
)

// Build-time variables injected via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func init() {
	cli.Version = version
	cli.GitCommit = commit
	cli.BuildDate = buildDate
}

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
