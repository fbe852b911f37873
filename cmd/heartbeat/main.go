// Package main is the entry point for the heartbeat CLI.
//
// The same binary runs the server and acts as a client for scripts and
// health probes.
//
// Usage:
//
//	heartbeat serve -c config.yaml       # Start the server
//	heartbeat validate -c config.yaml    # Validate configuration
//	heartbeat ping billing --expiry PT2M # Report a heartbeat
//	heartbeat check billing              # Exit 0 only if billing is alive
//	heartbeat version                    # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "heartbeat",
	Short: "A small liveness tracker for applications",
	Long: `Heartbeat records periodic "I am alive" reports from applications and
answers whether each one is still alive.

An application is alive while its latest report is not "offline" and its
expiry period (ISO-8601, e.g. PT5M) has not elapsed.

Quick start:
  1. Run: heartbeat serve
  2. From an application: curl http://localhost:5000/update/billing
  3. Check it: heartbeat check billing

Example config:
  port: 5000
  defaults:
    expiry: PT5M
  storage:
    type: file
    path: heartbeat_data_store.json`,
	// No Run/RunE means this just shows help when called without subcommands
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this heartbeat binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "heartbeat %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	// Register subcommands with root
	rootCmd.AddCommand(versionCmd)
}
