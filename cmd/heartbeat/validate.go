package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/heartbeat/config"
)

// validateCmd validates a config file without starting the server.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a heartbeat configuration file without starting the server.

This command parses the YAML, expands environment variables, and validates
all fields. Storage is not contacted. It's useful for CI/CD pipelines or
pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  heartbeat validate -c config.yaml
  heartbeat validate --config /etc/heartbeat/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Port:           %d\n", cfg.Port)
	fmt.Fprintf(out, "  Log level:      %s\n", cfg.LogLevel)
	fmt.Fprintf(out, "  Default status: %s\n", cfg.Defaults.Status)
	fmt.Fprintf(out, "  Default expiry: %s\n", cfg.Defaults.Expiry)
	fmt.Fprintf(out, "  Storage:        %s\n", cfg.Storage.Describe())

	return nil
}
