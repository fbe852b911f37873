package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/heartbeat"
)

// checkCmd asks the server whether an application is alive.
var checkCmd = &cobra.Command{
	Use:   "check APP",
	Short: "Check whether an application is alive",
	Long: `Ask a running heartbeat server whether APP is alive.

Exit codes:
  0 - APP is alive
  1 - APP is offline, expired, has never reported, or the server could not be reached

Example:
  heartbeat check billing
  heartbeat check billing --server http://heartbeat:5000`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().String("server", heartbeat.DefaultServerURL, "heartbeat server URL")
}

func runCheck(cmd *cobra.Command, args []string) error {
	app := args[0]

	client, err := newClient(cmd)
	if err != nil {
		return err
	}
	defer client.Close()

	result, err := client.Check(cmd.Context(), app)
	if err != nil {
		return fmt.Errorf("check failed: %w", err)
	}

	switch {
	case result.Available:
		fmt.Fprintln(cmd.OutOrStdout(), result.Message)
		return nil
	case !result.Found:
		return fmt.Errorf("%s has never reported", app)
	default:
		return errors.New(result.Message)
	}
}
