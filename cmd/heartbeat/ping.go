package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/heartbeat"
	"github.com/jpalmerr/heartbeat/internal/status"
)

// pingCmd reports one heartbeat.
var pingCmd = &cobra.Command{
	Use:   "ping APP",
	Short: "Report a heartbeat for an application",
	Long: `Report a heartbeat for APP to a running heartbeat server.

Without --status or --expiry the server keeps the application's previous
values. Use --status offline on planned shutdown so checks fail at once.

Example:
  heartbeat ping billing
  heartbeat ping billing --expiry PT10M
  heartbeat ping billing --status offline --server http://heartbeat:5000`,
	Args: cobra.ExactArgs(1),
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)

	pingCmd.Flags().String("server", heartbeat.DefaultServerURL, "heartbeat server URL")
	pingCmd.Flags().String("status", "", "status to report")
	pingCmd.Flags().String("expiry", "", "ISO-8601 expiry period, e.g. PT5M")
}

func runPing(cmd *cobra.Command, args []string) error {
	app := args[0]

	var opts []heartbeat.UpdateOption
	if cmd.Flags().Changed("status") {
		s, _ := cmd.Flags().GetString("status")
		opts = append(opts, heartbeat.WithStatus(s))
	}
	if cmd.Flags().Changed("expiry") {
		raw, _ := cmd.Flags().GetString("expiry")
		expiry, err := status.ParseExpiry(raw)
		if err != nil {
			return err
		}
		opts = append(opts, heartbeat.WithExpiry(expiry))
	}

	client, err := newClient(cmd)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Report(cmd.Context(), app, opts...); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "heartbeat recorded for %q\n", app)
	return nil
}

// newClient builds a client for the --server flag.
func newClient(cmd *cobra.Command) (*heartbeat.Client, error) {
	serverURL, _ := cmd.Flags().GetString("server")
	return heartbeat.NewClient(
		heartbeat.WithServerURL(serverURL),
		heartbeat.WithClientLogger(newLogger(cmd.ErrOrStderr(), slog.LevelWarn)),
	)
}
