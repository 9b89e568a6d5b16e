package cli

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"mail-expense-intake/internal/app"
)

func newServeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the review API and the scheduled intake",
		Long: `Serve starts the HTTP review surface and, when scheduler.enabled is set,
polls the mailbox every scheduler.interval_minutes. It stops gracefully on
SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd, prometheus.DefaultRegisterer, func(ctx context.Context, a *app.App) error {
				logrus.Info("Starting mail expense intake service")
				return a.Serve(ctx)
			})
		},
	}
}

func newRunOnceCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run-once",
		Short: "Process the mailbox once and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd, prometheus.NewRegistry(), func(ctx context.Context, a *app.App) error {
				stats, err := a.Scheduler.RunOnce(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seen=%d skipped=%d completed=%d failed=%d staged=%d\n",
					stats.Seen, stats.Skipped, stats.Completed, stats.Failed, stats.Staged)
				return nil
			})
		},
	}
}
