// Package cli provides the command-line interface for the intake service.
package cli

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"mail-expense-intake/internal/app"
	"mail-expense-intake/internal/config"
)

// Version is set at build time.
var Version = "dev"

// options are the global flags shared by every command
type options struct {
	configPath string
	logLevel   string
}

// NewRootCmd builds the expense-intake command tree
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "expense-intake",
		Short: "Stage emailed receipts and invoices for review",
		Long: `expense-intake reads a shared mailbox, extracts expense fields from
PDF and image attachments, suggests the job each document belongs to and
queues it for human review. Approved documents are committed into the job's
cost ledger.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default ./config.yaml or ./config/config.yaml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log.level")

	root.AddCommand(
		newServeCmd(opts),
		newRunOnceCmd(opts),
		newPendingCmd(opts),
		newDecideCmd(opts),
		newJobsCmd(opts),
		newTokenCmd(),
	)
	return root
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

func (o *options) load() (*config.Config, error) {
	cfg, err := config.LoadConfigFile(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	app.SetupLogging(cfg.Log)
	return cfg, nil
}

type builder func(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) (*app.App, error)

// withApp builds the full application for one command and closes it afterwards
func (o *options) withApp(cmd *cobra.Command, reg prometheus.Registerer, fn func(ctx context.Context, a *app.App) error) error {
	return o.run(cmd, app.New, reg, fn)
}

// withStore is withApp for commands that only touch the review queue and the
// job directory. It needs no mailbox, extraction or notification settings.
func (o *options) withStore(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	return o.run(cmd, app.NewStore, prometheus.NewRegistry(), fn)
}

func (o *options) run(cmd *cobra.Command, build builder, reg prometheus.Registerer, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := o.load()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := build(ctx, cfg, reg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logrus.Errorf("Failed to close resources: %v", err)
		}
	}()

	return fn(ctx, a)
}
