// Package cli defines the fulfillment command tree.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/event-fulfillment/internal/config"
	"github.com/Shivanand-hulikatti/event-fulfillment/internal/logger"
)

// RootOptions carries state shared by every subcommand. It is filled in
// by the root PersistentPreRunE before a subcommand runs.
type RootOptions struct {
	Config *config.Config
	Log    *zap.Logger
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "fulfillment",
		Short:         "Event registration and fulfillment engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log, err := logger.Init(cfg.Environment)
			if err != nil {
				return err
			}
			opts.Config, opts.Log = cfg, log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.Log != nil {
				_ = opts.Log.Sync()
			}
		},
	}

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSweepCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))

	return cmd
}
