package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/event-fulfillment/internal/service"
)

// MigrateOptions holds flags for the migrate command.
type MigrateOptions struct {
	*RootOptions
	BackfillStock bool
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MigrateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations",
		Long: `Apply pending schema migrations to the configured store.

With --backfill-stock, legacy merchandise variants without an explicit
stock are given one by splitting the event's stock quantity.

Example:
  fulfillment migrate --backfill-stock`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			be, err := openBackend(ctx, opts.Config, opts.Log)
			if err != nil {
				return err
			}
			defer be.close()
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Migrations applied")

			if !opts.BackfillStock {
				return nil
			}
			n, err := service.NewEventService(be.events).BackfillStock(ctx)
			if err != nil {
				return err
			}
			opts.Log.Info("stock backfilled", zap.Int("variants", n))
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Backfilled stock for %d variant(s)\n", n)
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.BackfillStock, "backfill-stock", false, "materialize stock for legacy variants")

	return cmd
}
