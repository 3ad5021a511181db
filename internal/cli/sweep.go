package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/event-fulfillment/internal/service"
)

// NewSweepCommand creates the sweep command.
func NewSweepCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Expire lapsed stock holds once and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, log := rootOpts.Config, rootOpts.Log

			be, err := openBackend(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer be.close()

			dispatcher, closeNotifier, err := newNotifier(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer closeNotifier()
			dispatchCtx, stopDispatch := context.WithCancel(ctx)
			dispatchDone := make(chan error, 1)
			go func() { dispatchDone <- dispatcher.Run(dispatchCtx) }()

			regs := service.NewRegistrationService(be.events, be.regs, dispatcher, cfg.HoldTimeout, log)
			n, err := regs.ExpireHolds(ctx)
			stopDispatch()
			<-dispatchDone
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Expired %d hold(s)\n", n)
			return nil
		},
	}
}
