package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Shivanand-hulikatti/event-fulfillment/internal/handler"
	"github.com/Shivanand-hulikatti/event-fulfillment/internal/service"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the hold sweeper",
		Long: `Run the HTTP API, the background hold sweeper and the notification
dispatcher until SIGINT or SIGTERM.

Example:
  STORE_DRIVER=sqlite JWT_SIGNING_KEY=dev fulfillment serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, rootOpts)
		},
	}
}

func serve(ctx context.Context, opts *RootOptions) error {
	cfg, log := opts.Config, opts.Log
	if cfg.JWTSigningKey == "" {
		return errors.New("JWT_SIGNING_KEY is required to serve")
	}

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

	events := service.NewEventService(be.events)
	regs := service.NewRegistrationService(be.events, be.regs, dispatcher, cfg.HoldTimeout, log)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      handler.NewRouter(events, regs, cfg.JWTSigningKey, log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// The dispatcher outlives the server so messages from in-flight
	// requests are still delivered.
	dispatchCtx, stopDispatch := context.WithCancel(context.WithoutCancel(ctx))
	dispatchDone := make(chan error, 1)
	go func() { dispatchDone <- dispatcher.Run(dispatchCtx) }()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return regs.RunHoldSweeper(gctx, cfg.SweepInterval)
	})

	err = g.Wait()
	stopDispatch()
	if derr := <-dispatchDone; derr != nil {
		log.Warn("notification dispatcher stopped", zap.Error(derr))
	}
	log.Info("server stopped")
	return err
}
