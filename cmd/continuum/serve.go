package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/aretw0/continuum"
	"github.com/aretw0/continuum/internal/metrics"
	"github.com/aretw0/continuum/internal/platform"
	"github.com/aretw0/continuum/pkg/api"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(c *cli) *cobra.Command {
	var (
		addr  string
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = c.cfg.Server.Addr
			}
			if cmd.Flags().Changed("watch") {
				c.cfg.Documents.Watch = watch
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			engine, err := c.engine(platform.WithObserver(metrics.New(prometheus.DefaultRegisterer)))
			if err != nil {
				return err
			}

			if c.cfg.Documents.Watch {
				switch err := engine.Watch(ctx); {
				case errors.Is(err, platform.ErrWatchUnsupported):
					c.logger.Warn("watch requested but the document store cannot report changes")
				case err != nil:
					return err
				default:
					c.logger.Info("watching documents for registry changes")
				}
			}

			app := api.New(engine,
				api.WithLogger(c.logger),
				api.WithRegisterer(prometheus.DefaultRegisterer),
				api.WithVersion(continuum.Version),
			)

			errCh := make(chan error, 1)
			go func() {
				c.logger.Info("listening", "addr", addr)
				errCh <- app.Listen(addr)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			c.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return app.ShutdownWithContext(shutdownCtx)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (overrides config)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Invalidate the registry when documents change")
	return cmd
}
