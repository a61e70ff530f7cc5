package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/roboflow"
	"github.com/aretw0/roboflow/internal/cli"
	httpAdapter "github.com/aretw0/roboflow/pkg/adapters/http"
	"github.com/aretw0/roboflow/pkg/domain"
	"github.com/aretw0/roboflow/pkg/observability"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Exposes the project over a JSON API: list and validate scenarios, start runs,
inspect saved reports, follow run events over SSE and scrape Prometheus metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("addr") {
			cfg.HTTP.Addr, _ = cmd.Flags().GetString("addr")
		}

		logger, err := cli.NewLogger(cfg)
		if err != nil {
			return err
		}

		streams := httpAdapter.NewStreamManager()
		stack, err := cli.NewStack(cfg, logger, cli.StackOptions{
			Hooks:   []domain.LifecycleHooks{streams.Hooks()},
			Metrics: cfg.HTTP.Metrics,
		})
		if err != nil {
			return err
		}
		defer stack.Close()

		opts := []httpAdapter.Option{
			httpAdapter.WithStreams(streams),
			httpAdapter.WithVersion(roboflow.Version),
			httpAdapter.WithLogger(logger),
		}
		if stack.Backend.Store != nil {
			opts = append(opts, httpAdapter.WithRunStore(stack.Backend.Store))
		}
		if stack.Registry != nil {
			opts = append(opts, httpAdapter.WithMetrics(observability.Handler(stack.Registry)))
		}

		srv := &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           httpAdapter.NewHandler(stack.Engine, opts...),
			ReadHeaderTimeout: 10 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("starting roboflow server", "addr", srv.Addr, "project", cfg.Project, "device", stack.Engine.DeviceID())
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(shutdown)

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			logger.Info("shutting down", "signal", sig.String())

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("graceful shutdown did not complete", "timeout", 5*time.Second, "error", err)
				if err := srv.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("error killing server: %w", err)
				}
			}
			logger.Info("roboflow server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Address to listen on (default from config, :8080)")
}
