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

	"github.com/hgl-pong/baklavajs-sub000"
	"github.com/hgl-pong/baklavajs-sub000/internal/presentation/tui"
	httpAdapter "github.com/hgl-pong/baklavajs-sub000/pkg/adapters/http"
	"github.com/hgl-pong/baklavajs-sub000/pkg/observability"
	"github.com/hgl-pong/baklavajs-sub000/pkg/persistence/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Starts nodeflow as an HTTP service exposing stored graphs, runs, Mermaid diagrams,
Server-Sent Events and Prometheus metrics. The API is described at /openapi.yaml.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") {
			cfg.Server.Addr, _ = cmd.Flags().GetString("addr")
		}
		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}

		metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
		streams := httpAdapter.NewStreamManager(logger)
		hooks := observability.Chain(
			observability.LogHooks(logger),
			metrics.Hooks(),
			streams.Hooks(),
		)

		storeMW := []middleware.Middleware{middleware.NewInstrumentMiddleware(metrics, logger)}
		host, err := newHost(cfg, logger, storeMW, nodeflow.WithLifecycleHooks(hooks))
		if err != nil {
			return err
		}

		handler, err := httpAdapter.NewHandler(host,
			httpAdapter.WithStreams(streams),
			httpAdapter.WithRateLimit(cfg.Server.RateLimit, cfg.Server.Burst),
			httpAdapter.WithGatherer(prometheus.DefaultGatherer),
			httpAdapter.WithLogger(logger),
		)
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		tui.PrintBanner(os.Stderr)
		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			printSystemMessage("Starting nodeflow server on %s (store: %s)", srv.Addr, cfg.Store.Backend)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
				if err := srv.Close(); err != nil {
					return fmt.Errorf("error killing server: %w", err)
				}
			}
			printSystemMessage("nodeflow server stopped gracefully")
			return nil
		})
		return g.Wait()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Address to listen on (default from config, :8080)")
}
