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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"go-chi-calculator/internal/calculator"
	"go-chi-calculator/internal/config"
	"go-chi-calculator/internal/expr"
	"go-chi-calculator/internal/observability"
	"go-chi-calculator/internal/server"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(opts *options) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the calculator HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if addr != "" {
				cfg.Addr = addr
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

func serve(ctx context.Context, cfg config.Config) error {
	defer observability.SyncLogger()

	telemetryShutdown, err := initTelemetry(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(context.Background()); err != nil {
			observability.Logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	a, err := openApp(cfg, cfg.Debounce)
	if err != nil {
		return err
	}

	srv, err := newServer(cfg, a, observability.NewRegistry())
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		observability.Logger.Info("server started",
			zap.String("addr", cfg.Addr),
			zap.String("backend", cfg.Backend),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	return waitForShutdown(srv, a, errCh)
}

// newServer wires a into an HTTP server exporting metrics from reg. On
// failure a is closed.
func newServer(cfg config.Config, a *app, reg *prometheus.Registry) (*http.Server, error) {
	if err := a.collector.Register(reg); err != nil {
		return nil, errors.Join(fmt.Errorf("register perf collector: %w", err), a.Close(context.Background()))
	}

	router := server.NewRouter(server.Deps{
		Calculator: calculator.NewHandler(a.sessions, a.collector, expr.NewCache(expr.DefaultCacheSize)),
		Gatherer:   reg,
	})

	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

func waitForShutdown(srv *http.Server, a *app, errCh <-chan error) error {

	stop := make(chan os.Signal, 1)

	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	var serveErr error
	select {
	case <-stop:
	case serveErr = <-errCh:
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	observability.Logger.Info("server shutting down", zap.Int("sessions", a.sessions.Sessions()))

	return errors.Join(serveErr, srv.Shutdown(ctx), a.Close(ctx))
}
