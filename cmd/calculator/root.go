package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"go-chi-calculator/internal/config"
	"go-chi-calculator/internal/engine"
	"go-chi-calculator/internal/observability"
	"go-chi-calculator/internal/perf"
	"go-chi-calculator/internal/session"
	"go-chi-calculator/internal/store"
)

// app is what every subcommand runs against.
type app struct {
	cfg       config.Config
	kv        store.KV
	collector *perf.Collector
	sessions  *session.Service
}

// options holds the persistent flags.
type options struct {
	configFile string
	cfg        config.Config
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "calculator",
		Short: "Keypad calculator with persistent memory and history",
		Long: `calculator is a keypad calculator. "serve" exposes it over HTTP with
one calculator per session; the other commands drive a single calculator
whose state is kept in the configured store between runs.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return opts.load(cmd)
		},
	}

	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default: ./calculator.yaml)")
	root.PersistentFlags().String("data-dir", "", "directory for persisted state")
	root.PersistentFlags().String("backend", "", "state store: file, sqlite or memory")

	root.AddCommand(
		newServeCmd(opts),
		newPressCmd(opts),
		newEvalCmd(),
		newHistoryCmd(opts),
		newVersionCmd(),
	)
	return root
}

// load reads .env, the config file and flags, then sets up logging.
func (o *options) load(cmd *cobra.Command) error {
	if err := loadDotEnv(); err != nil {
		return err
	}

	v := config.New(o.configFile)
	if err := v.BindPFlag(config.KeyDataDir, cmd.Flags().Lookup("data-dir")); err != nil {
		return fmt.Errorf("bind data-dir: %w", err)
	}
	if err := v.BindPFlag(config.KeyBackend, cmd.Flags().Lookup("backend")); err != nil {
		return fmt.Errorf("bind backend: %w", err)
	}

	cfg, err := config.Load(v)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	o.cfg = cfg

	observability.SetServiceName(cfg.ServiceName)
	if err := observability.InitLogger(cfg.LogLevel); err != nil {
		return err
	}
	return nil
}

// openApp opens the store and builds the session service. Writes are held
// back by debounce; zero writes through.
func openApp(cfg config.Config, debounce time.Duration) (*app, error) {
	kv, err := store.Open(cfg.Store())
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	collector, err := perf.New(otel.Meter("calculator"))
	if err != nil {
		_ = kv.Close()
		return nil, fmt.Errorf("create collector: %w", err)
	}

	svc, err := session.New(kv, engine.NewMachine(cfg.MachineOptions()...),
		session.WithDebounce(debounce),
		session.WithCollector(collector),
		session.WithLogger(observability.Logger),
	)
	if err != nil {
		_ = kv.Close()
		return nil, fmt.Errorf("create session service: %w", err)
	}

	return &app{cfg: cfg, kv: kv, collector: collector, sessions: svc}, nil
}

// Close flushes pending writes and releases the store.
func (a *app) Close(ctx context.Context) error {
	flushErr := a.sessions.Flush(ctx)

	if ok, issues := a.collector.CheckThresholds(); !ok {
		for _, issue := range issues {
			observability.Logger.Warn("slow operation", zap.String("issue", issue))
		}
	}

	return errors.Join(flushErr, a.collector.Close(), a.kv.Close())
}
