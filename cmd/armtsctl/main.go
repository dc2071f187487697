package main

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"armts/internal/config"
	"armts/internal/logging"
	"armts/internal/telemetry"
	"armts/pkg/armts"
)

func main() {
	a := &app{}
	err := newRootCommand(a).ExecuteContext(context.Background())
	if closeErr := a.close(); err == nil {
		err = closeErr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app carries state shared by every subcommand. The client is opened once and
// reused, so several commands executed against the same app share a store.
type app struct {
	configPath string
	logLevel   string
	logFormat  string
	storeKind  string
	dbPath     string

	cfg      config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	client   *armts.Client
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "armtsctl",
		Short:         "Mine numerical association rules from time-series data",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "YAML configuration file")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug|info|warn|error")
	flags.StringVar(&a.logFormat, "log-format", "", "log format: console|json")
	flags.StringVar(&a.storeKind, "store", "", "run store backend: memory|sqlite")
	flags.StringVar(&a.dbPath, "db-path", "", "sqlite database path")

	root.AddCommand(
		newDescribeCommand(a),
		newDimensionCommand(a),
		newMineCommand(a),
		newRunsCommand(a),
		newShowCommand(a),
		newExplainCommand(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = a.logFormat
	}
	if flags.Changed("store") {
		cfg.Store.Kind = a.storeKind
	}
	if flags.Changed("db-path") {
		cfg.Store.Path = a.dbPath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	if a.logger == nil {
		a.logger, err = logging.New(cfg.Log.Level, cfg.Log.Format)
		if err != nil {
			return err
		}
	}
	if a.client == nil {
		a.registry = prometheus.NewRegistry()
		recorder, err := telemetry.NewMetrics(a.registry)
		if err != nil {
			return err
		}
		client, err := armts.New(armts.Options{
			StoreKind: cfg.Store.Kind,
			DBPath:    cfg.Store.Path,
			Logger:    a.logger,
			Recorder:  recorder,
		})
		if err != nil {
			return err
		}
		if err := client.Init(cmd.Context()); err != nil {
			return fmt.Errorf("init store: %w", err)
		}
		a.client = client
	}
	return nil
}

func (a *app) close() error {
	if a.client == nil {
		return nil
	}
	return a.client.Close()
}
