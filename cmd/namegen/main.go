// Command namegen runs the naming engine from a terminal against the embedded or configured character dataset.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hanko-field/naming/internal/di"
	"github.com/hanko-field/naming/internal/platform/config"
	"github.com/hanko-field/naming/internal/services"
)

const datasetFromConfig = "config"

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	envFile     string
	dataset     string
	datasetPath string
	asJSON      bool
	verbose     bool
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           "namegen",
		Short:         "Generate and score Chinese given names",
		Long:          "namegen generates ranked given names from BaZi element balance, Wuge stroke numerology, phonetic harmony and meaning, and exposes each calculator on its own.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.envFile, "env-file", ".env", "Path to a .env file with NAMING_* overrides")
	flags.StringVar(&opts.dataset, "dataset", config.SourceEmbedded, "Character dataset source: embedded, file, gcs, firestore or config")
	flags.StringVar(&opts.datasetPath, "dataset-path", "", "YAML dataset path when --dataset=file")
	flags.BoolVar(&opts.asJSON, "json", false, "Print results as JSON")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log container events to stderr")

	root.AddCommand(
		newGenerateCmd(opts),
		newScoreCmd(opts),
		newChartCmd(opts),
		newWugeCmd(opts),
		newPhoneticsCmd(opts),
		newDatasetCmd(opts),
	)
	return root
}

// loadConfig reads NAMING_* settings and applies the dataset flags on top. Publishing and replays are disabled.
func loadConfig(ctx context.Context, opts *globalOptions) (config.Config, error) {
	overrides := map[string]string{
		"NAMING_PUBSUB_GENERATION_TOPIC": "",
		"NAMING_IDEMPOTENCY_BACKEND":     config.ReplayOff,
	}
	if source := strings.ToLower(strings.TrimSpace(opts.dataset)); source != "" && source != datasetFromConfig {
		overrides["NAMING_CHARACTER_SOURCE"] = source
	}
	if path := strings.TrimSpace(opts.datasetPath); path != "" {
		overrides["NAMING_DATASET_PATH"] = path
	}

	cfg, err := config.Load(ctx, config.WithEnvFile(opts.envFile), config.WithEnvMap(overrides))
	if err != nil {
		return config.Config{}, fmt.Errorf("load configuration: %w", err)
	}
	cfg.Naming.ReloadInterval = 0
	return cfg, nil
}

func newLogger(opts *globalOptions) *zap.Logger {
	if !opts.verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger.Named("namegen")
}

// withContainer builds the service container for one command run and closes it afterwards.
func withContainer(cmd *cobra.Command, opts *globalOptions, run func(*di.Container) error) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(ctx, opts)
	if err != nil {
		return err
	}

	logger := newLogger(opts)
	defer func() {
		_ = logger.Sync()
	}()

	container, err := di.NewContainer(ctx, cfg,
		di.WithLogger(logger),
		di.WithBuildInfo(services.BuildInfo{Version: "cli", Environment: cfg.Environment, StartedAt: time.Now().UTC()}),
	)
	defer func() {
		if container == nil {
			return
		}
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if closeErr := container.Close(closeCtx); closeErr != nil {
			logger.Warn("container close error", zap.Error(closeErr))
		}
	}()
	if err != nil {
		return fmt.Errorf("initialise naming services: %w", err)
	}
	return run(container)
}
