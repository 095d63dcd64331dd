package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ekisa-team/toolvision/internal/backend"
	"github.com/ekisa-team/toolvision/internal/backend/ultralytics"
	"github.com/ekisa-team/toolvision/internal/config"
	"github.com/ekisa-team/toolvision/internal/config/source"
	"github.com/ekisa-team/toolvision/internal/dataset"
	"github.com/ekisa-team/toolvision/internal/device"
	"github.com/ekisa-team/toolvision/internal/env"
	"github.com/ekisa-team/toolvision/internal/envvar"
	"github.com/ekisa-team/toolvision/internal/logger"
)

var (
	flagConfigPath string
	flagSchemaPath string
	flagEnvFile    string
	flagLogFile    string
)

var rootCmd = &cobra.Command{
	Use:           "toolvision",
	Short:         "Train and run surgical tool detection models",
	Long:          "toolvision fetches the Cholec80 surgical tool dataset, trains, fine-tunes or resumes a YOLO detector through the Ultralytics CLI, and runs inference with the resulting weights.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(flagEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load env file %s: %w", flagEnvFile, err)
		}

		slog.SetDefault(
			logger.New(env.FromEnv(),
				logger.WithLogToFile(flagLogFile != ""),
				logger.WithLogFile(flagLogFile),
			),
		)
		return nil
	},
}

// Execute runs the root command, logging any error it returns.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("Command failed", "error", err)
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config", filepath.Join(config.DefaultConfigPath(), "config.yaml"), "path to config file")
	rootCmd.PersistentFlags().StringVar(&flagSchemaPath, "schema", "", "path to schema file (embedded schema when empty)")
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", ".env", "path to a dotenv file")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "also write logs to this rotating file")

	rootCmd.AddCommand(trainCmd, finetuneCmd, resumeCmd, predictCmd, deviceCmd)
}

// loadConfig reads the config file, falling back to defaults when it is absent.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(flagConfigPath, flagSchemaPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	slog.Debug("Config loaded", "config", flagConfigPath, "work_dir", cfg.WorkDir())
	return cfg, nil
}

// newRegistry registers the backend named in the config.
func newRegistry(cfg *config.Config) (*backend.Registry, backend.Trainer, error) {
	registry := backend.NewRegistry()

	switch backend.Provider(cfg.Backend.Provider) {
	case backend.ProviderUltralytics:
		b, err := ultralytics.NewBackend(cfg.Backend.Binary, cfg.Backend.Task)
		if err != nil {
			return nil, nil, err
		}
		if err := registry.Register(b); err != nil {
			return nil, nil, err
		}
	}

	trainer, err := registry.Get(backend.Provider(cfg.Backend.Provider))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s", err, cfg.Backend.Provider)
	}

	return registry, trainer, nil
}

func newLocator(cfg *config.Config) (*dataset.Locator, error) {
	src, err := cfg.Dataset.GetSource()
	if err != nil {
		return nil, err
	}

	downloader, err := source.GetDownloader(src.Type(), os.Getenv(envvar.RoboflowAPIKey))
	if err != nil {
		return nil, err
	}

	return dataset.NewLocator(cfg, downloader), nil
}

func newProbe() device.Probe {
	return device.NewNvidiaSMIProbe(backend.ExecCommandRunner{})
}
