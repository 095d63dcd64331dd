package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ekisa-team/toolvision/internal/backend"
	"github.com/ekisa-team/toolvision/internal/checkpoint"
	"github.com/ekisa-team/toolvision/internal/report"
	"github.com/ekisa-team/toolvision/internal/service"
)

var flagFinetuneWeights string

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the base model on the surgical tool dataset",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTraining(cmd, func(ctx context.Context, svc *service.Training) (*backend.TrainResult, error) {
			return svc.Train(ctx)
		})
	},
}

var finetuneCmd = &cobra.Command{
	Use:   "finetune",
	Short: "Fine-tune a model with the smaller finetune profile",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTraining(cmd, func(ctx context.Context, svc *service.Training) (*backend.TrainResult, error) {
			return svc.Finetune(ctx, flagFinetuneWeights)
		})
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume the latest training run from its last checkpoint",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return skipWithoutRuns(runTraining(cmd, func(ctx context.Context, svc *service.Training) (*backend.TrainResult, error) {
			return svc.Resume(ctx)
		}))
	},
}

// skipWithoutRuns reports a resume with nothing to resume as a successful no-op.
func skipWithoutRuns(err error) error {
	if errors.Is(err, checkpoint.ErrNoRuns) {
		slog.Info("Nothing to resume, please run `toolvision train` first")
		return nil
	}
	return err
}

func init() {
	finetuneCmd.Flags().StringVar(&flagFinetuneWeights, "weights", "", "weights to fine-tune (profile weights or base model when empty)")
}

// runTraining wires config, dataset locator, device probe and backend, then runs job.
func runTraining(cmd *cobra.Command, job func(context.Context, *service.Training) (*backend.TrainResult, error)) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	locator, err := newLocator(cfg)
	if err != nil {
		return err
	}

	registry, trainer, err := newRegistry(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := registry.Close(); err != nil {
			slog.Warn("Failed to close backends", "error", err)
		}
	}()

	svc := service.NewTraining(cfg, trainer, locator, newProbe(), service.WithCheckpointWatch(true))

	res, err := job(cmd.Context(), svc)
	if err != nil {
		return err
	}

	report.Training(cmd.OutOrStdout(), res)
	return nil
}
