package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ekisa-team/toolvision/internal/config"
	"github.com/ekisa-team/toolvision/internal/report"
	"github.com/ekisa-team/toolvision/internal/service"
)

var predictOpts service.PredictOptions

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Run inference on an image, video, directory or stream",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
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

		opts := predictOpts
		flags := cmd.Flags()
		if !flags.Changed("conf") {
			opts.Conf = cfg.Predict.Conf
		}
		if !flags.Changed("iou") {
			opts.IoU = cfg.Predict.IoU
		}
		if !flags.Changed("imgsz") {
			opts.ImgSize = cfg.Predict.ImgSize
		}

		res, err := service.NewInference(cfg, trainer).Predict(cmd.Context(), opts)
		if err != nil {
			return err
		}

		report.Inference(cmd.OutOrStdout(), res)
		return nil
	},
}

func init() {
	defaults := config.DefaultConfig().Predict

	flags := predictCmd.Flags()
	flags.StringVar(&predictOpts.Model, "model", "", "path to trained model weights (e.g. best.pt)")
	flags.StringVar(&predictOpts.Source, "source", "", "image, video, directory, URL or stream")
	flags.Float64Var(&predictOpts.Conf, "conf", defaults.Conf, "confidence threshold")
	flags.Float64Var(&predictOpts.IoU, "iou", defaults.IoU, "IoU threshold for NMS")
	flags.IntVar(&predictOpts.ImgSize, "imgsz", defaults.ImgSize, "inference image size")
	flags.BoolVar(&predictOpts.Save, "save", false, "save annotated results")
	flags.BoolVar(&predictOpts.Show, "show", false, "display results")
	flags.StringVar(&predictOpts.Data, "data", "", "dataset manifest for class names")

	_ = predictCmd.MarkFlagRequired("model")
	_ = predictCmd.MarkFlagRequired("source")
}
