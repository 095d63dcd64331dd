package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ekisa-team/toolvision/internal/device"
)

var deviceCmd = &cobra.Command{
	Use:   "device",
	Short: "Report GPU availability and the device training would use",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		selected, available := device.Select(cmd.Context(), newProbe())

		fmt.Fprintf(cmd.OutOrStdout(), "GPU available: %t\n", available)
		fmt.Fprintf(cmd.OutOrStdout(), "Using device: %s\n", selected)
		return nil
	},
}
