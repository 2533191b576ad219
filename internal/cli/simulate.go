package cli

import (
	"github.com/spf13/cobra"
)

var simulateArgs forecastFlags

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "用给定的 so-far 数值预测并触发一次告警",
	RunE: func(cmd *cobra.Command, args []string) error {
		now, err := monitorNow()
		if err != nil {
			return err
		}
		opts, err := simulateArgs.options(now)
		if err != nil {
			return err
		}
		return getApp().SimulateAlert(cmd.Context(), opts)
	},
}

func init() {
	simulateArgs.register(simulateCmd)
}
