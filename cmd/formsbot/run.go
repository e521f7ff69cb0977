package main

import (
	"context"

	"github.com/spf13/cobra"

	corecmd "github.com/m3rciful/tgforms/core/cmd"
)

func newRunCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the bot",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return corecmd.Run(corecmd.Options{
				ConfigPath:        configPath,
				ConfigEnvVar:      "FORMSBOT_CONFIG",
				DefaultConfigPath: "configs/formsbot.yaml",
				LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
					return loadConfig(path)
				},
				Bootstrap: func(ctx context.Context, cfg corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
					return newApp(ctx, cfg.(*AppConfig))
				},
			})
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the config file")
	return cmd
}
