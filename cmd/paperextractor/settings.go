package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ternarybob/paperextractor/internal/app"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change the stored settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, application *app.App) error {
			settings, err := application.SettingsStorage.Load(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("log_dir            = %s\n", settings.LogDir)
			fmt.Printf("system_prompt_path = %s\n", settings.SystemPromptPath)
			fmt.Printf("template_path      = %s\n", settings.TemplatePath)
			fmt.Printf("env_path           = %s\n", settings.EnvPath)
			fmt.Printf("summary_enabled    = %t\n", settings.SummaryEnabled)
			return nil
		})
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one setting",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, application *app.App) error {
			settings, err := application.SettingsStorage.Load(ctx)
			if err != nil {
				return err
			}
			if err := settings.Set(args[0], args[1]); err != nil {
				return err
			}
			if err := application.SettingsStorage.Save(ctx, settings); err != nil {
				return err
			}
			logger.Info().Str("key", args[0]).Msg("Setting saved")
			return nil
		})
	},
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd)
}
