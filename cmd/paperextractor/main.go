// -----------------------------------------------------------------------
// paperextractor - arXiv paper note workflow for a markdown vault
// -----------------------------------------------------------------------

package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/paperextractor/internal/app"
	"github.com/ternarybob/paperextractor/internal/common"
)

var (
	// Command-line flags
	configFiles []string
	vaultRoot   string
	logLevel    string

	// Global state
	config *common.Config
	logger arbor.ILogger
)

var rootCmd = &cobra.Command{
	Use:           "paperextractor",
	Short:         "Rename, fetch and summarize arXiv paper notes",
	Long:          `Resolves the paper title of an arXiv note, saves its HTML and PDF beside the note and writes an AI summary into it.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig()
	},
}

func init() {
	rootCmd.PersistentFlags().StringSliceVarP(&configFiles, "config", "c", nil, "Configuration file path (repeatable, later files override earlier ones)")
	rootCmd.PersistentFlags().StringVar(&vaultRoot, "vault", "", "Vault root directory (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (overrides config)")

	rootCmd.AddCommand(runCmd, titleCmd, fetchCmd, summarizeCmd)
	rootCmd.AddCommand(newCmd, settingsCmd, exportSummaryCmd, versionCmd)
}

func main() {
	if execPath, err := os.Executable(); err == nil {
		common.InstallCrashHandler(filepath.Join(filepath.Dir(execPath), "logs"))
	}
	defer common.RecoverWithCrashFile()

	if err := rootCmd.Execute(); err != nil {
		if logger != nil {
			logger.Error().Err(err).Str("code", common.CodeOf(err, "")).Msg("Command failed")
		}
		os.Exit(1)
	}
}

// loadConfig runs the startup sequence: defaults -> files -> env -> flags,
// then initializes the logger from the final configuration.
func loadConfig() error {
	if len(configFiles) == 0 {
		if _, err := os.Stat("paperextractor.toml"); err == nil {
			configFiles = append(configFiles, "paperextractor.toml")
		}
	}

	var err error
	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		common.GetLogger().Error().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration")
		return err
	}

	common.ApplyFlagOverrides(config, vaultRoot, logLevel)
	logger = common.InitLogger(config)

	logger.Debug().
		Strs("config_files", configFiles).
		Str("vault", config.Vault.Root).
		Str("settings", config.Storage.Badger.Path).
		Str("log_level", config.Logging.Level).
		Msg("Configuration loaded")

	return nil
}

// withApp initializes the application, runs fn and closes it again.
// The context is cancelled on SIGINT/SIGTERM.
func withApp(fn func(ctx context.Context, application *app.App) error) error {
	application, err := app.New(config, logger, app.NewConsoleNotifier(os.Stderr))
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize application")
		return err
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close application")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return fn(ctx, application)
}

// withNote is withApp for commands taking a note argument, which may be a
// vault path or an OS path inside the vault
func withNote(arg string, fn func(ctx context.Context, application *app.App, notePath string) error) error {
	return withApp(func(ctx context.Context, application *app.App) error {
		notePath, err := application.ResolveNotePath(ctx, arg)
		if err != nil {
			return err
		}
		return fn(ctx, application, notePath)
	})
}
