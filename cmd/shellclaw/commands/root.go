// Package commands implements the shellclaw CLI using cobra.
package commands

import (
	"log/slog"
	"os"

	"github.com/jholhewres/shellclaw/pkg/shellclaw/config"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command with all subcommands registered.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "shellclaw",
		Short: "shellclaw - sandboxed shell execution over chat",
		Long: `shellclaw executes shell instructions from chat sessions inside a
sandboxed working directory. Sessions keep their own working directory
and instruction mode; natural-language instructions are translated to
command plans.

Examples:
  shellclaw serve
  shellclaw run "cd projects && ls -la"
  shellclaw schedule add "@daily" "df -h"
  shellclaw credentials set discord_token`,
		Version: version,
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newRunCmd(),
		newScheduleCmd(),
		newConfigCmd(),
		newCredentialsCmd(),
	)

	rootCmd.PersistentFlags().StringP("config", "c", "", "path to the configuration file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	return rootCmd
}

// loadConfig resolves the configuration for a command invocation.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Root().PersistentFlags().GetString("config")
	return config.Load(path)
}

// newLogger builds the process logger from logging config and the
// --verbose flag.
func newLogger(cmd *cobra.Command, cfg config.LoggingConfig) *slog.Logger {
	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	return slog.New(handler)
}
