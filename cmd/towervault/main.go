package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cetmix/towervault/cmd/towervault/commands"
	"github.com/cetmix/towervault/internal/config"
	"github.com/cetmix/towervault/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var debug bool

	app := &commands.App{}

	rootCmd := &cobra.Command{
		Use:   "towervault",
		Short: "Key registry with inline secret resolution",
		Long: `towervault stores keys and secrets, resolves inline #!cxtower tokens
in scripts to their real values and redacts those values out of
captured output.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if debug {
				level = slog.LevelDebug
			}
			handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
			app.Log = logging.NewSlogLogger(slog.New(handler))
		},
	}

	rootCmd.PersistentFlags().StringVar(&app.ConfigPath, "config",
		os.Getenv(config.EnvConfigFile), "JSON config file path")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(
		commands.NewMigrateCommand(app),
		commands.NewKeyCommand(app),
		commands.NewValueCommand(app),
		commands.NewRenderCommand(app),
		commands.NewRedactCommand(app),
	)

	return rootCmd.Execute()
}
