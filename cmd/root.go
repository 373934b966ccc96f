package cmd

import (
	"log/slog"
	"os"

	"github.com/koki-develop/asciimage/internal/logging"
	"github.com/spf13/cobra"
)

var (
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:          "asciimage <src>",
	Short:        "Convert images to ASCII art",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRender(cmd, args[0], rootFlags)
	},
}

var rootFlags = &renderFlags{}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	rootFlags.register(rootCmd)

	rootCmd.AddCommand(renderCmd, viewCmd, serveCmd)
}

// newLogger builds the command logger on stderr from the persistent flags.
func newLogger() (*slog.Logger, error) {
	return logging.New(os.Stderr, logging.Options{Level: logLevel, Format: logFormat})
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
