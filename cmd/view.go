package cmd

import (
	"os"

	"github.com/koki-develop/asciimage/internal/config"
	"github.com/koki-develop/asciimage/internal/logging"
	"github.com/koki-develop/asciimage/internal/ui"
	"github.com/spf13/cobra"
)

var (
	viewFlags   = &renderFlags{}
	viewLogFile string
)

var viewCmd = &cobra.Command{
	Use:   "view <src>",
	Short: "Show an image as ASCII art in the terminal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := viewFlags.config()
		if err != nil {
			return err
		}

		// the screen belongs to the viewer, so logs go to a file or nowhere
		logger := logging.Discard()
		if viewLogFile != "" {
			f, err := os.OpenFile(viewLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return err
			}
			defer f.Close()
			if logger, err = logging.New(f, logging.Options{Level: logLevel, Format: logFormat}); err != nil {
				return err
			}
		}

		svc := config.LoadService()
		return ui.Start(&ui.Option{
			Src:    args[0],
			Config: cfg,
			Loader: newLoader(svc, logger),
			Logger: logger,
		})
	},
}

func init() {
	viewFlags.register(viewCmd)
	viewCmd.Flags().StringVar(&viewLogFile, "log-file", "", "write logs to this file")
}
