package cmd

import (
	"fmt"

	"github.com/koki-develop/asciimage/internal/config"
	"github.com/koki-develop/asciimage/internal/widget"
	"github.com/spf13/cobra"
)

var renderFlagsCmd = &renderFlags{}

var renderCmd = &cobra.Command{
	Use:   "render <src>",
	Short: "Print the ASCII rendering of an image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRender(cmd, args[0], renderFlagsCmd)
	},
}

func init() {
	renderFlagsCmd.register(renderCmd)
}

func runRender(cmd *cobra.Command, src string, f *renderFlags) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	cfg, err := f.config()
	if err != nil {
		return err
	}
	container, err := f.containerSize()
	if err != nil {
		return err
	}

	svc := config.LoadService()
	out, err := widget.Convert(cmd.Context(), newLoader(svc, logger), src, cfg, container)
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), out.Text)
	return nil
}
