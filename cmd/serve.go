package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/koki-develop/asciimage/internal/config"
	"github.com/koki-develop/asciimage/internal/server"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve conversions over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := config.LoadService()
		if servePort != "" {
			svc.Port = servePort
		}
		if !cmd.Flags().Changed("log-level") {
			logLevel = svc.LogLevel
		}
		if !cmd.Flags().Changed("log-format") {
			logFormat = svc.LogFormat
		}

		logger, err := newLogger()
		if err != nil {
			return err
		}
		gin.SetMode(gin.ReleaseMode)

		srv := server.New(svc, newServeLoader(svc, logger), logger)

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Stop(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "listen port (overrides ASCIIMAGE_PORT)")
}
