// Package server exposes conversion over HTTP: one-shot JSON and HTML
// renders plus live websocket sessions backed by a widget.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/koki-develop/asciimage/internal/config"
	"github.com/koki-develop/asciimage/internal/fetch"
	"github.com/koki-develop/asciimage/internal/logging"
)

// Server wraps the HTTP server with its configuration and dependencies
type Server struct {
	httpServer *http.Server
	svc        config.Service
	loader     fetch.Loader
	logger     *slog.Logger

	// sessions are hijacked connections that Shutdown does not track
	ctx      context.Context
	cancel   context.CancelFunc
	sessions sync.WaitGroup
}

func New(svc config.Service, loader fetch.Loader, logger *slog.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		svc:    svc,
		loader: loader,
		logger: logging.For(logger, logging.ChannelHTTP),
		ctx:    ctx,
		cancel: cancel,
	}
	s.httpServer = &http.Server{
		Addr:         ":" + svc.Port,
		Handler:      s.routes(logger),
		ReadTimeout:  svc.ReadTimeout,
		WriteTimeout: svc.WriteTimeout,
		IdleTimeout:  svc.IdleTimeout,
	}
	return s
}

// Handler returns the router, for embedding or tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Stop gracefully shuts down the HTTP server and ends live sessions
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	s.cancel()
	err := s.httpServer.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		s.sessions.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}
	return err
}
