// Package api exposes the alert engine over a small JSON HTTP API.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/rewired-gh/iskwatch/internal/alerts"
	"github.com/rewired-gh/iskwatch/internal/history"
	"github.com/rewired-gh/iskwatch/internal/logger"
	"github.com/rewired-gh/iskwatch/internal/monitor"
	"github.com/rewired-gh/iskwatch/internal/notify"
)

// Config holds API server configuration.
type Config struct {
	Address string
	Verbose bool
}

// Permissions reports and requests consent for system notifications.
type Permissions interface {
	Permission(ctx context.Context) notify.Permission
	RequestPermission(ctx context.Context) notify.Permission
}

// Deps are the engine components the handlers operate on.
type Deps struct {
	Store       *alerts.Store
	Monitor     *monitor.Monitor
	History     *history.Log
	Triggered   *history.Triggered
	Permissions Permissions
}

// Server is the HTTP API server.
type Server struct {
	config Config
	deps   Deps
	server *http.Server

	// baseCtx outlives single requests; the monitor started through the API
	// runs under it.
	baseCtx context.Context
}

// New creates a new API server.
func New(cfg Config, deps Deps) *Server {
	s := &Server{
		config:  cfg,
		deps:    deps,
		baseCtx: context.Background(),
	}
	s.server = &http.Server{
		Addr:              cfg.Address,
		Handler:           s.setupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Address returns the configured listen address.
func (s *Server) Address() string {
	return s.config.Address
}

// Run starts the server and blocks until ctx is cancelled or the listener fails.
func (s *Server) Run(ctx context.Context) error {
	s.baseCtx = ctx
	errChan := make(chan error, 1)

	go func() {
		logger.Info("HTTP API listening on %s", s.config.Address)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down HTTP API server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}
