package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"resumebuilder/internal/watcher"
)

const shutdownTimeout = 30 * time.Second

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	httpServer := s.setupHTTPServer()

	if err := s.configureTLS(httpServer); err != nil {
		return err
	}

	if err := s.startPromptWatcher(); err != nil {
		s.stopWatchers()
		return err
	}

	s.displayServerInfo()

	listener, err := net.Listen("tcp", httpServer.Addr)
	if err != nil {
		s.stopWatchers()
		return fmt.Errorf("failed to listen on %s: %w", httpServer.Addr, err)
	}

	return s.serve(ctx, httpServer, listener)
}

// setupHTTPServer creates and configures the HTTP server
func (s *Server) setupHTTPServer() *http.Server {
	return &http.Server{
		Addr:         net.JoinHostPort(s.Host, s.Port),
		Handler:      s.Handler(),
		ReadTimeout:  s.ReadTimeout,
		WriteTimeout: s.WriteTimeout,
		IdleTimeout:  s.IdleTimeout,
	}
}

// startPromptWatcher reloads the prompt store whenever a prompt file changes
func (s *Server) startPromptWatcher() error {
	if s.AppConfig == nil || !s.AppConfig.AI.PromptReload.Enabled {
		return nil
	}
	files := s.Prompts.Files()
	if len(files) == 0 {
		return nil
	}

	s.promptWatcher = watcher.New("prompts", files, s.AppConfig.AI.PromptReload.DebounceDelay, func() {
		if err := s.Prompts.Reload(); err != nil {
			s.Logger.LogError(err, "Failed to reload prompts, keeping the previous set")
			return
		}
		s.Logger.Info("Prompts reloaded", "files", len(files))
	}, s.Logger)

	if err := s.promptWatcher.Start(); err != nil {
		return fmt.Errorf("failed to watch prompt files: %w", err)
	}
	fmt.Printf("Prompt auto-reload: ENABLED (%d files)\n", len(files))
	return nil
}

// serve runs httpServer on listener and handles graceful shutdown
func (s *Server) serve(ctx context.Context, server *http.Server, listener net.Listener) error {
	serverErrors := make(chan error, 1)

	go func() {
		s.Logger.Info("Starting HTTP server",
			"address", server.Addr,
			"tls_enabled", server.TLSConfig != nil)

		var err error
		if server.TLSConfig != nil {
			err = server.ServeTLS(listener, "", "")
		} else {
			err = server.Serve(listener)
		}
		if err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		s.cleanup()
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		s.Logger.Info("Received shutdown signal, starting graceful shutdown")
		return s.performGracefulShutdown(server)
	}
}

// performGracefulShutdown drains in-flight requests for up to thirty seconds
func (s *Server) performGracefulShutdown(server *http.Server) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.cleanup()

	s.Logger.Info("Shutting down HTTP server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.Logger.LogError(err, "Failed to shutdown server gracefully, forcing close")
		return server.Close()
	}

	s.Logger.Info("Server shutdown completed successfully")
	return nil
}

func (s *Server) cleanup() {
	s.stopWatchers()
	if s.RateLimiter != nil {
		s.RateLimiter.Close()
	}
	s.Sessions.Close()
}

func (s *Server) stopWatchers() {
	if s.promptWatcher != nil {
		if err := s.promptWatcher.Stop(); err != nil {
			s.Logger.LogError(err, "Failed to stop prompt watcher")
		}
	}
	if s.certs != nil {
		if err := s.certs.stop(); err != nil {
			s.Logger.LogError(err, "Failed to stop certificate watcher")
		}
	}
}
