package cli

import (
	"context"
	"fmt"
	"time"

	"resumebuilder/internal/config"
	"resumebuilder/internal/observability"
	"resumebuilder/internal/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for form sessions",
	Long: `Start an HTTP server exposing form sessions over REST.

Available endpoints:
- POST /sessions: create a session, optionally with initial fields
- GET|DELETE /sessions/{id}: show or delete a session
- PATCH /sessions/{id}/fields: update some fields
- POST /sessions/{id}/preview: preview (?format=json|text|markdown|html)
- GET /sessions/{id}/export: download the PDF
- POST /sessions/{id}/import: load fields from an exported PDF
- POST /sessions/{id}/suggest|score|models: AI requests
- GET /health, GET /stats

A session with a request in flight answers 409 Conflict to every trigger.

TLS Configuration:
- Use --tls-mode to set TLS mode: disabled, server
- Use --cert-file and --key-file for TLS certificates`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var serveFlags struct {
	port     string
	host     string
	tlsMode  string
	certFile string
	keyFile  string
}

func init() {
	serveCmd.Flags().StringVarP(&serveFlags.port, "port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().StringVar(&serveFlags.host, "host", "", "Host to bind to (default from config)")
	serveCmd.Flags().StringVar(&serveFlags.tlsMode, "tls-mode", "", "TLS mode: disabled, server (overrides config)")
	serveCmd.Flags().StringVar(&serveFlags.certFile, "cert-file", "", "Server certificate file (PEM, overrides config)")
	serveCmd.Flags().StringVar(&serveFlags.keyFile, "key-file", "", "Server private key file (PEM, overrides config)")
}

// applyServeFlags copies the flags set on the command line over cfg
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	overrides := []struct {
		flag   string
		value  string
		target *string
	}{
		{"port", serveFlags.port, &cfg.Server.Port},
		{"host", serveFlags.host, &cfg.Server.Host},
		{"tls-mode", serveFlags.tlsMode, &cfg.Server.TLS.Mode},
		{"cert-file", serveFlags.certFile, &cfg.Server.TLS.CertFile},
		{"key-file", serveFlags.keyFile, &cfg.Server.TLS.KeyFile},
	}
	for _, o := range overrides {
		if cmd.Flags().Changed(o.flag) {
			*o.target = o.value
		}
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	applyServeFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid server configuration: %w", err)
	}

	if err := config.ApplyVaultSecrets(cfg, logger); err != nil {
		return fmt.Errorf("failed to load secrets from Vault: %w", err)
	}

	om, err := observability.NewObservabilityManager(observability.GetObservabilityConfig(cfg, Version), cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := om.Shutdown(ctx); err != nil {
			logger.LogError(err, "Failed to shutdown observability")
		}
	}()

	prompts, err := config.NewPromptStore(cfg)
	if err != nil {
		return err
	}
	a, client, closeAI, err := newAssistantWithPrompts(cfg, prompts, logger, om)
	if err != nil {
		return fmt.Errorf("failed to create AI client: %w", err)
	}
	defer closeAI()

	serverCfg := server.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		Version:        Version,
		TLSConfig:      cfg.Server.TLS,
		APIKeys:        cfg.Server.APIKeys,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxRequestSize: cfg.Server.MaxRequestSize,
		RateLimit:      &cfg.Server.RateLimit,
		Sessions:       cfg.Server.Sessions,
	}
	deps := server.Dependencies{
		Assistant:     a,
		AI:            client,
		Prompts:       prompts,
		Observability: om,
	}
	return server.NewServer(cfg, serverCfg, deps, logger).Start(cmd.Context())
}
