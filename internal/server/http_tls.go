package server

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"resumebuilder/internal/config"
	"resumebuilder/internal/errors"
	"resumebuilder/internal/observability"
	"resumebuilder/internal/watcher"
)

// certReloader serves the current key pair through GetCertificate and
// swaps it when the files on disk change. A failed reload keeps the
// previous certificate.
type certReloader struct {
	certFile string
	keyFile  string

	mu       sync.RWMutex
	cert     *tls.Certificate
	notAfter time.Time

	reloads atomic.Int64
	watcher *watcher.FileWatcher
	om      *observability.ObservabilityManager
	logger  *errors.Logger
}

func newCertReloader(certFile, keyFile string, om *observability.ObservabilityManager, logger *errors.Logger) (*certReloader, error) {
	cr := &certReloader{
		certFile: certFile,
		keyFile:  keyFile,
		om:       om,
		logger:   logger,
	}
	if err := cr.load(); err != nil {
		return nil, err
	}
	return cr, nil
}

func (cr *certReloader) load() error {
	cert, err := tls.LoadX509KeyPair(cr.certFile, cr.keyFile)
	if err != nil {
		return fmt.Errorf("failed to load server cert/key from files: %w", err)
	}

	leaf := cert.Leaf
	if leaf == nil {
		leaf, err = x509.ParseCertificate(cert.Certificate[0])
		if err != nil {
			return fmt.Errorf("failed to parse server certificate: %w", err)
		}
	}

	cr.mu.Lock()
	cr.cert = &cert
	cr.notAfter = leaf.NotAfter
	cr.mu.Unlock()

	cr.om.GetMetrics().RecordCertExpiry(context.Background(), leaf.NotAfter, cr.om)
	return nil
}

// reload is the watcher callback
func (cr *certReloader) reload() {
	err := cr.load()
	cr.om.GetMetrics().RecordBusinessMetric(context.Background(), observability.MetricCertReload, err == nil, cr.om)
	if err != nil {
		cr.logger.LogError(err, "Failed to reload TLS certificates, keeping the previous pair")
		return
	}
	cr.reloads.Add(1)
	cr.logger.Info("TLS certificates reloaded", "cert_file", cr.certFile)
}

// GetCertificate implements tls.Config.GetCertificate
func (cr *certReloader) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	return cr.cert, nil
}

// NotAfter returns the expiry of the certificate being served
func (cr *certReloader) NotAfter() (time.Time, error) {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	if cr.cert == nil {
		return time.Time{}, fmt.Errorf("no certificate loaded")
	}
	return cr.notAfter, nil
}

// Reloads returns the number of successful reloads since start
func (cr *certReloader) Reloads() int64 {
	return cr.reloads.Load()
}

func (cr *certReloader) watch(debounce time.Duration) error {
	cr.watcher = watcher.New("tls", []string{cr.certFile, cr.keyFile}, debounce, cr.reload, cr.logger)
	return cr.watcher.Start()
}

func (cr *certReloader) stop() error {
	if cr.watcher == nil {
		return nil
	}
	return cr.watcher.Stop()
}

// configureTLS sets up TLS on httpServer based on the mode
func (s *Server) configureTLS(httpServer *http.Server) error {
	switch s.TLSConfig.Mode {
	case "", "disabled":
		fmt.Printf("Starting server on http://%s\n", httpServer.Addr)
		fmt.Println("TLS mode: Disabled (HTTP only)")
		return nil
	case "server":
		fmt.Printf("Starting server with HTTPS on https://%s\n", httpServer.Addr)
		tlsConfig, err := s.buildTLSConfig()
		if err != nil {
			return fmt.Errorf("failed to set up TLS: %w", err)
		}
		httpServer.TLSConfig = tlsConfig
		return nil
	default:
		return fmt.Errorf("invalid TLS mode: %s (must be 'disabled' or 'server')", s.TLSConfig.Mode)
	}
}

// buildTLSConfig loads the key pair and starts watching it when auto-reload is on
func (s *Server) buildTLSConfig() (*tls.Config, error) {
	certs, err := newCertReloader(s.TLSConfig.CertFile, s.TLSConfig.KeyFile, s.om, s.Logger)
	if err != nil {
		return nil, err
	}

	if s.TLSConfig.AutoReload.Enabled {
		if err := certs.watch(s.TLSConfig.AutoReload.DebounceDelay); err != nil {
			return nil, fmt.Errorf("failed to watch certificate files: %w", err)
		}
		fmt.Println("TLS auto-reload: ENABLED")
	}
	s.certs = certs

	tlsConfig := &tls.Config{
		MinVersion:     tls.VersionTLS12,
		GetCertificate: certs.GetCertificate,
	}
	if s.TLSConfig.MinVersion == "1.3" {
		tlsConfig.MinVersion = tls.VersionTLS13
	}
	return tlsConfig, nil
}

// tlsModeEnabled reports whether cfg asks for HTTPS
func tlsModeEnabled(cfg config.TLSConfig) bool {
	return cfg.Mode == "server"
}
