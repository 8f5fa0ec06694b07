package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes and middleware
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	protect := func(h http.HandlerFunc) http.HandlerFunc {
		return s.rateLimitMiddleware()(s.authMiddleware(s.requestSizeLimitMiddleware()(h)))
	}

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /stats", s.statsHandler)

	mux.HandleFunc("POST /sessions", protect(s.createSessionHandler))
	mux.HandleFunc("GET /sessions/{id}", protect(s.getSessionHandler))
	mux.HandleFunc("DELETE /sessions/{id}", protect(s.deleteSessionHandler))
	mux.HandleFunc("PATCH /sessions/{id}/fields", protect(s.updateFieldsHandler))
	mux.HandleFunc("POST /sessions/{id}/preview", protect(s.previewHandler))
	mux.HandleFunc("GET /sessions/{id}/export", protect(s.exportHandler))
	mux.HandleFunc("POST /sessions/{id}/import", protect(s.importHandler))
	mux.HandleFunc("POST /sessions/{id}/suggest", protect(s.suggestHandler))
	mux.HandleFunc("POST /sessions/{id}/score", protect(s.scoreHandler))
	mux.HandleFunc("POST /sessions/{id}/models", protect(s.modelsHandler))

	return mux
}

// Handler returns the instrumented HTTP handler serving every route
func (s *Server) Handler() http.Handler {
	return s.om.HTTPMiddleware()(s.setupRoutes())
}

// authMiddleware provides API key authentication
func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if len(s.APIKeys) == 0 {
			next(w, r)
			return
		}

		apiKey := requestAPIKey(r)
		if apiKey == "" {
			s.Logger.Info("Authentication failed: missing API key",
				"endpoint", r.URL.Path,
				"client_ip", r.RemoteAddr)
			writeErrorResponse(w, "Missing API key", "X-API-Key header or Authorization Bearer token required", http.StatusUnauthorized)
			return
		}

		if !s.APIKeys[apiKey] {
			s.Logger.Info("Authentication failed: invalid API key",
				"endpoint", r.URL.Path,
				"client_ip", r.RemoteAddr,
				"api_key_prefix", maskAPIKey(apiKey))
			writeErrorResponse(w, "Invalid API key", "Unauthorized access", http.StatusUnauthorized)
			return
		}

		s.Logger.Debug("API authentication successful",
			"endpoint", r.URL.Path,
			"api_key_prefix", maskAPIKey(apiKey))

		next(w, r)
	}
}

// requestAPIKey reads the key from X-API-Key, falling back to a Bearer token
func requestAPIKey(r *http.Request) string {
	if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
		return apiKey
	}
	if after, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return after
	}
	return ""
}

// requestSizeLimitMiddleware limits the size of incoming requests
func (s *Server) requestSizeLimitMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if s.MaxRequestSize > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, s.MaxRequestSize)
			}
			next(w, r)
		}
	}
}

// maskAPIKey masks an API key for logging (shows only first 8 characters)
func maskAPIKey(apiKey string) string {
	if len(apiKey) <= 8 {
		return "****"
	}
	return apiKey[:8] + "****"
}
