package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"sort"
	"sync"
	"time"

	"resumebuilder/internal/errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// healthCheckTimeouts returns the overall and per-model health check budgets
func (s *Server) healthCheckTimeouts() (time.Duration, time.Duration) {
	overall, perModel := 15*time.Second, 10*time.Second
	if s.AppConfig != nil {
		if t := s.AppConfig.Observability.HealthCheck.Timeout; t > 0 {
			overall = t
		}
		if t := s.AppConfig.Observability.HealthCheck.AIModelCheckTimeout; t > 0 {
			perModel = t
		}
	}
	return overall, perModel
}

// healthHandler reports AI model availability, breaker state and TLS certificate expiry
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":  "healthy",
		"service": "resumebuilder",
		"version": s.Version,
	}

	aiStatus, aiHealthy := s.checkAIModelsHealth(r.Context())
	response["ai_models"] = aiStatus
	response["circuit_breakers"] = s.checkCircuitBreakerHealth()

	healthy := aiHealthy
	if certStatus := s.checkCertificateHealth(); certStatus != nil {
		response["certificates"] = certStatus
		if ok, _ := certStatus["healthy"].(bool); !ok {
			healthy = false
		}
	}

	status := http.StatusOK
	if !healthy {
		response["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

// checkAIModelsHealth queries every configured model concurrently
func (s *Server) checkAIModelsHealth(parent context.Context) (map[string]any, bool) {
	status := make(map[string]any)
	if s.AI == nil {
		return status, true
	}

	overall, perModel := s.healthCheckTimeouts()
	ctx, cancel := context.WithTimeout(parent, overall)
	defer cancel()

	var mu sync.Mutex
	var wg sync.WaitGroup
	healthy := true

	for op, svc := range s.AI.Services() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			modelCtx, cancel := context.WithTimeout(ctx, perModel)
			defer cancel()

			info := svc.GetModelInfo(modelCtx)

			mu.Lock()
			defer mu.Unlock()
			status[op] = info
			if info == nil || !info.Available {
				healthy = false
			}
		}()
	}
	wg.Wait()

	for op, err := range s.AI.Unavailable() {
		status[op] = map[string]any{
			"available": false,
			"error":     errors.UserMessage(err),
		}
		healthy = false
	}

	return status, healthy
}

// checkCircuitBreakerHealth collects breaker statistics per operation
func (s *Server) checkCircuitBreakerHealth() map[string]any {
	status := make(map[string]any)
	if s.AI == nil {
		return status
	}
	for op, svc := range s.AI.Services() {
		status[op] = svc.Provider.GetCircuitBreakerStats()
	}
	return status
}

// checkCertificateHealth grades the expiry of the serving certificate
func (s *Server) checkCertificateHealth() map[string]any {
	if s.certs == nil {
		return nil
	}

	certStatus := map[string]any{
		"auto_reload": map[string]any{
			"enabled": s.certs.watcher != nil,
			"running": s.certs.watcher != nil && s.certs.watcher.IsRunning(),
		},
		"reloads": s.certs.Reloads(),
	}

	notAfter, err := s.certs.NotAfter()
	if err != nil {
		certStatus["healthy"] = false
		certStatus["error"] = fmt.Sprintf("Failed to check certificate expiry: %v", err)
		return certStatus
	}

	timeToExpiry := time.Until(notAfter)
	certStatus["time_to_expiry_hours"] = int(timeToExpiry.Hours())
	certStatus["not_after"] = notAfter.UTC().Format(time.RFC3339)

	switch {
	case timeToExpiry <= 0:
		certStatus["healthy"] = false
		certStatus["status"] = "expired"
	case timeToExpiry <= 24*time.Hour:
		certStatus["healthy"] = false
		certStatus["status"] = "critical"
	case timeToExpiry <= 7*24*time.Hour:
		certStatus["healthy"] = true
		certStatus["status"] = "warning"
	default:
		certStatus["healthy"] = true
		certStatus["status"] = "ok"
	}
	return certStatus
}

// statsHandler reports session and rate limiting statistics
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service":  "resumebuilder",
		"version":  s.Version,
		"sessions": s.Sessions.GetStats(),
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
		},
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{"enabled": false}
	}

	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
			"by_api_key":       s.RateLimit.ByAPIKey,
		}
	}

	if s.promptWatcher != nil {
		files := s.promptWatcher.Files()
		sort.Strings(files)
		response["prompt_reload"] = map[string]any{
			"running": s.promptWatcher.IsRunning(),
			"files":   files,
		}
	}

	writeJSON(w, http.StatusOK, response)
}

// parseJSONRequest decodes a JSON request body into v
func parseJSONRequest(r *http.Request, v any) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return fmt.Errorf("content-type must be application/json")
	}

	body, err := readBody(r)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	return nil
}

// readBody reads the whole request body, reporting size limit violations
func readBody(r *http.Request) ([]byte, error) {
	defer func() { _ = r.Body.Close() }()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if stderrors.As(err, &maxBytesErr) {
			return nil, fmt.Errorf("request body too large (limit is %d bytes)", maxBytesErr.Limit)
		}
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	return body, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, error, message string, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{Error: error, Message: message})
}

// writeAppError maps an application error onto an HTTP status
func writeAppError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	title := "Internal error"

	switch {
	case errors.IsBusy(err):
		status, title = http.StatusConflict, "Session busy"
	case errors.IsNotFound(err):
		status, title = http.StatusNotFound, "Not found"
	case errors.IsType(err, errors.ErrorTypeValidation):
		status, title = http.StatusBadRequest, "Invalid request"
	}

	resp := ErrorResponse{Error: title, Message: errors.UserMessage(err)}
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		resp.Code = appErr.Code
	}
	writeJSON(w, status, resp)
}
