package ai

import (
	"context"
	"crypto/rand"
	stderrors "errors"
	"fmt"
	"math"
	"math/big"
	"net"
	"net/http"
	"time"

	"resumebuilder/internal/errors"

	"github.com/openai/openai-go"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

// executeWithRetry executes an AI operation with retry logic and exponential backoff
func executeWithRetry[T any](ctx context.Context, logger *errors.Logger, operation string, maxRetries int, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			logger.Warn("Retrying AI operation",
				"operation", operation,
				"attempt", attempt,
				"max_retries", maxRetries,
				"error", lastErr.Error())

			select {
			case <-time.After(backoff(attempt)):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}

		result, err := fn()
		if err == nil {
			if attempt > 0 {
				logger.Info("AI operation succeeded after retry",
					"operation", operation,
					"total_attempts", attempt+1)
			}
			return result, nil
		}

		lastErr = err

		// Don't retry on certain errors (auth, invalid input, etc.)
		if !isRetryableError(err) {
			logger.Debug("Error is not retryable, stopping retry attempts",
				"operation", operation,
				"error", err.Error())
			break
		}
	}

	if maxRetries == 0 {
		return zero, lastErr
	}

	logger.LogError(lastErr, "AI operation failed after all retry attempts",
		"operation", operation,
		"total_attempts", maxRetries+1)

	return zero, fmt.Errorf("operation '%s' failed after %d retries: %w", operation, maxRetries, lastErr)
}

// backoff doubles from one second per attempt with up to 10% jitter, capped at 30s
func backoff(attempt int) time.Duration {
	baseDelay := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
	jitter := time.Duration(0)
	if jitterMax := int64(float64(baseDelay) * 0.1); jitterMax > 0 {
		if n, err := rand.Int(rand.Reader, big.NewInt(jitterMax)); err == nil {
			jitter = time.Duration(n.Int64())
		}
	}
	return min(baseDelay+jitter, 30*time.Second)
}

// isRetryableError determines if an error should trigger a retry
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// Cancellation is final, deadlines are handled by the caller's context
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return true
	}

	var apiErr *googleapi.Error
	if stderrors.As(err, &apiErr) {
		return retryableStatus(apiErr.Code)
	}

	var genaiErr genai.APIError
	if stderrors.As(err, &genaiErr) {
		return retryableStatus(genaiErr.Code)
	}

	var openaiErr *openai.Error
	if stderrors.As(err, &openaiErr) {
		return retryableStatus(openaiErr.StatusCode)
	}

	return false
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// withTimeout applies a per-call deadline only when one is configured
func withTimeout(ctx context.Context, timeout *time.Duration) (context.Context, context.CancelFunc) {
	if timeout == nil || *timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, *timeout)
}

// emptyResponseError reports a reply that carried no candidate at all
func emptyResponseError(provider string) error {
	return errors.NewAIError(errors.ErrCodeAIEmptyResponse,
		fmt.Sprintf("%s returned an empty response", provider), nil)
}
