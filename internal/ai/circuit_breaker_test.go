package ai

import (
	"fmt"
	"testing"
	"time"

	"resumebuilder/internal/config"

	"github.com/sony/gobreaker/v2"
)

func breakerConfig(maxRequests, minRequests uint32, threshold float64) *config.OperationAIConfig {
	return &config.OperationAIConfig{
		Provider: "gemini",
		Model:    "test-model",
		CircuitBreaker: config.CircuitBreakerConfig{
			Enabled:          true,
			MaxRequests:      maxRequests,
			Interval:         60 * time.Second,
			Timeout:          60 * time.Second,
			MinRequests:      minRequests,
			FailureThreshold: threshold,
		},
	}
}

func TestIndependentCircuitBreakerConfigurations(t *testing.T) {
	suggestCB := NewAICircuitBreaker("suggest", breakerConfig(3, 3, 0.6), nil)
	scoreCB := NewAICircuitBreaker("score", breakerConfig(5, 2, 0.7), nil)

	t.Run("SuggestCircuitBreaker", func(t *testing.T) {
		stats := suggestCB.GetStats()

		name, ok := stats["name"].(string)
		if !ok {
			t.Fatal("Circuit breaker name not found")
		}
		if name != "AI-suggest" {
			t.Errorf("Expected circuit breaker name 'AI-suggest', got '%s'", name)
		}

		state, ok := stats["state"].(string)
		if !ok {
			t.Fatal("Circuit breaker state not found")
		}
		if state != "closed" {
			t.Errorf("Expected initial state 'closed', got '%s'", state)
		}

		if enabled, _ := stats["enabled"].(bool); !enabled {
			t.Error("Circuit breaker should be enabled")
		}
	})

	t.Run("ScoreCircuitBreaker", func(t *testing.T) {
		if name, _ := scoreCB.GetStats()["name"].(string); name != "AI-score" {
			t.Errorf("Expected circuit breaker name 'AI-score', got '%s'", name)
		}
	})

	t.Run("IndependentHealthStates", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			_, _ = suggestCB.Execute(func() (*Generation, error) {
				return nil, fmt.Errorf("upstream failure")
			})
		}

		if suggestCB.IsHealthy() {
			t.Error("Suggest circuit breaker should open after repeated failures")
		}
		if !scoreCB.IsHealthy() {
			t.Error("Score circuit breaker should be unaffected")
		}
	})
}

func TestCircuitBreakerOpensAndRejects(t *testing.T) {
	cb := NewAICircuitBreaker("Test", breakerConfig(1, 2, 0.5), nil)

	calls := 0
	failing := func() (*Generation, error) {
		calls++
		return nil, fmt.Errorf("boom")
	}

	_, _ = cb.Execute(failing)
	_, _ = cb.Execute(failing)

	_, err := cb.Execute(failing)
	if err != gobreaker.ErrOpenState {
		t.Errorf("Expected open state error, got %v", err)
	}
	if calls != 2 {
		t.Errorf("Expected 2 calls to reach the function, got %d", calls)
	}
}

func TestModelCircuitBreakerIsLenient(t *testing.T) {
	cb := NewModelCircuitBreaker("models", breakerConfig(3, 1, 0.1), nil)

	for i := 0; i < 4; i++ {
		_, _ = cb.Execute(func() ([]ModelInfo, error) {
			return nil, fmt.Errorf("lookup failed")
		})
	}
	if !cb.IsHealthy() {
		t.Error("Model breaker should stay closed below five requests")
	}

	_, _ = cb.Execute(func() ([]ModelInfo, error) {
		return nil, fmt.Errorf("lookup failed")
	})
	if cb.IsHealthy() {
		t.Error("Model breaker should open after five failed requests")
	}
}

func TestCircuitBreakerDisabled(t *testing.T) {
	disabledConfig := &config.OperationAIConfig{
		Provider: "gemini",
		Model:    "test-model",
	}

	cb := NewAICircuitBreaker("Disabled", disabledConfig, nil)
	if cb != nil {
		t.Fatal("Circuit breaker should be nil when disabled")
	}

	// A nil breaker passes calls straight through
	gen, err := cb.Execute(func() (*Generation, error) {
		return &Generation{Text: "ok"}, nil
	})
	if err != nil || gen.Text != "ok" {
		t.Errorf("Expected direct execution, got %v, %v", gen, err)
	}
	if enabled, _ := cb.GetStats()["enabled"].(bool); enabled {
		t.Error("Disabled breaker should report enabled=false")
	}
	if !cb.IsHealthy() {
		t.Error("Disabled breaker should be healthy")
	}
}
