// Package resilience provides retry-with-backoff and circuit-breaker
// helpers shared by the LLM client and repository implementations.
package resilience

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"
)

// RetryConfig defines retry behavior.
type RetryConfig struct {
	MaxAttempts       int           // Maximum number of retry attempts
	InitialDelay      time.Duration // Initial delay before first retry
	MaxDelay          time.Duration // Maximum delay between retries
	BackoffMultiplier float64       // Multiplier for exponential backoff
}

// DefaultRetryConfig provides sensible defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialDelay:      1 * time.Second,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// RetryableFunc defines a function that can be retried.
type RetryableFunc[T any] func(ctx context.Context, attempt int) (T, error)

// IsRetryableError determines if an error should trigger a retry.
type IsRetryableError func(error) bool

// RetryWithBackoff executes a function with exponential backoff retry logic.
func RetryWithBackoff[T any](ctx context.Context, config RetryConfig, isRetryable IsRetryableError, fn RetryableFunc[T]) (T, error) {
	var lastErr error
	var result T

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		result, err := fn(ctx, attempt)
		if err == nil {
			if attempt > 1 {
				log.Printf("Operation succeeded on attempt %d", attempt)
			}
			return result, nil
		}

		lastErr = err

		if !isRetryable(err) {
			log.Printf("Non-retryable error on attempt %d: %v", attempt, err)
			return result, fmt.Errorf("non-retryable error: %w", err)
		}

		if attempt == config.MaxAttempts {
			break
		}

		delay := time.Duration(float64(config.InitialDelay) * math.Pow(config.BackoffMultiplier, float64(attempt-1)))
		if delay > config.MaxDelay {
			delay = config.MaxDelay
		}

		log.Printf("Attempt %d failed, retrying in %v: %v", attempt, delay, err)

		select {
		case <-ctx.Done():
			return result, fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}
	}

	log.Printf("All %d attempts failed", config.MaxAttempts)
	return result, fmt.Errorf("retry exhausted after %d attempts, last error: %w", config.MaxAttempts, lastErr)
}

// Common retry predicates

// DefaultRetryableErrors returns true for common transient errors.
func DefaultRetryableErrors(err error) bool {
	if err == nil {
		return false
	}

	errStr := err.Error()

	if contains(errStr, "connection refused") ||
		contains(errStr, "connection reset") ||
		contains(errStr, "connection timeout") ||
		contains(errStr, "temporary failure") ||
		contains(errStr, "service unavailable") ||
		contains(errStr, "timeout") {
		return true
	}

	if contains(errStr, "ThrottlingException") ||
		contains(errStr, "ServiceUnavailableException") ||
		contains(errStr, "InternalServerError") ||
		contains(errStr, "RequestTimeout") {
		return true
	}

	return false
}

// RepositoryRetryableErrors checks for repository-backend-specific
// retryable errors (teacher's DynamoDBRetryableErrors, generalized
// past a single backend since the Repository contract is now
// satisfied by either an in-memory or a DynamoDB implementation).
func RepositoryRetryableErrors(err error) bool {
	if DefaultRetryableErrors(err) {
		return true
	}

	errStr := err.Error()
	return contains(errStr, "ProvisionedThroughputExceededException") ||
		contains(errStr, "RequestLimitExceeded") ||
		contains(errStr, "UnprocessedItems") ||
		contains(errStr, "ConcurrentModificationException")
}

// LLMRetryableErrors checks for LLM-backend-specific retryable
// errors, covering both the OpenRouter HTTP client and the OpenAI SDK
// client.
func LLMRetryableErrors(err error) bool {
	if DefaultRetryableErrors(err) {
		return true
	}

	errStr := err.Error()
	return contains(errStr, "rate limit") ||
		contains(errStr, "429") ||
		contains(errStr, "502") ||
		contains(errStr, "503") ||
		contains(errStr, "504")
}

// contains is a simple case-sensitive substring helper.
func contains(s, substr string) bool {
	return strings.Contains(s, substr)
}

// CircuitBreaker implements the circuit breaker pattern for failing services.
type CircuitBreaker struct {
	maxFailures  int
	resetTimeout time.Duration
	failureCount int
	lastFailTime time.Time
	state        CircuitState
}

// CircuitState represents the circuit breaker state.
type CircuitState int

const (
	CircuitClosed   CircuitState = iota // Normal operation
	CircuitOpen                         // Failing, reject requests
	CircuitHalfOpen                     // Testing if service recovered
)

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(maxFailures int, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		state:        CircuitClosed,
	}
}

// Execute runs a function through the circuit breaker.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func() error) error {
	if cb.state == CircuitOpen && time.Since(cb.lastFailTime) > cb.resetTimeout {
		cb.state = CircuitHalfOpen
		log.Printf("Circuit breaker transitioning to half-open state")
	}

	if cb.state == CircuitOpen {
		return fmt.Errorf("circuit breaker is open, rejecting request")
	}

	err := fn()

	if err != nil {
		cb.onFailure()
		return err
	}

	cb.onSuccess()
	return nil
}

func (cb *CircuitBreaker) onFailure() {
	cb.failureCount++
	cb.lastFailTime = time.Now()

	if cb.failureCount >= cb.maxFailures {
		cb.state = CircuitOpen
		log.Printf("Circuit breaker opened after %d failures", cb.failureCount)
	}
}

func (cb *CircuitBreaker) onSuccess() {
	cb.failureCount = 0

	if cb.state == CircuitHalfOpen {
		cb.state = CircuitClosed
		log.Printf("Circuit breaker closed - service recovered")
	}
}

// GetState returns the current circuit breaker state.
func (cb *CircuitBreaker) GetState() CircuitState {
	return cb.state
}
