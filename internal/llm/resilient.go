package llm

import (
	"context"
	"time"

	"innerworld-backend/internal/resilience"
)

// ResilientClient wraps a Client with retry-with-backoff and a
// circuit breaker, the same resilience.RetryConfig/CircuitBreaker
// pair the teacher applies around its DynamoDB calls, generalized
// here to the LLM transport since an unreachable model backend is
// exactly the kind of transient failure that pair is built for.
type ResilientClient struct {
	inner   Client
	retry   resilience.RetryConfig
	breaker *resilience.CircuitBreaker
}

// NewResilientClient wraps inner with the given retry and
// circuit-breaker tuning.
func NewResilientClient(inner Client, retry resilience.RetryConfig, breaker *resilience.CircuitBreaker) *ResilientClient {
	return &ResilientClient{inner: inner, retry: retry, breaker: breaker}
}

// Complete implements Client, retrying transient failures with
// exponential backoff and short-circuiting once the breaker trips.
func (c *ResilientClient) Complete(ctx context.Context, req Request) (*Response, error) {
	var resp *Response
	err := c.breaker.Execute(ctx, func() error {
		var innerErr error
		resp, innerErr = resilience.RetryWithBackoff(ctx, c.retry, resilience.LLMRetryableErrors, func(ctx context.Context, attempt int) (*Response, error) {
			return c.inner.Complete(ctx, req)
		})
		return innerErr
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// ResilienceConfigToRetryConfig converts the float-seconds tunables in
// config.ResilienceConfig into the time.Duration shape
// resilience.RetryConfig expects.
func ResilienceConfigToRetryConfig(maxAttempts int, initialDelaySeconds, maxDelaySeconds, backoffMultiplier float64) resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:       maxAttempts,
		InitialDelay:      time.Duration(initialDelaySeconds * float64(time.Second)),
		MaxDelay:          time.Duration(maxDelaySeconds * float64(time.Second)),
		BackoffMultiplier: backoffMultiplier,
	}
}
