package core

import (
	"context"
	"time"

	"github.com/nshkrdotcom/agentrt/telemetry"
)

// CircuitBreaker protects a directive's external effect (an Emit dispatch,
// a Spawn's spawn_fun call) against cascading failures, the same contract
// the teacher's resilience package exposes to HTTP callers.
type CircuitBreaker interface {
	Execute(ctx context.Context, fn func() error) error
	ExecuteWithTimeout(ctx context.Context, timeout time.Duration, fn func() error) error
	GetState() string
	GetMetrics() map[string]interface{}
	Reset()
	CanExecute() bool
}

// CircuitBreakerConfig configures a CircuitBreaker implementation.
type CircuitBreakerConfig struct {
	Enabled          bool
	Threshold        int
	Timeout          time.Duration
	HalfOpenRequests int
}

// CircuitBreakerParams bundles a CircuitBreakerConfig with the collaborators
// an implementation needs for logging and metrics.
type CircuitBreakerParams struct {
	Name      string
	Config    CircuitBreakerConfig
	Logger    Logger
	Telemetry telemetry.Telemetry
}

// DefaultCircuitBreakerParams returns sensible defaults for a named breaker.
func DefaultCircuitBreakerParams(name string) CircuitBreakerParams {
	return CircuitBreakerParams{
		Name: name,
		Config: CircuitBreakerConfig{
			Enabled:          true,
			Threshold:        5,
			Timeout:          30 * time.Second,
			HalfOpenRequests: 3,
		},
	}
}
