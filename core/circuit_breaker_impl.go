package core

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// simpleCircuitBreaker is a minimal closed/open/half-open breaker, grounded
// on the three-state model the teacher's CircuitBreaker interface documents.
type simpleCircuitBreaker struct {
	params CircuitBreakerParams

	mu          sync.Mutex
	state       string // closed, open, half-open
	failures    int
	successes   int
	openedAt    time.Time
	halfOpenHits int
}

// NewCircuitBreaker builds the default in-process CircuitBreaker.
func NewCircuitBreaker(params CircuitBreakerParams) CircuitBreaker {
	return &simpleCircuitBreaker{params: params, state: "closed"}
}

func (b *simpleCircuitBreaker) CanExecute() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.canExecuteLocked()
}

func (b *simpleCircuitBreaker) canExecuteLocked() bool {
	if !b.params.Config.Enabled {
		return true
	}
	switch b.state {
	case "open":
		if time.Since(b.openedAt) >= b.params.Config.Timeout {
			b.state = "half-open"
			b.halfOpenHits = 0
			return true
		}
		return false
	default:
		return true
	}
}

func (b *simpleCircuitBreaker) Execute(ctx context.Context, fn func() error) error {
	b.mu.Lock()
	if !b.canExecuteLocked() {
		b.mu.Unlock()
		return NewError(fmt.Sprintf("circuit_breaker.%s", b.params.Name), KindExecution, fmt.Errorf("circuit open"))
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.failures++
		if b.state == "half-open" || b.failures >= b.params.Config.Threshold {
			b.state = "open"
			b.openedAt = time.Now()
		}
		return err
	}
	b.successes++
	if b.state == "half-open" {
		b.halfOpenHits++
		if b.halfOpenHits >= b.params.Config.HalfOpenRequests {
			b.state = "closed"
			b.failures = 0
		}
	} else {
		b.failures = 0
	}
	return nil
}

func (b *simpleCircuitBreaker) ExecuteWithTimeout(ctx context.Context, timeout time.Duration, fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()
	return b.Execute(ctx, func() error {
		select {
		case err := <-done:
			return err
		case <-time.After(timeout):
			return ErrCallTimeout
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

func (b *simpleCircuitBreaker) GetState() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *simpleCircuitBreaker) GetMetrics() map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	return map[string]interface{}{
		"state":     b.state,
		"failures":  b.failures,
		"successes": b.successes,
	}
}

func (b *simpleCircuitBreaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = "closed"
	b.failures = 0
	b.successes = 0
	b.halfOpenHits = 0
}
