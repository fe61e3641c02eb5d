package external

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by Allow when the breaker has tripped and the
// cooldown has not yet elapsed.
var ErrCircuitOpen = errors.New("external: circuit breaker open")

// CircuitBreaker trips after a run of consecutive failures and stays open
// for a cooldown window, after which it closes again. Factored
// into its own small file rather than inlining retry/backoff state inside
// each HTTP client.
type CircuitBreaker struct {
	mu                  sync.Mutex
	failureThreshold    int
	cooldown            time.Duration
	consecutiveFailures int
	openedAt            time.Time
	open                bool
}

func NewCircuitBreaker(failureThreshold int, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{failureThreshold: failureThreshold, cooldown: cooldown}
}

// Allow reports whether a call may proceed. Once the cooldown has elapsed
// it closes the breaker and resets the failure streak, so every call is let
// through again; there is no half-open state limited to one trial call.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if !cb.open {
		return nil
	}
	if time.Since(cb.openedAt) >= cb.cooldown {
		cb.open = false
		cb.consecutiveFailures = 0
		return nil
	}
	return ErrCircuitOpen
}

// RecordSuccess resets the failure streak.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.consecutiveFailures = 0
	cb.open = false
}

// RecordFailure increments the failure streak and trips the breaker once
// the threshold is reached.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.consecutiveFailures++
	if cb.consecutiveFailures >= cb.failureThreshold {
		cb.open = true
		cb.openedAt = time.Now()
	}
}
