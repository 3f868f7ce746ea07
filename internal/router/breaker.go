package router

import (
	"errors"
	"sync"
	"time"
)

// ErrBreakerOpen is returned when a venue is excluded due to repeated failures.
var ErrBreakerOpen = errors.New("circuit breaker open")

// BreakerState is the lifecycle state of a venue circuit breaker.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "CLOSED"
	case BreakerOpen:
		return "OPEN"
	case BreakerHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// CircuitBreaker gates calls to a single venue. Consecutive failures trip
// it open; after the recovery timeout one probe call is allowed through,
// and its outcome decides between closing and re-opening.
type CircuitBreaker struct {
	mu               sync.Mutex
	state            BreakerState
	failures         int
	failureThreshold int
	recoveryTimeout  time.Duration
	openedAt         time.Time
	probing          bool
	now              func() time.Time
}

func NewCircuitBreaker(failureThreshold int, recoveryTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		state:            BreakerClosed,
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
		now:              time.Now,
	}
}

// Allow reports whether a call may proceed. When the recovery timeout has
// elapsed on an open breaker it transitions to half-open and admits a
// single probe call; further callers are rejected until the probe's
// outcome lands.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case BreakerClosed:
		return true
	case BreakerHalfOpen:
		if cb.probing {
			return false
		}
		cb.probing = true
		return true
	case BreakerOpen:
		if cb.now().Sub(cb.openedAt) >= cb.recoveryTimeout {
			cb.state = BreakerHalfOpen
			cb.probing = true
			return true
		}
		return false
	default:
		return false
	}
}

// OnSuccess resets the breaker to closed.
func (cb *CircuitBreaker) OnSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.state = BreakerClosed
	cb.probing = false
}

// OnFailure records a failure. A half-open probe failure re-opens the
// breaker immediately; in closed state the breaker opens once consecutive
// failures reach the threshold.
func (cb *CircuitBreaker) OnFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	if cb.state == BreakerHalfOpen || cb.failures >= cb.failureThreshold {
		cb.state = BreakerOpen
		cb.openedAt = cb.now()
		cb.probing = false
	}
}

// State returns the current breaker state, applying any due open→half-open
// transition so callers observe the effective state.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == BreakerOpen && cb.now().Sub(cb.openedAt) >= cb.recoveryTimeout {
		cb.state = BreakerHalfOpen
	}
	return cb.state
}
