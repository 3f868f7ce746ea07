package router

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCircuitBreaker_OpensAtThreshold(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute)

	for i := 0; i < 2; i++ {
		cb.OnFailure()
		assert.True(t, cb.Allow(), "should stay closed below threshold")
	}

	cb.OnFailure()
	assert.Equal(t, BreakerOpen, cb.State())
	assert.False(t, cb.Allow())
}

func TestCircuitBreaker_SuccessResetsCount(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute)

	cb.OnFailure()
	cb.OnFailure()
	cb.OnSuccess()
	cb.OnFailure()
	cb.OnFailure()

	assert.Equal(t, BreakerClosed, cb.State())
	assert.True(t, cb.Allow())
}

func TestCircuitBreaker_RecoveryProbe(t *testing.T) {
	current := time.Unix(1000, 0)
	cb := NewCircuitBreaker(1, 60*time.Second)
	cb.now = func() time.Time { return current }

	cb.OnFailure()
	assert.False(t, cb.Allow())

	// Before the recovery timeout the breaker stays shut.
	current = current.Add(59 * time.Second)
	assert.False(t, cb.Allow())

	// After the timeout one probe call is admitted.
	current = current.Add(2 * time.Second)
	assert.True(t, cb.Allow())
	assert.Equal(t, BreakerHalfOpen, cb.State())

	// A failed probe re-opens immediately.
	cb.OnFailure()
	assert.Equal(t, BreakerOpen, cb.State())
	assert.False(t, cb.Allow())

	// A successful probe closes the breaker.
	current = current.Add(61 * time.Second)
	assert.True(t, cb.Allow())
	cb.OnSuccess()
	assert.Equal(t, BreakerClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenAdmitsOneCall(t *testing.T) {
	current := time.Unix(1000, 0)
	cb := NewCircuitBreaker(1, 60*time.Second)
	cb.now = func() time.Time { return current }

	cb.OnFailure()
	current = current.Add(61 * time.Second)

	// Only the first caller gets through while the trial call is in
	// flight; everyone else waits for its outcome.
	assert.True(t, cb.Allow())
	assert.False(t, cb.Allow())
	assert.False(t, cb.Allow())

	cb.OnSuccess()
	assert.True(t, cb.Allow())
	assert.True(t, cb.Allow())

	// Same single-admission rule after a failed trial re-opens it.
	cb.OnFailure()
	current = current.Add(61 * time.Second)
	assert.True(t, cb.Allow())
	assert.False(t, cb.Allow())
	cb.OnFailure()
	assert.Equal(t, BreakerOpen, cb.State())
	assert.False(t, cb.Allow())
}

func TestBreakerState_String(t *testing.T) {
	assert.Equal(t, "CLOSED", BreakerClosed.String())
	assert.Equal(t, "OPEN", BreakerOpen.String())
	assert.Equal(t, "HALF_OPEN", BreakerHalfOpen.String())
}
