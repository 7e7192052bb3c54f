// Package circuitbreaker implements the per-provider circuit breaker
// of spec §4.2 (C3). State is a pure function of (failureCount,
// lastFailureTime, now) so it can be driven deterministically in
// property tests (spec §8: "given strictly monotonic time, the
// transition graph closed->open->half-open->(closed|open) is
// acyclic"). A third-party breaker (sony/gobreaker, seen in the
// retrieval pack) was considered and rejected because it reads
// time.Now() internally rather than accepting it as a parameter — see
// DESIGN.md.
package circuitbreaker

import (
	"sync"
	"time"
)

// State is the closed set of circuit states (spec §3 "CircuitState").
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

const (
	DefaultMaxFailures      = 3
	DefaultRecoveryTimeout  = 5 * time.Minute
)

// Breaker tracks one provider's failure history and derives its
// current state on demand.
type Breaker struct {
	mu sync.Mutex

	maxFailures     int
	recoveryTimeout time.Duration

	failureCount    int
	lastFailureTime time.Time
	lastSuccessTime time.Time

	// halfOpenProbeInFlight guarantees exactly one probe request is
	// admitted while the breaker is half-open (spec §3 invariant 4).
	halfOpenProbeInFlight bool
}

// New builds a Breaker. maxFailures <= 0 defaults to
// DefaultMaxFailures; recoveryTimeout <= 0 defaults to
// DefaultRecoveryTimeout.
func New(maxFailures int, recoveryTimeout time.Duration) *Breaker {
	if maxFailures <= 0 {
		maxFailures = DefaultMaxFailures
	}
	if recoveryTimeout <= 0 {
		recoveryTimeout = DefaultRecoveryTimeout
	}
	return &Breaker{maxFailures: maxFailures, recoveryTimeout: recoveryTimeout}
}

// RecordSuccess resets the failure count and marks the last success
// time. Also clears any in-flight half-open probe, closing the
// breaker.
func (b *Breaker) RecordSuccess(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failureCount = 0
	b.lastSuccessTime = now
	b.halfOpenProbeInFlight = false
}

// RecordFailure increments the failure count and marks the last
// failure time.
func (b *Breaker) RecordFailure(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failureCount++
	b.lastFailureTime = now
	b.halfOpenProbeInFlight = false
}

// State derives the current circuit state from accumulated failures
// and the caller-supplied clock reading (spec §4.2).
func (b *Breaker) State(now time.Time) State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked(now)
}

func (b *Breaker) stateLocked(now time.Time) State {
	if b.failureCount < b.maxFailures {
		return StateClosed
	}
	if now.Sub(b.lastFailureTime) < b.recoveryTimeout {
		return StateOpen
	}
	return StateHalfOpen
}

// AllowRequest reports whether a request may proceed right now, and
// reserves the single half-open probe slot if this call is the one
// that gets to use it. Callers that get allow=false should fail over
// without consuming a retry.
func (b *Breaker) AllowRequest(now time.Time) (allow bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.stateLocked(now) {
	case StateClosed:
		return true
	case StateHalfOpen:
		if b.halfOpenProbeInFlight {
			return false
		}
		b.halfOpenProbeInFlight = true
		return true
	default: // StateOpen
		return false
	}
}

// Snapshot returns the raw counters for persistence/inspection.
type Snapshot struct {
	FailureCount    int
	LastFailureTime time.Time
	LastSuccessTime time.Time
	MaxFailures     int
	RecoveryTimeoutMs int64
}

// Snapshot reads the breaker's current counters.
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{
		FailureCount:      b.failureCount,
		LastFailureTime:   b.lastFailureTime,
		LastSuccessTime:   b.lastSuccessTime,
		MaxFailures:       b.maxFailures,
		RecoveryTimeoutMs: b.recoveryTimeout.Milliseconds(),
	}
}
