// Package health implements the deterministic provider health scorer
// of spec §4.3 (C4).
package health

import (
	"math"
	"time"

	"github.com/jbelanger/exitbook/internal/circuitbreaker"
)

// Health is the rolling health signal gathered about one provider,
// independent of its circuit state (spec §3 "ProviderHealth").
type Health struct {
	AverageResponseTime time.Duration
	ErrorRate           float64 // in [0,1]
	ConsecutiveFailures int
	IsHealthy           bool
	LastChecked         time.Time
	LastError           string
}

// RateLimitSample is the rate-limit shape fed into the scorer's
// rate-limit bonus term.
type RateLimitSample struct {
	RequestsPerSecond float64
}

// Score computes the deterministic health score for one provider from
// its health signal, circuit state, and rate limit, per the exact
// weights of spec §4.3. The result is clamped to >= 0.
func Score(h Health, circuitState circuitbreaker.State, rl RateLimitSample) int {
	score := 100

	if !h.IsHealthy {
		score -= 50
	}

	switch circuitState {
	case circuitbreaker.StateOpen:
		score -= 100
	case circuitbreaker.StateHalfOpen:
		score -= 25
	}

	switch {
	case rl.RequestsPerSecond >= 5:
		score += 10
	case rl.RequestsPerSecond >= 1:
		score += 5
	case rl.RequestsPerSecond < 0.5:
		score -= 40
	}

	switch {
	case h.AverageResponseTime < time.Second:
		score += 20
	case h.AverageResponseTime > 5*time.Second:
		score -= 30
	}

	score -= int(math.Round(50 * h.ErrorRate))
	score -= 10 * h.ConsecutiveFailures

	if score < 0 {
		score = 0
	}
	return score
}
