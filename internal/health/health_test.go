package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jbelanger/exitbook/internal/circuitbreaker"
)

func TestScore_HealthyFastProviderExample(t *testing.T) {
	h := Health{IsHealthy: true, AverageResponseTime: 0, ErrorRate: 0, ConsecutiveFailures: 0}
	rl := RateLimitSample{RequestsPerSecond: 5}
	assert.Equal(t, 130, Score(h, circuitbreaker.StateClosed, rl))
}

func TestScore_UnhealthyDropsFifty(t *testing.T) {
	h := Health{IsHealthy: false, AverageResponseTime: 0, ErrorRate: 0, ConsecutiveFailures: 0}
	rl := RateLimitSample{RequestsPerSecond: 5}
	assert.Equal(t, 80, Score(h, circuitbreaker.StateClosed, rl))
}

func TestScore_OpenCircuitDominatesButClampsToZero(t *testing.T) {
	h := Health{IsHealthy: false, AverageResponseTime: 10 * time.Second, ErrorRate: 1, ConsecutiveFailures: 5}
	rl := RateLimitSample{RequestsPerSecond: 0.1}
	assert.Equal(t, 0, Score(h, circuitbreaker.StateOpen, rl))
}

func TestScore_HalfOpenPenalty(t *testing.T) {
	h := Health{IsHealthy: true}
	rl := RateLimitSample{}
	closed := Score(h, circuitbreaker.StateClosed, rl)
	halfOpen := Score(h, circuitbreaker.StateHalfOpen, rl)
	assert.Equal(t, 25, closed-halfOpen)
}

func TestScore_ErrorRateRounding(t *testing.T) {
	h := Health{IsHealthy: true, ErrorRate: 0.5}
	got := Score(h, circuitbreaker.StateClosed, RateLimitSample{})
	// 100 base, -40 for a rate below 0.5 req/s, +20 for sub-second
	// latency, -25 for round(50 * 0.5).
	assert.Equal(t, 100-40+20-25, got)
}

func TestScore_NeverNegative(t *testing.T) {
	h := Health{IsHealthy: false, AverageResponseTime: time.Minute, ErrorRate: 1, ConsecutiveFailures: 50}
	got := Score(h, circuitbreaker.StateOpen, RateLimitSample{RequestsPerSecond: 0})
	assert.GreaterOrEqual(t, got, 0)
}
