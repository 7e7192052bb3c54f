// Package ratelimit implements the per-provider rate limiter of spec
// §4.1 (C2). Acquiring a token is a cooperative wait: the caller blocks
// until every configured limit (per-second, per-minute, per-hour) would
// allow the request, at which point it returns how long it waited. All
// three limits are token buckets: the per-minute and per-hour ones
// refill at their count spread evenly over the window and share the
// burst capacity. They are not sliding-window counters, so any one
// minute or hour can admit up to the burst capacity above its count.
package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config describes one provider's declared rate limits. A zero value
// for a window means that window is not enforced.
type Config struct {
	RequestsPerSecond float64
	RequestsPerMinute float64
	RequestsPerHour   float64
	// BurstLimit is the token bucket capacity. Defaults to 1.
	BurstLimit int
}

// Limiter layers a per-second token bucket (the primary burst-capable
// limiter) under per-minute and per-hour token buckets, and can be
// pre-empted by a provider's own rate-limit hints (Retry-After,
// X-RateLimit-Reset).
type Limiter struct {
	perSecond *rate.Limiter
	perMinute *rate.Limiter
	perHour   *rate.Limiter

	// mu serializes Acquire calls so waiters are released in the
	// order they arrived (spec: "Fairness: FIFO among waiters").
	mu sync.Mutex

	preemptMu    sync.Mutex
	preemptUntil time.Time
}

// New builds a Limiter from a provider's declared Config.
func New(cfg Config) *Limiter {
	burst := cfg.BurstLimit
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		perSecond: windowLimiter(cfg.RequestsPerSecond, burst),
		perMinute: windowLimiter(cfg.RequestsPerMinute/60.0, burst),
		perHour:   windowLimiter(cfg.RequestsPerHour/3600.0, burst),
	}
}

func windowLimiter(perSecondRate float64, burst int) *rate.Limiter {
	if perSecondRate <= 0 {
		return rate.NewLimiter(rate.Inf, burst)
	}
	return rate.NewLimiter(rate.Limit(perSecondRate), burst)
}

// Acquire cooperatively waits until a token is available under every
// configured window, honoring any active pre-emption set by a prior
// OnResponse call. It returns the duration the caller actually waited.
func (l *Limiter) Acquire(ctx context.Context) (time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	start := time.Now()

	if err := l.waitForPreemption(ctx); err != nil {
		return time.Since(start), err
	}
	if err := l.perSecond.Wait(ctx); err != nil {
		return time.Since(start), err
	}
	if err := l.perMinute.Wait(ctx); err != nil {
		return time.Since(start), err
	}
	if err := l.perHour.Wait(ctx); err != nil {
		return time.Since(start), err
	}

	return time.Since(start), nil
}

func (l *Limiter) waitForPreemption(ctx context.Context) error {
	l.preemptMu.Lock()
	until := l.preemptUntil
	l.preemptMu.Unlock()

	wait := time.Until(until)
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// OnResponse parses Retry-After and X-RateLimit-Reset style headers
// and pre-empts future Acquire calls until the hinted time, whichever
// is later than any existing pre-emption.
func (l *Limiter) OnResponse(headers http.Header) {
	now := time.Now()
	var until time.Time

	if v := headers.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			until = now.Add(time.Duration(secs) * time.Second)
		} else if t, err := http.ParseTime(v); err == nil {
			until = t
		}
	}

	if v := headers.Get("X-RateLimit-Reset"); v != "" {
		if epoch, err := strconv.ParseInt(v, 10, 64); err == nil {
			candidate := time.Unix(epoch, 0)
			// Some providers report reset as a relative second count
			// rather than an absolute epoch; treat small values as
			// relative offsets.
			if epoch < 10_000 {
				candidate = now.Add(time.Duration(epoch) * time.Second)
			}
			if candidate.After(until) {
				until = candidate
			}
		}
	}

	if until.IsZero() {
		return
	}

	l.preemptMu.Lock()
	if until.After(l.preemptUntil) {
		l.preemptUntil = until
	}
	l.preemptMu.Unlock()
}
