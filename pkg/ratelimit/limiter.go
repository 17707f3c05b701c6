package ratelimit

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var (
	rateLimitWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "artic_rate_limit_waits_total",
		Help: "Total number of requests delayed by the rate limiter",
	})

	rateLimitPausesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "artic_rate_limit_pauses_total",
		Help: "Total number of pauses triggered by 429 responses",
	})
)

// Config holds limiter configuration.
type Config struct {
	// RequestsPerSecond is the sustained request rate. Zero or less disables
	// proactive throttling.
	RequestsPerSecond float64

	// Burst is the number of requests allowed at once.
	Burst int
}

// DefaultConfig returns the default limiter configuration.
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: DefaultRequestsPerSecond,
		Burst:             DefaultBurst,
	}
}

// Limiter gates outgoing requests. It is safe for concurrent use.
type Limiter struct {
	mu          sync.Mutex
	bucket      *rate.Limiter
	pausedUntil time.Time
	pauses      int
	logger      zerolog.Logger
}

// NewLimiter creates a limiter.
func NewLimiter(cfg Config, logger zerolog.Logger) *Limiter {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Limiter{
		bucket: rate.NewLimiter(limit, burst),
		logger: logger,
	}
}

// Wait blocks until a request may be sent or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	// 1. Reactive pause after a 429
	if wait := l.State().TimeUntilResume(); wait > 0 {
		rateLimitWaitsTotal.Inc()
		l.logger.Debug().Dur("wait", wait).Msg("Request held by rate limit pause")

		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	// 2. Proactive token bucket
	start := time.Now()
	err := l.bucket.Wait(ctx)
	if time.Since(start) > time.Millisecond {
		rateLimitWaitsTotal.Inc()
	}
	return err
}

// Observe inspects a response and pauses the limiter when the server says
// it is rate limiting us.
func (l *Limiter) Observe(resp *http.Response) {
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		return
	}

	pause, ok := ParseRetryAfter(resp.Header.Get(HeaderRetryAfter), time.Now())
	if !ok {
		pause = DefaultPause
	}
	l.Pause(pause)
}

// Pause holds every request for d. A shorter pause never shortens an
// existing one.
func (l *Limiter) Pause(d time.Duration) {
	until := time.Now().Add(d)

	l.mu.Lock()
	if until.After(l.pausedUntil) {
		l.pausedUntil = until
	}
	l.pauses++
	l.mu.Unlock()

	rateLimitPausesTotal.Inc()
	l.logger.Warn().
		Dur("pause", d).
		Time("resume_at", until).
		Msg("artic API rate limit hit - pausing requests")
}

// State returns the current limiter state.
func (l *Limiter) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return State{PausedUntil: l.pausedUntil, Pauses: l.pauses}
}
