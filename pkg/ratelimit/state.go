// Package ratelimit keeps requests to the artic.edu API below its published
// limit. A token bucket spaces requests out proactively and a 429 response
// pauses all requests until the server's Retry-After has elapsed.
package ratelimit

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultRequestsPerSecond keeps a single session under 60 requests a minute.
	DefaultRequestsPerSecond = 1.0

	// DefaultBurst lets a bulk selection issue a few page requests at once.
	DefaultBurst = 5

	// DefaultPause applies when a 429 arrives without a usable Retry-After.
	DefaultPause = 10 * time.Second

	// MaxPause caps a server-supplied Retry-After.
	MaxPause = 5 * time.Minute

	// HeaderRetryAfter is the retry-after header (seconds or HTTP date).
	HeaderRetryAfter = "Retry-After"
)

// State is a point-in-time view of the limiter.
type State struct {
	// PausedUntil is when requests may resume after a 429; zero when not paused.
	PausedUntil time.Time `json:"paused_until"`

	// Pauses counts 429 responses observed since the limiter was created.
	Pauses int `json:"pauses"`
}

// IsPaused reports whether requests are currently held back.
func (s State) IsPaused() bool {
	return !s.PausedUntil.IsZero() && time.Now().Before(s.PausedUntil)
}

// TimeUntilResume returns how long requests remain paused, or 0.
func (s State) TimeUntilResume() time.Duration {
	if !s.IsPaused() {
		return 0
	}
	return time.Until(s.PausedUntil)
}

// ParseRetryAfter interprets a Retry-After value given either as delay seconds
// or as an HTTP date. The result is clamped to [0, MaxPause].
func ParseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}

	var d time.Duration
	if seconds, err := strconv.Atoi(value); err == nil {
		d = time.Duration(seconds) * time.Second
	} else if at, err := http.ParseTime(value); err == nil {
		d = at.Sub(now)
	} else {
		return 0, false
	}

	if d < 0 {
		d = 0
	}
	if d > MaxPause {
		d = MaxPause
	}
	return d, true
}
