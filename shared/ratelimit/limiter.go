package ratelimit

import (
	"context"
	"errors"
	"strings"
	"time"
)

const (
	DefaultWindow  = time.Minute
	DefaultCeiling = 3
)

var ErrLimiterUnavailable = errors.New("rate limiter unavailable")

// Counter counts hits per key inside a fixed window that starts at the first hit.
// IncrementAndCheck reports whether the hit is within ceiling. Implementations
// must make the increment atomic per key.
type Counter interface {
	IncrementAndCheck(ctx context.Context, key string, window time.Duration, ceiling int) (bool, error)
}

// Limiter bounds how often an identifier may perform an action.
type Limiter struct {
	counter Counter
	prefix  string
	window  time.Duration
	ceiling int
}

// NewLimiter creates a Limiter. Non-positive window or ceiling fall back to the defaults.
func NewLimiter(counter Counter, prefix string, window time.Duration, ceiling int) *Limiter {
	if window <= 0 {
		window = DefaultWindow
	}
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}

	return &Limiter{
		counter: counter,
		prefix:  prefix,
		window:  window,
		ceiling: ceiling,
	}
}

// Allow records one request for identifier and reports whether it is permitted.
func (l *Limiter) Allow(ctx context.Context, identifier string) (bool, error) {
	key := l.prefix + strings.ToLower(strings.TrimSpace(identifier))
	return l.counter.IncrementAndCheck(ctx, key, l.window, l.ceiling)
}

// Window returns the configured window length.
func (l *Limiter) Window() time.Duration {
	return l.window
}
