package domain

import (
	"fmt"
	"math"
	"time"
)

// BackoffPolicy returns the wait before the next call after the given
// attempt count. Implementations must be monotonically non-decreasing.
type BackoffPolicy interface {
	Delay(attempt int) time.Duration
}

// FixedBackoff waits the same interval after every attempt.
type FixedBackoff struct {
	Interval time.Duration
}

// Delay implements BackoffPolicy.
func (b FixedBackoff) Delay(int) time.Duration {
	return b.Interval
}

// ExponentialBackoff waits Base * Factor^(attempt-1), capped at Max when Max > 0.
type ExponentialBackoff struct {
	Base   time.Duration
	Factor float64
	Max    time.Duration
}

// Delay implements BackoffPolicy.
func (b ExponentialBackoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	factor := b.Factor
	if factor < 1 {
		factor = 1
	}

	d := float64(b.Base) * math.Pow(factor, float64(attempt-1))
	if b.Max > 0 && d > float64(b.Max) {
		return b.Max
	}
	if d >= math.MaxInt64 || math.IsInf(d, 0) || math.IsNaN(d) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

// NewBackoffPolicy builds the named policy ("fixed" or "exponential").
func NewBackoffPolicy(name string, base time.Duration, factor float64, max time.Duration) (BackoffPolicy, error) {
	if base <= 0 {
		return nil, fmt.Errorf("backoff base must be positive")
	}
	switch name {
	case "", "fixed":
		return FixedBackoff{Interval: base}, nil
	case "exponential":
		if max > 0 && max < base {
			return nil, fmt.Errorf("backoff max %s is below base %s", max, base)
		}
		return ExponentialBackoff{Base: base, Factor: factor, Max: max}, nil
	default:
		return nil, fmt.Errorf("unknown backoff policy %q", name)
	}
}
