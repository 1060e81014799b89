package retry

import (
	"math"
	"math/rand"
	"time"
)

// Backoff computes exponential delays. The route poller uses it to widen the
// poll interval while the provider keeps rate-limiting.
type Backoff struct {
	Base       time.Duration // delay at attempt 0
	Max        time.Duration // upper bound for any delay
	Multiplier float64       // growth factor per attempt
	Jitter     bool          // randomize to prevent thundering herd
}

// DefaultBackoff returns a backoff suitable for provider rate limits.
func DefaultBackoff(base, max time.Duration) Backoff {
	return Backoff{
		Base:       base,
		Max:        max,
		Multiplier: 2.0,
		Jitter:     true,
	}
}

// Delay returns the wait before the given attempt (0-based).
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	multiplier := b.Multiplier
	if multiplier < 1 {
		multiplier = 2.0
	}

	delay := float64(b.Base) * math.Pow(multiplier, float64(attempt))
	if b.Max > 0 && delay > float64(b.Max) {
		delay = float64(b.Max)
	}

	if b.Jitter {
		// Up to 25% randomization, subtracted so the cap holds.
		delay -= delay * 0.25 * rand.Float64()
	}

	return time.Duration(delay)
}
