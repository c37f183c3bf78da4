package worker

import (
	"math/rand/v2"
	"time"
)

// Backoff doubles from Base up to Max and adds up to Jitter on top, so
// several workers failing together do not retry in lockstep.
type Backoff struct {
	Base   time.Duration
	Max    time.Duration
	Jitter time.Duration
}

var defaultBackoff = Backoff{
	Base:   2 * time.Second,
	Max:    5 * time.Minute,
	Jitter: 250 * time.Millisecond,
}

// Next is the pause after the attempt-th consecutive failure (0-based).
func (b Backoff) Next(attempt int) time.Duration {
	delay := b.Max
	if attempt < 32 {
		if d := b.Base << attempt; d > 0 && d < b.Max {
			delay = d
		}
	}

	if b.Jitter > 0 {
		delay += rand.N(b.Jitter)
	}
	return delay
}
