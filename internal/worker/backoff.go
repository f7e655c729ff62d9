package worker

import (
	"math/rand"
	"time"
)

// Backoff computes jittered exponential retry delays. The jitter keeps a
// fleet of workers from retrying the same task in lockstep.
type Backoff struct {
	Base time.Duration
	Cap  time.Duration
}

// Delay returns the delay before the next execution after the given
// 1-based attempt number. The raw delay doubles with every attempt up to
// Cap, then a random factor in [0.5, 1.0) is applied.
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := b.Base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= b.Cap {
			delay = b.Cap
			break
		}
	}
	if delay > b.Cap {
		delay = b.Cap
	}

	jitter := 0.5 + rand.Float64()*0.5
	return time.Duration(float64(delay) * jitter)
}
