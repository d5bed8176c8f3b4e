package utils

import (
	"crypto/md5"
	"encoding/binary"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryBackOff is a bounded, deterministic backoff schedule: attempt n waits
// base*n plus a fixed jitter, and the schedule stops after maxAttempts total
// attempts. Determinism matters here: independently-operated validators must
// behave identically for the same inputs, so the usual randomized jitter is
// replaced with a value derived from the work item id.
type RetryBackOff struct {
	Base        time.Duration
	Jitter      time.Duration
	MaxAttempts int

	attempt int
}

// NewRetryBackOff builds a schedule of maxAttempts attempts with the given
// base delay and deterministic jitter.
func NewRetryBackOff(base time.Duration, maxAttempts int, jitter time.Duration) *RetryBackOff {
	return &RetryBackOff{Base: base, Jitter: jitter, MaxAttempts: maxAttempts}
}

// NextBackOff implements backoff.BackOff.
func (b *RetryBackOff) NextBackOff() time.Duration {
	b.attempt++
	if b.attempt >= b.MaxAttempts {
		return backoff.Stop
	}
	return b.Base*time.Duration(b.attempt) + b.Jitter
}

// Reset implements backoff.BackOff.
func (b *RetryBackOff) Reset() {
	b.attempt = 0
}

// DeterministicJitter derives a stable jitter in [0, 200ms) from an
// identifier, in 10ms steps. The same id always yields the same jitter, so
// retry timing is reproducible across replays.
func DeterministicJitter(id string) time.Duration {
	sum := md5.Sum([]byte(id))
	seed := binary.BigEndian.Uint32(sum[:4]) % 21
	return time.Duration(seed) * 10 * time.Millisecond
}
