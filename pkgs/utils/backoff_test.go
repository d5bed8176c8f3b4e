package utils

import (
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
)

func TestRetryBackOffSchedule(t *testing.T) {
	b := NewRetryBackOff(100*time.Millisecond, 3, 30*time.Millisecond)

	assert.Equal(t, 130*time.Millisecond, b.NextBackOff())
	assert.Equal(t, 230*time.Millisecond, b.NextBackOff())
	// Third attempt exhausts the schedule.
	assert.Equal(t, backoff.Stop, b.NextBackOff())
}

func TestRetryBackOffReset(t *testing.T) {
	b := NewRetryBackOff(100*time.Millisecond, 2, 0)
	assert.Equal(t, 100*time.Millisecond, b.NextBackOff())
	assert.Equal(t, backoff.Stop, b.NextBackOff())

	b.Reset()
	assert.Equal(t, 100*time.Millisecond, b.NextBackOff())
}

func TestRetryBackOffSingleAttempt(t *testing.T) {
	b := NewRetryBackOff(100*time.Millisecond, 1, 0)
	assert.Equal(t, backoff.Stop, b.NextBackOff())
}

func TestDeterministicJitter(t *testing.T) {
	// Same id, same jitter, always.
	first := DeterministicJitter("unit-abc-123")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, DeterministicJitter("unit-abc-123"))
	}

	ids := []string{"a", "b", "c", "post-1", "post-2", "1234567890"}
	for _, id := range ids {
		j := DeterministicJitter(id)
		assert.GreaterOrEqual(t, j, time.Duration(0))
		assert.LessOrEqual(t, j, 200*time.Millisecond)
		assert.Zero(t, j%(10*time.Millisecond), "jitter must be in 10ms steps")
	}
}
