package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetricAllowance(t *testing.T) {
	tol := DefaultTolerances()

	tests := []struct {
		truth   int
		allowed int
	}{
		{0, 1},    // floor of one unit
		{1, 2},    // ceil(0.1) = 1 < floor, so floor applies
		{5, 6},    // ceil(0.5) = 1
		{10, 11},  // ceil(1.0) = 1
		{95, 105}, // ceil(9.5) = 10
		{100, 110},
		{1000, 1100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.allowed, tol.MetricAllowance(tt.truth), "truth=%d", tt.truth)
	}
}

func TestDefaultTolerances(t *testing.T) {
	tol := DefaultTolerances()
	assert.Equal(t, 0.05, tol.TokenTolerance)
	assert.Equal(t, 0.05, tol.SentimentTolerance)
	assert.Equal(t, 0.05, tol.ScoreTolerance)
	assert.Equal(t, 0.10, tol.MetricRelativeTolerance)
	assert.Equal(t, 0.05, tol.TokenNoiseFloor)
	assert.Equal(t, 128, tol.TokenCap)
}
