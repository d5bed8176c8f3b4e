package grading

import "math"

// ToleranceConfig holds the publicly documented tolerances applied during
// grading. Read-only after init; every validator must run the same values or
// consensus on verdicts breaks.
type ToleranceConfig struct {
	// TokenTolerance is the maximum absolute deviation per token relevance
	// value, tokens being in [0,1].
	TokenTolerance float64
	// SentimentTolerance is the maximum absolute sentiment deviation,
	// sentiment being in [-1,1].
	SentimentTolerance float64
	// ScoreTolerance caps how far a claimed score may exceed the
	// recomputed score. Underclaiming is never penalized.
	ScoreTolerance float64
	// MetricRelativeTolerance caps metric overstatement relative to ground
	// truth, with a floor of one unit.
	MetricRelativeTolerance float64
	// TokenNoiseFloor drops token values below it (on either side) before
	// comparison.
	TokenNoiseFloor float64
	// TokenCap bounds the number of distinct token keys compared.
	TokenCap int
}

// DefaultTolerances returns the protocol-wide tolerance constants.
func DefaultTolerances() ToleranceConfig {
	return ToleranceConfig{
		TokenTolerance:          0.05,
		SentimentTolerance:      0.05,
		ScoreTolerance:          0.05,
		MetricRelativeTolerance: 0.10,
		TokenNoiseFloor:         0.05,
		TokenCap:                128,
	}
}

// MetricAllowance returns the maximum claimed value accepted for a metric
// with the given ground-truth value: truth plus the larger of one unit or
// the relative tolerance, rounded up.
func (t ToleranceConfig) MetricAllowance(truth int) int {
	slack := math.Ceil(t.MetricRelativeTolerance * float64(truth))
	if slack < 1 {
		slack = 1
	}
	return truth + int(slack)
}
