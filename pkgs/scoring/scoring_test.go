package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Andrew-Costa-10114/talisman-ai/pkgs/models"
)

func TestValueScoreCaps(t *testing.T) {
	// Everything at or above its cap normalizes to 1.0, so the composite is
	// exactly 1.0.
	full := ValueScore(5000, 1000, 300, 600, 200000, 7*365, DefaultCaps)
	assert.InDelta(t, 1.0, full, 1e-12)

	over := ValueScore(999999, 999999, 999999, 999999, 9999999, 99999, DefaultCaps)
	assert.InDelta(t, 1.0, over, 1e-12)

	zero := ValueScore(0, 0, 0, 0, 0, 0, DefaultCaps)
	assert.Equal(t, 0.0, zero)
}

func TestValueScoreEqualWeights(t *testing.T) {
	// Only likes at cap: one of six equal-weight components.
	likesOnly := ValueScore(5000, 0, 0, 0, 0, 0, DefaultCaps)
	assert.InDelta(t, 1.0/6.0, likesOnly, 1e-12)

	// Half the likes cap contributes half a component.
	halfLikes := ValueScore(2500, 0, 0, 0, 0, 0, DefaultCaps)
	assert.InDelta(t, 0.5/6.0, halfLikes, 1e-12)
}

func TestRecencyScore(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.InDelta(t, 1.0, RecencyScore(now, now), 1e-12)
	assert.InDelta(t, 0.5, RecencyScore(now.Add(-12*time.Hour), now), 1e-12)
	assert.InDelta(t, 0.0, RecencyScore(now.Add(-24*time.Hour), now), 1e-12)
	// Older than the horizon clamps to zero, never negative.
	assert.Equal(t, 0.0, RecencyScore(now.Add(-48*time.Hour), now))
	// Future timestamps clamp to 1.0.
	assert.Equal(t, 1.0, RecencyScore(now.Add(2*time.Hour), now))
}

func TestTopKRelevance(t *testing.T) {
	tokens := map[string]float64{
		"a": 0.9, "b": 0.8, "c": 0.7, "d": 0.6, "e": 0.5, "f": 0.1,
	}
	// Top 5 of six: f is excluded.
	assert.InDelta(t, (0.9+0.8+0.7+0.6+0.5)/5, TopKRelevance(tokens, 5), 1e-12)

	// Fewer tokens than k averages over what exists.
	assert.InDelta(t, (0.9+0.8)/2, TopKRelevance(map[string]float64{"a": 0.9, "b": 0.8}, 5), 1e-12)

	assert.Equal(t, 0.0, TopKRelevance(nil, 5))
	assert.Equal(t, 0.0, TopKRelevance(map[string]float64{"a": 0.9}, 0))
}

func TestTopKRelevanceTieBreakDeterministic(t *testing.T) {
	// Six tokens share one value; the top-5 mean is identical regardless of
	// which five are picked, but the selection itself must be stable.
	tokens := map[string]float64{
		"a": 0.5, "b": 0.5, "c": 0.5, "d": 0.5, "e": 0.5, "f": 0.5,
	}
	first := TopKRelevance(tokens, 5)
	for i := 0; i < 50; i++ {
		require.Equal(t, first, TopKRelevance(tokens, 5))
	}
}

func TestScorePost(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	analysis := &models.AnalysisResult{
		Tokens:    map[string]float64{"alpha": 0.8, "beta": 0.6},
		Sentiment: 0.2,
	}
	gt := &models.GroundTruth{
		PostID:    "p1",
		Timestamp: now.Unix(), // recency = 1.0
		Likes:     5000,       // value = 1/6
	}

	comps := ScorePost(analysis, gt, now)
	assert.InDelta(t, 0.7, comps.Relevance, 1e-12)
	assert.InDelta(t, 1.0/6.0, comps.Value, 1e-12)
	assert.InDelta(t, 1.0, comps.Recency, 1e-12)

	want := RelevanceWeight*0.7 + ValueWeight*(1.0/6.0) + RecencyWeight*1.0
	assert.InDelta(t, want, comps.Score, 1e-12)
	assert.GreaterOrEqual(t, comps.Score, 0.0)
	assert.LessOrEqual(t, comps.Score, 1.0)
}

func TestScorePostDeterministic(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	analysis := &models.AnalysisResult{
		Tokens: map[string]float64{
			"a": 0.91, "b": 0.82, "c": 0.73, "d": 0.64, "e": 0.55,
			"f": 0.46, "g": 0.37, "h": 0.55, "i": 0.64,
		},
		Sentiment: -0.3,
	}
	gt := &models.GroundTruth{
		Timestamp:      now.Add(-7 * time.Hour).Unix(),
		Likes:          123,
		Retweets:       45,
		Quotes:         6,
		Replies:        78,
		Followers:      9012,
		AccountAgeDays: 345,
	}

	first := ScorePost(analysis, gt, now)
	for i := 0; i < 100; i++ {
		got := ScorePost(analysis, gt, now)
		// Bit-identical, not merely close.
		require.Equal(t, first, got)
	}
}
