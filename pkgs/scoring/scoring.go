// Package scoring implements the shared miner/validator scoring formula.
// Both sides must produce bit-identical results for identical inputs; any
// divergence here is a correctness bug, not a tolerance case.
package scoring

import (
	"math"
	"sort"
	"time"

	"github.com/Andrew-Costa-10114/talisman-ai/pkgs/models"
)

// Component weights for the final score. These are protocol constants: every
// validator and miner must use the same values.
const (
	RelevanceWeight = 0.50
	ValueWeight     = 0.40
	RecencyWeight   = 0.10

	// TopK is the number of highest-relevance tokens averaged into the
	// relevance component.
	TopK = 5

	// RecencyHorizonHours is the linear decay window: a post older than
	// this scores 0 on recency.
	RecencyHorizonHours = 24.0
)

// Caps define the normalization thresholds for the engagement components.
// Values at or above a cap normalize to 1.0.
type Caps struct {
	Likes          float64
	Retweets       float64
	Quotes         float64
	Replies        float64
	Followers      float64
	AccountAgeDays float64
}

// DefaultCaps are the protocol-wide normalization caps.
var DefaultCaps = Caps{
	Likes:          5000,
	Retweets:       1000,
	Quotes:         300,
	Replies:        600,
	Followers:      200000,
	AccountAgeDays: 7 * 365,
}

// valueWeights is the fixed weight vector over the six normalized engagement
// components, in the order likes, retweets, quotes, replies, followers,
// account age. Equal weights; kept identical on the miner and validator
// sides.
var valueWeights = [6]float64{1.0 / 6, 1.0 / 6, 1.0 / 6, 1.0 / 6, 1.0 / 6, 1.0 / 6}

// Components holds the per-component breakdown of one scored post.
type Components struct {
	Relevance float64 `json:"relevance"`
	Value     float64 `json:"value"`
	Recency   float64 `json:"recency"`
	Score     float64 `json:"score"`
}

func clamp01(x float64) float64 {
	return math.Max(0.0, math.Min(1.0, x))
}

func normCap(value, cap float64) float64 {
	return clamp01(value / cap)
}

// ValueScore is the capped, fixed-weight engagement composite in [0,1].
func ValueScore(likes, retweets, quotes, replies, followers, accountAgeDays int, caps Caps) float64 {
	comps := [6]float64{
		normCap(float64(likes), caps.Likes),
		normCap(float64(retweets), caps.Retweets),
		normCap(float64(quotes), caps.Quotes),
		normCap(float64(replies), caps.Replies),
		normCap(float64(followers), caps.Followers),
		normCap(float64(accountAgeDays), caps.AccountAgeDays),
	}
	var total float64
	for i, c := range comps {
		total += valueWeights[i] * c
	}
	return total
}

// RecencyScore decays linearly from 1.0 at postTime to 0.0 at the horizon.
// The caller supplies "now" so grading stays a pure function of its inputs.
func RecencyScore(postTime, now time.Time) float64 {
	ageHours := now.Sub(postTime).Hours()
	return clamp01(1.0 - ageHours/RecencyHorizonHours)
}

// TopKRelevance returns the mean of the k largest token relevance values, or
// 0 if the map is empty. Ties sort by key ascending so the result does not
// depend on map iteration order.
func TopKRelevance(tokens map[string]float64, k int) float64 {
	if len(tokens) == 0 || k <= 0 {
		return 0.0
	}
	type kv struct {
		key string
		val float64
	}
	items := make([]kv, 0, len(tokens))
	for key, val := range tokens {
		items = append(items, kv{key, val})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].val != items[j].val {
			return items[i].val > items[j].val
		}
		return items[i].key < items[j].key
	})
	if k > len(items) {
		k = len(items)
	}
	var sum float64
	for _, it := range items[:k] {
		sum += it.val
	}
	return sum / float64(k)
}

// ScorePost combines relevance, value, and recency for one post using the
// analyzer's token map and authoritative engagement metrics.
func ScorePost(analysis *models.AnalysisResult, gt *models.GroundTruth, now time.Time) Components {
	rel := TopKRelevance(analysis.Tokens, TopK)
	val := ValueScore(gt.Likes, gt.Retweets, gt.Quotes, gt.Replies, gt.Followers, gt.AccountAgeDays, DefaultCaps)
	rec := RecencyScore(time.Unix(gt.Timestamp, 0).UTC(), now)

	final := RelevanceWeight*rel + ValueWeight*val + RecencyWeight*rec
	return Components{
		Relevance: rel,
		Value:     val,
		Recency:   rec,
		Score:     clamp01(final),
	}
}
