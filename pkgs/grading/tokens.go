package grading

import (
	"math"
	"sort"

	"github.com/Andrew-Costa-10114/talisman-ai/pkgs/normalize"
)

// normalizeTokens rebuilds a token map with trimmed, lowercased keys.
func normalizeTokens(raw map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(raw))
	for k, v := range raw {
		out[normalize.TokenKey(k)] = v
	}
	return out
}

// selectTokens applies the comparison policy to the miner's and the
// validator's token maps:
//   - values below the noise floor are dropped on both sides
//   - every surviving validator token is kept (a miner cannot dodge
//     validator-relevant tokens by truncation)
//   - remaining miner-only tokens are added largest magnitude first, ties by
//     key ascending, until the cap on distinct keys is reached
//
// Returns the miner-side and validator-side maps over the selected key set.
func selectTokens(minerRaw, refRaw map[string]float64, cap int, noiseFloor float64) (map[string]float64, map[string]float64) {
	mt := make(map[string]float64)
	for k, v := range normalizeTokens(minerRaw) {
		if math.Abs(v) >= noiseFloor {
			mt[k] = v
		}
	}
	rt := make(map[string]float64)
	for k, v := range normalizeTokens(refRaw) {
		if math.Abs(v) >= noiseFloor {
			rt[k] = v
		}
	}

	keep := make(map[string]bool, len(rt))
	for k := range rt {
		keep[k] = true
	}

	extras := make([]string, 0, len(mt))
	for k := range mt {
		if !keep[k] {
			extras = append(extras, k)
		}
	}
	sort.Slice(extras, func(i, j int) bool {
		a, b := math.Abs(mt[extras[i]]), math.Abs(mt[extras[j]])
		if a != b {
			return a > b
		}
		return extras[i] < extras[j]
	})
	for _, k := range extras {
		if len(keep) >= cap {
			break
		}
		keep[k] = true
	}

	miner := make(map[string]float64, len(keep))
	for k := range keep {
		miner[k] = mt[k]
	}
	return miner, rt
}

// tokenDiff records one token whose claimed and recomputed values diverge
// beyond tolerance.
type tokenDiff struct {
	Token     string  `json:"token"`
	Miner     float64 `json:"miner"`
	Validator float64 `json:"validator"`
	Allowed   float64 `json:"allowed"`
	Diff      float64 `json:"diff"`
}

// compareTokens checks every selected key against the absolute tolerance.
// Pairs below the noise floor on both sides are ignored. Returns all
// violations sorted by deviation descending (ties by token ascending).
func compareTokens(miner, ref map[string]float64, absTol, noiseFloor float64) []tokenDiff {
	keys := make(map[string]bool, len(miner)+len(ref))
	for k := range miner {
		keys[k] = true
	}
	for k := range ref {
		keys[k] = true
	}

	var diffs []tokenDiff
	for k := range keys {
		a, b := miner[k], ref[k]
		if a < noiseFloor && b < noiseFloor {
			continue
		}
		if d := math.Abs(a - b); d > absTol {
			diffs = append(diffs, tokenDiff{Token: k, Miner: a, Validator: b, Allowed: absTol, Diff: d})
		}
	}
	sort.Slice(diffs, func(i, j int) bool {
		if diffs[i].Diff != diffs[j].Diff {
			return diffs[i].Diff > diffs[j].Diff
		}
		return diffs[i].Token < diffs[j].Token
	})
	return diffs
}
