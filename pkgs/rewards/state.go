// Package rewards holds the validator's local reward state: the hotkey→score
// map rebuilt from the coordination service's aggregate feed. The polling
// loop is the only writer; the (external) weight-setting collaborator reads
// snapshots.
package rewards

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/Andrew-Costa-10114/talisman-ai/pkgs/models"
	rediskeys "github.com/Andrew-Costa-10114/talisman-ai/pkgs/redis"
)

// State is the reward map. Replacement is wholesale (last writer wins, no
// merge); scores are clamped to [0,1] on the way in.
type State struct {
	mu          sync.RWMutex
	scores      map[string]float64
	windowStart uint64
	windowEnd   uint64
	updatedAt   time.Time

	// Optional persistence for external readers; best-effort only.
	redisClient *redis.Client
	keyBuilder  *rediskeys.KeyBuilder
}

// NewState creates an empty reward state. The Redis client may be nil to
// disable persistence.
func NewState(redisClient *redis.Client, keyBuilder *rediskeys.KeyBuilder) *State {
	return &State{
		scores:      make(map[string]float64),
		redisClient: redisClient,
		keyBuilder:  keyBuilder,
	}
}

// Replace swaps in a new snapshot wholesale.
func (s *State) Replace(ctx context.Context, snapshot *models.ScoresSnapshot) {
	next := make(map[string]float64, len(snapshot.Scores))
	for hotkey, score := range snapshot.Scores {
		if score < 0 {
			score = 0
		}
		if score > 1 {
			score = 1
		}
		next[hotkey] = score
	}

	s.mu.Lock()
	s.scores = next
	s.windowStart = snapshot.BlockWindowStart
	s.windowEnd = snapshot.BlockWindowEnd
	s.updatedAt = time.Now()
	s.mu.Unlock()

	log.WithFields(log.Fields{
		"hotkeys":      len(next),
		"window_start": snapshot.BlockWindowStart,
		"window_end":   snapshot.BlockWindowEnd,
	}).Info("Reward state replaced")

	s.persist(ctx, next, snapshot)
}

// persist mirrors the snapshot into Redis for external readers. Failures are
// logged and ignored; the in-memory state is authoritative.
func (s *State) persist(ctx context.Context, scores map[string]float64, snapshot *models.ScoresSnapshot) {
	if s.redisClient == nil {
		return
	}
	pipe := s.redisClient.Pipeline()
	pipe.Del(ctx, s.keyBuilder.RewardScores())
	if len(scores) > 0 {
		fields := make(map[string]interface{}, len(scores))
		for hotkey, score := range scores {
			fields[hotkey] = score
		}
		pipe.HSet(ctx, s.keyBuilder.RewardScores(), fields)
	}
	pipe.Set(ctx, s.keyBuilder.RewardWindow(), snapshot.BlockWindowStart, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Debugf("Failed to persist reward state: %v", err)
	}
}

// Get returns the reward for a hotkey.
func (s *State) Get(hotkey string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	score, ok := s.scores[hotkey]
	return score, ok
}

// Snapshot returns a copy of the current reward map.
func (s *State) Snapshot() map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]float64, len(s.scores))
	for k, v := range s.scores {
		out[k] = v
	}
	return out
}

// Len returns the number of hotkeys currently tracked.
func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.scores)
}

// Window returns the block window of the current snapshot.
func (s *State) Window() (start, end uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.windowStart, s.windowEnd
}

// UpdatedAt returns when the state was last replaced.
func (s *State) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}
