package rewards

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Andrew-Costa-10114/talisman-ai/pkgs/models"
	rediskeys "github.com/Andrew-Costa-10114/talisman-ai/pkgs/redis"
)

func newTestState() *State {
	return NewState(nil, rediskeys.NewKeyBuilder("testnet", "validator-1"))
}

func TestReplaceWholesale(t *testing.T) {
	s := newTestState()
	ctx := context.Background()

	s.Replace(ctx, &models.ScoresSnapshot{
		Scores:           map[string]float64{"hk1": 0.5, "hk2": 0.8},
		BlockWindowStart: 100,
		BlockWindowEnd:   200,
	})
	assert.Equal(t, 2, s.Len())

	// A later snapshot replaces, never merges: hk1 is gone.
	s.Replace(ctx, &models.ScoresSnapshot{
		Scores:           map[string]float64{"hk2": 0.9, "hk3": 0.1},
		BlockWindowStart: 200,
		BlockWindowEnd:   300,
	})
	assert.Equal(t, 2, s.Len())
	_, ok := s.Get("hk1")
	assert.False(t, ok)
	got, ok := s.Get("hk2")
	assert.True(t, ok)
	assert.Equal(t, 0.9, got)

	start, end := s.Window()
	assert.Equal(t, uint64(200), start)
	assert.Equal(t, uint64(300), end)
}

func TestReplaceClampsScores(t *testing.T) {
	s := newTestState()
	s.Replace(context.Background(), &models.ScoresSnapshot{
		Scores: map[string]float64{"low": -0.3, "high": 1.7, "mid": 0.4},
	})

	low, _ := s.Get("low")
	high, _ := s.Get("high")
	mid, _ := s.Get("mid")
	assert.Equal(t, 0.0, low)
	assert.Equal(t, 1.0, high)
	assert.Equal(t, 0.4, mid)
}

func TestSnapshotIsCopy(t *testing.T) {
	s := newTestState()
	s.Replace(context.Background(), &models.ScoresSnapshot{
		Scores: map[string]float64{"hk1": 0.5},
	})

	snap := s.Snapshot()
	snap["hk1"] = 0.0
	got, _ := s.Get("hk1")
	assert.Equal(t, 0.5, got)
}

func TestUpdatedAtAdvances(t *testing.T) {
	s := newTestState()
	assert.True(t, s.UpdatedAt().IsZero())
	s.Replace(context.Background(), &models.ScoresSnapshot{Scores: map[string]float64{}})
	assert.False(t, s.UpdatedAt().IsZero())
}
