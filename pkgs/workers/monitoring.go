package workers

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	rediskeys "github.com/Andrew-Costa-10114/talisman-ai/pkgs/redis"
)

// Status represents the current state of the validator loop.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusGrading Status = "grading"
	StatusFailed  Status = "failed"
)

// Monitor publishes validator liveness and progress to Redis so external
// dashboards can observe the loop without touching process internals. All
// writes are best-effort; monitoring failures never affect grading.
type Monitor struct {
	redisClient *redis.Client
	keyBuilder  *rediskeys.KeyBuilder
}

// NewMonitor creates a validator monitor. The Redis client may be nil, which
// turns every method into a no-op.
func NewMonitor(redisClient *redis.Client, keyBuilder *rediskeys.KeyBuilder) *Monitor {
	return &Monitor{redisClient: redisClient, keyBuilder: keyBuilder}
}

// UpdateStatus records the loop's current status.
func (m *Monitor) UpdateStatus(ctx context.Context, status Status) {
	if m.redisClient == nil {
		return
	}
	if err := m.redisClient.Set(ctx, m.keyBuilder.ValidatorStatus(), string(status), 24*time.Hour).Err(); err != nil {
		log.Debugf("Failed to update validator status: %v", err)
		return
	}
	m.Heartbeat(ctx)
}

// Heartbeat records the last time the loop made progress.
func (m *Monitor) Heartbeat(ctx context.Context) {
	if m.redisClient == nil {
		return
	}
	if err := m.redisClient.Set(ctx, m.keyBuilder.ValidatorHeartbeat(), time.Now().Unix(), 5*time.Minute).Err(); err != nil {
		log.Debugf("Failed to update validator heartbeat: %v", err)
	}
}

// IncrementCycles bumps the completed-cycle counter and records the last
// processed unit id.
func (m *Monitor) IncrementCycles(ctx context.Context, lastUnitID string) {
	if m.redisClient == nil {
		return
	}
	pipe := m.redisClient.Pipeline()
	pipe.Incr(ctx, m.keyBuilder.CyclesProcessed())
	if lastUnitID != "" {
		pipe.Set(ctx, m.keyBuilder.LastUnit(), lastUnitID, 24*time.Hour)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		log.Debugf("Failed to write cycle metrics: %v", err)
	}
}
