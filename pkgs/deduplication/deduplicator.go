// Package deduplication provides two-layer deduplication for work units: a
// local LRU for the fast path and Redis SetNX for cross-restart and
// cross-instance coverage. The polling loop's last-processed id guards
// against the boundary re-serving the same unit back to back; this layer
// guards against redelivery over longer horizons.
package deduplication

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	rediskeys "github.com/Andrew-Costa-10114/talisman-ai/pkgs/redis"
)

// Deduplicator tracks which work units this validator has already graded.
// The Redis client may be nil, in which case only the local cache applies.
type Deduplicator struct {
	redis      *redis.Client
	keyBuilder *rediskeys.KeyBuilder
	localCache *lru.Cache[string, bool]
	ttl        time.Duration
}

// NewDeduplicator creates a deduplicator with a local LRU cache and an
// optional Redis backend.
func NewDeduplicator(redisClient *redis.Client, keyBuilder *rediskeys.KeyBuilder, localCacheSize int, ttl time.Duration) (*Deduplicator, error) {
	cache, err := lru.New[string, bool](localCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}
	return &Deduplicator{
		redis:      redisClient,
		keyBuilder: keyBuilder,
		localCache: cache,
		ttl:        ttl,
	}, nil
}

// GenerateKey creates a deduplication key from the unit's identifying data.
func (d *Deduplicator) GenerateKey(minerHotkey, unitID string) string {
	data := fmt.Sprintf("%s:%s", minerHotkey, unitID)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:16])
}

// CheckAndMark checks whether a unit was seen and marks it if not. Returns
// true if this is a NEW unit that should be graded.
func (d *Deduplicator) CheckAndMark(ctx context.Context, key string) (bool, error) {
	if d.localCache.Contains(key) {
		log.Debugf("Dedup hit (local cache): %s", key)
		return false, nil
	}

	if d.redis == nil {
		d.localCache.Add(key, true)
		return true, nil
	}

	fullKey := d.keyBuilder.DedupSubmission(key)
	ok, err := d.redis.SetNX(ctx, fullKey, time.Now().Unix(), d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis SetNX failed: %w", err)
	}

	d.localCache.Add(key, true)
	if ok {
		log.Debugf("Dedup miss (new unit): %s", key)
		return true, nil
	}
	log.Debugf("Dedup hit (redis): %s", key)
	return false, nil
}

// ClearLocal clears the local LRU cache (useful for testing).
func (d *Deduplicator) ClearLocal() {
	d.localCache.Purge()
	log.Info("Local deduplication cache cleared")
}
