package deduplication

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rediskeys "github.com/Andrew-Costa-10114/talisman-ai/pkgs/redis"
)

func newLocalDedup(t *testing.T) *Deduplicator {
	t.Helper()
	d, err := NewDeduplicator(nil, rediskeys.NewKeyBuilder("testnet", "validator-1"), 100, 0)
	require.NoError(t, err)
	return d
}

func TestGenerateKeyStable(t *testing.T) {
	d := newLocalDedup(t)

	k1 := d.GenerateKey("hk1", "unit-1")
	assert.Equal(t, k1, d.GenerateKey("hk1", "unit-1"))
	assert.Len(t, k1, 32) // first 16 bytes of sha256, hex encoded

	assert.NotEqual(t, k1, d.GenerateKey("hk1", "unit-2"))
	assert.NotEqual(t, k1, d.GenerateKey("hk2", "unit-1"))
}

func TestCheckAndMarkLocalOnly(t *testing.T) {
	d := newLocalDedup(t)
	ctx := context.Background()
	key := d.GenerateKey("hk1", "unit-1")

	isNew, err := d.CheckAndMark(ctx, key)
	require.NoError(t, err)
	assert.True(t, isNew)

	isNew, err = d.CheckAndMark(ctx, key)
	require.NoError(t, err)
	assert.False(t, isNew)
}

func TestClearLocal(t *testing.T) {
	d := newLocalDedup(t)
	ctx := context.Background()
	key := d.GenerateKey("hk1", "unit-1")

	_, err := d.CheckAndMark(ctx, key)
	require.NoError(t, err)

	d.ClearLocal()

	isNew, err := d.CheckAndMark(ctx, key)
	require.NoError(t, err)
	assert.True(t, isNew, "cleared cache forgets the unit")
}

func TestLocalCacheEviction(t *testing.T) {
	d, err := NewDeduplicator(nil, rediskeys.NewKeyBuilder("testnet", "v1"), 2, 0)
	require.NoError(t, err)
	ctx := context.Background()

	k1 := d.GenerateKey("hk", "u1")
	k2 := d.GenerateKey("hk", "u2")
	k3 := d.GenerateKey("hk", "u3")

	for _, k := range []string{k1, k2, k3} {
		_, err := d.CheckAndMark(ctx, k)
		require.NoError(t, err)
	}

	// k1 was evicted by the LRU; without Redis it reads as new again.
	isNew, err := d.CheckAndMark(ctx, k1)
	require.NoError(t, err)
	assert.True(t, isNew)
}
