package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyBuilder(t *testing.T) {
	kb := NewKeyBuilder("TestNet", "validator-1")

	assert.Equal(t, "testnet", kb.Network)
	assert.Equal(t, "talisman:testnet:rewards:scores", kb.RewardScores())
	assert.Equal(t, "talisman:testnet:rewards:window", kb.RewardWindow())
	assert.Equal(t, "talisman:testnet:dedup:abc123", kb.DedupSubmission("abc123"))
	assert.Equal(t, "talisman:testnet:validator:validator-1:status", kb.ValidatorStatus())
	assert.Equal(t, "talisman:testnet:validator:validator-1:heartbeat", kb.ValidatorHeartbeat())
	assert.Equal(t, "talisman:testnet:validator:validator-1:cycles", kb.CyclesProcessed())
	assert.Equal(t, "talisman:testnet:validator:validator-1:last_unit", kb.LastUnit())
}

func TestKeyBuilderDefaultNetwork(t *testing.T) {
	kb := NewKeyBuilder("", "v1")
	assert.Equal(t, "mainnet", kb.Network)
}
