package redis

import (
	"fmt"
	"strings"
)

// KeyBuilder generates namespaced Redis keys. Keys are scoped by network so
// multiple validator deployments can share one Redis instance without
// colliding.
type KeyBuilder struct {
	Network     string
	ValidatorID string
}

// NewKeyBuilder creates a KeyBuilder. Network defaults to "mainnet" when
// empty; identifiers are lowercased for consistent keys.
func NewKeyBuilder(network, validatorID string) *KeyBuilder {
	if network == "" {
		network = "mainnet"
	}
	return &KeyBuilder{
		Network:     strings.ToLower(network),
		ValidatorID: validatorID,
	}
}

// Reward state keys

// RewardScores returns the HASH key holding the hotkey→score snapshot.
func (kb *KeyBuilder) RewardScores() string {
	return fmt.Sprintf("talisman:%s:rewards:scores", kb.Network)
}

// RewardWindow returns the key holding the block window of the current
// snapshot.
func (kb *KeyBuilder) RewardWindow() string {
	return fmt.Sprintf("talisman:%s:rewards:window", kb.Network)
}

// Deduplication keys

// DedupSubmission returns the SETNX key marking a processed work unit.
func (kb *KeyBuilder) DedupSubmission(hash string) string {
	return fmt.Sprintf("talisman:%s:dedup:%s", kb.Network, hash)
}

// Validator status keys

// ValidatorStatus returns the key for this validator's current status.
func (kb *KeyBuilder) ValidatorStatus() string {
	return fmt.Sprintf("talisman:%s:validator:%s:status", kb.Network, kb.ValidatorID)
}

// ValidatorHeartbeat returns the key for this validator's last heartbeat.
func (kb *KeyBuilder) ValidatorHeartbeat() string {
	return fmt.Sprintf("talisman:%s:validator:%s:heartbeat", kb.Network, kb.ValidatorID)
}

// CyclesProcessed returns the counter key for completed polling cycles.
func (kb *KeyBuilder) CyclesProcessed() string {
	return fmt.Sprintf("talisman:%s:validator:%s:cycles", kb.Network, kb.ValidatorID)
}

// LastUnit returns the key recording the last processed work unit id, kept
// for observability only; the in-process field remains the source of truth.
func (kb *KeyBuilder) LastUnit() string {
	return fmt.Sprintf("talisman:%s:validator:%s:last_unit", kb.Network, kb.ValidatorID)
}
