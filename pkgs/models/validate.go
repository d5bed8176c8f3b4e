package models

import "fmt"

// Wire payloads are validated at the boundary so a malformed unit surfaces as
// a structured compute_error instead of a fault deep inside grading.

// Validate checks the required fields of a per-submission work unit.
func (p *ValidationPayload) Validate() error {
	if p.ValidationID == "" {
		return fmt.Errorf("validation payload missing validation_id")
	}
	if p.MinerHotkey == "" {
		return fmt.Errorf("validation %s missing miner_hotkey", p.ValidationID)
	}
	if p.Post == nil {
		return fmt.Errorf("validation %s missing post", p.ValidationID)
	}
	return nil
}

// Validate checks the required fields of a batch work unit.
func (b *ValidationBatch) Validate() error {
	if b.BatchID == "" {
		return fmt.Errorf("batch missing batch_id")
	}
	if b.Hotkey == "" {
		return fmt.Errorf("batch %s missing hotkey", b.BatchID)
	}
	return nil
}

// Validate checks the fields of a scores snapshot.
func (s *ScoresSnapshot) Validate() error {
	if s.Scores == nil {
		return fmt.Errorf("scores snapshot missing scores map")
	}
	if s.BlockWindowEnd < s.BlockWindowStart {
		return fmt.Errorf("scores snapshot window inverted: %d-%d", s.BlockWindowStart, s.BlockWindowEnd)
	}
	return nil
}
