package entities

import "time"

// PromptEffectivenessRecord tracks a rolling quality average for one rendered
// prompt, keyed by a stable hash. Created on first use, updated thereafter,
// never deleted.
type PromptEffectivenessRecord struct {
	PromptHash      string    `json:"prompt_hash" db:"prompt_hash"`
	TotalUses       int       `json:"total_uses" db:"total_uses"`
	AvgQualityScore float64   `json:"avg_quality_score" db:"avg_quality_score"`
	LastUsedAt      time.Time `json:"last_used_at" db:"last_used_at"`
}
