package entities

import "time"

// SignalType classifies a learning signal.
type SignalType string

const (
	SignalFailurePattern  SignalType = "failure_pattern"
	SignalSuccessPattern  SignalType = "success_pattern"
	SignalRouteAdjustment SignalType = "route_adjustment"
)

// SignalImpact estimates the effect of the observed pattern on future runs.
type SignalImpact struct {
	QualityDelta float64 `json:"quality_delta" db:"quality_delta"`
	CostDelta    float64 `json:"cost_delta" db:"cost_delta"`
	SpeedDelta   float64 `json:"speed_delta" db:"speed_delta"`
}

// LearningSignal is a persisted, confidence-scored observation derived from
// feedback, used to bias future routing. Signals are never deleted; they are
// mutated only to flip IsActionable off on expiry or to bump AppliedCount
// when consumed by the router.
type LearningSignal struct {
	ID         int64       `json:"id" db:"id"`
	SignalType SignalType  `json:"signal_type" db:"signal_type"`
	Category   ContentType `json:"category" db:"category"`
	Pattern    string      `json:"pattern" db:"pattern"`
	// AffectedProvider names the provider family the pattern implicates,
	// empty when the signal is provider-agnostic.
	AffectedProvider string       `json:"affected_provider,omitempty" db:"affected_provider"`
	Confidence       float64      `json:"confidence" db:"confidence"`
	SampleSize       int          `json:"sample_size" db:"sample_size"`
	ClientID         string       `json:"client_id,omitempty" db:"client_id"`
	Impact           SignalImpact `json:"impact"`
	Recommendation   string       `json:"recommendation" db:"recommendation"`
	IsActionable     bool         `json:"is_actionable" db:"is_actionable"`
	AppliedCount     int          `json:"applied_count" db:"applied_count"`
	// SourceRunID ties analyzer-emitted signals to the run they came from so
	// re-analysis of the same run can replace them instead of double-counting.
	SourceRunID string    `json:"source_run_id,omitempty" db:"source_run_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
