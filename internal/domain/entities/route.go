package entities

// RouteType is one of the three generation tiers, totally ordered by
// cost/quality: quality_max > balanced > efficiency_max.
type RouteType string

const (
	RouteQualityMax    RouteType = "quality_max"
	RouteBalanced      RouteType = "balanced"
	RouteEfficiencyMax RouteType = "efficiency_max"
)

var routeRank = map[RouteType]int{
	RouteEfficiencyMax: 0,
	RouteBalanced:      1,
	RouteQualityMax:    2,
}

// Rank returns the route's position in the cost/quality ordering.
func (r RouteType) Rank() int {
	return routeRank[r]
}

// Upgrade returns the next more expensive route, or r if already at the top.
func (r RouteType) Upgrade() RouteType {
	switch r {
	case RouteEfficiencyMax:
		return RouteBalanced
	case RouteBalanced:
		return RouteQualityMax
	default:
		return r
	}
}

// Downgrade returns the next cheaper route, or r if already at the bottom.
func (r RouteType) Downgrade() RouteType {
	switch r {
	case RouteQualityMax:
		return RouteBalanced
	case RouteBalanced:
		return RouteEfficiencyMax
	default:
		return r
	}
}

// RouteConfig holds the fixed execution parameters for one route tier.
type RouteConfig struct {
	MaxRetries          int     `json:"max_retries"`
	QualityThreshold    float64 `json:"quality_threshold"`
	AutoApprove         bool    `json:"auto_approve"`
	HumanReviewRequired bool    `json:"human_review_required"`
	UsePremiumProviders bool    `json:"use_premium_providers"`
	ParallelGeneration  bool    `json:"parallel_generation"`
	CacheResults        bool    `json:"cache_results"`
	IterationLimit      int     `json:"iteration_limit"`
}

// ExpectedMetrics holds the predicted quality/cost/time for one
// (route, content type) pair.
type ExpectedMetrics struct {
	Quality     float64 `json:"quality"`
	CostUsd     float64 `json:"cost_usd"`
	TimeMinutes float64 `json:"time_minutes"`
}

// CheckpointType distinguishes automated checks from human review gates.
type CheckpointType string

const (
	CheckpointAuto  CheckpointType = "auto"
	CheckpointHuman CheckpointType = "human"
)

// ReviewCheckpoint is one stage in a decision's review pipeline.
type ReviewCheckpoint struct {
	Stage       string         `json:"stage"`
	Type        CheckpointType `json:"type"`
	Description string         `json:"description"`
}

// AdjustmentType classifies a learning adjustment applied to a decision.
type AdjustmentType string

const (
	AdjustmentRouteUpgrade     AdjustmentType = "route_upgrade"
	AdjustmentRouteDowngrade   AdjustmentType = "route_downgrade"
	AdjustmentProviderOverride AdjustmentType = "provider_override"
	AdjustmentQualityBoost     AdjustmentType = "quality_boost"
)

// LearningAdjustment is one audit-trail entry describing how learned signals
// changed (or annotated) a decision. SignalID is 0 when the adjustment was
// derived from aggregate historical performance rather than one signal.
type LearningAdjustment struct {
	SignalID       int64          `json:"signal_id"`
	SignalType     SignalType     `json:"signal_type"`
	AdjustmentType AdjustmentType `json:"adjustment_type"`
	OriginalValue  string         `json:"original_value"`
	AdjustedValue  string         `json:"adjusted_value"`
	Confidence     float64        `json:"confidence"`
}

// ProviderRecommendation names the provider family to use for a
// (route, content type) pair, with a fallback.
type ProviderRecommendation struct {
	Primary  string `json:"primary"`
	Fallback string `json:"fallback"`
}

// RouteDecision is the router's answer for one request. It is consumed
// immediately by the caller; a derived RouteDecisionRecord is persisted
// separately.
type RouteDecision struct {
	Route               RouteType            `json:"route"`
	Reason              string               `json:"reason"`
	Config              RouteConfig          `json:"config"`
	Provider            string               `json:"provider"`
	FallbackProvider    string               `json:"fallback_provider"`
	ExpectedQuality     float64              `json:"expected_quality"`
	ExpectedCostUsd     float64              `json:"expected_cost_usd"`
	ExpectedTimeMinutes float64              `json:"expected_time_minutes"`
	ReviewCheckpoints   []ReviewCheckpoint   `json:"review_checkpoints"`
	LearningAdjustments []LearningAdjustment `json:"learning_adjustments,omitempty"`
}
