package entities

import "time"

// RunStatus is the lifecycle state of a generation run.
type RunStatus string

const (
	RunPending    RunStatus = "pending"
	RunInProgress RunStatus = "in_progress"
	RunCompleted  RunStatus = "completed"
	RunFailed     RunStatus = "failed"
)

// GenerationRun is the persisted record of one generation attempt.
type GenerationRun struct {
	ID            string      `json:"id" db:"id"`
	ClientID      string      `json:"client_id" db:"client_id"`
	ContentType   ContentType `json:"content_type" db:"content_type"`
	RouteType     RouteType   `json:"route_type" db:"route_type"`
	Provider      string      `json:"provider" db:"provider"`
	PromptHash    string      `json:"prompt_hash" db:"prompt_hash"`
	Status        RunStatus   `json:"status" db:"status"`
	ActualQuality *float64    `json:"actual_quality,omitempty" db:"actual_quality"`
	ActualCost    *float64    `json:"actual_cost,omitempty" db:"actual_cost"`
	ActualTimeMs  *int64      `json:"actual_time_ms,omitempty" db:"actual_time_ms"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
	CompletedAt   *time.Time  `json:"completed_at,omitempty" db:"completed_at"`
}

// RunActuals carries the observed outcome of a completed run.
type RunActuals struct {
	Quality *float64 `json:"quality,omitempty"`
	CostUsd *float64 `json:"cost_usd,omitempty"`
	TimeMs  *int64   `json:"time_ms,omitempty"`
}

// FeedbackType identifies the source of a quality feedback submission.
type FeedbackType string

const (
	FeedbackQAReview   FeedbackType = "qa_review"
	FeedbackUserRating FeedbackType = "user_rating"
	FeedbackAutoMetric FeedbackType = "auto_metric"
)

// QualityFeedback is one feedback submission for a run. Append-only per run.
type QualityFeedback struct {
	ID           string       `json:"id" db:"id"`
	RunID        string       `json:"run_id" db:"run_id"`
	FeedbackType FeedbackType `json:"feedback_type" db:"feedback_type"`
	OverallScore *float64     `json:"overall_score,omitempty" db:"overall_score"`
	Issues       []string     `json:"issues,omitempty"`
	Suggestions  []string     `json:"suggestions,omitempty"`
	Approved     bool         `json:"approved" db:"approved"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
}

// RouteDecisionRecord is the persisted form of a route decision plus its
// eventual actuals. Exactly one record exists per generation run.
type RouteDecisionRecord struct {
	ID                  string      `json:"id" db:"id"`
	RunID               string      `json:"run_id" db:"run_id"`
	ClientID            string      `json:"client_id" db:"client_id"`
	ContentType         ContentType `json:"content_type" db:"content_type"`
	Route               RouteType   `json:"route_type" db:"route_type"`
	Reason              string      `json:"reason" db:"reason"`
	ExpectedQuality     float64     `json:"expected_quality" db:"expected_quality"`
	ExpectedCostUsd     float64     `json:"expected_cost_usd" db:"expected_cost"`
	ExpectedTimeMinutes float64     `json:"expected_time_minutes" db:"expected_time_minutes"`
	ActualQuality       *float64    `json:"actual_quality,omitempty" db:"actual_quality"`
	ActualCost          *float64    `json:"actual_cost,omitempty" db:"actual_cost"`
	ActualTimeMs        *int64      `json:"actual_time_ms,omitempty" db:"actual_time_ms"`
	WasCorrect          *bool       `json:"was_correct,omitempty" db:"was_correct"`
	CreatedAt           time.Time   `json:"created_at" db:"created_at"`
	EvaluatedAt         *time.Time  `json:"evaluated_at,omitempty" db:"evaluated_at"`
}
