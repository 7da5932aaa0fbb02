package services

import (
	"fmt"

	"github.com/contentloop/contentloop/internal/domain/entities"
)

const (
	// qualityTolerance accepts actual quality down to 90% of the prediction.
	qualityTolerance = 0.9
	// costTolerance accepts actual cost up to 120% of the prediction.
	costTolerance = 1.2
	// downgradeQualityFloor blocks cost-driven downgrades when quality was
	// only barely acceptable.
	downgradeQualityFloor = 7.0
)

// EvaluationResult is the verdict on one route decision.
type EvaluationResult struct {
	WasCorrect     bool                `json:"was_correct"`
	QualityMet     bool                `json:"quality_met"`
	CostMet        bool                `json:"cost_met"`
	Analysis       string              `json:"analysis"`
	Recommendation *entities.RouteType `json:"recommendation,omitempty"`
}

// OutcomeEvaluator compares a decision's predicted metrics to observed
// actuals. Pure: identical inputs always produce identical results.
type OutcomeEvaluator struct{}

// NewOutcomeEvaluator creates a new outcome evaluator.
func NewOutcomeEvaluator() *OutcomeEvaluator {
	return &OutcomeEvaluator{}
}

// Evaluate classifies a decision as correct or incorrect given the actuals.
// An unrecorded cost (actualCost <= 0) counts as within budget.
func (e *OutcomeEvaluator) Evaluate(route entities.RouteType, expectedQuality, expectedCost, actualQuality, actualCost float64) EvaluationResult {
	qualityMet := actualQuality >= expectedQuality*qualityTolerance
	costMet := actualCost <= 0 || actualCost <= expectedCost*costTolerance

	result := EvaluationResult{
		WasCorrect: qualityMet && costMet,
		QualityMet: qualityMet,
		CostMet:    costMet,
	}

	if result.WasCorrect {
		result.Analysis = fmt.Sprintf("route %s performed as predicted (quality %.1f, cost %.2f)", route, actualQuality, actualCost)
		return result
	}

	if !qualityMet {
		result.Analysis = fmt.Sprintf("quality %.1f fell short of expected %.1f on route %s", actualQuality, expectedQuality, route)
		upgraded := route.Upgrade()
		if upgraded != route {
			result.Recommendation = &upgraded
		}
		return result
	}

	result.Analysis = fmt.Sprintf("cost %.2f exceeded expected %.2f on route %s", actualCost, expectedCost, route)
	if actualQuality >= downgradeQualityFloor {
		downgraded := route.Downgrade()
		if downgraded != route {
			result.Recommendation = &downgraded
		}
	}
	return result
}

// EvaluateRecord evaluates a persisted decision record against run actuals.
func (e *OutcomeEvaluator) EvaluateRecord(record *entities.RouteDecisionRecord, actuals entities.RunActuals) EvaluationResult {
	actualQuality := 0.0
	if actuals.Quality != nil {
		actualQuality = *actuals.Quality
	}
	actualCost := 0.0
	if actuals.CostUsd != nil {
		actualCost = *actuals.CostUsd
	}
	return e.Evaluate(record.Route, record.ExpectedQuality, record.ExpectedCostUsd, actualQuality, actualCost)
}

// BuildCorrectiveSignal turns an incorrect outcome into a route_adjustment
// signal attributed to the record's client and content type. Returns nil for
// correct outcomes.
func (e *OutcomeEvaluator) BuildCorrectiveSignal(record *entities.RouteDecisionRecord, result EvaluationResult) *entities.LearningSignal {
	if result.WasCorrect {
		return nil
	}

	recommendation := "re-examine routing policy for this client and content type"
	if result.Recommendation != nil {
		recommendation = fmt.Sprintf("prefer %s routing for similar requests", *result.Recommendation)
	}

	return &entities.LearningSignal{
		SignalType:     entities.SignalRouteAdjustment,
		Category:       record.ContentType,
		Pattern:        result.Analysis,
		Confidence:     0.75,
		SampleSize:     1,
		ClientID:       record.ClientID,
		Recommendation: recommendation,
		IsActionable:   true,
		SourceRunID:    record.RunID,
	}
}
