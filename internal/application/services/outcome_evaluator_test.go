package services_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/contentloop/contentloop/internal/application/services"
	"github.com/contentloop/contentloop/internal/domain/entities"
)

func TestOutcomeEvaluator_Evaluate(t *testing.T) {
	evaluator := services.NewOutcomeEvaluator()

	t.Run("within tolerances is correct", func(t *testing.T) {
		result := evaluator.Evaluate(entities.RouteBalanced, 7.8, 1.20, 7.5, 1.30)

		assert.True(t, result.WasCorrect)
		assert.True(t, result.QualityMet)
		assert.True(t, result.CostMet)
		assert.Nil(t, result.Recommendation)
	})

	t.Run("quality shortfall recommends an upgrade", func(t *testing.T) {
		result := evaluator.Evaluate(entities.RouteBalanced, 7.8, 1.20, 6.0, 1.00)

		assert.False(t, result.WasCorrect)
		assert.False(t, result.QualityMet)
		if assert.NotNil(t, result.Recommendation) {
			assert.Equal(t, entities.RouteQualityMax, *result.Recommendation)
		}
	})

	t.Run("no upgrade available at the top route", func(t *testing.T) {
		result := evaluator.Evaluate(entities.RouteQualityMax, 9.2, 15.00, 5.0, 14.00)

		assert.False(t, result.WasCorrect)
		assert.Nil(t, result.Recommendation)
	})

	t.Run("cost overrun with strong quality recommends a downgrade", func(t *testing.T) {
		result := evaluator.Evaluate(entities.RouteQualityMax, 9.2, 15.00, 9.0, 25.00)

		assert.False(t, result.WasCorrect)
		assert.False(t, result.CostMet)
		if assert.NotNil(t, result.Recommendation) {
			assert.Equal(t, entities.RouteBalanced, *result.Recommendation)
		}
	})

	t.Run("cost overrun with barely acceptable quality makes no recommendation", func(t *testing.T) {
		result := evaluator.Evaluate(entities.RouteBalanced, 7.0, 1.20, 6.5, 2.00)

		assert.False(t, result.WasCorrect)
		assert.Nil(t, result.Recommendation)
	})

	t.Run("missing cost counts as within budget", func(t *testing.T) {
		result := evaluator.Evaluate(entities.RouteBalanced, 7.8, 1.20, 7.8, 0)

		assert.True(t, result.WasCorrect)
		assert.True(t, result.CostMet)
	})

	t.Run("identical inputs give identical verdicts", func(t *testing.T) {
		first := evaluator.Evaluate(entities.RouteEfficiencyMax, 6.2, 0.50, 5.0, 0.70)
		second := evaluator.Evaluate(entities.RouteEfficiencyMax, 6.2, 0.50, 5.0, 0.70)

		assert.Equal(t, first, second)
	})
}

func TestOutcomeEvaluator_BuildCorrectiveSignal(t *testing.T) {
	evaluator := services.NewOutcomeEvaluator()

	record := &entities.RouteDecisionRecord{
		ID:              "dec-1",
		RunID:           "run-1",
		ClientID:        "client-1",
		ContentType:     entities.ContentBlog,
		Route:           entities.RouteBalanced,
		ExpectedQuality: 7.8,
		ExpectedCostUsd: 1.20,
		CreatedAt:       time.Now(),
	}

	t.Run("correct outcomes produce no signal", func(t *testing.T) {
		quality, cost := 7.8, 1.20
		result := evaluator.EvaluateRecord(record, entities.RunActuals{Quality: &quality, CostUsd: &cost})

		assert.Nil(t, evaluator.BuildCorrectiveSignal(record, result))
	})

	t.Run("incorrect outcomes produce an actionable route_adjustment signal", func(t *testing.T) {
		quality, cost := 5.5, 1.00
		result := evaluator.EvaluateRecord(record, entities.RunActuals{Quality: &quality, CostUsd: &cost})
		signal := evaluator.BuildCorrectiveSignal(record, result)

		if assert.NotNil(t, signal) {
			assert.Equal(t, entities.SignalRouteAdjustment, signal.SignalType)
			assert.Equal(t, entities.ContentBlog, signal.Category)
			assert.Equal(t, "client-1", signal.ClientID)
			assert.Equal(t, "run-1", signal.SourceRunID)
			assert.True(t, signal.IsActionable)
			assert.Contains(t, signal.Recommendation, "quality_max")
		}
	})
}
