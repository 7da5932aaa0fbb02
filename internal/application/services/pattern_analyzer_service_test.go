package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/contentloop/contentloop/internal/application/services"
	"github.com/contentloop/contentloop/internal/domain/entities"
	"github.com/contentloop/contentloop/pkg/errors"
)

type analyzerFixture struct {
	runs      *MockGenerationRunRepository
	feedback  *MockFeedbackRepository
	signals   *MockSignalRepository
	prompts   *MockPromptEffectivenessRepository
	decisions *MockRouteDecisionRepository
	service   *services.PatternAnalyzerService
}

func newAnalyzerFixture() *analyzerFixture {
	f := &analyzerFixture{
		runs:      new(MockGenerationRunRepository),
		feedback:  new(MockFeedbackRepository),
		signals:   new(MockSignalRepository),
		prompts:   new(MockPromptEffectivenessRepository),
		decisions: new(MockRouteDecisionRepository),
	}
	f.service = services.NewPatternAnalyzerService(
		f.runs, f.feedback, f.signals, f.prompts, f.decisions,
		services.NewOutcomeEvaluator(), nil,
	)
	return f
}

func floatPtr(v float64) *float64 { return &v }

func TestPatternAnalyzerService_AnalyzeRun(t *testing.T) {
	t.Run("unknown run is dropped silently", func(t *testing.T) {
		f := newAnalyzerFixture()
		f.runs.On("GetByID", mock.Anything, "run-missing").Return(nil, errors.NewNotFoundError("run not found"))

		err := f.service.AnalyzeRun(context.Background(), "run-missing")

		assert.NoError(t, err)
		f.signals.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("run without feedback is a no-op", func(t *testing.T) {
		f := newAnalyzerFixture()
		run := &entities.GenerationRun{ID: "run-1", ClientID: "client-1", ContentType: entities.ContentBlog}
		f.runs.On("GetByID", mock.Anything, "run-1").Return(run, nil)
		f.feedback.On("ListByRun", mock.Anything, "run-1").Return([]*entities.QualityFeedback{}, nil)

		err := f.service.AnalyzeRun(context.Background(), "run-1")

		assert.NoError(t, err)
		f.runs.AssertNotCalled(t, "ClaimAnalysis", mock.Anything, mock.Anything)
	})

	t.Run("run already claimed by another worker is skipped", func(t *testing.T) {
		f := newAnalyzerFixture()
		run := &entities.GenerationRun{ID: "run-2", ClientID: "client-1", ContentType: entities.ContentBlog}
		f.runs.On("GetByID", mock.Anything, "run-2").Return(run, nil)
		f.feedback.On("ListByRun", mock.Anything, "run-2").Return([]*entities.QualityFeedback{
			{RunID: "run-2", OverallScore: floatPtr(9.0)},
		}, nil)
		f.runs.On("ClaimAnalysis", mock.Anything, "run-2").Return(false, nil)

		err := f.service.AnalyzeRun(context.Background(), "run-2")

		assert.NoError(t, err)
		f.signals.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("single api_failure issue produces a high severity failure signal", func(t *testing.T) {
		f := newAnalyzerFixture()
		run := &entities.GenerationRun{
			ID: "run-3", ClientID: "client-1",
			ContentType: entities.ContentBlog, Provider: "llama",
		}
		f.runs.On("GetByID", mock.Anything, "run-3").Return(run, nil)
		f.feedback.On("ListByRun", mock.Anything, "run-3").Return([]*entities.QualityFeedback{
			{RunID: "run-3", Issues: []string{"api_failure"}},
		}, nil)
		f.runs.On("ClaimAnalysis", mock.Anything, "run-3").Return(true, nil)
		f.signals.On("Create", mock.Anything, mock.MatchedBy(func(s *entities.LearningSignal) bool {
			return s.SignalType == entities.SignalFailurePattern &&
				s.Confidence == 0.9 &&
				s.AffectedProvider == "llama" &&
				s.Impact.QualityDelta == -3.0 &&
				s.SourceRunID == "run-3"
		})).Return(nil)
		f.decisions.On("GetByRunID", mock.Anything, "run-3").Return(nil, errors.NewNotFoundError("no decision"))

		err := f.service.AnalyzeRun(context.Background(), "run-3")

		assert.NoError(t, err)
		f.signals.AssertExpectations(t)
		f.prompts.AssertNotCalled(t, "RecordUse", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("repeated ordinary issue produces a scaled confidence signal", func(t *testing.T) {
		f := newAnalyzerFixture()
		run := &entities.GenerationRun{
			ID: "run-4", ClientID: "client-1",
			ContentType: entities.ContentSocial, Provider: "openai",
		}
		f.runs.On("GetByID", mock.Anything, "run-4").Return(run, nil)
		f.feedback.On("ListByRun", mock.Anything, "run-4").Return([]*entities.QualityFeedback{
			{RunID: "run-4", Issues: []string{"off_brand_tone"}},
			{RunID: "run-4", Issues: []string{"off_brand_tone"}},
			{RunID: "run-4", Issues: []string{"typo"}},
		}, nil)
		f.runs.On("ClaimAnalysis", mock.Anything, "run-4").Return(true, nil)
		f.signals.On("Create", mock.Anything, mock.MatchedBy(func(s *entities.LearningSignal) bool {
			return s.SignalType == entities.SignalFailurePattern &&
				s.SampleSize == 2 &&
				s.Impact.QualityDelta == -1.0
		})).Return(nil).Once()
		f.decisions.On("GetByRunID", mock.Anything, "run-4").Return(nil, errors.NewNotFoundError("no decision"))

		err := f.service.AnalyzeRun(context.Background(), "run-4")

		assert.NoError(t, err)
		// the single "typo" must not produce a signal
		f.signals.AssertNumberOfCalls(t, "Create", 1)
	})

	t.Run("catastrophic quality produces a provider switch signal", func(t *testing.T) {
		f := newAnalyzerFixture()
		run := &entities.GenerationRun{
			ID: "run-5", ClientID: "client-2",
			ContentType: entities.ContentVideo, Provider: "stability",
		}
		f.runs.On("GetByID", mock.Anything, "run-5").Return(run, nil)
		f.feedback.On("ListByRun", mock.Anything, "run-5").Return([]*entities.QualityFeedback{
			{RunID: "run-5", OverallScore: floatPtr(2.0)},
		}, nil)
		f.runs.On("ClaimAnalysis", mock.Anything, "run-5").Return(true, nil)
		f.signals.On("Create", mock.Anything, mock.MatchedBy(func(s *entities.LearningSignal) bool {
			return s.SignalType == entities.SignalFailurePattern &&
				s.Confidence == 0.95 &&
				s.Impact.QualityDelta == -5.0 &&
				s.AffectedProvider == "stability"
		})).Return(nil)
		f.prompts.On("RecordUse", mock.Anything, mock.Anything, 2.0, mock.Anything).Return(nil).Maybe()
		f.decisions.On("GetByRunID", mock.Anything, "run-5").Return(nil, errors.NewNotFoundError("no decision"))

		err := f.service.AnalyzeRun(context.Background(), "run-5")

		assert.NoError(t, err)
		f.signals.AssertExpectations(t)
	})

	t.Run("high average quality produces a success signal and updates prompt stats", func(t *testing.T) {
		f := newAnalyzerFixture()
		run := &entities.GenerationRun{
			ID: "run-6", ClientID: "client-3",
			ContentType: entities.ContentBlog, RouteType: entities.RouteEfficiencyMax,
			Provider: "llama", PromptHash: "hash-abc",
			ActualQuality: floatPtr(8.8),
		}
		f.runs.On("GetByID", mock.Anything, "run-6").Return(run, nil)
		f.feedback.On("ListByRun", mock.Anything, "run-6").Return([]*entities.QualityFeedback{
			{RunID: "run-6", OverallScore: floatPtr(9.0)},
			{RunID: "run-6", OverallScore: floatPtr(8.6)},
		}, nil)
		f.runs.On("ClaimAnalysis", mock.Anything, "run-6").Return(true, nil)
		f.signals.On("Create", mock.Anything, mock.MatchedBy(func(s *entities.LearningSignal) bool {
			return s.SignalType == entities.SignalSuccessPattern &&
				s.Confidence == 0.8 &&
				s.Impact.QualityDelta > 1.7 && s.Impact.QualityDelta < 1.9
		})).Return(nil)
		f.prompts.On("RecordUse", mock.Anything, "hash-abc", mock.MatchedBy(func(score float64) bool {
			return score > 8.7 && score < 8.9
		}), mock.Anything).Return(nil)

		record := &entities.RouteDecisionRecord{
			ID: "dec-6", RunID: "run-6", ClientID: "client-3",
			ContentType: entities.ContentBlog, Route: entities.RouteEfficiencyMax,
			ExpectedQuality: 6.2, ExpectedCostUsd: 0.50,
		}
		f.decisions.On("GetByRunID", mock.Anything, "run-6").Return(record, nil)
		f.decisions.On("UpdateOutcome", mock.Anything, "dec-6", mock.Anything, true, (*entities.LearningSignal)(nil)).Return(nil)

		err := f.service.AnalyzeRun(context.Background(), "run-6")

		assert.NoError(t, err)
		f.signals.AssertExpectations(t)
		f.prompts.AssertExpectations(t)
		f.decisions.AssertExpectations(t)
	})

	t.Run("failure during analysis releases the claim", func(t *testing.T) {
		f := newAnalyzerFixture()
		run := &entities.GenerationRun{
			ID: "run-7", ClientID: "client-1",
			ContentType: entities.ContentBlog, Provider: "llama",
		}
		f.runs.On("GetByID", mock.Anything, "run-7").Return(run, nil)
		f.feedback.On("ListByRun", mock.Anything, "run-7").Return([]*entities.QualityFeedback{
			{RunID: "run-7", Issues: []string{"timeout"}},
		}, nil)
		f.runs.On("ClaimAnalysis", mock.Anything, "run-7").Return(true, nil)
		f.signals.On("Create", mock.Anything, mock.Anything).Return(assert.AnError)
		f.runs.On("ReleaseAnalysis", mock.Anything, "run-7").Return(nil)

		err := f.service.AnalyzeRun(context.Background(), "run-7")

		assert.Error(t, err)
		f.runs.AssertCalled(t, "ReleaseAnalysis", mock.Anything, "run-7")
	})
}
