package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/contentloop/contentloop/internal/application/services"
	"github.com/contentloop/contentloop/internal/domain/entities"
	"github.com/contentloop/contentloop/internal/domain/providers"
	"github.com/contentloop/contentloop/internal/domain/repositories"
	"github.com/contentloop/contentloop/pkg/errors"
)

type generationFixture struct {
	runs      *MockGenerationRunRepository
	feedback  *MockFeedbackRepository
	decisions *MockRouteDecisionRepository
	signals   *MockSignalRepository
	queue     *MockAnalysisQueue
	service   *services.GenerationService
}

func newGenerationFixture() *generationFixture {
	f := &generationFixture{
		runs:      new(MockGenerationRunRepository),
		feedback:  new(MockFeedbackRepository),
		decisions: new(MockRouteDecisionRepository),
		signals:   new(MockSignalRepository),
		queue:     new(MockAnalysisQueue),
	}
	f.service = services.NewGenerationService(
		f.runs, f.feedback, f.decisions, f.signals, f.queue,
		services.NewOutcomeEvaluator(),
	)
	return f
}

func TestGenerationService_RecordRun(t *testing.T) {
	t.Run("assigns id and pending status", func(t *testing.T) {
		f := newGenerationFixture()
		f.runs.On("Create", mock.Anything, mock.MatchedBy(func(r *entities.GenerationRun) bool {
			return r.ID != "" && r.Status == entities.RunPending
		})).Return(nil)

		run := &entities.GenerationRun{ClientID: "client-1", ContentType: entities.ContentBlog}
		err := f.service.RecordRun(context.Background(), run)

		assert.NoError(t, err)
		assert.NotEmpty(t, run.ID)
	})

	t.Run("rejects missing client id", func(t *testing.T) {
		f := newGenerationFixture()

		err := f.service.RecordRun(context.Background(), &entities.GenerationRun{ContentType: entities.ContentBlog})

		assert.True(t, errors.IsValidation(err))
		f.runs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestGenerationService_CompleteRun(t *testing.T) {
	t.Run("rejects an invalid completion status", func(t *testing.T) {
		f := newGenerationFixture()

		err := f.service.CompleteRun(context.Background(), "run-1", entities.RunPending, entities.RunActuals{})

		assert.True(t, errors.IsValidation(err))
	})

	t.Run("records actuals for completed runs", func(t *testing.T) {
		f := newGenerationFixture()
		quality := 8.0
		actuals := entities.RunActuals{Quality: &quality}
		f.runs.On("Complete", mock.Anything, "run-1", entities.RunCompleted, actuals).Return(nil)

		err := f.service.CompleteRun(context.Background(), "run-1", entities.RunCompleted, actuals)

		assert.NoError(t, err)
		f.runs.AssertExpectations(t)
	})
}

func TestGenerationService_SubmitFeedback(t *testing.T) {
	t.Run("rejects feedback for an unknown run", func(t *testing.T) {
		f := newGenerationFixture()
		f.runs.On("GetByID", mock.Anything, "run-missing").Return(nil, errors.NewNotFoundError("run not found"))

		err := f.service.SubmitFeedback(context.Background(), &entities.QualityFeedback{RunID: "run-missing"})

		assert.True(t, errors.IsNotFound(err))
		f.feedback.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("rejects out of range scores", func(t *testing.T) {
		f := newGenerationFixture()
		score := 11.0

		err := f.service.SubmitFeedback(context.Background(), &entities.QualityFeedback{
			RunID:        "run-1",
			OverallScore: &score,
		})

		assert.True(t, errors.IsValidation(err))
	})

	t.Run("stores feedback and enqueues an analysis task", func(t *testing.T) {
		f := newGenerationFixture()
		run := &entities.GenerationRun{ID: "run-1", ClientID: "client-1", ContentType: entities.ContentBlog}
		f.runs.On("GetByID", mock.Anything, "run-1").Return(run, nil)
		f.feedback.On("Create", mock.Anything, mock.MatchedBy(func(fb *entities.QualityFeedback) bool {
			return fb.ID != "" && fb.FeedbackType == entities.FeedbackQAReview
		})).Return(nil)
		f.queue.On("Enqueue", mock.Anything, mock.MatchedBy(func(task providers.AnalysisTask) bool {
			return task.RunID == "run-1"
		})).Return(nil)

		err := f.service.SubmitFeedback(context.Background(), &entities.QualityFeedback{RunID: "run-1"})

		assert.NoError(t, err)
		f.queue.AssertExpectations(t)
	})

	t.Run("queue failure does not fail the submission", func(t *testing.T) {
		f := newGenerationFixture()
		run := &entities.GenerationRun{ID: "run-1", ClientID: "client-1", ContentType: entities.ContentBlog}
		f.runs.On("GetByID", mock.Anything, "run-1").Return(run, nil)
		f.feedback.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.queue.On("Enqueue", mock.Anything, mock.Anything).Return(assert.AnError)

		err := f.service.SubmitFeedback(context.Background(), &entities.QualityFeedback{RunID: "run-1"})

		assert.NoError(t, err)
	})
}

func TestGenerationService_UpdateDecisionOutcome(t *testing.T) {
	t.Run("unknown decisions are ignored", func(t *testing.T) {
		f := newGenerationFixture()
		f.decisions.On("GetByID", mock.Anything, "dec-missing").Return(nil, errors.NewNotFoundError("decision not found"))

		result, err := f.service.UpdateDecisionOutcome(context.Background(), "dec-missing", entities.RunActuals{})

		assert.NoError(t, err)
		assert.Nil(t, result)
		f.decisions.AssertNotCalled(t, "UpdateOutcome", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("incorrect outcomes persist a corrective signal atomically", func(t *testing.T) {
		f := newGenerationFixture()
		record := &entities.RouteDecisionRecord{
			ID: "dec-1", RunID: "run-1", ClientID: "client-1",
			ContentType: entities.ContentBlog, Route: entities.RouteBalanced,
			ExpectedQuality: 7.8, ExpectedCostUsd: 1.20,
		}
		f.decisions.On("GetByID", mock.Anything, "dec-1").Return(record, nil)
		f.decisions.On("UpdateOutcome", mock.Anything, "dec-1", mock.Anything, false, mock.MatchedBy(func(s *entities.LearningSignal) bool {
			return s != nil && s.SignalType == entities.SignalRouteAdjustment && s.SourceRunID == "run-1"
		})).Return(nil)

		quality := 5.0
		result, err := f.service.UpdateDecisionOutcome(context.Background(), "dec-1", entities.RunActuals{Quality: &quality})

		assert.NoError(t, err)
		if assert.NotNil(t, result) {
			assert.False(t, result.WasCorrect)
		}
		f.decisions.AssertExpectations(t)
	})
}

func TestGenerationService_LearningRecommendations(t *testing.T) {
	t.Run("empty client id lists signals across all clients", func(t *testing.T) {
		f := newGenerationFixture()
		f.signals.On("List", mock.Anything, repositories.SignalFilter{
			ClientID:       "",
			ActionableOnly: true,
			Limit:          5,
		}).Return([]*entities.LearningSignal{{ID: 1}, {ID: 2}}, nil)

		signals, err := f.service.LearningRecommendations(context.Background(), "", 5)

		assert.NoError(t, err)
		assert.Len(t, signals, 2)
		f.signals.AssertExpectations(t)
	})

	t.Run("queries actionable signals with a default limit", func(t *testing.T) {
		f := newGenerationFixture()
		f.signals.On("List", mock.Anything, repositories.SignalFilter{
			ClientID:       "client-1",
			ActionableOnly: true,
			Limit:          10,
		}).Return([]*entities.LearningSignal{{ID: 1}}, nil)

		signals, err := f.service.LearningRecommendations(context.Background(), "client-1", 0)

		assert.NoError(t, err)
		assert.Len(t, signals, 1)
	})
}
