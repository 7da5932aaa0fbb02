package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/contentloop/contentloop/internal/domain/entities"
	"github.com/contentloop/contentloop/internal/domain/providers"
	"github.com/contentloop/contentloop/internal/domain/repositories"
	"github.com/contentloop/contentloop/internal/infrastructure/observability"
	"github.com/contentloop/contentloop/pkg/errors"
)

// GenerationService owns the generation-run lifecycle: recording runs and
// decisions, accepting feedback, and closing decision outcomes.
type GenerationService struct {
	runs      repositories.GenerationRunRepository
	feedback  repositories.FeedbackRepository
	decisions repositories.RouteDecisionRepository
	signals   repositories.SignalRepository
	queue     providers.AnalysisQueue
	evaluator *OutcomeEvaluator
}

// NewGenerationService creates a new generation service.
func NewGenerationService(
	runs repositories.GenerationRunRepository,
	feedback repositories.FeedbackRepository,
	decisions repositories.RouteDecisionRepository,
	signals repositories.SignalRepository,
	queue providers.AnalysisQueue,
	evaluator *OutcomeEvaluator,
) *GenerationService {
	return &GenerationService{
		runs:      runs,
		feedback:  feedback,
		decisions: decisions,
		signals:   signals,
		queue:     queue,
		evaluator: evaluator,
	}
}

// RecordRun persists a new generation run in pending status.
func (s *GenerationService) RecordRun(ctx context.Context, run *entities.GenerationRun) error {
	if run.ClientID == "" {
		return errors.NewValidationError("client id is required")
	}
	if run.ContentType == "" {
		return errors.NewValidationError("content type is required")
	}
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.Status == "" {
		run.Status = entities.RunPending
	}
	run.CreatedAt = time.Now().UTC()
	return s.runs.Create(ctx, run)
}

// CompleteRun records the final status and observed actuals for a run.
func (s *GenerationService) CompleteRun(ctx context.Context, runID string, status entities.RunStatus, actuals entities.RunActuals) error {
	if runID == "" {
		return errors.NewValidationError("run id is required")
	}
	switch status {
	case entities.RunCompleted, entities.RunFailed:
	default:
		return errors.NewValidationError("completion status must be completed or failed")
	}
	return s.runs.Complete(ctx, runID, status, actuals)
}

// SubmitFeedback stores one feedback entry for a run and queues the run for
// background analysis. The run must exist. A queue failure is logged but does
// not fail the submission; the feedback is already durable and the run will
// be picked up the next time feedback arrives.
func (s *GenerationService) SubmitFeedback(ctx context.Context, feedback *entities.QualityFeedback) error {
	if feedback.RunID == "" {
		return errors.NewValidationError("run id is required")
	}
	if feedback.OverallScore != nil && (*feedback.OverallScore < 0 || *feedback.OverallScore > 10) {
		return errors.NewValidationError("overall score must be between 0 and 10")
	}

	if _, err := s.runs.GetByID(ctx, feedback.RunID); err != nil {
		return err
	}

	if feedback.ID == "" {
		feedback.ID = uuid.New().String()
	}
	if feedback.FeedbackType == "" {
		feedback.FeedbackType = entities.FeedbackQAReview
	}
	feedback.CreatedAt = time.Now().UTC()

	if err := s.feedback.Create(ctx, feedback); err != nil {
		return err
	}

	task := providers.AnalysisTask{RunID: feedback.RunID, EnqueuedAt: time.Now().UTC()}
	if err := s.queue.Enqueue(ctx, task); err != nil {
		observability.LoggerFromContext(ctx).Error().Err(err).
			Str("run_id", feedback.RunID).
			Msg("failed to enqueue analysis task, run will be analyzed on next feedback")
	}
	return nil
}

// RecordDecision persists the decision made for a run so its outcome can be
// evaluated later. Re-recording for the same run replaces the earlier record.
func (s *GenerationService) RecordDecision(ctx context.Context, runID string, reqCtx entities.RoutingContext, decision entities.RouteDecision) (*entities.RouteDecisionRecord, error) {
	if runID == "" {
		return nil, errors.NewValidationError("run id is required")
	}

	record := &entities.RouteDecisionRecord{
		ID:                  uuid.New().String(),
		RunID:               runID,
		ClientID:            reqCtx.ClientID,
		ContentType:         reqCtx.ContentType,
		Route:               decision.Route,
		Reason:              decision.Reason,
		ExpectedQuality:     decision.ExpectedQuality,
		ExpectedCostUsd:     decision.ExpectedCostUsd,
		ExpectedTimeMinutes: decision.ExpectedTimeMinutes,
		CreatedAt:           time.Now().UTC(),
	}
	if err := s.decisions.Create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// UpdateDecisionOutcome evaluates a decision against observed actuals and
// persists the verdict together with any corrective signal. A missing
// decision is a silent no-op so replayed outcome reports stay harmless.
func (s *GenerationService) UpdateDecisionOutcome(ctx context.Context, decisionID string, actuals entities.RunActuals) (*EvaluationResult, error) {
	record, err := s.decisions.GetByID(ctx, decisionID)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	result := s.evaluator.EvaluateRecord(record, actuals)
	corrective := s.evaluator.BuildCorrectiveSignal(record, result)
	if err := s.decisions.UpdateOutcome(ctx, record.ID, actuals, result.WasCorrect, corrective); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetRun returns a run by id or a NOT_FOUND application error.
func (s *GenerationService) GetRun(ctx context.Context, runID string) (*entities.GenerationRun, error) {
	return s.runs.GetByID(ctx, runID)
}

// GetDecision returns a decision record by id or a NOT_FOUND application error.
func (s *GenerationService) GetDecision(ctx context.Context, decisionID string) (*entities.RouteDecisionRecord, error) {
	return s.decisions.GetByID(ctx, decisionID)
}

// RunFeedback returns all feedback recorded for a run.
func (s *GenerationService) RunFeedback(ctx context.Context, runID string) ([]*entities.QualityFeedback, error) {
	return s.feedback.ListByRun(ctx, runID)
}

// LearningRecommendations returns the highest-confidence actionable signals,
// most trusted first. An empty clientID lists signals across all clients.
func (s *GenerationService) LearningRecommendations(ctx context.Context, clientID string, limit int) ([]*entities.LearningSignal, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.signals.List(ctx, repositories.SignalFilter{
		ClientID:       clientID,
		ActionableOnly: true,
		Limit:          limit,
	})
}
