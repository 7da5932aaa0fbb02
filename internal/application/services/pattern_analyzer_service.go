package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/contentloop/contentloop/internal/domain/entities"
	"github.com/contentloop/contentloop/internal/domain/repositories"
	"github.com/contentloop/contentloop/internal/infrastructure/observability"
	"github.com/contentloop/contentloop/pkg/errors"
)

const (
	// failureIssueThreshold is the repeat count at which a tallied issue
	// becomes a failure pattern on its own.
	failureIssueThreshold = 2
	// catastrophicQualityBar marks a run as catastrophic when the feedback
	// average falls below it.
	catastrophicQualityBar = 3.0
	// successQualityBar marks a run as a success pattern when the feedback
	// average reaches it.
	successQualityBar = 8.5
)

// highSeverityIssues are issue keywords that produce a failure signal from a
// single occurrence.
var highSeverityIssues = map[string]struct{}{
	"timeout":     {},
	"crash":       {},
	"outage":      {},
	"security":    {},
	"api_failure": {},
	"data_loss":   {},
}

// PatternAnalyzerService derives learning signals from the accumulated
// feedback on a generation run, updates prompt effectiveness, and closes the
// loop on the run's route decision.
type PatternAnalyzerService struct {
	runs      repositories.GenerationRunRepository
	feedback  repositories.FeedbackRepository
	signals   repositories.SignalRepository
	prompts   repositories.PromptEffectivenessRepository
	decisions repositories.RouteDecisionRepository
	evaluator *OutcomeEvaluator
	metrics   *observability.Metrics
}

// NewPatternAnalyzerService creates a new pattern analyzer.
func NewPatternAnalyzerService(
	runs repositories.GenerationRunRepository,
	feedback repositories.FeedbackRepository,
	signals repositories.SignalRepository,
	prompts repositories.PromptEffectivenessRepository,
	decisions repositories.RouteDecisionRepository,
	evaluator *OutcomeEvaluator,
	metrics *observability.Metrics,
) *PatternAnalyzerService {
	return &PatternAnalyzerService{
		runs:      runs,
		feedback:  feedback,
		signals:   signals,
		prompts:   prompts,
		decisions: decisions,
		evaluator: evaluator,
		metrics:   metrics,
	}
}

// AnalyzeRun processes one analysis task. Missing runs and runs without
// feedback are silent no-ops; a run already claimed by another worker is
// skipped. Any later failure releases the claim so the task can be retried.
func (s *PatternAnalyzerService) AnalyzeRun(ctx context.Context, runID string) error {
	logger := observability.LoggerFromContext(ctx).With().Str("run_id", runID).Logger()
	started := time.Now()

	run, err := s.runs.GetByID(ctx, runID)
	if err != nil {
		if errors.IsNotFound(err) {
			logger.Warn().Msg("analysis task references unknown run, dropping")
			return nil
		}
		return err
	}

	entries, err := s.feedback.ListByRun(ctx, runID)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		logger.Debug().Msg("no feedback for run, nothing to analyze")
		return nil
	}

	claimed, err := s.runs.ClaimAnalysis(ctx, runID)
	if err != nil {
		return err
	}
	if !claimed {
		logger.Debug().Msg("run already analyzed, skipping")
		return nil
	}

	if err := s.analyze(ctx, run, entries); err != nil {
		if relErr := s.runs.ReleaseAnalysis(ctx, runID); relErr != nil {
			logger.Error().Err(relErr).Msg("failed to release analysis claim after error")
		}
		observability.RecordAnalysisDuration(ctx, s.metrics, time.Since(started), false)
		return err
	}

	observability.RecordAnalysisDuration(ctx, s.metrics, time.Since(started), true)
	logger.Info().Int("feedback_count", len(entries)).Msg("run analyzed")
	return nil
}

func (s *PatternAnalyzerService) analyze(ctx context.Context, run *entities.GenerationRun, entries []*entities.QualityFeedback) error {
	avgScore, scoredCount := averageScore(entries)

	if err := s.emitIssueSignals(ctx, run, entries); err != nil {
		return err
	}

	if scoredCount > 0 && avgScore < catastrophicQualityBar {
		if err := s.signals.Create(ctx, s.catastrophicSignal(run, avgScore, scoredCount)); err != nil {
			return err
		}
	}

	if scoredCount > 0 && avgScore >= successQualityBar {
		if err := s.signals.Create(ctx, s.successSignal(run, avgScore, scoredCount)); err != nil {
			return err
		}
	}

	if scoredCount > 0 && run.PromptHash != "" {
		if err := s.prompts.RecordUse(ctx, run.PromptHash, avgScore, time.Now().UTC()); err != nil {
			return err
		}
	}

	return s.closeDecisionLoop(ctx, run, avgScore, scoredCount)
}

// emitIssueSignals tallies issues across all feedback and writes a failure
// signal for each issue that repeats or is high severity.
func (s *PatternAnalyzerService) emitIssueSignals(ctx context.Context, run *entities.GenerationRun, entries []*entities.QualityFeedback) error {
	tally := make(map[string]int)
	order := make([]string, 0)
	for _, fb := range entries {
		for _, issue := range fb.Issues {
			key := strings.ToLower(strings.TrimSpace(issue))
			if key == "" {
				continue
			}
			if _, seen := tally[key]; !seen {
				order = append(order, key)
			}
			tally[key]++
		}
	}

	for _, issue := range order {
		count := tally[issue]
		_, severe := highSeverityIssues[issue]
		if count < failureIssueThreshold && !severe {
			continue
		}

		signal := &entities.LearningSignal{
			SignalType:       entities.SignalFailurePattern,
			Category:         run.ContentType,
			Pattern:          fmt.Sprintf("recurring issue %q on %s content via %s", issue, run.ContentType, run.Provider),
			AffectedProvider: run.Provider,
			SampleSize:       count,
			ClientID:         run.ClientID,
			Recommendation:   fmt.Sprintf("review %s handling for %s content", issue, run.ContentType),
			IsActionable:     true,
			SourceRunID:      run.ID,
		}

		if severe {
			signal.Confidence = 0.9
			signal.Impact = entities.SignalImpact{QualityDelta: -3.0, CostDelta: 0.5, SpeedDelta: 1.0}
		} else {
			signal.Confidence = math.Min(0.9, float64(count)/float64(len(entries)))
			signal.Impact = entities.SignalImpact{QualityDelta: -1.0, CostDelta: 0.2, SpeedDelta: 0.3}
		}

		if err := s.signals.Create(ctx, signal); err != nil {
			return err
		}
	}
	return nil
}

func (s *PatternAnalyzerService) catastrophicSignal(run *entities.GenerationRun, avgScore float64, samples int) *entities.LearningSignal {
	return &entities.LearningSignal{
		SignalType:       entities.SignalFailurePattern,
		Category:         run.ContentType,
		Pattern:          fmt.Sprintf("catastrophic quality %.1f on %s content via %s", avgScore, run.ContentType, run.Provider),
		AffectedProvider: run.Provider,
		Confidence:       0.95,
		SampleSize:       samples,
		ClientID:         run.ClientID,
		Impact:           entities.SignalImpact{QualityDelta: -5.0, CostDelta: 1.0, SpeedDelta: 2.0},
		Recommendation:   fmt.Sprintf("switch away from provider %s for %s content", run.Provider, run.ContentType),
		IsActionable:     true,
		SourceRunID:      run.ID,
	}
}

func (s *PatternAnalyzerService) successSignal(run *entities.GenerationRun, avgScore float64, samples int) *entities.LearningSignal {
	return &entities.LearningSignal{
		SignalType:     entities.SignalSuccessPattern,
		Category:       run.ContentType,
		Pattern:        fmt.Sprintf("high quality %.1f on %s content via %s route", avgScore, run.ContentType, run.RouteType),
		Confidence:     0.8,
		SampleSize:     samples,
		ClientID:       run.ClientID,
		Impact:         entities.SignalImpact{QualityDelta: avgScore - 7.0},
		Recommendation: fmt.Sprintf("current %s configuration works well for %s content", run.RouteType, run.ContentType),
		IsActionable:   true,
		SourceRunID:    run.ID,
	}
}

// closeDecisionLoop evaluates the run's route decision against the observed
// outcome and persists the verdict plus any corrective signal.
func (s *PatternAnalyzerService) closeDecisionLoop(ctx context.Context, run *entities.GenerationRun, avgScore float64, scoredCount int) error {
	record, err := s.decisions.GetByRunID(ctx, run.ID)
	if err != nil {
		if errors.IsNotFound(err) {
			// Runs recorded outside the routing path have no decision to close.
			return nil
		}
		return err
	}

	actuals := entities.RunActuals{
		Quality: run.ActualQuality,
		CostUsd: run.ActualCost,
		TimeMs:  run.ActualTimeMs,
	}
	if actuals.Quality == nil && scoredCount > 0 {
		actuals.Quality = &avgScore
	}
	if actuals.Quality == nil {
		// No quality observation at all; leave the decision open.
		return nil
	}

	result := s.evaluator.EvaluateRecord(record, actuals)
	corrective := s.evaluator.BuildCorrectiveSignal(record, result)
	return s.decisions.UpdateOutcome(ctx, record.ID, actuals, result.WasCorrect, corrective)
}

func averageScore(entries []*entities.QualityFeedback) (float64, int) {
	total := 0.0
	count := 0
	for _, fb := range entries {
		if fb.OverallScore == nil {
			continue
		}
		total += *fb.OverallScore
		count++
	}
	if count == 0 {
		return 0, 0
	}
	return total / float64(count), count
}
