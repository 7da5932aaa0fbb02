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
)

const (
	// highSeverityConfidence marks failure signals strong enough to force an
	// upgrade on their own.
	highSeverityConfidence = 0.8
	// successDowngradeMinSignals is the number of success patterns required
	// before a quality_max decision may be relaxed.
	successDowngradeMinSignals = 3
	// successDowngradeQualityBar is the historical average quality required
	// before relaxing quality_max.
	successDowngradeQualityBar = 8.0
	// qualityBoostBar triggers a boost when historical quality falls below it.
	qualityBoostBar = 6.0
	// qualityBoostMinSamples guards the boost against thin history.
	qualityBoostMinSamples = 3
)

// AdaptiveRouterService blends the static policy decision with learned
// signals and historical performance read from the signal store.
type AdaptiveRouterService struct {
	policy     *RoutePolicyService
	signals    repositories.SignalRepository
	runs       repositories.GenerationRunRepository
	recency    time.Duration
	queryLimit int
	metrics    *observability.Metrics
}

// NewAdaptiveRouterService creates a new adaptive router.
func NewAdaptiveRouterService(
	policy *RoutePolicyService,
	signals repositories.SignalRepository,
	runs repositories.GenerationRunRepository,
	recency time.Duration,
	queryLimit int,
	metrics *observability.Metrics,
) *AdaptiveRouterService {
	if recency <= 0 {
		recency = 30 * 24 * time.Hour
	}
	if queryLimit <= 0 {
		queryLimit = 20
	}
	return &AdaptiveRouterService{
		policy:     policy,
		signals:    signals,
		runs:       runs,
		recency:    recency,
		queryLimit: queryLimit,
		metrics:    metrics,
	}
}

// ResolveWithLearning resolves a route, then re-ranks the static decision
// using recent signals and the client's historical performance. Store errors
// propagate to the caller, which should fall back to the static decision.
func (s *AdaptiveRouterService) ResolveWithLearning(ctx context.Context, reqCtx entities.RoutingContext) (entities.RouteDecision, error) {
	base := s.policy.Resolve(reqCtx)

	signals, err := s.collectSignals(ctx, reqCtx)
	if err != nil {
		return base, err
	}

	since := time.Now().Add(-s.recency)
	historical, err := s.runs.AggregatePerformance(ctx, reqCtx.ClientID, reqCtx.ContentType, since)
	if err != nil {
		return base, err
	}

	route := base.Route
	var adjustments []entities.LearningAdjustment

	var failurePatterns, successPatterns []*entities.LearningSignal
	var highSeverity []*entities.LearningSignal
	for _, sig := range signals {
		switch sig.SignalType {
		case entities.SignalFailurePattern:
			failurePatterns = append(failurePatterns, sig)
			if sig.Confidence >= highSeverityConfidence {
				highSeverity = append(highSeverity, sig)
			}
		case entities.SignalSuccessPattern:
			successPatterns = append(successPatterns, sig)
		}
	}

	// Recent failures push cheap routing up a tier.
	if (len(failurePatterns) > 2 || len(highSeverity) > 0) && route == entities.RouteEfficiencyMax {
		contributing := highSeverity
		if len(contributing) == 0 {
			contributing = failurePatterns
		}
		for _, sig := range contributing {
			adjustments = append(adjustments, entities.LearningAdjustment{
				SignalID:       sig.ID,
				SignalType:     sig.SignalType,
				AdjustmentType: entities.AdjustmentRouteUpgrade,
				OriginalValue:  string(route),
				AdjustedValue:  string(entities.RouteBalanced),
				Confidence:     sig.Confidence,
			})
		}
		route = entities.RouteBalanced
	}

	// A consistently strong client can be served one tier cheaper, unless the
	// request is critical.
	if len(successPatterns) >= successDowngradeMinSignals &&
		historical.AvgQuality > successDowngradeQualityBar &&
		route == entities.RouteQualityMax &&
		reqCtx.ContentPriority != entities.PriorityCritical {
		for _, sig := range successPatterns {
			adjustments = append(adjustments, entities.LearningAdjustment{
				SignalID:       sig.ID,
				SignalType:     sig.SignalType,
				AdjustmentType: entities.AdjustmentRouteDowngrade,
				OriginalValue:  string(route),
				AdjustedValue:  string(entities.RouteBalanced),
				Confidence:     sig.Confidence,
			})
		}
		route = entities.RouteBalanced
	}

	// Poor historical quality earns a boost, derived from the aggregate
	// rather than any single signal.
	if historical.AvgQuality < qualityBoostBar &&
		historical.SampleSize >= qualityBoostMinSamples &&
		route != entities.RouteQualityMax &&
		s.policy.Table().AllowsQualityMax(reqCtx.ClientTier) {
		boosted := entities.RouteQualityMax
		if route == entities.RouteEfficiencyMax {
			boosted = entities.RouteBalanced
		}
		adjustments = append(adjustments, entities.LearningAdjustment{
			SignalID:       0,
			SignalType:     entities.SignalRouteAdjustment,
			AdjustmentType: entities.AdjustmentQualityBoost,
			OriginalValue:  string(route),
			AdjustedValue:  string(boosted),
			Confidence:     math.Min(0.9, float64(historical.SampleSize)/10),
		})
		route = boosted
	}

	// Failures implicating the selected provider family are recorded for the
	// caller but do not change the route.
	provider := s.policy.Table().ProviderFor(route, reqCtx.ContentType).Primary
	for _, sig := range failurePatterns {
		if !signalImplicatesProvider(sig, provider) {
			continue
		}
		adjustments = append(adjustments, entities.LearningAdjustment{
			SignalID:       sig.ID,
			SignalType:     sig.SignalType,
			AdjustmentType: entities.AdjustmentProviderOverride,
			OriginalValue:  provider,
			AdjustedValue:  s.policy.Table().ProviderFor(route, reqCtx.ContentType).Fallback,
			Confidence:     sig.Confidence,
		})
	}

	if len(adjustments) == 0 {
		observability.RecordRouteDecision(ctx, s.metrics, string(base.Route), false)
		return base, nil
	}

	decision := s.policy.BuildDecision(route, base.Reason, reqCtx)
	decision.Reason = fmt.Sprintf("%s [Learning adjustments: %s]", base.Reason, describeAdjustments(adjustments))
	decision.LearningAdjustments = adjustments

	s.markSignalsApplied(ctx, adjustments)
	observability.RecordRouteDecision(ctx, s.metrics, string(decision.Route), decision.Route != base.Route)
	for _, adj := range adjustments {
		observability.RecordAdjustments(ctx, s.metrics, string(adj.AdjustmentType), 1)
	}

	return decision, nil
}

// collectSignals unions category-scoped and client-scoped actionable signals
// within the recency window, deduplicated by id.
func (s *AdaptiveRouterService) collectSignals(ctx context.Context, reqCtx entities.RoutingContext) ([]*entities.LearningSignal, error) {
	since := time.Now().Add(-s.recency)

	byCategory, err := s.signals.List(ctx, repositories.SignalFilter{
		Category:       reqCtx.ContentType,
		Since:          since,
		ActionableOnly: true,
		Limit:          s.queryLimit,
	})
	if err != nil {
		return nil, err
	}

	byClient, err := s.signals.List(ctx, repositories.SignalFilter{
		ClientID:       reqCtx.ClientID,
		Since:          since,
		ActionableOnly: true,
		Limit:          s.queryLimit,
	})
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{}, len(byCategory)+len(byClient))
	var merged []*entities.LearningSignal
	for _, sig := range append(byCategory, byClient...) {
		if _, ok := seen[sig.ID]; ok {
			continue
		}
		seen[sig.ID] = struct{}{}
		merged = append(merged, sig)
	}
	return merged, nil
}

// markSignalsApplied bumps applied counts for consumed signals. Best effort:
// a failure here must not fail the routing call.
func (s *AdaptiveRouterService) markSignalsApplied(ctx context.Context, adjustments []entities.LearningAdjustment) {
	seen := make(map[int64]struct{}, len(adjustments))
	var ids []int64
	for _, adj := range adjustments {
		if adj.SignalID == 0 {
			continue
		}
		if _, ok := seen[adj.SignalID]; ok {
			continue
		}
		seen[adj.SignalID] = struct{}{}
		ids = append(ids, adj.SignalID)
	}
	if len(ids) == 0 {
		return
	}
	if err := s.signals.IncrementApplied(ctx, ids); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("failed to bump applied count for consumed signals")
	}
}

// signalImplicatesProvider matches on the structured affected_provider field,
// falling back to a substring scan of the pattern text for signals written
// before the field existed.
func signalImplicatesProvider(sig *entities.LearningSignal, provider string) bool {
	if provider == "" {
		return false
	}
	if sig.AffectedProvider != "" {
		return strings.EqualFold(sig.AffectedProvider, provider)
	}
	return strings.Contains(strings.ToLower(sig.Pattern), strings.ToLower(provider))
}

func describeAdjustments(adjustments []entities.LearningAdjustment) string {
	parts := make([]string, 0, len(adjustments))
	seen := make(map[string]struct{})
	for _, adj := range adjustments {
		desc := fmt.Sprintf("%s %s->%s", adj.AdjustmentType, adj.OriginalValue, adj.AdjustedValue)
		if _, ok := seen[desc]; ok {
			continue
		}
		seen[desc] = struct{}{}
		parts = append(parts, desc)
	}
	return strings.Join(parts, "; ")
}
