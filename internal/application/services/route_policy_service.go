package services

import (
	"fmt"
	"math"
	"time"

	"github.com/contentloop/contentloop/internal/domain/entities"
)

// deadlineSlack is the safety factor applied to expected generation time when
// deciding whether a deadline is too tight for the current route.
const deadlineSlack = 1.5

// RoutePolicyService resolves a routing context to a base decision using only
// the static policy table. Pure, no I/O, always terminates.
type RoutePolicyService struct {
	table *PolicyTable
	now   func() time.Time
}

// NewRoutePolicyService creates a new static policy resolver.
func NewRoutePolicyService(table *PolicyTable) *RoutePolicyService {
	return &RoutePolicyService{
		table: table,
		now:   time.Now,
	}
}

// Table returns the policy table backing this resolver.
func (s *RoutePolicyService) Table() *PolicyTable {
	return s.table
}

// Resolve applies the override rules in order; each rule may overwrite the
// route picked by earlier rules, and the reason names the rule that fired last.
func (s *RoutePolicyService) Resolve(reqCtx entities.RoutingContext) entities.RouteDecision {
	route := s.table.DefaultRouteFor(reqCtx.ClientTier)
	reason := fmt.Sprintf("default route for %s tier", reqCtx.ClientTier)

	if override, ok := s.table.PriorityOverrides[reqCtx.ContentPriority]; ok {
		route = override
		reason = fmt.Sprintf("priority override for %s priority", reqCtx.ContentPriority)

		if override == entities.RouteQualityMax && !s.table.AllowsQualityMax(reqCtx.ClientTier) {
			route = entities.RouteBalanced
			reason = fmt.Sprintf("%s tier does not allow quality_max, downgraded to balanced", reqCtx.ClientTier)
		}
	}

	if reqCtx.Budget == entities.BudgetMinimal {
		route = entities.RouteEfficiencyMax
		reason = "minimal budget forces efficiency_max"
	}

	if reqCtx.Deadline != nil && route == entities.RouteQualityMax {
		expected := s.table.MetricsFor(route, reqCtx.ContentType)
		hoursUntil := reqCtx.Deadline.Sub(s.now()).Hours()
		if hoursUntil < expected.TimeMinutes/60*deadlineSlack {
			route = entities.RouteBalanced
			reason = "deadline too tight for quality_max, downgraded to balanced"
		}
	}

	if reqCtx.IsFirstContent && route == entities.RouteEfficiencyMax {
		route = entities.RouteBalanced
		reason = "first content for client, upgraded to balanced"
	}

	if reqCtx.PreviousQualityScore != nil && *reqCtx.PreviousQualityScore < 6.5 &&
		route == entities.RouteEfficiencyMax && s.table.AllowsQualityMax(reqCtx.ClientTier) {
		route = entities.RouteBalanced
		reason = fmt.Sprintf("previous quality score %.1f below threshold, upgraded to balanced", *reqCtx.PreviousQualityScore)
	}

	if reqCtx.BatchSize > 10 && route == entities.RouteQualityMax {
		route = entities.RouteBalanced
		reason = fmt.Sprintf("batch of %d too large for quality_max, downgraded to balanced", reqCtx.BatchSize)
	}

	return s.BuildDecision(route, reason, reqCtx)
}

// BuildDecision assembles a full decision for the given route: config copy,
// expected metrics (scaled for batches), provider recommendation, and review
// checkpoints.
func (s *RoutePolicyService) BuildDecision(route entities.RouteType, reason string, reqCtx entities.RoutingContext) entities.RouteDecision {
	config := s.table.ConfigFor(route)
	metrics := s.table.MetricsFor(route, reqCtx.ContentType)
	provider := s.table.ProviderFor(route, reqCtx.ContentType)

	cost := metrics.CostUsd
	timeMinutes := metrics.TimeMinutes
	if reqCtx.BatchSize > 0 {
		cost *= math.Max(1, float64(reqCtx.BatchSize)*0.8)
		timeMinutes *= math.Ceil(float64(reqCtx.BatchSize) / 3)
	}

	return entities.RouteDecision{
		Route:               route,
		Reason:              reason,
		Config:              config,
		Provider:            provider.Primary,
		FallbackProvider:    provider.Fallback,
		ExpectedQuality:     metrics.Quality,
		ExpectedCostUsd:     cost,
		ExpectedTimeMinutes: timeMinutes,
		ReviewCheckpoints:   buildCheckpoints(config),
	}
}

func buildCheckpoints(config entities.RouteConfig) []entities.ReviewCheckpoint {
	checkpoints := []entities.ReviewCheckpoint{
		{
			Stage:       "pre_generation",
			Type:        entities.CheckpointAuto,
			Description: "Validate rendered prompt and request context",
		},
		{
			Stage:       "post_generation",
			Type:        entities.CheckpointAuto,
			Description: fmt.Sprintf("Score output against quality threshold %.1f", config.QualityThreshold),
		},
	}

	if config.HumanReviewRequired {
		checkpoints = append(checkpoints, entities.ReviewCheckpoint{
			Stage:       "human_review",
			Type:        entities.CheckpointHuman,
			Description: "Editorial review before delivery",
		})
	}

	if config.AutoApprove {
		checkpoints = append(checkpoints, entities.ReviewCheckpoint{
			Stage:       "approval",
			Type:        entities.CheckpointAuto,
			Description: "Auto-approve output meeting the quality threshold",
		})
	} else {
		checkpoints = append(checkpoints, entities.ReviewCheckpoint{
			Stage:       "approval",
			Type:        entities.CheckpointHuman,
			Description: "Manual approval required before delivery",
		})
	}

	return checkpoints
}
