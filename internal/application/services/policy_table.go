package services

import (
	"github.com/contentloop/contentloop/internal/domain/entities"
)

// PolicyTable is the immutable routing configuration: per-tier defaults,
// priority overrides, per-route execution parameters, per-(route, content
// type) expected metrics and provider recommendations. It is passed into the
// resolver at construction time so tests can substitute alternate tables.
type PolicyTable struct {
	TierDefaults      map[entities.ClientTier]entities.RouteType
	PriorityOverrides map[entities.ContentPriority]entities.RouteType
	QualityMaxTiers   map[entities.ClientTier]bool
	RouteConfigs      map[entities.RouteType]entities.RouteConfig
	ExpectedMetrics   map[entities.RouteType]map[entities.ContentType]entities.ExpectedMetrics
	Providers         map[entities.RouteType]map[entities.ContentType]entities.ProviderRecommendation
}

// fallbackContentType is used when a content type has no table entry.
// Unrecognized types route like blog content rather than failing.
const fallbackContentType = entities.ContentBlog

// DefaultPolicyTable returns the production routing configuration.
func DefaultPolicyTable() *PolicyTable {
	return &PolicyTable{
		TierDefaults: map[entities.ClientTier]entities.RouteType{
			entities.TierEnterprise: entities.RouteQualityMax,
			entities.TierPremium:    entities.RouteBalanced,
			entities.TierStandard:   entities.RouteBalanced,
			entities.TierStarter:    entities.RouteEfficiencyMax,
		},
		PriorityOverrides: map[entities.ContentPriority]entities.RouteType{
			entities.PriorityCritical: entities.RouteQualityMax,
			entities.PriorityHigh:     entities.RouteBalanced,
			entities.PriorityBulk:     entities.RouteEfficiencyMax,
		},
		QualityMaxTiers: map[entities.ClientTier]bool{
			entities.TierEnterprise: true,
			entities.TierPremium:    true,
		},
		RouteConfigs: map[entities.RouteType]entities.RouteConfig{
			entities.RouteQualityMax: {
				MaxRetries:          3,
				QualityThreshold:    8.5,
				AutoApprove:         false,
				HumanReviewRequired: true,
				UsePremiumProviders: true,
				ParallelGeneration:  true,
				CacheResults:        false,
				IterationLimit:      3,
			},
			entities.RouteBalanced: {
				MaxRetries:          2,
				QualityThreshold:    7.0,
				AutoApprove:         true,
				HumanReviewRequired: false,
				UsePremiumProviders: false,
				ParallelGeneration:  false,
				CacheResults:        true,
				IterationLimit:      2,
			},
			entities.RouteEfficiencyMax: {
				MaxRetries:          1,
				QualityThreshold:    6.0,
				AutoApprove:         true,
				HumanReviewRequired: false,
				UsePremiumProviders: false,
				ParallelGeneration:  false,
				CacheResults:        true,
				IterationLimit:      1,
			},
		},
		ExpectedMetrics: map[entities.RouteType]map[entities.ContentType]entities.ExpectedMetrics{
			entities.RouteQualityMax: {
				entities.ContentVideo:  {Quality: 9.2, CostUsd: 15.00, TimeMinutes: 45},
				entities.ContentBlog:   {Quality: 9.0, CostUsd: 2.50, TimeMinutes: 20},
				entities.ContentSocial: {Quality: 8.8, CostUsd: 1.20, TimeMinutes: 10},
				entities.ContentAdCopy: {Quality: 9.0, CostUsd: 1.80, TimeMinutes: 15},
				entities.ContentImage:  {Quality: 9.1, CostUsd: 3.50, TimeMinutes: 12},
			},
			entities.RouteBalanced: {
				entities.ContentVideo:  {Quality: 8.0, CostUsd: 8.00, TimeMinutes: 25},
				entities.ContentBlog:   {Quality: 7.8, CostUsd: 1.20, TimeMinutes: 10},
				entities.ContentSocial: {Quality: 7.5, CostUsd: 0.60, TimeMinutes: 5},
				entities.ContentAdCopy: {Quality: 7.8, CostUsd: 0.90, TimeMinutes: 8},
				entities.ContentImage:  {Quality: 7.9, CostUsd: 1.80, TimeMinutes: 6},
			},
			entities.RouteEfficiencyMax: {
				entities.ContentVideo:  {Quality: 6.5, CostUsd: 3.50, TimeMinutes: 12},
				entities.ContentBlog:   {Quality: 6.2, CostUsd: 0.50, TimeMinutes: 4},
				entities.ContentSocial: {Quality: 6.0, CostUsd: 0.25, TimeMinutes: 2},
				entities.ContentAdCopy: {Quality: 6.2, CostUsd: 0.40, TimeMinutes: 3},
				entities.ContentImage:  {Quality: 6.3, CostUsd: 0.80, TimeMinutes: 3},
			},
		},
		Providers: map[entities.RouteType]map[entities.ContentType]entities.ProviderRecommendation{
			entities.RouteQualityMax: {
				entities.ContentVideo:  {Primary: "runway", Fallback: "pika"},
				entities.ContentBlog:   {Primary: "anthropic", Fallback: "openai"},
				entities.ContentSocial: {Primary: "anthropic", Fallback: "openai"},
				entities.ContentAdCopy: {Primary: "anthropic", Fallback: "openai"},
				entities.ContentImage:  {Primary: "midjourney", Fallback: "dalle"},
			},
			entities.RouteBalanced: {
				entities.ContentVideo:  {Primary: "pika", Fallback: "stability"},
				entities.ContentBlog:   {Primary: "openai", Fallback: "anthropic"},
				entities.ContentSocial: {Primary: "openai", Fallback: "anthropic"},
				entities.ContentAdCopy: {Primary: "openai", Fallback: "anthropic"},
				entities.ContentImage:  {Primary: "dalle", Fallback: "stability"},
			},
			entities.RouteEfficiencyMax: {
				entities.ContentVideo:  {Primary: "stability", Fallback: "pika"},
				entities.ContentBlog:   {Primary: "llama", Fallback: "openai"},
				entities.ContentSocial: {Primary: "llama", Fallback: "openai"},
				entities.ContentAdCopy: {Primary: "llama", Fallback: "openai"},
				entities.ContentImage:  {Primary: "stability", Fallback: "dalle"},
			},
		},
	}
}

// ConfigFor returns the execution parameters for a route.
func (t *PolicyTable) ConfigFor(route entities.RouteType) entities.RouteConfig {
	return t.RouteConfigs[route]
}

// MetricsFor returns expected metrics for a (route, content type) pair,
// falling back to the blog entry for unrecognized content types.
func (t *PolicyTable) MetricsFor(route entities.RouteType, contentType entities.ContentType) entities.ExpectedMetrics {
	byType, ok := t.ExpectedMetrics[route]
	if !ok {
		return entities.ExpectedMetrics{}
	}
	if m, ok := byType[contentType]; ok {
		return m
	}
	return byType[fallbackContentType]
}

// ProviderFor returns the provider recommendation for a (route, content type)
// pair, falling back to the blog entry for unrecognized content types.
func (t *PolicyTable) ProviderFor(route entities.RouteType, contentType entities.ContentType) entities.ProviderRecommendation {
	byType, ok := t.Providers[route]
	if !ok {
		return entities.ProviderRecommendation{}
	}
	if p, ok := byType[contentType]; ok {
		return p
	}
	return byType[fallbackContentType]
}

// DefaultRouteFor returns the default route for a client tier, honoring any
// priority override first.
func (t *PolicyTable) DefaultRouteFor(tier entities.ClientTier) entities.RouteType {
	if route, ok := t.TierDefaults[tier]; ok {
		return route
	}
	return entities.RouteBalanced
}

// AllowsQualityMax reports whether the tier may use the quality_max route.
func (t *PolicyTable) AllowsQualityMax(tier entities.ClientTier) bool {
	return t.QualityMaxTiers[tier]
}
