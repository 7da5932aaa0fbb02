package entities

import "time"

// ClientTier is the subscription level of the requesting client.
type ClientTier string

const (
	TierEnterprise ClientTier = "enterprise"
	TierPremium    ClientTier = "premium"
	TierStandard   ClientTier = "standard"
	TierStarter    ClientTier = "starter"
)

// ContentType identifies the kind of content being generated.
type ContentType string

const (
	ContentVideo  ContentType = "video"
	ContentBlog   ContentType = "blog"
	ContentSocial ContentType = "social"
	ContentAdCopy ContentType = "ad_copy"
	ContentImage  ContentType = "image"
)

// ContentPriority is the caller-declared urgency of the request.
type ContentPriority string

const (
	PriorityCritical ContentPriority = "critical"
	PriorityHigh     ContentPriority = "high"
	PriorityStandard ContentPriority = "standard"
	PriorityBulk     ContentPriority = "bulk"
)

// BudgetTier is the caller's spend constraint for the request.
type BudgetTier string

const (
	BudgetUnlimited BudgetTier = "unlimited"
	BudgetStandard  BudgetTier = "standard"
	BudgetMinimal   BudgetTier = "minimal"
)

// RoutingContext describes one content-generation request. Immutable,
// created per request.
type RoutingContext struct {
	ClientID             string          `json:"client_id"`
	ClientTier           ClientTier      `json:"client_tier"`
	ContentType          ContentType     `json:"content_type"`
	ContentPriority      ContentPriority `json:"content_priority"`
	Budget               BudgetTier      `json:"budget,omitempty"`
	Deadline             *time.Time      `json:"deadline,omitempty"`
	PreviousQualityScore *float64        `json:"previous_quality_score,omitempty"`
	IsFirstContent       bool            `json:"is_first_content,omitempty"`
	BatchSize            int             `json:"batch_size,omitempty"`
}
