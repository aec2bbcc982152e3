package domain

import "time"

// RecommendationType classifies a retention action by the intervention
// it proposes.
type RecommendationType string

const (
	RecommendEmail           RecommendationType = "email"
	RecommendCall            RecommendationType = "call"
	RecommendDiscount        RecommendationType = "discount"
	RecommendFeatureAdoption RecommendationType = "feature_adoption"
	RecommendSupport         RecommendationType = "support"
	RecommendEducation       RecommendationType = "education"
)

// RecommendationStatus is the lifecycle state of a retention action.
// Transitions out of pending are one-way and operator-driven.
type RecommendationStatus string

const (
	RecommendationPending   RecommendationStatus = "pending"
	RecommendationExecuted  RecommendationStatus = "executed"
	RecommendationDismissed RecommendationStatus = "dismissed"
	RecommendationSnoozed   RecommendationStatus = "snoozed"
)

// Impact is the coarse estimated effect of executing a recommendation.
type Impact string

const (
	ImpactLow    Impact = "Low"
	ImpactMedium Impact = "Medium"
	ImpactHigh   Impact = "High"
)

// ImpactRank orders impacts for priority tie-breaking: High > Medium > Low.
func ImpactRank(i Impact) int {
	switch i {
	case ImpactHigh:
		return 3
	case ImpactMedium:
		return 2
	case ImpactLow:
		return 1
	default:
		return 0
	}
}

// Recommendation is one prioritized retention action derived from a risk
// assessment.
type Recommendation struct {
	ID              string               `json:"id"`
	UserID          string               `json:"user_id"`
	Type            RecommendationType   `json:"type"`
	Title           string               `json:"title"`
	Description     string               `json:"description"`
	Priority        int                  `json:"priority"`
	EstimatedImpact Impact               `json:"estimated_impact"`
	Status          RecommendationStatus `json:"status"`
	// SourceFactor names the dominant negative factor that produced this
	// recommendation; it keys the cool-down dedupe together with user and type.
	SourceFactor string     `json:"source_factor"`
	CreatedAt    time.Time  `json:"created_at"`
	ExecutedAt   *time.Time `json:"executed_at,omitempty"`
}
