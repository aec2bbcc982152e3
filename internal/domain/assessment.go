package domain

import "time"

// RiskLevel is the coarse bucket derived from a continuous churn score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// FactorImpact describes the direction a signal pushed the churn score.
type FactorImpact string

const (
	ImpactPositive FactorImpact = "positive"
	ImpactNegative FactorImpact = "negative"
	ImpactNeutral  FactorImpact = "neutral"
)

// Factor is one contributing signal of a risk assessment. Order matters:
// factors are listed by descending weight for the API contract and for
// template rendering.
type Factor struct {
	Factor string       `json:"factor"`
	Impact FactorImpact `json:"impact"`
	Weight float64      `json:"weight"`
}

// RiskAssessment is one scoring run for one user. The most recent
// assessment per user is the authoritative current risk; older ones are
// retained as history and never mutated.
type RiskAssessment struct {
	UserID       string    `json:"user_id"`
	ChurnScore   float64   `json:"churn_score"`
	RiskLevel    RiskLevel `json:"risk_level"`
	Confidence   float64   `json:"confidence"`
	Factors      []Factor  `json:"factors"`
	Reasoning    string    `json:"reasoning,omitempty"`
	ComputedAt   time.Time `json:"computed_at"`
	ModelVersion string    `json:"model_version"`
}

// AtRisk reports whether the assessment should drive recommendations.
func (a *RiskAssessment) AtRisk() bool {
	return a.RiskLevel == RiskMedium || a.RiskLevel == RiskHigh
}
