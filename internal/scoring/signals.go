package scoring

import (
	"time"

	"github.com/retainly/retention-service/internal/domain"
)

// Signal factor names. They appear in assessment factor lists and key
// the recommendation rules downstream.
const (
	FactorLoginRecency  = "login_recency"
	FactorFeatureUsage  = "feature_usage"
	FactorBillingHealth = "billing_health"
	FactorSessionLength = "session_length"
	FactorSupportLoad   = "support_load"
)

// signal is one evaluated risk contribution. present reports whether
// the aggregate held enough history to ground the value; absent signals
// fall back to a neutral risk and lower the assessment confidence.
type signal struct {
	name    string
	risk    float64
	weight  float64
	present bool
}

// healthySessionMinutes is the average session length treated as zero risk.
const healthySessionMinutes = 30.0

// healthyFeatureCount is the distinct-feature count treated as zero risk.
const healthyFeatureCount = 5.0

// ticketSaturation is the ticket count at which support load maxes out.
const ticketSaturation = 5.0

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// loginRecencySignal grows with days since the last login. Risk reaches
// 1.0 at twice the stale threshold; a user with no recorded login is
// maximally risky but the signal is not grounded.
func loginRecencySignal(state *domain.UserState, now time.Time, staleLoginDays int, weight float64) signal {
	s := signal{name: FactorLoginRecency, weight: weight}
	if state.LastLoginAt.IsZero() {
		s.risk = 1.0
		return s
	}
	days := now.Sub(state.LastLoginAt).Hours() / 24
	s.risk = clamp01(days / float64(2*staleLoginDays))
	s.present = true
	return s
}

// sessionLengthSignal shrinks with longer average sessions.
func sessionLengthSignal(state *domain.UserState, weight float64) signal {
	s := signal{name: FactorSessionLength, weight: weight}
	if state.SessionSamples == 0 {
		s.risk = 0.5
		return s
	}
	s.risk = clamp01(1 - state.AvgSessionDurationMinutes/healthySessionMinutes)
	s.present = true
	return s
}

// featureUsageSignal shrinks with feature diversity.
func featureUsageSignal(state *domain.UserState, weight float64) signal {
	s := signal{name: FactorFeatureUsage, weight: weight}
	if state.TotalFeatureUsage() == 0 {
		s.risk = 1.0
		return s
	}
	s.risk = clamp01(1 - float64(state.FeatureDiversity())/healthyFeatureCount)
	s.present = true
	return s
}

// supportLoadSignal grows with open support tickets. Zero tickets is
// itself knowledge, so the signal is always grounded.
func supportLoadSignal(state *domain.UserState, weight float64) signal {
	return signal{
		name:    FactorSupportLoad,
		risk:    clamp01(float64(state.SupportTicketCount) / ticketSaturation),
		weight:  weight,
		present: true,
	}
}

// billingHealthSignal maps the billing status to a fixed risk.
func billingHealthSignal(state *domain.UserState, weight float64) signal {
	s := signal{name: FactorBillingHealth, weight: weight}
	switch state.BillingStatus {
	case domain.BillingActive:
		s.risk = 0.0
		s.present = true
	case domain.BillingPastDue:
		s.risk = 0.75
		s.present = true
	case domain.BillingCanceled:
		s.risk = 1.0
		s.present = true
	default:
		s.risk = 0.5
	}
	return s
}

// impact buckets a signal's risk into the factor impact direction.
func (s signal) impact() domain.FactorImpact {
	switch {
	case s.risk >= 0.6:
		return domain.ImpactNegative
	case s.risk <= 0.25:
		return domain.ImpactPositive
	default:
		return domain.ImpactNeutral
	}
}
