// Package recommend turns risk assessments into prioritized retention
// actions. Generation is rule-driven off the assessment's negative
// factors and idempotent within the cool-down window: an action that is
// already pending for the same user, type, and source factor is not
// recreated.
package recommend

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/retainly/retention-service/internal/domain"
	"github.com/retainly/retention-service/internal/scoring"
	"github.com/retainly/retention-service/internal/store"
)

// Generated recommendation counts per at-risk assessment.
const (
	minActions = 2
	maxActions = 4
)

// rule maps one negative factor to a retention action template.
type rule struct {
	recType  domain.RecommendationType
	priority int
	impact   domain.Impact
	title    string
	describe func(state *domain.UserState) string
}

var factorRules = map[string]rule{
	scoring.FactorBillingHealth: {
		recType:  domain.RecommendDiscount,
		priority: 5,
		impact:   domain.ImpactHigh,
		title:    "Offer a retention discount",
		describe: func(s *domain.UserState) string {
			return fmt.Sprintf("Billing status is %q. Offer a limited discount or payment plan to resolve the billing friction before renewal.", s.BillingStatus)
		},
	},
	scoring.FactorLoginRecency: {
		recType:  domain.RecommendEmail,
		priority: 4,
		impact:   domain.ImpactHigh,
		title:    "Send a re-engagement email",
		describe: func(s *domain.UserState) string {
			if s.LastLoginAt.IsZero() {
				return "User has never logged in. Send an activation email with a guided first-run walkthrough."
			}
			return fmt.Sprintf("Last login was %s. Send a personalized re-engagement email highlighting what changed since.", s.LastLoginAt.Format("2006-01-02"))
		},
	},
	scoring.FactorSupportLoad: {
		recType:  domain.RecommendSupport,
		priority: 3,
		impact:   domain.ImpactMedium,
		title:    "Escalate open support issues",
		describe: func(s *domain.UserState) string {
			return fmt.Sprintf("User filed %d support tickets. Have a senior agent review and close out the open threads proactively.", s.SupportTicketCount)
		},
	},
	scoring.FactorFeatureUsage: {
		recType:  domain.RecommendFeatureAdoption,
		priority: 3,
		impact:   domain.ImpactMedium,
		title:    "Drive adoption of unused features",
		describe: func(s *domain.UserState) string {
			return fmt.Sprintf("User actively uses only %d feature(s). Share a tailored tour of the features their plan already includes.", s.FeatureDiversity())
		},
	},
	scoring.FactorSessionLength: {
		recType:  domain.RecommendEducation,
		priority: 2,
		impact:   domain.ImpactMedium,
		title:    "Offer a workflow training session",
		describe: func(s *domain.UserState) string {
			return "Sessions are short. Invite the user to a training webinar to deepen their day-to-day workflows."
		},
	},
}

// Engine generates retention actions for at-risk users.
type Engine struct {
	recs     store.RecommendationStore
	cooldown time.Duration
	now      func() time.Time
	newID    func() string
	log      *zap.Logger
}

// NewEngine creates a recommendation engine.
func NewEngine(recs store.RecommendationStore, cooldown time.Duration, log *zap.Logger) *Engine {
	return &Engine{
		recs:     recs,
		cooldown: cooldown,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    func() string { return "rec_" + uuid.NewString() },
		log:      log,
	}
}

// Generate produces between two and four pending actions for an at-risk
// assessment, saves them, and returns them in priority order. Low-risk
// assessments and actions still inside the cool-down window generate
// nothing.
func (e *Engine) Generate(assessment *domain.RiskAssessment, state *domain.UserState) []*domain.Recommendation {
	if assessment == nil || state == nil || !assessment.AtRisk() {
		return nil
	}

	now := e.now()
	since := now.Add(-e.cooldown)

	var candidates []*domain.Recommendation
	for _, factor := range assessment.Factors {
		if factor.Impact != domain.ImpactNegative {
			continue
		}
		r, ok := factorRules[factor.Factor]
		if !ok {
			continue
		}
		candidates = append(candidates, &domain.Recommendation{
			ID:              e.newID(),
			UserID:          state.UserID,
			Type:            r.recType,
			Title:           r.title,
			Description:     r.describe(state),
			Priority:        r.priority,
			EstimatedImpact: r.impact,
			Status:          domain.RecommendationPending,
			SourceFactor:    factor.Factor,
			CreatedAt:       now,
		})
	}

	// High risk always warrants direct human contact, keyed to the
	// dominant negative factor so regeneration stays idempotent. The
	// call shares the top priority and wins its ties through the stable
	// sort's insertion order.
	if assessment.RiskLevel == domain.RiskHigh && len(candidates) > 0 {
		dominant := candidates[0].SourceFactor
		candidates = append([]*domain.Recommendation{{
			ID:              e.newID(),
			UserID:          state.UserID,
			Type:            domain.RecommendCall,
			Title:           "Schedule a personal check-in call",
			Description:     "High churn risk. Have an account manager call the user this week to understand their blockers directly.",
			Priority:        5,
			EstimatedImpact: domain.ImpactHigh,
			Status:          domain.RecommendationPending,
			SourceFactor:    dominant,
			CreatedAt:       now,
		}}, candidates...)
	}

	// Pad with a generic check-in so medium-risk users with a single
	// driver still get a minimal action set.
	if len(candidates) < minActions {
		candidates = append(candidates, &domain.Recommendation{
			ID:              e.newID(),
			UserID:          state.UserID,
			Type:            domain.RecommendEmail,
			Title:           "Send a customer check-in email",
			Description:     "Ask how the product is working out and what is missing. A short personal note from the team.",
			Priority:        1,
			EstimatedImpact: domain.ImpactLow,
			Status:          domain.RecommendationPending,
			SourceFactor:    "overall_risk",
			CreatedAt:       now,
		})
	}

	// Priority descending; ties break on estimated impact, then on
	// insertion order via the stable sort.
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority > candidates[j].Priority
		}
		return domain.ImpactRank(candidates[i].EstimatedImpact) > domain.ImpactRank(candidates[j].EstimatedImpact)
	})

	// The cap runs before the cool-down filter so a re-run inside the
	// window re-evaluates the same top actions and produces nothing new;
	// an over-cap candidate never sneaks in on regeneration.
	if len(candidates) > maxActions {
		candidates = candidates[:maxActions]
	}

	// Cool-down: drop anything already pending for the same key.
	fresh := candidates[:0]
	for _, c := range candidates {
		if e.recs.HasPending(store.RecommendationQuery{
			UserID:       c.UserID,
			Type:         c.Type,
			SourceFactor: c.SourceFactor,
			Since:        since,
		}) {
			e.log.Debug("Recommendation suppressed by cool-down",
				zap.String("user_id", c.UserID),
				zap.String("type", string(c.Type)),
				zap.String("source_factor", c.SourceFactor))
			continue
		}
		fresh = append(fresh, c)
	}
	if len(fresh) == 0 {
		return nil
	}

	e.recs.Save(fresh)
	e.log.Info("Recommendations generated",
		zap.String("user_id", state.UserID),
		zap.String("risk_level", string(assessment.RiskLevel)),
		zap.Int("count", len(fresh)))
	return fresh
}

// Act applies an operator action to a pending recommendation.
func (e *Engine) Act(id, action string) (*domain.Recommendation, error) {
	var target domain.RecommendationStatus
	switch action {
	case "execute":
		target = domain.RecommendationExecuted
	case "dismiss":
		target = domain.RecommendationDismissed
	case "snooze":
		target = domain.RecommendationSnoozed
	default:
		return nil, &domain.ValidationError{Field: "action", Reason: "must be execute, dismiss, or snooze"}
	}
	return e.recs.Transition(id, target)
}
