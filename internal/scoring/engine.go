// Package scoring derives churn risk assessments from per-user
// aggregates. Scoring is deterministic: the same aggregate always
// produces the same score, factors, and risk level.
package scoring

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/retainly/retention-service/internal/config"
	"github.com/retainly/retention-service/internal/domain"
	"github.com/retainly/retention-service/internal/textgen"
)

// Thresholds bucket a continuous churn score into a risk level. The
// comparison is strict so boundary scores land in the lower tier.
type Thresholds struct {
	High   float64
	Medium float64
}

// Level returns the risk level for a score.
func (t Thresholds) Level(score float64) domain.RiskLevel {
	switch {
	case score > t.High:
		return domain.RiskHigh
	case score > t.Medium:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}

// Engine computes risk assessments from user aggregates.
type Engine struct {
	cfg        config.Scoring
	thresholds Thresholds
	generator  textgen.Generator
	now        func() time.Time
	log        *zap.Logger
}

// NewEngine creates a scoring engine. The generator supplies qualitative
// reasoning and is best-effort.
func NewEngine(cfg config.Scoring, generator textgen.Generator, log *zap.Logger) *Engine {
	return &Engine{
		cfg: cfg,
		thresholds: Thresholds{
			High:   cfg.HighThreshold,
			Medium: cfg.MediumThreshold,
		},
		generator: generator,
		now:       func() time.Time { return time.Now().UTC() },
		log:       log,
	}
}

// Score computes an assessment for one user aggregate. The numeric
// parts never fail; only the reasoning text depends on the external
// collaborator and degrades to a deterministic summary when it is
// unavailable.
func (e *Engine) Score(ctx context.Context, state *domain.UserState) (*domain.RiskAssessment, error) {
	if state == nil {
		return nil, fmt.Errorf("score: %w", domain.ErrNotFound)
	}

	now := e.now()

	// Ordered by descending weight; ties keep this fixed order.
	signals := []signal{
		loginRecencySignal(state, now, e.cfg.StaleLoginDays, e.cfg.WeightLoginRecency),
		featureUsageSignal(state, e.cfg.WeightFeatureUsage),
		billingHealthSignal(state, e.cfg.WeightBillingHealth),
		sessionLengthSignal(state, e.cfg.WeightSessionLength),
		supportLoadSignal(state, e.cfg.WeightSupportLoad),
	}

	var weightedRisk, totalWeight, presentWeight float64
	factors := make([]domain.Factor, 0, len(signals))
	for _, s := range signals {
		weightedRisk += s.risk * s.weight
		totalWeight += s.weight
		if s.present {
			presentWeight += s.weight
		}
		factors = append(factors, domain.Factor{
			Factor: s.name,
			Impact: s.impact(),
			Weight: s.weight,
		})
	}

	score := clamp01(weightedRisk / totalWeight)
	score = math.Round(score*1000) / 1000

	confidence := 0.0
	if totalWeight > 0 {
		confidence = math.Round(presentWeight/totalWeight*100) / 100
	}

	assessment := &domain.RiskAssessment{
		UserID:       state.UserID,
		ChurnScore:   score,
		RiskLevel:    e.thresholds.Level(score),
		Confidence:   confidence,
		Factors:      factors,
		ComputedAt:   now,
		ModelVersion: e.cfg.ModelVersion,
	}
	assessment.Reasoning = e.reasoning(ctx, state, assessment, signals)

	return assessment, nil
}

// reasoning asks the collaborator for a prose explanation and falls
// back to a deterministic summary when the call fails.
func (e *Engine) reasoning(ctx context.Context, state *domain.UserState, assessment *domain.RiskAssessment, signals []signal) string {
	prompt := buildPrompt(state, assessment, signals)

	text, err := e.generator.Generate(ctx, prompt)
	if err != nil {
		e.log.Warn("Reasoning generation degraded to summary",
			zap.String("user_id", state.UserID),
			zap.Error(err))
		return fallbackReasoning(assessment, signals)
	}
	if strings.TrimSpace(text) == "" {
		return fallbackReasoning(assessment, signals)
	}
	return text
}

func buildPrompt(state *domain.UserState, assessment *domain.RiskAssessment, signals []signal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Explain in two sentences why a SaaS user on plan %q has churn risk %s (score %.2f). Signals:", state.Plan, assessment.RiskLevel, assessment.ChurnScore)
	for _, s := range signals {
		fmt.Fprintf(&b, " %s=%.2f", s.name, s.risk)
	}
	return b.String()
}

// fallbackReasoning lists the negative factors in weight order.
func fallbackReasoning(assessment *domain.RiskAssessment, signals []signal) string {
	var drivers []string
	for _, s := range signals {
		if s.impact() == domain.ImpactNegative {
			drivers = append(drivers, strings.ReplaceAll(s.name, "_", " "))
		}
	}
	if len(drivers) == 0 {
		return fmt.Sprintf("Risk is %s with no dominant negative signal.", assessment.RiskLevel)
	}
	return fmt.Sprintf("Risk is %s, driven by %s.", assessment.RiskLevel, strings.Join(drivers, ", "))
}
