package service

import (
	"context"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/retainly/retention-service/internal/domain"
	"github.com/retainly/retention-service/internal/dto"
	"github.com/retainly/retention-service/internal/store"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
	maxChurnReasons  = 5
)

// RiskScorer computes a risk assessment from a user aggregate.
type RiskScorer interface {
	Score(ctx context.Context, state *domain.UserState) (*domain.RiskAssessment, error)
}

// ActionPlanner derives retention actions from assessments and applies
// operator decisions to them.
type ActionPlanner interface {
	Generate(assessment *domain.RiskAssessment, state *domain.UserState) []*domain.Recommendation
	Act(id, action string) (*domain.Recommendation, error)
}

// FeedbackReporter exposes the aggregate churn reason distribution.
type FeedbackReporter interface {
	CategoryCounts() map[string]int
}

// InsightService orchestrates scoring and recommendations over the
// per-user aggregates and serves the read-side analytics.
type InsightService struct {
	states      store.StateStore
	assessments store.AssessmentStore
	recs        store.RecommendationStore
	scorer      RiskScorer
	planner     ActionPlanner
	feedback    FeedbackReporter
	log         *zap.Logger
}

// NewInsightService creates a new insight service
func NewInsightService(
	states store.StateStore,
	assessments store.AssessmentStore,
	recs store.RecommendationStore,
	scorer RiskScorer,
	planner ActionPlanner,
	feedback FeedbackReporter,
	log *zap.Logger,
) *InsightService {
	return &InsightService{
		states:      states,
		assessments: assessments,
		recs:        recs,
		scorer:      scorer,
		planner:     planner,
		feedback:    feedback,
		log:         log,
	}
}

// AssessUser scores one user from their current aggregate, records the
// assessment, and regenerates retention actions for at-risk results.
func (s *InsightService) AssessUser(ctx context.Context, userID string) (*domain.RiskAssessment, error) {
	state, err := s.states.Get(userID)
	if err != nil {
		return nil, err
	}

	assessment, err := s.scorer.Score(ctx, state)
	if err != nil {
		return nil, err
	}
	s.assessments.Put(assessment)

	recs := s.planner.Generate(assessment, state)
	s.log.Info("User assessed",
		zap.String("user_id", userID),
		zap.Float64("churn_score", assessment.ChurnScore),
		zap.String("risk_level", string(assessment.RiskLevel)),
		zap.Int("new_recommendations", len(recs)))

	return assessment, nil
}

// RefreshAssessments re-scores every known user. Individual failures are
// logged and skipped so one bad aggregate never stalls the sweep.
func (s *InsightService) RefreshAssessments(ctx context.Context) []*domain.RiskAssessment {
	states := s.states.All()
	assessments := make([]*domain.RiskAssessment, 0, len(states))

	for _, state := range states {
		assessment, err := s.AssessUser(ctx, state.UserID)
		if err != nil {
			s.log.Warn("Skipping user in assessment sweep",
				zap.String("user_id", state.UserID),
				zap.Error(err))
			continue
		}
		assessments = append(assessments, assessment)
	}

	s.log.Info("Assessment sweep finished",
		zap.Int("users", len(states)),
		zap.Int("assessed", len(assessments)))
	return assessments
}

// ListAssessments returns the latest assessment per user, filtered by
// risk level and paginated, together with a summary over the filtered set.
func (s *InsightService) ListAssessments(req dto.ListAssessmentsRequest) (*dto.ListAssessmentsResponse, error) {
	switch req.RiskLevel {
	case "", string(domain.RiskLow), string(domain.RiskMedium), string(domain.RiskHigh):
	default:
		return nil, &domain.ValidationError{Field: "riskLevel", Reason: "must be low, medium, or high"}
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := req.Offset
	if offset < 0 {
		offset = 0
	}

	all := s.assessments.LatestAll()
	sort.Slice(all, func(i, j int) bool {
		if all[i].ChurnScore != all[j].ChurnScore {
			return all[i].ChurnScore > all[j].ChurnScore
		}
		return all[i].UserID < all[j].UserID
	})

	filtered := all
	if req.RiskLevel != "" {
		filtered = make([]*domain.RiskAssessment, 0, len(all))
		for _, a := range all {
			if string(a.RiskLevel) == req.RiskLevel {
				filtered = append(filtered, a)
			}
		}
	}

	summary := summarize(filtered)

	total := len(filtered)
	start := offset
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return &dto.ListAssessmentsResponse{
		Assessments: filtered[start:end],
		Summary:     summary,
		Pagination: dto.Pagination{
			Limit:   limit,
			Offset:  offset,
			Total:   total,
			HasMore: end < total,
		},
	}, nil
}

func summarize(assessments []*domain.RiskAssessment) dto.AssessmentSummary {
	summary := dto.AssessmentSummary{Total: len(assessments)}
	if len(assessments) == 0 {
		return summary
	}

	var sum float64
	for _, a := range assessments {
		sum += a.ChurnScore
		switch a.RiskLevel {
		case domain.RiskHigh:
			summary.HighRisk++
		case domain.RiskMedium:
			summary.MediumRisk++
		default:
			summary.LowRisk++
		}
	}
	summary.AvgChurnScore = math.Round(sum/float64(len(assessments))*1000) / 1000
	return summary
}

// RecommendationsFor returns the retention actions for one user, highest
// priority first. Unknown users fail with domain.ErrNotFound.
func (s *InsightService) RecommendationsFor(userID string) (*dto.RecommendationsResponse, error) {
	if _, err := s.states.Get(userID); err != nil {
		return nil, err
	}

	recs := s.recs.ByUser(userID)
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Priority != recs[j].Priority {
			return recs[i].Priority > recs[j].Priority
		}
		return domain.ImpactRank(recs[i].EstimatedImpact) > domain.ImpactRank(recs[j].EstimatedImpact)
	})

	return &dto.RecommendationsResponse{
		UserID:          userID,
		Recommendations: recs,
		Count:           len(recs),
	}, nil
}

// ActOnRecommendation applies an operator action to a recommendation.
func (s *InsightService) ActOnRecommendation(req *dto.RecommendationActionRequest) (*domain.Recommendation, error) {
	rec, err := s.planner.Act(req.RecommendationID, req.Action)
	if err != nil {
		return nil, err
	}
	s.log.Info("Recommendation actioned",
		zap.String("recommendation_id", rec.ID),
		zap.String("action", req.Action),
		zap.String("status", string(rec.Status)))
	return rec, nil
}

// Dashboard aggregates retention metrics across all known users.
func (s *InsightService) Dashboard() (*dto.DashboardResponse, error) {
	states := s.states.All()

	var canceled int
	var revenue float64
	for _, state := range states {
		if state.BillingStatus == domain.BillingCanceled {
			canceled++
		}
		revenue += state.MonthlyRevenue
	}

	resp := &dto.DashboardResponse{
		TotalUsers:      len(states),
		TopChurnReasons: topChurnReasons(s.feedback.CategoryCounts()),
	}
	if len(states) > 0 {
		resp.ChurnRate = math.Round(float64(canceled)/float64(len(states))*10000) / 100
		resp.AvgRevenue = math.Round(revenue/float64(len(states))*100) / 100
	}

	buckets := map[domain.RiskLevel]int{}
	for _, a := range s.assessments.LatestAll() {
		buckets[a.RiskLevel]++
	}
	resp.HighRiskUsers = buckets[domain.RiskHigh]
	for _, level := range []domain.RiskLevel{domain.RiskHigh, domain.RiskMedium, domain.RiskLow} {
		resp.RiskDistribution = append(resp.RiskDistribution, dto.RiskBucket{
			RiskLevel: string(level),
			Count:     buckets[level],
		})
	}

	return resp, nil
}

// topChurnReasons ranks cancellation categories by count, capped for
// the dashboard.
func topChurnReasons(counts map[string]int) []dto.ChurnReason {
	total := 0
	for _, n := range counts {
		total += n
	}
	if total == 0 {
		return nil
	}

	reasons := make([]dto.ChurnReason, 0, len(counts))
	for category, count := range counts {
		reasons = append(reasons, dto.ChurnReason{
			Category:   category,
			Count:      count,
			Percentage: math.Round(float64(count)/float64(total)*1000) / 10,
		})
	}
	sort.Slice(reasons, func(i, j int) bool {
		if reasons[i].Count != reasons[j].Count {
			return reasons[i].Count > reasons[j].Count
		}
		return reasons[i].Category < reasons[j].Category
	})

	if len(reasons) > maxChurnReasons {
		reasons = reasons[:maxChurnReasons]
	}
	return reasons
}
