package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/retainly/retention-service/internal/config"
	"github.com/retainly/retention-service/internal/domain"
	"github.com/retainly/retention-service/internal/dto"
	"github.com/retainly/retention-service/internal/recommend"
	"github.com/retainly/retention-service/internal/scoring"
	"github.com/retainly/retention-service/internal/store"
	"github.com/retainly/retention-service/internal/textgen"
)

// MockRiskScorer is a mock implementation of RiskScorer
type MockRiskScorer struct {
	mock.Mock
}

func (m *MockRiskScorer) Score(ctx context.Context, state *domain.UserState) (*domain.RiskAssessment, error) {
	args := m.Called(ctx, state)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RiskAssessment), args.Error(1)
}

// MockActionPlanner is a mock implementation of ActionPlanner
type MockActionPlanner struct {
	mock.Mock
}

func (m *MockActionPlanner) Generate(assessment *domain.RiskAssessment, state *domain.UserState) []*domain.Recommendation {
	args := m.Called(assessment, state)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]*domain.Recommendation)
}

func (m *MockActionPlanner) Act(id, action string) (*domain.Recommendation, error) {
	args := m.Called(id, action)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Recommendation), args.Error(1)
}

// MockFeedbackReporter is a mock implementation of FeedbackReporter
type MockFeedbackReporter struct {
	mock.Mock
}

func (m *MockFeedbackReporter) CategoryCounts() map[string]int {
	args := m.Called()
	return args.Get(0).(map[string]int)
}

func loginEvent(userID string, ts time.Time, payload map[string]interface{}) *domain.Event {
	return &domain.Event{
		EventID:    "evt_" + userID,
		Type:       domain.EventLogin,
		UserID:     userID,
		Timestamp:  ts,
		Payload:    payload,
		ReceivedAt: ts,
	}
}

func assessmentFor(userID string, score float64, level domain.RiskLevel) *domain.RiskAssessment {
	return &domain.RiskAssessment{
		UserID:     userID,
		ChurnScore: score,
		RiskLevel:  level,
		Confidence: 0.9,
		Factors: []domain.Factor{
			{Factor: "login_recency", Impact: domain.ImpactNegative, Weight: 0.30},
			{Factor: "billing_health", Impact: domain.ImpactPositive, Weight: 0.20},
		},
		ComputedAt:   time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC),
		ModelVersion: "v1",
	}
}

func newInsightFixture(t *testing.T) (*InsightService, *MockRiskScorer, *MockActionPlanner, *MockFeedbackReporter, store.StateStore) {
	t.Helper()
	states := store.NewMemoryStateStore(zap.NewNop())
	scorer := new(MockRiskScorer)
	planner := new(MockActionPlanner)
	reporter := new(MockFeedbackReporter)
	svc := NewInsightService(
		states,
		store.NewMemoryAssessmentStore(),
		store.NewMemoryRecommendationStore(),
		scorer,
		planner,
		reporter,
		zap.NewNop(),
	)
	return svc, scorer, planner, reporter, states
}

func TestInsightService_AssessUser_ScoresStoresAndPlans(t *testing.T) {
	svc, scorer, planner, _, states := newInsightFixture(t)

	ts := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	_, err := states.Apply(loginEvent("user_1", ts, map[string]interface{}{
		domain.PayloadEmail: "ada@example.com",
	}))
	assert.NoError(t, err)

	expected := assessmentFor("user_1", 0.82, domain.RiskHigh)
	scorer.On("Score", mock.Anything, mock.AnythingOfType("*domain.UserState")).Return(expected, nil)
	planner.On("Generate", expected, mock.AnythingOfType("*domain.UserState")).
		Return([]*domain.Recommendation{{ID: "rec_1", UserID: "user_1"}})

	assessment, err := svc.AssessUser(context.Background(), "user_1")

	assert.NoError(t, err)
	assert.Equal(t, expected, assessment)
	scorer.AssertExpectations(t)
	planner.AssertExpectations(t)

	// The assessment is retained as the user's latest.
	latest, err := svc.assessments.Latest("user_1")
	assert.NoError(t, err)
	assert.Equal(t, expected, latest)
}

func TestInsightService_AssessUser_UnknownUser(t *testing.T) {
	svc, scorer, _, _, _ := newInsightFixture(t)

	assessment, err := svc.AssessUser(context.Background(), "ghost")

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Nil(t, assessment)
	scorer.AssertNotCalled(t, "Score")
}

func TestInsightService_RefreshAssessments_SkipsFailures(t *testing.T) {
	svc, scorer, planner, _, states := newInsightFixture(t)

	ts := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	for _, id := range []string{"user_1", "user_2", "user_3"} {
		_, err := states.Apply(loginEvent(id, ts, nil))
		assert.NoError(t, err)
	}

	scorer.On("Score", mock.Anything, mock.MatchedBy(func(s *domain.UserState) bool {
		return s.UserID == "user_2"
	})).Return(nil, domain.ErrUpstreamUnavailable)
	scorer.On("Score", mock.Anything, mock.AnythingOfType("*domain.UserState")).
		Return(assessmentFor("user_x", 0.3, domain.RiskLow), nil)
	planner.On("Generate", mock.Anything, mock.Anything).Return(nil).Maybe()

	assessments := svc.RefreshAssessments(context.Background())

	assert.Len(t, assessments, 2)
}

func TestInsightService_ListAssessments_FilterAndPagination(t *testing.T) {
	svc, _, _, _, _ := newInsightFixture(t)

	svc.assessments.Put(assessmentFor("user_1", 0.91, domain.RiskHigh))
	svc.assessments.Put(assessmentFor("user_2", 0.85, domain.RiskHigh))
	svc.assessments.Put(assessmentFor("user_3", 0.55, domain.RiskMedium))
	svc.assessments.Put(assessmentFor("user_4", 0.10, domain.RiskLow))

	resp, err := svc.ListAssessments(dto.ListAssessmentsRequest{RiskLevel: "high", Limit: 1})

	assert.NoError(t, err)
	assert.Len(t, resp.Assessments, 1)
	assert.Equal(t, "user_1", resp.Assessments[0].UserID)
	assert.Equal(t, 2, resp.Summary.Total)
	assert.Equal(t, 2, resp.Summary.HighRisk)
	assert.InDelta(t, 0.88, resp.Summary.AvgChurnScore, 0.0001)
	assert.True(t, resp.Pagination.HasMore)

	page2, err := svc.ListAssessments(dto.ListAssessmentsRequest{RiskLevel: "high", Limit: 1, Offset: 1})
	assert.NoError(t, err)
	assert.Len(t, page2.Assessments, 1)
	assert.Equal(t, "user_2", page2.Assessments[0].UserID)
	assert.False(t, page2.Pagination.HasMore)
}

func TestInsightService_ListAssessments_SortedByScoreDescending(t *testing.T) {
	svc, _, _, _, _ := newInsightFixture(t)

	svc.assessments.Put(assessmentFor("user_low", 0.10, domain.RiskLow))
	svc.assessments.Put(assessmentFor("user_high", 0.91, domain.RiskHigh))
	svc.assessments.Put(assessmentFor("user_mid", 0.55, domain.RiskMedium))

	resp, err := svc.ListAssessments(dto.ListAssessmentsRequest{})

	assert.NoError(t, err)
	assert.Len(t, resp.Assessments, 3)
	assert.Equal(t, "user_high", resp.Assessments[0].UserID)
	assert.Equal(t, "user_mid", resp.Assessments[1].UserID)
	assert.Equal(t, "user_low", resp.Assessments[2].UserID)
}

func TestInsightService_ListAssessments_InvalidRiskLevel(t *testing.T) {
	svc, _, _, _, _ := newInsightFixture(t)

	resp, err := svc.ListAssessments(dto.ListAssessmentsRequest{RiskLevel: "critical"})

	assert.Error(t, err)
	assert.Nil(t, resp)
	assert.True(t, domain.IsValidation(err))
}

func TestInsightService_RecommendationsFor_SortedByPriority(t *testing.T) {
	svc, _, _, _, states := newInsightFixture(t)

	ts := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	_, err := states.Apply(loginEvent("user_1", ts, nil))
	assert.NoError(t, err)

	svc.recs.Save([]*domain.Recommendation{
		{ID: "rec_a", UserID: "user_1", Priority: 2, EstimatedImpact: domain.ImpactLow, Status: domain.RecommendationPending},
		{ID: "rec_b", UserID: "user_1", Priority: 5, EstimatedImpact: domain.ImpactHigh, Status: domain.RecommendationPending},
		{ID: "rec_c", UserID: "user_1", Priority: 2, EstimatedImpact: domain.ImpactMedium, Status: domain.RecommendationPending},
	})

	resp, err := svc.RecommendationsFor("user_1")

	assert.NoError(t, err)
	assert.Equal(t, 3, resp.Count)
	assert.Equal(t, "rec_b", resp.Recommendations[0].ID)
	assert.Equal(t, "rec_c", resp.Recommendations[1].ID)
	assert.Equal(t, "rec_a", resp.Recommendations[2].ID)
}

func TestInsightService_RecommendationsFor_UnknownUser(t *testing.T) {
	svc, _, _, _, _ := newInsightFixture(t)

	resp, err := svc.RecommendationsFor("ghost")

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Nil(t, resp)
}

func TestInsightService_ActOnRecommendation_DelegatesToPlanner(t *testing.T) {
	svc, _, planner, _, _ := newInsightFixture(t)

	executed := &domain.Recommendation{ID: "rec_1", Status: domain.RecommendationExecuted}
	planner.On("Act", "rec_1", "execute").Return(executed, nil)

	rec, err := svc.ActOnRecommendation(&dto.RecommendationActionRequest{
		RecommendationID: "rec_1",
		Action:           "execute",
	})

	assert.NoError(t, err)
	assert.Equal(t, domain.RecommendationExecuted, rec.Status)
	planner.AssertExpectations(t)
}

func TestInsightService_Dashboard_AggregatesMetrics(t *testing.T) {
	svc, _, _, reporter, states := newInsightFixture(t)

	ts := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	_, err := states.Apply(loginEvent("user_1", ts, map[string]interface{}{
		domain.PayloadMonthlyRevenue: 100.0,
		domain.PayloadBillingStatus:  domain.BillingActive,
	}))
	assert.NoError(t, err)
	_, err = states.Apply(&domain.Event{
		EventID:   "evt_billing",
		Type:      domain.EventBillingUpdate,
		UserID:    "user_2",
		Timestamp: ts,
		Payload: map[string]interface{}{
			domain.PayloadMonthlyRevenue: 50.0,
			domain.PayloadBillingStatus:  domain.BillingCanceled,
		},
	})
	assert.NoError(t, err)

	svc.assessments.Put(assessmentFor("user_1", 0.91, domain.RiskHigh))
	svc.assessments.Put(assessmentFor("user_2", 0.30, domain.RiskLow))

	reporter.On("CategoryCounts").Return(map[string]int{
		"pricing":     3,
		"competition": 1,
	})

	resp, err := svc.Dashboard()

	assert.NoError(t, err)
	assert.Equal(t, 2, resp.TotalUsers)
	assert.InDelta(t, 50.0, resp.ChurnRate, 0.0001)
	assert.InDelta(t, 75.0, resp.AvgRevenue, 0.0001)
	assert.Equal(t, 1, resp.HighRiskUsers)

	assert.Len(t, resp.TopChurnReasons, 2)
	assert.Equal(t, "pricing", resp.TopChurnReasons[0].Category)
	assert.InDelta(t, 75.0, resp.TopChurnReasons[0].Percentage, 0.0001)

	assert.Equal(t, "high", resp.RiskDistribution[0].RiskLevel)
	assert.Equal(t, 1, resp.RiskDistribution[0].Count)
}

// End-to-end over the real scoring and recommendation engines: a user
// whose last login is a month old and whose billing is past due comes
// out high risk with a call, a discount, and a re-engagement email on
// the action list.
func TestInsightService_AssessUser_StaleLoginPastDueScenario(t *testing.T) {
	log := zap.NewNop()
	states := store.NewMemoryStateStore(log)
	recs := store.NewMemoryRecommendationStore()
	reporter := new(MockFeedbackReporter)

	scorer := scoring.NewEngine(config.Scoring{
		ModelVersion:        "v1.2.0",
		WeightLoginRecency:  0.30,
		WeightSessionLength: 0.15,
		WeightFeatureUsage:  0.20,
		WeightSupportLoad:   0.15,
		WeightBillingHealth: 0.20,
		HighThreshold:       0.7,
		MediumThreshold:     0.4,
		StaleLoginDays:      7,
	}, textgen.Noop{}, log)
	planner := recommend.NewEngine(recs, 24*time.Hour, log)

	svc := NewInsightService(states, store.NewMemoryAssessmentStore(), recs, scorer, planner, reporter, log)

	now := time.Now().UTC()
	_, err := states.Apply(loginEvent("user_1", now.Add(-30*24*time.Hour), map[string]interface{}{
		domain.PayloadEmail: "ada@example.com",
		domain.PayloadPlan:  "pro",
	}))
	assert.NoError(t, err)
	_, err = states.Apply(&domain.Event{
		EventID:   "evt_billing",
		Type:      domain.EventBillingUpdate,
		UserID:    "user_1",
		Timestamp: now.Add(-10 * 24 * time.Hour),
		Payload: map[string]interface{}{
			domain.PayloadBillingStatus:  domain.BillingPastDue,
			domain.PayloadMonthlyRevenue: 99.0,
		},
	})
	assert.NoError(t, err)
	for i := 0; i < 4; i++ {
		_, err = states.Apply(&domain.Event{
			EventID:   fmt.Sprintf("evt_ticket_%d", i),
			Type:      domain.EventSupportTicket,
			UserID:    "user_1",
			Timestamp: now.Add(-time.Duration(i) * 24 * time.Hour),
		})
		assert.NoError(t, err)
	}

	assessment, err := svc.AssessUser(context.Background(), "user_1")

	assert.NoError(t, err)
	assert.Equal(t, domain.RiskHigh, assessment.RiskLevel)
	assert.Greater(t, assessment.ChurnScore, 0.7)
	assert.NotEmpty(t, assessment.Reasoning)

	resp, err := svc.RecommendationsFor("user_1")
	assert.NoError(t, err)
	assert.Equal(t, 4, resp.Count)
	assert.Equal(t, domain.RecommendCall, resp.Recommendations[0].Type)

	types := make([]domain.RecommendationType, 0, resp.Count)
	for _, rec := range resp.Recommendations {
		types = append(types, rec.Type)
	}
	assert.Contains(t, types, domain.RecommendDiscount)
	assert.Contains(t, types, domain.RecommendEmail)

	// Reassessing inside the cool-down window does not duplicate actions.
	_, err = svc.AssessUser(context.Background(), "user_1")
	assert.NoError(t, err)

	again, err := svc.RecommendationsFor("user_1")
	assert.NoError(t, err)
	assert.Equal(t, 4, again.Count)
}

func TestInsightService_Dashboard_EmptyState(t *testing.T) {
	svc, _, _, reporter, _ := newInsightFixture(t)

	reporter.On("CategoryCounts").Return(map[string]int{})

	resp, err := svc.Dashboard()

	assert.NoError(t, err)
	assert.Equal(t, 0, resp.TotalUsers)
	assert.Zero(t, resp.ChurnRate)
	assert.Empty(t, resp.TopChurnReasons)
}
