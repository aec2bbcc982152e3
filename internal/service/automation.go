package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/retainly/retention-service/internal/domain"
	"github.com/retainly/retention-service/internal/dto"
	"github.com/retainly/retention-service/internal/notify"
)

// Notifier renders and delivers notifications with ledger-backed
// idempotency.
type Notifier interface {
	Dispatch(ctx context.Context, req notify.Request) (*domain.NotificationJob, error)
	DispatchBatch(ctx context.Context, requests []notify.Request) []notify.BatchResult
	Retry(ctx context.Context, jobID string) (*domain.NotificationJob, error)
}

// AutomationService runs the outbound retention playbooks: the weekly
// digest, high-risk alerts, and reactivation emails.
type AutomationService struct {
	insight      *InsightService
	notifier     Notifier
	dashboardURL string
	log          *zap.Logger
}

// NewAutomationService creates a new automation service
func NewAutomationService(insight *InsightService, notifier Notifier, dashboardURL string, log *zap.Logger) *AutomationService {
	return &AutomationService{
		insight:      insight,
		notifier:     notifier,
		dashboardURL: dashboardURL,
		log:          log,
	}
}

// SendWeeklyDigest re-scores every user, then emails the retention
// summary to each recipient. Recipients are isolated: one delivery
// failure never blocks the rest.
func (s *AutomationService) SendWeeklyDigest(ctx context.Context, recipients []string) (*dto.BatchDispatchResponse, error) {
	if len(recipients) == 0 {
		return nil, &domain.ValidationError{Field: "recipients", Reason: "at least one recipient required"}
	}

	s.insight.RefreshAssessments(ctx)
	dashboard, err := s.insight.Dashboard()
	if err != nil {
		return nil, fmt.Errorf("failed to build digest metrics: %w", err)
	}

	data := map[string]interface{}{
		"highRiskCount":   riskCount(dashboard, domain.RiskHigh),
		"mediumRiskCount": riskCount(dashboard, domain.RiskMedium),
		"churnRate":       dashboard.ChurnRate,
		"topChurnReason":  topReason(dashboard),
		"dashboardUrl":    s.dashboardURL,
	}

	requests := make([]notify.Request, len(recipients))
	for i, recipient := range recipients {
		requests[i] = notify.Request{
			TemplateKey: notify.TemplateWeeklyDigest,
			Recipient:   recipient,
			Channel:     domain.ChannelEmail,
			Data:        data,
		}
	}

	results := s.notifier.DispatchBatch(ctx, requests)
	return batchResponse(results), nil
}

// SendHighRiskAlert alerts an operator about one high-risk account. The
// user is re-assessed first; users not currently at high risk are
// rejected rather than alerted on.
func (s *AutomationService) SendHighRiskAlert(ctx context.Context, recipient, userID string) (*domain.NotificationJob, error) {
	state, err := s.insight.states.Get(userID)
	if err != nil {
		return nil, err
	}
	assessment, err := s.insight.AssessUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if assessment.RiskLevel != domain.RiskHigh {
		return nil, &domain.ValidationError{
			Field:  "user_id",
			Reason: fmt.Sprintf("user risk level is %s, not high", assessment.RiskLevel),
		}
	}

	return s.notifier.Dispatch(ctx, notify.Request{
		TemplateKey: notify.TemplateHighRiskAlert,
		Recipient:   recipient,
		Channel:     domain.ChannelEmail,
		Data: map[string]interface{}{
			"userEmail":      state.Email,
			"plan":           state.Plan,
			"churnScore":     assessment.ChurnScore,
			"topFactor":      dominantFactor(assessment),
			"monthlyRevenue": state.MonthlyRevenue,
			"dashboardUrl":   s.dashboardURL,
		},
	})
}

// SendReactivation emails a dormant user directly. Users without an
// email on file cannot be reactivated this way.
func (s *AutomationService) SendReactivation(ctx context.Context, userID string) (*domain.NotificationJob, error) {
	state, err := s.insight.states.Get(userID)
	if err != nil {
		return nil, err
	}
	if state.Email == "" {
		return nil, &domain.ValidationError{Field: "user_id", Reason: "user has no email on file"}
	}

	lastLogin := "a while ago"
	if !state.LastLoginAt.IsZero() {
		lastLogin = state.LastLoginAt.Format("2006-01-02")
	}

	return s.notifier.Dispatch(ctx, notify.Request{
		TemplateKey: notify.TemplateReactivation,
		Recipient:   state.Email,
		Channel:     domain.ChannelEmail,
		Data: map[string]interface{}{
			"userEmail":     state.Email,
			"lastLoginDate": lastLogin,
			"dashboardUrl":  s.dashboardURL,
		},
	})
}

// dominantFactor returns the heaviest negative factor, falling back to
// the heaviest factor overall.
func dominantFactor(assessment *domain.RiskAssessment) string {
	for _, f := range assessment.Factors {
		if f.Impact == domain.ImpactNegative {
			return f.Factor
		}
	}
	if len(assessment.Factors) > 0 {
		return assessment.Factors[0].Factor
	}
	return "overall_risk"
}

func riskCount(dashboard *dto.DashboardResponse, level domain.RiskLevel) int {
	for _, bucket := range dashboard.RiskDistribution {
		if bucket.RiskLevel == string(level) {
			return bucket.Count
		}
	}
	return 0
}

func topReason(dashboard *dto.DashboardResponse) string {
	if len(dashboard.TopChurnReasons) == 0 {
		return "none recorded"
	}
	return dashboard.TopChurnReasons[0].Category
}

func batchResponse(results []notify.BatchResult) *dto.BatchDispatchResponse {
	resp := &dto.BatchDispatchResponse{Results: make([]dto.BatchItemResult, len(results))}
	for i, r := range results {
		item := dto.BatchItemResult{Recipient: r.Recipient}
		switch {
		case r.Err != nil:
			item.Error = r.Err.Error()
		case r.Job != nil && r.Job.Status == domain.JobSent:
			item.Success = true
			item.JobID = r.Job.ID
		case r.Job != nil:
			item.JobID = r.Job.ID
			item.Error = r.Job.LastError
		}
		if item.Success {
			resp.Sent++
		} else {
			resp.Failed++
		}
		resp.Results[i] = item
	}
	return resp
}
