package service

import (
	"context"

	"github.com/retainly/retention-service/internal/domain"
	"github.com/retainly/retention-service/internal/dto"
	"github.com/retainly/retention-service/internal/repository"
)

// EventServicer defines the interface for event ingestion operations
type EventServicer interface {
	ProcessEvent(ctx context.Context, req *dto.ReportEventRequest) (string, error)
	ProcessBulkEvents(ctx context.Context, events []dto.ReportEventRequest) ([]string, []string, error)
	GetVolume(ctx context.Context, query repository.VolumeQuery) (*repository.VolumeResult, error)
}

// InsightServicer defines the interface for scoring and recommendation operations
type InsightServicer interface {
	AssessUser(ctx context.Context, userID string) (*domain.RiskAssessment, error)
	ListAssessments(req dto.ListAssessmentsRequest) (*dto.ListAssessmentsResponse, error)
	RecommendationsFor(userID string) (*dto.RecommendationsResponse, error)
	ActOnRecommendation(req *dto.RecommendationActionRequest) (*domain.Recommendation, error)
	Dashboard() (*dto.DashboardResponse, error)
}

// AutomationServicer defines the interface for outbound retention playbooks
type AutomationServicer interface {
	SendWeeklyDigest(ctx context.Context, recipients []string) (*dto.BatchDispatchResponse, error)
	SendHighRiskAlert(ctx context.Context, recipient, userID string) (*domain.NotificationJob, error)
	SendReactivation(ctx context.Context, userID string) (*domain.NotificationJob, error)
}

// FeedbackServicer defines the interface for cancellation feedback capture
type FeedbackServicer interface {
	CaptureReason(ctx context.Context, userID, reason string) (*domain.CancellationFeedback, error)
}
