package feedback

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/retainly/retention-service/internal/domain"
	"github.com/retainly/retention-service/internal/store"
)

// Service categorizes and stores cancellation feedback. It implements
// the sink consumed by the event pipeline and backs the feedback API.
type Service struct {
	feedback store.FeedbackStore
	now      func() time.Time
	newID    func() string
	log      *zap.Logger
}

// NewService creates a feedback service.
func NewService(feedback store.FeedbackStore, log *zap.Logger) *Service {
	return &Service{
		feedback: feedback,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    func() string { return "fb_" + uuid.NewString() },
		log:      log,
	}
}

// CaptureReason categorizes and stores one cancellation reason.
func (s *Service) CaptureReason(ctx context.Context, userID, reason string) (*domain.CancellationFeedback, error) {
	if userID == "" {
		return nil, &domain.ValidationError{Field: "user_id", Reason: "required"}
	}
	if reason == "" {
		return nil, &domain.ValidationError{Field: "reason", Reason: "required"}
	}

	record := &domain.CancellationFeedback{
		ID:         s.newID(),
		UserID:     userID,
		Reason:     reason,
		Category:   Categorize(reason),
		ReceivedAt: s.now(),
	}
	s.feedback.Add(record)

	s.log.Info("Cancellation feedback captured",
		zap.String("feedback_id", record.ID),
		zap.String("user_id", userID),
		zap.String("category", record.Category))
	return record, nil
}

// ByUser returns a user's feedback history.
func (s *Service) ByUser(userID string) []*domain.CancellationFeedback {
	return s.feedback.ByUser(userID)
}

// CategoryCounts returns the aggregate churn reason distribution.
func (s *Service) CategoryCounts() map[string]int {
	return s.feedback.CategoryCounts()
}
