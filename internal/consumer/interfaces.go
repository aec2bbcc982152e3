package consumer

import (
	"context"

	"github.com/retainly/retention-service/internal/domain"
)

// MessageParser defines the interface for parsing raw message bytes into events
type MessageParser interface {
	Parse(body []byte) (*domain.Event, error)
}

// FeedbackSink receives the cancellation reason carried on
// cancellation_intent events.
type FeedbackSink interface {
	CaptureReason(ctx context.Context, userID, reason string) (*domain.CancellationFeedback, error)
}
