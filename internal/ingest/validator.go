package ingest

import (
	"fmt"
	"time"

	"github.com/retainly/retention-service/internal/domain"
	"github.com/retainly/retention-service/internal/dto"
)

// Validate checks a raw reported event structurally and returns the
// canonical immutable Event. It is a pure function with no side effects;
// event identity is assigned later by the accepting boundary.
func Validate(req *dto.ReportEventRequest) (*domain.Event, error) {
	if req.Type == "" {
		return nil, &domain.ValidationError{Field: "type", Reason: "required"}
	}
	if req.UserID == "" {
		return nil, &domain.ValidationError{Field: "user_id", Reason: "required"}
	}
	if req.Timestamp == "" {
		return nil, &domain.ValidationError{Field: "timestamp", Reason: "required"}
	}

	eventType := domain.EventType(req.Type)
	if !eventType.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownEventType, req.Type)
	}

	ts, err := time.Parse(time.RFC3339, req.Timestamp)
	if err != nil {
		return nil, &domain.ValidationError{Field: "timestamp", Reason: "must be ISO-8601"}
	}

	event := &domain.Event{
		Type:      eventType,
		UserID:    req.UserID,
		Timestamp: ts,
		Payload:   req.Payload,
	}

	if err := validatePayload(event); err != nil {
		return nil, err
	}

	return event, nil
}

// validatePayload applies the kind-specific structural rules.
func validatePayload(event *domain.Event) error {
	switch event.Type {
	case domain.EventFeatureUsage:
		if _, ok := event.PayloadString(domain.PayloadFeatureName); !ok {
			return &domain.ValidationError{Field: domain.PayloadFeatureName, Reason: "required non-empty string for feature_usage"}
		}
		if delta, ok := event.PayloadNumber(domain.PayloadUsageDelta); ok && delta < 1 {
			return &domain.ValidationError{Field: domain.PayloadUsageDelta, Reason: "must be >= 1 when present"}
		}

	case domain.EventSessionEnd:
		duration, ok := event.PayloadNumber(domain.PayloadSessionDuration)
		if !ok {
			return &domain.ValidationError{Field: domain.PayloadSessionDuration, Reason: "required number for session_end"}
		}
		if duration < 0 {
			return &domain.ValidationError{Field: domain.PayloadSessionDuration, Reason: "must be non-negative"}
		}

	case domain.EventCancellationIntent:
		if _, ok := event.PayloadString(domain.PayloadReason); !ok {
			return &domain.ValidationError{Field: domain.PayloadReason, Reason: "required non-empty string for cancellation_intent"}
		}
	}

	return nil
}
