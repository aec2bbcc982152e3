package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/retainly/retention-service/internal/domain"
	"github.com/retainly/retention-service/internal/dto"
	"github.com/retainly/retention-service/internal/ingest"
	"github.com/retainly/retention-service/internal/queue"
	"github.com/retainly/retention-service/internal/repository"
)

// EventService accepts reported events at the ingestion boundary:
// validate, assign identity, hand off to the queue.
type EventService struct {
	publisher queue.EventPublisher
	archive   repository.EventArchive
	log       *zap.Logger
}

// NewEventService creates a new event service
func NewEventService(publisher queue.EventPublisher, archive repository.EventArchive, log *zap.Logger) *EventService {
	return &EventService{
		publisher: publisher,
		archive:   archive,
		log:       log,
	}
}

// computeEventID generates a deterministic event ID based on event content.
// Uses SHA-256 hash of: user_id|type|timestamp, so a client retry of the
// same report produces the same identity.
func computeEventID(event *domain.Event) string {
	data := fmt.Sprintf("%s|%s|%d",
		event.UserID,
		event.Type,
		event.Timestamp.UnixNano(),
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ProcessEvent validates and publishes a single reported event.
func (s *EventService) ProcessEvent(ctx context.Context, req *dto.ReportEventRequest) (string, error) {
	event, err := ingest.Validate(req)
	if err != nil {
		s.log.Warn("Event rejected by validation",
			zap.String("type", req.Type),
			zap.String("user_id", req.UserID),
			zap.Error(err))
		return "", err
	}

	if event.Timestamp.After(time.Now().Add(time.Second)) {
		s.log.Warn("Timestamp validation failed: future timestamp",
			zap.Time("event_timestamp", event.Timestamp),
			zap.String("type", req.Type))
		return "", &domain.ValidationError{Field: "timestamp", Reason: "cannot be in the future"}
	}

	event.EventID = computeEventID(event)
	event.ReceivedAt = time.Now().UTC()

	if err := s.publisher.PublishEvent(ctx, event); err != nil {
		return "", fmt.Errorf("failed to publish event to queue: %w", err)
	}

	return event.EventID, nil
}

// ProcessBulkEvents validates and processes multiple events. One bad
// event never rejects its batch-mates.
func (s *EventService) ProcessBulkEvents(ctx context.Context, events []dto.ReportEventRequest) ([]string, []string, error) {
	var eventIDs []string
	var errors []string

	for i, event := range events {
		eventID, err := s.ProcessEvent(ctx, &event)
		if err != nil {
			errors = append(errors, err.Error())
			s.log.Warn("Failed to process event in bulk",
				zap.Int("index", i),
				zap.Error(err),
				zap.String("type", event.Type))
			continue
		}
		eventIDs = append(eventIDs, eventID)
	}

	return eventIDs, errors, nil
}

// GetVolume retrieves aggregated event volume from the archive.
func (s *EventService) GetVolume(ctx context.Context, query repository.VolumeQuery) (*repository.VolumeResult, error) {
	if query.From > query.To {
		s.log.Warn("Invalid time range for volume query",
			zap.Int64("from", query.From),
			zap.Int64("to", query.To))
		return nil, &domain.ValidationError{Field: "from", Reason: "must be less than or equal to to"}
	}

	switch query.GroupBy {
	case "", "event_type", "hour", "day":
	default:
		return nil, &domain.ValidationError{Field: "group_by", Reason: fmt.Sprintf("invalid group_by value %q, must be event_type, hour, or day", query.GroupBy)}
	}

	if query.GroupBy == "hour" {
		days := (query.To - query.From) / (24 * 3600 * 1000)
		if days > 90 {
			return nil, &domain.ValidationError{Field: "group_by", Reason: fmt.Sprintf("time range too large for hourly grouping: %d days, max 90", days)}
		}
	}

	result, err := s.archive.GetVolume(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get volume from archive: %w", err)
	}
	return result, nil
}
