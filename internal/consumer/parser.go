package consumer

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/retainly/retention-service/internal/domain"
)

// JSONEventParser implements MessageParser for JSON-formatted event messages
type JSONEventParser struct{}

// NewJSONEventParser creates a new JSON event parser
func NewJSONEventParser() *JSONEventParser {
	return &JSONEventParser{}
}

// Parse parses a JSON message body into an Event. Events were validated
// at the ingestion boundary before publishing; the parser only rejects
// bodies that are structurally unusable.
func (p *JSONEventParser) Parse(body []byte) (*domain.Event, error) {
	var event domain.Event
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message body: %w", err)
	}

	if event.EventID == "" {
		return nil, fmt.Errorf("message missing event_id")
	}
	if event.UserID == "" {
		return nil, fmt.Errorf("message missing user_id")
	}
	if !event.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownEventType, event.Type)
	}

	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = time.Now().UTC()
	}

	return &event, nil
}
