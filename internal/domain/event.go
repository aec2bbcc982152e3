package domain

import "time"

// EventType enumerates the behavioral event kinds accepted by the
// ingestion boundary. Unknown kinds are rejected, never silently dropped.
type EventType string

const (
	EventLogin              EventType = "login"
	EventFeatureUsage       EventType = "feature_usage"
	EventSessionEnd         EventType = "session_end"
	EventSupportTicket      EventType = "support_ticket"
	EventBillingUpdate      EventType = "billing_update"
	EventCancellationIntent EventType = "cancellation_intent"
)

// KnownEventTypes lists every recognized event kind.
var KnownEventTypes = []EventType{
	EventLogin,
	EventFeatureUsage,
	EventSessionEnd,
	EventSupportTicket,
	EventBillingUpdate,
	EventCancellationIntent,
}

// Valid reports whether t is a recognized event kind.
func (t EventType) Valid() bool {
	for _, known := range KnownEventTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Event is an immutable behavioral fact reported by a monitored client
// session. Once accepted it is never mutated; replays re-apply.
type Event struct {
	EventID    string                 `json:"event_id" ch:"event_id"`
	Type       EventType              `json:"type" ch:"event_type"`
	UserID     string                 `json:"user_id" ch:"user_id"`
	Timestamp  time.Time              `json:"timestamp" ch:"timestamp"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	ReceivedAt time.Time              `json:"received_at" ch:"received_at"`
}

// Payload field keys shared by the validator, the state store merge
// rules, and the telemetry collector.
const (
	PayloadEmail           = "userEmail"
	PayloadPlan            = "plan"
	PayloadMonthlyRevenue  = "monthlyRevenue"
	PayloadBillingStatus   = "billingStatus"
	PayloadFeatureName     = "featureName"
	PayloadUsageDelta      = "usageDelta"
	PayloadSessionDuration = "sessionDuration"
	PayloadFeaturesUsed    = "featuresUsed"
	PayloadReason          = "reason"
)

// PayloadString returns the payload value for key if it is a non-empty string.
func (e *Event) PayloadString(key string) (string, bool) {
	v, ok := e.Payload[key].(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// PayloadNumber returns the payload value for key if it is numeric.
// JSON decoding yields float64 for all numbers.
func (e *Event) PayloadNumber(key string) (float64, bool) {
	switch v := e.Payload[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
