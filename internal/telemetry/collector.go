// Package telemetry is the client-side collector embedded in monitored
// applications. It batches nothing and blocks nothing: every emission
// is fire-and-forget, and a failed delivery is logged and swallowed so
// instrumentation can never break the host application.
package telemetry

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/retainly/retention-service/internal/domain"
	"github.com/retainly/retention-service/internal/dto"
)

// Publisher delivers one reported event to the ingestion boundary.
type Publisher interface {
	Publish(ctx context.Context, event *dto.ReportEventRequest) error
}

// Collector tracks one user session and reports behavioral events.
type Collector struct {
	publisher Publisher
	userID    string
	now       func() time.Time
	log       *zap.Logger

	mu           sync.Mutex
	sessionStart time.Time
	features     map[string]struct{}
	ended        bool
}

// NewCollector starts a session for the user.
func NewCollector(userID string, publisher Publisher, log *zap.Logger) *Collector {
	now := func() time.Time { return time.Now().UTC() }
	return &Collector{
		publisher:    publisher,
		userID:       userID,
		now:          now,
		log:          log,
		sessionStart: now(),
		features:     make(map[string]struct{}),
	}
}

// TrackLogin reports a login with the user's account attributes.
func (c *Collector) TrackLogin(ctx context.Context, email, plan string, monthlyRevenue float64) {
	c.emit(ctx, domain.EventLogin, map[string]interface{}{
		domain.PayloadEmail:          email,
		domain.PayloadPlan:           plan,
		domain.PayloadMonthlyRevenue: monthlyRevenue,
	})
}

// TrackFeature reports one feature interaction and remembers the
// feature for the session summary.
func (c *Collector) TrackFeature(ctx context.Context, featureName string) {
	if featureName == "" {
		return
	}
	c.mu.Lock()
	c.features[featureName] = struct{}{}
	c.mu.Unlock()

	c.emit(ctx, domain.EventFeatureUsage, map[string]interface{}{
		domain.PayloadFeatureName: featureName,
	})
}

// TrackSupportTicket reports a filed support ticket.
func (c *Collector) TrackSupportTicket(ctx context.Context) {
	c.emit(ctx, domain.EventSupportTicket, nil)
}

// UpdateBilling reports a billing change. Zero-valued fields are
// omitted so the aggregate only overwrites what actually changed.
func (c *Collector) UpdateBilling(ctx context.Context, plan, billingStatus string, monthlyRevenue float64) {
	payload := make(map[string]interface{})
	if plan != "" {
		payload[domain.PayloadPlan] = plan
	}
	if billingStatus != "" {
		payload[domain.PayloadBillingStatus] = billingStatus
	}
	if monthlyRevenue > 0 {
		payload[domain.PayloadMonthlyRevenue] = monthlyRevenue
	}
	c.emit(ctx, domain.EventBillingUpdate, payload)
}

// EndSession reports the session summary exactly once. Duration is
// whole minutes; the distinct features touched ride along. Subsequent
// calls are no-ops.
func (c *Collector) EndSession(ctx context.Context) {
	c.mu.Lock()
	if c.ended {
		c.mu.Unlock()
		return
	}
	c.ended = true

	minutes := int(c.now().Sub(c.sessionStart).Minutes())
	featuresUsed := make([]string, 0, len(c.features))
	for name := range c.features {
		featuresUsed = append(featuresUsed, name)
	}
	c.mu.Unlock()

	c.emit(ctx, domain.EventSessionEnd, map[string]interface{}{
		domain.PayloadSessionDuration: minutes,
		domain.PayloadFeaturesUsed:    featuresUsed,
	})
}

// emit publishes one event. Failures are logged and swallowed.
func (c *Collector) emit(ctx context.Context, eventType domain.EventType, payload map[string]interface{}) {
	event := &dto.ReportEventRequest{
		Type:      string(eventType),
		UserID:    c.userID,
		Timestamp: c.now().Format(time.RFC3339),
		Payload:   payload,
	}

	if err := c.publisher.Publish(ctx, event); err != nil {
		c.log.Warn("Event delivery failed, dropping",
			zap.String("event_type", string(eventType)),
			zap.String("user_id", c.userID),
			zap.Error(err))
	}
}
