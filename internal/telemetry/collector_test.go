package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/retainly/retention-service/internal/domain"
	"github.com/retainly/retention-service/internal/dto"
)

// MockPublisher is a mock implementation of Publisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event *dto.ReportEventRequest) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// capturingPublisher records everything published.
type capturingPublisher struct {
	events []*dto.ReportEventRequest
}

func (p *capturingPublisher) Publish(ctx context.Context, event *dto.ReportEventRequest) error {
	p.events = append(p.events, event)
	return nil
}

func TestCollector_TrackFeature_EmitsAndRemembersDistinctFeatures(t *testing.T) {
	pub := &capturingPublisher{}
	c := NewCollector("user_1", pub, zap.NewNop())

	c.TrackFeature(context.Background(), "reports")
	c.TrackFeature(context.Background(), "reports")
	c.TrackFeature(context.Background(), "exports")
	c.TrackFeature(context.Background(), "")

	assert.Len(t, pub.events, 3)
	assert.Equal(t, string(domain.EventFeatureUsage), pub.events[0].Type)
	assert.Equal(t, "reports", pub.events[0].Payload[domain.PayloadFeatureName])
}

func TestCollector_EndSession_EmitsExactlyOnce(t *testing.T) {
	pub := &capturingPublisher{}
	c := NewCollector("user_1", pub, zap.NewNop())
	start := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	c.sessionStart = start
	c.now = func() time.Time { return start.Add(12*time.Minute + 40*time.Second) }

	c.TrackFeature(context.Background(), "reports")
	c.EndSession(context.Background())
	c.EndSession(context.Background())
	c.EndSession(context.Background())

	var sessionEnds []*dto.ReportEventRequest
	for _, e := range pub.events {
		if e.Type == string(domain.EventSessionEnd) {
			sessionEnds = append(sessionEnds, e)
		}
	}

	assert.Len(t, sessionEnds, 1)
	// Whole minutes only.
	assert.Equal(t, 12, sessionEnds[0].Payload[domain.PayloadSessionDuration])
	assert.ElementsMatch(t, []string{"reports"}, sessionEnds[0].Payload[domain.PayloadFeaturesUsed])
}

func TestCollector_Emit_DeliveryFailureIsSwallowed(t *testing.T) {
	pub := new(MockPublisher)
	pub.On("Publish", mock.Anything, mock.AnythingOfType("*dto.ReportEventRequest")).
		Return(errors.New("ingestion unreachable"))

	c := NewCollector("user_1", pub, zap.NewNop())

	// Must not panic or propagate.
	c.TrackLogin(context.Background(), "ada@example.com", "pro", 99)
	c.TrackSupportTicket(context.Background())

	pub.AssertNumberOfCalls(t, "Publish", 2)
}

func TestCollector_UpdateBilling_OmitsZeroFields(t *testing.T) {
	pub := &capturingPublisher{}
	c := NewCollector("user_1", pub, zap.NewNop())

	c.UpdateBilling(context.Background(), "", domain.BillingPastDue, 0)

	assert.Len(t, pub.events, 1)
	payload := pub.events[0].Payload
	assert.Equal(t, domain.BillingPastDue, payload[domain.PayloadBillingStatus])
	assert.NotContains(t, payload, domain.PayloadPlan)
	assert.NotContains(t, payload, domain.PayloadMonthlyRevenue)
}

// blockingPrompter never answers until its release channel closes.
type blockingPrompter struct {
	release chan struct{}
	result  CaptureResult
	err     error
}

func (p *blockingPrompter) Prompt(ctx context.Context) (CaptureResult, error) {
	select {
	case <-p.release:
		return p.result, p.err
	case <-ctx.Done():
		return Dismissed(), ctx.Err()
	}
}

func TestCollector_CaptureCancellationIntent_SubmittedReasonEmitsEvent(t *testing.T) {
	pub := &capturingPublisher{}
	c := NewCollector("user_1", pub, zap.NewNop())

	prompter := &blockingPrompter{
		release: make(chan struct{}),
		result:  CaptureResult{Submitted: true, Reason: "too expensive"},
	}
	close(prompter.release)

	result := c.CaptureCancellationIntent(context.Background(), prompter)

	assert.True(t, result.Submitted)
	assert.Len(t, pub.events, 1)
	assert.Equal(t, string(domain.EventCancellationIntent), pub.events[0].Type)
	assert.Equal(t, "too expensive", pub.events[0].Payload[domain.PayloadReason])
}

func TestCollector_CaptureCancellationIntent_ContextCancellationDismisses(t *testing.T) {
	pub := &capturingPublisher{}
	c := NewCollector("user_1", pub, zap.NewNop())

	prompter := &blockingPrompter{release: make(chan struct{})}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	result := c.CaptureCancellationIntent(ctx, prompter)

	assert.False(t, result.Submitted)
	assert.Empty(t, pub.events)
}

func TestCollector_CaptureCancellationIntent_PrompterErrorDismisses(t *testing.T) {
	pub := &capturingPublisher{}
	c := NewCollector("user_1", pub, zap.NewNop())

	prompter := &blockingPrompter{
		release: make(chan struct{}),
		err:     errors.New("dialog crashed"),
	}
	close(prompter.release)

	result := c.CaptureCancellationIntent(context.Background(), prompter)

	assert.False(t, result.Submitted)
	assert.Empty(t, pub.events)
}

func TestCollector_CaptureCancellationIntent_EmptyReasonDismisses(t *testing.T) {
	pub := &capturingPublisher{}
	c := NewCollector("user_1", pub, zap.NewNop())

	prompter := &blockingPrompter{
		release: make(chan struct{}),
		result:  CaptureResult{Submitted: true, Reason: ""},
	}
	close(prompter.release)

	result := c.CaptureCancellationIntent(context.Background(), prompter)

	assert.False(t, result.Submitted)
	assert.Empty(t, pub.events)
}
