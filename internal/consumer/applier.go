package consumer

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/retainly/retention-service/internal/domain"
	"github.com/retainly/retention-service/internal/store"
)

// ApplierStage folds parsed events into the per-user state store before
// they continue to the archive writer. Cancellation intents additionally
// feed the feedback sink.
type ApplierStage struct {
	states   store.StateStore
	feedback FeedbackSink
	log      *zap.Logger
}

// NewApplierStage creates a new applier stage
func NewApplierStage(states store.StateStore, feedback FeedbackSink, log *zap.Logger) *ApplierStage {
	return &ApplierStage{
		states:   states,
		feedback: feedback,
		log:      log,
	}
}

// Start begins applying envelopes to the state store and forwards them
// to the next stage. Application failures are logged but never block the
// archive: the event remains an immutable fact either way.
func (a *ApplierStage) Start(ctx context.Context, in <-chan *Envelope, out chan<- *Envelope) {
	defer close(out)

	for {
		select {
		case <-ctx.Done():
			a.log.Info("Applier stage shutting down")
			return
		case envelope, ok := <-in:
			if !ok {
				a.log.Info("Applier stage input channel closed")
				return
			}

			a.apply(ctx, envelope.Event)

			select {
			case <-ctx.Done():
				return
			case out <- envelope:
				// Envelope sent to next stage
			}
		}
	}
}

// apply folds one event into the aggregate and routes cancellation
// reasons to the feedback sink.
func (a *ApplierStage) apply(ctx context.Context, event *domain.Event) {
	if _, err := a.states.Apply(event); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.log.Warn("Event for unseen user, aggregate not updated",
				zap.String("event_id", event.EventID),
				zap.String("event_type", string(event.Type)),
				zap.String("user_id", event.UserID))
		} else {
			a.log.Error("Failed to apply event to state store",
				zap.String("event_id", event.EventID),
				zap.Error(err))
		}
	}

	if event.Type != domain.EventCancellationIntent || a.feedback == nil {
		return
	}
	reason, ok := event.PayloadString(domain.PayloadReason)
	if !ok {
		return
	}
	if _, err := a.feedback.CaptureReason(ctx, event.UserID, reason); err != nil {
		a.log.Error("Failed to capture cancellation feedback",
			zap.String("event_id", event.EventID),
			zap.String("user_id", event.UserID),
			zap.Error(err))
	}
}
