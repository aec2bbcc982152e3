package telemetry

import (
	"context"

	"go.uber.org/zap"

	"github.com/retainly/retention-service/internal/domain"
)

// CaptureResult is the single resolution of a cancellation prompt:
// either the user submitted a reason or the prompt was dismissed.
type CaptureResult struct {
	Submitted bool
	Reason    string
}

// Dismissed is the resolution for an abandoned or cancelled prompt.
func Dismissed() CaptureResult {
	return CaptureResult{}
}

// Prompter collects a cancellation reason from the user, typically via
// a UI dialog. Prompt blocks until the user answers or ctx is done.
type Prompter interface {
	Prompt(ctx context.Context) (CaptureResult, error)
}

// CaptureCancellationIntent runs the prompt and resolves exactly once.
// Context cancellation dismisses the prompt and reports nothing; a
// submitted reason is reported as a cancellation_intent event. Prompt
// errors dismiss rather than propagate.
func (c *Collector) CaptureCancellationIntent(ctx context.Context, prompter Prompter) CaptureResult {
	type outcome struct {
		result CaptureResult
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		result, err := prompter.Prompt(ctx)
		done <- outcome{result: result, err: err}
	}()

	select {
	case <-ctx.Done():
		c.log.Debug("Cancellation prompt dismissed by context",
			zap.String("user_id", c.userID))
		return Dismissed()
	case out := <-done:
		if out.err != nil {
			c.log.Warn("Cancellation prompt failed, treating as dismissed",
				zap.String("user_id", c.userID),
				zap.Error(out.err))
			return Dismissed()
		}
		if !out.result.Submitted || out.result.Reason == "" {
			return Dismissed()
		}
		c.emit(ctx, domain.EventCancellationIntent, map[string]interface{}{
			domain.PayloadReason: out.result.Reason,
		})
		return out.result
	}
}
