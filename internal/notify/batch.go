package notify

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/retainly/retention-service/internal/domain"
)

// BatchResult is the outcome of one recipient in a batch dispatch.
type BatchResult struct {
	Recipient string
	Job       *domain.NotificationJob
	Err       error
}

// DispatchBatch delivers one notification per request concurrently.
// Each recipient is isolated: one failure never aborts the others, and
// results always arrive in request order.
func (d *Dispatcher) DispatchBatch(ctx context.Context, requests []Request) []BatchResult {
	results := make([]BatchResult, len(requests))

	var wg sync.WaitGroup
	for i, req := range requests {
		wg.Add(1)
		go func(i int, req Request) {
			defer wg.Done()
			job, err := d.Dispatch(ctx, req)
			results[i] = BatchResult{Recipient: req.Recipient, Job: job, Err: err}
		}(i, req)
	}
	wg.Wait()

	sent := 0
	for _, r := range results {
		if r.Err == nil && r.Job != nil && r.Job.Status == domain.JobSent {
			sent++
		}
	}
	d.log.Info("Batch dispatch finished",
		zap.Int("requested", len(requests)),
		zap.Int("sent", sent))

	return results
}
