// Package notify renders and delivers notifications over email and
// chat. Delivery is idempotent per dedupe key within the configured
// window and every outcome is recorded on a ledger job. The dispatcher
// never retries on its own; a failed job waits for an explicit Retry.
package notify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/retainly/retention-service/internal/domain"
	"github.com/retainly/retention-service/internal/store"
)

// Request describes one notification to render and deliver.
type Request struct {
	TemplateKey string
	Recipient   string
	Channel     domain.Channel
	Data        map[string]interface{}
}

// Dispatcher renders templates and delivers them through the channel
// transports, with ledger-backed idempotency.
type Dispatcher struct {
	ledger       store.DeliveryLedger
	renderer     Renderer
	transports   map[domain.Channel]Transport
	dedupeWindow time.Duration
	sendTimeout  time.Duration
	now          func() time.Time
	newID        func() string
	log          *zap.Logger

	mu    sync.Mutex
	locks map[string]*keyLock
}

// keyLock serializes work on one dedupe key. Entries are reference
// counted and removed once the last holder releases, so the lock map
// stays bounded as window buckets roll over.
type keyLock struct {
	mu   sync.Mutex
	refs int
}

// NewDispatcher creates a dispatcher over the given transports.
func NewDispatcher(ledger store.DeliveryLedger, transports map[domain.Channel]Transport, dedupeWindow, sendTimeout time.Duration, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		ledger:       ledger,
		renderer:     TokenRenderer{},
		transports:   transports,
		dedupeWindow: dedupeWindow,
		sendTimeout:  sendTimeout,
		now:          func() time.Time { return time.Now().UTC() },
		newID:        func() string { return "job_" + uuid.NewString() },
		log:          log,
		locks:        make(map[string]*keyLock),
	}
}

// Dispatch renders and delivers one notification. A logical duplicate
// (same channel, template, recipient, window bucket) of an already sent
// notification returns the prior job without sending again. Delivery
// failure is recorded on the returned job, not returned as an error;
// only structural problems (unknown template or channel) fail the call.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (*domain.NotificationJob, error) {
	if !req.Channel.Valid() {
		return nil, &domain.ValidationError{Field: "channel", Reason: fmt.Sprintf("unsupported channel %q", req.Channel)}
	}
	tpl, err := LookupTemplate(req.TemplateKey, req.Channel)
	if err != nil {
		return nil, err
	}

	key := d.dedupeKey(req)

	// Concurrent duplicates serialize here so exactly one performs the
	// ledger check and the send.
	lock := d.lockKey(key)
	defer d.unlockKey(key, lock)

	if prior := d.ledger.SentWithin(key, d.dedupeWindow); prior != nil {
		d.log.Info("Duplicate notification suppressed",
			zap.String("dedupe_key", key),
			zap.String("prior_job_id", prior.ID))
		return prior, nil
	}

	job := &domain.NotificationJob{
		ID:              d.newID(),
		Channel:         req.Channel,
		TemplateKey:     req.TemplateKey,
		Recipient:       req.Recipient,
		RenderedSubject: d.renderer.Render(tpl.Subject, req.Data),
		RenderedBody:    d.renderer.Render(tpl.Body, req.Data),
		DedupeKey:       key,
		Status:          domain.JobPending,
		CreatedAt:       d.now(),
	}
	d.ledger.Record(job)

	d.attempt(ctx, job)
	return job, nil
}

// Retry re-attempts a failed job. Sent jobs are terminal and pending
// jobs are not eligible either.
func (d *Dispatcher) Retry(ctx context.Context, jobID string) (*domain.NotificationJob, error) {
	job, err := d.ledger.Job(jobID)
	if err != nil {
		return nil, err
	}

	lock := d.lockKey(job.DedupeKey)
	defer d.unlockKey(job.DedupeKey, lock)

	if job.Status != domain.JobFailed {
		return nil, fmt.Errorf("job %s is %s: %w", jobID, job.Status, domain.ErrInvalidTransition)
	}

	job.Status = domain.JobPending
	d.ledger.Update(job)

	d.attempt(ctx, job)
	return job, nil
}

// attempt performs one delivery and records the outcome. Caller holds
// the dedupe-key lock.
func (d *Dispatcher) attempt(ctx context.Context, job *domain.NotificationJob) {
	transport, ok := d.transports[job.Channel]
	if !ok {
		job.Status = domain.JobFailed
		job.Attempts++
		job.LastError = fmt.Sprintf("no transport for channel %s", job.Channel)
		d.ledger.Update(job)
		return
	}

	// A config-level rejection is not a delivery attempt; the send was
	// never on the wire.
	if err := transport.Validate(); err != nil {
		job.Status = domain.JobFailed
		job.LastError = err.Error()
		d.ledger.Update(job)
		d.log.Warn("Notification transport not configured",
			zap.String("job_id", job.ID),
			zap.String("channel", string(job.Channel)),
			zap.Error(err))
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	job.Attempts++
	if err := transport.Send(sendCtx, job); err != nil {
		job.Status = domain.JobFailed
		job.LastError = err.Error()
		d.ledger.Update(job)
		d.log.Warn("Notification delivery failed",
			zap.String("job_id", job.ID),
			zap.String("channel", string(job.Channel)),
			zap.Int("attempts", job.Attempts),
			zap.Error(err))
		return
	}

	job.Status = domain.JobSent
	job.SentAt = d.now()
	job.LastError = ""
	d.ledger.Update(job)
	d.log.Info("Notification sent",
		zap.String("job_id", job.ID),
		zap.String("channel", string(job.Channel)),
		zap.String("template_key", job.TemplateKey))
}

// dedupeKey hashes the logical notification identity plus the window
// bucket, so the same notification becomes sendable again once the
// window rolls over.
func (d *Dispatcher) dedupeKey(req Request) string {
	bucket := d.now().Truncate(d.dedupeWindow).Unix()
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%d", req.Channel, req.TemplateKey, req.Recipient, bucket)))
	return hex.EncodeToString(sum[:])
}

// lockKey acquires the per-key lock, creating the entry on first use.
func (d *Dispatcher) lockKey(key string) *keyLock {
	d.mu.Lock()
	lock, ok := d.locks[key]
	if !ok {
		lock = &keyLock{}
		d.locks[key] = lock
	}
	lock.refs++
	d.mu.Unlock()

	lock.mu.Lock()
	return lock
}

// unlockKey releases the per-key lock and drops the entry once no other
// caller holds or awaits it.
func (d *Dispatcher) unlockKey(key string, lock *keyLock) {
	lock.mu.Unlock()

	d.mu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(d.locks, key)
	}
	d.mu.Unlock()
}
