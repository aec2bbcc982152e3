package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/retainly/retention-service/internal/domain"
)

// MemoryDeliveryLedger records notification jobs by ID and by dedupe
// key. Per dedupe key only the most recent job matters for the
// idempotency check.
type MemoryDeliveryLedger struct {
	mu       sync.RWMutex
	byID     map[string]*domain.NotificationJob
	byDedupe map[string]*domain.NotificationJob
}

// NewMemoryDeliveryLedger creates an empty ledger.
func NewMemoryDeliveryLedger() *MemoryDeliveryLedger {
	return &MemoryDeliveryLedger{
		byID:     make(map[string]*domain.NotificationJob),
		byDedupe: make(map[string]*domain.NotificationJob),
	}
}

// Record stores a new job.
func (l *MemoryDeliveryLedger) Record(job *domain.NotificationJob) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.byID[job.ID] = job
	l.byDedupe[job.DedupeKey] = job
}

// Update persists a mutated job. Jobs are keyed by ID, so updating an
// unknown job is a no-op.
func (l *MemoryDeliveryLedger) Update(job *domain.NotificationJob) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.byID[job.ID]; ok {
		l.byID[job.ID] = job
		l.byDedupe[job.DedupeKey] = job
	}
}

// Job returns the job with the given ID.
func (l *MemoryDeliveryLedger) Job(id string) (*domain.NotificationJob, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	job, ok := l.byID[id]
	if !ok {
		return nil, fmt.Errorf("notification job %s: %w", id, domain.ErrNotFound)
	}
	return job, nil
}

// SentWithin returns the prior job for the dedupe key if it was sent
// within the window, else nil.
func (l *MemoryDeliveryLedger) SentWithin(dedupeKey string, window time.Duration) *domain.NotificationJob {
	l.mu.RLock()
	defer l.mu.RUnlock()

	job, ok := l.byDedupe[dedupeKey]
	if !ok || job.Status != domain.JobSent {
		return nil
	}
	if time.Since(job.SentAt) > window {
		return nil
	}
	return job
}
