package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/retainly/retention-service/internal/domain"
)

func TestMemoryDeliveryLedger_SentWithin_ReturnsRecentSentJob(t *testing.T) {
	l := NewMemoryDeliveryLedger()
	l.Record(&domain.NotificationJob{
		ID:        "job_1",
		DedupeKey: "key_a",
		Status:    domain.JobSent,
		SentAt:    time.Now().UTC().Add(-10 * time.Minute),
	})

	prior := l.SentWithin("key_a", time.Hour)

	assert.NotNil(t, prior)
	assert.Equal(t, "job_1", prior.ID)
}

func TestMemoryDeliveryLedger_SentWithin_ExpiredWindow(t *testing.T) {
	l := NewMemoryDeliveryLedger()
	l.Record(&domain.NotificationJob{
		ID:        "job_1",
		DedupeKey: "key_a",
		Status:    domain.JobSent,
		SentAt:    time.Now().UTC().Add(-2 * time.Hour),
	})

	assert.Nil(t, l.SentWithin("key_a", time.Hour))
}

func TestMemoryDeliveryLedger_SentWithin_IgnoresFailedJobs(t *testing.T) {
	l := NewMemoryDeliveryLedger()
	l.Record(&domain.NotificationJob{
		ID:        "job_1",
		DedupeKey: "key_a",
		Status:    domain.JobFailed,
		LastError: "smtp timeout",
	})

	assert.Nil(t, l.SentWithin("key_a", time.Hour))
}

func TestMemoryDeliveryLedger_Job_UnknownID(t *testing.T) {
	l := NewMemoryDeliveryLedger()

	_, err := l.Job("job_missing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryFeedbackStore_CategoryCounts(t *testing.T) {
	s := NewMemoryFeedbackStore()
	s.Add(&domain.CancellationFeedback{ID: "fb_1", UserID: "user_1", Category: domain.CategoryPricing})
	s.Add(&domain.CancellationFeedback{ID: "fb_2", UserID: "user_2", Category: domain.CategoryPricing})
	s.Add(&domain.CancellationFeedback{ID: "fb_3", UserID: "user_1", Category: domain.CategorySupport})

	counts := s.CategoryCounts()

	assert.Equal(t, 2, counts[domain.CategoryPricing])
	assert.Equal(t, 1, counts[domain.CategorySupport])
	assert.Len(t, s.ByUser("user_1"), 2)
}
