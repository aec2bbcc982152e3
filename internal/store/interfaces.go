package store

import (
	"time"

	"github.com/retainly/retention-service/internal/domain"
)

// StateStore owns the per-user aggregates. Aggregates are mutated only
// via Apply; Get returns a snapshot that concurrent application cannot tear.
type StateStore interface {
	// Apply folds one event into the owning user's aggregate and returns
	// a snapshot of the result. Application for a given user is
	// linearized in arrival order; distinct users never block each other.
	Apply(event *domain.Event) (*domain.UserState, error)

	// Get returns a snapshot of the user's aggregate or domain.ErrNotFound.
	Get(userID string) (*domain.UserState, error)

	// All returns snapshots of every known aggregate.
	All() []*domain.UserState

	// Close flushes and releases the store.
	Close() error
}

// AssessmentStore retains scoring history. The most recent assessment
// per user is authoritative; older ones are immutable history.
type AssessmentStore interface {
	Put(assessment *domain.RiskAssessment)
	Latest(userID string) (*domain.RiskAssessment, error)
	// LatestAll returns the current assessment of every scored user.
	LatestAll() []*domain.RiskAssessment
}

// RecommendationQuery filters pending-duplicate checks during
// idempotent regeneration.
type RecommendationQuery struct {
	UserID       string
	Type         domain.RecommendationType
	SourceFactor string
	Since        time.Time
}

// RecommendationStore retains retention actions and owns their status
// transitions.
type RecommendationStore interface {
	Save(recs []*domain.Recommendation)
	Get(id string) (*domain.Recommendation, error)
	ByUser(userID string) []*domain.Recommendation
	// HasPending reports whether a pending recommendation matching the
	// query was created after query.Since (the cool-down check).
	HasPending(query RecommendationQuery) bool
	// Transition moves a pending recommendation to the target status.
	// Any transition out of a non-pending status fails with
	// domain.ErrInvalidTransition and leaves the status unchanged.
	Transition(id string, target domain.RecommendationStatus) (*domain.Recommendation, error)
}

// DeliveryLedger records notification jobs and answers the idempotency
// check for a dedupe key within the configured window.
type DeliveryLedger interface {
	Record(job *domain.NotificationJob)
	Update(job *domain.NotificationJob)
	Job(id string) (*domain.NotificationJob, error)
	// SentWithin returns the prior sent job for the dedupe key if one
	// was sent within the window, else nil.
	SentWithin(dedupeKey string, window time.Duration) *domain.NotificationJob
}

// FeedbackStore retains categorized cancellation feedback.
type FeedbackStore interface {
	Add(feedback *domain.CancellationFeedback)
	ByUser(userID string) []*domain.CancellationFeedback
	CategoryCounts() map[string]int
}
