package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/retainly/retention-service/internal/domain"
)

func pendingRec(id, userID string) *domain.Recommendation {
	return &domain.Recommendation{
		ID:           id,
		UserID:       userID,
		Type:         domain.RecommendEmail,
		Status:       domain.RecommendationPending,
		SourceFactor: "login_recency",
		CreatedAt:    time.Now().UTC(),
	}
}

func TestMemoryRecommendationStore_Transition_PendingToExecuted(t *testing.T) {
	s := NewMemoryRecommendationStore()
	s.Save([]*domain.Recommendation{pendingRec("rec_1", "user_1")})

	rec, err := s.Transition("rec_1", domain.RecommendationExecuted)

	assert.NoError(t, err)
	assert.Equal(t, domain.RecommendationExecuted, rec.Status)
	assert.NotNil(t, rec.ExecutedAt)
}

func TestMemoryRecommendationStore_Transition_OutOfTerminalStatusFails(t *testing.T) {
	s := NewMemoryRecommendationStore()
	s.Save([]*domain.Recommendation{pendingRec("rec_1", "user_1")})

	_, err := s.Transition("rec_1", domain.RecommendationDismissed)
	assert.NoError(t, err)

	_, err = s.Transition("rec_1", domain.RecommendationExecuted)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	rec, err := s.Get("rec_1")
	assert.NoError(t, err)
	assert.Equal(t, domain.RecommendationDismissed, rec.Status)
	assert.Nil(t, rec.ExecutedAt)
}

func TestMemoryRecommendationStore_Transition_UnknownID(t *testing.T) {
	s := NewMemoryRecommendationStore()

	_, err := s.Transition("rec_missing", domain.RecommendationExecuted)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryRecommendationStore_HasPending_RespectsWindowAndStatus(t *testing.T) {
	s := NewMemoryRecommendationStore()
	rec := pendingRec("rec_1", "user_1")
	rec.CreatedAt = time.Now().UTC().Add(-2 * time.Hour)
	s.Save([]*domain.Recommendation{rec})

	query := RecommendationQuery{
		UserID:       "user_1",
		Type:         domain.RecommendEmail,
		SourceFactor: "login_recency",
		Since:        time.Now().UTC().Add(-24 * time.Hour),
	}
	assert.True(t, s.HasPending(query))

	query.Since = time.Now().UTC().Add(-1 * time.Hour)
	assert.False(t, s.HasPending(query))

	_, err := s.Transition("rec_1", domain.RecommendationDismissed)
	assert.NoError(t, err)
	query.Since = time.Now().UTC().Add(-24 * time.Hour)
	assert.False(t, s.HasPending(query))
}

func TestMemoryRecommendationStore_ByUser_PreservesInsertionOrder(t *testing.T) {
	s := NewMemoryRecommendationStore()
	s.Save([]*domain.Recommendation{pendingRec("rec_1", "user_1"), pendingRec("rec_2", "user_1")})
	s.Save([]*domain.Recommendation{pendingRec("rec_3", "user_1")})

	recs := s.ByUser("user_1")

	assert.Len(t, recs, 3)
	assert.Equal(t, "rec_1", recs[0].ID)
	assert.Equal(t, "rec_2", recs[1].ID)
	assert.Equal(t, "rec_3", recs[2].ID)
}
