package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/retainly/retention-service/internal/domain"
)

// MemoryRecommendationStore keeps recommendations indexed by ID and by
// user. Status transitions are serialized under the store lock so a
// transition observed as valid cannot race a competing one.
type MemoryRecommendationStore struct {
	mu     sync.RWMutex
	byID   map[string]*domain.Recommendation
	byUser map[string][]*domain.Recommendation
}

// NewMemoryRecommendationStore creates an empty recommendation store.
func NewMemoryRecommendationStore() *MemoryRecommendationStore {
	return &MemoryRecommendationStore{
		byID:   make(map[string]*domain.Recommendation),
		byUser: make(map[string][]*domain.Recommendation),
	}
}

// Save stores a batch of freshly generated recommendations, preserving
// insertion order per user.
func (s *MemoryRecommendationStore) Save(recs []*domain.Recommendation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range recs {
		s.byID[rec.ID] = rec
		s.byUser[rec.UserID] = append(s.byUser[rec.UserID], rec)
	}
}

// Get returns the recommendation with the given ID.
func (s *MemoryRecommendationStore) Get(id string) (*domain.Recommendation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("recommendation %s: %w", id, domain.ErrNotFound)
	}
	return rec, nil
}

// ByUser returns the user's recommendations in insertion order.
func (s *MemoryRecommendationStore) ByUser(userID string) []*domain.Recommendation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := s.byUser[userID]
	out := make([]*domain.Recommendation, len(recs))
	copy(out, recs)
	return out
}

// HasPending reports whether a pending recommendation with the same
// user, type and source factor was created after query.Since.
func (s *MemoryRecommendationStore) HasPending(query RecommendationQuery) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.byUser[query.UserID] {
		if rec.Status != domain.RecommendationPending {
			continue
		}
		if rec.Type != query.Type || rec.SourceFactor != query.SourceFactor {
			continue
		}
		if rec.CreatedAt.After(query.Since) {
			return true
		}
	}
	return false
}

// Transition moves a pending recommendation to the target status.
// Transitions out of executed, dismissed or snoozed fail with
// domain.ErrInvalidTransition and leave the record untouched.
func (s *MemoryRecommendationStore) Transition(id string, target domain.RecommendationStatus) (*domain.Recommendation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("recommendation %s: %w", id, domain.ErrNotFound)
	}
	if rec.Status != domain.RecommendationPending {
		return nil, fmt.Errorf("recommendation %s is %s: %w", id, rec.Status, domain.ErrInvalidTransition)
	}

	rec.Status = target
	if target == domain.RecommendationExecuted {
		now := time.Now().UTC()
		rec.ExecutedAt = &now
	}
	return rec, nil
}
