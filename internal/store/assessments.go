package store

import (
	"fmt"
	"sync"

	"github.com/retainly/retention-service/internal/domain"
)

// MemoryAssessmentStore keeps full scoring history per user. History is
// append-only; only the most recent assessment is served as current.
type MemoryAssessmentStore struct {
	mu      sync.RWMutex
	history map[string][]*domain.RiskAssessment
}

// NewMemoryAssessmentStore creates an empty assessment store.
func NewMemoryAssessmentStore() *MemoryAssessmentStore {
	return &MemoryAssessmentStore{
		history: make(map[string][]*domain.RiskAssessment),
	}
}

// Put appends an assessment to the user's history.
func (s *MemoryAssessmentStore) Put(assessment *domain.RiskAssessment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[assessment.UserID] = append(s.history[assessment.UserID], assessment)
}

// Latest returns the user's most recent assessment.
func (s *MemoryAssessmentStore) Latest(userID string) (*domain.RiskAssessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	assessments, ok := s.history[userID]
	if !ok || len(assessments) == 0 {
		return nil, fmt.Errorf("assessment for user %s: %w", userID, domain.ErrNotFound)
	}
	return assessments[len(assessments)-1], nil
}

// LatestAll returns the current assessment of every scored user.
func (s *MemoryAssessmentStore) LatestAll() []*domain.RiskAssessment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.RiskAssessment, 0, len(s.history))
	for _, assessments := range s.history {
		if len(assessments) > 0 {
			out = append(out, assessments[len(assessments)-1])
		}
	}
	return out
}
