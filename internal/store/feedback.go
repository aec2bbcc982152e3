package store

import (
	"sync"

	"github.com/retainly/retention-service/internal/domain"
)

// MemoryFeedbackStore retains categorized cancellation feedback in
// arrival order.
type MemoryFeedbackStore struct {
	mu     sync.RWMutex
	all    []*domain.CancellationFeedback
	byUser map[string][]*domain.CancellationFeedback
}

// NewMemoryFeedbackStore creates an empty feedback store.
func NewMemoryFeedbackStore() *MemoryFeedbackStore {
	return &MemoryFeedbackStore{
		byUser: make(map[string][]*domain.CancellationFeedback),
	}
}

// Add stores one feedback record.
func (s *MemoryFeedbackStore) Add(feedback *domain.CancellationFeedback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.all = append(s.all, feedback)
	s.byUser[feedback.UserID] = append(s.byUser[feedback.UserID], feedback)
}

// ByUser returns the user's feedback in arrival order.
func (s *MemoryFeedbackStore) ByUser(userID string) []*domain.CancellationFeedback {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.byUser[userID]
	out := make([]*domain.CancellationFeedback, len(records))
	copy(out, records)
	return out
}

// CategoryCounts returns how many feedback records fell into each category.
func (s *MemoryFeedbackStore) CategoryCounts() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, record := range s.all {
		counts[record.Category]++
	}
	return counts
}
