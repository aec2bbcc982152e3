package store

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/retainly/retention-service/internal/domain"
)

// MemoryStateStore keeps every aggregate resident and serializes
// mutation per user with a keyed mutex. The registry lock is held only
// long enough to resolve the per-user entry, so application for
// distinct users proceeds in parallel.
type MemoryStateStore struct {
	mu    sync.RWMutex
	users map[string]*userEntry
	log   *zap.Logger
}

type userEntry struct {
	mu    sync.Mutex
	state *domain.UserState
}

// NewMemoryStateStore creates an empty state store.
func NewMemoryStateStore(log *zap.Logger) *MemoryStateStore {
	return &MemoryStateStore{
		users: make(map[string]*userEntry),
		log:   log,
	}
}

// Apply folds one event into the owning user's aggregate. Aggregates
// come into existence on the first login or billing_update for an
// unseen user; events of other kinds for unseen users are rejected with
// domain.ErrNotFound so the caller can decide whether to drop or retry.
func (s *MemoryStateStore) Apply(event *domain.Event) (*domain.UserState, error) {
	entry, err := s.entryFor(event)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	applyEvent(entry.state, event)
	entry.state.UpdatedAt = time.Now().UTC()

	return entry.state.Clone(), nil
}

// Get returns a snapshot of the user's aggregate.
func (s *MemoryStateStore) Get(userID string) (*domain.UserState, error) {
	s.mu.RLock()
	entry, ok := s.users[userID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.state.Clone(), nil
}

// All returns snapshots of every known aggregate.
func (s *MemoryStateStore) All() []*domain.UserState {
	s.mu.RLock()
	entries := make([]*userEntry, 0, len(s.users))
	for _, entry := range s.users {
		entries = append(entries, entry)
	}
	s.mu.RUnlock()

	states := make([]*domain.UserState, 0, len(entries))
	for _, entry := range entries {
		entry.mu.Lock()
		states = append(states, entry.state.Clone())
		entry.mu.Unlock()
	}
	return states
}

// Close releases the store.
func (s *MemoryStateStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log.Info("state store closed", zap.Int("users", len(s.users)))
	return nil
}

// entryFor resolves the per-user entry, creating it when the event kind
// is allowed to introduce a new user.
func (s *MemoryStateStore) entryFor(event *domain.Event) (*userEntry, error) {
	s.mu.RLock()
	entry, ok := s.users[event.UserID]
	s.mu.RUnlock()
	if ok {
		return entry, nil
	}

	if event.Type != domain.EventLogin && event.Type != domain.EventBillingUpdate {
		return nil, fmt.Errorf("user %s: %w", event.UserID, domain.ErrNotFound)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.users[event.UserID]; ok {
		return entry, nil
	}

	now := time.Now().UTC()
	entry = &userEntry{
		state: &domain.UserState{
			UserID:             event.UserID,
			FeatureUsageCounts: make(map[string]int),
			CreatedAt:          now,
			UpdatedAt:          now,
		},
	}
	s.users[event.UserID] = entry
	s.log.Debug("user aggregate created", zap.String("userID", event.UserID), zap.String("eventType", string(event.Type)))
	return entry, nil
}

// applyEvent holds the per-kind merge rules. Caller holds the entry lock.
func applyEvent(state *domain.UserState, event *domain.Event) {
	switch event.Type {
	case domain.EventLogin:
		if event.Timestamp.After(state.LastLoginAt) {
			state.LastLoginAt = event.Timestamp
		}
		if email, ok := event.PayloadString(domain.PayloadEmail); ok {
			state.Email = email
		}
		if plan, ok := event.PayloadString(domain.PayloadPlan); ok {
			state.Plan = plan
		}
		if revenue, ok := event.PayloadNumber(domain.PayloadMonthlyRevenue); ok {
			state.MonthlyRevenue = revenue
		}
		if state.BillingStatus == "" {
			state.BillingStatus = domain.BillingActive
		}

	case domain.EventFeatureUsage:
		name, ok := event.PayloadString(domain.PayloadFeatureName)
		if !ok {
			return
		}
		delta := 1
		if d, ok := event.PayloadNumber(domain.PayloadUsageDelta); ok && d >= 1 {
			delta = int(d)
		}
		state.FeatureUsageCounts[name] += delta

	case domain.EventSessionEnd:
		duration, ok := event.PayloadNumber(domain.PayloadSessionDuration)
		if !ok || duration < 0 {
			return
		}
		// Running average: avg' = avg + (sample - avg) / n.
		state.SessionSamples++
		state.AvgSessionDurationMinutes += (duration - state.AvgSessionDurationMinutes) / float64(state.SessionSamples)

	case domain.EventSupportTicket:
		state.SupportTicketCount++

	case domain.EventBillingUpdate:
		if plan, ok := event.PayloadString(domain.PayloadPlan); ok {
			state.Plan = plan
		}
		if revenue, ok := event.PayloadNumber(domain.PayloadMonthlyRevenue); ok {
			state.MonthlyRevenue = revenue
		}
		if status, ok := event.PayloadString(domain.PayloadBillingStatus); ok {
			state.BillingStatus = status
		}

	case domain.EventCancellationIntent:
		// Captured by the feedback pipeline; the aggregate only records
		// that the user was touched.
	}
}
