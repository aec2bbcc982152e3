package store

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/retainly/retention-service/internal/domain"
)

func loginEvent(userID string, ts time.Time, payload map[string]interface{}) *domain.Event {
	return &domain.Event{
		EventID:   "evt_login",
		Type:      domain.EventLogin,
		UserID:    userID,
		Timestamp: ts,
		Payload:   payload,
	}
}

func TestMemoryStateStore_Apply_CreatesUserOnFirstLogin(t *testing.T) {
	s := NewMemoryStateStore(zap.NewNop())

	state, err := s.Apply(loginEvent("user_1", time.Now().UTC(), map[string]interface{}{
		domain.PayloadEmail:          "ada@example.com",
		domain.PayloadPlan:           "pro",
		domain.PayloadMonthlyRevenue: 99.0,
	}))

	assert.NoError(t, err)
	assert.Equal(t, "user_1", state.UserID)
	assert.Equal(t, "ada@example.com", state.Email)
	assert.Equal(t, "pro", state.Plan)
	assert.Equal(t, 99.0, state.MonthlyRevenue)
	assert.Equal(t, domain.BillingActive, state.BillingStatus)
	assert.False(t, state.CreatedAt.IsZero())
}

func TestMemoryStateStore_Apply_RejectsUnseenUserForNonCreatingKinds(t *testing.T) {
	s := NewMemoryStateStore(zap.NewNop())

	_, err := s.Apply(&domain.Event{
		Type:      domain.EventFeatureUsage,
		UserID:    "ghost",
		Timestamp: time.Now().UTC(),
		Payload:   map[string]interface{}{domain.PayloadFeatureName: "reports"},
	})

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryStateStore_Apply_SessionEndRunningAverage(t *testing.T) {
	s := NewMemoryStateStore(zap.NewNop())
	_, err := s.Apply(loginEvent("user_1", time.Now().UTC(), nil))
	assert.NoError(t, err)

	for _, duration := range []float64{10, 20, 30} {
		_, err := s.Apply(&domain.Event{
			Type:      domain.EventSessionEnd,
			UserID:    "user_1",
			Timestamp: time.Now().UTC(),
			Payload:   map[string]interface{}{domain.PayloadSessionDuration: duration},
		})
		assert.NoError(t, err)
	}

	state, err := s.Get("user_1")
	assert.NoError(t, err)
	assert.Equal(t, 3, state.SessionSamples)
	assert.InDelta(t, 20.0, state.AvgSessionDurationMinutes, 1e-9)
}

func TestMemoryStateStore_Apply_FeatureUsageDelta(t *testing.T) {
	s := NewMemoryStateStore(zap.NewNop())
	_, err := s.Apply(loginEvent("user_1", time.Now().UTC(), nil))
	assert.NoError(t, err)

	_, err = s.Apply(&domain.Event{
		Type:      domain.EventFeatureUsage,
		UserID:    "user_1",
		Timestamp: time.Now().UTC(),
		Payload:   map[string]interface{}{domain.PayloadFeatureName: "reports"},
	})
	assert.NoError(t, err)

	_, err = s.Apply(&domain.Event{
		Type:      domain.EventFeatureUsage,
		UserID:    "user_1",
		Timestamp: time.Now().UTC(),
		Payload: map[string]interface{}{
			domain.PayloadFeatureName: "reports",
			domain.PayloadUsageDelta:  4.0,
		},
	})
	assert.NoError(t, err)

	state, err := s.Get("user_1")
	assert.NoError(t, err)
	assert.Equal(t, 5, state.FeatureUsageCounts["reports"])
	assert.Equal(t, 1, state.FeatureDiversity())
}

func TestMemoryStateStore_Apply_BillingUpdateOverwritesOnlyPresentFields(t *testing.T) {
	s := NewMemoryStateStore(zap.NewNop())
	_, err := s.Apply(loginEvent("user_1", time.Now().UTC(), map[string]interface{}{
		domain.PayloadPlan:           "pro",
		domain.PayloadMonthlyRevenue: 99.0,
	}))
	assert.NoError(t, err)

	_, err = s.Apply(&domain.Event{
		Type:      domain.EventBillingUpdate,
		UserID:    "user_1",
		Timestamp: time.Now().UTC(),
		Payload:   map[string]interface{}{domain.PayloadBillingStatus: domain.BillingPastDue},
	})
	assert.NoError(t, err)

	state, err := s.Get("user_1")
	assert.NoError(t, err)
	assert.Equal(t, domain.BillingPastDue, state.BillingStatus)
	assert.Equal(t, "pro", state.Plan)
	assert.Equal(t, 99.0, state.MonthlyRevenue)
}

func TestMemoryStateStore_Apply_StaleLoginDoesNotRewindLastLogin(t *testing.T) {
	s := NewMemoryStateStore(zap.NewNop())
	recent := time.Now().UTC()
	_, err := s.Apply(loginEvent("user_1", recent, nil))
	assert.NoError(t, err)

	_, err = s.Apply(loginEvent("user_1", recent.Add(-48*time.Hour), nil))
	assert.NoError(t, err)

	state, err := s.Get("user_1")
	assert.NoError(t, err)
	assert.Equal(t, recent, state.LastLoginAt)
}

func TestMemoryStateStore_Get_ReturnsSnapshot(t *testing.T) {
	s := NewMemoryStateStore(zap.NewNop())
	_, err := s.Apply(loginEvent("user_1", time.Now().UTC(), nil))
	assert.NoError(t, err)

	snapshot, err := s.Get("user_1")
	assert.NoError(t, err)
	snapshot.FeatureUsageCounts["tampered"] = 99

	fresh, err := s.Get("user_1")
	assert.NoError(t, err)
	assert.NotContains(t, fresh.FeatureUsageCounts, "tampered")
}

func TestMemoryStateStore_Apply_ConcurrentUsersDoNotInterfere(t *testing.T) {
	s := NewMemoryStateStore(zap.NewNop())
	const users = 8
	const ticketsPerUser = 50

	for i := 0; i < users; i++ {
		_, err := s.Apply(loginEvent(fmt.Sprintf("user_%d", i), time.Now().UTC(), nil))
		assert.NoError(t, err)
	}

	var wg sync.WaitGroup
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			for j := 0; j < ticketsPerUser; j++ {
				_, err := s.Apply(&domain.Event{
					Type:      domain.EventSupportTicket,
					UserID:    userID,
					Timestamp: time.Now().UTC(),
				})
				if err != nil {
					t.Error(err)
					return
				}
			}
		}(fmt.Sprintf("user_%d", i))
	}
	wg.Wait()

	for i := 0; i < users; i++ {
		state, err := s.Get(fmt.Sprintf("user_%d", i))
		assert.NoError(t, err)
		assert.Equal(t, ticketsPerUser, state.SupportTicketCount)
	}
}

func TestMemoryStateStore_Get_UnknownUser(t *testing.T) {
	s := NewMemoryStateStore(zap.NewNop())

	_, err := s.Get("nobody")

	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
