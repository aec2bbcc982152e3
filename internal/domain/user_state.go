package domain

import "time"

// Billing status values carried on UserState.
const (
	BillingActive   = "active"
	BillingPastDue  = "past_due"
	BillingCanceled = "canceled"
)

// UserState is the per-user aggregate derived from event history. It is
// owned exclusively by the state store and mutated only via event
// application. Created on the first login or billing_update event for an
// unseen user, never deleted.
type UserState struct {
	UserID                    string             `json:"user_id"`
	Email                     string             `json:"email,omitempty"`
	Plan                      string             `json:"plan,omitempty"`
	MonthlyRevenue            float64            `json:"monthly_revenue"`
	BillingStatus             string             `json:"billing_status,omitempty"`
	LastLoginAt               time.Time          `json:"last_login_at,omitzero"`
	AvgSessionDurationMinutes float64            `json:"avg_session_duration_minutes"`
	SessionSamples            int                `json:"session_samples"`
	FeatureUsageCounts        map[string]int     `json:"feature_usage_counts"`
	SupportTicketCount        int                `json:"support_ticket_count"`
	CreatedAt                 time.Time          `json:"created_at"`
	UpdatedAt                 time.Time          `json:"updated_at"`
}

// FeatureDiversity returns the number of distinct features the user has touched.
func (s *UserState) FeatureDiversity() int {
	return len(s.FeatureUsageCounts)
}

// TotalFeatureUsage returns the sum of all feature usage counts.
func (s *UserState) TotalFeatureUsage() int {
	total := 0
	for _, n := range s.FeatureUsageCounts {
		total += n
	}
	return total
}

// Clone returns a deep copy so scoring reads a consistent snapshot that
// concurrent event application cannot tear.
func (s *UserState) Clone() *UserState {
	cp := *s
	cp.FeatureUsageCounts = make(map[string]int, len(s.FeatureUsageCounts))
	for k, v := range s.FeatureUsageCounts {
		cp.FeatureUsageCounts[k] = v
	}
	return &cp
}
