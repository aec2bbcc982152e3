package domain

import "time"

// Feedback categories assigned to free-text cancellation reasons.
const (
	CategoryPricing         = "Pricing"
	CategoryFeatures        = "Features"
	CategoryCompetition     = "Competition"
	CategorySupport         = "Support"
	CategoryTechnical       = "Technical Issues"
	CategoryUserExperience  = "User Experience"
	CategoryBusinessChanges = "Business Changes"
	CategoryOther           = "Other"
)

// CancellationFeedback is a free-text cancellation reason captured from a
// user, with its derived category feeding the dashboard's top churn reasons.
type CancellationFeedback struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Reason     string    `json:"reason"`
	Category   string    `json:"category"`
	ReceivedAt time.Time `json:"received_at"`
}
