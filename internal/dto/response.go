package dto

import "github.com/retainly/retention-service/internal/domain"

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error" example:"validation_error"`
	Message string `json:"message,omitempty" example:"type is required"`
}

// ReportEventResponse acknowledges an accepted event.
type ReportEventResponse struct {
	EventID string `json:"event_id" example:"evt_1a2b3c4d5e6f"`
	Status  string `json:"status" example:"accepted"`
}

// ReportEventsBulkResponse acknowledges a batch of events.
type ReportEventsBulkResponse struct {
	Accepted int      `json:"accepted" example:"5"`
	Rejected int      `json:"rejected" example:"0"`
	EventIDs []string `json:"event_ids,omitempty"`
	Errors   []string `json:"errors,omitempty"`
}

// VolumeGroup is one bucket of a grouped volume response.
type VolumeGroup struct {
	GroupValue string `json:"group_value"`
	TotalCount uint64 `json:"total_count"`
}

// GetVolumeResponse returns aggregated event volume from the archive.
type GetVolumeResponse struct {
	EventType   string        `json:"event_type,omitempty"`
	From        int64         `json:"from"`
	To          int64         `json:"to"`
	GroupBy     string        `json:"group_by,omitempty"`
	TotalCount  uint64        `json:"total_count"`
	UniqueUsers uint64        `json:"unique_users"`
	Groups      []VolumeGroup `json:"groups,omitempty"`
}

// AssessmentSummary is the per-tier rollup accompanying a list of assessments.
type AssessmentSummary struct {
	Total         int     `json:"total"`
	HighRisk      int     `json:"high_risk"`
	MediumRisk    int     `json:"medium_risk"`
	LowRisk       int     `json:"low_risk"`
	AvgChurnScore float64 `json:"avg_churn_score"`
}

// Pagination describes the window of a paginated response.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	Total   int  `json:"total"`
	HasMore bool `json:"has_more"`
}

// ListAssessmentsResponse returns filtered assessments with a summary block.
type ListAssessmentsResponse struct {
	Assessments []*domain.RiskAssessment `json:"assessments"`
	Summary     AssessmentSummary        `json:"summary"`
	Pagination  Pagination               `json:"pagination"`
}

// RecommendationsResponse returns the retention actions for one user.
type RecommendationsResponse struct {
	UserID          string                   `json:"user_id"`
	Recommendations []*domain.Recommendation `json:"recommendations"`
	Count           int                      `json:"count"`
}

// DispatchResponse reports the outcome of a dispatch call.
type DispatchResponse struct {
	Success bool   `json:"success"`
	JobID   string `json:"job_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// FeedbackResponse acknowledges stored cancellation feedback.
type FeedbackResponse struct {
	Success    bool   `json:"success"`
	FeedbackID string `json:"feedback_id"`
	Category   string `json:"category"`
}

// ChurnReason is one aggregated cancellation category.
type ChurnReason struct {
	Category   string  `json:"category"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// RiskBucket is one tier of the dashboard risk distribution.
type RiskBucket struct {
	RiskLevel string `json:"risk_level"`
	Count     int    `json:"count"`
}

// DashboardResponse aggregates retention metrics for the dashboard.
type DashboardResponse struct {
	TotalUsers       int           `json:"total_users"`
	ChurnRate        float64       `json:"churn_rate"`
	HighRiskUsers    int           `json:"high_risk_users"`
	AvgRevenue       float64       `json:"avg_revenue"`
	TopChurnReasons  []ChurnReason `json:"top_churn_reasons"`
	RiskDistribution []RiskBucket  `json:"risk_distribution"`
}

// BatchItemResult reports one recipient's outcome in a batch dispatch.
type BatchItemResult struct {
	Recipient string `json:"recipient"`
	Success   bool   `json:"success"`
	JobID     string `json:"job_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// BatchDispatchResponse reports the aggregate outcome of a batch dispatch.
type BatchDispatchResponse struct {
	Sent    int               `json:"sent"`
	Failed  int               `json:"failed"`
	Results []BatchItemResult `json:"results"`
}
