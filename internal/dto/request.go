package dto

// ReportEventRequest is a behavioral event reported by a monitored
// client session. Timestamp is ISO-8601.
type ReportEventRequest struct {
	Type      string                 `json:"type" binding:"required" example:"feature_usage"`
	UserID    string                 `json:"user_id" binding:"required" example:"user_123"`
	Timestamp string                 `json:"timestamp" binding:"required" example:"2026-08-28T09:15:00Z"`
	Payload   map[string]interface{} `json:"payload"`
}

// ReportEventsBulkRequest carries a batch of events from the SDK.
type ReportEventsBulkRequest struct {
	Events []ReportEventRequest `json:"events" binding:"required,min=1,max=1000,dive"`
}

// GetVolumeRequest queries archived event volume. From and To are Unix
// epoch milliseconds.
type GetVolumeRequest struct {
	EventType string `form:"event_type" example:"feature_usage"`
	From      int64  `form:"from" binding:"required" example:"1766702551000"`
	To        int64  `form:"to" binding:"required" example:"1766788951000"`
	GroupBy   string `form:"group_by" example:"day"`
}

// ListAssessmentsRequest filters and paginates stored risk assessments.
type ListAssessmentsRequest struct {
	RiskLevel string `form:"riskLevel" example:"high"`
	Limit     int    `form:"limit,default=50" example:"50"`
	Offset    int    `form:"offset" example:"0"`
}

// RecommendationActionRequest performs an operator action on a recommendation.
type RecommendationActionRequest struct {
	RecommendationID string `json:"recommendation_id" binding:"required" example:"rec_7f3a"`
	Action           string `json:"action" binding:"required,oneof=execute dismiss snooze" example:"execute"`
}

// DispatchRequest asks the dispatcher to render and deliver one notification.
type DispatchRequest struct {
	TemplateKey string                 `json:"template_key" binding:"required" example:"high_risk_alert"`
	Recipient   string                 `json:"recipient" binding:"required" example:"founder@company.com"`
	Channel     string                 `json:"channel" binding:"required,oneof=email chat" example:"email"`
	Data        map[string]interface{} `json:"data"`
}

// RetryJobRequest asks the dispatcher to retry a failed job.
type RetryJobRequest struct {
	JobID string `json:"job_id" binding:"required"`
}

// CancellationFeedbackRequest carries a free-text cancellation reason.
type CancellationFeedbackRequest struct {
	UserID string `json:"user_id" binding:"required" example:"user_123"`
	Reason string `json:"reason" binding:"required" example:"too expensive for our team size"`
}

// DigestRequest triggers a digest dispatch to one or more recipients.
type DigestRequest struct {
	Recipients []string `json:"recipients" binding:"required,min=1,dive,email"`
}

// HighRiskAlertRequest triggers a high-risk alert for one user.
type HighRiskAlertRequest struct {
	Recipient string `json:"recipient" binding:"required,email"`
	UserID    string `json:"user_id" binding:"required"`
}

// ReactivationRequest triggers a reactivation email for one user.
type ReactivationRequest struct {
	UserID string `json:"user_id" binding:"required"`
}
