package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/retainly/retention-service/internal/domain"
	"github.com/retainly/retention-service/internal/dto"
	"github.com/retainly/retention-service/internal/notify"
	"github.com/retainly/retention-service/internal/repository"
	"github.com/retainly/retention-service/internal/service"
)

type Handler struct {
	eventService      service.EventServicer
	insightService    service.InsightServicer
	automationService service.AutomationServicer
	feedbackService   service.FeedbackServicer
	notifier          service.Notifier
	router            *gin.Engine
	log               *zap.Logger
}

func NewHandler(
	eventService service.EventServicer,
	insightService service.InsightServicer,
	automationService service.AutomationServicer,
	feedbackService service.FeedbackServicer,
	notifier service.Notifier,
	log *zap.Logger,
) *Handler {
	h := &Handler{
		eventService:      eventService,
		insightService:    insightService,
		automationService: automationService,
		feedbackService:   feedbackService,
		notifier:          notifier,
		router:            gin.Default(),
		log:               log,
	}

	h.registerRoutes()

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.router.GET("/health", h.healthCheck)

	api := h.router.Group("/api/v1")
	api.POST("/events", h.reportEvent)
	api.POST("/events/bulk", h.reportEventsBulk)
	api.GET("/events/volume", h.getVolume)

	api.GET("/assessments", h.listAssessments)
	api.GET("/users/:id/assessment", h.assessUser)
	api.GET("/users/:id/recommendations", h.getRecommendations)
	api.POST("/recommendations/action", h.actOnRecommendation)

	api.POST("/notifications/dispatch", h.dispatchNotification)
	api.POST("/notifications/retry", h.retryNotification)

	api.POST("/feedback", h.captureFeedback)
	api.GET("/dashboard", h.getDashboard)

	api.POST("/automation/weekly-digest", h.sendWeeklyDigest)
	api.POST("/automation/high-risk-alert", h.sendHighRiskAlert)
	api.POST("/automation/reactivation", h.sendReactivation)
}

// respondError maps the domain error taxonomy onto HTTP statuses.
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case domain.IsValidation(err), errors.Is(err, domain.ErrUnknownEventType):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error:   "not_found",
			Message: err.Error(),
		})
	case errors.Is(err, domain.ErrInvalidTransition):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error:   "invalid_transition",
			Message: err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
	}
}

// healthCheck handles health check requests
// @Summary Health check
// @Description Check if the service is running
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// reportEvent handles POST /api/v1/events
// @Summary Report a single behavioral event
// @Description Validate a reported event and hand it to the processing queue
// @Tags events
// @Accept json
// @Produce json
// @Param event body dto.ReportEventRequest true "Event data"
// @Success 202 {object} dto.ReportEventResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/events [post]
func (h *Handler) reportEvent(c *gin.Context) {
	var req dto.ReportEventRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid event request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	eventID, err := h.eventService.ProcessEvent(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.log.Info("Event accepted",
		zap.String("event_id", eventID),
		zap.String("type", req.Type))

	c.JSON(http.StatusAccepted, dto.ReportEventResponse{
		EventID: eventID,
		Status:  "accepted",
	})
}

// reportEventsBulk handles POST /api/v1/events/bulk
// @Summary Report multiple behavioral events
// @Description Validate and queue a batch of reported events
// @Tags events
// @Accept json
// @Produce json
// @Param events body dto.ReportEventsBulkRequest true "Bulk events data"
// @Success 202 {object} dto.ReportEventsBulkResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/events/bulk [post]
func (h *Handler) reportEventsBulk(c *gin.Context) {
	var bulkRequest dto.ReportEventsBulkRequest

	if err := c.ShouldBindJSON(&bulkRequest); err != nil {
		h.log.Warn("Invalid bulk event request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	eventIDs, errs, err := h.eventService.ProcessBulkEvents(c.Request.Context(), bulkRequest.Events)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.log.Info("Bulk events processed",
		zap.Int("accepted", len(eventIDs)),
		zap.Int("rejected", len(errs)),
		zap.Int("total", len(bulkRequest.Events)))

	c.JSON(http.StatusAccepted, dto.ReportEventsBulkResponse{
		Accepted: len(eventIDs),
		Rejected: len(errs),
		EventIDs: eventIDs,
		Errors:   errs,
	})
}

// getVolume handles GET /api/v1/events/volume
// @Summary Get archived event volume
// @Description Retrieve aggregated event volume with optional grouping by event_type, hour, or day
// @Tags events
// @Produce json
// @Param event_type query string false "Event type to filter by" example:"feature_usage"
// @Param from query int true "Start timestamp (Unix epoch millis)"
// @Param to query int true "End timestamp (Unix epoch millis)"
// @Param group_by query string false "Field to group by (event_type, hour, day)"
// @Success 200 {object} dto.GetVolumeResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/events/volume [get]
func (h *Handler) getVolume(c *gin.Context) {
	var req dto.GetVolumeRequest

	if err := c.ShouldBindQuery(&req); err != nil {
		h.log.Warn("Invalid volume request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	result, err := h.eventService.GetVolume(c.Request.Context(), repository.VolumeQuery{
		EventType: req.EventType,
		From:      req.From,
		To:        req.To,
		GroupBy:   req.GroupBy,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := dto.GetVolumeResponse{
		EventType:   req.EventType,
		From:        req.From,
		To:          req.To,
		GroupBy:     req.GroupBy,
		TotalCount:  result.TotalCount,
		UniqueUsers: result.UniqueUsers,
	}
	for _, g := range result.Groups {
		resp.Groups = append(resp.Groups, dto.VolumeGroup{
			GroupValue: g.GroupValue,
			TotalCount: g.TotalCount,
		})
	}

	c.JSON(http.StatusOK, resp)
}

// listAssessments handles GET /api/v1/assessments
// @Summary List risk assessments
// @Description List the latest assessment per user, filtered by risk level
// @Tags insights
// @Produce json
// @Param riskLevel query string false "Risk level filter (low, medium, high)"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} dto.ListAssessmentsResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/assessments [get]
func (h *Handler) listAssessments(c *gin.Context) {
	var req dto.ListAssessmentsRequest

	if err := c.ShouldBindQuery(&req); err != nil {
		h.log.Warn("Invalid assessments request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	resp, err := h.insightService.ListAssessments(req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// assessUser handles GET /api/v1/users/:id/assessment
// @Summary Assess one user's churn risk
// @Description Score the user from their current aggregate and return the assessment
// @Tags insights
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} domain.RiskAssessment
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/users/{id}/assessment [get]
func (h *Handler) assessUser(c *gin.Context) {
	userID := c.Param("id")

	assessment, err := h.insightService.AssessUser(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, assessment)
}

// getRecommendations handles GET /api/v1/users/:id/recommendations
// @Summary Get retention actions for a user
// @Tags insights
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} dto.RecommendationsResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/users/{id}/recommendations [get]
func (h *Handler) getRecommendations(c *gin.Context) {
	userID := c.Param("id")

	resp, err := h.insightService.RecommendationsFor(userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// actOnRecommendation handles POST /api/v1/recommendations/action
// @Summary Apply an operator action to a recommendation
// @Description Execute, dismiss, or snooze a pending recommendation
// @Tags insights
// @Accept json
// @Produce json
// @Param action body dto.RecommendationActionRequest true "Action"
// @Success 200 {object} domain.Recommendation
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /api/v1/recommendations/action [post]
func (h *Handler) actOnRecommendation(c *gin.Context) {
	var req dto.RecommendationActionRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid recommendation action request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	rec, err := h.insightService.ActOnRecommendation(&req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, rec)
}

// dispatchNotification handles POST /api/v1/notifications/dispatch
// @Summary Dispatch a notification
// @Description Render a template and deliver it over email or chat, idempotently
// @Tags notifications
// @Accept json
// @Produce json
// @Param request body dto.DispatchRequest true "Dispatch request"
// @Success 200 {object} dto.DispatchResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/notifications/dispatch [post]
func (h *Handler) dispatchNotification(c *gin.Context) {
	var req dto.DispatchRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid dispatch request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	job, err := h.notifier.Dispatch(c.Request.Context(), notify.Request{
		TemplateKey: req.TemplateKey,
		Recipient:   req.Recipient,
		Channel:     domain.Channel(req.Channel),
		Data:        req.Data,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.DispatchResponse{
		Success: job.Status == domain.JobSent,
		JobID:   job.ID,
		Error:   job.LastError,
	})
}

// retryNotification handles POST /api/v1/notifications/retry
// @Summary Retry a failed notification job
// @Tags notifications
// @Accept json
// @Produce json
// @Param request body dto.RetryJobRequest true "Retry request"
// @Success 200 {object} dto.DispatchResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /api/v1/notifications/retry [post]
func (h *Handler) retryNotification(c *gin.Context) {
	var req dto.RetryJobRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid retry request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	job, err := h.notifier.Retry(c.Request.Context(), req.JobID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.DispatchResponse{
		Success: job.Status == domain.JobSent,
		JobID:   job.ID,
		Error:   job.LastError,
	})
}

// captureFeedback handles POST /api/v1/feedback
// @Summary Capture cancellation feedback
// @Description Categorize and store a free-text cancellation reason
// @Tags feedback
// @Accept json
// @Produce json
// @Param feedback body dto.CancellationFeedbackRequest true "Feedback"
// @Success 201 {object} dto.FeedbackResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/feedback [post]
func (h *Handler) captureFeedback(c *gin.Context) {
	var req dto.CancellationFeedbackRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid feedback request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	record, err := h.feedbackService.CaptureReason(c.Request.Context(), req.UserID, req.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FeedbackResponse{
		Success:    true,
		FeedbackID: record.ID,
		Category:   record.Category,
	})
}

// getDashboard handles GET /api/v1/dashboard
// @Summary Get retention dashboard metrics
// @Tags insights
// @Produce json
// @Success 200 {object} dto.DashboardResponse
// @Router /api/v1/dashboard [get]
func (h *Handler) getDashboard(c *gin.Context) {
	resp, err := h.insightService.Dashboard()
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// sendWeeklyDigest handles POST /api/v1/automation/weekly-digest
// @Summary Send the weekly retention digest
// @Description Re-score all users and email the digest to each recipient
// @Tags automation
// @Accept json
// @Produce json
// @Param request body dto.DigestRequest true "Recipients"
// @Success 200 {object} dto.BatchDispatchResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/automation/weekly-digest [post]
func (h *Handler) sendWeeklyDigest(c *gin.Context) {
	var req dto.DigestRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid digest request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	resp, err := h.automationService.SendWeeklyDigest(c.Request.Context(), req.Recipients)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// sendHighRiskAlert handles POST /api/v1/automation/high-risk-alert
// @Summary Alert an operator about a high-risk account
// @Tags automation
// @Accept json
// @Produce json
// @Param request body dto.HighRiskAlertRequest true "Alert request"
// @Success 200 {object} dto.DispatchResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/automation/high-risk-alert [post]
func (h *Handler) sendHighRiskAlert(c *gin.Context) {
	var req dto.HighRiskAlertRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid high risk alert request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	job, err := h.automationService.SendHighRiskAlert(c.Request.Context(), req.Recipient, req.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.DispatchResponse{
		Success: job.Status == domain.JobSent,
		JobID:   job.ID,
		Error:   job.LastError,
	})
}

// sendReactivation handles POST /api/v1/automation/reactivation
// @Summary Send a reactivation email to a dormant user
// @Tags automation
// @Accept json
// @Produce json
// @Param request body dto.ReactivationRequest true "Reactivation request"
// @Success 200 {object} dto.DispatchResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/automation/reactivation [post]
func (h *Handler) sendReactivation(c *gin.Context) {
	var req dto.ReactivationRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid reactivation request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	job, err := h.automationService.SendReactivation(c.Request.Context(), req.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.DispatchResponse{
		Success: job.Status == domain.JobSent,
		JobID:   job.ID,
		Error:   job.LastError,
	})
}
