package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/garyjia/finance-approval/internal/application/port"
	"github.com/garyjia/finance-approval/internal/application/service"
	"github.com/garyjia/finance-approval/internal/domain/entity"
	"github.com/garyjia/finance-approval/internal/domain/workflow"
)

const (
	actorIDKey   = "actor_id"
	actorRoleKey = "actor_role"
)

// requireActor extracts the acting user from the X-Actor-ID and
// X-Actor-Role headers. Upstream auth is expected to have verified
// them; requests without an actor are rejected.
func requireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.GetHeader("X-Actor-ID"), 10, 64)
		if err != nil || id <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "missing or invalid X-Actor-ID header",
			})
			return
		}

		role := c.GetHeader("X-Actor-Role")
		switch role {
		case entity.RoleAdmin, entity.RoleDirector, entity.RoleAccountant, entity.RoleEmployee:
		default:
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "missing or invalid X-Actor-Role header",
			})
			return
		}

		c.Set(actorIDKey, id)
		c.Set(actorRoleKey, role)
		c.Next()
	}
}

func actorFrom(c *gin.Context) (int64, string) {
	return c.GetInt64(actorIDKey), c.GetString(actorRoleKey)
}

// Handlers contains all HTTP request handlers
type Handlers struct {
	requestService      service.RequestService
	notificationService service.NotificationService
	statsService        service.StatsService
	logger              *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	requestService service.RequestService,
	notificationService service.NotificationService,
	statsService service.StatsService,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		requestService:      requestService,
		notificationService: notificationService,
		statsService:        statsService,
		logger:              logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// CreateRequestBody is the payload for POST /api/requests
type CreateRequestBody struct {
	BusinessID    int64  `json:"business_id" binding:"required"`
	RequestTypeID int64  `json:"request_type_id" binding:"required"`
	Title         string `json:"title" binding:"required"`
	Description   string `json:"description"`
	AmountCents   int64  `json:"amount_cents" binding:"required"`
	Currency      string `json:"currency"`
	Urgency       string `json:"urgency"`
}

// DecisionBody is the payload for POST /api/requests/:id/decision
type DecisionBody struct {
	Decision string `json:"decision" binding:"required"`
	Comments string `json:"comments"`
}

// BulkDecisionBody is the payload for POST /api/approvals/bulk
type BulkDecisionBody struct {
	RequestIDs []int64 `json:"request_ids" binding:"required,min=1"`
	Decision   string  `json:"decision" binding:"required"`
	Comments   string  `json:"comments"`
}

// CancelBody is the payload for POST /api/requests/:id/cancel
type CancelBody struct {
	Reason string `json:"reason"`
}

// AmountBody is the payload for PATCH /api/requests/:id/amount
type AmountBody struct {
	AmountCents int64 `json:"amount_cents" binding:"required"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// CreateRequest handles POST /api/requests
func (h *Handlers) CreateRequest(c *gin.Context) {
	var body CreateRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	actorID, _ := actorFrom(c)

	req, err := h.requestService.CreateRequest(c.Request.Context(), service.CreateRequestInput{
		BusinessID:    body.BusinessID,
		RequestTypeID: body.RequestTypeID,
		RequesterID:   actorID,
		Title:         body.Title,
		Description:   body.Description,
		AmountCents:   body.AmountCents,
		Currency:      body.Currency,
		Urgency:       body.Urgency,
	})
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: req})
}

// ListRequests handles GET /api/requests
func (h *Handlers) ListRequests(c *gin.Context) {
	actorID, _ := actorFrom(c)
	filter := port.RequestFilter{
		Status: workflow.Status(c.Query("status")),
		Limit:  queryInt(c, "limit", 20),
		Offset: queryInt(c, "offset", 0),
	}

	requests, err := h.requestService.ListUserRequests(c.Request.Context(), actorID, filter)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: requests})
}

// ListRequestsToProcess handles GET /api/requests/to-process
func (h *Handlers) ListRequestsToProcess(c *gin.Context) {
	_, role := actorFrom(c)
	if role != entity.RoleAccountant && role != entity.RoleAdmin {
		h.renderError(c, workflow.ErrAccessDenied)
		return
	}

	var businessID *int64
	if raw := c.Query("business_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.badRequest(c, "invalid business_id")
			return
		}
		businessID = &id
	}

	requests, err := h.requestService.ListRequestsToProcess(c.Request.Context(), businessID,
		queryInt(c, "limit", 20), queryInt(c, "offset", 0))
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: requests})
}

// ListAllRequests handles GET /api/requests/all
func (h *Handlers) ListAllRequests(c *gin.Context) {
	_, role := actorFrom(c)

	var businessID *int64
	if raw := c.Query("business_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.badRequest(c, "invalid business_id")
			return
		}
		businessID = &id
	}

	requests, err := h.requestService.ListAllRequests(c.Request.Context(), role, port.RequestFilter{
		Status:     workflow.Status(c.Query("status")),
		BusinessID: businessID,
		Limit:      queryInt(c, "limit", 20),
		Offset:     queryInt(c, "offset", 0),
	})
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: requests})
}

// GetRequest handles GET /api/requests/:id
func (h *Handlers) GetRequest(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	actorID, role := actorFrom(c)

	req, err := h.requestService.GetRequest(c.Request.Context(), id, actorID, role)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: req})
}

// GetDecisions handles GET /api/requests/:id/decisions
func (h *Handlers) GetDecisions(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	actorID, role := actorFrom(c)

	// Visibility piggybacks on the request lookup
	if _, err := h.requestService.GetRequest(c.Request.Context(), id, actorID, role); err != nil {
		h.renderError(c, err)
		return
	}

	decisions, err := h.requestService.GetDecisions(c.Request.Context(), id)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: decisions})
}

// Decide handles POST /api/requests/:id/decision
func (h *Handlers) Decide(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var body DecisionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	actorID, _ := actorFrom(c)

	req, err := h.requestService.Decide(c.Request.Context(), id, actorID,
		workflow.DecisionStatus(body.Decision), body.Comments)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: req})
}

// CancelRequest handles POST /api/requests/:id/cancel
func (h *Handlers) CancelRequest(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var body CancelBody
	if err := c.ShouldBindJSON(&body); err != nil && err.Error() != "EOF" {
		h.badRequest(c, "invalid request body")
		return
	}

	actorID, role := actorFrom(c)

	req, err := h.requestService.Cancel(c.Request.Context(), id, actorID, role, body.Reason)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: req})
}

// UpdateAmount handles PATCH /api/requests/:id/amount
func (h *Handlers) UpdateAmount(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var body AmountBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	actorID, role := actorFrom(c)

	req, err := h.requestService.UpdateAmount(c.Request.Context(), id, actorID, role, body.AmountCents)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: req})
}

// MarkProcessing handles POST /api/requests/:id/process
func (h *Handlers) MarkProcessing(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	actorID, role := actorFrom(c)

	req, err := h.requestService.MarkProcessing(c.Request.Context(), id, actorID, role)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: req})
}

// ListPendingApprovals handles GET /api/approvals/pending
func (h *Handlers) ListPendingApprovals(c *gin.Context) {
	actorID, _ := actorFrom(c)

	pending, err := h.requestService.ListPendingApprovals(c.Request.Context(), actorID,
		queryInt(c, "limit", 20), queryInt(c, "offset", 0))
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: pending})
}

// ApproverHistory handles GET /api/approvals/history
func (h *Handlers) ApproverHistory(c *gin.Context) {
	actorID, _ := actorFrom(c)

	history, err := h.requestService.ListApproverHistory(c.Request.Context(), actorID,
		queryInt(c, "limit", 20), queryInt(c, "offset", 0))
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: history})
}

// BulkDecide handles POST /api/approvals/bulk
func (h *Handlers) BulkDecide(c *gin.Context) {
	var body BulkDecisionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	actorID, _ := actorFrom(c)

	results := h.requestService.BulkDecide(c.Request.Context(), body.RequestIDs, actorID,
		workflow.DecisionStatus(body.Decision), body.Comments)

	c.JSON(http.StatusOK, Response{Success: true, Data: results})
}

// ApproverStats handles GET /api/approvals/stats
func (h *Handlers) ApproverStats(c *gin.Context) {
	actorID, _ := actorFrom(c)

	stats, err := h.statsService.ApproverStats(c.Request.Context(), actorID, c.Query("period"))
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: stats})
}

// ListNotifications handles GET /api/notifications
func (h *Handlers) ListNotifications(c *gin.Context) {
	actorID, _ := actorFrom(c)
	unreadOnly := c.Query("unread") == "true"

	notifications, err := h.notificationService.ListNotifications(c.Request.Context(), actorID,
		unreadOnly, queryInt(c, "limit", 50))
	if err != nil {
		h.renderError(c, err)
		return
	}

	unread, err := h.notificationService.UnreadCount(c.Request.Context(), actorID)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{
		"notifications": notifications,
		"unread_count":  unread,
	}})
}

// MarkNotificationRead handles POST /api/notifications/:id/read
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	actorID, _ := actorFrom(c)

	if err := h.notificationService.MarkRead(c.Request.Context(), id, actorID); err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// MarkAllNotificationsRead handles POST /api/notifications/read-all
func (h *Handlers) MarkAllNotificationsRead(c *gin.Context) {
	actorID, _ := actorFrom(c)

	updated, err := h.notificationService.MarkAllRead(c.Request.Context(), actorID)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{"updated": updated}})
}

// renderError maps domain errors to HTTP status codes
func (h *Handlers) renderError(c *gin.Context, err error) {
	var status int
	switch {
	case errors.Is(err, workflow.ErrRequestNotFound):
		status = http.StatusNotFound
	case errors.Is(err, workflow.ErrAccessDenied),
		errors.Is(err, workflow.ErrNotAnApprover):
		status = http.StatusForbidden
	case errors.Is(err, workflow.ErrRequestAlreadyFinalized),
		errors.Is(err, workflow.ErrDecisionAlreadyMade),
		errors.Is(err, workflow.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, workflow.ErrNoApplicableWorkflow),
		errors.Is(err, workflow.ErrNoEligibleApprovers):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, workflow.ErrInvalidDecision):
		status = http.StatusBadRequest
	default:
		h.logger.Error("Unhandled service error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "internal server error",
		})
		return
	}

	c.JSON(status, Response{Success: false, Error: err.Error()})
}

func (h *Handlers) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: msg})
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid id"})
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
