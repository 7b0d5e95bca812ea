// Notification maintenance HTTP handlers.
//
// This file exposes the batch entry points around delivery:
//   - POST /notifications/send-pending  (re-schedule undelivered choices)
//   - POST /notifications/test          (send a test message through the webhook)
//   - PUT  /employees/:id/slack-id      (set an employee's recipient id)
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nikola-86/jelovnik/internal/notify"
	"github.com/nikola-86/jelovnik/internal/repo"
	"github.com/nikola-86/jelovnik/internal/utils"
)

// NotificationService defines the scanner operation consumed by the
// maintenance endpoint.
type NotificationService interface {
	// SendPending re-schedules up to limit undelivered meal choices.
	SendPending(ctx context.Context, limit int, force bool) (int, error)
}

// TestSender sends an arbitrary message through the outbound webhook.
type TestSender interface {
	SendTest(ctx context.Context, message string) error
}

// SendPendingRequest is the JSON payload of the send-pending endpoint. Zero
// values fall back to the configured defaults (limit 50, force false).
type SendPendingRequest struct {
	Limit int  `json:"limit"`
	Force bool `json:"force"`
}

// SendPendingResponse reports how many notification jobs were scheduled.
type SendPendingResponse struct {
	Dispatched int `json:"dispatched"`
}

// TestMessageRequest is the JSON payload of the webhook test endpoint.
type TestMessageRequest struct {
	Message string `json:"message" binding:"required"`
}

// UpdateSlackIDRequest is the JSON payload for setting an employee Slack ID.
type UpdateSlackIDRequest struct {
	SlackID string `json:"slack_id" binding:"required"`
}

// SendPendingNotifications handles POST /notifications/send-pending.
// Parameters come from "limit"/"force" query values or a JSON body (the body
// wins); an empty request applies the configured defaults.
func (h *Handlers) SendPendingNotifications(c *gin.Context) {
	req := SendPendingRequest{
		Limit: utils.AtoiDefault(c.Query("limit"), h.pendingLimit),
		Force: c.Query("force") == "true" || c.Query("force") == "1",
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
			return
		}
	}
	if req.Limit < 1 {
		req.Limit = h.pendingLimit
	}

	dispatched, err := h.notifSvc.SendPending(c.Request.Context(), req.Limit, req.Force)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeDispatchFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, SendPendingResponse{Dispatched: dispatched})
}

// TestNotification handles POST /notifications/test. It sends the given text
// straight through the webhook so operators can verify connectivity.
func (h *Handlers) TestNotification(c *gin.Context) {
	var req TestMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message is required")
		return
	}

	if err := h.testSender.SendTest(c.Request.Context(), req.Message); err != nil {
		if errors.Is(err, notify.ErrNotConfigured) {
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
			return
		}
		fail(c, http.StatusBadGateway, ErrCodeSendFailed, err.Error())
		return
	}
	noContent(c)
}

// UpdateEmployeeSlackID handles PUT /employees/:id/slack-id.
func (h *Handlers) UpdateEmployeeSlackID(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "employee id must be a UUID")
		return
	}

	var req UpdateSlackIDRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.SlackID) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "slack_id is required")
		return
	}

	if err := repo.UpdateEmployeeSlackID(c.Request.Context(), h.db, id, strings.TrimSpace(req.SlackID)); err != nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "employee not found")
		return
	}
	noContent(c)
}
