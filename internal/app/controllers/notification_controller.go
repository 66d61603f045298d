package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yigit/unihousing/internal/app/services"
	"github.com/yigit/unihousing/internal/middleware"
	"github.com/yigit/unihousing/internal/pkg/websocket"
)

// NotificationController serves a user's notifications and the live stream
type NotificationController struct {
	notifications *services.NotificationService
	hub           *websocket.Hub
	logger        zerolog.Logger
}

// NewNotificationController creates a new NotificationController
func NewNotificationController(notifications *services.NotificationService, hub *websocket.Hub, logger zerolog.Logger) *NotificationController {
	return &NotificationController{notifications: notifications, hub: hub, logger: logger}
}

// ListNotifications returns the caller's notifications, newest first
// @Summary List my notifications
// @Tags notifications
// @Produce json
// @Param unread query bool false "Only unread notifications"
// @Success 200 {object} dto.APIResponse{data=[]models.Notification}
// @Router /notifications [get]
func (c *NotificationController) ListNotifications(ctx *gin.Context) {
	userID, ok := requester(ctx, ctx.Query("requesterId"))
	if !ok {
		return
	}
	notes, err := c.notifications.ListForUser(ctx.Request.Context(), userID, ctx.Query("unread") == "true")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, notes)
}

// MarkRead marks one of the caller's notifications read
// @Summary Mark a notification read
// @Tags notifications
// @Param id path string true "Notification id"
// @Success 200 {object} dto.APIResponse{data=models.Notification}
// @Failure 404 {object} dto.APIResponse "Notification not found"
// @Router /notifications/{id}/read [patch]
func (c *NotificationController) MarkRead(ctx *gin.Context) {
	userID, ok := requester(ctx, ctx.Query("requesterId"))
	if !ok {
		return
	}
	note, err := c.notifications.MarkRead(ctx.Request.Context(), userID, ctx.Param("id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, note)
}

// Stream upgrades to a websocket that receives the caller's notifications.
// Browsers cannot set headers on websocket requests, so requesterId may come
// from the query.
func (c *NotificationController) Stream(ctx *gin.Context) {
	userID, ok := requester(ctx, ctx.Query("requesterId"))
	if !ok {
		return
	}
	if err := c.notifications.CheckRecipient(ctx.Request.Context(), userID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	if err := c.hub.ServeWS(ctx.Writer, ctx.Request, userID); err != nil {
		c.logger.Warn().Err(err).Str("userID", userID).Msg("Notification stream not opened")
		if err == websocket.ErrHubStopped {
			ctx.Status(http.StatusServiceUnavailable)
		}
	}
}
