package handler

import (
	"net/http"

	"github.com/dafibh/fortuna/ledger-backend/internal/domain"
	"github.com/dafibh/fortuna/ledger-backend/internal/service"
	"github.com/labstack/echo/v4"
)

// NotificationHandler serves the user's notification inbox
type NotificationHandler struct {
	notificationService *service.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notificationService *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// MarkAllReadResponse reports how many notifications changed
type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}

// GetNotifications handles GET /api/v1/notifications?unread=true, newest first
func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	userID, err := requireUser(c)
	if userID == 0 {
		return err
	}
	unreadOnly := c.QueryParam("unread") == "true"

	notifications, err := h.notificationService.List(c.Request().Context(), userID, unreadOnly)
	if err != nil {
		return handleServiceError(c, err, "list notifications")
	}
	if notifications == nil {
		notifications = []*domain.Notification{}
	}
	return c.JSON(http.StatusOK, notifications)
}

// MarkRead handles POST /api/v1/notifications/:id/read
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	userID, err := requireUser(c)
	if userID == 0 {
		return err
	}
	id, ok := parseID(c, "id")
	if !ok {
		return NewFieldError(c, "id", "Invalid notification ID")
	}

	n, err := h.notificationService.MarkRead(c.Request().Context(), userID, id)
	if err != nil {
		return handleServiceError(c, err, "mark notification read")
	}
	return c.JSON(http.StatusOK, n)
}

// MarkAllRead handles POST /api/v1/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	userID, err := requireUser(c)
	if userID == 0 {
		return err
	}

	updated, err := h.notificationService.MarkAllRead(c.Request().Context(), userID)
	if err != nil {
		return handleServiceError(c, err, "mark notifications read")
	}
	return c.JSON(http.StatusOK, MarkAllReadResponse{Updated: updated})
}

// DeleteNotification handles DELETE /api/v1/notifications/:id
func (h *NotificationHandler) DeleteNotification(c echo.Context) error {
	userID, err := requireUser(c)
	if userID == 0 {
		return err
	}
	id, ok := parseID(c, "id")
	if !ok {
		return NewFieldError(c, "id", "Invalid notification ID")
	}

	if err := h.notificationService.Delete(c.Request().Context(), userID, id); err != nil {
		return handleServiceError(c, err, "delete notification")
	}
	return c.NoContent(http.StatusNoContent)
}
