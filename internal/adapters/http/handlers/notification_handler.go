package handlers

import (
	"collections-console/internal/core/services"
	"collections-console/internal/pkg/pagination"
	"collections-console/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// NotificationHandler exposes the outbound message audit log
type NotificationHandler struct {
	notificationService *services.NotificationService
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

// List returns sent messages, newest first
// @Summary Notification log
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Param customerId query string false "Customer ID"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Response
// @Router /notifications [get]
func (h *NotificationHandler) List(c *fiber.Ctx) error {
	params := pagination.GetParams(c)
	entries, total, err := h.notificationService.History(c.Context(), c.Query("customerId"), params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to get notification log")
	}

	return response.Paginated(c, "", entries, pagination.GetMeta(params, total))
}
