package handlers

import (
	"collections-console/internal/adapters/http/middleware"
	"collections-console/internal/core/services"
	"collections-console/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// DashboardHandler handles dashboard endpoints
type DashboardHandler struct {
	dashboardService *services.DashboardService
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboardService *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
	}
}

// GetDashboard returns portfolio stats and recent transactions
// @Summary Dashboard
// @Description Portfolio statistics and recent transactions. Each part reports its own error.
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /dashboard [get]
func (h *DashboardHandler) GetDashboard(c *fiber.Ctx) error {
	data, err := h.dashboardService.GetDashboard(c.Context(), middleware.SessionFrom(c))
	if err != nil {
		return handleError(c, err, "Failed to get dashboard")
	}

	return response.Success(c, "Dashboard retrieved successfully", data)
}
