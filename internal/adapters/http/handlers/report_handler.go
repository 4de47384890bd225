package handlers

import (
	"collections-console/internal/adapters/http/middleware"
	"collections-console/internal/core/services"
	"collections-console/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// ReportHandler handles report endpoints
type ReportHandler struct {
	reportService *services.ReportService
}

// NewReportHandler creates a new report handler
func NewReportHandler(reportService *services.ReportService) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
	}
}

// Summary returns collection aggregates
// @Summary Report summary
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD"
// @Success 200 {object} response.Response
// @Router /reports/summary [get]
func (h *ReportHandler) Summary(c *fiber.Ctx) error {
	summary, err := h.reportService.Summary(c.Context(), middleware.SessionFrom(c), c.Query("from"), c.Query("to"))
	if err != nil {
		return handleError(c, err, "Failed to get report")
	}

	return response.Success(c, "", summary)
}

// Export downloads a report (Supervisor/Admin)
// @Summary Export report
// @Tags Reports
// @Produce octet-stream
// @Security BearerAuth
// @Param type query string false "collections, arrears, transactions or agents"
// @Param format query string false "csv or pdf"
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD"
// @Success 200 {file} file
// @Failure 403 {object} response.Response
// @Router /reports/export [get]
func (h *ReportHandler) Export(c *fiber.Ctx) error {
	export, err := h.reportService.Export(c.Context(), middleware.SessionFrom(c), c.Query("type"), c.Query("from"), c.Query("to"), c.Query("format"))
	if err != nil {
		return handleError(c, err, "Failed to export report")
	}

	return response.Download(c, export)
}
