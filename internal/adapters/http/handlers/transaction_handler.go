package handlers

import (
	"collections-console/internal/adapters/http/middleware"
	"collections-console/internal/adapters/upstream"
	"collections-console/internal/core/domain"
	"collections-console/internal/core/services"
	"collections-console/internal/pkg/pagination"
	"collections-console/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// TransactionHandler handles transaction endpoints
type TransactionHandler struct {
	transactionService *services.TransactionService
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(transactionService *services.TransactionService) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
	}
}

func transactionQuery(c *fiber.Ctx, params *pagination.Params) upstream.TransactionQuery {
	return upstream.TransactionQuery{
		Status:     domain.TransactionStatus(c.Query("status")),
		CustomerID: c.Query("customerId"),
		From:       c.Query("from"),
		To:         c.Query("to"),
		Page:       params.Page,
		Limit:      params.Limit,
	}
}

// List returns a page of transactions
// @Summary List transactions
// @Tags Transactions
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending, success, failed, expired or cancelled"
// @Param customerId query string false "Customer ID"
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /transactions [get]
func (h *TransactionHandler) List(c *fiber.Ctx) error {
	params := pagination.GetParams(c)
	page, err := h.transactionService.List(c.Context(), middleware.SessionFrom(c), transactionQuery(c, params))
	if err != nil {
		return handleError(c, err, "Failed to get transactions")
	}

	return response.Paginated(c, "", page.Items, pagination.GetMeta(params, page.Total))
}

// Export downloads the filtered transactions
// @Summary Export transactions
// @Tags Transactions
// @Produce octet-stream
// @Security BearerAuth
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /transactions/export [get]
func (h *TransactionHandler) Export(c *fiber.Ctx) error {
	export, err := h.transactionService.Export(c.Context(), middleware.SessionFrom(c), transactionQuery(c, pagination.GetParams(c)), c.Query("format"))
	if err != nil {
		return handleError(c, err, "Failed to export transactions")
	}

	return response.Download(c, export)
}
