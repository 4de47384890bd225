package handlers

import (
	"collections-console/internal/adapters/http/middleware"
	"collections-console/internal/adapters/upstream"
	"collections-console/internal/core/services"
	"collections-console/internal/pkg/pagination"
	"collections-console/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

// customerID copies the :id route param out of the request buffer, which
// fasthttp reuses once the handler returns
func customerID(c *fiber.Ctx) string {
	return utils.CopyString(c.Params("id"))
}

// CustomerHandler handles customer endpoints
type CustomerHandler struct {
	customerService *services.CustomerService
}

// NewCustomerHandler creates a new customer handler
func NewCustomerHandler(customerService *services.CustomerService) *CustomerHandler {
	return &CustomerHandler{
		customerService: customerService,
	}
}

// CommentRequest represents a new follow-up comment
type CommentRequest struct {
	Text string `json:"text"`
	Type string `json:"type"`
}

// List returns a page of customers
// @Summary List customers
// @Tags Customers
// @Produce json
// @Security BearerAuth
// @Param search query string false "Name, phone or id"
// @Param status query string false "Account status"
// @Param inArrears query bool false "Only customers in arrears"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Response
// @Router /customers [get]
func (h *CustomerHandler) List(c *fiber.Ctx) error {
	params := pagination.GetParams(c)
	page, err := h.customerService.List(c.Context(), middleware.SessionFrom(c), upstream.CustomerQuery{
		Search:    c.Query("search"),
		Status:    c.Query("status"),
		InArrears: c.QueryBool("inArrears"),
		Page:      params.Page,
		Limit:     params.Limit,
	})
	if err != nil {
		return handleError(c, err, "Failed to get customers")
	}

	return response.Paginated(c, "", page.Items, pagination.GetMeta(params, page.Total))
}

// Details returns a customer with their comment history
// @Summary Customer details
// @Description Loads the customer, syncs locally pending comments, then loads the comment history
// @Tags Customers
// @Produce json
// @Security BearerAuth
// @Param id path string true "Customer ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /customers/{id} [get]
func (h *CustomerHandler) Details(c *fiber.Ctx) error {
	details, err := h.customerService.Details(c.Context(), middleware.SessionFrom(c), customerID(c))
	if err != nil {
		return handleError(c, err, "Failed to get customer")
	}

	return response.Success(c, "", details)
}

// Comments reloads the comment history
// @Summary Customer comments
// @Description Server history when reachable, cached history otherwise
// @Tags Customers
// @Produce json
// @Security BearerAuth
// @Param id path string true "Customer ID"
// @Success 200 {object} response.Response
// @Router /customers/{id}/comments [get]
func (h *CustomerHandler) Comments(c *fiber.Ctx) error {
	view := h.customerService.Comments(c.Context(), middleware.SessionFrom(c), customerID(c))
	return response.Success(c, "", view)
}

// AddComment records a follow-up comment
// @Summary Add comment
// @Description Saved on the server when reachable, kept locally as pending otherwise
// @Tags Customers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Customer ID"
// @Param body body CommentRequest true "Comment"
// @Success 201 {object} response.Response
// @Success 202 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /customers/{id}/comments [post]
func (h *CustomerHandler) AddComment(c *fiber.Ctx) error {
	var req CommentRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	saved, view, err := h.customerService.AddComment(c.Context(), middleware.SessionFrom(c), customerID(c), req.Text, req.Type)
	if err != nil {
		return handleError(c, err, "Failed to save comment")
	}

	data := fiber.Map{"comment": saved, "history": view}
	if saved.LocallyPersisted() {
		return response.Accepted(c, services.NoticeSavedLocally, data)
	}
	return response.Created(c, "Comment saved", data)
}

// Reconcile pushes locally pending comments now
// @Summary Sync pending comments
// @Tags Customers
// @Produce json
// @Security BearerAuth
// @Param id path string true "Customer ID"
// @Param force query bool false "Include entries past the retry cap"
// @Success 200 {object} response.Response
// @Router /customers/{id}/comments/reconcile [post]
func (h *CustomerHandler) Reconcile(c *fiber.Ctx) error {
	result, view, err := h.customerService.Reconcile(c.Context(), middleware.SessionFrom(c), customerID(c), c.QueryBool("force"))
	if err != nil {
		return handleError(c, err, "Failed to sync comments")
	}

	return response.Success(c, "", fiber.Map{"result": result, "history": view})
}

// Statement downloads a customer statement
// @Summary Customer statement
// @Tags Customers
// @Produce octet-stream
// @Security BearerAuth
// @Param id path string true "Customer ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /customers/{id}/statement [get]
func (h *CustomerHandler) Statement(c *fiber.Ctx) error {
	export, err := h.customerService.Statement(c.Context(), middleware.SessionFrom(c), customerID(c), c.Query("format"))
	if err != nil {
		return handleError(c, err, "Failed to download statement")
	}

	return response.Download(c, export)
}
