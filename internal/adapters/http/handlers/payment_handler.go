package handlers

import (
	"collections-console/internal/adapters/http/middleware"
	"collections-console/internal/core/services"
	"collections-console/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// PaymentHandler handles payment endpoints
type PaymentHandler struct {
	paymentService *services.PaymentService
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(paymentService *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// Initiate sends an M-Pesa payment prompt
// @Summary Initiate payment
// @Description Validates the phone (254XXXXXXXXX) and amount, then asks the payment backend for an M-Pesa prompt
// @Tags Payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.PaymentInput true "Payment"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /payments/initiate [post]
func (h *PaymentHandler) Initiate(c *fiber.Ctx) error {
	var req services.PaymentInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	result, err := h.paymentService.Initiate(c.Context(), middleware.SessionFrom(c), req)
	if err != nil {
		return handleError(c, err, "Failed to initiate payment")
	}

	return response.Success(c, "Payment request sent", result)
}

// SendReceipt messages a customer about a completed payment
// @Summary Send receipt
// @Tags Payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.ReceiptInput true "Receipt"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /payments/receipt [post]
func (h *PaymentHandler) SendReceipt(c *fiber.Ctx) error {
	var req services.ReceiptInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.paymentService.SendReceipt(c.Context(), middleware.SessionFrom(c), req); err != nil {
		return handleError(c, err, "Failed to send receipt")
	}

	return response.Success(c, "Receipt sent", nil)
}
