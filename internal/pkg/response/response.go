package response

import (
	"fmt"

	"collections-console/internal/core/domain"

	"github.com/gofiber/fiber/v2"
)

// LoginPath is where the console sends staff whose session ended
const LoginPath = "/login"

// Response represents a standard API response
type Response struct {
	Success  bool        `json:"success"`
	Message  string      `json:"message,omitempty"`
	Data     interface{} `json:"data,omitempty"`
	Meta     interface{} `json:"meta,omitempty"`
	Error    string      `json:"error,omitempty"`
	Redirect string      `json:"redirect,omitempty"`
}

// Success sends a success response
func Success(c *fiber.Ctx, message string, data interface{}) error {
	return c.JSON(Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Paginated sends a success response with pagination metadata
func Paginated(c *fiber.Ctx, message string, data interface{}, meta interface{}) error {
	return c.JSON(Response{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    meta,
	})
}

// Created sends a 201 created response
func Created(c *fiber.Ctx, message string, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Accepted sends a 202 accepted response
func Accepted(c *fiber.Ctx, message string, data interface{}) error {
	return c.Status(fiber.StatusAccepted).JSON(Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Error sends an error response
func Error(c *fiber.Ctx, statusCode int, message string) error {
	return c.Status(statusCode).JSON(Response{
		Success: false,
		Error:   message,
	})
}

// BadRequest sends a 400 bad request response
func BadRequest(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusBadRequest, message)
}

// Unauthorized sends a 401 unauthorized response
func Unauthorized(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusUnauthorized, message)
}

// SessionExpired sends a 401 telling the console to go back to the login screen
func SessionExpired(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(Response{
		Success:  false,
		Error:    message,
		Redirect: LoginPath,
	})
}

// Forbidden sends a 403 forbidden response
func Forbidden(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusForbidden, message)
}

// NotFound sends a 404 not found response
func NotFound(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusNotFound, message)
}

// Conflict sends a 409 conflict response
func Conflict(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusConflict, message)
}

// InternalServerError sends a 500 internal server error response
func InternalServerError(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusInternalServerError, message)
}

// ServiceUnavailable sends a 503 with a retry prompt
func ServiceUnavailable(c *fiber.Ctx, message string) error {
	c.Set(fiber.HeaderRetryAfter, "5")
	return Error(c, fiber.StatusServiceUnavailable, message)
}

// Download streams an export as an attachment
func Download(c *fiber.Ctx, export *domain.Export) error {
	c.Set(fiber.HeaderContentType, export.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", export.Filename))
	return c.Send(export.Data)
}
