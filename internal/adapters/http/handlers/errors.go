package handlers

import (
	"errors"
	"strings"

	"collections-console/internal/core/domain"
	"collections-console/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// handleError maps service errors onto responses. Authentication failures
// are returned unchanged for the global error handler to end the session.
func handleError(c *fiber.Ctx, err error, fallback string) error {
	var apiErr *domain.APIError
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return err
	case errors.Is(err, domain.ErrValidation):
		return response.BadRequest(c, validationMessage(err))
	case errors.As(err, &apiErr):
		status := apiErr.StatusCode
		if status < 400 {
			status = fiber.StatusBadGateway
		}
		return response.Error(c, status, apiErr.Message)
	case errors.Is(err, domain.ErrUnreachable):
		return response.ServiceUnavailable(c, "The collections server is unreachable. Please retry.")
	case errors.Is(err, domain.ErrForbidden):
		return response.Forbidden(c, "You don't have permission to access this resource")
	default:
		return response.InternalServerError(c, fallback)
	}
}

// validationMessage strips the "validation failed: " prefix
func validationMessage(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, ": "); i >= 0 && strings.HasPrefix(msg, domain.ErrValidation.Error()) {
		return msg[i+2:]
	}
	return msg
}
