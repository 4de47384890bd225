package handlers

import (
	"errors"

	"collections-console/internal/adapters/http/middleware"
	"collections-console/internal/config"
	"collections-console/internal/core/services"
	"collections-console/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	sessionService *services.SessionService
	cfg            *config.Config
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(sessionService *services.SessionService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		sessionService: sessionService,
		cfg:            cfg,
	}
}

// LoginRequest represents login request body
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles staff login
// @Summary Login
// @Description Authenticate against the collections API and open a console session
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body LoginRequest true "Login credentials"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	result, err := h.sessionService.Login(c.Context(), services.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			return response.Unauthorized(c, "Invalid username or password")
		}
		return handleError(c, err, "Failed to sign in")
	}

	middleware.SetSessionCookie(c, h.cfg, result.Token)
	return response.Success(c, "Signed in", result)
}

// Logout ends the current session
// @Summary Logout
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if sess := middleware.SessionFrom(c); sess != nil {
		if err := h.sessionService.Logout(sess.ID); err != nil {
			return response.InternalServerError(c, "Failed to sign out")
		}
	}
	middleware.ClearSessionCookie(c, h.cfg)
	return response.Success(c, "Signed out", nil)
}

// Me returns the signed-in staff member
// @Summary Current user
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	sess := middleware.SessionFrom(c)
	return response.Success(c, "", sess.Profile())
}
