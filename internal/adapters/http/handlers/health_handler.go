package handlers

import (
	"errors"

	"collections-console/internal/config"

	"github.com/gofiber/fiber/v2"
)

// Pinger reports whether a dependency is usable
type Pinger interface {
	Ping() error
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	store   Pinger
	cfg     *config.Config
	checkDB func() error
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store Pinger, cfg *config.Config) *HealthHandler {
	return &HealthHandler{store: store, cfg: cfg, checkDB: config.HealthCheck}
}

// Root handles root endpoint
// @Summary Root endpoint
// @Description Returns API status
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *HealthHandler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "running",
		"message": "🚀 Collections Console API v1.0 is running",
		"mode":    h.cfg.AppMode,
		"docs":    "/swagger/index.html",
	})
}

// HealthCheck handles health check
// @Summary Health check
// @Description Check local store and audit database health
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *fiber.Ctx) error {
	status := fiber.StatusOK

	storeStatus := "healthy"
	if err := h.store.Ping(); err != nil {
		storeStatus = "unhealthy"
		status = fiber.StatusServiceUnavailable
	}

	dbStatus := "healthy"
	if err := h.checkDB(); err != nil {
		if errors.Is(err, config.ErrDatabaseDisabled) {
			dbStatus = "disabled"
		} else {
			dbStatus = "unhealthy"
		}
	}

	overall := "ok"
	if status != fiber.StatusOK {
		overall = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"api":      "healthy",
			"store":    storeStatus,
			"database": dbStatus,
		},
	})
}

// APIInfo handles API v1 info
// @Summary API v1 Info
// @Description Returns API v1 information
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1 [get]
func (h *HealthHandler) APIInfo(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "Collections Console API v1.0",
		"version": "1.0.0",
	})
}
