package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/pixveil/pixveil/internal/cluster"
	"github.com/pixveil/pixveil/internal/models"
)

// Status reports node role and cluster view. Never leader-gated: any node
// answers so clients can find the leader.
func (h *Handler) Status(c *fiber.Ctx) error {
	status := h.leadership.Status()

	return c.JSON(models.StatusResponse{
		Status:        "running",
		IsLeader:      status.Role == cluster.RoleLeader,
		CurrentLeader: status.Leader,
		Term:          status.Term,
		OnlineCount:   h.registry.OnlineCount(),
	})
}

// Health handles health check requests
func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
		Version:   Version,
	})
}

// NotFound handles 404 errors
func (h *Handler) NotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    "NOT_FOUND",
			Message: "Route not found",
			Path:    c.Path(),
		},
	})
}
