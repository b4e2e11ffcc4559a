package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pixveil/pixveil/internal/access"
	"github.com/pixveil/pixveil/internal/cluster"
	"github.com/pixveil/pixveil/internal/events"
	"github.com/pixveil/pixveil/internal/logging"
	"github.com/pixveil/pixveil/internal/models"
	"github.com/pixveil/pixveil/internal/presence"
)

// Version is the reported service version
const Version = "1.0.0"

// Handler contains all HTTP handlers
type Handler struct {
	logger     *logging.Logger
	registry   *presence.Registry
	access     *access.Manager
	leadership cluster.Leadership
	bus        events.Bus
}

// New creates a new handler instance
func New(logger *logging.Logger, registry *presence.Registry, accessManager *access.Manager,
	leadership cluster.Leadership, bus events.Bus,
) *Handler {
	return &Handler{
		logger:     logger,
		registry:   registry,
		access:     accessManager,
		leadership: leadership,
		bus:        bus,
	}
}

// requireLeader refuses the request on non-leaders with the canonical
// NOT_LEADER envelope carrying the last known leader. Returns true when
// the caller should stop.
func (h *Handler) requireLeader(c *fiber.Ctx) bool {
	if h.leadership.IsLeader() {
		return false
	}

	details := map[string]interface{}{}
	if leader := h.leadership.Status().Leader; leader != "" {
		details["leader"] = leader
	}

	_ = c.Status(fiber.StatusForbidden).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    "NOT_LEADER",
			Message: "This node is not the leader",
			Path:    c.Path(),
			Details: details,
		},
	})
	return true
}

// errorJSON writes a standard error envelope
func errorJSON(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    code,
			Message: message,
			Path:    c.Path(),
		},
	})
}
