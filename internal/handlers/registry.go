package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/pixveil/pixveil/internal/events"
	"github.com/pixveil/pixveil/internal/models"
	"github.com/pixveil/pixveil/internal/presence"
)

// Register creates a durable identity for a username
func (h *Handler) Register(c *fiber.Ctx) error {
	if h.requireLeader(c) {
		return nil
	}

	var req models.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
	}

	if req.Username == "" || req.Addr == "" {
		return errorJSON(c, fiber.StatusBadRequest, "INVALID_BODY", "username and addr are required")
	}

	recordID, err := h.registry.Register(c.UserContext(), req.Username, req.Addr, req.SampleImages)
	if err != nil {
		if errors.Is(err, presence.ErrAlreadyExists) {
			return errorJSON(c, fiber.StatusConflict, "ALREADY_EXISTS", "Username already registered")
		}
		h.logger.Error("Registration failed", "username", req.Username, "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "INTERNAL", "Registration failed")
	}

	h.logger.Info("User registered",
		"username", req.Username,
		"addr", req.Addr,
		"previews", len(req.SampleImages),
	)

	events.Emit(c.UserContext(), h.bus, h.logger, events.Event{
		Subject: events.SubjectRegistered,
		Actor:   req.Username,
	})

	return c.Status(fiber.StatusCreated).JSON(models.RegisterResponse{
		Status:   "registered",
		RecordID: recordID,
	})
}

// Heartbeat refreshes a user's presence entry
func (h *Handler) Heartbeat(c *fiber.Ctx) error {
	if h.requireLeader(c) {
		return nil
	}

	var req models.HeartbeatRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
	}

	if req.Username == "" {
		return errorJSON(c, fiber.StatusBadRequest, "INVALID_BODY", "username is required")
	}

	lastSeen := h.registry.Heartbeat(req.Username, req.Addr)

	return c.JSON(models.HeartbeatResponse{
		Status:   "ok",
		LastSeen: lastSeen.UTC().Format(time.RFC3339),
	})
}

// Users lists the durable identity set
func (h *Handler) Users(c *fiber.Ctx) error {
	if h.requireLeader(c) {
		return nil
	}

	identities := h.registry.Registered()

	users := make([]models.UserResponse, 0, len(identities))
	for _, id := range identities {
		users = append(users, models.UserResponse{
			Username:     id.Username,
			Addr:         id.Addr,
			RegisteredAt: id.RegisteredAt.Format(time.RFC3339),
			SampleImages: id.SampleImages,
		})
	}

	return c.JSON(models.UserListResponse{
		Users: users,
		Count: len(users),
	})
}

// Discover lists the currently-online peers with their preview assets
func (h *Handler) Discover(c *fiber.Ctx) error {
	if h.requireLeader(c) {
		return nil
	}

	online := h.registry.Online()

	out := make([]models.OnlineUserResponse, 0, len(online))
	for _, u := range online {
		out = append(out, models.OnlineUserResponse{
			Username:     u.Username,
			Addr:         u.Addr,
			LastSeen:     u.LastSeen.UTC().Format(time.RFC3339),
			Registered:   u.Registered,
			SampleImages: u.SampleImages,
		})
	}

	return c.JSON(models.DiscoveryResponse{
		Online: out,
		Count:  len(out),
	})
}

// DebugPresence dumps the raw presence table, including entries past
// their TTL
func (h *Handler) DebugPresence(c *fiber.Ctx) error {
	now := time.Now()
	ttl := h.registry.TTL()

	entries := h.registry.Snapshot()
	out := make([]models.PresenceDebugEntry, 0, len(entries))
	for _, e := range entries {
		elapsed := now.Sub(e.LastSeen)
		out = append(out, models.PresenceDebugEntry{
			Username:   e.Username,
			Addr:       e.Addr,
			LastSeen:   e.LastSeen.UTC().Format(time.RFC3339),
			ElapsedSec: elapsed.Seconds(),
			Online:     elapsed < ttl,
		})
	}

	return c.JSON(models.PresenceDebugResponse{
		Entries: out,
		TTLSec:  ttl.Seconds(),
	})
}
