package handlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/pixveil/pixveil/internal/access"
	"github.com/pixveil/pixveil/internal/events"
	"github.com/pixveil/pixveil/internal/models"
)

// RequestAccess creates a photo-access request from :requester to an owner
func (h *Handler) RequestAccess(c *fiber.Ctx) error {
	if h.requireLeader(c) {
		return nil
	}

	requester := c.Params("requester")

	var req models.PhotoRequestBody
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
	}

	if req.Owner == "" || req.PhotoID == "" {
		return errorJSON(c, fiber.StatusBadRequest, "INVALID_BODY", "owner and photo_id are required")
	}

	requestID, err := h.access.CreateRequest(c.UserContext(), requester, req.Owner, req.PhotoID, req.Message)
	if err != nil {
		h.logger.Error("Failed to create access request",
			"requester", requester,
			"owner", req.Owner,
			"error", err,
		)
		return errorJSON(c, fiber.StatusInternalServerError, "INTERNAL", "Failed to create request")
	}

	h.logger.Info("Access requested",
		"requester", requester,
		"owner", req.Owner,
		"photo_id", req.PhotoID,
		"request_id", requestID,
	)

	events.Emit(c.UserContext(), h.bus, h.logger, events.Event{
		Subject:   events.SubjectRequested,
		Actor:     requester,
		Target:    req.Owner,
		RequestID: requestID,
		PhotoID:   req.PhotoID,
	})

	return c.Status(fiber.StatusCreated).JSON(models.PhotoRequestResponse{
		Status:    "pending",
		RequestID: requestID,
	})
}

// PendingRequests lists the :owner's pending request queue
func (h *Handler) PendingRequests(c *fiber.Ctx) error {
	if h.requireLeader(c) {
		return nil
	}

	owner := c.Params("owner")
	pending := h.access.Pending(owner)

	out := make([]models.PendingRequestResponse, 0, len(pending))
	for _, req := range pending {
		out = append(out, models.PendingRequestResponse{
			RequestID: req.RequestID,
			Requester: req.Requester,
			PhotoID:   req.PhotoID,
			Message:   req.Message,
			CreatedAt: req.CreatedAt.Format(time.RFC3339),
		})
	}

	return c.JSON(models.PendingListResponse{
		Requests: out,
		Count:    len(out),
	})
}

// Decide approves or denies a pending request as :owner
func (h *Handler) Decide(c *fiber.Ctx) error {
	if h.requireLeader(c) {
		return nil
	}

	owner := c.Params("owner")

	var req models.ApprovalRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
	}

	if req.RequestID == "" {
		return errorJSON(c, fiber.StatusBadRequest, "INVALID_BODY", "request_id is required")
	}

	if !req.Approved {
		if err := h.access.Deny(c.UserContext(), owner, req.RequestID); err != nil {
			if errors.Is(err, access.ErrNotFound) {
				return errorJSON(c, fiber.StatusNotFound, "NOT_FOUND", "Request not found")
			}
			return errorJSON(c, fiber.StatusInternalServerError, "INTERNAL", "Failed to deny request")
		}

		h.logger.Info("Access denied", "owner", owner, "request_id", req.RequestID)

		events.Emit(c.UserContext(), h.bus, h.logger, events.Event{
			Subject:   events.SubjectDenied,
			Actor:     owner,
			RequestID: req.RequestID,
		})

		return c.JSON(models.ApprovalResponse{
			Status:    "denied",
			RequestID: req.RequestID,
		})
	}

	maxViews := req.MaxViews
	if maxViews == 0 {
		maxViews = 1
	}

	grant, err := h.access.Approve(c.UserContext(), owner, req.RequestID, maxViews, req.ExpiryHours)
	if err != nil {
		switch {
		case errors.Is(err, access.ErrNotFound):
			return errorJSON(c, fiber.StatusNotFound, "NOT_FOUND", "Request not found")
		case errors.Is(err, access.ErrInvalidMaxViews):
			return errorJSON(c, fiber.StatusBadRequest, "INVALID_BODY", "max_views must be at least 1")
		default:
			return errorJSON(c, fiber.StatusInternalServerError, "INTERNAL", "Failed to approve request")
		}
	}

	h.logger.Info("Access approved",
		"owner", owner,
		"requester", grant.Requester,
		"request_id", grant.RequestID,
		"max_views", grant.MaxViews,
	)

	events.Emit(c.UserContext(), h.bus, h.logger, events.Event{
		Subject:   events.SubjectApproved,
		Actor:     owner,
		Target:    grant.Requester,
		RequestID: grant.RequestID,
		PhotoID:   grant.PhotoID,
	})

	resp := models.ApprovalResponse{
		Status:    "approved",
		RequestID: grant.RequestID,
		MaxViews:  grant.MaxViews,
	}
	if grant.ExpiresAt != nil {
		resp.ExpiresAt = grant.ExpiresAt.Format(time.RFC3339)
	}
	return c.JSON(resp)
}

// View consumes one view from :requester's grant and returns the photo
func (h *Handler) View(c *fiber.Ctx) error {
	if h.requireLeader(c) {
		return nil
	}

	requester := c.Params("requester")

	var req models.ViewRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
	}

	result, err := h.access.Consume(c.UserContext(), requester, req.RequestID)
	if err != nil {
		if errors.Is(err, access.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(models.ViewPhotoResponse{
				Success: false,
				Message: "Request not found",
			})
		}
		return errorJSON(c, fiber.StatusInternalServerError, "INTERNAL", "View failed")
	}

	if !result.Granted {
		switch result.Reason {
		case access.ReasonExpired:
			return c.Status(fiber.StatusGone).JSON(models.ViewPhotoResponse{
				Success: false,
				Message: "Access expired",
			})
		default:
			return c.Status(fiber.StatusForbidden).JSON(models.ViewPhotoResponse{
				Success: false,
				Message: "View limit exceeded",
			})
		}
	}

	grant := result.Grant

	// The photo is one of the owner's registered images, addressed by
	// index. The consumed view stands even if the image is missing.
	owner, ok := h.registry.Lookup(grant.Owner)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(models.ViewPhotoResponse{
			Success:        false,
			ViewsRemaining: result.ViewsRemaining,
			Message:        "Owner not found",
		})
	}

	photoIndex, err := strconv.Atoi(grant.PhotoID)
	if err != nil {
		photoIndex = 0
	}
	if photoIndex < 0 || photoIndex >= len(owner.SampleImages) {
		return c.Status(fiber.StatusNotFound).JSON(models.ViewPhotoResponse{
			Success:        false,
			ViewsRemaining: result.ViewsRemaining,
			Message:        "Photo not found",
		})
	}

	h.logger.Info("Photo viewed",
		"requester", requester,
		"owner", grant.Owner,
		"request_id", grant.RequestID,
		"views_used", grant.ViewsUsed,
		"max_views", grant.MaxViews,
	)

	events.Emit(c.UserContext(), h.bus, h.logger, events.Event{
		Subject:   events.SubjectViewed,
		Actor:     requester,
		Target:    grant.Owner,
		RequestID: grant.RequestID,
		PhotoID:   grant.PhotoID,
	})

	return c.JSON(models.ViewPhotoResponse{
		Success:        true,
		ImageData:      owner.SampleImages[photoIndex],
		ViewsRemaining: result.ViewsRemaining,
	})
}

// Grants lists :requester's grant projections
func (h *Handler) Grants(c *fiber.Ctx) error {
	if h.requireLeader(c) {
		return nil
	}

	requester := c.Params("requester")
	grants := h.access.Grants(requester)

	out := make([]models.GrantResponse, 0, len(grants))
	for _, g := range grants {
		resp := models.GrantResponse{
			RequestID:      g.RequestID,
			Owner:          g.Owner,
			PhotoID:        g.PhotoID,
			MaxViews:       g.MaxViews,
			ViewsUsed:      g.ViewsUsed,
			ViewsRemaining: g.ViewsRemaining,
			IsExpired:      g.IsExpired,
			CanView:        g.CanView,
		}
		if g.ExpiresAt != nil {
			resp.ExpiresAt = g.ExpiresAt.Format(time.RFC3339)
		}
		out = append(out, resp)
	}

	return c.JSON(models.GrantListResponse{
		Grants: out,
		Count:  len(out),
	})
}
