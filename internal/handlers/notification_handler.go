package handlers

import (
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/catalog-cases/internal/dto"
	"github.com/ahmetcoskunkizilkaya/catalog-cases/internal/identity"
	"github.com/ahmetcoskunkizilkaya/catalog-cases/internal/notify"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type NotificationHandler struct {
	store *notify.Store
}

func NewNotificationHandler(store *notify.Store) *NotificationHandler {
	return &NotificationHandler{store: store}
}

func (h *NotificationHandler) List(c *fiber.Ctx) error {
	caller, ok := identity.Get(c)
	if !ok {
		return unauthorized(c)
	}
	limit := c.QueryInt("limit", 20)
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	rows, unread, err := h.store.List(c.UserContext(), caller.UserID, limit, offset)
	if err != nil {
		slog.Error("list notifications failed", "error", err, "user_id", caller.UserID.String())
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to fetch notifications",
		})
	}

	return c.JSON(fiber.Map{
		"notifications": rows,
		"unread":        unread,
		"limit":         limit,
		"offset":        offset,
	})
}

func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	caller, ok := identity.Get(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid notification ID")
	}

	found, err := h.store.MarkRead(c.UserContext(), caller.UserID, id)
	if err != nil {
		slog.Error("mark notification read failed", "error", err, "user_id", caller.UserID.String())
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to update notification",
		})
	}
	if !found {
		return notFound(c, "Notification not found")
	}
	return c.JSON(fiber.Map{"message": "Notification marked as read"})
}

func (h *NotificationHandler) MarkAllRead(c *fiber.Ctx) error {
	caller, ok := identity.Get(c)
	if !ok {
		return unauthorized(c)
	}

	updated, err := h.store.MarkAllRead(c.UserContext(), caller.UserID)
	if err != nil {
		slog.Error("mark all notifications read failed", "error", err, "user_id", caller.UserID.String())
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to update notifications",
		})
	}
	return c.JSON(fiber.Map{"updated": updated})
}
