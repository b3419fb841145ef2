package middleware

import (
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/catalog-cases/internal/dto"
	"github.com/ahmetcoskunkizilkaya/catalog-cases/internal/identity"
	"github.com/gofiber/fiber/v2"
)

// Identify resolves the caller behind a verified token and stores it in
// locals. It must run after JWTProtected.
func Identify(resolver *identity.Resolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := resolver.Resolve(c)
		if err != nil {
			if errors.Is(err, identity.ErrUnauthenticated) || errors.Is(err, identity.ErrUnknownUser) {
				return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
					Error: true, Code: "unauthenticated", Message: "Unauthorized",
				})
			}
			slog.Error("identity lookup failed", "error", err, "path", c.Path())
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
				Error: true, Message: "Internal server error",
			})
		}
		identity.Set(c, id)
		return c.Next()
	}
}

// ModeratorRequired rejects callers that are neither moderator nor admin.
func ModeratorRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := identity.Get(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Code: "unauthenticated", Message: "Unauthorized",
			})
		}
		if !id.Privileged() {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Error: true, Code: "forbidden", Message: "Moderator access required",
			})
		}
		return c.Next()
	}
}
