package middleware

import (
	"github.com/ahmetcoskunkizilkaya/catalog-cases/internal/config"
	"github.com/ahmetcoskunkizilkaya/catalog-cases/internal/dto"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
)

// JWTProtected verifies the bearer token issued by the identity provider.
func JWTProtected(cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{Key: []byte(cfg.JWTSecret)},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error:   true,
				Code:    "unauthenticated",
				Message: "Unauthorized: invalid or expired token",
			})
		},
	})
}
