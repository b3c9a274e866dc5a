package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/carenest/models"
	"github.com/meinhoongagan/carenest/utils"
)

// RequireCapability rejects callers whose role lacks capability.
func RequireCapability(capability models.Capability) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !CurrentActor(c).Can(capability) {
			return c.Status(fiber.StatusForbidden).JSON(utils.ErrorResponse{
				Message: "You don't have permission to perform this action",
				Error:   "Forbidden",
			})
		}
		return c.Next()
	}
}

// RequireRole checks if the user has the required role
func RequireRole(role models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if CurrentActor(c).Role != role {
			return c.Status(fiber.StatusForbidden).JSON(utils.ErrorResponse{
				Message: "You don't have the required role to perform this action",
				Error:   "Forbidden",
			})
		}
		return c.Next()
	}
}
