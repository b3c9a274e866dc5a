package middleware

import (
	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v3"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"github.com/meinhoongagan/carenest/config"
	"github.com/meinhoongagan/carenest/models"
	"github.com/meinhoongagan/carenest/services"
	"github.com/meinhoongagan/carenest/utils"
)

// Protected validates the bearer token and stores userID and role in locals.
func Protected() fiber.Handler {
	return ProtectedWith(config.Get().JWTSecret)
}

// ProtectedWith is Protected with an explicit signing secret.
func ProtectedWith(secret string) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:   []byte(secret),
		ErrorHandler: jwtError,
		SuccessHandler: func(c *fiber.Ctx) error {
			token, ok := c.Locals("user").(*jwt.Token)
			if !ok {
				return unauthorized(c, "Invalid token")
			}
			mapClaims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				return unauthorized(c, "Invalid token claims")
			}
			if typ, _ := mapClaims["typ"].(string); typ == "refresh" {
				return unauthorized(c, "Refresh tokens cannot be used for access")
			}
			claims, err := utils.ClaimsFromMap(mapClaims)
			if err != nil {
				zap.L().Debug("rejecting token", zap.Error(err))
				return unauthorized(c, "Invalid token claims")
			}

			c.Locals("userID", claims.UserID)
			c.Locals("role", claims.Role)
			return c.Next()
		},
	})
}

// CurrentActor returns the caller identity set by Protected.
func CurrentActor(c *fiber.Ctx) services.Actor {
	id, _ := c.Locals("userID").(uint)
	role, _ := c.Locals("role").(models.Role)
	return services.Actor{ID: id, Role: role}
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(utils.ErrorResponse{
		Message: message,
		Error:   "Unauthorized",
	})
}

// jwtError handles JWT errors
func jwtError(c *fiber.Ctx, err error) error {
	return unauthorized(c, "Invalid or expired token")
}
