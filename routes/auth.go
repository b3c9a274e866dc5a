package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/carenest/controllers"
	"github.com/meinhoongagan/carenest/middleware"
	"github.com/meinhoongagan/carenest/models"
)

// SetupAuthRoutes configures all authentication related routes
func SetupAuthRoutes(router fiber.Router) {
	auth := router.Group("/auth")

	// Public routes
	auth.Post("/register", controllers.Register)
	auth.Post("/login", controllers.Login)
	auth.Post("/refresh", controllers.RefreshToken)
	auth.Get("/check-email", controllers.CheckEmail)

	// Protected routes
	auth.Get("/me", middleware.Protected(), controllers.GetMe)
	auth.Patch("/me", middleware.Protected(), controllers.UpdateMe)
	auth.Post("/logout", middleware.Protected(), controllers.Logout)

	auth.Post("/users/:id/deactivate", middleware.Protected(),
		middleware.RequireCapability(models.CapDeactivateUsers), controllers.DeactivateUser)
}
