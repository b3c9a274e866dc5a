package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/carenest/controllers"
	"github.com/meinhoongagan/carenest/middleware"
)

// SetupNotificationRoutes configures the notification inbox and preferences
func SetupNotificationRoutes(router fiber.Router) {
	n := router.Group("/notifications", middleware.Protected())

	n.Get("/", controllers.ListNotifications)
	n.Post("/", controllers.CreateNotification)
	n.Get("/unread-count", controllers.UnreadNotificationCount)
	n.Post("/mark-read", controllers.MarkNotificationsRead)
	n.Get("/preferences", controllers.GetNotificationPreferences)
	n.Patch("/preferences", controllers.UpdateNotificationPreferences)
	n.Post("/:id/read", controllers.MarkNotificationRead)
}
