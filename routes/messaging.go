package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/carenest/controllers"
	"github.com/meinhoongagan/carenest/middleware"
)

// SetupMessagingRoutes configures conversations, messages and presence
func SetupMessagingRoutes(router fiber.Router) {
	msg := router.Group("/messaging", middleware.Protected())

	msg.Get("/conversations", controllers.ListConversations)
	msg.Post("/conversations", controllers.StartConversation)
	msg.Get("/conversations/:id/messages", controllers.ListMessages)
	msg.Post("/conversations/:id/messages", controllers.SendMessage)
	msg.Post("/conversations/:id/read", controllers.MarkConversationRead)
	msg.Post("/conversations/:id/archive", controllers.ArchiveConversation)

	msg.Post("/messages", controllers.SendMessage)
	msg.Get("/messages/search", controllers.SearchMessages)
	msg.Get("/messages/unread-count", controllers.UnreadMessageCount)

	msg.Put("/online-status", controllers.SetOnlineStatus)
	msg.Get("/online-status/:id", controllers.GetOnlineStatus)
}
