package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/carenest/controllers"
	"github.com/meinhoongagan/carenest/middleware"
	"github.com/meinhoongagan/carenest/models"
)

// SetupReviewRoutes configures reviews and caregiver rating endpoints
func SetupReviewRoutes(router fiber.Router) {
	reviews := router.Group("/reviews")

	// Public
	reviews.Get("/caregiver/:id", controllers.CaregiverReviews)
	reviews.Get("/caregiver/:id/stats", controllers.CaregiverReviewStats)

	reviews.Use(middleware.Protected())
	reviews.Get("/", controllers.ListReviews)
	reviews.Post("/", middleware.RequireCapability(models.CapWriteReview), controllers.CreateReview)
	reviews.Get("/reviewable-bookings", middleware.RequireCapability(models.CapWriteReview), controllers.ReviewableBookings)
	reviews.Post("/:id/respond", middleware.RequireCapability(models.CapRespondToReview), controllers.RespondToReview)
	reviews.Patch("/:id/visibility", middleware.RequireCapability(models.CapModerateReviews), controllers.SetReviewVisibility)
}
