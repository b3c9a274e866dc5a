package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/carenest/controllers"
	"github.com/meinhoongagan/carenest/middleware"
	"github.com/meinhoongagan/carenest/models"
)

// SetupBookingRoutes configures booking requests and bookings
func SetupBookingRoutes(router fiber.Router) {
	bookings := router.Group("/bookings")

	bookings.Get("/caregiver/:id/check-availability", controllers.CheckAvailability)

	requests := bookings.Group("/requests", middleware.Protected())
	requests.Get("/", controllers.ListBookingRequests)
	requests.Post("/", middleware.RequireCapability(models.CapRequestBooking), controllers.CreateBookingRequest)
	requests.Get("/:id", controllers.GetBookingRequest)
	requests.Post("/:id/respond", middleware.RequireCapability(models.CapRespondToRequest), controllers.RespondToBookingRequest)

	bookings.Use(middleware.Protected())
	bookings.Get("/", controllers.ListBookings)
	bookings.Post("/", middleware.RequireCapability(models.CapRequestBooking), controllers.CreateBooking)
	bookings.Get("/upcoming", controllers.UpcomingBookings)
	bookings.Get("/export", controllers.ExportBookings)
	bookings.Get("/:id", controllers.GetBooking)
	bookings.Patch("/:id/status", controllers.UpdateBookingStatus)
	bookings.Post("/:id/cancel", middleware.RequireCapability(models.CapCancelBooking), controllers.CancelBooking)
}
