package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/carenest/controllers/caregiver"
	"github.com/meinhoongagan/carenest/controllers/client"
	"github.com/meinhoongagan/carenest/middleware"
	"github.com/meinhoongagan/carenest/models"
)

// SetupProfileRoutes configures caregiver, client and discovery routes
func SetupProfileRoutes(router fiber.Router) {
	profiles := router.Group("/profiles")

	// Public discovery
	profiles.Get("/caregivers", client.SearchCaregivers)
	profiles.Get("/caregivers/:id", client.GetCaregiver)

	cg := profiles.Group("/caregiver", middleware.Protected(),
		middleware.RequireCapability(models.CapOwnCaregiverProfile))
	cg.Get("/me", caregiver.GetProfile)
	cg.Post("/me", caregiver.CreateProfile)
	cg.Patch("/me", caregiver.UpdateProfile)
	cg.Post("/me/picture", caregiver.UploadPicture)
	cg.Post("/me/document", caregiver.UploadDocument)
	cg.Get("/dashboard", caregiver.Dashboard)

	cg.Get("/availability", caregiver.ListSlots)
	cg.Post("/availability", caregiver.CreateSlot)
	cg.Put("/availability", caregiver.ReplaceSchedule)
	cg.Patch("/availability/:id", caregiver.UpdateSlot)
	cg.Delete("/availability/:id", caregiver.DeleteSlot)

	cl := profiles.Group("/client", middleware.Protected(),
		middleware.RequireCapability(models.CapOwnClientProfile))
	cl.Get("/me", client.GetProfile)
	cl.Post("/me", client.CreateProfile)
	cl.Patch("/me", client.UpdateProfile)
}
