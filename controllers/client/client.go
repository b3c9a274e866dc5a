package client

import (
	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/carenest/controllers/respond"
	"github.com/meinhoongagan/carenest/db"
	"github.com/meinhoongagan/carenest/middleware"
	"github.com/meinhoongagan/carenest/services"
	"github.com/meinhoongagan/carenest/validation"
)

// GetProfile retrieves the caller's client profile
func GetProfile(c *fiber.Ctx) error {
	profile, err := services.GetClientProfile(db.GetDB(), middleware.CurrentActor(c).ID)
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(profile)
}

func CreateProfile(c *fiber.Ctx) error {
	var input services.ClientProfileInput
	if err := c.BodyParser(&input); err != nil {
		return respond.BadBody(c, err)
	}
	profile, err := services.CreateClientProfile(db.GetDB(), middleware.CurrentActor(c), input)
	if err != nil {
		return respond.Error(c, err)
	}
	return respond.Created(c, profile)
}

func UpdateProfile(c *fiber.Ctx) error {
	var input services.ClientProfileInput
	if err := c.BodyParser(&input); err != nil {
		return respond.BadBody(c, err)
	}
	profile, err := services.UpdateClientProfile(db.GetDB(), middleware.CurrentActor(c), input)
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Profile updated successfully",
		"profile": profile,
	})
}

// SearchCaregivers is the public discovery endpoint.
func SearchCaregivers(c *fiber.Ctx) error {
	q := services.DiscoveryQuery{
		City:      c.Query("city"),
		Specialty: c.Query("specialty"),
		Sort:      c.Query("sort"),
	}
	v := validation.Violations{}
	q.MinRate = floatQuery(c, "min_rate", v)
	q.MaxRate = floatQuery(c, "max_rate", v)
	if err := v.Err(); err != nil {
		return respond.Error(c, err)
	}

	profiles, err := services.DiscoverCaregivers(db.GetDB(), q)
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(fiber.Map{
		"caregivers": profiles,
		"total":      len(profiles),
	})
}

// GetCaregiver returns a public caregiver profile with its availability.
func GetCaregiver(c *fiber.Ctx) error {
	id, err := respond.ID(c, "id")
	if err != nil {
		return respond.Error(c, err)
	}
	pc, err := services.GetPublicCaregiver(db.GetDB(), id)
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(pc)
}

func floatQuery(c *fiber.Ctx, name string, v validation.Violations) *float64 {
	if c.Query(name) == "" {
		return nil
	}
	f := c.QueryFloat(name, -1)
	if f < 0 {
		v[name] = "invalid_number"
		return nil
	}
	return &f
}
