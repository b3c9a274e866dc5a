package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/carenest/controllers/respond"
	"github.com/meinhoongagan/carenest/db"
	"github.com/meinhoongagan/carenest/middleware"
	"github.com/meinhoongagan/carenest/services"
)

func CreateReview(c *fiber.Ctx) error {
	var input services.ReviewInput
	if err := c.BodyParser(&input); err != nil {
		return respond.BadBody(c, err)
	}
	r, err := services.CreateReview(db.GetDB(), middleware.CurrentActor(c), input)
	if err != nil {
		return respond.Error(c, err)
	}
	return respond.Created(c, r)
}

func ListReviews(c *fiber.Ctx) error {
	reviews, err := services.ListReviews(db.GetDB(), middleware.CurrentActor(c))
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(reviews)
}

// CaregiverReviews is public and returns visible reviews with their stats.
func CaregiverReviews(c *fiber.Ctx) error {
	id, err := respond.ID(c, "id")
	if err != nil {
		return respond.Error(c, err)
	}
	reviews, err := services.CaregiverReviews(db.GetDB(), id)
	if err != nil {
		return respond.Error(c, err)
	}
	stats, err := services.CaregiverReviewStats(db.GetDB(), id)
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(fiber.Map{"reviews": reviews, "stats": stats})
}

func CaregiverReviewStats(c *fiber.Ctx) error {
	id, err := respond.ID(c, "id")
	if err != nil {
		return respond.Error(c, err)
	}
	stats, err := services.CaregiverReviewStats(db.GetDB(), id)
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(stats)
}

func RespondToReview(c *fiber.Ctx) error {
	id, err := respond.ID(c, "id")
	if err != nil {
		return respond.Error(c, err)
	}
	var input struct {
		Response string `json:"response"`
	}
	if err := c.BodyParser(&input); err != nil {
		return respond.BadBody(c, err)
	}
	r, err := services.RespondToReview(db.GetDB(), middleware.CurrentActor(c), id, input.Response, time.Now().UTC())
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(r)
}

func SetReviewVisibility(c *fiber.Ctx) error {
	id, err := respond.ID(c, "id")
	if err != nil {
		return respond.Error(c, err)
	}
	var input struct {
		IsVisible bool `json:"is_visible"`
	}
	if err := c.BodyParser(&input); err != nil {
		return respond.BadBody(c, err)
	}
	r, err := services.SetReviewVisibility(db.GetDB(), middleware.CurrentActor(c), id, input.IsVisible)
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(r)
}

func ReviewableBookings(c *fiber.Ctx) error {
	bookings, err := services.ReviewableBookings(db.GetDB(), middleware.CurrentActor(c))
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(bookings)
}
