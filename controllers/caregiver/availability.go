package caregiver

import (
	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/carenest/controllers/respond"
	"github.com/meinhoongagan/carenest/db"
	"github.com/meinhoongagan/carenest/middleware"
	"github.com/meinhoongagan/carenest/services"
)

// ListSlots returns the caller's availability slots
func ListSlots(c *fiber.Ctx) error {
	slots, err := services.ListSlots(db.GetDB(), middleware.CurrentActor(c).ID)
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(slots)
}

func CreateSlot(c *fiber.Ctx) error {
	var input services.SlotInput
	if err := c.BodyParser(&input); err != nil {
		return respond.BadBody(c, err)
	}
	slot, err := services.CreateSlot(db.GetDB(), middleware.CurrentActor(c), input)
	if err != nil {
		return respond.Error(c, err)
	}
	return respond.Created(c, slot)
}

func UpdateSlot(c *fiber.Ctx) error {
	id, err := respond.ID(c, "id")
	if err != nil {
		return respond.Error(c, err)
	}
	var input services.SlotInput
	if err := c.BodyParser(&input); err != nil {
		return respond.BadBody(c, err)
	}
	slot, err := services.UpdateSlot(db.GetDB(), middleware.CurrentActor(c), id, input)
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(slot)
}

func DeleteSlot(c *fiber.Ctx) error {
	id, err := respond.ID(c, "id")
	if err != nil {
		return respond.Error(c, err)
	}
	if err := services.DeleteSlot(db.GetDB(), middleware.CurrentActor(c), id); err != nil {
		return respond.Error(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ReplaceSchedule swaps the weekly recurring schedule in one call.
func ReplaceSchedule(c *fiber.Ctx) error {
	var input struct {
		Schedule []services.ScheduleDay `json:"schedule"`
	}
	if err := c.BodyParser(&input); err != nil {
		return respond.BadBody(c, err)
	}
	slots, err := services.ReplaceWeeklySchedule(db.GetDB(), middleware.CurrentActor(c), input.Schedule)
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Schedule updated",
		"slots":   slots,
	})
}
