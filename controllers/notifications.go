package controllers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/carenest/controllers/respond"
	"github.com/meinhoongagan/carenest/db"
	"github.com/meinhoongagan/carenest/middleware"
	"github.com/meinhoongagan/carenest/models"
	"github.com/meinhoongagan/carenest/services"
	"github.com/meinhoongagan/carenest/validation"
)

func ListNotifications(c *fiber.Ctx) error {
	filter := services.NotificationFilter{
		Type:  models.NotificationType(c.Query("type")),
		Page:  c.QueryInt("page", 1),
		Limit: c.QueryInt("limit", 20),
	}
	if raw := c.Query("read"); raw != "" {
		read, err := strconv.ParseBool(raw)
		if err != nil {
			return respond.Error(c, validation.Violations{"read": "invalid_boolean"})
		}
		filter.Read = &read
	}
	page, err := services.ListNotifications(db.GetDB(), middleware.CurrentActor(c).ID, filter)
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(page)
}

func UnreadNotificationCount(c *fiber.Ctx) error {
	n, err := services.UnreadNotificationCount(db.GetDB(), middleware.CurrentActor(c).ID)
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(fiber.Map{"unread_count": n})
}

func MarkNotificationRead(c *fiber.Ctx) error {
	id, err := respond.ID(c, "id")
	if err != nil {
		return respond.Error(c, err)
	}
	n, err := services.MarkNotificationRead(db.GetDB(), middleware.CurrentActor(c).ID, id, time.Now().UTC())
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(n)
}

func MarkNotificationsRead(c *fiber.Ctx) error {
	var input services.MarkNotificationsInput
	if err := c.BodyParser(&input); err != nil {
		return respond.BadBody(c, err)
	}
	n, err := services.MarkNotificationsRead(db.GetDB(), middleware.CurrentActor(c).ID, input, time.Now().UTC())
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(fiber.Map{"marked_read": n})
}

func CreateNotification(c *fiber.Ctx) error {
	var input services.CreateNotificationInput
	if err := c.BodyParser(&input); err != nil {
		return respond.BadBody(c, err)
	}
	n, err := services.CreateNotification(db.GetDB(), middleware.CurrentActor(c), input)
	if err != nil {
		return respond.Error(c, err)
	}
	return respond.Created(c, n)
}

func GetNotificationPreferences(c *fiber.Ctx) error {
	p, err := services.GetPreferences(db.GetDB(), middleware.CurrentActor(c).ID)
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(p)
}

func UpdateNotificationPreferences(c *fiber.Ctx) error {
	var input services.PreferencesInput
	if err := c.BodyParser(&input); err != nil {
		return respond.BadBody(c, err)
	}
	p, err := services.UpdatePreferences(db.GetDB(), middleware.CurrentActor(c).ID, input)
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(p)
}
