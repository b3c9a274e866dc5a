package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/carenest/controllers/respond"
	"github.com/meinhoongagan/carenest/db"
	"github.com/meinhoongagan/carenest/middleware"
	"github.com/meinhoongagan/carenest/services"
	"github.com/meinhoongagan/carenest/validation"
)

func ListConversations(c *fiber.Ctx) error {
	list, err := services.ListConversations(db.GetDB(), middleware.CurrentActor(c).ID)
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(list)
}

// StartConversation returns the conversation with user_id, creating it when needed.
func StartConversation(c *fiber.Ctx) error {
	var input struct {
		UserID uint `json:"user_id"`
	}
	if err := c.BodyParser(&input); err != nil {
		return respond.BadBody(c, err)
	}
	if input.UserID == 0 {
		return respond.Error(c, validation.Violations{"user_id": "required"})
	}
	conv, created, err := services.GetOrCreateConversation(db.GetDB(), middleware.CurrentActor(c).ID, input.UserID)
	if err != nil {
		return respond.Error(c, err)
	}
	if created {
		return respond.Created(c, conv)
	}
	return c.JSON(conv)
}

func ListMessages(c *fiber.Ctx) error {
	id, err := respond.ID(c, "id")
	if err != nil {
		return respond.Error(c, err)
	}
	msgs, err := services.ListMessages(db.GetDB(), id, middleware.CurrentActor(c).ID, time.Now().UTC())
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(msgs)
}

func SendMessage(c *fiber.Ctx) error {
	var input services.SendMessageInput
	if err := c.BodyParser(&input); err != nil {
		return respond.BadBody(c, err)
	}
	if id := c.Params("id"); id != "" {
		cid, err := respond.ID(c, "id")
		if err != nil {
			return respond.Error(c, err)
		}
		input.ConversationID = cid
	}
	msg, err := services.SendMessage(db.GetDB(), middleware.CurrentActor(c).ID, input)
	if err != nil {
		return respond.Error(c, err)
	}
	return respond.Created(c, msg)
}

func MarkConversationRead(c *fiber.Ctx) error {
	id, err := respond.ID(c, "id")
	if err != nil {
		return respond.Error(c, err)
	}
	n, err := services.MarkConversationRead(db.GetDB(), id, middleware.CurrentActor(c).ID, time.Now().UTC())
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(fiber.Map{"marked_read": n})
}

func ArchiveConversation(c *fiber.Ctx) error {
	id, err := respond.ID(c, "id")
	if err != nil {
		return respond.Error(c, err)
	}
	if err := services.ArchiveConversation(db.GetDB(), id, middleware.CurrentActor(c).ID); err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(fiber.Map{"message": "Conversation archived"})
}

func SearchMessages(c *fiber.Ctx) error {
	msgs, err := services.SearchMessages(db.GetDB(), middleware.CurrentActor(c).ID, c.Query("q"))
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(msgs)
}

func UnreadMessageCount(c *fiber.Ctx) error {
	n, err := services.UnreadMessageCount(db.GetDB(), middleware.CurrentActor(c).ID)
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(fiber.Map{"unread_count": n})
}

func GetOnlineStatus(c *fiber.Ctx) error {
	id, err := respond.ID(c, "id")
	if err != nil {
		return respond.Error(c, err)
	}
	status, err := services.OnlineStatus(db.GetDB(), id)
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(status)
}

func SetOnlineStatus(c *fiber.Ctx) error {
	var input struct {
		IsOnline bool `json:"is_online"`
	}
	if err := c.BodyParser(&input); err != nil {
		return respond.BadBody(c, err)
	}
	userID := middleware.CurrentActor(c).ID
	if err := services.SetOnline(db.GetDB(), userID, input.IsOnline, time.Now().UTC()); err != nil {
		return respond.Error(c, err)
	}
	status, err := services.OnlineStatus(db.GetDB(), userID)
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(status)
}
