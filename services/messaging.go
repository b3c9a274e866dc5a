package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/meinhoongagan/carenest/models"
	"github.com/meinhoongagan/carenest/realtime"
	"github.com/meinhoongagan/carenest/validation"
)

const previewLength = 50

// GetOrCreateConversation returns the active conversation between a and b, creating it
// if needed. The bool reports whether it was created. Concurrent callers converge on one row.
func GetOrCreateConversation(conn *gorm.DB, a, b uint) (*models.Conversation, bool, error) {
	if a == b {
		return nil, false, badRequest("Cannot start a conversation with yourself")
	}
	if _, err := ActiveUser(conn, b); err != nil {
		if errors.Is(err, ErrForbidden) {
			return nil, false, notFound("user not found")
		}
		return nil, false, err
	}

	key := models.PairKey(a, b)
	if c, err := conversationByKey(conn, key); err == nil {
		return c, false, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	c := &models.Conversation{IsActive: true, PairKey: &key}
	err := conn.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(c).Error; err != nil {
			return err
		}
		parts := []models.ConversationParticipant{
			{ConversationID: c.ID, UserID: a},
			{ConversationID: c.ID, UserID: b},
		}
		return tx.Omit("User").Create(&parts).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Lost the race; the winner's row is committed.
		existing, ferr := conversationByKey(conn, key)
		if ferr != nil {
			return nil, false, ferr
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	created, err := conversationByKey(conn, key)
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}

func conversationByKey(conn *gorm.DB, key string) (*models.Conversation, error) {
	var c models.Conversation
	err := conn.Preload("Participants.User").
		Where("pair_key = ? AND is_active = ?", key, true).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ConversationForParticipant loads a conversation userID belongs to.
func ConversationForParticipant(conn *gorm.DB, conversationID, userID uint) (*models.Conversation, error) {
	var c models.Conversation
	if err := conn.Preload("Participants.User").First(&c, conversationID).Error; err != nil {
		return nil, lookup(err, "conversation")
	}
	for _, p := range c.Participants {
		if p.UserID == userID {
			return &c, nil
		}
	}
	return nil, forbidden("You are not a participant in this conversation")
}

func otherParticipant(c *models.Conversation, userID uint) *models.User {
	for i := range c.Participants {
		if c.Participants[i].UserID != userID {
			return &c.Participants[i].User
		}
	}
	return nil
}

type SendMessageInput struct {
	ConversationID uint   `json:"conversation_id"`
	RecipientID    uint   `json:"recipient_id"`
	Content        string `json:"content"`
	BookingID      *uint  `json:"booking_id"`
}

// SendMessage stores a message and fans it out to the conversation and the recipient.
func SendMessage(conn *gorm.DB, senderID uint, in SendMessageInput) (*models.Message, error) {
	content := strings.TrimSpace(in.Content)
	v := validation.Violations{}
	validation.Required("content", content, v)
	validation.MaxLength("content", content, models.MaxMessageLength, v)
	if in.ConversationID == 0 && in.RecipientID == 0 {
		v["conversation_id"] = "conversation_id_or_recipient_id_required"
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	sender, err := ActiveUser(conn, senderID)
	if err != nil {
		return nil, err
	}

	var conv *models.Conversation
	if in.ConversationID != 0 {
		conv, err = ConversationForParticipant(conn, in.ConversationID, senderID)
		if err == nil && !conv.IsActive {
			err = invalidState("Conversation is archived")
		}
	} else {
		conv, _, err = GetOrCreateConversation(conn, senderID, in.RecipientID)
	}
	if err != nil {
		return nil, err
	}

	msg := &models.Message{
		ConversationID: conv.ID,
		SenderID:       senderID,
		Content:        content,
		BookingID:      in.BookingID,
	}
	err = conn.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Conversation", "Sender").Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&models.Conversation{}).Where("id = ?", conv.ID).
			Update("updated_at", msg.CreatedAt).Error
	})
	if err != nil {
		return nil, err
	}
	msg.Sender = *sender

	payload := realtime.PayloadFor(msg)
	realtime.Publish(realtime.ConversationGroup(conv.ID), realtime.Event{
		Action:  realtime.ActionNewMessage,
		Message: payload,
	})

	if recipient := otherParticipant(conv, senderID); recipient != nil {
		name := sender.DisplayName()
		n := record(conn, recipient.ID, models.NotificationMessage,
			fmt.Sprintf("New message from %s", name),
			fmt.Sprintf("%s: %s", name, preview(content)),
			models.RefConversation(conv.ID))
		realtime.Publish(realtime.UserGroup(recipient.ID), realtime.Event{
			Action:         realtime.ActionNotification,
			Message:        payload,
			ConversationID: conv.ID,
			Notification:   n,
		})
	}
	return msg, nil
}

func preview(content string) string {
	r := []rune(content)
	if len(r) <= previewLength {
		return content
	}
	return string(r[:previewLength]) + "..."
}

// MarkConversationRead marks the other participants' unread messages as read by reader.
func MarkConversationRead(conn *gorm.DB, conversationID, readerID uint, now time.Time) (int64, error) {
	if _, err := ConversationForParticipant(conn, conversationID, readerID); err != nil {
		return 0, err
	}
	res := conn.Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND is_read = ?", conversationID, readerID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": now})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		realtime.Publish(realtime.ConversationGroup(conversationID), realtime.Event{
			Action:         realtime.ActionMessagesRead,
			ConversationID: conversationID,
			UserID:         readerID,
		})
	}
	return res.RowsAffected, nil
}

// ConversationSummary is one row of the inbox.
type ConversationSummary struct {
	ID          uint            `json:"id"`
	OtherUser   *models.User    `json:"other_user"`
	LastMessage *models.Message `json:"last_message"`
	UnreadCount int64           `json:"unread_count"`
	IsActive    bool            `json:"is_active"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ListConversations returns userID's active conversations, most recently updated first.
func ListConversations(conn *gorm.DB, userID uint) ([]ConversationSummary, error) {
	var convs []models.Conversation
	err := conn.Preload("Participants.User").
		Joins("JOIN conversation_participants cp ON cp.conversation_id = conversations.id").
		Where("cp.user_id = ? AND conversations.is_active = ?", userID, true).
		Order("conversations.updated_at DESC").
		Find(&convs).Error
	if err != nil {
		return nil, err
	}

	out := make([]ConversationSummary, 0, len(convs))
	for i := range convs {
		c := &convs[i]
		s := ConversationSummary{
			ID:        c.ID,
			OtherUser: otherParticipant(c, userID),
			IsActive:  c.IsActive,
			UpdatedAt: c.UpdatedAt,
		}
		var last models.Message
		err := conn.Where("conversation_id = ?", c.ID).Order("created_at DESC, id DESC").First(&last).Error
		if err == nil {
			s.LastMessage = &last
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		if err := conn.Model(&models.Message{}).
			Where("conversation_id = ? AND sender_id <> ? AND is_read = ?", c.ID, userID, false).
			Count(&s.UnreadCount).Error; err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// ListMessages returns the conversation's messages oldest first and marks them read for userID.
func ListMessages(conn *gorm.DB, conversationID, userID uint, now time.Time) ([]models.Message, error) {
	if _, err := ConversationForParticipant(conn, conversationID, userID); err != nil {
		return nil, err
	}
	msgs := []models.Message{}
	err := conn.Preload("Sender").
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	if _, err := MarkConversationRead(conn, conversationID, userID, now); err != nil {
		return nil, err
	}
	return msgs, nil
}

// ArchiveConversation hides the conversation and frees the pair for a new one.
func ArchiveConversation(conn *gorm.DB, conversationID, userID uint) error {
	if _, err := ConversationForParticipant(conn, conversationID, userID); err != nil {
		return err
	}
	return conn.Model(&models.Conversation{}).Where("id = ?", conversationID).
		Updates(map[string]interface{}{"is_active": false, "pair_key": nil}).Error
}

// SearchMessages finds messages containing q across userID's conversations.
func SearchMessages(conn *gorm.DB, userID uint, q string) ([]models.Message, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, validation.Violations{"q": "required"}
	}
	msgs := []models.Message{}
	err := conn.Preload("Sender").
		Where("conversation_id IN (?)", conn.Model(&models.ConversationParticipant{}).
			Select("conversation_id").Where("user_id = ?", userID)).
		Where("LOWER(content) LIKE ?", "%"+strings.ToLower(q)+"%").
		Order("created_at DESC").
		Limit(50).
		Find(&msgs).Error
	return msgs, err
}

// UnreadMessageCount counts messages addressed to userID that are still unread.
func UnreadMessageCount(conn *gorm.DB, userID uint) (int64, error) {
	var count int64
	err := conn.Model(&models.Message{}).
		Where("conversation_id IN (?)", conn.Model(&models.ConversationParticipant{}).
			Select("conversation_id").Where("user_id = ?", userID)).
		Where("sender_id <> ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// SetOnline records chat presence for userID.
func SetOnline(conn *gorm.DB, userID uint, online bool, now time.Time) error {
	status := models.UserOnlineStatus{UserID: userID}
	if err := conn.Where("user_id = ?", userID).FirstOrCreate(&status).Error; err != nil {
		return err
	}
	return conn.Model(&status).Updates(map[string]interface{}{"is_online": online, "last_seen": now}).Error
}

// OnlineStatus reports presence; users never seen are offline.
func OnlineStatus(conn *gorm.DB, userID uint) (*models.UserOnlineStatus, error) {
	var status models.UserOnlineStatus
	err := conn.Where("user_id = ?", userID).First(&status).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.UserOnlineStatus{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &status, nil
}
