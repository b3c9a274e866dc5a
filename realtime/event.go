package realtime

import (
	"fmt"
	"time"

	"github.com/meinhoongagan/carenest/models"
)

// Frame actions shared by inbound and outbound socket traffic.
const (
	ActionSendMessage      = "send_message"
	ActionJoinConversation = "join_conversation"
	ActionTyping           = "typing"
	ActionMarkRead         = "mark_read"

	ActionNewMessage   = "new_message"
	ActionNotification = "notification"
	ActionMessagesRead = "messages_read"
	ActionJoined       = "joined"
	ActionError        = "error"
)

// Event is one outbound frame.
type Event struct {
	Action         string               `json:"action"`
	Message        *MessagePayload      `json:"message,omitempty"`
	Notification   *models.Notification `json:"notification,omitempty"`
	ConversationID uint                 `json:"conversation_id,omitempty"`
	UserID         uint                 `json:"user_id,omitempty"`
	IsTyping       *bool                `json:"is_typing,omitempty"`
	Error          string               `json:"error,omitempty"`
}

// MessagePayload is the wire form of a chat message.
type MessagePayload struct {
	ID             uint      `json:"id"`
	ConversationID uint      `json:"conversation_id"`
	SenderID       uint      `json:"sender_id"`
	SenderEmail    string    `json:"sender_email"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
	IsRead         bool      `json:"is_read"`
}

// PayloadFor converts a stored message; sender must be preloaded for the email.
func PayloadFor(m *models.Message) *MessagePayload {
	return &MessagePayload{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		SenderEmail:    m.Sender.Email,
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
		IsRead:         m.IsRead,
	}
}

func UserGroup(userID uint) string { return fmt.Sprintf("user_%d", userID) }

func ConversationGroup(conversationID uint) string {
	return fmt.Sprintf("conversation_%d", conversationID)
}
