package models

import (
	"fmt"
	"time"
)

// MaxMessageLength bounds a single chat message.
const MaxMessageLength = 2000

type Conversation struct {
	ID           uint                      `json:"id" gorm:"primaryKey"`
	IsActive     bool                      `json:"is_active" gorm:"default:true"`
	PairKey      *string                   `json:"-" gorm:"type:varchar(41);uniqueIndex"`
	Participants []ConversationParticipant `json:"participants,omitempty" gorm:"foreignKey:ConversationID"`
	CreatedAt    time.Time                 `json:"created_at"`
	UpdatedAt    time.Time                 `json:"updated_at"`
}

// ConversationParticipant joins a user to a conversation.
type ConversationParticipant struct {
	ID             uint      `json:"-" gorm:"primaryKey"`
	ConversationID uint      `json:"conversation_id" gorm:"not null;uniqueIndex:idx_conversation_user,priority:1"`
	UserID         uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_conversation_user,priority:2;index"`
	User           User      `json:"user" gorm:"foreignKey:UserID"`
	JoinedAt       time.Time `json:"joined_at" gorm:"autoCreateTime"`
}

// PairKey identifies the unordered pair {a, b}.
func PairKey(a, b uint) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

type Message struct {
	ID             uint         `json:"id" gorm:"primaryKey"`
	ConversationID uint         `json:"conversation_id" gorm:"not null;index:idx_message_conversation_created,priority:1"`
	Conversation   Conversation `json:"-" gorm:"foreignKey:ConversationID"`
	SenderID       uint         `json:"sender_id" gorm:"not null;index"`
	Sender         User         `json:"sender" gorm:"foreignKey:SenderID"`
	Content        string       `json:"content" gorm:"type:text;not null"`
	IsRead         bool         `json:"is_read" gorm:"default:false"`
	ReadAt         *time.Time   `json:"read_at"`
	BookingID      *uint        `json:"booking_id"`
	CreatedAt      time.Time    `json:"created_at" gorm:"index:idx_message_conversation_created,priority:2"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// UserOnlineStatus tracks chat presence.
type UserOnlineStatus struct {
	ID        uint      `json:"-" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"uniqueIndex;not null"`
	IsOnline  bool      `json:"is_online"`
	LastSeen  time.Time `json:"last_seen"`
	UpdatedAt time.Time `json:"-"`
}
