package models

import (
	"time"
)

type NotificationType string

const (
	NotificationMessage NotificationType = "message"
	NotificationBooking NotificationType = "booking"
	NotificationReview  NotificationType = "review"
	NotificationSystem  NotificationType = "system"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationMessage, NotificationBooking, NotificationReview, NotificationSystem:
		return true
	}
	return false
}

// RelatedKind is the closed set of entities a notification may point at.
type RelatedKind string

const (
	RelatedNone           RelatedKind = ""
	RelatedBooking        RelatedKind = "booking"
	RelatedBookingRequest RelatedKind = "booking_request"
	RelatedConversation   RelatedKind = "conversation"
	RelatedReview         RelatedKind = "review"
)

// RelatedRef is a typed pointer to the entity a notification concerns.
type RelatedRef struct {
	Kind RelatedKind `json:"related_object_type,omitempty" gorm:"column:related_object_type;type:varchar(30)"`
	ID   uint        `json:"related_object_id,omitempty" gorm:"column:related_object_id"`
}

func RefBooking(id uint) RelatedRef        { return RelatedRef{Kind: RelatedBooking, ID: id} }
func RefBookingRequest(id uint) RelatedRef { return RelatedRef{Kind: RelatedBookingRequest, ID: id} }
func RefConversation(id uint) RelatedRef   { return RelatedRef{Kind: RelatedConversation, ID: id} }
func RefReview(id uint) RelatedRef         { return RelatedRef{Kind: RelatedReview, ID: id} }

func (k RelatedKind) Valid() bool {
	switch k {
	case RelatedNone, RelatedBooking, RelatedBookingRequest, RelatedConversation, RelatedReview:
		return true
	}
	return false
}

type Notification struct {
	ID        uint             `json:"id" gorm:"primaryKey"`
	UserID    uint             `json:"user_id" gorm:"not null;index"`
	Type      NotificationType `json:"notification_type" gorm:"type:varchar(20);not null;index"`
	Title     string           `json:"title" gorm:"not null"`
	Message   string           `json:"message" gorm:"type:text"`
	IsRead    bool             `json:"is_read" gorm:"default:false;index"`
	ReadAt    *time.Time       `json:"read_at"`
	Related   RelatedRef       `json:"related" gorm:"embedded"`
	CreatedAt time.Time        `json:"created_at"`
}

type NotificationPreference struct {
	ID                 uint      `json:"-" gorm:"primaryKey"`
	UserID             uint      `json:"user_id" gorm:"uniqueIndex;not null"`
	EmailNotifications bool      `json:"email_notifications" gorm:"default:true"`
	PushNotifications  bool      `json:"push_notifications" gorm:"default:true"`
	UpdatedAt          time.Time `json:"updated_at"`
}
