package services

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/meinhoongagan/carenest/models"
	"github.com/meinhoongagan/carenest/realtime"
	"github.com/meinhoongagan/carenest/validation"
)

// record inserts a notification. Failures are logged and swallowed.
func record(conn *gorm.DB, userID uint, typ models.NotificationType, title, message string, ref models.RelatedRef) *models.Notification {
	n := &models.Notification{
		UserID:  userID,
		Type:    typ,
		Title:   title,
		Message: message,
		Related: ref,
	}
	if err := conn.Create(n).Error; err != nil {
		zap.L().Error("failed to create notification",
			zap.Uint("user_id", userID),
			zap.String("type", string(typ)),
			zap.String("title", title),
			zap.Error(err))
		return nil
	}
	return n
}

// Notify stores an inbox entry for userID and pushes it to their live connections.
// It never fails; callers must not depend on delivery.
func Notify(conn *gorm.DB, userID uint, typ models.NotificationType, title, message string, ref models.RelatedRef) *models.Notification {
	n := record(conn, userID, typ, title, message, ref)
	if n != nil {
		realtime.Publish(realtime.UserGroup(userID), realtime.Event{
			Action:       realtime.ActionNotification,
			Notification: n,
		})
	}
	return n
}

type NotificationFilter struct {
	Read  *bool
	Type  models.NotificationType
	Page  int
	Limit int
}

type NotificationPage struct {
	Notifications []models.Notification `json:"notifications"`
	Total         int64                 `json:"total"`
	UnreadCount   int64                 `json:"unread_count"`
	Page          int                   `json:"page"`
	Limit         int                   `json:"limit"`
}

// ListNotifications returns userID's inbox, newest first.
func ListNotifications(conn *gorm.DB, userID uint, f NotificationFilter) (*NotificationPage, error) {
	if f.Type != "" && !f.Type.Valid() {
		return nil, validation.Violations{"type": "invalid_choice"}
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}

	q := conn.Model(&models.Notification{}).Where("user_id = ?", userID)
	if f.Read != nil {
		q = q.Where("is_read = ?", *f.Read)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}

	page := &NotificationPage{Page: f.Page, Limit: f.Limit, Notifications: []models.Notification{}}
	if err := q.Count(&page.Total).Error; err != nil {
		return nil, err
	}
	if err := q.Order("created_at DESC, id DESC").
		Limit(f.Limit).Offset((f.Page - 1) * f.Limit).
		Find(&page.Notifications).Error; err != nil {
		return nil, err
	}
	unread, err := UnreadNotificationCount(conn, userID)
	if err != nil {
		return nil, err
	}
	page.UnreadCount = unread
	return page, nil
}

func UnreadNotificationCount(conn *gorm.DB, userID uint) (int64, error) {
	var n int64
	err := conn.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&n).Error
	return n, err
}

// MarkNotificationRead marks one notification read. Already-read entries are left untouched.
func MarkNotificationRead(conn *gorm.DB, userID, id uint, now time.Time) (*models.Notification, error) {
	var n models.Notification
	if err := conn.Where("id = ? AND user_id = ?", id, userID).First(&n).Error; err != nil {
		return nil, lookup(err, "notification")
	}
	if n.IsRead {
		return &n, nil
	}
	n.IsRead = true
	n.ReadAt = &now
	if err := conn.Model(&n).Updates(map[string]interface{}{"is_read": true, "read_at": now}).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

type MarkNotificationsInput struct {
	MarkAll         bool   `json:"mark_all"`
	NotificationIDs []uint `json:"notification_ids"`
}

// MarkNotificationsRead bulk-marks either everything or the listed ids.
func MarkNotificationsRead(conn *gorm.DB, userID uint, in MarkNotificationsInput, now time.Time) (int64, error) {
	q := conn.Model(&models.Notification{}).Where("user_id = ? AND is_read = ?", userID, false)
	switch {
	case in.MarkAll:
	case len(in.NotificationIDs) > 0:
		q = q.Where("id IN ?", in.NotificationIDs)
	default:
		return 0, badRequest("Either provide notification_ids or set mark_all=true")
	}
	res := q.Updates(map[string]interface{}{"is_read": true, "read_at": now})
	return res.RowsAffected, res.Error
}

type CreateNotificationInput struct {
	UserID            uint                    `json:"user_id"`
	Type              models.NotificationType `json:"notification_type"`
	Title             string                  `json:"title"`
	Message           string                  `json:"message"`
	RelatedObjectType models.RelatedKind      `json:"related_object_type"`
	RelatedObjectID   uint                    `json:"related_object_id"`
}

// CreateNotification is the explicit API variant of Notify; it reports failures.
func CreateNotification(conn *gorm.DB, actor Actor, in CreateNotificationInput) (*models.Notification, error) {
	v := validation.Violations{}
	validation.Required("title", in.Title, v)
	if in.Type == "" {
		in.Type = models.NotificationSystem
	}
	if !in.Type.Valid() {
		v["notification_type"] = "invalid_choice"
	}
	if !in.RelatedObjectType.Valid() {
		v["related_object_type"] = "invalid_choice"
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	target := actor.ID
	if in.UserID != 0 && in.UserID != actor.ID {
		if err := actor.require(models.CapNotifyAnyUser, "Only admins can notify other users"); err != nil {
			return nil, err
		}
		var u models.User
		if err := conn.First(&u, in.UserID).Error; err != nil {
			return nil, lookup(err, "user")
		}
		target = u.ID
	}

	n := &models.Notification{
		UserID:  target,
		Type:    in.Type,
		Title:   in.Title,
		Message: in.Message,
		Related: models.RelatedRef{Kind: in.RelatedObjectType, ID: in.RelatedObjectID},
	}
	if err := conn.Create(n).Error; err != nil {
		return nil, err
	}
	realtime.Publish(realtime.UserGroup(target), realtime.Event{Action: realtime.ActionNotification, Notification: n})
	return n, nil
}

// GetPreferences returns userID's preferences, creating defaults when missing.
func GetPreferences(conn *gorm.DB, userID uint) (*models.NotificationPreference, error) {
	p := models.NotificationPreference{UserID: userID, EmailNotifications: true, PushNotifications: true}
	if err := conn.Where("user_id = ?", userID).FirstOrCreate(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

type PreferencesInput struct {
	EmailNotifications *bool `json:"email_notifications"`
	PushNotifications  *bool `json:"push_notifications"`
}

func UpdatePreferences(conn *gorm.DB, userID uint, in PreferencesInput) (*models.NotificationPreference, error) {
	p, err := GetPreferences(conn, userID)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if in.EmailNotifications != nil {
		updates["email_notifications"] = *in.EmailNotifications
	}
	if in.PushNotifications != nil {
		updates["push_notifications"] = *in.PushNotifications
	}
	if len(updates) > 0 {
		if err := conn.Model(p).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return GetPreferences(conn, userID)
}

// wantsEmail reports whether userID accepts email; missing preferences mean yes.
func wantsEmail(conn *gorm.DB, userID uint) bool {
	var p models.NotificationPreference
	if err := conn.Where("user_id = ?", userID).First(&p).Error; err != nil {
		return true
	}
	return p.EmailNotifications
}
