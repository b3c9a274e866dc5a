package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
)

type User struct {
	ID                 uint               `json:"id" gorm:"primaryKey"`
	Email              string             `json:"email" gorm:"uniqueIndex;not null"`
	Password           string             `json:"-" gorm:"not null"`
	FirstName          string             `json:"first_name"`
	LastName           string             `json:"last_name"`
	Phone              string             `json:"phone"`
	Role               Role               `json:"user_type" gorm:"type:varchar(20);not null;index"`
	ProfileCompleted   bool               `json:"profile_completed"`
	VerificationStatus VerificationStatus `json:"verification_status" gorm:"type:varchar(20);default:pending"`
	IsActive           bool               `json:"is_active" gorm:"default:true"`
	TermsAccepted      bool               `json:"terms_accepted"`
	LastLogin          *time.Time         `json:"last_login"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// BeforeSave normalises the login identity.
func (u *User) BeforeSave(tx *gorm.DB) error {
	u.Email = NormalizeEmail(u.Email)
	if u.VerificationStatus == "" {
		u.VerificationStatus = VerificationPending
	}
	return nil
}

// DisplayName is the name shown to other users.
func (u *User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
