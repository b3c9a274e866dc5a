package models

import (
	"time"
)

// DefaultHourlyRate applies to caregivers who have not set a rate yet.
const DefaultHourlyRate = 25.0

type CaregiverProfile struct {
	ID                      uint        `json:"id" gorm:"primaryKey"`
	UserID                  uint        `json:"user_id" gorm:"uniqueIndex;not null"`
	User                    User        `json:"-" gorm:"foreignKey:UserID"`
	FirstName               string      `json:"first_name"`
	LastName                string      `json:"last_name"`
	Bio                     string      `json:"bio"`
	HourlyRate              float64     `json:"hourly_rate" gorm:"type:decimal(8,2);default:25"`
	ExperienceYears         int         `json:"experience_years"`
	Specialties             Specialties `json:"specialties" gorm:"type:text"`
	Location                string      `json:"location"`
	City                    string      `json:"city" gorm:"index"`
	PostalCode              string      `json:"postal_code"`
	BackgroundCheckVerified bool        `json:"background_check_verified"`
	IDVerified              bool        `json:"id_verified"`
	IsFeatured              bool        `json:"is_featured"`
	ProfileImageURL         string      `json:"profile_image"`
	IDDocumentURL           string      `json:"-"`
	AverageRating           float64     `json:"average_rating" gorm:"type:decimal(3,2);default:0"`
	TotalReviews            int         `json:"total_reviews" gorm:"default:0"`
	IsActive                bool        `json:"is_active" gorm:"default:true"`
	IsAvailable             bool        `json:"is_available" gorm:"default:true"`
	CreatedAt               time.Time   `json:"created_at"`
	UpdatedAt               time.Time   `json:"updated_at"`
}

type ClientProfile struct {
	ID                  uint      `json:"id" gorm:"primaryKey"`
	UserID              uint      `json:"user_id" gorm:"uniqueIndex;not null"`
	User                User      `json:"-" gorm:"foreignKey:UserID"`
	FirstName           string    `json:"first_name"`
	LastName            string    `json:"last_name"`
	Phone               string    `json:"phone"`
	Address             string    `json:"address"`
	City                string    `json:"city"`
	EmergencyPhone      string    `json:"emergency_phone"`
	PreferredCareType   string    `json:"preferred_care_type"`
	SpecialRequirements string    `json:"special_requirements"`
	IsPremiumMember     bool      `json:"is_premium_member"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}
