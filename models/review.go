package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

const (
	MinRating = 1
	MaxRating = 5
)

type Review struct {
	ID                uint       `json:"id" gorm:"primaryKey"`
	BookingID         uint       `json:"booking_id" gorm:"not null;uniqueIndex:idx_review_booking_reviewer,priority:1"`
	Booking           Booking    `json:"-" gorm:"foreignKey:BookingID"`
	ReviewerID        uint       `json:"reviewer_id" gorm:"not null;uniqueIndex:idx_review_booking_reviewer,priority:2"`
	Reviewer          User       `json:"reviewer" gorm:"foreignKey:ReviewerID"`
	CaregiverID       uint       `json:"caregiver_id" gorm:"not null;index"`
	Rating            int        `json:"rating" gorm:"not null"`
	Comment           string     `json:"comment"`
	WouldRecommend    bool       `json:"would_recommend"`
	IsVisible         bool       `json:"is_visible" gorm:"default:true"`
	CaregiverResponse string     `json:"caregiver_response"`
	RespondedAt       *time.Time `json:"responded_at"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// BeforeSave rejects ratings outside 1..5.
func (r *Review) BeforeSave(tx *gorm.DB) error {
	if r.BookingID != 0 && (r.Rating < MinRating || r.Rating > MaxRating) {
		return fmt.Errorf("rating must be between %d and %d", MinRating, MaxRating)
	}
	return nil
}

// AfterSave refreshes the caregiver's aggregate rating from visible reviews.
func (r *Review) AfterSave(tx *gorm.DB) error {
	if r.CaregiverID == 0 {
		return nil
	}
	return RecomputeCaregiverRating(tx, r.CaregiverID)
}

// RecomputeCaregiverRating writes the mean and count of visible reviews to the profile.
func RecomputeCaregiverRating(tx *gorm.DB, caregiverID uint) error {
	var agg struct {
		Average float64
		Total   int
	}
	err := tx.Model(&Review{}).
		Select("COALESCE(AVG(rating), 0) AS average, COUNT(*) AS total").
		Where("caregiver_id = ? AND is_visible = ?", caregiverID, true).
		Scan(&agg).Error
	if err != nil {
		return fmt.Errorf("aggregate reviews: %w", err)
	}

	return tx.Model(&CaregiverProfile{}).
		Where("user_id = ?", caregiverID).
		Updates(map[string]interface{}{
			"average_rating": roundCents(agg.Average),
			"total_reviews":  agg.Total,
		}).Error
}
