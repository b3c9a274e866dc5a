package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/meinhoongagan/carenest/models"
	"github.com/meinhoongagan/carenest/validation"
)

type ReviewInput struct {
	BookingID      uint   `json:"booking_id"`
	Rating         int    `json:"rating"`
	Comment        string `json:"comment"`
	WouldRecommend bool   `json:"would_recommend"`
}

// CreateReview lets a booking's client review its caregiver once the booking is completed.
func CreateReview(conn *gorm.DB, actor Actor, in ReviewInput) (*models.Review, error) {
	if err := actor.require(models.CapWriteReview, "Only clients can write reviews"); err != nil {
		return nil, err
	}
	v := validation.Violations{}
	if in.BookingID == 0 {
		v["booking_id"] = "required"
	}
	validation.RangeInt("rating", in.Rating, models.MinRating, models.MaxRating, v)
	if err := v.Err(); err != nil {
		return nil, err
	}

	var b models.Booking
	if err := conn.First(&b, in.BookingID).Error; err != nil {
		return nil, lookup(err, "booking")
	}
	if b.ClientID != actor.ID {
		return nil, forbidden("You can only review your own bookings")
	}
	if b.Status != models.BookingCompleted {
		return nil, invalidState("Only completed bookings can be reviewed")
	}

	r := &models.Review{
		BookingID:      b.ID,
		ReviewerID:     actor.ID,
		CaregiverID:    b.CaregiverID,
		Rating:         in.Rating,
		Comment:        strings.TrimSpace(in.Comment),
		WouldRecommend: in.WouldRecommend,
		IsVisible:      true,
	}
	if err := conn.Omit("Booking", "Reviewer").Create(r).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, conflict("You have already reviewed this booking")
		}
		return nil, err
	}

	Notify(conn, b.CaregiverID, models.NotificationReview, "New review",
		fmt.Sprintf("You received a %d-star review", r.Rating), models.RefReview(r.ID))
	return r, nil
}

func loadReview(conn *gorm.DB, id uint) (*models.Review, error) {
	var r models.Review
	if err := conn.Preload("Reviewer").First(&r, id).Error; err != nil {
		return nil, lookup(err, "review")
	}
	return &r, nil
}

// RespondToReview stores the caregiver's public reply.
func RespondToReview(conn *gorm.DB, actor Actor, id uint, response string, now time.Time) (*models.Review, error) {
	if err := actor.require(models.CapRespondToReview, "Only caregivers can respond to reviews"); err != nil {
		return nil, err
	}
	response = strings.TrimSpace(response)
	if response == "" {
		return nil, validation.Violations{"response": "required"}
	}
	r, err := loadReview(conn, id)
	if err != nil {
		return nil, err
	}
	if r.CaregiverID != actor.ID {
		return nil, forbidden("You can only respond to reviews about you")
	}
	err = conn.Model(&models.Review{}).Where("id = ?", r.ID).
		Updates(map[string]interface{}{"caregiver_response": response, "responded_at": now}).Error
	if err != nil {
		return nil, err
	}

	Notify(conn, r.ReviewerID, models.NotificationReview, "Caregiver responded",
		"The caregiver responded to your review", models.RefReview(r.ID))
	return loadReview(conn, id)
}

// SetReviewVisibility hides or restores a review and refreshes the caregiver's rating.
func SetReviewVisibility(conn *gorm.DB, actor Actor, id uint, visible bool) (*models.Review, error) {
	if err := actor.require(models.CapModerateReviews, "Only admins can moderate reviews"); err != nil {
		return nil, err
	}
	r, err := loadReview(conn, id)
	if err != nil {
		return nil, err
	}
	err = conn.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Review{}).Where("id = ?", r.ID).Update("is_visible", visible).Error; err != nil {
			return err
		}
		return models.RecomputeCaregiverRating(tx, r.CaregiverID)
	})
	if err != nil {
		return nil, err
	}
	return loadReview(conn, id)
}

// ListReviews returns the reviews written by or about actor.
func ListReviews(conn *gorm.DB, actor Actor) ([]models.Review, error) {
	reviews := []models.Review{}
	err := scoped(reviewScopes, conn.Model(&models.Review{}), actor).
		Preload("Reviewer").
		Order("created_at DESC").
		Find(&reviews).Error
	return reviews, err
}

// CaregiverReviews lists a caregiver's visible reviews.
func CaregiverReviews(conn *gorm.DB, caregiverID uint) ([]models.Review, error) {
	reviews := []models.Review{}
	err := conn.Preload("Reviewer").
		Where("caregiver_id = ? AND is_visible = ?", caregiverID, true).
		Order("created_at DESC").
		Find(&reviews).Error
	return reviews, err
}

type ReviewStats struct {
	AverageRating      float64     `json:"average_rating"`
	TotalReviews       int         `json:"total_reviews"`
	RatingBreakdown    map[int]int `json:"rating_breakdown"`
	RecommendationRate float64     `json:"recommendation_rate"`
	ResponseRate       float64     `json:"response_rate"`
}

// CaregiverReviewStats summarises visible reviews; rates are percentages.
func CaregiverReviewStats(conn *gorm.DB, caregiverID uint) (*ReviewStats, error) {
	reviews, err := CaregiverReviews(conn, caregiverID)
	if err != nil {
		return nil, err
	}
	stats := &ReviewStats{RatingBreakdown: map[int]int{}}
	for r := models.MinRating; r <= models.MaxRating; r++ {
		stats.RatingBreakdown[r] = 0
	}
	if len(reviews) == 0 {
		return stats, nil
	}

	sum, recommended, responded := 0, 0, 0
	for _, r := range reviews {
		sum += r.Rating
		stats.RatingBreakdown[r.Rating]++
		if r.WouldRecommend {
			recommended++
		}
		if r.CaregiverResponse != "" {
			responded++
		}
	}
	n := float64(len(reviews))
	stats.TotalReviews = len(reviews)
	stats.AverageRating = round1(float64(sum) / n)
	stats.RecommendationRate = round1(float64(recommended) / n * 100)
	stats.ResponseRate = round1(float64(responded) / n * 100)
	return stats, nil
}

func round1(v float64) float64 {
	return float64(int64(v*10+0.5)) / 10
}

// ReviewableBookings lists the client's completed bookings that have no review yet.
func ReviewableBookings(conn *gorm.DB, actor Actor) ([]models.Booking, error) {
	if err := actor.require(models.CapWriteReview, "Only clients can write reviews"); err != nil {
		return nil, err
	}
	bookings := []models.Booking{}
	err := conn.Preload("Caregiver").
		Where("client_id = ? AND status = ?", actor.ID, models.BookingCompleted).
		Where("id NOT IN (?)", conn.Model(&models.Review{}).Select("booking_id").Where("reviewer_id = ?", actor.ID)).
		Order("start_datetime DESC").
		Find(&bookings).Error
	return bookings, err
}
