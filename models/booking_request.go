package models

import (
	"time"

	"gorm.io/gorm"
)

type RequestStatus string

const (
	RequestSent     RequestStatus = "sent"
	RequestViewed   RequestStatus = "viewed"
	RequestAccepted RequestStatus = "accepted"
	RequestRejected RequestStatus = "rejected"
	RequestExpired  RequestStatus = "expired"
)

// OpenRequestStatuses still await a caregiver response.
var OpenRequestStatuses = []RequestStatus{RequestSent, RequestViewed}

// DefaultRequestHours is used when a client omits the duration.
const DefaultRequestHours = 4

type BookingRequest struct {
	gorm.Model
	ClientID          uint          `json:"client_id" gorm:"not null;index"`
	Client            User          `json:"client" gorm:"foreignKey:ClientID"`
	CaregiverID       uint          `json:"caregiver_id" gorm:"not null;index"`
	Caregiver         User          `json:"caregiver" gorm:"foreignKey:CaregiverID"`
	ServiceType       string        `json:"service_type"`
	ProposedDate      string        `json:"proposed_date" gorm:"type:varchar(10);not null"` // "YYYY-MM-DD"
	ProposedTime      string        `json:"proposed_time" gorm:"type:varchar(5);not null"`  // "HH:MM"
	DurationHours     int           `json:"duration_hours" gorm:"default:4"`
	Address           string        `json:"address"`
	Message           string        `json:"message"`
	Status            RequestStatus `json:"status" gorm:"type:varchar(20);index"`
	CaregiverResponse string        `json:"caregiver_response"`
	ProposedRate      *float64      `json:"proposed_rate" gorm:"type:decimal(8,2)"`
	ViewedAt          *time.Time    `json:"viewed_at"`
	RespondedAt       *time.Time    `json:"responded_at"`
	ExpiresAt         time.Time     `json:"expires_at" gorm:"index"`
	BookingID         *uint         `json:"booking_id"`
}

func (r *BookingRequest) BeforeCreate(tx *gorm.DB) error {
	if r.Status == "" {
		r.Status = RequestSent
	}
	if r.DurationHours <= 0 {
		r.DurationHours = DefaultRequestHours
	}
	return nil
}

// IsOpen reports whether the caregiver can still respond.
func (r *BookingRequest) IsOpen() bool {
	return r.Status == RequestSent || r.Status == RequestViewed
}

// Expired reports whether the response window has closed at now.
func (r *BookingRequest) Expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}

// Window returns the proposed start and end in loc.
func (r *BookingRequest) Window(loc *time.Location) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(DateLayout+" "+ClockLayout, r.ProposedDate+" "+r.ProposedTime, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, start.Add(time.Duration(r.DurationHours) * time.Hour), nil
}
