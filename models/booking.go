package models

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInvalidTransition is wrapped by every rejected status change.
var ErrInvalidTransition = errors.New("invalid status transition")

type BookingStatus string

const (
	BookingPending    BookingStatus = "pending"
	BookingConfirmed  BookingStatus = "confirmed"
	BookingInProgress BookingStatus = "in_progress"
	BookingCompleted  BookingStatus = "completed"
	BookingCancelled  BookingStatus = "cancelled"
	BookingRejected   BookingStatus = "rejected"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
	PaymentFailed   PaymentStatus = "failed"
)

// PlatformFeeRate is the marketplace's cut of every booking total.
const PlatformFeeRate = 0.15

// ActiveBookingStatuses block the caregiver's calendar.
var ActiveBookingStatuses = []BookingStatus{BookingConfirmed, BookingInProgress}

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPending:    {BookingConfirmed, BookingCancelled, BookingRejected},
	BookingConfirmed:  {BookingInProgress, BookingCancelled},
	BookingInProgress: {BookingCompleted},
}

type Booking struct {
	gorm.Model
	ClientID            uint          `json:"client_id" gorm:"not null;index"`
	Client              User          `json:"client" gorm:"foreignKey:ClientID"`
	CaregiverID         uint          `json:"caregiver_id" gorm:"not null;index"`
	Caregiver           User          `json:"caregiver" gorm:"foreignKey:CaregiverID"`
	RequestID           *uint         `json:"request_id" gorm:"uniqueIndex"`
	ServiceType         string        `json:"service_type"`
	StartDatetime       time.Time     `json:"start_datetime" gorm:"not null;index"`
	EndDatetime         time.Time     `json:"end_datetime" gorm:"not null"`
	Hours               float64       `json:"hours" gorm:"type:decimal(5,2)"`
	Address             string        `json:"address"`
	City                string        `json:"city"`
	SpecialInstructions string        `json:"special_instructions"`
	Status              BookingStatus `json:"status" gorm:"type:varchar(20);index"`
	PaymentStatus       PaymentStatus `json:"payment_status" gorm:"type:varchar(20)"`
	HourlyRate          float64       `json:"hourly_rate" gorm:"type:decimal(8,2)"`
	TotalAmount         float64       `json:"total_amount" gorm:"type:decimal(10,2)"`
	PlatformFee         float64       `json:"platform_fee" gorm:"type:decimal(10,2)"`
	CaregiverPayout     float64       `json:"caregiver_payout" gorm:"type:decimal(10,2)"`
	ConfirmedAt         *time.Time    `json:"confirmed_at"`
	CompletedAt         *time.Time    `json:"completed_at"`
	CancelledAt         *time.Time    `json:"cancelled_at"`
	CancellationReason  string        `json:"cancellation_reason"`
	ReminderSentAt      *time.Time    `json:"-"`
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.Status == "" {
		b.Status = BookingPending
	}
	if b.PaymentStatus == "" {
		b.PaymentStatus = PaymentPending
	}
	return nil
}

// BeforeSave fills the financial fields the first time both hours and rate are known.
// Totals are never recomputed once set.
func (b *Booking) BeforeSave(tx *gorm.DB) error {
	if !b.StartDatetime.IsZero() && !b.EndDatetime.After(b.StartDatetime) {
		return fmt.Errorf("end_datetime must be after start_datetime")
	}
	if b.Hours > 0 && b.HourlyRate > 0 && b.TotalAmount == 0 {
		b.TotalAmount = roundCents(b.Hours * b.HourlyRate)
		b.PlatformFee = roundCents(b.TotalAmount * PlatformFeeRate)
		b.CaregiverPayout = roundCents(b.TotalAmount - b.PlatformFee)
	}
	return nil
}

// CanTransition reports whether the machine allows status -> next.
func (b *Booking) CanTransition(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[b.Status] {
		if allowed == next {
			return true
		}
	}
	return false
}

// UpdateStatus moves the booking to newStatus, stamping the matching timestamp.
func (b *Booking) UpdateStatus(tx *gorm.DB, newStatus BookingStatus, reason string, now time.Time) error {
	if !b.CanTransition(newStatus) {
		if len(bookingTransitions[b.Status]) == 0 {
			return fmt.Errorf("%w: no transitions allowed from %s", ErrInvalidTransition, b.Status)
		}
		return fmt.Errorf("%w: from %s to %s", ErrInvalidTransition, b.Status, newStatus)
	}

	b.Status = newStatus
	switch newStatus {
	case BookingConfirmed:
		b.ConfirmedAt = &now
	case BookingCompleted:
		b.CompletedAt = &now
	case BookingCancelled:
		b.CancelledAt = &now
		b.CancellationReason = reason
	}
	return tx.Omit(clause.Associations).Save(b).Error
}

// Overlaps reports whether [start, end) intersects the booking's time range.
func (b *Booking) Overlaps(start, end time.Time) bool {
	return b.StartDatetime.Before(end) && b.EndDatetime.After(start)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
