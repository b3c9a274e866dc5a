package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/meinhoongagan/carenest/models"
	"github.com/meinhoongagan/carenest/utils"
	"github.com/meinhoongagan/carenest/validation"
)

// ReminderLead is how far ahead of start a booking reminder goes out.
const ReminderLead = time.Hour

// reminderSlack widens the reminder window so a per-minute job cannot miss a booking.
const reminderSlack = 5 * time.Minute

type BookingInput struct {
	CaregiverID         uint   `json:"caregiver_id"`
	ServiceType         string `json:"service_type"`
	StartDatetime       string `json:"start_datetime"`
	EndDatetime         string `json:"end_datetime"`
	Address             string `json:"address"`
	City                string `json:"city"`
	SpecialInstructions string `json:"special_instructions"`
}

// CreateBooking books a caregiver directly, skipping the request flow. The booking starts pending.
func CreateBooking(conn *gorm.DB, actor Actor, in BookingInput, loc *time.Location) (*models.Booking, error) {
	if err := actor.require(models.CapRequestBooking, "Only clients can create bookings"); err != nil {
		return nil, err
	}

	v := validation.Violations{}
	if in.CaregiverID == 0 {
		v["caregiver_id"] = "required"
	}
	validation.Required("service_type", in.ServiceType, v)
	start, err := utils.ParseTimestamp(in.StartDatetime, loc)
	if err != nil {
		v["start_datetime"] = "invalid_format"
	}
	end, err := utils.ParseTimestamp(in.EndDatetime, loc)
	if err != nil {
		v["end_datetime"] = "invalid_format"
	}
	if v.Empty() && !end.After(start) {
		v["end_datetime"] = "must_be_after_start_datetime"
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	profile, err := caregiverProfileFor(conn, in.CaregiverID)
	if err != nil {
		return nil, err
	}
	if !profile.IsAvailable {
		return nil, badRequest("Caregiver is not currently available")
	}
	clash, err := conflictingBooking(conn, in.CaregiverID, start, end)
	if err != nil {
		return nil, err
	}
	if clash != nil {
		return nil, conflict("Caregiver already has a booking at that time")
	}

	city := strings.TrimSpace(in.City)
	if city == "" {
		if client, err := GetClientProfile(conn, actor.ID); err == nil {
			city = client.City
		}
	}

	b := &models.Booking{
		ClientID:            actor.ID,
		CaregiverID:         in.CaregiverID,
		ServiceType:         strings.TrimSpace(in.ServiceType),
		StartDatetime:       start.UTC(),
		EndDatetime:         end.UTC(),
		Hours:               end.Sub(start).Hours(),
		Address:             strings.TrimSpace(in.Address),
		City:                city,
		SpecialInstructions: in.SpecialInstructions,
		Status:              models.BookingPending,
		HourlyRate:          profile.HourlyRate,
	}
	if err := conn.Create(b).Error; err != nil {
		return nil, err
	}

	Notify(conn, in.CaregiverID, models.NotificationBooking, "New booking",
		fmt.Sprintf("You have a new %s booking on %s", b.ServiceType, start.Format("2006-01-02 15:04")),
		models.RefBooking(b.ID))
	return b, nil
}

type BookingFilter struct {
	Status models.BookingStatus
}

// ListBookings returns the bookings visible to actor, soonest first.
func ListBookings(conn *gorm.DB, actor Actor, f BookingFilter) ([]models.Booking, error) {
	q := scoped(bookingScopes, conn.Model(&models.Booking{}), actor)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	bookings := []models.Booking{}
	err := q.Preload("Client").Preload("Caregiver").Order("start_datetime ASC").Find(&bookings).Error
	return bookings, err
}

// UpcomingBookings lists the actor's confirmed or running bookings that start after now.
func UpcomingBookings(conn *gorm.DB, actor Actor, now time.Time) ([]models.Booking, error) {
	bookings := []models.Booking{}
	err := scoped(bookingScopes, conn.Model(&models.Booking{}), actor).
		Where("status IN ? AND start_datetime > ?", models.ActiveBookingStatuses, now).
		Preload("Client").Preload("Caregiver").
		Order("start_datetime ASC").
		Find(&bookings).Error
	return bookings, err
}

func GetBooking(conn *gorm.DB, actor Actor, id uint) (*models.Booking, error) {
	var b models.Booking
	err := scoped(bookingScopes, conn, actor).
		Preload("Client").Preload("Caregiver").
		First(&b, id).Error
	if err != nil {
		return nil, lookup(err, "booking")
	}
	return &b, nil
}

// TransitionBooking applies a status change on behalf of actor. The caregiver drives the
// booking forward, either party may cancel, and admins may apply any legal transition.
func TransitionBooking(conn *gorm.DB, actor Actor, id uint, target models.BookingStatus, reason string, now time.Time) (*models.Booking, error) {
	b, err := GetBooking(conn, actor, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeTransition(actor, b, target); err != nil {
		return nil, err
	}
	err = conn.Transaction(func(tx *gorm.DB) error {
		if b.CanTransition(target) && isActiveStatus(target) {
			if err := lockCaregiverCalendar(tx, b.CaregiverID); err != nil {
				return err
			}
			clash, err := conflictingBookingExcept(tx, b.CaregiverID, b.StartDatetime, b.EndDatetime, b.ID)
			if err != nil {
				return err
			}
			if clash != nil {
				return conflict("Caregiver already has booking %d at that time", clash.ID)
			}
		}
		return b.UpdateStatus(tx, target, strings.TrimSpace(reason), now)
	})
	if err != nil {
		if errors.Is(err, models.ErrInvalidTransition) {
			return nil, invalidState("%s", err.Error())
		}
		return nil, err
	}

	if actor.ID == b.ClientID || actor.ID == b.CaregiverID {
		notifyTransition(conn, b, counterpart(actor.ID, b.ClientID, b.CaregiverID))
	} else {
		notifyTransition(conn, b, b.ClientID)
		notifyTransition(conn, b, b.CaregiverID)
	}
	return b, nil
}

func isActiveStatus(s models.BookingStatus) bool {
	for _, active := range models.ActiveBookingStatuses {
		if s == active {
			return true
		}
	}
	return false
}

func authorizeTransition(actor Actor, b *models.Booking, target models.BookingStatus) error {
	if actor.Role == models.RoleAdmin {
		return nil
	}
	switch target {
	case models.BookingCancelled:
		if actor.ID != b.ClientID && actor.ID != b.CaregiverID {
			return forbidden("Only a party to the booking can cancel it")
		}
		return actor.require(models.CapCancelBooking, "You cannot cancel this booking")
	case models.BookingConfirmed, models.BookingRejected, models.BookingInProgress, models.BookingCompleted:
		if actor.ID != b.CaregiverID {
			return forbidden("Only the caregiver can mark a booking %s", target)
		}
		return actor.require(models.CapDriveBooking, "You cannot change this booking")
	}
	return badRequest("unknown booking status %q", target)
}

var transitionTitles = map[models.BookingStatus]string{
	models.BookingConfirmed:  "Booking confirmed",
	models.BookingRejected:   "Booking rejected",
	models.BookingInProgress: "Booking started",
	models.BookingCompleted:  "Booking completed",
	models.BookingCancelled:  "Booking cancelled",
}

func notifyTransition(conn *gorm.DB, b *models.Booking, userID uint) {
	msg := fmt.Sprintf("Your %s booking on %s is now %s",
		b.ServiceType, b.StartDatetime.Format("2006-01-02 15:04"), b.Status)
	if b.Status == models.BookingCancelled && b.CancellationReason != "" {
		msg += ": " + b.CancellationReason
	}
	Notify(conn, userID, models.NotificationBooking, transitionTitles[b.Status], msg, models.RefBooking(b.ID))
}

// SendBookingReminders notifies both parties of confirmed bookings starting in about an hour.
// Each booking is reminded once.
func SendBookingReminders(conn *gorm.DB, now time.Time) (int, error) {
	var due []models.Booking
	err := conn.Preload("Client").Preload("Caregiver").
		Where("status = ? AND reminder_sent_at IS NULL", models.BookingConfirmed).
		Where("start_datetime BETWEEN ? AND ?", now.Add(ReminderLead-reminderSlack), now.Add(ReminderLead+reminderSlack)).
		Find(&due).Error
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range due {
		b := &due[i]
		res := conn.Model(&models.Booking{}).
			Where("id = ? AND reminder_sent_at IS NULL", b.ID).
			Update("reminder_sent_at", now)
		if res.Error != nil {
			return sent, res.Error
		}
		if res.RowsAffected == 0 {
			continue
		}

		when := b.StartDatetime.Format("15:04")
		for _, u := range []models.User{b.Client, b.Caregiver} {
			Notify(conn, u.ID, models.NotificationBooking, "Upcoming booking",
				fmt.Sprintf("Your %s booking starts at %s", b.ServiceType, when),
				models.RefBooking(b.ID))
			if wantsEmail(conn, u.ID) {
				sendEmail(u.Email, "Booking reminder", fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>This is a reminder that your %s booking starts at %s.</p>
		<p>Address: %s</p>
	`, u.DisplayName(), b.ServiceType, b.StartDatetime.Format("2006-01-02 15:04"), b.Address))
			}
		}
		sent++
	}
	return sent, nil
}
