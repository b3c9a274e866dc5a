package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/meinhoongagan/carenest/models"
	"github.com/meinhoongagan/carenest/utils"
	"github.com/meinhoongagan/carenest/validation"
)

// DefaultRequestTTL is how long a caregiver has to answer a request.
const DefaultRequestTTL = 48 * time.Hour

const defaultRejectMessage = "Request rejected"

type BookingRequestInput struct {
	CaregiverID   uint   `json:"caregiver_id"`
	ServiceType   string `json:"service_type"`
	ProposedDate  string `json:"proposed_date"`
	ProposedTime  string `json:"proposed_time"`
	DurationHours int    `json:"duration_hours"`
	Address       string `json:"address"`
	Message       string `json:"message"`
}

// BookingClock carries the time settings booking flows depend on.
type BookingClock struct {
	Now        time.Time
	Location   *time.Location
	RequestTTL time.Duration
}

func (c BookingClock) loc() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

func (c BookingClock) ttl() time.Duration {
	if c.RequestTTL <= 0 {
		return DefaultRequestTTL
	}
	return c.RequestTTL
}

// CreateBookingRequest lets a client propose a booking to an available caregiver.
func CreateBookingRequest(conn *gorm.DB, actor Actor, in BookingRequestInput, clock BookingClock) (*models.BookingRequest, error) {
	if err := actor.require(models.CapRequestBooking, "Only clients can create booking requests"); err != nil {
		return nil, err
	}

	v := validation.Violations{}
	if in.CaregiverID == 0 {
		v["caregiver_id"] = "required"
	}
	validation.Required("service_type", in.ServiceType, v)
	validation.MaxLength("message", in.Message, 2000, v)
	if in.DurationHours == 0 {
		in.DurationHours = models.DefaultRequestHours
	}
	validation.RangeInt("duration_hours", in.DurationHours, 1, 24, v)
	start, err := utils.CombineDateTime(in.ProposedDate, in.ProposedTime, clock.loc())
	if err != nil {
		v["proposed_date"] = "invalid_format"
	} else if !start.After(clock.Now) {
		v["proposed_date"] = "must_be_in_future"
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

	req := &models.BookingRequest{
		ClientID:      actor.ID,
		CaregiverID:   in.CaregiverID,
		ServiceType:   strings.TrimSpace(in.ServiceType),
		ProposedDate:  start.Format(models.DateLayout),
		ProposedTime:  start.Format(models.ClockLayout),
		DurationHours: in.DurationHours,
		Address:       strings.TrimSpace(in.Address),
		Message:       in.Message,
		Status:        models.RequestSent,
		ExpiresAt:     clock.Now.Add(clock.ttl()),
	}
	if err := conn.Create(req).Error; err != nil {
		return nil, err
	}

	client, _ := ActiveUser(conn, actor.ID)
	name := "A client"
	if client != nil {
		name = client.DisplayName()
	}
	Notify(conn, in.CaregiverID, models.NotificationBooking, "New booking request",
		fmt.Sprintf("%s requested %s on %s at %s", name, req.ServiceType, req.ProposedDate, req.ProposedTime),
		models.RefBookingRequest(req.ID))
	return req, nil
}

type BookingRequestFilter struct {
	Status models.RequestStatus
}

// ListBookingRequests returns the requests the actor is party to, newest first.
func ListBookingRequests(conn *gorm.DB, actor Actor, f BookingRequestFilter) ([]models.BookingRequest, error) {
	q := scoped(requestScopes, conn.Model(&models.BookingRequest{}), actor)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	reqs := []models.BookingRequest{}
	err := q.Preload("Client").Preload("Caregiver").Order("created_at DESC").Find(&reqs).Error
	return reqs, err
}

// GetBookingRequest loads a request for a party to it. The caregiver's first read marks it viewed.
func GetBookingRequest(conn *gorm.DB, actor Actor, id uint, now time.Time) (*models.BookingRequest, error) {
	var req models.BookingRequest
	err := scoped(requestScopes, conn, actor).
		Preload("Client").Preload("Caregiver").
		First(&req, id).Error
	if err != nil {
		return nil, lookup(err, "booking request")
	}

	if actor.ID == req.CaregiverID && req.Status == models.RequestSent {
		res := conn.Model(&models.BookingRequest{}).
			Where("id = ? AND status = ?", req.ID, models.RequestSent).
			Updates(map[string]interface{}{"status": models.RequestViewed, "viewed_at": now})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 1 {
			req.Status = models.RequestViewed
			req.ViewedAt = &now
		}
	}
	return &req, nil
}

type RespondInput struct {
	Accepted        bool     `json:"accepted"`
	ProposedRate    *float64 `json:"proposed_rate"`
	ResponseMessage string   `json:"response_message"`
}

// RespondToBookingRequest records the caregiver's answer. Accepting creates exactly one
// confirmed Booking in the same transaction; rejecting never creates one.
func RespondToBookingRequest(conn *gorm.DB, actor Actor, id uint, in RespondInput, clock BookingClock) (*models.BookingRequest, *models.Booking, error) {
	if err := actor.require(models.CapRespondToRequest, "Only caregivers can respond to booking requests"); err != nil {
		return nil, nil, err
	}
	if in.ProposedRate != nil && *in.ProposedRate <= 0 {
		return nil, nil, validation.Violations{"proposed_rate": "must_be_positive"}
	}

	var req models.BookingRequest
	if err := conn.First(&req, id).Error; err != nil {
		return nil, nil, lookup(err, "booking request")
	}
	if req.CaregiverID != actor.ID {
		return nil, nil, forbidden("Only the requested caregiver can respond")
	}
	if !req.IsOpen() {
		return nil, nil, invalidState("Booking request is already %s", req.Status)
	}
	if req.Expired(clock.Now) {
		if err := expireRequest(conn, req.ID); err != nil {
			return nil, nil, err
		}
		return nil, nil, invalidState("Booking request has expired")
	}

	var booking *models.Booking
	err := conn.Transaction(func(tx *gorm.DB) error {
		next := models.RequestRejected
		response := strings.TrimSpace(in.ResponseMessage)
		if in.Accepted {
			next = models.RequestAccepted
		} else if response == "" {
			response = defaultRejectMessage
		}

		// Only one responder can move the request out of sent/viewed.
		updates := map[string]interface{}{
			"status":             next,
			"caregiver_response": response,
			"responded_at":       clock.Now,
		}
		if in.ProposedRate != nil {
			updates["proposed_rate"] = *in.ProposedRate
		}
		res := tx.Model(&models.BookingRequest{}).
			Where("id = ? AND status IN ?", req.ID, models.OpenRequestStatuses).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return invalidState("Booking request was already answered")
		}

		if in.Accepted {
			b, err := bookingFromRequest(tx, &req, in.ProposedRate, clock)
			if err != nil {
				return err
			}
			if err := tx.Model(&models.BookingRequest{}).Where("id = ?", req.ID).
				Update("booking_id", b.ID).Error; err != nil {
				return err
			}
			booking = b
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, nil, invalidState("Booking request was already answered")
		}
		return nil, nil, err
	}

	if err := conn.Preload("Client").Preload("Caregiver").First(&req, req.ID).Error; err != nil {
		return nil, nil, err
	}
	notifyRequestOutcome(conn, &req, booking)
	return &req, booking, nil
}

// bookingFromRequest synthesizes the confirmed booking for an accepted request.
func bookingFromRequest(tx *gorm.DB, req *models.BookingRequest, proposedRate *float64, clock BookingClock) (*models.Booking, error) {
	start, end, err := req.Window(clock.loc())
	if err != nil {
		return nil, badRequest("Booking request has an invalid proposed date or time")
	}

	if err := lockCaregiverCalendar(tx, req.CaregiverID); err != nil {
		return nil, err
	}
	clash, err := conflictingBooking(tx, req.CaregiverID, start, end)
	if err != nil {
		return nil, err
	}
	if clash != nil {
		return nil, conflict("Caregiver already has booking %d overlapping this request", clash.ID)
	}

	rate := 0.0
	if proposedRate != nil {
		rate = *proposedRate
	} else if profile, err := GetCaregiverProfile(tx, req.CaregiverID); err == nil {
		rate = profile.HourlyRate
	}

	city := "Unknown"
	if client, err := GetClientProfile(tx, req.ClientID); err == nil && client.City != "" {
		city = client.City
	}

	requestID := req.ID
	now := clock.Now
	b := &models.Booking{
		ClientID:            req.ClientID,
		CaregiverID:         req.CaregiverID,
		RequestID:           &requestID,
		ServiceType:         req.ServiceType,
		StartDatetime:       start.UTC(),
		EndDatetime:         end.UTC(),
		Hours:               float64(req.DurationHours),
		Address:             req.Address,
		City:                city,
		SpecialInstructions: req.Message,
		Status:              models.BookingConfirmed,
		HourlyRate:          rate,
		ConfirmedAt:         &now,
	}
	if err := tx.Create(b).Error; err != nil {
		return nil, err
	}
	return b, nil
}

func notifyRequestOutcome(conn *gorm.DB, req *models.BookingRequest, booking *models.Booking) {
	caregiverName := req.Caregiver.DisplayName()
	if booking == nil {
		Notify(conn, req.ClientID, models.NotificationBooking, "Booking request declined",
			fmt.Sprintf("%s declined your request: %s", caregiverName, req.CaregiverResponse),
			models.RefBookingRequest(req.ID))
		return
	}

	Notify(conn, req.ClientID, models.NotificationBooking, "Booking confirmed",
		fmt.Sprintf("%s accepted your request for %s at %s", caregiverName, req.ProposedDate, req.ProposedTime),
		models.RefBooking(booking.ID))
	if wantsEmail(conn, req.ClientID) {
		sendEmail(req.Client.Email, "Your booking is confirmed", fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>%s accepted your booking request.</p>
		<ul>
			<li><strong>Service:</strong> %s</li>
			<li><strong>Start:</strong> %s</li>
			<li><strong>End:</strong> %s</li>
			<li><strong>Total:</strong> %.2f</li>
		</ul>
	`, req.Client.DisplayName(), caregiverName, booking.ServiceType,
			booking.StartDatetime.Format("2006-01-02 15:04"),
			booking.EndDatetime.Format("2006-01-02 15:04"),
			booking.TotalAmount))
	}
}

func expireRequest(conn *gorm.DB, id uint) error {
	return conn.Model(&models.BookingRequest{}).
		Where("id = ? AND status IN ?", id, models.OpenRequestStatuses).
		Update("status", models.RequestExpired).Error
}

// ExpireBookingRequests moves every open request past its deadline to expired.
func ExpireBookingRequests(conn *gorm.DB, now time.Time) (int64, error) {
	var expired []models.BookingRequest
	err := conn.Where("status IN ? AND expires_at <= ?", models.OpenRequestStatuses, now).
		Find(&expired).Error
	if err != nil {
		return 0, err
	}
	if len(expired) == 0 {
		return 0, nil
	}

	var count int64
	for _, r := range expired {
		// The status guard lets a concurrent accept win.
		res := conn.Model(&models.BookingRequest{}).
			Where("id = ? AND status IN ?", r.ID, models.OpenRequestStatuses).
			Update("status", models.RequestExpired)
		if res.Error != nil {
			return count, res.Error
		}
		if res.RowsAffected == 0 {
			continue
		}
		count++
		Notify(conn, r.ClientID, models.NotificationBooking, "Booking request expired",
			fmt.Sprintf("Your request for %s on %s received no response in time", r.ServiceType, r.ProposedDate),
			models.RefBookingRequest(r.ID))
	}
	zap.L().Info("expired booking requests", zap.Int64("count", count))
	return count, nil
}
