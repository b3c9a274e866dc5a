package controllers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/carenest/config"
	"github.com/meinhoongagan/carenest/controllers/respond"
	"github.com/meinhoongagan/carenest/db"
	"github.com/meinhoongagan/carenest/middleware"
	"github.com/meinhoongagan/carenest/models"
	"github.com/meinhoongagan/carenest/services"
)

func bookingClock() services.BookingClock {
	cfg := config.Get()
	return services.BookingClock{
		Now:        time.Now().UTC(),
		Location:   cfg.Location(),
		RequestTTL: cfg.BookingRequestTTL,
	}
}

// CheckAvailability is public: GET /bookings/caregiver/:id/check-availability?date=&time=
func CheckAvailability(c *fiber.Ctx) error {
	id, err := respond.ID(c, "id")
	if err != nil {
		return respond.Error(c, err)
	}
	res, err := services.CheckAvailability(db.GetDB(), id, c.Query("date"), c.Query("time"), config.Get().Location())
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(res)
}

func ListBookings(c *fiber.Ctx) error {
	bookings, err := services.ListBookings(db.GetDB(), middleware.CurrentActor(c),
		services.BookingFilter{Status: models.BookingStatus(c.Query("status"))})
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(bookings)
}

func UpcomingBookings(c *fiber.Ctx) error {
	bookings, err := services.UpcomingBookings(db.GetDB(), middleware.CurrentActor(c), time.Now().UTC())
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(bookings)
}

func GetBooking(c *fiber.Ctx) error {
	id, err := respond.ID(c, "id")
	if err != nil {
		return respond.Error(c, err)
	}
	booking, err := services.GetBooking(db.GetDB(), middleware.CurrentActor(c), id)
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(booking)
}

func CreateBooking(c *fiber.Ctx) error {
	var input services.BookingInput
	if err := c.BodyParser(&input); err != nil {
		return respond.BadBody(c, err)
	}
	booking, err := services.CreateBooking(db.GetDB(), middleware.CurrentActor(c), input, config.Get().Location())
	if err != nil {
		return respond.Error(c, err)
	}
	return respond.Created(c, booking)
}

type statusInput struct {
	Status models.BookingStatus `json:"status"`
	Reason string               `json:"reason"`
}

// UpdateBookingStatus drives the booking state machine.
func UpdateBookingStatus(c *fiber.Ctx) error {
	id, err := respond.ID(c, "id")
	if err != nil {
		return respond.Error(c, err)
	}
	var input statusInput
	if err := c.BodyParser(&input); err != nil {
		return respond.BadBody(c, err)
	}
	return transition(c, id, input.Status, input.Reason)
}

// CancelBooking is a shortcut for a transition to cancelled.
func CancelBooking(c *fiber.Ctx) error {
	id, err := respond.ID(c, "id")
	if err != nil {
		return respond.Error(c, err)
	}
	var input statusInput
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&input); err != nil {
			return respond.BadBody(c, err)
		}
	}
	return transition(c, id, models.BookingCancelled, input.Reason)
}

func transition(c *fiber.Ctx, id uint, target models.BookingStatus, reason string) error {
	booking, err := services.TransitionBooking(db.GetDB(), middleware.CurrentActor(c), id, target, reason, time.Now().UTC())
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(booking)
}

// ExportBookings downloads the caller's bookings as xlsx.
func ExportBookings(c *fiber.Ctx) error {
	actor := middleware.CurrentActor(c)
	data, err := services.ExportBookings(db.GetDB(), actor)
	if err != nil {
		return respond.Error(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, services.ExportFilename(actor)))
	return c.Send(data)
}

func ListBookingRequests(c *fiber.Ctx) error {
	reqs, err := services.ListBookingRequests(db.GetDB(), middleware.CurrentActor(c),
		services.BookingRequestFilter{Status: models.RequestStatus(c.Query("status"))})
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(reqs)
}

func GetBookingRequest(c *fiber.Ctx) error {
	id, err := respond.ID(c, "id")
	if err != nil {
		return respond.Error(c, err)
	}
	req, err := services.GetBookingRequest(db.GetDB(), middleware.CurrentActor(c), id, time.Now().UTC())
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(req)
}

func CreateBookingRequest(c *fiber.Ctx) error {
	var input services.BookingRequestInput
	if err := c.BodyParser(&input); err != nil {
		return respond.BadBody(c, err)
	}
	req, err := services.CreateBookingRequest(db.GetDB(), middleware.CurrentActor(c), input, bookingClock())
	if err != nil {
		return respond.Error(c, err)
	}
	return respond.Created(c, req)
}

// RespondToBookingRequest accepts or rejects; an accept returns the new booking too.
func RespondToBookingRequest(c *fiber.Ctx) error {
	id, err := respond.ID(c, "id")
	if err != nil {
		return respond.Error(c, err)
	}
	var input services.RespondInput
	if err := c.BodyParser(&input); err != nil {
		return respond.BadBody(c, err)
	}
	req, booking, err := services.RespondToBookingRequest(db.GetDB(), middleware.CurrentActor(c), id, input, bookingClock())
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(fiber.Map{"request": req, "booking": booking})
}
