package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/meinhoongagan/carenest/models"
	"github.com/meinhoongagan/carenest/testutil"
)

var testClock = BookingClock{Now: testNow, Location: time.UTC, RequestTTL: 48 * time.Hour}

func sendRequest(t *testing.T, conn *gorm.DB, client, caregiver *models.User, date, clock string, hours int) *models.BookingRequest {
	t.Helper()
	req, err := CreateBookingRequest(conn, clientActor(client), BookingRequestInput{
		CaregiverID:   caregiver.ID,
		ServiceType:   "elderly care",
		ProposedDate:  date,
		ProposedTime:  clock,
		DurationHours: hours,
		Address:       "1 Main St",
	}, testClock)
	require.NoError(t, err)
	return req
}

func countBookings(t *testing.T, conn *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, conn.Model(&models.Booking{}).Count(&n).Error)
	return n
}

func TestCreateBookingRequest(t *testing.T) {
	conn := testutil.NewDB(t)
	caregiver, _ := testutil.CreateCaregiver(t, conn, "care@example.com", 30)
	client, _ := testutil.CreateClient(t, conn, "client@example.com", "Springfield")

	req := sendRequest(t, conn, client, caregiver, "2026-03-02", "10:00", 0)
	assert.Equal(t, models.RequestSent, req.Status)
	assert.Equal(t, models.DefaultRequestHours, req.DurationHours)
	assert.Equal(t, testNow.Add(48*time.Hour), req.ExpiresAt)

	var notes []models.Notification
	require.NoError(t, conn.Where("user_id = ?", caregiver.ID).Find(&notes).Error)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationBooking, notes[0].Type)
	assert.Equal(t, models.RefBookingRequest(req.ID), notes[0].Related)
}

func TestCreateBookingRequestRules(t *testing.T) {
	conn := testutil.NewDB(t)
	caregiver, profile := testutil.CreateCaregiver(t, conn, "care@example.com", 30)
	client, _ := testutil.CreateClient(t, conn, "client@example.com", "Springfield")
	in := BookingRequestInput{CaregiverID: caregiver.ID, ServiceType: "care", ProposedDate: "2026-03-02", ProposedTime: "10:00"}

	_, err := CreateBookingRequest(conn, caregiverActor(caregiver), in, testClock)
	assert.ErrorIs(t, err, ErrForbidden)

	past := in
	past.ProposedDate = "2026-02-01"
	_, err = CreateBookingRequest(conn, clientActor(client), past, testClock)
	assert.Error(t, err)

	require.NoError(t, conn.Model(profile).Update("is_available", false).Error)
	_, err = CreateBookingRequest(conn, clientActor(client), in, testClock)
	assert.ErrorIs(t, err, ErrBadRequest)

	missing := in
	missing.CaregiverID = client.ID
	_, err = CreateBookingRequest(conn, clientActor(client), missing, testClock)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCaregiverViewingMarksRequestViewed(t *testing.T) {
	conn := testutil.NewDB(t)
	caregiver, _ := testutil.CreateCaregiver(t, conn, "care@example.com", 30)
	client, _ := testutil.CreateClient(t, conn, "client@example.com", "Springfield")
	req := sendRequest(t, conn, client, caregiver, "2026-03-02", "10:00", 2)

	got, err := GetBookingRequest(conn, clientActor(client), req.ID, testNow)
	require.NoError(t, err)
	assert.Equal(t, models.RequestSent, got.Status)

	got, err = GetBookingRequest(conn, caregiverActor(caregiver), req.ID, testNow)
	require.NoError(t, err)
	assert.Equal(t, models.RequestViewed, got.Status)
	require.NotNil(t, got.ViewedAt)

	stranger, _ := testutil.CreateClient(t, conn, "stranger@example.com", "Springfield")
	_, err = GetBookingRequest(conn, clientActor(stranger), req.ID, testNow)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAcceptCreatesExactlyOneConfirmedBooking(t *testing.T) {
	conn := testutil.NewDB(t)
	caregiver, _ := testutil.CreateCaregiver(t, conn, "care@example.com", 25)
	client, _ := testutil.CreateClient(t, conn, "client@example.com", "Shelbyville")
	req := sendRequest(t, conn, client, caregiver, "2026-03-02", "10:00", 2)

	rate := 30.0
	got, booking, err := RespondToBookingRequest(conn, caregiverActor(caregiver), req.ID,
		RespondInput{Accepted: true, ProposedRate: &rate}, testClock)
	require.NoError(t, err)
	require.NotNil(t, booking)

	assert.Equal(t, models.RequestAccepted, got.Status)
	require.NotNil(t, got.BookingID)
	assert.Equal(t, booking.ID, *got.BookingID)
	require.NotNil(t, got.RespondedAt)

	assert.Equal(t, models.BookingConfirmed, booking.Status)
	require.NotNil(t, booking.ConfirmedAt)
	assert.Equal(t, "Shelbyville", booking.City)
	assert.Equal(t, time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), booking.StartDatetime)
	assert.Equal(t, time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC), booking.EndDatetime)
	assert.InDelta(t, 60, booking.TotalAmount, 0.001)
	assert.InDelta(t, 9, booking.PlatformFee, 0.001)
	assert.InDelta(t, 51, booking.CaregiverPayout, 0.001)
	assert.Equal(t, int64(1), countBookings(t, conn))

	// A second answer cannot create another booking.
	_, _, err = RespondToBookingRequest(conn, caregiverActor(caregiver), req.ID, RespondInput{Accepted: true}, testClock)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, int64(1), countBookings(t, conn))
}

func TestAcceptFallsBackToProfileRateAndUnknownCity(t *testing.T) {
	conn := testutil.NewDB(t)
	caregiver, _ := testutil.CreateCaregiver(t, conn, "care@example.com", 25)
	client := testutil.CreateUser(t, conn, "client@example.com", models.RoleClient)
	req := sendRequest(t, conn, client, caregiver, "2026-03-02", "10:00", 4)

	_, booking, err := RespondToBookingRequest(conn, caregiverActor(caregiver), req.ID, RespondInput{Accepted: true}, testClock)
	require.NoError(t, err)
	assert.InDelta(t, 25, booking.HourlyRate, 0.001)
	assert.InDelta(t, 100, booking.TotalAmount, 0.001)
	assert.Equal(t, "Unknown", booking.City)
}

func TestConcurrentAcceptsCreateOneBooking(t *testing.T) {
	conn := testutil.NewDB(t)
	caregiver, _ := testutil.CreateCaregiver(t, conn, "care@example.com", 25)
	client, _ := testutil.CreateClient(t, conn, "client@example.com", "Springfield")
	req := sendRequest(t, conn, client, caregiver, "2026-03-02", "10:00", 2)

	var wg sync.WaitGroup
	results := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := RespondToBookingRequest(conn, caregiverActor(caregiver), req.ID, RespondInput{Accepted: true}, testClock)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrInvalidState)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, int64(1), countBookings(t, conn))
}

func TestAcceptRejectsOverlappingBooking(t *testing.T) {
	conn := testutil.NewDB(t)
	caregiver, _ := testutil.CreateCaregiver(t, conn, "care@example.com", 25)
	client, _ := testutil.CreateClient(t, conn, "client@example.com", "Springfield")
	testutil.CreateBooking(t, conn, client.ID, caregiver.ID, time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC), 2, models.BookingConfirmed)
	req := sendRequest(t, conn, client, caregiver, "2026-03-02", "10:00", 2)

	_, _, err := RespondToBookingRequest(conn, caregiverActor(caregiver), req.ID, RespondInput{Accepted: true}, testClock)
	assert.ErrorIs(t, err, ErrConflict)

	var reloaded models.BookingRequest
	require.NoError(t, conn.First(&reloaded, req.ID).Error)
	assert.Equal(t, models.RequestSent, reloaded.Status, "rolled back")
	assert.Equal(t, int64(1), countBookings(t, conn))
}

func TestRejectNeverCreatesBooking(t *testing.T) {
	conn := testutil.NewDB(t)
	caregiver, _ := testutil.CreateCaregiver(t, conn, "care@example.com", 25)
	client, _ := testutil.CreateClient(t, conn, "client@example.com", "Springfield")
	req := sendRequest(t, conn, client, caregiver, "2026-03-02", "10:00", 2)

	got, booking, err := RespondToBookingRequest(conn, caregiverActor(caregiver), req.ID, RespondInput{Accepted: false}, testClock)
	require.NoError(t, err)
	assert.Nil(t, booking)
	assert.Equal(t, models.RequestRejected, got.Status)
	assert.Equal(t, defaultRejectMessage, got.CaregiverResponse)
	assert.Nil(t, got.BookingID)
	assert.Equal(t, int64(0), countBookings(t, conn))

	var notes []models.Notification
	require.NoError(t, conn.Where("user_id = ?", client.ID).Find(&notes).Error)
	require.Len(t, notes, 1)
	assert.Equal(t, "Booking request declined", notes[0].Title)
}

func TestRespondRequiresTheRequestedCaregiver(t *testing.T) {
	conn := testutil.NewDB(t)
	caregiver, _ := testutil.CreateCaregiver(t, conn, "care@example.com", 25)
	other, _ := testutil.CreateCaregiver(t, conn, "other@example.com", 25)
	client, _ := testutil.CreateClient(t, conn, "client@example.com", "Springfield")
	req := sendRequest(t, conn, client, caregiver, "2026-03-02", "10:00", 2)

	_, _, err := RespondToBookingRequest(conn, caregiverActor(other), req.ID, RespondInput{Accepted: true}, testClock)
	assert.ErrorIs(t, err, ErrForbidden)

	_, _, err = RespondToBookingRequest(conn, clientActor(client), req.ID, RespondInput{Accepted: true}, testClock)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestRespondAfterExpiryMarksExpired(t *testing.T) {
	conn := testutil.NewDB(t)
	caregiver, _ := testutil.CreateCaregiver(t, conn, "care@example.com", 25)
	client, _ := testutil.CreateClient(t, conn, "client@example.com", "Springfield")
	req := sendRequest(t, conn, client, caregiver, "2026-03-10", "10:00", 2)

	late := testClock
	late.Now = testNow.Add(49 * time.Hour)
	_, _, err := RespondToBookingRequest(conn, caregiverActor(caregiver), req.ID, RespondInput{Accepted: true}, late)
	assert.ErrorIs(t, err, ErrInvalidState)

	var reloaded models.BookingRequest
	require.NoError(t, conn.First(&reloaded, req.ID).Error)
	assert.Equal(t, models.RequestExpired, reloaded.Status)
	assert.Equal(t, int64(0), countBookings(t, conn))
}

func TestExpireBookingRequests(t *testing.T) {
	conn := testutil.NewDB(t)
	caregiver, _ := testutil.CreateCaregiver(t, conn, "care@example.com", 25)
	client, _ := testutil.CreateClient(t, conn, "client@example.com", "Springfield")
	stale := sendRequest(t, conn, client, caregiver, "2026-03-10", "10:00", 2)
	answered := sendRequest(t, conn, client, caregiver, "2026-03-11", "10:00", 2)
	_, _, err := RespondToBookingRequest(conn, caregiverActor(caregiver), answered.ID, RespondInput{Accepted: false}, testClock)
	require.NoError(t, err)

	fresh := testClock
	fresh.Now = testNow.Add(24 * time.Hour)
	recent := sendRequest(t, conn, client, caregiver, "2026-03-12", "10:00", 2)
	require.NoError(t, conn.Model(recent).Update("expires_at", fresh.Now.Add(48*time.Hour)).Error)

	n, err := ExpireBookingRequests(conn, testNow.Add(48*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	statuses := map[uint]models.RequestStatus{}
	var all []models.BookingRequest
	require.NoError(t, conn.Find(&all).Error)
	for _, r := range all {
		statuses[r.ID] = r.Status
	}
	assert.Equal(t, models.RequestExpired, statuses[stale.ID])
	assert.Equal(t, models.RequestRejected, statuses[answered.ID])
	assert.Equal(t, models.RequestSent, statuses[recent.ID])

	n, err = ExpireBookingRequests(conn, testNow.Add(48*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestExpireBookingRequestsAtDeadline(t *testing.T) {
	conn := testutil.NewDB(t)
	caregiver, _ := testutil.CreateCaregiver(t, conn, "care@example.com", 25)
	client, _ := testutil.CreateClient(t, conn, "client@example.com", "Springfield")
	req := sendRequest(t, conn, client, caregiver, "2026-03-10", "10:00", 2)

	n, err := ExpireBookingRequests(conn, req.ExpiresAt.Add(-time.Second))
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = ExpireBookingRequests(conn, req.ExpiresAt)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestListBookingRequestsIsRoleScoped(t *testing.T) {
	conn := testutil.NewDB(t)
	caregiver, _ := testutil.CreateCaregiver(t, conn, "care@example.com", 25)
	other, _ := testutil.CreateCaregiver(t, conn, "other@example.com", 25)
	client, _ := testutil.CreateClient(t, conn, "client@example.com", "Springfield")
	sendRequest(t, conn, client, caregiver, "2026-03-02", "10:00", 2)
	sendRequest(t, conn, client, other, "2026-03-03", "10:00", 2)

	mine, err := ListBookingRequests(conn, caregiverActor(caregiver), BookingRequestFilter{})
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	theirs, err := ListBookingRequests(conn, clientActor(client), BookingRequestFilter{Status: models.RequestSent})
	require.NoError(t, err)
	assert.Len(t, theirs, 2)

	admin := Actor{ID: 999, Role: models.RoleAdmin}
	all, err := ListBookingRequests(conn, admin, BookingRequestFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	nobody, err := ListBookingRequests(conn, Actor{ID: client.ID, Role: "ghost"}, BookingRequestFilter{})
	require.NoError(t, err)
	assert.Empty(t, nobody)
}
