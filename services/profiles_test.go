package services

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/meinhoongagan/carenest/models"
	"github.com/meinhoongagan/carenest/testutil"
)

func TestCaregiverProfileLifecycle(t *testing.T) {
	conn := testutil.NewDB(t)
	u := testutil.CreateUser(t, conn, "care@example.com", models.RoleCaregiver)
	actor := caregiverActor(u)

	rate := 32.5
	available := false
	specialties := models.Specialties{" Dementia ", "dementia", "Mobility"}
	p, err := CreateCaregiverProfile(conn, actor, CaregiverProfileInput{HourlyRate: &rate, IsAvailable: &available, Specialties: &specialties})
	require.NoError(t, err)
	assert.InDelta(t, 32.5, p.HourlyRate, 0.001)

	stored, err := GetCaregiverProfile(conn, u.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsAvailable)
	assert.True(t, stored.IsActive)
	assert.Equal(t, models.Specialties{"Dementia", "Mobility"}, stored.Specialties)

	_, err = CreateCaregiverProfile(conn, actor, CaregiverProfileInput{})
	assert.ErrorIs(t, err, ErrConflict)

	bio := "Ten years in home care"
	updated, err := UpdateCaregiverProfile(conn, actor, CaregiverProfileInput{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, bio, updated.Bio)
	assert.InDelta(t, 32.5, updated.HourlyRate, 0.001)

	negative := -1.0
	_, err = UpdateCaregiverProfile(conn, actor, CaregiverProfileInput{HourlyRate: &negative})
	assert.Error(t, err)
}

func TestUpdateCaregiverProfileCreatesLazily(t *testing.T) {
	conn := testutil.NewDB(t)
	u := testutil.CreateUser(t, conn, "care@example.com", models.RoleCaregiver)

	city := "Springfield"
	p, err := UpdateCaregiverProfile(conn, caregiverActor(u), CaregiverProfileInput{City: &city})
	require.NoError(t, err)
	assert.Equal(t, "Springfield", p.City)
	assert.InDelta(t, models.DefaultHourlyRate, p.HourlyRate, 0.001)
	assert.True(t, p.IsAvailable)
}

func TestProfileRoleChecks(t *testing.T) {
	conn := testutil.NewDB(t)
	client := testutil.CreateUser(t, conn, "client@example.com", models.RoleClient)
	caregiver := testutil.CreateUser(t, conn, "care@example.com", models.RoleCaregiver)

	_, err := CreateCaregiverProfile(conn, clientActor(client), CaregiverProfileInput{})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = CreateClientProfile(conn, caregiverActor(caregiver), ClientProfileInput{})
	assert.ErrorIs(t, err, ErrForbidden)

	city := "Ogdenville"
	p, err := CreateClientProfile(conn, clientActor(client), ClientProfileInput{City: &city})
	require.NoError(t, err)
	assert.Equal(t, "Ogdenville", p.City)

	addr := "742 Evergreen Terrace"
	p, err = UpdateClientProfile(conn, clientActor(client), ClientProfileInput{Address: &addr})
	require.NoError(t, err)
	assert.Equal(t, "Ogdenville", p.City)
	assert.Equal(t, addr, p.Address)
}

func TestSetCaregiverAsset(t *testing.T) {
	conn := testutil.NewDB(t)
	u, _ := testutil.CreateCaregiver(t, conn, "care@example.com", 30)

	p, err := SetCaregiverAsset(conn, caregiverActor(u), "profile_image_url", "https://cdn.example.com/a.png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/a.png", p.ProfileImageURL)

	_, err = SetCaregiverAsset(conn, caregiverActor(u), "password", "x")
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestDiscoverCaregivers(t *testing.T) {
	conn := testutil.NewDB(t)
	cheap, _ := testutil.CreateCaregiver(t, conn, "cheap@example.com", 18)
	pricey, _ := testutil.CreateCaregiver(t, conn, "pricey@example.com", 45)
	hidden, hiddenProfile := testutil.CreateCaregiver(t, conn, "hidden@example.com", 20)
	require.NoError(t, conn.Model(hiddenProfile).Update("is_active", false).Error)
	gone, _ := testutil.CreateCaregiver(t, conn, "gone@example.com", 22)
	require.NoError(t, conn.Model(gone).Update("is_active", false).Error)
	require.NoError(t, conn.Model(&models.CaregiverProfile{}).Where("user_id = ?", pricey.ID).
		Update("specialties", `["dementia"]`).Error)

	found, err := DiscoverCaregivers(conn, DiscoveryQuery{Sort: SortRateLow})
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, cheap.ID, found[0].UserID)
	assert.Equal(t, pricey.ID, found[1].UserID)

	maxRate := 20.0
	found, err = DiscoverCaregivers(conn, DiscoveryQuery{MaxRate: &maxRate})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, cheap.ID, found[0].UserID)

	found, err = DiscoverCaregivers(conn, DiscoveryQuery{City: "spring", Specialty: "Dementia"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, pricey.ID, found[0].UserID)

	_, err = DiscoverCaregivers(conn, DiscoveryQuery{Sort: "cheapest"})
	assert.Error(t, err)

	_, err = GetPublicCaregiver(conn, hidden.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	public, err := GetPublicCaregiver(conn, cheap.ID)
	require.NoError(t, err)
	assert.Equal(t, cheap.ID, public.Profile.UserID)
}

func TestExportBookings(t *testing.T) {
	conn := testutil.NewDB(t)
	caregiver, _ := testutil.CreateCaregiver(t, conn, "care@example.com", 30)
	client, _ := testutil.CreateClient(t, conn, "client@example.com", "Springfield")
	other, _ := testutil.CreateClient(t, conn, "other@example.com", "Springfield")
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	testutil.CreateBooking(t, conn, client.ID, caregiver.ID, start, 2, models.BookingConfirmed)
	testutil.CreateBooking(t, conn, other.ID, caregiver.ID, start.Add(24*time.Hour), 2, models.BookingConfirmed)

	data, err := ExportBookings(conn, clientActor(client))
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, bookingExportHeader, rows[0])
	assert.Equal(t, "companionship", rows[1][1])
	assert.Equal(t, "2026-03-02 10:00", rows[1][4])
	assert.Equal(t, "40", rows[1][11])

	data, err = ExportBookings(conn, caregiverActor(caregiver))
	require.NoError(t, err)
	f2, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f2.Close()
	rows, err = f2.GetRows(exportSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}
