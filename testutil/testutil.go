// Package testutil holds shared fixtures for package tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/meinhoongagan/carenest/db"
	"github.com/meinhoongagan/carenest/models"
)

// Password is the plain-text password of every seeded user.
const Password = "password123"

var passwordHash []byte

func init() {
	h, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	passwordHash = h
}

// NewDB opens a migrated in-memory sqlite database private to t.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", name)
	conn, err := db.Open(sqlite.Open(dsn))
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrate(conn))
	return conn
}

// UseGlobalDB installs conn as db.DB for the duration of t.
func UseGlobalDB(t *testing.T, conn *gorm.DB) {
	t.Helper()
	prev := db.DB
	db.DB = conn
	t.Cleanup(func() { db.DB = prev })
}

// CreateUser inserts an active user without a profile.
func CreateUser(t *testing.T, conn *gorm.DB, email string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{
		Email:     email,
		Password:  string(passwordHash),
		FirstName: strings.Split(email, "@")[0],
		LastName:  "Test",
		Role:      role,
		IsActive:  true,
	}
	require.NoError(t, conn.Create(u).Error)
	return u
}

// CreateCaregiver inserts a caregiver user with a profile at the given rate.
func CreateCaregiver(t *testing.T, conn *gorm.DB, email string, rate float64) (*models.User, *models.CaregiverProfile) {
	t.Helper()
	u := CreateUser(t, conn, email, models.RoleCaregiver)
	p := &models.CaregiverProfile{
		UserID:     u.ID,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		HourlyRate: rate,
		City:       "Springfield",
	}
	require.NoError(t, conn.Create(p).Error)
	require.NoError(t, conn.Create(&models.NotificationPreference{UserID: u.ID}).Error)
	return u, p
}

// CreateClient inserts a client user with a profile in city.
func CreateClient(t *testing.T, conn *gorm.DB, email, city string) (*models.User, *models.ClientProfile) {
	t.Helper()
	u := CreateUser(t, conn, email, models.RoleClient)
	p := &models.ClientProfile{UserID: u.ID, FirstName: u.FirstName, LastName: u.LastName, City: city}
	require.NoError(t, conn.Create(p).Error)
	require.NoError(t, conn.Create(&models.NotificationPreference{UserID: u.ID}).Error)
	return u, p
}

// CreateBooking inserts a booking in the given status.
func CreateBooking(t *testing.T, conn *gorm.DB, clientID, caregiverID uint, start time.Time, hours int, status models.BookingStatus) *models.Booking {
	t.Helper()
	b := &models.Booking{
		ClientID:      clientID,
		CaregiverID:   caregiverID,
		ServiceType:   "companionship",
		StartDatetime: start,
		EndDatetime:   start.Add(time.Duration(hours) * time.Hour),
		Hours:         float64(hours),
		HourlyRate:    20,
		City:          "Springfield",
		Status:        status,
	}
	require.NoError(t, conn.Create(b).Error)
	return b
}

// NextWeekday returns the first date on or after from falling on day, at hh:mm UTC.
func NextWeekday(from time.Time, day models.DayOfWeek, hh, mm int) time.Time {
	d := time.Date(from.Year(), from.Month(), from.Day(), hh, mm, 0, 0, time.UTC)
	for models.WeekdayOf(d) != day {
		d = d.AddDate(0, 0, 1)
	}
	return d
}
