package services

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/meinhoongagan/carenest/models"
	"github.com/meinhoongagan/carenest/validation"
)

// CaregiverProfileInput carries writable caregiver fields; nil means unchanged.
type CaregiverProfileInput struct {
	FirstName       *string             `json:"first_name"`
	LastName        *string             `json:"last_name"`
	Bio             *string             `json:"bio"`
	HourlyRate      *float64            `json:"hourly_rate"`
	ExperienceYears *int                `json:"experience_years"`
	Specialties     *models.Specialties `json:"specialties"`
	Location        *string             `json:"location"`
	City            *string             `json:"city"`
	PostalCode      *string             `json:"postal_code"`
	IsAvailable     *bool               `json:"is_available"`
	IsActive        *bool               `json:"is_active"`
}

func (in CaregiverProfileInput) validate() error {
	v := validation.Violations{}
	if in.HourlyRate != nil {
		validation.PositiveFloat("hourly_rate", *in.HourlyRate, v)
	}
	if in.ExperienceYears != nil && *in.ExperienceYears < 0 {
		v["experience_years"] = "must_not_be_negative"
	}
	return v.Err()
}

func (in CaregiverProfileInput) apply(p *models.CaregiverProfile) {
	setString(&p.FirstName, in.FirstName)
	setString(&p.LastName, in.LastName)
	setString(&p.Bio, in.Bio)
	setString(&p.Location, in.Location)
	setString(&p.City, in.City)
	setString(&p.PostalCode, in.PostalCode)
	if in.HourlyRate != nil {
		p.HourlyRate = *in.HourlyRate
	}
	if in.ExperienceYears != nil {
		p.ExperienceYears = *in.ExperienceYears
	}
	if in.Specialties != nil {
		p.Specialties = in.Specialties.Normalize()
	}
	if in.IsAvailable != nil {
		p.IsAvailable = *in.IsAvailable
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func requireRole(conn *gorm.DB, userID uint, role models.Role) (*models.User, error) {
	user, err := ActiveUser(conn, userID)
	if err != nil {
		return nil, err
	}
	if user.Role != role {
		return nil, forbidden("Only %ss have this profile", role)
	}
	return user, nil
}

func GetCaregiverProfile(conn *gorm.DB, userID uint) (*models.CaregiverProfile, error) {
	var p models.CaregiverProfile
	if err := conn.Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, lookup(err, "caregiver profile")
	}
	return &p, nil
}

// CreateCaregiverProfile fails with a conflict when the profile already exists.
func CreateCaregiverProfile(conn *gorm.DB, actor Actor, in CaregiverProfileInput) (*models.CaregiverProfile, error) {
	user, err := requireRole(conn, actor.ID, models.RoleCaregiver)
	if err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	if _, err := GetCaregiverProfile(conn, user.ID); err == nil {
		return nil, conflict("Profile already exists. Use PATCH to update.")
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	p := &models.CaregiverProfile{
		UserID:      user.ID,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		HourlyRate:  models.DefaultHourlyRate,
		IsActive:    true,
		IsAvailable: true,
	}
	in.apply(p)
	err = conn.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(p).Error; err != nil {
			return err
		}
		// Columns with a database default ignore false on insert.
		return tx.Model(p).Updates(map[string]interface{}{"is_active": p.IsActive, "is_available": p.IsAvailable}).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, conflict("Profile already exists. Use PATCH to update.")
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateCaregiverProfile patches the caller's profile, creating it on first use.
func UpdateCaregiverProfile(conn *gorm.DB, actor Actor, in CaregiverProfileInput) (*models.CaregiverProfile, error) {
	user, err := requireRole(conn, actor.ID, models.RoleCaregiver)
	if err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	p := models.CaregiverProfile{
		UserID:      user.ID,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		HourlyRate:  models.DefaultHourlyRate,
		IsActive:    true,
		IsAvailable: true,
	}
	if err := conn.Where("user_id = ?", user.ID).FirstOrCreate(&p).Error; err != nil {
		return nil, err
	}
	in.apply(&p)
	if err := conn.Omit("AverageRating", "TotalReviews").Save(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// SetCaregiverAsset stores an uploaded asset URL on the caller's profile.
func SetCaregiverAsset(conn *gorm.DB, actor Actor, column, url string) (*models.CaregiverProfile, error) {
	if column != "profile_image_url" && column != "id_document_url" {
		return nil, badRequest("unknown asset %q", column)
	}
	if _, err := requireRole(conn, actor.ID, models.RoleCaregiver); err != nil {
		return nil, err
	}
	p, err := GetCaregiverProfile(conn, actor.ID)
	if err != nil {
		return nil, err
	}
	if err := conn.Model(p).Update(column, url).Error; err != nil {
		return nil, err
	}
	return GetCaregiverProfile(conn, actor.ID)
}

// ClientProfileInput carries writable client fields; nil means unchanged.
type ClientProfileInput struct {
	FirstName           *string `json:"first_name"`
	LastName            *string `json:"last_name"`
	Phone               *string `json:"phone"`
	Address             *string `json:"address"`
	City                *string `json:"city"`
	EmergencyPhone      *string `json:"emergency_phone"`
	PreferredCareType   *string `json:"preferred_care_type"`
	SpecialRequirements *string `json:"special_requirements"`
}

func (in ClientProfileInput) apply(p *models.ClientProfile) {
	setString(&p.FirstName, in.FirstName)
	setString(&p.LastName, in.LastName)
	setString(&p.Phone, in.Phone)
	setString(&p.Address, in.Address)
	setString(&p.City, in.City)
	setString(&p.EmergencyPhone, in.EmergencyPhone)
	setString(&p.PreferredCareType, in.PreferredCareType)
	setString(&p.SpecialRequirements, in.SpecialRequirements)
}

func GetClientProfile(conn *gorm.DB, userID uint) (*models.ClientProfile, error) {
	var p models.ClientProfile
	if err := conn.Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, lookup(err, "client profile")
	}
	return &p, nil
}

func CreateClientProfile(conn *gorm.DB, actor Actor, in ClientProfileInput) (*models.ClientProfile, error) {
	user, err := requireRole(conn, actor.ID, models.RoleClient)
	if err != nil {
		return nil, err
	}
	if _, err := GetClientProfile(conn, user.ID); err == nil {
		return nil, conflict("Profile already exists. Use PATCH to update.")
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	p := &models.ClientProfile{UserID: user.ID, FirstName: user.FirstName, LastName: user.LastName, Phone: user.Phone}
	in.apply(p)
	if err := conn.Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

func UpdateClientProfile(conn *gorm.DB, actor Actor, in ClientProfileInput) (*models.ClientProfile, error) {
	user, err := requireRole(conn, actor.ID, models.RoleClient)
	if err != nil {
		return nil, err
	}
	p := models.ClientProfile{UserID: user.ID, FirstName: user.FirstName, LastName: user.LastName}
	if err := conn.Where("user_id = ?", user.ID).FirstOrCreate(&p).Error; err != nil {
		return nil, err
	}
	in.apply(&p)
	if err := conn.Save(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// Discovery sort orders.
const (
	SortRecommended = "recommended"
	SortRateLow     = "rate_low"
	SortRateHigh    = "rate_high"
	SortExperience  = "experience"
)

// DiscoveryLimit caps caregiver search results.
const DiscoveryLimit = 20

var discoveryOrders = map[string]string{
	SortRecommended: "is_featured DESC, average_rating DESC, total_reviews DESC, id ASC",
	SortRateLow:     "hourly_rate ASC, id ASC",
	SortRateHigh:    "hourly_rate DESC, id ASC",
	SortExperience:  "experience_years DESC, id ASC",
}

type DiscoveryQuery struct {
	City      string
	Specialty string
	MinRate   *float64
	MaxRate   *float64
	Sort      string
}

// DiscoverCaregivers searches active caregiver profiles.
func DiscoverCaregivers(conn *gorm.DB, q DiscoveryQuery) ([]models.CaregiverProfile, error) {
	if q.Sort == "" {
		q.Sort = SortRecommended
	}
	order, ok := discoveryOrders[q.Sort]
	if !ok {
		return nil, validation.Violations{"sort": "invalid_choice"}
	}
	if q.MinRate != nil && q.MaxRate != nil && *q.MinRate > *q.MaxRate {
		return nil, validation.Violations{"min_rate": "greater_than_max_rate"}
	}

	tx := conn.Model(&models.CaregiverProfile{}).
		Joins("JOIN users ON users.id = caregiver_profiles.user_id").
		Where("caregiver_profiles.is_active = ? AND users.is_active = ?", true, true)
	if city := strings.TrimSpace(q.City); city != "" {
		tx = tx.Where("LOWER(caregiver_profiles.city) LIKE ?", "%"+strings.ToLower(city)+"%")
	}
	if s := strings.TrimSpace(q.Specialty); s != "" {
		tx = tx.Where("LOWER(caregiver_profiles.specialties) LIKE ?", "%"+strings.ToLower(s)+"%")
	}
	if q.MinRate != nil {
		tx = tx.Where("caregiver_profiles.hourly_rate >= ?", *q.MinRate)
	}
	if q.MaxRate != nil {
		tx = tx.Where("caregiver_profiles.hourly_rate <= ?", *q.MaxRate)
	}

	profiles := []models.CaregiverProfile{}
	err := tx.Select("caregiver_profiles.*").
		Order(prefixColumns(order, "caregiver_profiles.")).
		Limit(DiscoveryLimit).
		Find(&profiles).Error
	return profiles, err
}

func prefixColumns(order, prefix string) string {
	parts := strings.Split(order, ", ")
	for i, p := range parts {
		parts[i] = prefix + p
	}
	return strings.Join(parts, ", ")
}

// PublicCaregiver is a caregiver profile with its weekly availability.
type PublicCaregiver struct {
	Profile *models.CaregiverProfile  `json:"profile"`
	Slots   []models.AvailabilitySlot `json:"availability"`
}

func GetPublicCaregiver(conn *gorm.DB, userID uint) (*PublicCaregiver, error) {
	p, err := GetCaregiverProfile(conn, userID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, notFound("caregiver profile not found")
	}
	slots, err := ListSlots(conn, userID)
	if err != nil {
		return nil, err
	}
	return &PublicCaregiver{Profile: p, Slots: slots}, nil
}

type DashboardStats struct {
	TotalEarnings   float64 `json:"total_earnings"`
	HoursWorked     float64 `json:"hours_worked"`
	CompletedCount  int64   `json:"completed_bookings"`
	UpcomingCount   int64   `json:"upcoming_bookings"`
	PendingRequests int64   `json:"pending_requests"`
	AverageRating   float64 `json:"average_rating"`
	TotalReviews    int     `json:"total_reviews"`
}

// CaregiverDashboard summarises earnings and workload for the caller.
func CaregiverDashboard(conn *gorm.DB, actor Actor, now time.Time) (*DashboardStats, error) {
	if err := actor.require(models.CapViewEarnings, "Only caregivers have a dashboard"); err != nil {
		return nil, err
	}
	profile, err := GetCaregiverProfile(conn, actor.ID)
	if err != nil {
		return nil, err
	}

	stats := &DashboardStats{AverageRating: profile.AverageRating, TotalReviews: profile.TotalReviews}
	var agg struct {
		Earnings float64
		Hours    float64
		Count    int64
	}
	err = conn.Model(&models.Booking{}).
		Select("COALESCE(SUM(caregiver_payout), 0) AS earnings, COALESCE(SUM(hours), 0) AS hours, COUNT(*) AS count").
		Where("caregiver_id = ? AND status = ?", actor.ID, models.BookingCompleted).
		Scan(&agg).Error
	if err != nil {
		return nil, err
	}
	stats.TotalEarnings = agg.Earnings
	stats.HoursWorked = agg.Hours
	stats.CompletedCount = agg.Count

	upcoming, err := UpcomingBookings(conn, actor, now)
	if err != nil {
		return nil, err
	}
	stats.UpcomingCount = int64(len(upcoming))

	if err := conn.Model(&models.BookingRequest{}).
		Where("caregiver_id = ? AND status IN ?", actor.ID, models.OpenRequestStatuses).
		Count(&stats.PendingRequests).Error; err != nil {
		return nil, err
	}
	return stats, nil
}
