package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/meinhoongagan/carenest/models"
	"github.com/meinhoongagan/carenest/utils"
	"github.com/meinhoongagan/carenest/validation"
)

// ConflictBuffer pads a requested start on both sides when checking bookings.
const ConflictBuffer = time.Hour

// AvailabilityResult answers "is the caregiver free at date/time".
type AvailabilityResult struct {
	Available   bool    `json:"available"`
	Reason      string  `json:"reason,omitempty"`
	CaregiverID uint    `json:"caregiver_id"`
	Date        string  `json:"date"`
	Time        string  `json:"time"`
	HourlyRate  float64 `json:"hourly_rate"`
}

const (
	reasonNotAccepting = "Caregiver is not currently accepting bookings"
	reasonNoSlot       = "No availability slot covers the requested time"
	reasonConflict     = "Caregiver already has a booking around the requested time"
)

// CheckAvailability reports whether caregiverID can take a booking starting at date/clock.
func CheckAvailability(conn *gorm.DB, caregiverID uint, date, clock string, loc *time.Location) (*AvailabilityResult, error) {
	v := validation.Violations{}
	validation.Required("date", date, v)
	validation.Required("time", clock, v)
	if err := v.Err(); err != nil {
		return nil, err
	}
	day, err := utils.ParseDate(date, loc)
	if err != nil {
		return nil, validation.Violations{"date": "invalid_format"}
	}
	clock, err = utils.ParseClock(clock)
	if err != nil {
		return nil, validation.Violations{"time": "invalid_format"}
	}

	profile, err := caregiverProfileFor(conn, caregiverID)
	if err != nil {
		return nil, err
	}

	result := &AvailabilityResult{
		CaregiverID: caregiverID,
		Date:        date,
		Time:        clock,
		HourlyRate:  profile.HourlyRate,
	}
	if !profile.IsAvailable || !profile.IsActive {
		result.Reason = reasonNotAccepting
		return result, nil
	}

	slots, err := slotsForDate(conn, caregiverID, day)
	if err != nil {
		return nil, err
	}
	covered := false
	for i := range slots {
		if slots[i].Covers(clock) {
			covered = true
			break
		}
	}
	if !covered {
		result.Reason = reasonNoSlot
		return result, nil
	}

	at, _ := utils.CombineDateTime(date, clock, loc)
	clash, err := conflictingBooking(conn, caregiverID, at.Add(-ConflictBuffer), at.Add(ConflictBuffer))
	if err != nil {
		return nil, err
	}
	if clash != nil {
		result.Reason = reasonConflict
		return result, nil
	}

	result.Available = true
	return result, nil
}

// caregiverProfileFor loads the profile of a user that must be a caregiver.
func caregiverProfileFor(conn *gorm.DB, caregiverID uint) (*models.CaregiverProfile, error) {
	var user models.User
	if err := conn.First(&user, caregiverID).Error; err != nil {
		return nil, lookup(err, "caregiver")
	}
	if user.Role != models.RoleCaregiver || !user.IsActive {
		return nil, notFound("caregiver not found")
	}
	profile, err := GetCaregiverProfile(conn, caregiverID)
	if err != nil {
		return nil, lookup(err, "caregiver")
	}
	return profile, nil
}

// slotsForDate returns one-off slots on day plus recurring slots for its weekday.
func slotsForDate(conn *gorm.DB, caregiverID uint, day time.Time) ([]models.AvailabilitySlot, error) {
	var slots []models.AvailabilitySlot
	err := conn.Where("caregiver_id = ?", caregiverID).
		Where("(date_key = ? OR (is_recurring = ? AND day_of_week = ?))",
			day.Format(models.DateLayout), true, models.WeekdayOf(day)).
		Order("start_time").
		Find(&slots).Error
	if err != nil {
		return nil, err
	}
	matching := slots[:0]
	for _, s := range slots {
		if s.Matches(day) {
			matching = append(matching, s)
		}
	}
	return matching, nil
}

// conflictingBooking scans the caregiver's active bookings for one overlapping [start, end).
func conflictingBooking(conn *gorm.DB, caregiverID uint, start, end time.Time) (*models.Booking, error) {
	return conflictingBookingExcept(conn, caregiverID, start, end, 0)
}

// conflictingBookingExcept is conflictingBooking ignoring the booking with id exceptID.
func conflictingBookingExcept(conn *gorm.DB, caregiverID uint, start, end time.Time, exceptID uint) (*models.Booking, error) {
	var bookings []models.Booking
	q := conn.Where("caregiver_id = ? AND status IN ?", caregiverID, models.ActiveBookingStatuses)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	err := q.Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	for i := range bookings {
		if bookings[i].Overlaps(start, end) {
			return &bookings[i], nil
		}
	}
	return nil, nil
}

// lockCaregiverCalendar takes a row lock on the caregiver's user row so that bookings
// entering an active status for the same caregiver are serialized.
func lockCaregiverCalendar(tx *gorm.DB, caregiverID uint) error {
	var u models.User
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").First(&u, caregiverID).Error
	if err != nil {
		return lookup(err, "caregiver")
	}
	return nil
}

// SlotInput describes a slot; exactly one of SpecificDate or a recurring weekday applies.
type SlotInput struct {
	DayOfWeek    *models.DayOfWeek `json:"day_of_week"`
	StartTime    string            `json:"start_time"`
	EndTime      string            `json:"end_time"`
	IsRecurring  bool              `json:"is_recurring"`
	SpecificDate *string           `json:"specific_date"`
}

func (in SlotInput) build(caregiverID uint) (*models.AvailabilitySlot, error) {
	v := validation.Violations{}
	start, err := utils.ParseClock(in.StartTime)
	if err != nil {
		v["start_time"] = "invalid_format"
	}
	end, err := utils.ParseClock(in.EndTime)
	if err != nil {
		v["end_time"] = "invalid_format"
	}
	if v.Empty() && start >= end {
		v["end_time"] = "must_be_after_start_time"
	}

	slot := &models.AvailabilitySlot{
		CaregiverID: caregiverID,
		StartTime:   start,
		EndTime:     end,
		IsRecurring: in.IsRecurring,
	}
	switch {
	case in.SpecificDate != nil && *in.SpecificDate != "":
		d, err := utils.ParseDate(*in.SpecificDate, time.UTC)
		if err != nil {
			v["specific_date"] = "invalid_format"
			break
		}
		date := d.Format(models.DateLayout)
		slot.SpecificDate = &date
		slot.DayOfWeek = models.WeekdayOf(d)
		slot.IsRecurring = false
	case in.DayOfWeek != nil && in.DayOfWeek.Valid():
		slot.DayOfWeek = *in.DayOfWeek
		slot.IsRecurring = true
	default:
		v["day_of_week"] = "required"
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	return slot, nil
}

func ListSlots(conn *gorm.DB, caregiverID uint) ([]models.AvailabilitySlot, error) {
	slots := []models.AvailabilitySlot{}
	err := conn.Where("caregiver_id = ?", caregiverID).
		Order("is_recurring DESC, day_of_week, date_key, start_time").
		Find(&slots).Error
	return slots, err
}

func CreateSlot(conn *gorm.DB, actor Actor, in SlotInput) (*models.AvailabilitySlot, error) {
	if err := actor.require(models.CapManageSchedule, "Only caregivers can manage availability"); err != nil {
		return nil, err
	}
	slot, err := in.build(actor.ID)
	if err != nil {
		return nil, err
	}
	if err := conn.Create(slot).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, conflict("A slot already starts at %s on that day", slot.StartTime)
		}
		return nil, err
	}
	return slot, nil
}

func UpdateSlot(conn *gorm.DB, actor Actor, id uint, in SlotInput) (*models.AvailabilitySlot, error) {
	if err := actor.require(models.CapManageSchedule, "Only caregivers can manage availability"); err != nil {
		return nil, err
	}
	var existing models.AvailabilitySlot
	if err := conn.Where("id = ? AND caregiver_id = ?", id, actor.ID).First(&existing).Error; err != nil {
		return nil, lookup(err, "availability slot")
	}
	slot, err := in.build(actor.ID)
	if err != nil {
		return nil, err
	}
	slot.ID = existing.ID
	slot.CreatedAt = existing.CreatedAt
	if err := conn.Save(slot).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, conflict("A slot already starts at %s on that day", slot.StartTime)
		}
		return nil, err
	}
	return slot, nil
}

func DeleteSlot(conn *gorm.DB, actor Actor, id uint) error {
	if err := actor.require(models.CapManageSchedule, "Only caregivers can manage availability"); err != nil {
		return err
	}
	res := conn.Where("id = ? AND caregiver_id = ?", id, actor.ID).Delete(&models.AvailabilitySlot{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound("availability slot not found")
	}
	return nil
}

// ScheduleDay is one row of the weekly schedule editor.
type ScheduleDay struct {
	Day    string `json:"day"`
	Start  string `json:"start"`
	End    string `json:"end"`
	Active bool   `json:"active"`
}

// ReplaceWeeklySchedule swaps every recurring slot for the active days given.
// One-off slots are kept.
func ReplaceWeeklySchedule(conn *gorm.DB, actor Actor, days []ScheduleDay) ([]models.AvailabilitySlot, error) {
	if err := actor.require(models.CapManageSchedule, "Only caregivers can manage availability"); err != nil {
		return nil, err
	}

	v := validation.Violations{}
	var slots []*models.AvailabilitySlot
	for i, d := range days {
		if !d.Active {
			continue
		}
		day, ok := models.ParseDayName(d.Day)
		if !ok {
			v[fieldIndex("schedule", i, "day")] = "invalid_choice"
			continue
		}
		slot, err := SlotInput{DayOfWeek: &day, StartTime: d.Start, EndTime: d.End, IsRecurring: true}.build(actor.ID)
		if err != nil {
			var fields validation.Violations
			if errors.As(err, &fields) {
				for f, code := range fields {
					v[fieldIndex("schedule", i, f)] = code
				}
				continue
			}
			return nil, err
		}
		slots = append(slots, slot)
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	err := conn.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("caregiver_id = ? AND is_recurring = ? AND date_key = ?", actor.ID, true, "").
			Delete(&models.AvailabilitySlot{}).Error; err != nil {
			return err
		}
		for _, s := range slots {
			if err := tx.Create(s).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return conflict("Duplicate %s slot starting at %s", s.DayOfWeek, s.StartTime)
				}
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ListSlots(conn, actor.ID)
}

func fieldIndex(prefix string, i int, field string) string {
	return fmt.Sprintf("%s[%d].%s", prefix, i, field)
}
