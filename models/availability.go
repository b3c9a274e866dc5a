package models

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// DayOfWeek numbers weekdays from Monday = 0.
type DayOfWeek int

const (
	Monday DayOfWeek = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var dayNames = [...]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

func (d DayOfWeek) Valid() bool { return d >= Monday && d <= Sunday }

func (d DayOfWeek) String() string {
	if !d.Valid() {
		return fmt.Sprintf("DayOfWeek(%d)", int(d))
	}
	return dayNames[d]
}

// WeekdayOf converts a calendar date to the Monday-based numbering.
func WeekdayOf(t time.Time) DayOfWeek {
	return DayOfWeek((int(t.Weekday()) + 6) % 7)
}

// ParseDayName accepts full or three-letter English day names.
func ParseDayName(name string) (DayOfWeek, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range dayNames {
		full := strings.ToLower(n)
		if name == full || name == full[:3] {
			return DayOfWeek(i), true
		}
	}
	return 0, false
}

// AvailabilitySlot is an open window, either weekly (IsRecurring) or on SpecificDate.
type AvailabilitySlot struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	CaregiverID  uint      `json:"caregiver_id" gorm:"not null;uniqueIndex:idx_slot_unique,priority:1"`
	Caregiver    User      `json:"-" gorm:"foreignKey:CaregiverID"`
	DayOfWeek    DayOfWeek `json:"day_of_week" gorm:"not null;uniqueIndex:idx_slot_unique,priority:2"`
	StartTime    string    `json:"start_time" gorm:"type:varchar(5);not null;uniqueIndex:idx_slot_unique,priority:3"` // "HH:MM" 24h
	EndTime      string    `json:"end_time" gorm:"type:varchar(5);not null"`                                           // "HH:MM" 24h
	IsRecurring  bool      `json:"is_recurring"`
	SpecificDate *string   `json:"specific_date"` // "YYYY-MM-DD"
	DateKey      string    `json:"-" gorm:"type:varchar(10);not null;default:'';uniqueIndex:idx_slot_unique,priority:4"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// BeforeSave derives the uniqueness key for one-off slots.
func (s *AvailabilitySlot) BeforeSave(tx *gorm.DB) error {
	if s.StartTime != "" && s.StartTime >= s.EndTime {
		return fmt.Errorf("start_time %s must be before end_time %s", s.StartTime, s.EndTime)
	}
	s.DateKey = ""
	if s.SpecificDate != nil {
		s.DateKey = *s.SpecificDate
	}
	return nil
}

// Covers reports whether clock ("HH:MM") lies within the slot, bounds included.
func (s *AvailabilitySlot) Covers(clock string) bool {
	return s.StartTime <= clock && clock <= s.EndTime
}

// Matches reports whether the slot applies to the given date.
func (s *AvailabilitySlot) Matches(date time.Time) bool {
	if s.SpecificDate != nil && *s.SpecificDate == date.Format(DateLayout) {
		return true
	}
	return s.IsRecurring && s.DayOfWeek == WeekdayOf(date)
}
