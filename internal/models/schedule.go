package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ScheduleType represents how an access schedule recurs
type ScheduleType string

const (
	ScheduleTypePermanent ScheduleType = "permanent"
	ScheduleTypeTemporary ScheduleType = "temporary"
	ScheduleTypeRecurring ScheduleType = "recurring"
	ScheduleTypeOneTime   ScheduleType = "one_time"
)

// Valid reports whether the schedule type is a known value
func (t ScheduleType) Valid() bool {
	switch t {
	case ScheduleTypePermanent, ScheduleTypeTemporary,
		ScheduleTypeRecurring, ScheduleTypeOneTime:
		return true
	}
	return false
}

// DateBounded reports whether the type is governed by a fixed date range
func (t ScheduleType) DateBounded() bool {
	return t == ScheduleTypeTemporary || t == ScheduleTypeOneTime
}

// ScheduleStatus represents whether a schedule is in effect
type ScheduleStatus string

const (
	ScheduleStatusActive   ScheduleStatus = "active"
	ScheduleStatusInactive ScheduleStatus = "inactive"
)

// Valid reports whether the schedule status is a known value
func (s ScheduleStatus) Valid() bool {
	return s == ScheduleStatusActive || s == ScheduleStatusInactive
}

// TimeSlot is a wall-clock window within a single day, HH:MM inclusive
// on both ends
type TimeSlot struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// TimeSlots is a list of time slots stored as a JSON column
type TimeSlots []TimeSlot

// Value implements driver.Valuer
func (t TimeSlots) Value() (driver.Value, error) {
	if t == nil {
		return nil, nil
	}
	return json.Marshal(t)
}

// Scan implements sql.Scanner
func (t *TimeSlots) Scan(value interface{}) error {
	if value == nil {
		*t = nil
		return nil
	}

	switch data := value.(type) {
	case []byte:
		return json.Unmarshal(data, t)
	case string:
		return json.Unmarshal([]byte(data), t)
	default:
		return fmt.Errorf("unsupported type for TimeSlots: %T", value)
	}
}

// WeekdayName returns the lowercase weekday name used in days_of_week
func WeekdayName(t time.Time) string {
	switch t.Weekday() {
	case time.Monday:
		return "monday"
	case time.Tuesday:
		return "tuesday"
	case time.Wednesday:
		return "wednesday"
	case time.Thursday:
		return "thursday"
	case time.Friday:
		return "friday"
	case time.Saturday:
		return "saturday"
	default:
		return "sunday"
	}
}

// Weekdays lists the accepted days_of_week values
var Weekdays = []string{
	"monday", "tuesday", "wednesday", "thursday",
	"friday", "saturday", "sunday",
}

// AccessSchedule represents a time-window policy restricting when a
// user (optionally through a specific credential) may access a lock
type AccessSchedule struct {
	BaseModel

	Name string `json:"name" db:"name"`

	UserID       uuid.UUID  `json:"userId" db:"user_id"`
	LockID       uuid.UUID  `json:"lockId" db:"lock_id"`
	CredentialID *uuid.UUID `json:"credentialId,omitempty" db:"credential_id"`

	ScheduleType ScheduleType `json:"scheduleType" db:"schedule_type"`

	// StartDate/EndDate bound temporary and one_time schedules, inclusive
	StartDate *time.Time `json:"startDate,omitempty" db:"start_date"`
	EndDate   *time.Time `json:"endDate,omitempty" db:"end_date"`

	// DaysOfWeek restricts recurring/permanent schedules; empty means all days
	DaysOfWeek StringArray `json:"daysOfWeek,omitempty" db:"days_of_week"`

	// TimeSlots restricts the time of day; empty means all day
	TimeSlots TimeSlots `json:"timeSlots,omitempty" db:"time_slots"`

	// MaxUses caps the number of granted uses; nil means unlimited
	MaxUses  *int `json:"maxUses,omitempty" db:"max_uses"`
	UseCount int  `json:"useCount" db:"use_count"`

	Status ScheduleStatus `json:"status" db:"status"`
}
