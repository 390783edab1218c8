package validation

import (
	"fmt"

	"github.com/lockmaster/lockmaster-server/internal/models"
)

// ValidateCredential enforces the write-time invariants of a credential
func ValidateCredential(c *models.Credential) error {
	if !c.CredentialType.Valid() {
		return fmt.Errorf("unknown credential type %q", c.CredentialType)
	}

	if !c.Status.Valid() {
		return fmt.Errorf("unknown credential status %q", c.Status)
	}

	if c.ValidUntil != nil && c.ValidUntil.Before(c.ValidFrom) {
		return fmt.Errorf("valid_until must not be before valid_from")
	}

	return nil
}

// ValidateSchedule enforces the write-time invariants of an access schedule.
// The schedule evaluator assumes well-formed input and has no fallible
// paths, so every malformed shape must be rejected here.
func ValidateSchedule(s *models.AccessSchedule) error {
	if !s.ScheduleType.Valid() {
		return fmt.Errorf("unknown schedule type %q", s.ScheduleType)
	}

	if !s.Status.Valid() {
		return fmt.Errorf("unknown schedule status %q", s.Status)
	}

	if s.ScheduleType.DateBounded() {
		if s.StartDate == nil || s.EndDate == nil {
			return fmt.Errorf("%s schedules require start_date and end_date", s.ScheduleType)
		}
		if s.EndDate.Before(*s.StartDate) {
			return fmt.Errorf("end_date must not be before start_date")
		}
	}

	for _, day := range s.DaysOfWeek {
		if !models.StringArray(models.Weekdays).Contains(day) {
			return fmt.Errorf("unknown weekday %q", day)
		}
	}

	for i, slot := range s.TimeSlots {
		if !ValidClockTime(slot.StartTime) {
			return fmt.Errorf("time slot %d: malformed start_time %q", i, slot.StartTime)
		}
		if !ValidClockTime(slot.EndTime) {
			return fmt.Errorf("time slot %d: malformed end_time %q", i, slot.EndTime)
		}
		// No overnight-spanning slots
		if slot.StartTime > slot.EndTime {
			return fmt.Errorf("time slot %d: start_time %s after end_time %s", i, slot.StartTime, slot.EndTime)
		}
	}

	if s.MaxUses != nil && *s.MaxUses < 1 {
		return fmt.Errorf("max_uses must be at least 1")
	}

	return nil
}
