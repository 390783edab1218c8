package access

import (
	"fmt"
	"time"

	"github.com/lockmaster/lockmaster-server/internal/models"
)

// Decision is the outcome of a schedule or access evaluation
type Decision struct {
	Granted bool   `json:"granted"`
	Reason  string `json:"reason"`
}

func granted(reason string) Decision {
	return Decision{Granted: true, Reason: reason}
}

func denied(reason string) Decision {
	return Decision{Granted: false, Reason: reason}
}

// EvaluateSchedule decides whether a schedule grants access at the given
// instant. Input is assumed well-formed (enforced at write time); the
// evaluation itself has no fallible paths and no hidden state.
func EvaluateSchedule(s *models.AccessSchedule, now time.Time) Decision {
	if s.Status != models.ScheduleStatusActive {
		return denied("schedule is not active")
	}

	if s.ScheduleType.DateBounded() {
		if dateBefore(now, *s.StartDate) {
			return denied("before schedule start date")
		}
		if dateBefore(*s.EndDate, now) {
			return denied("after schedule end date")
		}
	}

	if s.ScheduleType == models.ScheduleTypeRecurring || s.ScheduleType == models.ScheduleTypePermanent {
		// Empty days_of_week means all days
		if len(s.DaysOfWeek) > 0 && !s.DaysOfWeek.Contains(models.WeekdayName(now)) {
			return denied(fmt.Sprintf("not scheduled on %s", models.WeekdayName(now)))
		}
	}

	// Empty time_slots means all day. Slots are matched with OR
	// semantics, inclusive on both bounds.
	if len(s.TimeSlots) > 0 {
		clock := now.Format("15:04")
		matched := false
		for _, slot := range s.TimeSlots {
			if slot.StartTime <= clock && clock <= slot.EndTime {
				matched = true
				break
			}
		}
		if !matched {
			return denied("outside scheduled time slots")
		}
	}

	if s.MaxUses != nil && s.UseCount >= *s.MaxUses {
		return denied("maximum uses reached")
	}

	return granted("within schedule window")
}

// dateBefore reports whether a's calendar date is strictly before b's,
// ignoring the time of day. Date range checks are inclusive on both ends.
func dateBefore(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	if ay != by {
		return ay < by
	}
	if am != bm {
		return am < bm
	}
	return ad < bd
}
