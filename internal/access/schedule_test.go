package access

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lockmaster/lockmaster-server/internal/models"
)

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestEvaluateScheduleRecurring(t *testing.T) {
	schedule := &models.AccessSchedule{
		ScheduleType: models.ScheduleTypeRecurring,
		DaysOfWeek:   models.StringArray{"monday", "wednesday"},
		TimeSlots:    models.TimeSlots{{StartTime: "09:00", EndTime: "17:00"}},
		Status:       models.ScheduleStatusActive,
	}

	// 2024-03-04 is a Monday
	monday10 := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	monday18 := time.Date(2024, 3, 4, 18, 0, 0, 0, time.UTC)
	tuesday10 := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

	assert.True(t, EvaluateSchedule(schedule, monday10).Granted)
	assert.False(t, EvaluateSchedule(schedule, monday18).Granted)
	assert.False(t, EvaluateSchedule(schedule, tuesday10).Granted)
}

func TestEvaluateScheduleOneTime(t *testing.T) {
	schedule := &models.AccessSchedule{
		ScheduleType: models.ScheduleTypeOneTime,
		StartDate:    datePtr(2024, 3, 1),
		EndDate:      datePtr(2024, 3, 1),
		TimeSlots:    models.TimeSlots{{StartTime: "08:00", EndTime: "08:30"}},
		Status:       models.ScheduleStatusActive,
	}

	inWindow := time.Date(2024, 3, 1, 8, 15, 0, 0, time.UTC)
	dayAfter := time.Date(2024, 3, 2, 8, 15, 0, 0, time.UTC)
	dayBefore := time.Date(2024, 2, 29, 8, 15, 0, 0, time.UTC)
	wrongTime := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	assert.True(t, EvaluateSchedule(schedule, inWindow).Granted)
	assert.False(t, EvaluateSchedule(schedule, dayAfter).Granted)
	assert.False(t, EvaluateSchedule(schedule, dayBefore).Granted)
	assert.False(t, EvaluateSchedule(schedule, wrongTime).Granted)
}

func TestEvaluateScheduleTemporaryDateRangeInclusive(t *testing.T) {
	schedule := &models.AccessSchedule{
		ScheduleType: models.ScheduleTypeTemporary,
		StartDate:    datePtr(2024, 3, 10),
		EndDate:      datePtr(2024, 3, 20),
		Status:       models.ScheduleStatusActive,
	}

	// Both boundary dates are inside the range, any time of day
	assert.True(t, EvaluateSchedule(schedule, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)).Granted)
	assert.True(t, EvaluateSchedule(schedule, time.Date(2024, 3, 20, 23, 59, 0, 0, time.UTC)).Granted)
	assert.True(t, EvaluateSchedule(schedule, time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)).Granted)

	assert.False(t, EvaluateSchedule(schedule, time.Date(2024, 3, 9, 23, 59, 0, 0, time.UTC)).Granted)
	assert.False(t, EvaluateSchedule(schedule, time.Date(2024, 3, 21, 0, 0, 0, 0, time.UTC)).Granted)
}

func TestEvaluateSchedulePermanentEmptyMeansAlways(t *testing.T) {
	schedule := &models.AccessSchedule{
		ScheduleType: models.ScheduleTypePermanent,
		Status:       models.ScheduleStatusActive,
	}

	// Empty days_of_week and empty time_slots grant at any instant
	instants := []time.Time{
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 15, 3, 33, 0, 0, time.UTC),
		time.Date(2030, 12, 31, 23, 59, 59, 0, time.UTC),
	}

	for _, now := range instants {
		assert.True(t, EvaluateSchedule(schedule, now).Granted, "%s", now)
	}
}

func TestEvaluateScheduleInactiveDenies(t *testing.T) {
	schedule := &models.AccessSchedule{
		ScheduleType: models.ScheduleTypePermanent,
		Status:       models.ScheduleStatusInactive,
	}

	decision := EvaluateSchedule(schedule, time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC))
	assert.False(t, decision.Granted)
	assert.Equal(t, "schedule is not active", decision.Reason)
}

func TestEvaluateScheduleTimeSlotsInclusiveBounds(t *testing.T) {
	schedule := &models.AccessSchedule{
		ScheduleType: models.ScheduleTypePermanent,
		TimeSlots:    models.TimeSlots{{StartTime: "09:00", EndTime: "17:00"}},
		Status:       models.ScheduleStatusActive,
	}

	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	assert.True(t, EvaluateSchedule(schedule, day.Add(9*time.Hour)).Granted)
	assert.True(t, EvaluateSchedule(schedule, day.Add(17*time.Hour)).Granted)
	assert.False(t, EvaluateSchedule(schedule, day.Add(8*time.Hour+59*time.Minute)).Granted)
	assert.False(t, EvaluateSchedule(schedule, day.Add(17*time.Hour+1*time.Minute)).Granted)
}

func TestEvaluateScheduleMultipleSlotsOrSemantics(t *testing.T) {
	schedule := &models.AccessSchedule{
		ScheduleType: models.ScheduleTypePermanent,
		TimeSlots: models.TimeSlots{
			{StartTime: "06:00", EndTime: "08:00"},
			{StartTime: "18:00", EndTime: "22:00"},
		},
		Status: models.ScheduleStatusActive,
	}

	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	assert.True(t, EvaluateSchedule(schedule, day.Add(7*time.Hour)).Granted)
	assert.True(t, EvaluateSchedule(schedule, day.Add(20*time.Hour)).Granted)
	assert.False(t, EvaluateSchedule(schedule, day.Add(12*time.Hour)).Granted)
}

func TestEvaluateScheduleMaxUses(t *testing.T) {
	maxUses := 3
	schedule := &models.AccessSchedule{
		ScheduleType: models.ScheduleTypePermanent,
		MaxUses:      &maxUses,
		UseCount:     2,
		Status:       models.ScheduleStatusActive,
	}

	now := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	assert.True(t, EvaluateSchedule(schedule, now).Granted)

	schedule.UseCount = 3
	decision := EvaluateSchedule(schedule, now)
	require.False(t, decision.Granted)
	assert.Equal(t, "maximum uses reached", decision.Reason)

	schedule.UseCount = 10
	assert.False(t, EvaluateSchedule(schedule, now).Granted)
}

func TestEvaluateScheduleIdempotent(t *testing.T) {
	maxUses := 5
	schedule := &models.AccessSchedule{
		ScheduleType: models.ScheduleTypeRecurring,
		DaysOfWeek:   models.StringArray{"monday"},
		TimeSlots:    models.TimeSlots{{StartTime: "09:00", EndTime: "17:00"}},
		MaxUses:      &maxUses,
		UseCount:     1,
		Status:       models.ScheduleStatusActive,
	}

	now := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

	first := EvaluateSchedule(schedule, now)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, EvaluateSchedule(schedule, now))
	}
}

func TestEvaluateScheduleGrantImpliesSlotMatch(t *testing.T) {
	schedule := &models.AccessSchedule{
		ScheduleType: models.ScheduleTypePermanent,
		TimeSlots: models.TimeSlots{
			{StartTime: "08:00", EndTime: "12:00"},
			{StartTime: "14:00", EndTime: "18:00"},
		},
		Status: models.ScheduleStatusActive,
	}

	// Sweep the day: every grant must be backed by a containing slot
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	for minute := 0; minute < 24*60; minute += 7 {
		now := day.Add(time.Duration(minute) * time.Minute)
		decision := EvaluateSchedule(schedule, now)

		clock := now.Format("15:04")
		contained := false
		for _, slot := range schedule.TimeSlots {
			if slot.StartTime <= clock && clock <= slot.EndTime {
				contained = true
			}
		}

		assert.Equal(t, contained, decision.Granted, "at %s", clock)
	}
}
