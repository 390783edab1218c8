package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lockmaster/lockmaster-server/internal/models"
)

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func intPtr(n int) *int { return &n }

func TestValidateCredential(t *testing.T) {
	validFrom := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	before := validFrom.Add(-time.Hour)
	after := validFrom.Add(time.Hour)

	tests := []struct {
		name       string
		credential models.Credential
		wantErr    string
	}{
		{
			name: "valid pin credential",
			credential: models.Credential{
				CredentialType: models.CredentialTypePIN,
				Status:         models.CredentialStatusActive,
				ValidFrom:      validFrom,
				ValidUntil:     &after,
			},
		},
		{
			name: "unknown type",
			credential: models.Credential{
				CredentialType: "retina_scan",
				Status:         models.CredentialStatusActive,
			},
			wantErr: "unknown credential type",
		},
		{
			name: "unknown status",
			credential: models.Credential{
				CredentialType: models.CredentialTypeRFIDCard,
				Status:         "pending",
			},
			wantErr: "unknown credential status",
		},
		{
			name: "valid_until before valid_from",
			credential: models.Credential{
				CredentialType: models.CredentialTypePIN,
				Status:         models.CredentialStatusActive,
				ValidFrom:      validFrom,
				ValidUntil:     &before,
			},
			wantErr: "valid_until must not be before valid_from",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCredential(&tt.credential)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestValidateSchedule(t *testing.T) {
	tests := []struct {
		name     string
		schedule models.AccessSchedule
		wantErr  string
	}{
		{
			name: "valid recurring schedule",
			schedule: models.AccessSchedule{
				ScheduleType: models.ScheduleTypeRecurring,
				DaysOfWeek:   models.StringArray{"monday", "friday"},
				TimeSlots:    models.TimeSlots{{StartTime: "09:00", EndTime: "17:00"}},
				Status:       models.ScheduleStatusActive,
			},
		},
		{
			name: "valid one_time schedule",
			schedule: models.AccessSchedule{
				ScheduleType: models.ScheduleTypeOneTime,
				StartDate:    datePtr(2024, 3, 1),
				EndDate:      datePtr(2024, 3, 1),
				TimeSlots:    models.TimeSlots{{StartTime: "08:00", EndTime: "08:30"}},
				MaxUses:      intPtr(1),
				Status:       models.ScheduleStatusActive,
			},
		},
		{
			name: "unknown type",
			schedule: models.AccessSchedule{
				ScheduleType: "forever",
				Status:       models.ScheduleStatusActive,
			},
			wantErr: "unknown schedule type",
		},
		{
			name: "unknown status",
			schedule: models.AccessSchedule{
				ScheduleType: models.ScheduleTypePermanent,
				Status:       "paused",
			},
			wantErr: "unknown schedule status",
		},
		{
			name: "temporary without dates",
			schedule: models.AccessSchedule{
				ScheduleType: models.ScheduleTypeTemporary,
				Status:       models.ScheduleStatusActive,
			},
			wantErr: "require start_date and end_date",
		},
		{
			name: "end date before start date",
			schedule: models.AccessSchedule{
				ScheduleType: models.ScheduleTypeTemporary,
				StartDate:    datePtr(2024, 3, 10),
				EndDate:      datePtr(2024, 3, 1),
				Status:       models.ScheduleStatusActive,
			},
			wantErr: "end_date must not be before start_date",
		},
		{
			name: "unknown weekday",
			schedule: models.AccessSchedule{
				ScheduleType: models.ScheduleTypeRecurring,
				DaysOfWeek:   models.StringArray{"monday", "funday"},
				Status:       models.ScheduleStatusActive,
			},
			wantErr: `unknown weekday "funday"`,
		},
		{
			name: "malformed slot time",
			schedule: models.AccessSchedule{
				ScheduleType: models.ScheduleTypePermanent,
				TimeSlots:    models.TimeSlots{{StartTime: "9:00", EndTime: "17:00"}},
				Status:       models.ScheduleStatusActive,
			},
			wantErr: "malformed start_time",
		},
		{
			name: "slot start after end",
			schedule: models.AccessSchedule{
				ScheduleType: models.ScheduleTypePermanent,
				TimeSlots:    models.TimeSlots{{StartTime: "18:00", EndTime: "09:00"}},
				Status:       models.ScheduleStatusActive,
			},
			wantErr: "start_time 18:00 after end_time 09:00",
		},
		{
			name: "max_uses below one",
			schedule: models.AccessSchedule{
				ScheduleType: models.ScheduleTypePermanent,
				MaxUses:      intPtr(0),
				Status:       models.ScheduleStatusActive,
			},
			wantErr: "max_uses must be at least 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSchedule(&tt.schedule)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}
