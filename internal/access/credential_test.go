package access

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lockmaster/lockmaster-server/internal/models"
)

func TestEffectiveStatus(t *testing.T) {
	validUntil := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		status     models.CredentialStatus
		validUntil *time.Time
		now        time.Time
		want       models.CredentialStatus
	}{
		{
			name:   "active without expiry stays active",
			status: models.CredentialStatusActive,
			now:    time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC),
			want:   models.CredentialStatusActive,
		},
		{
			name:       "active past valid_until becomes expired",
			status:     models.CredentialStatusActive,
			validUntil: &validUntil,
			now:        time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			want:       models.CredentialStatusExpired,
		},
		{
			name:       "active exactly at valid_until stays active",
			status:     models.CredentialStatusActive,
			validUntil: &validUntil,
			now:        validUntil,
			want:       models.CredentialStatusActive,
		},
		{
			name:       "active before valid_until stays active",
			status:     models.CredentialStatusActive,
			validUntil: &validUntil,
			now:        time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC),
			want:       models.CredentialStatusActive,
		},
		{
			name:       "revoked is authoritative even after expiry",
			status:     models.CredentialStatusRevoked,
			validUntil: &validUntil,
			now:        time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			want:       models.CredentialStatusRevoked,
		},
		{
			name:       "inactive is authoritative",
			status:     models.CredentialStatusInactive,
			validUntil: &validUntil,
			now:        time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			want:       models.CredentialStatusInactive,
		},
		{
			name:   "stored expired stays expired",
			status: models.CredentialStatusExpired,
			now:    time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
			want:   models.CredentialStatusExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &models.Credential{
				Status:     tt.status,
				ValidFrom:  time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
				ValidUntil: tt.validUntil,
			}

			got := EffectiveStatus(c, tt.now)
			assert.Equal(t, tt.want, got)

			// The evaluator is a read-time projection only
			assert.Equal(t, tt.status, c.Status)
		})
	}
}

func TestEffectiveStatusAlwaysExpiredAfterValidUntil(t *testing.T) {
	validUntil := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := &models.Credential{
		Status:     models.CredentialStatusActive,
		ValidFrom:  time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		ValidUntil: &validUntil,
	}

	// Every instant strictly after valid_until must report expired
	for _, offset := range []time.Duration{time.Nanosecond, time.Second, time.Hour, 24 * time.Hour, 365 * 24 * time.Hour} {
		now := validUntil.Add(offset)
		assert.Equal(t, models.CredentialStatusExpired, EffectiveStatus(c, now), "offset %s", offset)
	}
}
