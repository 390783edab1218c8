// Package access implements the credential validity and schedule window
// evaluation used by the unlock and access-check paths. All evaluators
// are pure: they never mutate stored records.
package access

import (
	"time"

	"github.com/lockmaster/lockmaster-server/internal/models"
)

// EffectiveStatus returns the effective status of a credential at the
// given instant. The stored status is authoritative for inactive and
// revoked credentials; a stored-active credential is reported as expired
// once the instant passes valid_until. The stored record is not changed.
func EffectiveStatus(c *models.Credential, now time.Time) models.CredentialStatus {
	if c.Status != models.CredentialStatusActive {
		return c.Status
	}

	if c.ValidUntil != nil && now.After(*c.ValidUntil) {
		return models.CredentialStatusExpired
	}

	return models.CredentialStatusActive
}
