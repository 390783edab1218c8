package models

import (
	"time"

	"github.com/google/uuid"
)

// CredentialType represents the kind of access token
type CredentialType string

const (
	CredentialTypePIN         CredentialType = "pin"
	CredentialTypeOneTimePIN  CredentialType = "one_time_pin"
	CredentialTypeRFIDCard    CredentialType = "rfid_card"
	CredentialTypeRFIDFob     CredentialType = "rfid_fob"
	CredentialTypeFingerprint CredentialType = "fingerprint"
	CredentialTypeAppKey      CredentialType = "app_key"
)

// Valid reports whether the credential type is a known value
func (t CredentialType) Valid() bool {
	switch t {
	case CredentialTypePIN, CredentialTypeOneTimePIN, CredentialTypeRFIDCard,
		CredentialTypeRFIDFob, CredentialTypeFingerprint, CredentialTypeAppKey:
		return true
	}
	return false
}

// Secret reports whether the credential value must never be shown in clear
func (t CredentialType) Secret() bool {
	return t == CredentialTypePIN || t == CredentialTypeOneTimePIN
}

// CredentialStatus represents a credential's lifecycle status
type CredentialStatus string

const (
	CredentialStatusActive   CredentialStatus = "active"
	CredentialStatusInactive CredentialStatus = "inactive"
	CredentialStatusExpired  CredentialStatus = "expired"
	CredentialStatusRevoked  CredentialStatus = "revoked"
)

// Valid reports whether the credential status is a known value
func (s CredentialStatus) Valid() bool {
	switch s {
	case CredentialStatusActive, CredentialStatusInactive,
		CredentialStatusExpired, CredentialStatusRevoked:
		return true
	}
	return false
}

// Credential represents an access token bound to exactly one user and one lock
type Credential struct {
	BaseModel

	Name string `json:"name" db:"name"`

	UserID uuid.UUID `json:"userId" db:"user_id"`
	LockID uuid.UUID `json:"lockId" db:"lock_id"`

	CredentialType CredentialType `json:"credentialType" db:"credential_type"`

	// CredentialValue is stored AES-GCM encrypted for secret types
	CredentialValue string `json:"credentialValue,omitempty" db:"credential_value"`

	Status CredentialStatus `json:"status" db:"status"`

	ValidFrom  time.Time  `json:"validFrom" db:"valid_from"`
	ValidUntil *time.Time `json:"validUntil,omitempty" db:"valid_until"`

	UsageCount int        `json:"usageCount" db:"usage_count"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty" db:"last_used_at"`
}
