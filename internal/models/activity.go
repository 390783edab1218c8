package models

import (
	"time"

	"github.com/google/uuid"
)

// ActivityType represents the kind of audited event
type ActivityType string

const (
	ActivityTypeUnlock        ActivityType = "unlock"
	ActivityTypeLock          ActivityType = "lock"
	ActivityTypeFailedAttempt ActivityType = "failed_attempt"
	ActivityTypeBatteryLow    ActivityType = "battery_low"
	ActivityTypeOffline       ActivityType = "offline"
)

// Valid reports whether the activity type is a known value
func (t ActivityType) Valid() bool {
	switch t {
	case ActivityTypeUnlock, ActivityTypeLock, ActivityTypeFailedAttempt,
		ActivityTypeBatteryLow, ActivityTypeOffline:
		return true
	}
	return false
}

// AccessMethod represents how a lock was operated
type AccessMethod string

const (
	AccessMethodApp         AccessMethod = "app"
	AccessMethodKeypad      AccessMethod = "keypad"
	AccessMethodCard        AccessMethod = "card"
	AccessMethodFingerprint AccessMethod = "fingerprint"
	AccessMethodKey         AccessMethod = "key"
)

// Valid reports whether the access method is a known value
func (m AccessMethod) Valid() bool {
	switch m {
	case AccessMethodApp, AccessMethodKeypad, AccessMethodCard,
		AccessMethodFingerprint, AccessMethodKey:
		return true
	}
	return false
}

// ActivityLog is an immutable audit record of a lock event.
// User and lock references are not foreign-key enforced: deleting a user
// or lock leaves the log intact with a dangling reference.
type ActivityLog struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	ActivityType ActivityType `json:"activityType" db:"activity_type"`

	UserID       *uuid.UUID `json:"userId,omitempty" db:"user_id"`
	LockID       *uuid.UUID `json:"lockId,omitempty" db:"lock_id"`
	CredentialID *uuid.UUID `json:"credentialId,omitempty" db:"credential_id"`
	BuildingID   *uuid.UUID `json:"buildingId,omitempty" db:"building_id"`

	Method AccessMethod `json:"method,omitempty" db:"method"`

	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	Success   bool      `json:"success" db:"success"`

	Details string    `json:"details,omitempty" db:"details"`
	Extra   Variables `json:"extra,omitempty" db:"extra"`
}
