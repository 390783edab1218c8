package models

import (
	"time"

	"github.com/google/uuid"
)

// AccessLevel represents a user's portal role
type AccessLevel string

const (
	AccessLevelResident        AccessLevel = "resident"
	AccessLevelPropertyManager AccessLevel = "property_manager"
	AccessLevelSuperAdmin      AccessLevel = "super_admin"
)

// Valid reports whether the access level is a known value
func (l AccessLevel) Valid() bool {
	switch l {
	case AccessLevelResident, AccessLevelPropertyManager, AccessLevelSuperAdmin:
		return true
	}
	return false
}

// CanManage reports whether the level may mutate portal records
func (l AccessLevel) CanManage() bool {
	return l == AccessLevelPropertyManager || l == AccessLevelSuperAdmin
}

// UserStatus represents a user's account status
type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusInactive  UserStatus = "inactive"
	UserStatusSuspended UserStatus = "suspended"
)

// Valid reports whether the status is a known value
func (s UserStatus) Valid() bool {
	switch s {
	case UserStatusActive, UserStatusInactive, UserStatusSuspended:
		return true
	}
	return false
}

// User represents a portal user (resident, manager or administrator)
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	Email    string `json:"email" db:"email"`
	FullName string `json:"fullName" db:"full_name"`
	Phone    string `json:"phone,omitempty" db:"phone"`

	PasswordHash string `json:"-" db:"password_hash"`

	ApartmentUnit string     `json:"apartmentUnit,omitempty" db:"apartment_unit"`
	BuildingID    *uuid.UUID `json:"buildingId,omitempty" db:"building_id"`

	AccessLevel AccessLevel `json:"accessLevel" db:"access_level"`
	Status      UserStatus  `json:"status" db:"status"`

	LastLoginAt *time.Time `json:"lastLoginAt,omitempty" db:"last_login_at"`

	Settings Variables `json:"settings,omitempty" db:"settings"`
}
