package models

import (
	"time"

	"github.com/google/uuid"
)

// LockType represents where a lock is installed
type LockType string

const (
	LockTypeMainEntrance LockType = "main_entrance"
	LockTypeUnitDoor     LockType = "unit_door"
	LockTypeCommonArea   LockType = "common_area"
	LockTypeAmenity      LockType = "amenity"
)

// Valid reports whether the lock type is a known value
func (t LockType) Valid() bool {
	switch t {
	case LockTypeMainEntrance, LockTypeUnitDoor, LockTypeCommonArea, LockTypeAmenity:
		return true
	}
	return false
}

// LockStatus represents a lock's operational status
type LockStatus string

const (
	LockStatusOnline      LockStatus = "online"
	LockStatusOffline     LockStatus = "offline"
	LockStatusLowBattery  LockStatus = "low_battery"
	LockStatusMaintenance LockStatus = "maintenance"
)

// Valid reports whether the lock status is a known value
func (s LockStatus) Valid() bool {
	switch s {
	case LockStatusOnline, LockStatusOffline, LockStatusLowBattery, LockStatusMaintenance:
		return true
	}
	return false
}

// Lock represents a smart lock managed through the vendor cloud
type Lock struct {
	BaseModel

	// LockID is the vendor-assigned device identifier
	LockID   int64  `json:"lockId" db:"lock_id"`
	LockName string `json:"lockName" db:"lock_name"`
	LockMAC  string `json:"lockMac,omitempty" db:"lock_mac"`

	BuildingID *uuid.UUID `json:"buildingId,omitempty" db:"building_id"`
	UnitNumber string     `json:"unitNumber,omitempty" db:"unit_number"`

	LockType LockType   `json:"lockType" db:"lock_type"`
	Status   LockStatus `json:"status" db:"status"`

	BatteryLevel int `json:"batteryLevel" db:"battery_level"`

	GatewayID *uuid.UUID `json:"gatewayId,omitempty" db:"gateway_id"`

	FirmwareVersion string     `json:"firmwareVersion,omitempty" db:"firmware_version"`
	LastSeenAt      *time.Time `json:"lastSeenAt,omitempty" db:"last_seen_at"`
	LastSyncedAt    *time.Time `json:"lastSyncedAt,omitempty" db:"last_synced_at"`

	Metadata Variables `json:"metadata,omitempty" db:"metadata"`
}
